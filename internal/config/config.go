package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper" // 导入 Viper
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	AliyunOSS AliyunOSSConfig `mapstructure:"aliyun_oss"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storageconfig"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Ops       OpsConfig       `mapstructure:"ops"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retention RetentionConfig `mapstructure:"retention"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL        string `mapstructure:"url"`
	AlertQueue string `mapstructure:"alert_queue"` // 维护任务发布告警的队列名
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
}

type StorageConfig struct {
	Type               string `mapstructure:"type"`
	PresignedURLExpiry int    `mapstructure:"presigned_url_expiry"` // 预签名URL有效期（秒）
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// AdminConfig 管理员白名单配置
type AdminConfig struct {
	UserIDs []string `mapstructure:"user_ids"`
}

// OpsConfig 运维维护接口配置
type OpsConfig struct {
	MaintenanceKey string `mapstructure:"maintenance_key"` // X-Ops-Key 共享密钥
}

// RateLimitConfig 滑动窗口限流配置
type RateLimitConfig struct {
	Window            time.Duration `mapstructure:"window"`              // 窗口长度，默认10分钟
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"` // 窗口内允许的失败次数，默认5
}

// RetentionConfig 审计日志保留与告警阈值配置
type RetentionConfig struct {
	AccessLogDays           int `mapstructure:"access_log_days"`            // 日志保留天数，默认90
	RateLimitSpikeThreshold int `mapstructure:"rate_limit_spike_threshold"` // 限流告警阈值，默认50
	FailureSpikeThreshold   int `mapstructure:"failure_spike_threshold"`    // 失败告警阈值，默认100
}

// GeoIPConfig 地理位置查询配置
type GeoIPConfig struct {
	Endpoint string        `mapstructure:"endpoint"` // 例如 https://ipapi.co
	Timeout  time.Duration `mapstructure:"timeout"`  // 硬超时，默认700ms
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// BucketName 返回当前存储后端对应的桶名
func (c *Config) BucketName() string {
	if c.Storage.Type == "aliyun_oss" {
		return c.AliyunOSS.BucketName
	}
	return c.MinIO.BucketName
}

var AppConfig *Config // 全局应用配置实例

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")                  // 配置文件名 (不带扩展名)
	viper.SetConfigType("yaml")                    // 配置文件类型
	viper.AddConfigPath(".")                       // 在当前目录查找配置文件
	viper.AddConfigPath("./configs")               // 也可以添加其他路径，例如 ./configs/
	viper.AddConfigPath("/etc/secure-share-hub/")  // 生产环境常见路径

	// 读取环境变量，环境变量名将自动转换为大写，并用下划线替换点
	// 例如：SERVER.PORT 对应环境变量 SECURE_SHARE_HUB_SERVER_PORT
	viper.SetEnvPrefix("SECURE_SHARE_HUB")
	viper.AutomaticEnv() // 自动绑定环境变量

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	// 默认值：门禁与维护相关参数在未配置时也要有确定行为
	viper.SetDefault("storageconfig.presigned_url_expiry", 60)
	viper.SetDefault("rabbitmq.alert_queue", "share_alerts")
	viper.SetDefault("rate_limit.window", 10*time.Minute)
	viper.SetDefault("rate_limit.max_failed_attempts", 5)
	viper.SetDefault("retention.access_log_days", 90)
	viper.SetDefault("retention.rate_limit_spike_threshold", 50)
	viper.SetDefault("retention.failure_spike_threshold", 100)
	viper.SetDefault("geoip.endpoint", "https://ipapi.co")
	viper.SetDefault("geoip.timeout", 700*time.Millisecond)
	viper.SetDefault("geoip.cache_ttl", 24*time.Hour)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到，但这不是致命错误，因为我们可以依赖环境变量或默认值
			log.Println("Warning: config file not found, using environment variables or default values.")
			return nil, err
		} else {
			// 其他读取错误，例如配置文件格式错误
			log.Fatalf("Fatal error reading config file: %s \n", err)
			return nil, err
		}
	}

	// 将读取到的配置绑定到结构体
	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		log.Fatalf("Fatal error unmarshaling config: %s \n", err)
		return nil, err
	}

	log.Println("Configuration loaded successfully with Viper.")
	return AppConfig, nil
}
