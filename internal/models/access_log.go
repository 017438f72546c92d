package models

import (
	"time"
)

// 审计记录结果
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// 审计原因码（封闭集合），限流器按类别过滤这些原因码
const (
	ReasonRateLimited             = "rate_limited"
	ReasonPasswordRateLimited     = "password_rate_limited"
	ReasonWrongPassword           = "wrong_password"
	ReasonFileNotFound            = "file_not_found"
	ReasonFileRevoked             = "file_revoked"
	ReasonLinkExpired             = "link_expired"
	ReasonDownloadLimitExceeded   = "download_limit_exceeded"
	ReasonConcurrentDownload      = "concurrent_download_detected"
	ReasonURLGenerationFailed     = "url_generation_failed"
	ReasonDownloadInitiated       = "download_initiated"
)

// DownloadReasons 下载验证类别关联的原因码
var DownloadReasons = []string{
	ReasonRateLimited,
	ReasonFileNotFound,
	ReasonFileRevoked,
	ReasonLinkExpired,
	ReasonDownloadLimitExceeded,
	ReasonConcurrentDownload,
	ReasonURLGenerationFailed,
}

// PasswordReasons 密码验证类别关联的原因码
var PasswordReasons = []string{
	ReasonPasswordRateLimited,
	ReasonWrongPassword,
}

// AccessLog 对应 access_logs 表，每次访问或验证尝试追加一条，永不更新
type AccessLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID     string    `gorm:"type:varchar(36);not null;index" json:"file_id"` // 引用分享记录，不拥有其生命周期
	Outcome    string    `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Reason     string    `gorm:"type:varchar(32);not null;index" json:"reason"`
	IPAddress  string    `gorm:"type:varchar(64);not null;index" json:"ip_address"`
	GeoCountry *string   `gorm:"type:varchar(8)" json:"geo_country,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定 GORM 使用的表名
func (AccessLog) TableName() string {
	return "access_logs"
}
