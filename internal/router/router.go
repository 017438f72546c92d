package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/handlers/response"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/middlewares"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/cache"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/geoip"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/mq"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/admin"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/gatekeeper"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/maintenance"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/services/metadata"
	"gorm.io/gorm"
)

// RouterConfig 包含初始化路由所需的所有依赖
type RouterConfig struct {
	db             *gorm.DB
	redisClient    *redis.Client
	storageService storage.StorageService
	alertPublisher mq.AlertPublisher
	cfg            *config.Config
}

func NewRouterConfig(db *gorm.DB, redisClient *redis.Client, storageService storage.StorageService, alertPublisher mq.AlertPublisher, cfg *config.Config) *RouterConfig {
	return &RouterConfig{
		db:             db,
		redisClient:    redisClient,
		storageService: storageService,
		alertPublisher: alertPublisher,
		cfg:            cfg,
	}
}

func InitRouter(routerCfg *RouterConfig) *gin.Engine {
	router := gin.Default() // 使用默认的 Gin 引擎，包含 Logger 和 Recovery 中间件

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	cfg := routerCfg.cfg
	bucket := cfg.BucketName()

	// 仓储与服务装配
	shareRepo := repositories.NewShareRepository(routerCfg.db)
	logRepo := repositories.NewAccessLogRepository(routerCfg.db)
	alertRepo := repositories.NewAlertRepository(routerCfg.db)

	cacheService := cache.NewRedisCache(routerCfg.redisClient)
	resolver := geoip.NewResolver(&cfg.GeoIP, cacheService)

	limiter := gatekeeper.NewRateLimiter(logRepo, &cfg.RateLimit)
	verifier := gatekeeper.NewCredentialVerifier(shareRepo, logRepo, limiter)
	gate := gatekeeper.NewDownloadGate(shareRepo, logRepo, limiter, routerCfg.storageService, bucket, &cfg.Storage)

	shareService := metadata.NewShareService(shareRepo)

	policy := admin.NewAllowListPolicy(cfg.Admin.UserIDs)
	mutationService := admin.NewMutationService(policy, shareRepo, logRepo, routerCfg.storageService, bucket)
	panelService := admin.NewPanelService(policy, shareRepo, logRepo)

	job := maintenance.NewJob(shareRepo, logRepo, alertRepo, routerCfg.storageService, routerCfg.alertPublisher, bucket, &cfg.Retention)

	downloadHandler := handlers.NewDownloadHandler(gate, verifier, resolver)
	shareHandler := handlers.NewShareHandler(shareService, routerCfg.storageService, cfg)
	adminHandler := handlers.NewAdminHandler(mutationService, panelService)
	maintenanceHandler := handlers.NewMaintenanceHandler(job, cfg)

	v1 := router.Group("/api/v1")
	{
		// 公开路由：下载门禁自带限流，不走认证
		v1.POST("/validate-and-download", downloadHandler.ValidateAndDownload)
		v1.POST("/verify-file-password", downloadHandler.VerifyPassword)
		v1.GET("/share-info/:token", shareHandler.GetShareByToken)

		// 需要认证的路由组
		authenticated := v1.Group("/")
		authenticated.Use(middlewares.AuthMiddleware(cfg))
		{
			authenticated.POST("/files/upload", shareHandler.UploadFile)
			authenticated.POST("/create-share-metadata", shareHandler.CreateShareMetadata)
			authenticated.GET("/shares/my", shareHandler.ListMyShares)

			authenticated.POST("/admin-panel-data", adminHandler.PanelData)
			authenticated.POST("/admin-share-action", adminHandler.ShareAction)
		}
	}

	// 运维路由：X-Ops-Key 共享密钥，不依赖用户认证
	router.POST("/ops-maintenance", maintenanceHandler.Run)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, http.StatusNotFound, "Route not found")
	})

	return router
}
