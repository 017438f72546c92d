package gatekeeper

import (
	"context"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/sharestatus"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"go.uber.org/zap"
)

// DownloadGate 是消耗下载次数的唯一权威检查点：
// 限流、状态判定、原子计数消耗、签名URL签发和审计写入都在这里完成。
type DownloadGate struct {
	shareRepo repositories.ShareRepository
	logRepo   repositories.AccessLogRepository
	limiter   *RateLimiter
	storage   storage.StorageService
	bucket    string
	urlExpiry time.Duration
}

// NewDownloadGate 创建下载门禁
func NewDownloadGate(
	shareRepo repositories.ShareRepository,
	logRepo repositories.AccessLogRepository,
	limiter *RateLimiter,
	storageService storage.StorageService,
	bucket string,
	cfg *config.StorageConfig,
) *DownloadGate {
	return &DownloadGate{
		shareRepo: shareRepo,
		logRepo:   logRepo,
		limiter:   limiter,
		storage:   storageService,
		bucket:    bucket,
		urlExpiry: time.Duration(cfg.PresignedURLExpiry) * time.Second,
	}
}

// ValidateAndConsume 执行一次完整的下载放行判定，成功时返回签名URL。
//
// 计数消耗用乐观并发控制而不是锁：条件更新要求计数仍等于读取时的值，
// 并发请求抢先推进计数时本次请求得到冲突错误，由客户端退避重试。
// 签名URL签发失败不回滚已消耗的计数——回滚会重新引入 CAS 要避免的竞争，
// 代价是上传者偶尔损失一个下载名额，可接受。
func (g *DownloadGate) ValidateAndConsume(ctx context.Context, fileID, clientIP string, geoCountry *string) (string, error) {
	// 1. 限流（下载类别）；被拒绝的尝试本身也入审计，参与后续窗口
	decision, err := g.limiter.Check(ctx, clientIP, CategoryDownload)
	if err != nil {
		return "", err
	}
	if decision.Limited {
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonRateLimited, clientIP, geoCountry)
		return "", xerr.NewRateLimitedError(decision.RetryAfterSeconds)
	}

	// 2. 读取分享记录
	share, err := g.shareRepo.FindByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	if share == nil {
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonFileNotFound, clientIP, geoCountry)
		return "", xerr.ErrShareNotFound
	}

	// 3. 状态判定——这里的服务端判定才是权威，客户端的同名判定仅供展示
	switch sharestatus.Evaluate(share, time.Now()) {
	case sharestatus.StatusRevoked:
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonFileRevoked, clientIP, geoCountry)
		return "", xerr.ErrShareRevoked
	case sharestatus.StatusExpired:
		if share.ExpiresAt != nil && !share.ExpiresAt.After(time.Now()) {
			g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonLinkExpired, clientIP, geoCountry)
			return "", xerr.ErrShareExpired
		}
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonDownloadLimitExceeded, clientIP, geoCountry)
		return "", xerr.ErrDownloadLimit
	}

	// 4. 下载上限复核（状态判定已覆盖，这里防御性再查一次）
	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonDownloadLimitExceeded, clientIP, geoCountry)
		return "", xerr.ErrDownloadLimit
	}

	// 5. 原子消耗：仅当存储的计数仍等于上面读取的值时自增
	consumed, err := g.shareRepo.ConsumeDownload(ctx, share.ID, share.DownloadCount)
	if err != nil {
		return "", err
	}
	if !consumed {
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonConcurrentDownload, clientIP, geoCountry)
		return "", xerr.ErrDownloadConflict
	}

	// 6. 签发短时效预签名URL；失败不回滚计数
	signedURL, err := g.storage.PresignGetObjectURL(ctx, g.bucket, share.StoredPath, g.urlExpiry)
	if err != nil {
		logger.Error("签发预签名URL失败",
			zap.String("fileID", share.ID), zap.String("storedPath", share.StoredPath), zap.Error(err))
		g.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonURLGenerationFailed, clientIP, geoCountry)
		return "", xerr.ErrStorageError
	}

	// 7. 放行成功
	g.logAttempt(ctx, fileID, models.OutcomeSuccess, models.ReasonDownloadInitiated, clientIP, geoCountry)
	logger.Info("下载放行成功",
		zap.String("fileID", share.ID), zap.Int("downloadCount", share.DownloadCount+1))
	return signedURL, nil
}

func (g *DownloadGate) logAttempt(ctx context.Context, fileID, outcome, reason, clientIP string, geoCountry *string) {
	entry := &models.AccessLog{
		FileID:     fileID,
		Outcome:    outcome,
		Reason:     reason,
		IPAddress:  clientIP,
		GeoCountry: geoCountry,
	}
	if err := g.logRepo.Create(ctx, entry); err != nil {
		logger.Error("写入下载审计记录失败",
			zap.String("fileID", fileID), zap.String("reason", reason), zap.Error(err))
	}
}
