package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/mq"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"go.uber.org/zap"
)

// 单次清扫处理的过期分享上限；剩余部分留给下一次运行，
// 任务因此可以安全地与自身并发
const expiredBatchLimit = 500

// AlertItem 阈值告警条目
type AlertItem struct {
	Type      string `json:"type"`
	Value     int64  `json:"value"`
	Threshold int64  `json:"threshold"`
	Message   string `json:"message"`
}

// Summary 一次维护运行的结果摘要
type Summary struct {
	ExpiredSharesDeleted int         `json:"expiredFilesDeleted"`
	RetentionCutoff      time.Time   `json:"retentionCutoff"`
	Alerts               []AlertItem `json:"alerts"`
	Warnings             []string    `json:"warnings"`
}

// Job 保留与告警任务：清理过期分享和超龄审计日志，
// 统计近一小时的限流/失败并在超过阈值时发出告警。幂等。
type Job struct {
	shareRepo repositories.ShareRepository
	logRepo   repositories.AccessLogRepository
	alertRepo repositories.AlertRepository
	storage   storage.StorageService
	publisher mq.AlertPublisher
	bucket    string
	cfg       *config.RetentionConfig
}

// NewJob 创建维护任务
func NewJob(
	shareRepo repositories.ShareRepository,
	logRepo repositories.AccessLogRepository,
	alertRepo repositories.AlertRepository,
	storageService storage.StorageService,
	publisher mq.AlertPublisher,
	bucket string,
	cfg *config.RetentionConfig,
) *Job {
	return &Job{
		shareRepo: shareRepo,
		logRepo:   logRepo,
		alertRepo: alertRepo,
		storage:   storageService,
		publisher: publisher,
		bucket:    bucket,
		cfg:       cfg,
	}
}

// Run 按固定顺序执行一次维护：过期分享清理 → 日志保留裁剪 → 阈值告警。
// 每一步都作用于有界、可重查的集合，半途失败由下一次运行补完。
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	now := time.Now()
	summary := &Summary{
		RetentionCutoff: now.AddDate(0, 0, -j.cfg.AccessLogDays),
		Alerts:          []AlertItem{},
		Warnings:        []string{},
	}

	// 1. 清理过期分享：对象 → 审计记录 → 记录本身
	deleted, err := j.purgeExpiredShares(ctx, now)
	if err != nil {
		return nil, err
	}
	summary.ExpiredSharesDeleted = deleted

	// 2. 按保留期裁剪审计日志，与分享是否存活无关
	if err := j.logRepo.DeleteOlderThan(ctx, summary.RetentionCutoff); err != nil {
		return nil, err
	}

	// 3. 近一小时指标；统计失败降级为警告，不中断运行
	oneHourAgo := now.Add(-time.Hour)

	rateLimited, err := j.logRepo.CountByReasonsSince(ctx,
		[]string{models.ReasonRateLimited, models.ReasonPasswordRateLimited}, oneHourAgo)
	if err != nil {
		logger.Warn("统计限流次数失败", zap.Error(err))
		summary.Warnings = append(summary.Warnings, "rate_limited_count_unavailable")
		rateLimited = 0
	}

	failed, err := j.logRepo.CountFailedSince(ctx, oneHourAgo)
	if err != nil {
		logger.Warn("统计失败次数失败", zap.Error(err))
		summary.Warnings = append(summary.Warnings, "failed_count_unavailable")
		failed = 0
	}

	// 4. 阈值告警
	if rateLimited >= int64(j.cfg.RateLimitSpikeThreshold) {
		summary.Alerts = append(summary.Alerts, j.emitAlert(ctx, AlertItem{
			Type:      models.AlertRateLimitSpike,
			Value:     rateLimited,
			Threshold: int64(j.cfg.RateLimitSpikeThreshold),
			Message:   "Rate-limited attempts exceeded threshold in last hour",
		}))
	}
	if failed >= int64(j.cfg.FailureSpikeThreshold) {
		summary.Alerts = append(summary.Alerts, j.emitAlert(ctx, AlertItem{
			Type:      models.AlertFailureSpike,
			Value:     failed,
			Threshold: int64(j.cfg.FailureSpikeThreshold),
			Message:   "Failed attempts exceeded threshold in last hour",
		}))
	}

	logger.Info("维护任务完成",
		zap.Int("expiredSharesDeleted", summary.ExpiredSharesDeleted),
		zap.Time("retentionCutoff", summary.RetentionCutoff),
		zap.Int("alerts", len(summary.Alerts)))
	return summary, nil
}

func (j *Job) purgeExpiredShares(ctx context.Context, now time.Time) (int, error) {
	expired, err := j.shareRepo.ListExpired(ctx, now, expiredBatchLimit)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, share := range expired {
		if share.StoredPath != "" {
			if err := j.storage.RemoveObject(ctx, j.bucket, share.StoredPath); err != nil {
				// 对象删除失败时保留记录，下次运行重试
				logger.Error("删除过期分享对象失败",
					zap.String("fileID", share.ID), zap.String("storedPath", share.StoredPath), zap.Error(err))
				continue
			}
		}
		ids = append(ids, share.ID)
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := j.logRepo.DeleteByFileIDs(ctx, ids); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := j.shareRepo.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("删除过期分享记录失败: %w", err)
		}
	}
	return len(ids), nil
}

// emitAlert 告警落库并发布到告警队列；两者任一失败只记日志，
// 告警条目仍计入运行摘要
func (j *Job) emitAlert(ctx context.Context, item AlertItem) AlertItem {
	record := &models.Alert{
		Type:      item.Type,
		Value:     item.Value,
		Threshold: item.Threshold,
		Message:   item.Message,
	}
	if err := j.alertRepo.Create(ctx, record); err != nil {
		logger.Error("写入告警记录失败", zap.String("type", item.Type), zap.Error(err))
	}

	if j.publisher != nil {
		msg := mq.AlertMessage{
			Type:      item.Type,
			Value:     item.Value,
			Threshold: item.Threshold,
			Message:   item.Message,
			EmittedAt: time.Now(),
		}
		if err := j.publisher.PublishAlert(msg); err != nil {
			logger.Error("发布告警消息失败", zap.String("type", item.Type), zap.Error(err))
		}
	}
	return item
}
