package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"gorm.io/gorm"
)

type AccessLogRepository interface {
	// Create 追加一条审计记录；记录一旦写入永不更新
	Create(ctx context.Context, entry *models.AccessLog) error
	// FindFailedSince 按时间升序返回某 IP 在窗口内、原因码属于给定集合的
	// 失败记录，最多 limit 条，供滑动窗口限流判定
	FindFailedSince(ctx context.Context, ip string, reasons []string, since time.Time, limit int) ([]models.AccessLog, error)
	ListRecent(ctx context.Context, limit int) ([]models.AccessLog, error)
	CountFailedSince(ctx context.Context, since time.Time) (int64, error)
	CountByReasonsSince(ctx context.Context, reasons []string, since time.Time) (int64, error)
	DeleteByFileIDs(ctx context.Context, fileIDs []string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

type accessLogRepository struct {
	db *gorm.DB
}

// NewAccessLogRepository 创建新的accessLogRepository实例
func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

func (r *accessLogRepository) Create(ctx context.Context, entry *models.AccessLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

func (r *accessLogRepository) FindFailedSince(ctx context.Context, ip string, reasons []string, since time.Time, limit int) ([]models.AccessLog, error) {
	var entries []models.AccessLog
	err := r.db.WithContext(ctx).
		Where("status = ? AND ip_address = ? AND reason IN ? AND created_at >= ?",
			models.OutcomeFailed, ip, reasons, since).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询失败记录失败: %w", err)
	}
	return entries, nil
}

// ListRecent 按时间倒序取最近的审计记录，供管理面板聚合
func (r *accessLogRepository) ListRecent(ctx context.Context, limit int) ([]models.AccessLog, error) {
	var entries []models.AccessLog
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return entries, nil
}

func (r *accessLogRepository) CountFailedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccessLog{}).
		Where("status = ? AND created_at >= ?", models.OutcomeFailed, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计失败记录失败: %w", err)
	}
	return count, nil
}

func (r *accessLogRepository) CountByReasonsSince(ctx context.Context, reasons []string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccessLog{}).
		Where("reason IN ? AND created_at >= ?", reasons, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计审计记录失败: %w", err)
	}
	return count, nil
}

// DeleteByFileIDs 删除引用给定分享记录的全部审计记录，
// 维护任务在删除分享记录之前调用
func (r *accessLogRepository) DeleteByFileIDs(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("file_id IN ?", fileIDs).Delete(&models.AccessLog{}).Error
	if err != nil {
		return fmt.Errorf("删除审计记录失败: %w", err)
	}
	return nil
}

// DeleteOlderThan 按保留期裁剪审计日志，与分享记录是否存活无关
func (r *accessLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AccessLog{}).Error
	if err != nil {
		return fmt.Errorf("清理过期审计记录失败: %w", err)
	}
	return nil
}
