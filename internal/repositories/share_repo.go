package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"gorm.io/gorm"
)

type ShareRepository interface {
	Create(ctx context.Context, share *models.Share) error
	FindByID(ctx context.Context, id string) (*models.Share, error)
	FindByToken(ctx context.Context, token string) (*models.Share, error)
	FindAllByUserID(ctx context.Context, userID string, page, pageSize int) ([]models.Share, int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Share, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Share, error)
	// ConsumeDownload 条件自增下载计数：仅当存储的计数仍等于读取时的值。
	// 返回 false 表示并发请求已抢先消耗，调用方应按冲突处理。
	ConsumeDownload(ctx context.Context, id string, lastReadCount int) (bool, error)
	// MigratePasswordHash 将旧版摘要哈希替换为 bcrypt 哈希，
	// 条件更新保证并发迁移只有一个生效
	MigratePasswordHash(ctx context.Context, id, newHash string) error
	Revoke(ctx context.Context, id string) error
	SetExpiresAt(ctx context.Context, id string, expiresAt time.Time) error
	ResetDownloadCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository 创建新的shareRepository实例
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

// 创建新的数据库记录
func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	return r.db.WithContext(ctx).Create(share).Error
}

// 根据主键查找记录
func (r *shareRepository) FindByID(ctx context.Context, id string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享记录失败: %w", err)
	}
	return &share, nil
}

// 根据公开 token 查找记录
func (r *shareRepository) FindByToken(ctx context.Context, token string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享记录失败: %w", err)
	}
	return &share, nil
}

// 查找特定用户的所有分享记录（分页）
func (r *shareRepository) FindAllByUserID(ctx context.Context, userID string, page, pageSize int) ([]models.Share, int64, error) {
	var shares []models.Share
	var total int64

	offset := (page - 1) * pageSize
	query := r.db.WithContext(ctx).Model(&models.Share{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分享总数失败: %w", err)
	}

	err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&shares).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分享列表失败: %w", err)
	}
	return shares, total, nil
}

// ListRecent 按创建时间倒序取最近的分享记录，供管理面板聚合
func (r *shareRepository) ListRecent(ctx context.Context, limit int) ([]models.Share, error) {
	var shares []models.Share
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("查询分享列表失败: %w", err)
	}
	return shares, nil
}

// ListExpired 查找过期时间已过去的分享记录，供维护任务清理
func (r *shareRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Share, error) {
	var shares []models.Share
	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Limit(limit).
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("查询过期分享失败: %w", err)
	}
	return shares, nil
}

// ConsumeDownload 乐观并发控制的下载计数消耗。
// UPDATE ... WHERE id=? AND download_count=? 通过受影响行数判断是否有并发
// 请求已推进计数，命中 0 行即冲突，不加任何行锁。
func (r *shareRepository) ConsumeDownload(ctx context.Context, id string, lastReadCount int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("id = ? AND download_count = ?", id, lastReadCount).
		Update("download_count", lastReadCount+1)
	if result.Error != nil {
		return false, fmt.Errorf("更新下载计数失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MigratePasswordHash 旧版摘要验证成功后的哈希升级，
// 只在方案仍为 legacy-digest 时生效，重复迁移是空操作
func (r *shareRepository) MigratePasswordHash(ctx context.Context, id, newHash string) error {
	err := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("id = ? AND hash_scheme <> ?", id, models.HashSchemeBcrypt).
		Updates(map[string]any{
			"password_hash": newHash,
			"hash_scheme":   models.HashSchemeBcrypt,
		}).Error
	if err != nil {
		return fmt.Errorf("迁移密码哈希失败: %w", err)
	}
	return nil
}

// Revoke 设置撤销标记，重复调用幂等；撤销不可逆
func (r *shareRepository) Revoke(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("id = ?", id).
		Update("is_revoked", true).Error
	if err != nil {
		return fmt.Errorf("撤销分享失败: %w", err)
	}
	return nil
}

// SetExpiresAt 更新过期时间
func (r *shareRepository) SetExpiresAt(ctx context.Context, id string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt).Error
	if err != nil {
		return fmt.Errorf("更新过期时间失败: %w", err)
	}
	return nil
}

// ResetDownloadCount 管理员重置下载计数
func (r *shareRepository) ResetDownloadCount(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("id = ?", id).
		Update("download_count", 0).Error
	if err != nil {
		return fmt.Errorf("重置下载计数失败: %w", err)
	}
	return nil
}

// Delete 物理删除分享记录
func (r *shareRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Share{}).Error
	if err != nil {
		return fmt.Errorf("删除分享记录失败: %w", err)
	}
	return nil
}
