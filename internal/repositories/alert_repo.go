package repositories

import (
	"context"
	"fmt"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"gorm.io/gorm"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建新的alertRepository实例
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("写入告警记录失败: %w", err)
	}
	return nil
}
