package models

import (
	"time"
)

// 告警类型
const (
	AlertRateLimitSpike = "rate_limit_spike"
	AlertFailureSpike   = "failure_spike"
)

// Alert 对应 alerts 表，由维护任务在指标超过阈值时写入
type Alert struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Value     int64     `gorm:"not null" json:"value"`
	Threshold int64     `gorm:"not null" json:"threshold"`
	Message   string    `gorm:"type:varchar(255);not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定 GORM 使用的表名
func (Alert) TableName() string {
	return "alerts"
}
