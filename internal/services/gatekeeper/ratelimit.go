package gatekeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
)

// Category 限流类别。下载验证和密码验证各自独立计数，
// 同一 IP 的密码失败潮不影响其下载尝试，反之亦然。
type Category string

const (
	CategoryDownload Category = "download"
	CategoryPassword Category = "password"
)

// reasonsFor 类别关联的原因码集合，窗口查询只统计这些原因
func reasonsFor(category Category) []string {
	if category == CategoryPassword {
		return models.PasswordReasons
	}
	return models.DownloadReasons
}

// LimitDecision 限流判定结果
type LimitDecision struct {
	Limited           bool
	RetryAfterSeconds int
}

// RateLimiter 基于审计日志的滑动窗口限流器。
// 没有独立的计数存储：被拒绝的尝试本身也以失败记录入库，
// 参与后续窗口计算，限流是自增强的。
type RateLimiter struct {
	logRepo           repositories.AccessLogRepository
	window            time.Duration
	maxFailedAttempts int
}

// NewRateLimiter 创建滑动窗口限流器
func NewRateLimiter(logRepo repositories.AccessLogRepository, cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		logRepo:           logRepo,
		window:            cfg.Window,
		maxFailedAttempts: cfg.MaxFailedAttempts,
	}
}

// Check 判定某 IP 在给定类别下是否应被限流。
// 窗口内该类别失败记录已达阈值时，下一次尝试被拒绝
// （第5次失败本身不触发限流，第6次尝试才被拒）。
func (l *RateLimiter) Check(ctx context.Context, ip string, category Category) (LimitDecision, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)

	entries, err := l.logRepo.FindFailedSince(ctx, ip, reasonsFor(category), windowStart, l.maxFailedAttempts)
	if err != nil {
		return LimitDecision{}, fmt.Errorf("限流窗口查询失败: %w", err)
	}

	if len(entries) < l.maxFailedAttempts {
		return LimitDecision{}, nil
	}

	return LimitDecision{
		Limited:           true,
		RetryAfterSeconds: l.retryAfterSeconds(entries[0].CreatedAt, now),
	}, nil
}

// retryAfterSeconds 由窗口内最早一条失败记录推算剩余等待时间，下限1秒
func (l *RateLimiter) retryAfterSeconds(oldestFailureAt, now time.Time) int {
	elapsed := now.Sub(oldestFailureAt)
	remaining := l.window - elapsed
	if remaining < time.Second {
		remaining = time.Second
	}
	return int((remaining + time.Second - 1) / time.Second)
}
