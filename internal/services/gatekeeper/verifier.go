package gatekeeper

import (
	"context"
	"fmt"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/utils"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"go.uber.org/zap"
)

// CredentialVerifier 校验分享密码，并在旧版摘要验证成功时
// 透明地把哈希迁移到 bcrypt
type CredentialVerifier struct {
	shareRepo repositories.ShareRepository
	logRepo   repositories.AccessLogRepository
	limiter   *RateLimiter
}

// NewCredentialVerifier 创建密码校验器
func NewCredentialVerifier(shareRepo repositories.ShareRepository, logRepo repositories.AccessLogRepository, limiter *RateLimiter) *CredentialVerifier {
	return &CredentialVerifier{
		shareRepo: shareRepo,
		logRepo:   logRepo,
		limiter:   limiter,
	}
}

// Verify 校验提供的密码。
// 未设密码的分享任何请求都有效；校验失败写入 wrong_password 审计记录；
// 未受保护分享的成功校验不写审计（后续下载尝试才记录）。
func (v *CredentialVerifier) Verify(ctx context.Context, fileID, password, clientIP string, geoCountry *string) (bool, error) {
	// 每次调用先过限流器（密码类别）
	decision, err := v.limiter.Check(ctx, clientIP, CategoryPassword)
	if err != nil {
		return false, err
	}
	if decision.Limited {
		v.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonPasswordRateLimited, clientIP, geoCountry)
		return false, xerr.NewRateLimitedError(decision.RetryAfterSeconds)
	}

	share, err := v.shareRepo.FindByID(ctx, fileID)
	if err != nil {
		return false, err
	}
	if share == nil {
		return false, xerr.ErrShareNotFound
	}

	// 分享未设密码：任何请求（包括空密码）都有效
	if !share.Protected() {
		return true, nil
	}

	valid := false
	switch share.HashScheme {
	case models.HashSchemeBcrypt:
		valid = utils.CheckPasswordHash(password, *share.PasswordHash)
	default:
		// legacy-digest（含早期未写方案列的存量记录）：
		// 常数时间比较摘要，成功后立即迁移到 bcrypt
		valid = utils.ConstantTimeEquals(utils.LegacyDigest(password), *share.PasswordHash)
		if valid {
			if err := v.migrate(ctx, share, password); err != nil {
				// 迁移失败不推翻已经成立的校验结果，下次成功时重试
				logger.Error("密码哈希迁移失败", zap.String("fileID", share.ID), zap.Error(err))
			}
		}
	}

	if !valid {
		v.logAttempt(ctx, fileID, models.OutcomeFailed, models.ReasonWrongPassword, clientIP, geoCountry)
	}
	return valid, nil
}

// migrate 旧版摘要验证成功后的哈希升级，只发生在成功路径上
func (v *CredentialVerifier) migrate(ctx context.Context, share *models.Share, password string) error {
	newHash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("生成 bcrypt 哈希失败: %w", err)
	}
	if err := v.shareRepo.MigratePasswordHash(ctx, share.ID, newHash); err != nil {
		return err
	}
	logger.Info("密码哈希已迁移到 bcrypt", zap.String("fileID", share.ID))
	return nil
}

func (v *CredentialVerifier) logAttempt(ctx context.Context, fileID, outcome, reason, clientIP string, geoCountry *string) {
	entry := &models.AccessLog{
		FileID:     fileID,
		Outcome:    outcome,
		Reason:     reason,
		IPAddress:  clientIP,
		GeoCountry: geoCountry,
	}
	if err := v.logRepo.Create(ctx, entry); err != nil {
		logger.Error("写入密码校验审计记录失败",
			zap.String("fileID", fileID), zap.String("reason", reason), zap.Error(err))
	}
}
