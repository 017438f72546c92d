package admin

import (
	"context"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"go.uber.org/zap"
)

// 管理操作
const (
	ActionRevoke             = "revoke"
	ActionExtend             = "extend"
	ActionResetDownloadCount = "reset_download_count"
	ActionDelete             = "delete"
)

const defaultExtendDays = 7

// MutationService 定义了特权分享操作的接口
type MutationService interface {
	// Apply 执行一次管理操作；调用者必须在管理员白名单内
	Apply(ctx context.Context, adminID, fileID, action string, extendDays int) error
}

type mutationService struct {
	policy    AuthorizationPolicy
	shareRepo repositories.ShareRepository
	logRepo   repositories.AccessLogRepository
	storage   storage.StorageService
	bucket    string
}

// NewMutationService 创建管理操作服务
func NewMutationService(
	policy AuthorizationPolicy,
	shareRepo repositories.ShareRepository,
	logRepo repositories.AccessLogRepository,
	storageService storage.StorageService,
	bucket string,
) MutationService {
	return &mutationService{
		policy:    policy,
		shareRepo: shareRepo,
		logRepo:   logRepo,
		storage:   storageService,
		bucket:    bucket,
	}
}

func (s *mutationService) Apply(ctx context.Context, adminID, fileID, action string, extendDays int) error {
	if !s.policy.IsAdmin(adminID) {
		return xerr.ErrAdminNotConfigured
	}

	share, err := s.shareRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if share == nil {
		return xerr.ErrShareNotFound
	}

	switch action {
	case ActionRevoke:
		// 幂等：重复撤销是空操作，撤销不可逆
		if err := s.shareRepo.Revoke(ctx, fileID); err != nil {
			return err
		}
	case ActionExtend:
		if extendDays <= 0 {
			extendDays = defaultExtendDays
		}
		// 从 max(当前过期时间, 现在) 起向后顺延，避免"续期"出一个过去的时间
		base := time.Now()
		if share.ExpiresAt != nil && share.ExpiresAt.After(base) {
			base = *share.ExpiresAt
		}
		newExpiry := base.AddDate(0, 0, extendDays)
		if err := s.shareRepo.SetExpiresAt(ctx, fileID, newExpiry); err != nil {
			return err
		}
	case ActionResetDownloadCount:
		if err := s.shareRepo.ResetDownloadCount(ctx, fileID); err != nil {
			return err
		}
	case ActionDelete:
		// 删除顺序固定：对象 → 审计记录 → 分享记录。
		// 中途崩溃不会留下指向已删对象却无审计痕迹的记录。
		if share.StoredPath != "" {
			if err := s.storage.RemoveObject(ctx, s.bucket, share.StoredPath); err != nil {
				logger.Error("删除存储对象失败", zap.String("fileID", fileID), zap.Error(err))
				return xerr.ErrStorageError
			}
		}
		if err := s.logRepo.DeleteByFileIDs(ctx, []string{fileID}); err != nil {
			return err
		}
		if err := s.shareRepo.Delete(ctx, fileID); err != nil {
			return err
		}
	default:
		return xerr.ErrInvalidParams
	}

	logger.Info("管理操作执行成功",
		zap.String("adminID", adminID),
		zap.String("fileID", fileID),
		zap.String("action", action))
	return nil
}
