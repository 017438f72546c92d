package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/logger"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/sharestatus"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/utils"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"go.uber.org/zap"
)

// CreateShareInput 上传完成后登记分享元数据的输入
type CreateShareInput struct {
	OriginalName      string
	StoredPath        string
	Token             string
	ExpiresAt         *time.Time
	MaxDownloads      *int
	Password          string // 明文，入库前哈希；空串表示不设密码
	EncryptionEnabled bool
	EncryptionIV      string // base64，仅加密分享需要
}

// ShareView 带派生状态的分享视图，状态读取时计算、从不落库
type ShareView struct {
	Share  models.Share       `json:"share"`
	Status sharestatus.Status `json:"status"`
}

// ShareService 定义了分享元数据服务需要实现的接口
type ShareService interface {
	// CreateShare 登记一条新的分享记录
	CreateShare(ctx context.Context, userID string, input CreateShareInput) (*models.Share, error)
	// GetShareByToken 通过公开 token 获取分享详情（不含哈希），供下载页展示
	GetShareByToken(ctx context.Context, token string) (*ShareView, error)
	// ListUserShares 列出指定用户创建的所有分享
	ListUserShares(ctx context.Context, userID string, page, pageSize int) ([]ShareView, int64, error)
}

type shareService struct {
	shareRepo repositories.ShareRepository
}

// NewShareService 创建一个新的 ShareService 实例
func NewShareService(shareRepo repositories.ShareRepository) ShareService {
	return &shareService{shareRepo: shareRepo}
}

// CreateShare 处理分享元数据登记的业务逻辑
func (s *shareService) CreateShare(ctx context.Context, userID string, input CreateShareInput) (*models.Share, error) {
	if input.OriginalName == "" || input.StoredPath == "" || input.Token == "" {
		return nil, xerr.ErrInvalidParams
	}

	share := &models.Share{
		ID:                uuid.New().String(),
		UserID:            userID,
		OriginalName:      input.OriginalName,
		StoredPath:        input.StoredPath,
		Token:             input.Token,
		ExpiresAt:         input.ExpiresAt,
		MaxDownloads:      input.MaxDownloads,
		HashScheme:        models.HashSchemeNone,
		EncryptionEnabled: input.EncryptionEnabled,
	}

	// 设置了密码则用 bcrypt 哈希入库，新记录不再产生旧版摘要
	if password := strings.TrimSpace(input.Password); password != "" {
		hashed, err := utils.HashPassword(password)
		if err != nil {
			logger.Error("CreateShare: 密码哈希失败", zap.Error(err))
			return nil, err
		}
		share.PasswordHash = &hashed
		share.HashScheme = models.HashSchemeBcrypt
	}

	// IV 只在启用加密时入库，二者同生同灭
	if input.EncryptionEnabled && input.EncryptionIV != "" {
		iv := input.EncryptionIV
		share.EncryptionIV = &iv
	}

	if err := s.shareRepo.Create(ctx, share); err != nil {
		logger.Error("CreateShare: 创建分享记录失败", zap.Error(err))
		return nil, err
	}

	logger.Info("CreateShare: 分享记录创建成功",
		zap.String("shareID", share.ID),
		zap.String("token", share.Token),
		zap.String("userID", userID))
	return share, nil
}

// GetShareByToken 下载页加载时的公开查询；返回的状态仅供展示，
// 不参与任何访问决策（那是下载门禁的职责）
func (s *shareService) GetShareByToken(ctx context.Context, token string) (*ShareView, error) {
	share, err := s.shareRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, xerr.ErrShareNotFound
	}

	// 哈希不出库
	share.PasswordHash = nil
	return &ShareView{
		Share:  *share,
		Status: sharestatus.Evaluate(share, time.Now()),
	}, nil
}

// ListUserShares 获取指定用户创建的所有分享列表（分页）
func (s *shareService) ListUserShares(ctx context.Context, userID string, page, pageSize int) ([]ShareView, int64, error) {
	shares, total, err := s.shareRepo.FindAllByUserID(ctx, userID, page, pageSize)
	if err != nil {
		logger.Error("ListUserShares: 查询用户分享列表失败", zap.String("userID", userID), zap.Error(err))
		return nil, 0, err
	}

	now := time.Now()
	views := make([]ShareView, 0, len(shares))
	for i := range shares {
		shares[i].PasswordHash = nil
		views = append(views, ShareView{
			Share:  shares[i],
			Status: sharestatus.Evaluate(&shares[i], now),
		})
	}
	return views, total, nil
}
