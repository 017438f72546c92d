package admin

import (
	"context"
	"strings"
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/sharestatus"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
)

// 面板聚合的取数上限，与日志/分享的"最近N条"窗口一致
const (
	panelShareLimit = 200
	panelLogLimit   = 500
)

// PanelFilter 管理面板的过滤条件，空串表示不过滤
type PanelFilter struct {
	Token  string
	UserID string
	IP     string
	Reason string
}

// PanelMetrics 管理面板头部的聚合指标
type PanelMetrics struct {
	TotalUsers          int   `json:"totalUsers"`
	TotalFiles          int   `json:"totalFiles"`
	TotalDownloads      int64 `json:"totalDownloads"`
	FailedAttempts      int   `json:"failedAttempts"`
	RateLimitedAttempts int   `json:"rateLimitedAttempts"`
	ActiveShares        int   `json:"activeShares"`
	ExpiredLinks        int   `json:"expiredLinks"`
	RevokedLinks        int   `json:"revokedLinks"`
}

// PanelLogEntry 审计记录补充上分享的 token/属主/文件名后的视图
type PanelLogEntry struct {
	models.AccessLog
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	OriginalName string `json:"original_name"`
}

// PanelData 管理面板一次取数的完整结果
type PanelData struct {
	Metrics PanelMetrics    `json:"metrics"`
	Shares  []models.Share  `json:"files"`
	Logs    []PanelLogEntry `json:"logs"`
}

// PanelService 管理面板数据聚合服务
type PanelService interface {
	PanelData(ctx context.Context, adminID string, filter PanelFilter) (*PanelData, error)
}

type panelService struct {
	policy    AuthorizationPolicy
	shareRepo repositories.ShareRepository
	logRepo   repositories.AccessLogRepository
}

// NewPanelService 创建管理面板服务
func NewPanelService(policy AuthorizationPolicy, shareRepo repositories.ShareRepository, logRepo repositories.AccessLogRepository) PanelService {
	return &panelService{
		policy:    policy,
		shareRepo: shareRepo,
		logRepo:   logRepo,
	}
}

func (s *panelService) PanelData(ctx context.Context, adminID string, filter PanelFilter) (*PanelData, error) {
	if !s.policy.IsAdmin(adminID) {
		return nil, xerr.ErrAdminNotConfigured
	}

	shares, err := s.shareRepo.ListRecent(ctx, panelShareLimit)
	if err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListRecent(ctx, panelLogLimit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	metrics := PanelMetrics{TotalFiles: len(shares)}

	users := make(map[string]struct{})
	tokenByID := make(map[string]string, len(shares))
	userByID := make(map[string]string, len(shares))
	nameByID := make(map[string]string, len(shares))

	for i := range shares {
		share := &shares[i]
		users[share.UserID] = struct{}{}
		tokenByID[share.ID] = share.Token
		userByID[share.ID] = share.UserID
		nameByID[share.ID] = share.OriginalName
		metrics.TotalDownloads += int64(share.DownloadCount)

		switch sharestatus.Evaluate(share, now) {
		case sharestatus.StatusActive:
			metrics.ActiveShares++
		case sharestatus.StatusExpired:
			metrics.ExpiredLinks++
		case sharestatus.StatusRevoked:
			metrics.RevokedLinks++
		}
	}
	metrics.TotalUsers = len(users)

	enriched := make([]PanelLogEntry, 0, len(logs))
	for _, entry := range logs {
		if entry.Outcome == models.OutcomeFailed {
			metrics.FailedAttempts++
		}
		if entry.Reason == models.ReasonRateLimited || entry.Reason == models.ReasonPasswordRateLimited {
			metrics.RateLimitedAttempts++
		}
		name := nameByID[entry.FileID]
		if name == "" {
			name = "Unknown"
		}
		enriched = append(enriched, PanelLogEntry{
			AccessLog:    entry,
			Token:        tokenByID[entry.FileID],
			UserID:       userByID[entry.FileID],
			OriginalName: name,
		})
	}

	filteredShares := make([]models.Share, 0, len(shares))
	for i := range shares {
		share := shares[i]
		if matchesFold(share.Token, filter.Token) && matchesFold(share.UserID, filter.UserID) {
			share.PasswordHash = nil
			filteredShares = append(filteredShares, share)
		}
	}

	filteredLogs := make([]PanelLogEntry, 0, len(enriched))
	for _, entry := range enriched {
		if matchesFold(entry.Token, filter.Token) &&
			matchesFold(entry.UserID, filter.UserID) &&
			matchesFold(entry.IPAddress, filter.IP) &&
			matchesFold(entry.Reason, filter.Reason) {
			filteredLogs = append(filteredLogs, entry)
		}
	}

	return &PanelData{
		Metrics: metrics,
		Shares:  filteredShares,
		Logs:    filteredLogs,
	}, nil
}

// matchesFold 空过滤条件匹配一切，否则做大小写无关的子串匹配
func matchesFold(value, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}
