package sharestatus

import (
	"time"

	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
)

// Status 分享记录的生命周期状态，读取时派生，从不落库
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Evaluate 根据分享记录和给定时刻计算其状态。
// 纯函数：服务端门禁和客户端展示共用同一份判定逻辑，
// 但只有服务端的调用结果允许参与访问决策。
// 撤销优先于过期判断；下载次数达到上限视为过期。
func Evaluate(share *models.Share, now time.Time) Status {
	if share.Revoked {
		return StatusRevoked
	}
	if share.ExpiresAt != nil && !share.ExpiresAt.After(now) {
		return StatusExpired
	}
	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		return StatusExpired
	}
	return StatusActive
}
