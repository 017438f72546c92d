package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"gorm.io/gorm"
)

func seedPanelData(t *testing.T, db *gorm.DB) {
	t.Helper()
	shareRepo := repositories.NewShareRepository(db)
	logRepo := repositories.NewAccessLogRepository(db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	hash := "secret-hash"

	shares := []*models.Share{
		{ID: "s1", UserID: "alice", OriginalName: "report.pdf", StoredPath: "alice/report.pdf",
			Token: "tok-active", DownloadCount: 3, PasswordHash: &hash, HashScheme: models.HashSchemeBcrypt},
		{ID: "s2", UserID: "alice", OriginalName: "old.zip", StoredPath: "alice/old.zip",
			Token: "tok-expired", ExpiresAt: &past, DownloadCount: 1},
		{ID: "s3", UserID: "bob", OriginalName: "gone.txt", StoredPath: "bob/gone.txt",
			Token: "tok-revoked", Revoked: true},
	}
	for _, s := range shares {
		require.NoError(t, shareRepo.Create(ctx, s))
	}

	logs := []*models.AccessLog{
		{FileID: "s1", Outcome: models.OutcomeSuccess, Reason: models.ReasonDownloadInitiated, IPAddress: "1.1.1.1"},
		{FileID: "s1", Outcome: models.OutcomeFailed, Reason: models.ReasonWrongPassword, IPAddress: "2.2.2.2"},
		{FileID: "s2", Outcome: models.OutcomeFailed, Reason: models.ReasonRateLimited, IPAddress: "2.2.2.2"},
		{FileID: "orphan", Outcome: models.OutcomeFailed, Reason: models.ReasonFileNotFound, IPAddress: "3.3.3.3"},
	}
	for _, l := range logs {
		require.NoError(t, logRepo.Create(ctx, l))
	}
}

func newPanel(db *gorm.DB, adminIDs ...string) PanelService {
	return NewPanelService(NewAllowListPolicy(adminIDs),
		repositories.NewShareRepository(db), repositories.NewAccessLogRepository(db))
}

func TestPanelDataRejectsNonAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newPanel(db, "admin-1")

	_, err := svc.PanelData(context.Background(), "user-1", PanelFilter{})
	assert.ErrorIs(t, err, xerr.ErrAdminNotConfigured)
}

func TestPanelDataMetrics(t *testing.T) {
	db := newTestDB(t)
	seedPanelData(t, db)
	svc := newPanel(db, "admin-1")

	data, err := svc.PanelData(context.Background(), "admin-1", PanelFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, data.Metrics.TotalUsers)
	assert.Equal(t, 3, data.Metrics.TotalFiles)
	assert.EqualValues(t, 4, data.Metrics.TotalDownloads)
	assert.Equal(t, 3, data.Metrics.FailedAttempts)
	assert.Equal(t, 1, data.Metrics.RateLimitedAttempts)
	assert.Equal(t, 1, data.Metrics.ActiveShares)
	assert.Equal(t, 1, data.Metrics.ExpiredLinks)
	assert.Equal(t, 1, data.Metrics.RevokedLinks)

	// 哈希不出库
	for _, share := range data.Shares {
		assert.Nil(t, share.PasswordHash)
	}
}

func TestPanelDataEnrichesLogs(t *testing.T) {
	db := newTestDB(t)
	seedPanelData(t, db)
	svc := newPanel(db, "admin-1")

	data, err := svc.PanelData(context.Background(), "admin-1", PanelFilter{})
	require.NoError(t, err)
	require.Len(t, data.Logs, 4)

	byFileID := make(map[string]PanelLogEntry)
	for _, entry := range data.Logs {
		byFileID[entry.FileID] = entry
	}

	assert.Equal(t, "tok-active", byFileID["s1"].Token)
	assert.Equal(t, "alice", byFileID["s1"].UserID)
	assert.Equal(t, "report.pdf", byFileID["s1"].OriginalName)

	// 找不到对应分享的日志文件名回退为 Unknown
	assert.Equal(t, "Unknown", byFileID["orphan"].OriginalName)
}

func TestPanelDataFilters(t *testing.T) {
	db := newTestDB(t)
	seedPanelData(t, db)
	svc := newPanel(db, "admin-1")
	ctx := context.Background()

	// token 过滤大小写无关、子串匹配
	data, err := svc.PanelData(ctx, "admin-1", PanelFilter{Token: "TOK-ACTIVE"})
	require.NoError(t, err)
	require.Len(t, data.Shares, 1)
	assert.Equal(t, "s1", data.Shares[0].ID)
	for _, entry := range data.Logs {
		assert.Equal(t, "s1", entry.FileID)
	}

	// IP 过滤只作用于日志
	data, err = svc.PanelData(ctx, "admin-1", PanelFilter{IP: "2.2.2.2"})
	require.NoError(t, err)
	assert.Len(t, data.Logs, 2)

	// 原因码过滤
	data, err = svc.PanelData(ctx, "admin-1", PanelFilter{Reason: models.ReasonRateLimited})
	require.NoError(t, err)
	require.Len(t, data.Logs, 1)
	assert.Equal(t, "s2", data.Logs[0].FileID)
}
