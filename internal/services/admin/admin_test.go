package admin

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/xerr"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Share{}, &models.AccessLog{}, &models.Alert{}))
	return db
}

// fakeStorage 记录删除调用顺序的存储桩
type fakeStorage struct {
	removed   []string
	removeErr error
}

var _ storage.StorageService = (*fakeStorage)(nil)

func (f *fakeStorage) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (storage.PutObjectResult, error) {
	return storage.PutObjectResult{}, errors.New("not implemented")
}

func (f *fakeStorage) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, objectName)
	return nil
}

func (f *fakeStorage) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	return true, nil
}

func (f *fakeStorage) MakeBucket(ctx context.Context, bucketName string) error {
	return nil
}

func (f *fakeStorage) PresignGetObjectURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func newMutation(db *gorm.DB, fs *fakeStorage, adminIDs ...string) (MutationService, repositories.ShareRepository) {
	shareRepo := repositories.NewShareRepository(db)
	logRepo := repositories.NewAccessLogRepository(db)
	svc := NewMutationService(NewAllowListPolicy(adminIDs), shareRepo, logRepo, fs, "test-bucket")
	return svc, shareRepo
}

func seedShare(t *testing.T, shareRepo repositories.ShareRepository, share *models.Share) {
	t.Helper()
	require.NoError(t, shareRepo.Create(context.Background(), share))
}

func TestAllowListPolicy(t *testing.T) {
	// 空名单对所有人关闭
	empty := NewAllowListPolicy(nil)
	assert.False(t, empty.IsAdmin("anyone"))

	policy := NewAllowListPolicy([]string{"admin-1", "admin-2"})
	assert.True(t, policy.IsAdmin("admin-1"))
	assert.True(t, policy.IsAdmin("admin-2"))
	assert.False(t, policy.IsAdmin("user-1"))
}

func TestApplyRejectsNonAdminUniformly(t *testing.T) {
	db := newTestDB(t)

	// 空名单与不在名单的调用者得到完全相同的错误
	emptySvc, _ := newMutation(db, &fakeStorage{})
	errEmpty := emptySvc.Apply(context.Background(), "user-1", "share-1", ActionRevoke, 0)

	listedSvc, _ := newMutation(db, &fakeStorage{}, "admin-1")
	errUnlisted := listedSvc.Apply(context.Background(), "user-1", "share-1", ActionRevoke, 0)

	assert.ErrorIs(t, errEmpty, xerr.ErrAdminNotConfigured)
	assert.ErrorIs(t, errUnlisted, xerr.ErrAdminNotConfigured)
	assert.Equal(t, errEmpty.Error(), errUnlisted.Error())
}

func TestApplyShareNotFound(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newMutation(db, &fakeStorage{}, "admin-1")

	err := svc.Apply(context.Background(), "admin-1", "missing", ActionRevoke, 0)
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
}

func TestApplyUnknownAction(t *testing.T) {
	db := newTestDB(t)
	svc, shareRepo := newMutation(db, &fakeStorage{}, "admin-1")
	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
	})

	err := svc.Apply(context.Background(), "admin-1", "share-1", "explode", 0)
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestApplyRevokeIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc, shareRepo := newMutation(db, &fakeStorage{}, "admin-1")
	ctx := context.Background()
	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
	})

	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionRevoke, 0))
	// 重复撤销是空操作
	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionRevoke, 0))

	share, err := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, err)
	assert.True(t, share.Revoked)
}

func TestApplyExtendFromFutureExpiry(t *testing.T) {
	db := newTestDB(t)
	svc, shareRepo := newMutation(db, &fakeStorage{}, "admin-1")
	ctx := context.Background()

	future := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
		ExpiresAt: &future,
	})

	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionExtend, 7))

	share, err := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, err)
	require.NotNil(t, share.ExpiresAt)
	// 从当前过期时间起顺延，不是从现在起
	expected := future.AddDate(0, 0, 7)
	assert.WithinDuration(t, expected, *share.ExpiresAt, time.Minute)
}

func TestApplyExtendFromPastExpiry(t *testing.T) {
	db := newTestDB(t)
	svc, shareRepo := newMutation(db, &fakeStorage{}, "admin-1")
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
		ExpiresAt: &past,
	})

	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionExtend, 0))

	share, err := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, err)
	require.NotNil(t, share.ExpiresAt)
	// 已过期的分享从现在起用默认7天续期，不会续出过去的时间
	expected := time.Now().AddDate(0, 0, 7)
	assert.WithinDuration(t, expected, *share.ExpiresAt, time.Minute)
}

func TestApplyResetDownloadCount(t *testing.T) {
	db := newTestDB(t)
	svc, shareRepo := newMutation(db, &fakeStorage{}, "admin-1")
	ctx := context.Background()

	max := 3
	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
		MaxDownloads: &max, DownloadCount: 3,
	})

	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionResetDownloadCount, 0))

	share, err := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, err)
	assert.Equal(t, 0, share.DownloadCount)
}

func TestApplyDelete(t *testing.T) {
	db := newTestDB(t)
	fs := &fakeStorage{}
	svc, shareRepo := newMutation(db, fs, "admin-1")
	ctx := context.Background()

	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
	})
	logRepo := repositories.NewAccessLogRepository(db)
	require.NoError(t, logRepo.Create(ctx, &models.AccessLog{
		FileID: "share-1", Outcome: models.OutcomeFailed, Reason: models.ReasonWrongPassword, IPAddress: "1.2.3.4",
	}))

	require.NoError(t, svc.Apply(ctx, "admin-1", "share-1", ActionDelete, 0))

	// 对象、审计记录、分享记录全部清除
	assert.Equal(t, []string{"u1/a.txt"}, fs.removed)

	share, err := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, err)
	assert.Nil(t, share)

	var logCount int64
	require.NoError(t, db.Model(&models.AccessLog{}).Where("file_id = ?", "share-1").Count(&logCount).Error)
	assert.EqualValues(t, 0, logCount)
}

func TestApplyDeleteKeepsRecordWhenObjectRemovalFails(t *testing.T) {
	db := newTestDB(t)
	fs := &fakeStorage{removeErr: errors.New("storage down")}
	svc, shareRepo := newMutation(db, fs, "admin-1")
	ctx := context.Background()

	seedShare(t, shareRepo, &models.Share{
		ID: "share-1", UserID: "u1", OriginalName: "a.txt", StoredPath: "u1/a.txt", Token: "tok-1",
	})

	err := svc.Apply(ctx, "admin-1", "share-1", ActionDelete, 0)
	assert.ErrorIs(t, err, xerr.ErrStorageError)

	// 对象删除失败时记录保留，可以重试
	share, findErr := shareRepo.FindByID(ctx, "share-1")
	require.NoError(t, findErr)
	assert.NotNil(t, share)
}
