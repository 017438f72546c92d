package gatekeeper

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Share{}, &models.AccessLog{}, &models.Alert{}))
	return db
}

func newTestLimiter(logRepo repositories.AccessLogRepository) *RateLimiter {
	return NewRateLimiter(logRepo, &config.RateLimitConfig{
		Window:            10 * time.Minute,
		MaxFailedAttempts: 5,
	})
}

// seedFailure 回填一条指定时间的失败记录
func seedFailure(t *testing.T, db *gorm.DB, ip, reason string, at time.Time) {
	t.Helper()
	entry := models.AccessLog{
		FileID:    "file-1",
		Outcome:   models.OutcomeFailed,
		Reason:    reason,
		IPAddress: ip,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(&entry).Error)
}

// fakeStorage 内存存储桩，记录删除过的对象并可注入签名失败
type fakeStorage struct {
	presignErr error
	presigned  []string
	removed    []string
	removeErr  error
}

var _ storage.StorageService = (*fakeStorage)(nil)

func (f *fakeStorage) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (storage.PutObjectResult, error) {
	return storage.PutObjectResult{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
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
	if f.presignErr != nil {
		return "", f.presignErr
	}
	url := fmt.Sprintf("https://storage.example.com/%s/%s?sig=test", bucketName, objectName)
	f.presigned = append(f.presigned, url)
	return url, nil
}
