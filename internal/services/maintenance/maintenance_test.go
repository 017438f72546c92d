package maintenance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/config"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/models"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/mq"
	"github.com/vinay-2006/secure-share-hub-6c914869/internal/pkg/storage"
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

type fakeStorage struct {
	removed    []string
	failObject string
}

var _ storage.StorageService = (*fakeStorage)(nil)

func (f *fakeStorage) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (storage.PutObjectResult, error) {
	return storage.PutObjectResult{}, errors.New("not implemented")
}

func (f *fakeStorage) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	if objectName == f.failObject {
		return errors.New("storage down")
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

// fakePublisher 捕获发布的告警消息
type fakePublisher struct {
	published []mq.AlertMessage
	err       error
}

func (p *fakePublisher) PublishAlert(msg mq.AlertMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func newJob(db *gorm.DB, fs *fakeStorage, pub mq.AlertPublisher) *Job {
	return NewJob(
		repositories.NewShareRepository(db),
		repositories.NewAccessLogRepository(db),
		repositories.NewAlertRepository(db),
		fs, pub, "test-bucket",
		&config.RetentionConfig{
			AccessLogDays:           90,
			RateLimitSpikeThreshold: 50,
			FailureSpikeThreshold:   100,
		},
	)
}

func seedShare(t *testing.T, db *gorm.DB, share *models.Share) {
	t.Helper()
	require.NoError(t, db.Create(share).Error)
}

func seedLog(t *testing.T, db *gorm.DB, fileID, outcome, reason string, at time.Time) {
	t.Helper()
	entry := models.AccessLog{
		FileID: fileID, Outcome: outcome, Reason: reason, IPAddress: "1.2.3.4", CreatedAt: at,
	}
	require.NoError(t, db.Create(&entry).Error)
}

func TestRunPurgesExpiredShares(t *testing.T) {
	db := newTestDB(t)
	fs := &fakeStorage{}
	job := newJob(db, fs, &fakePublisher{})
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	seedShare(t, db, &models.Share{ID: "expired", UserID: "u1", OriginalName: "a.txt",
		StoredPath: "u1/a.txt", Token: "tok-1", ExpiresAt: &past})
	seedShare(t, db, &models.Share{ID: "alive", UserID: "u1", OriginalName: "b.txt",
		StoredPath: "u1/b.txt", Token: "tok-2", ExpiresAt: &future})
	seedLog(t, db, "expired", models.OutcomeFailed, models.ReasonWrongPassword, time.Now())

	summary, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ExpiredSharesDeleted)
	assert.Equal(t, []string{"u1/a.txt"}, fs.removed)

	// 过期分享及其审计记录清除，未过期的保留
	var shareCount, logCount int64
	require.NoError(t, db.Model(&models.Share{}).Count(&shareCount).Error)
	require.NoError(t, db.Model(&models.AccessLog{}).Where("file_id = ?", "expired").Count(&logCount).Error)
	assert.EqualValues(t, 1, shareCount)
	assert.EqualValues(t, 0, logCount)
}

func TestRunKeepsShareWhenObjectRemovalFails(t *testing.T) {
	db := newTestDB(t)
	fs := &fakeStorage{failObject: "u1/a.txt"}
	job := newJob(db, fs, &fakePublisher{})

	past := time.Now().Add(-time.Hour)
	seedShare(t, db, &models.Share{ID: "expired", UserID: "u1", OriginalName: "a.txt",
		StoredPath: "u1/a.txt", Token: "tok-1", ExpiresAt: &past})

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExpiredSharesDeleted)

	// 对象删除失败的分享留给下次运行
	var count int64
	require.NoError(t, db.Model(&models.Share{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunTrimsOldLogs(t *testing.T) {
	db := newTestDB(t)
	job := newJob(db, &fakeStorage{}, &fakePublisher{})

	seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonWrongPassword, time.Now().AddDate(0, 0, -91))
	seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonWrongPassword, time.Now().AddDate(0, 0, -89))
	seedLog(t, db, "f1", models.OutcomeSuccess, models.ReasonDownloadInitiated, time.Now())

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -90), summary.RetentionCutoff, time.Minute)

	var count int64
	require.NoError(t, db.Model(&models.AccessLog{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRunEmitsAlertsOverThreshold(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	job := newJob(db, &fakeStorage{}, pub)

	// 近一小时 50 次限流，同时这 50 次也计入失败总数但未达 100
	for i := 0; i < 50; i++ {
		seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonRateLimited, time.Now().Add(-30*time.Minute))
	}

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, models.AlertRateLimitSpike, summary.Alerts[0].Type)
	assert.EqualValues(t, 50, summary.Alerts[0].Value)
	assert.EqualValues(t, 50, summary.Alerts[0].Threshold)

	// 告警同时落库和发布
	var count int64
	require.NoError(t, db.Model(&models.Alert{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.Len(t, pub.published, 1)
	assert.Equal(t, models.AlertRateLimitSpike, pub.published[0].Type)
}

func TestRunEmitsFailureSpikeAlert(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	job := newJob(db, &fakeStorage{}, pub)

	for i := 0; i < 100; i++ {
		seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonWrongPassword, time.Now().Add(-30*time.Minute))
	}

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, models.AlertFailureSpike, summary.Alerts[0].Type)
	assert.EqualValues(t, 100, summary.Alerts[0].Value)
}

func TestRunNoAlertsBelowThreshold(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	job := newJob(db, &fakeStorage{}, pub)

	for i := 0; i < 10; i++ {
		seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonWrongPassword, time.Now().Add(-30*time.Minute))
	}
	// 一小时前的失败不计入
	for i := 0; i < 200; i++ {
		seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonWrongPassword, time.Now().Add(-2*time.Hour))
	}

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Alerts)
	assert.Empty(t, pub.published)
}

func TestRunPublishFailureIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{err: errors.New("mq down")}
	job := newJob(db, &fakeStorage{}, pub)

	for i := 0; i < 50; i++ {
		seedLog(t, db, "f1", models.OutcomeFailed, models.ReasonRateLimited, time.Now().Add(-30*time.Minute))
	}

	// 发布失败不中断维护运行，告警仍然落库并计入摘要
	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Alerts, 1)

	var count int64
	require.NoError(t, db.Model(&models.Alert{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunIdempotent(t *testing.T) {
	db := newTestDB(t)
	fs := &fakeStorage{}
	job := newJob(db, fs, &fakePublisher{})
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	seedShare(t, db, &models.Share{ID: "expired", UserID: "u1", OriginalName: "a.txt",
		StoredPath: "u1/a.txt", Token: "tok-1", ExpiresAt: &past})

	first, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ExpiredSharesDeleted)

	// 第二次运行没有可清理的内容
	second, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ExpiredSharesDeleted)
	assert.Len(t, fs.removed, 1)
}
