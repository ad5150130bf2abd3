package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yabtel/telemetria/internal/config"
	"github.com/yabtel/telemetria/internal/cv"
	"github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/repository"
)

type fakeUpstream struct {
	loginErr error
	records  []domain.RawEventPayload
	calls    int
}

func (f *fakeUpstream) Login(ctx context.Context) (cv.Session, error) {
	if f.loginErr != nil {
		return cv.Session{}, f.loginErr
	}
	return cv.Session{ID: "test-session"}, nil
}

// ListTelemetryRecords serves f.records newest-first, like the platform.
func (f *fakeUpstream) ListTelemetryRecords(ctx context.Context, sess cv.Session, offset, limit int) ([]domain.RawEventPayload, error) {
	f.calls++
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[offset:end], nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TelemetryEvent{}))
	return db
}

func newTestService(t *testing.T, upstream Upstream) (domain.Service, repository.Repository[domain.TelemetryEvent]) {
	t.Helper()
	db := newTestDB(t)
	events := repository.ProvideStore[domain.TelemetryEvent](db)
	svc := New(ServiceParam{
		Log:      zap.NewNop(),
		DB:       db,
		Config:   config.Config{CVPageLimit: 2},
		Upstream: upstream,
		Events:   events,
	})
	return svc, events
}

func payload(recordID int64, actionID int, timestamp string) domain.RawEventPayload {
	return domain.RawEventPayload{
		RecordID:  &recordID,
		ActionID:  &actionID,
		Timestamp: timestamp,
	}
}

func TestFetchAndStoreEmptyStoreFetchesEverything(t *testing.T) {
	upstream := &fakeUpstream{records: []domain.RawEventPayload{
		payload(5, domain.ActionOTTEnd, "2026-01-10 19:30:00"),
		payload(4, domain.ActionOTTStart, "2026-01-10 19:00:00"),
		payload(3, domain.ActionDVBEnd, "2026-01-10 08:00:00"),
		payload(2, domain.ActionDVBStart, "2026-01-10 07:00:00"),
		payload(1, domain.ActionOTTStart, "2026-01-09 23:00:00"),
	}}
	svc, events := newTestService(t, upstream)

	result, err := svc.FetchAndStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Accepted)
	assert.Equal(t, 0, result.Invalid)

	count, err := events.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestFetchAndStoreIncrementalStopsAtWatermark(t *testing.T) {
	upstream := &fakeUpstream{records: []domain.RawEventPayload{
		payload(10, domain.ActionOTTEnd, "2026-01-11 10:00:00"),
		payload(9, domain.ActionOTTStart, "2026-01-11 09:00:00"),
		payload(8, domain.ActionDVBEnd, "2026-01-11 08:00:00"),
		payload(7, domain.ActionDVBStart, "2026-01-11 07:00:00"),
	}}
	svc, events := newTestService(t, upstream)

	// Seed the store so record 8 is the highest known record.
	seed, err := payload(8, domain.ActionDVBEnd, "2026-01-11 08:00:00").ToEvent()
	require.NoError(t, err)
	require.NoError(t, events.Create(context.Background(), &seed))

	result, err := svc.FetchAndStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)

	max, err := svc.MaxRecordID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), max)

	// Record 7 sits below the watermark and must not have been stored.
	older, err := events.Count(context.Background(), repository.Where("record_id = ?", 7))
	require.NoError(t, err)
	assert.Equal(t, int64(0), older)
}

func TestFetchAndStoreNothingNew(t *testing.T) {
	upstream := &fakeUpstream{records: []domain.RawEventPayload{
		payload(3, domain.ActionOTTEnd, "2026-01-11 10:00:00"),
	}}
	svc, events := newTestService(t, upstream)

	seed, err := payload(3, domain.ActionOTTEnd, "2026-01-11 10:00:00").ToEvent()
	require.NoError(t, err)
	require.NoError(t, events.Create(context.Background(), &seed))

	result, err := svc.FetchAndStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no new records", result.Message)
	assert.Equal(t, 0, result.Accepted)
}

func TestFetchAndStoreKeepsRecordsWithBadTimestamps(t *testing.T) {
	upstream := &fakeUpstream{records: []domain.RawEventPayload{
		payload(2, domain.ActionOTTStart, "not a timestamp"),
		payload(1, domain.ActionOTTStart, "2026-01-09 23:00:00"),
	}}
	svc, events := newTestService(t, upstream)

	result, err := svc.FetchAndStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 0, result.Invalid)

	stored, err := events.FindOne(context.Background(), repository.Where("record_id = ?", 2))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.DataDate)
	assert.Nil(t, stored.TimeDate)
}

func TestFetchAndStoreDropsRecordsWithoutIdentity(t *testing.T) {
	actionID := domain.ActionOTTStart
	upstream := &fakeUpstream{records: []domain.RawEventPayload{
		{ActionID: &actionID, Timestamp: "2026-01-09 23:00:00"},
		payload(1, domain.ActionOTTStart, "2026-01-09 23:00:00"),
	}}
	svc, _ := newTestService(t, upstream)

	result, err := svc.FetchAndStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Invalid)
}

func TestIntakeBatch(t *testing.T) {
	svc, events := newTestService(t, &fakeUpstream{})

	result, err := svc.IntakeBatch(context.Background(), []domain.RawEventPayload{
		payload(1, domain.ActionVODStart, "2026-02-01 14:00:00"),
		payload(2, domain.ActionVODStop, "2026-02-01 14:30:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, "data processed successfully", result.Message)

	stored, err := events.FindOne(context.Background(), repository.Where("record_id = ?", 1))
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.TimeDate)
	assert.Equal(t, 14, *stored.TimeDate)
}

func TestIntakeBatchRejectsKnownRecords(t *testing.T) {
	svc, _ := newTestService(t, &fakeUpstream{})

	_, err := svc.IntakeBatch(context.Background(), []domain.RawEventPayload{
		payload(1, domain.ActionVODStart, "2026-02-01 14:00:00"),
	})
	require.NoError(t, err)

	// A second batch containing any known record is rejected wholesale,
	// even though record 2 is new.
	_, err = svc.IntakeBatch(context.Background(), []domain.RawEventPayload{
		payload(1, domain.ActionVODStart, "2026-02-01 14:00:00"),
		payload(2, domain.ActionVODStop, "2026-02-01 14:30:00"),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateBatch)
}

func TestMaxRecordIDEmptyStore(t *testing.T) {
	svc, _ := newTestService(t, &fakeUpstream{})

	_, err := svc.MaxRecordID(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyStore)
}
