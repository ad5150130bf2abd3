package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yabtel/telemetria/internal/clock"
	mergedomain "github.com/yabtel/telemetria/internal/merge/domain"
	telemetrydomain "github.com/yabtel/telemetria/internal/telemetry/domain"
)

type fakeTelemetrySvc struct {
	fetchCalls int
	fetchErr   error
}

func (f *fakeTelemetrySvc) FetchAndStore(ctx context.Context) (telemetrydomain.IngestResult, error) {
	f.fetchCalls++
	return telemetrydomain.IngestResult{Accepted: 3}, f.fetchErr
}

func (f *fakeTelemetrySvc) IntakeBatch(ctx context.Context, batch []telemetrydomain.RawEventPayload) (telemetrydomain.IntakeResult, error) {
	return telemetrydomain.IntakeResult{}, nil
}

func (f *fakeTelemetrySvc) MaxRecordID(ctx context.Context) (int64, error) {
	return 0, telemetrydomain.ErrEmptyStore
}

type fakeMergeSvc struct {
	runs    []mergedomain.Type
	runErrs map[mergedomain.Type]error
}

func (f *fakeMergeSvc) Run(ctx context.Context, mergeType mergedomain.Type) (mergedomain.Result, error) {
	f.runs = append(f.runs, mergeType)
	if err := f.runErrs[mergeType]; err != nil {
		return mergedomain.Result{}, err
	}
	return mergedomain.Result{Type: mergeType, Message: "no new records"}, nil
}

func (f *fakeMergeSvc) RunAll(ctx context.Context) ([]mergedomain.Result, error) {
	return nil, nil
}

func (f *fakeMergeSvc) List(ctx context.Context, mergeType mergedomain.Type) (any, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, telemetrySvc telemetrydomain.Service, mergeSvc mergedomain.Service, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	sched, err := New(Params{
		Log:          zap.NewNop(),
		TelemetrySvc: telemetrySvc,
		MergeSvc:     mergeSvc,
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Config:       cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceRunsFetchThenEveryMerge(t *testing.T) {
	telemetrySvc := &fakeTelemetrySvc{}
	mergeSvc := &fakeMergeSvc{}
	sched := newTestScheduler(t, telemetrySvc, mergeSvc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Equal(t, 1, telemetrySvc.fetchCalls)
	assert.Equal(t, []mergedomain.Type{
		mergedomain.TypeOTT,
		mergedomain.TypeDVB,
		mergedomain.TypeStopCatchup,
		mergedomain.TypeEndCatchup,
		mergedomain.TypeStopVOD,
		mergedomain.TypeEndVOD,
	}, mergeSvc.runs)
}

func TestRunOnceRespectsEnabledJobs(t *testing.T) {
	telemetrySvc := &fakeTelemetrySvc{}
	mergeSvc := &fakeMergeSvc{}
	sched := newTestScheduler(t, telemetrySvc, mergeSvc, Config{
		EnabledJobs: []string{"merge_ott"},
	})

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Equal(t, 0, telemetrySvc.fetchCalls)
	assert.Equal(t, []mergedomain.Type{mergedomain.TypeOTT}, mergeSvc.runs)
}

func TestRunOnceCollectsFailuresAndKeepsGoing(t *testing.T) {
	telemetrySvc := &fakeTelemetrySvc{fetchErr: errors.New("upstream down")}
	mergeSvc := &fakeMergeSvc{}
	sched := newTestScheduler(t, telemetrySvc, mergeSvc, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_telemetry")
	// The merges still ran despite the fetch failure.
	assert.Len(t, mergeSvc.runs, 6)
}

func TestRunOnceTreatsLockedMergeAsSkip(t *testing.T) {
	telemetrySvc := &fakeTelemetrySvc{}
	mergeSvc := &fakeMergeSvc{runErrs: map[mergedomain.Type]error{
		mergedomain.TypeDVB: mergedomain.ErrMergeLocked,
	}}
	sched := newTestScheduler(t, telemetrySvc, mergeSvc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Len(t, mergeSvc.runs, 6)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.Equal(t, 15*time.Minute, cfg.JobTimeout)
}
