package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/yabtel/telemetria/internal/clock"
	mergedomain "github.com/yabtel/telemetria/internal/merge/domain"
	"github.com/yabtel/telemetria/internal/observability/metrics"
	telemetrydomain "github.com/yabtel/telemetria/internal/telemetry/domain"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log          *zap.Logger
	TelemetrySvc telemetrydomain.Service
	MergeSvc     mergedomain.Service
	GenID        *snowflake.Node
	Clock        clock.Clock
	Metrics      *metrics.Metrics `optional:"true"`
	Config       Config           `optional:"true"`
}

// Scheduler drives the periodic fetch-then-merge pipeline that the
// manual HTTP triggers also expose.
type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *metrics.Metrics
	telemetrySvc telemetrydomain.Service
	mergeSvc     mergedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.TelemetrySvc == nil || p.MergeSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		telemetrySvc: p.TelemetrySvc,
		mergeSvc:     p.MergeSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	runID := s.genID.Generate().String()
	log := s.log.With(zap.String("job", name), zap.String("run_id", runID))
	log.Info("job started")
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveJobDuration(name, elapsed)
	if err == nil {
		log.Info("job finished", zap.Duration("elapsed", elapsed))
		return nil
	}

	s.metrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	if errors.Is(err, mergedomain.ErrMergeLocked) {
		log.Info("job skipped, another run holds the lock")
		return nil
	}

	log.Warn("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"fetch_telemetry", s.FetchTelemetryJob},
		{"merge_ott", s.mergeJob(mergedomain.TypeOTT)},
		{"merge_dvb", s.mergeJob(mergedomain.TypeDVB)},
		{"merge_stopcatchup", s.mergeJob(mergedomain.TypeStopCatchup)},
		{"merge_endcatchup", s.mergeJob(mergedomain.TypeEndCatchup)},
		{"merge_stopvod", s.mergeJob(mergedomain.TypeStopVOD)},
		{"merge_endvod", s.mergeJob(mergedomain.TypeEndVOD)},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables everything.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) FetchTelemetryJob(ctx context.Context) error {
	result, err := s.telemetrySvc.FetchAndStore(ctx)
	if err != nil {
		return err
	}
	s.log.Info("telemetry fetch completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("accepted", result.Accepted),
		zap.Int("invalid", result.Invalid),
	)
	return nil
}

func (s *Scheduler) mergeJob(mergeType mergedomain.Type) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.mergeSvc.Run(ctx, mergeType)
		return err
	}
}
