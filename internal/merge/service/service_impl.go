package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yabtel/telemetria/internal/joblock"
	"github.com/yabtel/telemetria/internal/merge/domain"
	"github.com/yabtel/telemetria/internal/observability/metrics"
	telemetry "github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/repository"
)

const (
	insertChunkSize = 1000
	lockTTL         = 5 * time.Minute
)

// runOrder keeps RunAll deterministic.
var runOrder = []domain.Type{
	domain.TypeOTT,
	domain.TypeDVB,
	domain.TypeStopCatchup,
	domain.TypeEndCatchup,
	domain.TypeStopVOD,
	domain.TypeEndVOD,
}

type ServiceParam struct {
	fx.In

	Log          *zap.Logger
	DB           *gorm.DB
	Events       repository.Repository[telemetry.TelemetryEvent]
	OTT          repository.Repository[telemetry.MergedOTT]
	DVB          repository.Repository[telemetry.MergedDVB]
	StopCatchups repository.Repository[telemetry.MergedStopCatchup]
	EndCatchups  repository.Repository[telemetry.MergedEndCatchup]
	StopVODs     repository.Repository[telemetry.MergedStopVOD]
	EndVODs      repository.Repository[telemetry.MergedEndVOD]
	Locker       *joblock.Locker  `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
}

type runner struct {
	run  func(ctx context.Context) (int, error)
	list func(ctx context.Context) (any, error)
}

type service struct {
	log     *zap.Logger
	db      *gorm.DB
	events  repository.Repository[telemetry.TelemetryEvent]
	locker  *joblock.Locker
	metrics *metrics.Metrics
	runners map[domain.Type]runner
}

func New(p ServiceParam) domain.Service {
	s := &service{
		log:     p.Log.Named("merge.service"),
		db:      p.DB,
		events:  p.Events,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
	s.runners = map[domain.Type]runner{
		domain.TypeOTT:         newRunner(s, domain.TypeOTT, p.OTT, wrapOTT),
		domain.TypeDVB:         newRunner(s, domain.TypeDVB, p.DVB, wrapDVB),
		domain.TypeStopCatchup: newRunner(s, domain.TypeStopCatchup, p.StopCatchups, wrapStopCatchup),
		domain.TypeEndCatchup:  newRunner(s, domain.TypeEndCatchup, p.EndCatchups, wrapEndCatchup),
		domain.TypeStopVOD:     newRunner(s, domain.TypeStopVOD, p.StopVODs, wrapStopVOD),
		domain.TypeEndVOD:      newRunner(s, domain.TypeEndVOD, p.EndVODs, wrapEndVOD),
	}
	return s
}

func wrapOTT(f telemetry.EventFields) *telemetry.MergedOTT {
	return &telemetry.MergedOTT{EventFields: f}
}

func wrapDVB(f telemetry.EventFields) *telemetry.MergedDVB {
	return &telemetry.MergedDVB{EventFields: f}
}

func wrapStopCatchup(f telemetry.EventFields) *telemetry.MergedStopCatchup {
	return &telemetry.MergedStopCatchup{EventFields: f}
}

func wrapEndCatchup(f telemetry.EventFields) *telemetry.MergedEndCatchup {
	return &telemetry.MergedEndCatchup{EventFields: f}
}

func wrapStopVOD(f telemetry.EventFields) *telemetry.MergedStopVOD {
	return &telemetry.MergedStopVOD{EventFields: f}
}

func wrapEndVOD(f telemetry.EventFields) *telemetry.MergedEndVOD {
	return &telemetry.MergedEndVOD{EventFields: f}
}

func newRunner[T any](s *service, mergeType domain.Type, store repository.Repository[T], wrap func(telemetry.EventFields) *T) runner {
	return runner{
		run: func(ctx context.Context) (int, error) {
			return mergeInto(ctx, s, domain.Pairs[mergeType], store, wrap)
		},
		list: func(ctx context.Context) (any, error) {
			return store.Find(ctx, repository.OrderBy("record_id"))
		},
	}
}

// mergeInto consolidates end events newer than the merged table's
// watermark, stamping each with the content name reported by the latest
// matching begin event. The whole run commits or rolls back as one unit.
func mergeInto[T any](ctx context.Context, s *service, pair domain.Pair, store repository.Repository[T], wrap func(telemetry.EventFields) *T) (int, error) {
	merged := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := s.events.WithTrx(tx)
		dest := store.WithTrx(tx)

		watermark, err := dest.MaxInt64(ctx, "record_id")
		if err != nil {
			return err
		}

		ends, err := events.Find(ctx,
			repository.Where("action_id = ? AND record_id > ?", pair.End, watermark),
			repository.OrderBy("record_id"),
		)
		if err != nil {
			return err
		}
		if len(ends) == 0 {
			return nil
		}

		names, err := contentNames(ctx, events, pair.Begin)
		if err != nil {
			return err
		}

		rows := make([]*T, 0, len(ends))
		for _, end := range ends {
			fields := end.EventFields
			if fields.DataID != nil {
				if name, ok := names[*fields.DataID]; ok {
					fields.DataName = &name
				}
			}
			rows = append(rows, wrap(fields))
		}

		if err := dest.BatchCreateIgnoreConflicts(ctx, rows, insertChunkSize); err != nil {
			return err
		}
		merged = len(rows)
		return nil
	})
	return merged, err
}

// contentNames maps dataId to the name reported by the begin event with
// the highest recordId, so renamed content keeps its latest title.
func contentNames(ctx context.Context, events repository.Repository[telemetry.TelemetryEvent], beginAction int) (map[int64]string, error) {
	begins, err := events.Find(ctx,
		repository.Where("action_id = ? AND data_id IS NOT NULL", beginAction),
		repository.OrderBy("record_id"),
	)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(begins))
	for _, begin := range begins {
		if begin.DataID == nil || begin.DataName == nil {
			continue
		}
		names[*begin.DataID] = *begin.DataName
	}
	return names, nil
}

func (s *service) Run(ctx context.Context, mergeType domain.Type) (domain.Result, error) {
	r, ok := s.runners[mergeType]
	if !ok {
		return domain.Result{}, domain.ErrUnknownType
	}

	lockKey := fmt.Sprintf("merge:lock:%s", mergeType)
	token, acquired, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		s.log.Warn("merge lock unavailable, running unlocked", zap.String("type", string(mergeType)), zap.Error(err))
	} else if !acquired {
		return domain.Result{}, domain.ErrMergeLocked
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); releaseErr != nil {
			s.log.Warn("merge lock release failed", zap.String("type", string(mergeType)), zap.Error(releaseErr))
		}
	}()

	merged, err := r.run(ctx)
	if err != nil {
		s.metrics.IncMergeRun(string(mergeType), "error")
		return domain.Result{}, err
	}

	if merged == 0 {
		s.metrics.IncMergeRun(string(mergeType), "noop")
		return domain.Result{Type: mergeType, Message: "no new records"}, nil
	}

	s.metrics.IncMergeRun(string(mergeType), "merged")
	s.metrics.AddMergedRecords(string(mergeType), merged)
	s.log.Info("merge finished", zap.String("type", string(mergeType)), zap.Int("merged", merged))

	return domain.Result{
		Type:    mergeType,
		Message: fmt.Sprintf("merged %d records", merged),
		Merged:  merged,
	}, nil
}

func (s *service) RunAll(ctx context.Context) ([]domain.Result, error) {
	results := make([]domain.Result, 0, len(runOrder))
	for _, mergeType := range runOrder {
		result, err := s.Run(ctx, mergeType)
		if err != nil {
			return results, fmt.Errorf("merge %s: %w", mergeType, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *service) List(ctx context.Context, mergeType domain.Type) (any, error) {
	r, ok := s.runners[mergeType]
	if !ok {
		return nil, domain.ErrUnknownType
	}
	return r.list(ctx)
}
