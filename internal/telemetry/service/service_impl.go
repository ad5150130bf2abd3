package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yabtel/telemetria/internal/config"
	"github.com/yabtel/telemetria/internal/cv"
	"github.com/yabtel/telemetria/internal/observability/metrics"
	"github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/repository"
)

const insertChunkSize = 1000

// Upstream is the slice of the CV client the ingest service needs.
type Upstream interface {
	Login(ctx context.Context) (cv.Session, error)
	ListTelemetryRecords(ctx context.Context, sess cv.Session, offset, limit int) ([]domain.RawEventPayload, error)
}

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	Config   config.Config
	Upstream Upstream
	Events   repository.Repository[domain.TelemetryEvent]
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	log      *zap.Logger
	db       *gorm.DB
	cfg      config.Config
	upstream Upstream
	events   repository.Repository[domain.TelemetryEvent]
	metrics  *metrics.Metrics
}

func New(p ServiceParam) domain.Service {
	return &service{
		log:      p.Log.Named("telemetry.service"),
		db:       p.DB,
		cfg:      p.Config,
		upstream: p.Upstream,
		events:   p.Events,
		metrics:  p.Metrics,
	}
}

func (s *service) FetchAndStore(ctx context.Context) (domain.IngestResult, error) {
	populated, err := s.events.Exists(ctx)
	if err != nil {
		return domain.IngestResult{}, err
	}

	var watermark int64
	if populated {
		watermark, err = s.events.MaxInt64(ctx, "record_id")
		if err != nil {
			return domain.IngestResult{}, err
		}
	}

	sess, err := s.upstream.Login(ctx)
	if err != nil {
		return domain.IngestResult{}, err
	}

	var payloads []domain.RawEventPayload
	if !populated {
		payloads, err = s.fetchAll(ctx, sess)
	} else {
		payloads, err = s.fetchNewerThan(ctx, sess, watermark)
	}
	if err != nil {
		return domain.IngestResult{}, err
	}

	events, invalid := s.toEvents(payloads, "cv")

	if len(events) == 0 {
		return domain.IngestResult{
			Message: "no new records",
			Fetched: len(payloads),
			Invalid: invalid,
		}, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.events.WithTrx(tx).BatchCreateIgnoreConflicts(ctx, events, insertChunkSize)
	})
	if err != nil {
		return domain.IngestResult{}, err
	}

	s.metrics.IncRecordsIngested("cv", len(events))
	s.log.Info("upstream fetch stored",
		zap.Int64("watermark", watermark),
		zap.Int("fetched", len(payloads)),
		zap.Int("accepted", len(events)),
		zap.Int("invalid", invalid),
	)

	return domain.IngestResult{
		Message:  fmt.Sprintf("stored %d records", len(events)),
		Fetched:  len(payloads),
		Accepted: len(events),
		Invalid:  invalid,
	}, nil
}

// fetchAll pages through the whole upstream history. Pages arrive newest
// first; order does not matter here because every record is kept.
func (s *service) fetchAll(ctx context.Context, sess cv.Session) ([]domain.RawEventPayload, error) {
	var all []domain.RawEventPayload
	limit := s.pageLimit()

	for offset := 0; ; offset += limit {
		page, err := s.fetchPage(ctx, sess, offset, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < limit {
			return all, nil
		}
	}
}

// fetchNewerThan pages newest-first and stops at the first record at or
// below the watermark. The watermark record itself is already stored and
// is excluded.
func (s *service) fetchNewerThan(ctx context.Context, sess cv.Session, watermark int64) ([]domain.RawEventPayload, error) {
	var newer []domain.RawEventPayload
	limit := s.pageLimit()

	for offset := 0; ; offset += limit {
		page, err := s.fetchPage(ctx, sess, offset, limit)
		if err != nil {
			return nil, err
		}
		for _, payload := range page {
			if payload.RecordID != nil && *payload.RecordID <= watermark {
				return newer, nil
			}
			newer = append(newer, payload)
		}
		if len(page) < limit {
			return newer, nil
		}
	}
}

// fetchPage retries transient upstream failures a few times before giving
// up. Auth and decode failures are not retried.
func (s *service) fetchPage(ctx context.Context, sess cv.Session, offset, limit int) ([]domain.RawEventPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		page, err := s.upstream.ListTelemetryRecords(ctx, sess, offset, limit)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn("upstream page fetch failed",
			zap.Int("offset", offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, lastErr
}

func (s *service) IntakeBatch(ctx context.Context, batch []domain.RawEventPayload) (domain.IntakeResult, error) {
	events, invalid := s.toEvents(batch, "intake")

	if len(events) == 0 {
		return domain.IntakeResult{
			Message:      "no valid records in batch",
			TotalInvalid: invalid,
		}, nil
	}

	ids := make([]int64, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.RecordID)
	}

	known, err := s.events.Count(ctx, repository.Where("record_id IN ?", ids))
	if err != nil {
		return domain.IntakeResult{}, err
	}
	if known > 0 {
		return domain.IntakeResult{}, domain.ErrDuplicateBatch
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.events.WithTrx(tx).BatchCreateIgnoreConflicts(ctx, events, insertChunkSize)
	})
	if err != nil {
		return domain.IntakeResult{}, err
	}

	s.metrics.IncRecordsIngested("intake", len(events))
	s.log.Info("intake batch stored",
		zap.Int("accepted", len(events)),
		zap.Int("invalid", invalid),
	)

	return domain.IntakeResult{
		Message:        "data processed successfully",
		TotalProcessed: len(events),
		TotalInvalid:   invalid,
	}, nil
}

func (s *service) MaxRecordID(ctx context.Context) (int64, error) {
	max, err := s.events.MaxInt64(ctx, "record_id")
	if err != nil {
		return 0, err
	}
	if max == 0 {
		return 0, domain.ErrEmptyStore
	}
	return max, nil
}

func (s *service) toEvents(payloads []domain.RawEventPayload, source string) ([]*domain.TelemetryEvent, int) {
	events := make([]*domain.TelemetryEvent, 0, len(payloads))
	invalid := 0
	for _, payload := range payloads {
		event, err := payload.ToEvent()
		if err != nil {
			invalid++
			s.metrics.IncRecordsInvalid(source, 1)
			s.log.Warn("record dropped", zap.String("source", source), zap.Error(err))
			continue
		}
		if event.DataDate == nil {
			s.log.Warn("record kept with unparseable timestamp",
				zap.Int64("record_id", event.RecordID),
				zap.String("timestamp", event.Timestamp),
			)
		}
		events = append(events, &event)
	}
	return events, invalid
}

func (s *service) pageLimit() int {
	if s.cfg.CVPageLimit > 0 {
		return s.cfg.CVPageLimit
	}
	return 1000
}
