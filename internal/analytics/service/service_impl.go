package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yabtel/telemetria/internal/analytics/domain"
	"github.com/yabtel/telemetria/internal/cache"
	"github.com/yabtel/telemetria/internal/clock"
	"github.com/yabtel/telemetria/internal/config"
	telemetry "github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/repository"
)

const dateLayout = "2006-01-02"

type ServiceParam struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Franjas      *config.FranjaConfigHolder
	OTT          repository.Repository[telemetry.MergedOTT]
	DVB          repository.Repository[telemetry.MergedDVB]
	StopVODs     repository.Repository[telemetry.MergedStopVOD]
	StopCatchups repository.Repository[telemetry.MergedStopCatchup]
	Cache        *cache.ReportCache `optional:"true"`
}

type service struct {
	log          *zap.Logger
	clock        clock.Clock
	franjas      *config.FranjaConfigHolder
	ott          repository.Repository[telemetry.MergedOTT]
	dvb          repository.Repository[telemetry.MergedDVB]
	stopVODs     repository.Repository[telemetry.MergedStopVOD]
	stopCatchups repository.Repository[telemetry.MergedStopCatchup]
	cache        *cache.ReportCache
}

func New(p ServiceParam) domain.Service {
	return &service{
		log:          p.Log.Named("analytics.service"),
		clock:        p.Clock,
		franjas:      p.Franjas,
		ott:          p.OTT,
		dvb:          p.DVB,
		stopVODs:     p.StopVODs,
		stopCatchups: p.StopCatchups,
		cache:        p.Cache,
	}
}

// window is the resolved date filter for one report.
type window struct {
	start *time.Time
	end   time.Time
}

func (s *service) resolveWindow(days int) window {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if days <= 0 {
		return window{end: today}
	}
	start := today.AddDate(0, 0, -days)
	return window{start: &start, end: today}
}

func (w window) conds() []repository.Cond {
	if w.start == nil {
		return nil
	}
	// Both boundaries inclusive, so a record exactly `days` old counts.
	return []repository.Cond{repository.Where("data_date >= ? AND data_date <= ?", datatypes.Date(*w.start), datatypes.Date(w.end))}
}

func (s *service) Home(ctx context.Context, days int) (domain.HomeReport, error) {
	if days < 0 {
		return domain.HomeReport{}, domain.ErrInvalidDays
	}

	cfg := s.franjas.Get()

	var report domain.HomeReport
	if s.cache.Get(ctx, days, &report) {
		return report, nil
	}

	w := s.resolveWindow(days)

	if rows, err := s.ott.Find(ctx, w.conds()...); err != nil {
		s.log.Warn("ott aggregation unavailable", zap.Int("days", days), zap.Error(err))
	} else {
		fields := aggregateFields(rows, cfg.Franjas, w)
		report.TotalDurationOTT = fields.total
		report.FranjaHorariaOTT = fields.byFranja
		report.ListOTT = fields.byTitle
		report.FranjaHorariaEventOTT = fields.byFranjaTitle
		report.ListCountEventOTT = fields.countByTitle
	}

	if rows, err := s.dvb.Find(ctx, w.conds()...); err != nil {
		s.log.Warn("dvb aggregation unavailable", zap.Int("days", days), zap.Error(err))
	} else {
		fields := aggregateFields(rows, cfg.Franjas, w)
		report.TotalDurationDVB = fields.total
		report.FranjaHorariaDVB = fields.byFranja
		report.FranjaHorariaEventDVB = fields.byFranjaTitle
		report.ListDVB = fields.byTitle
		report.ListCountEventDVB = fields.countByTitle
	}

	if rows, err := s.stopVODs.Find(ctx, w.conds()...); err != nil {
		s.log.Warn("vod aggregation unavailable", zap.Int("days", days), zap.Error(err))
	} else {
		count := len(rows)
		report.VODCount = &count
		report.VODEventos = countByTitle(rows)
	}

	if rows, err := s.stopCatchups.Find(ctx, w.conds()...); err != nil {
		s.log.Warn("catchup aggregation unavailable", zap.Int("days", days), zap.Error(err))
	} else {
		count := len(rows)
		report.CatchupCount = &count
		report.CatchupEventos = countByTitle(rows)
	}

	s.cache.Set(ctx, days, report, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	return report, nil
}

type durationFields struct {
	total         *domain.DurationRange
	byFranja      map[string]float64
	byTitle       map[string]float64
	byFranjaTitle map[string]map[string]float64
	countByTitle  map[string]int
}

func aggregateFields[T any](rows []*T, franjas []config.Franja, w window) durationFields {
	fields := durationFields{
		byFranja:      map[string]float64{},
		byTitle:       map[string]float64{},
		byFranjaTitle: map[string]map[string]float64{},
		countByTitle:  map[string]int{},
	}

	totalHours := 0.0
	rawByFranja := map[string]float64{}
	rawByTitle := map[string]float64{}
	rawByFranjaTitle := map[string]map[string]float64{}

	for _, r := range rows {
		f := eventFields(r)
		hours := durationHours(f.DataDuration)
		title := titleOf(f.DataName)

		totalHours += hours
		rawByTitle[title] += hours
		fields.countByTitle[title]++

		if f.TimeDate == nil {
			continue
		}
		for _, franja := range franjas {
			if *f.TimeDate >= franja.Start && *f.TimeDate < franja.End {
				rawByFranja[franja.Label] += hours
				if rawByFranjaTitle[franja.Label] == nil {
					rawByFranjaTitle[franja.Label] = map[string]float64{}
				}
				rawByFranjaTitle[franja.Label][title] += hours
				break
			}
		}
	}

	fields.total = &domain.DurationRange{
		Duration: round2(totalHours),
		EndDate:  w.end.Format(dateLayout),
	}
	if w.start != nil {
		start := w.start.Format(dateLayout)
		fields.total.StartDate = &start
	}

	for label, hours := range rawByFranja {
		fields.byFranja[label] = round2(hours)
	}
	for title, hours := range rawByTitle {
		fields.byTitle[title] = round2(hours)
	}
	for label, titles := range rawByFranjaTitle {
		rounded := make(map[string]float64, len(titles))
		for title, hours := range titles {
			rounded[title] = round2(hours)
		}
		fields.byFranjaTitle[label] = rounded
	}

	return fields
}

func countByTitle[T any](rows []*T) map[string]int {
	counts := map[string]int{}
	for _, r := range rows {
		counts[titleOf(eventFields(r).DataName)]++
	}
	return counts
}

func eventFields(r any) telemetry.EventFields {
	switch v := r.(type) {
	case *telemetry.MergedOTT:
		return v.EventFields
	case *telemetry.MergedDVB:
		return v.EventFields
	case *telemetry.MergedStopVOD:
		return v.EventFields
	case *telemetry.MergedStopCatchup:
		return v.EventFields
	default:
		return telemetry.EventFields{}
	}
}

func durationHours(seconds *int64) float64 {
	if seconds == nil {
		return 0
	}
	return float64(*seconds) / 3600
}

// titleOf folds unnamed content into one bucket instead of dropping it.
func titleOf(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
