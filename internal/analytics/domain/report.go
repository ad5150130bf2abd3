package domain

import (
	"context"
	"errors"
)

// DurationRange is a total watched duration in hours over a date window.
// StartDate is nil when the window covers all time.
type DurationRange struct {
	Duration  float64 `json:"duration"`
	StartDate *string `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

// HomeReport is the dashboard payload. Field names mirror the keys the
// dashboard frontend already consumes, quirks included.
type HomeReport struct {
	TotalDurationOTT      *DurationRange                `json:"totaldurationott"`
	FranjaHorariaOTT      map[string]float64            `json:"franjahorariaott"`
	ListOTT               map[string]float64            `json:"listOTT"`
	FranjaHorariaEventOTT map[string]map[string]float64 `json:"franjahorariaeventott"`
	ListCountEventOTT     map[string]int                `json:"listCountEventOTT"`
	TotalDurationDVB      *DurationRange                `json:"totaldurationdvb"`
	FranjaHorariaDVB      map[string]float64            `json:"franjahorariadvb"`
	FranjaHorariaEventDVB map[string]map[string]float64 `json:"franjahorariaeventodvb"`
	ListDVB               map[string]float64            `json:"listDVB"`
	ListCountEventDVB     map[string]int                `json:"listCountEventDVB"`
	VODCount              *int                          `json:"vodCount"`
	VODEventos            map[string]int                `json:"vodeventos"`
	CatchupCount          *int                          `json:"catchupCount"`
	CatchupEventos        map[string]int                `json:"catchupeventos"`
}

var ErrInvalidDays = errors.New("invalid_days")

// Service computes dashboard aggregations over the merged stores.
type Service interface {
	// Home aggregates the trailing days window; days 0 means all time.
	// A failed sub-metric leaves its field null instead of failing the
	// whole report.
	Home(ctx context.Context, days int) (HomeReport, error)
}
