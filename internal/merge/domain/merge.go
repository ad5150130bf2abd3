package domain

import (
	"context"
	"errors"

	telemetry "github.com/yabtel/telemetria/internal/telemetry/domain"
)

// Type names one begin/end consolidation.
type Type string

const (
	TypeOTT         Type = "ott"
	TypeDVB         Type = "dvb"
	TypeStopCatchup Type = "stopcatchup"
	TypeEndCatchup  Type = "endcatchup"
	TypeStopVOD     Type = "stopvod"
	TypeEndVOD      Type = "endvod"
)

// Pair holds the action IDs whose events a merge consolidates. The end
// event carries the watched duration; the begin event carries the
// human-readable content name.
type Pair struct {
	Begin int
	End   int
}

var Pairs = map[Type]Pair{
	TypeOTT:         {Begin: telemetry.ActionOTTStart, End: telemetry.ActionOTTEnd},
	TypeDVB:         {Begin: telemetry.ActionDVBStart, End: telemetry.ActionDVBEnd},
	TypeStopCatchup: {Begin: telemetry.ActionCatchupStart, End: telemetry.ActionCatchupStop},
	TypeEndCatchup:  {Begin: telemetry.ActionCatchupStart, End: telemetry.ActionCatchupEnd},
	TypeStopVOD:     {Begin: telemetry.ActionVODStart, End: telemetry.ActionVODStop},
	// VOD sessions abandoned mid-play report their end through the same
	// catchup-style action pair, hence the overlap with TypeEndCatchup.
	TypeEndVOD: {Begin: telemetry.ActionCatchupStart, End: telemetry.ActionCatchupEnd},
}

// Result reports one merge run.
type Result struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
	Merged  int    `json:"merged"`
}

var (
	ErrUnknownType = errors.New("unknown_merge_type")
	ErrMergeLocked = errors.New("merge_already_running")
)

// Service consolidates raw begin/end events into the per-type merged
// tables.
type Service interface {
	// Run merges every end event newer than the merged table's watermark.
	Run(ctx context.Context, mergeType Type) (Result, error)
	// RunAll runs every merge type in a stable order, collecting results.
	RunAll(ctx context.Context) ([]Result, error)
	// List returns the full contents of one merged table.
	List(ctx context.Context, mergeType Type) (any, error)
}
