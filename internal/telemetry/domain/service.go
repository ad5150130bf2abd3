package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// TimestampLayout is the format the provider uses for event times.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the format of the caller-stamped dataDate field.
const DateLayout = "2006-01-02"

// RawEventPayload is the wire shape accepted by the bulk intake endpoint
// and returned by the upstream provider. It is mapped to TelemetryEvent
// field by field at the boundary.
type RawEventPayload struct {
	RecordID       *int64   `json:"recordId"`
	ActionID       *int     `json:"actionId"`
	ActionKey      *string  `json:"actionKey"`
	Anonymized     *bool    `json:"anonymized"`
	Data           *string  `json:"data"`
	DataDuration   *int64   `json:"dataDuration"`
	DataID         *int64   `json:"dataId"`
	DataName       *string  `json:"dataName"`
	DataNetID      *int64   `json:"dataNetId"`
	DataPrice      *float64 `json:"dataPrice"`
	DataServiceID  *int64   `json:"dataServiceId"`
	DataTsID       *int64   `json:"dataTsId"`
	DataDate       *string  `json:"dataDate"`
	TimeDate       *int     `json:"timeDate"`
	Date           *string  `json:"date"`
	DeviceID       *string  `json:"deviceId"`
	IP             *string  `json:"ip"`
	IPID           *int64   `json:"ipId"`
	Manual         *bool    `json:"manual"`
	ProfileID      *string  `json:"profileId"`
	ReasonID       *int64   `json:"reasonId"`
	ReasonKey      *string  `json:"reasonKey"`
	SmartcardID    *string  `json:"smartcardId"`
	SubscriberCode *string  `json:"subscriberCode"`
	Timestamp      string   `json:"timestamp"`
	WhoisCountry   *string  `json:"whoisCountry"`
	WhoisISP       *string  `json:"whoisIsp"`
}

// Validate reports whether the payload can become a TelemetryEvent.
func (p RawEventPayload) Validate() error {
	if p.RecordID == nil || *p.RecordID <= 0 {
		return ErrInvalidRecordID
	}
	if p.ActionID == nil {
		return ErrInvalidActionID
	}
	return nil
}

// ToEvent maps the payload to the persistence model. Caller-stamped
// DataDate and TimeDate are kept as given; missing ones are derived from
// Timestamp. A timestamp that does not parse leaves the missing fields
// nil; the record is still kept.
func (p RawEventPayload) ToEvent() (TelemetryEvent, error) {
	if err := p.Validate(); err != nil {
		return TelemetryEvent{}, err
	}

	event := TelemetryEvent{EventFields: EventFields{
		RecordID:       *p.RecordID,
		ActionID:       *p.ActionID,
		ActionKey:      p.ActionKey,
		Anonymized:     p.Anonymized,
		Data:           p.Data,
		DataDuration:   p.DataDuration,
		DataID:         p.DataID,
		DataName:       p.DataName,
		DataNetID:      p.DataNetID,
		DataPrice:      p.DataPrice,
		DataServiceID:  p.DataServiceID,
		DataTsID:       p.DataTsID,
		Date:           p.Date,
		DeviceID:       p.DeviceID,
		IP:             p.IP,
		IPID:           p.IPID,
		Manual:         p.Manual,
		ProfileID:      p.ProfileID,
		ReasonID:       p.ReasonID,
		ReasonKey:      p.ReasonKey,
		SmartcardID:    p.SmartcardID,
		SubscriberCode: p.SubscriberCode,
		Timestamp:      p.Timestamp,
		WhoisCountry:   p.WhoisCountry,
		WhoisISP:       p.WhoisISP,
	}}

	if p.DataDate != nil {
		if parsed, err := time.Parse(DateLayout, *p.DataDate); err == nil {
			date := datatypes.Date(parsed)
			event.DataDate = &date
		}
	}
	if p.TimeDate != nil {
		hour := *p.TimeDate
		event.TimeDate = &hour
	}

	if event.DataDate == nil || event.TimeDate == nil {
		if parsed, err := time.Parse(TimestampLayout, p.Timestamp); err == nil {
			if event.DataDate == nil {
				date := datatypes.Date(time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC))
				event.DataDate = &date
			}
			if event.TimeDate == nil {
				hour := parsed.Hour()
				event.TimeDate = &hour
			}
		}
	}

	return event, nil
}

// IngestResult reports the outcome of one upstream fetch-and-store run.
type IngestResult struct {
	Message  string `json:"message"`
	Fetched  int    `json:"fetched"`
	Accepted int    `json:"accepted"`
	Invalid  int    `json:"invalid"`
}

// IntakeResult reports the outcome of one bulk intake batch.
type IntakeResult struct {
	Message        string `json:"message"`
	TotalProcessed int    `json:"total_processed"`
	TotalInvalid   int    `json:"total_invalid"`
}

// Service ingests raw telemetry events.
type Service interface {
	// FetchAndStore pulls records from the upstream provider, fetching
	// everything when the store is empty and only records newer than the
	// highest known RecordID otherwise.
	FetchAndStore(ctx context.Context) (IngestResult, error)
	// IntakeBatch stores a pre-formed batch pushed by an external
	// collector. Any already-known RecordID rejects the whole batch.
	IntakeBatch(ctx context.Context, batch []RawEventPayload) (IntakeResult, error)
	// MaxRecordID returns the highest stored RecordID.
	MaxRecordID(ctx context.Context) (int64, error)
}

var (
	ErrInvalidRecordID = errors.New("invalid_record_id")
	ErrInvalidActionID = errors.New("invalid_action_id")
	ErrDuplicateBatch  = errors.New("duplicate_batch")
	ErrEmptyStore      = errors.New("empty_store")
)
