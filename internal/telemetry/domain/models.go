// Package domain contains the persistence models for raw and merged
// telemetry events.
package domain

import (
	"gorm.io/datatypes"
)

// Action identifiers assigned by the upstream provider.
const (
	ActionDVBStart     = 5
	ActionDVBEnd       = 6
	ActionOTTStart     = 7
	ActionOTTEnd       = 8
	ActionVODStart     = 13
	ActionVODStop      = 14
	ActionCatchupStart = 16
	ActionCatchupStop  = 17
	ActionCatchupEnd   = 18
)

// EventFields is the column set shared by the raw event table and the six
// merged session tables. RecordID is assigned by the provider and is the
// deduplication key everywhere.
type EventFields struct {
	RecordID      int64           `gorm:"column:record_id;primaryKey;autoIncrement:false" json:"recordId"`
	ActionID      int             `gorm:"column:action_id;not null;index" json:"actionId"`
	ActionKey     *string         `gorm:"column:action_key" json:"actionKey"`
	Anonymized    *bool           `gorm:"column:anonymized" json:"anonymized"`
	Data          *string         `gorm:"column:data" json:"data"`
	DataDuration  *int64          `gorm:"column:data_duration" json:"dataDuration"`
	DataID        *int64          `gorm:"column:data_id;index" json:"dataId"`
	DataName      *string         `gorm:"column:data_name" json:"dataName"`
	DataNetID     *int64          `gorm:"column:data_net_id" json:"dataNetId"`
	DataPrice     *float64        `gorm:"column:data_price" json:"dataPrice"`
	DataServiceID *int64          `gorm:"column:data_service_id" json:"dataServiceId"`
	DataTsID      *int64          `gorm:"column:data_ts_id" json:"dataTsId"`
	Date          *string         `gorm:"column:date" json:"date"`
	DeviceID      *string         `gorm:"column:device_id" json:"deviceId"`
	IP            *string         `gorm:"column:ip" json:"ip"`
	IPID          *int64          `gorm:"column:ip_id" json:"ipId"`
	Manual        *bool           `gorm:"column:manual" json:"manual"`
	ProfileID     *string         `gorm:"column:profile_id" json:"profileId"`
	ReasonID      *int64          `gorm:"column:reason_id" json:"reasonId"`
	ReasonKey     *string         `gorm:"column:reason_key" json:"reasonKey"`
	SmartcardID   *string         `gorm:"column:smartcard_id" json:"smartcardId"`
	SubscriberCode *string        `gorm:"column:subscriber_code" json:"subscriberCode"`
	Timestamp     string          `gorm:"column:timestamp" json:"timestamp"`
	DataDate      *datatypes.Date `gorm:"column:data_date;index" json:"dataDate"`
	TimeDate      *int            `gorm:"column:time_date" json:"timeDate"`
	WhoisCountry  *string         `gorm:"column:whois_country" json:"whoisCountry"`
	WhoisISP      *string         `gorm:"column:whois_isp" json:"whoisIsp"`
}

// TelemetryEvent is one ingested action occurrence. Rows are immutable
// after insert; re-ingesting an existing RecordID is a no-op.
type TelemetryEvent struct {
	EventFields
}

func (TelemetryEvent) TableName() string { return "telemetry_events" }

// MergedOTT is an OTT end event (actionId 8) enriched with the DataName of
// its begin event (actionId 7).
type MergedOTT struct {
	EventFields
}

func (MergedOTT) TableName() string { return "merged_ott" }

// MergedDVB pairs actionIds 5 and 6.
type MergedDVB struct {
	EventFields
}

func (MergedDVB) TableName() string { return "merged_dvb" }

// MergedStopCatchup pairs actionIds 16 and 17.
type MergedStopCatchup struct {
	EventFields
}

func (MergedStopCatchup) TableName() string { return "merged_stop_catchup" }

// MergedEndCatchup pairs actionIds 16 and 18.
type MergedEndCatchup struct {
	EventFields
}

func (MergedEndCatchup) TableName() string { return "merged_end_catchup" }

// MergedStopVOD pairs actionIds 13 and 14.
type MergedStopVOD struct {
	EventFields
}

func (MergedStopVOD) TableName() string { return "merged_stop_vod" }

// MergedEndVOD pairs actionIds 16 and 18, same source pair as
// MergedEndCatchup but written to its own table. Both merges are kept on
// purpose; catchup and VOD sessions share the terminal actionId and are
// told apart by their dataId namespace.
type MergedEndVOD struct {
	EventFields
}

func (MergedEndVOD) TableName() string { return "merged_end_vod" }
