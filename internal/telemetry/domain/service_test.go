package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }
func ptrString(v string) *string {
	return &v
}

func TestToEventDerivesDateFields(t *testing.T) {
	payload := RawEventPayload{
		RecordID:  ptrInt64(1),
		ActionID:  ptrInt(7),
		Timestamp: "2026-05-13 14:30:00",
	}

	event, err := payload.ToEvent()
	require.NoError(t, err)

	require.NotNil(t, event.DataDate)
	assert.Equal(t, "2026-05-13", time.Time(*event.DataDate).Format(DateLayout))
	require.NotNil(t, event.TimeDate)
	assert.Equal(t, 14, *event.TimeDate)
}

func TestToEventKeepsCallerStampedDateFields(t *testing.T) {
	payload := RawEventPayload{
		RecordID:  ptrInt64(1),
		ActionID:  ptrInt(7),
		Timestamp: "13-05-2026 04:00:00",
		DataDate:  ptrString("2026-05-13"),
		TimeDate:  ptrInt(4),
	}

	event, err := payload.ToEvent()
	require.NoError(t, err)

	require.NotNil(t, event.DataDate)
	assert.Equal(t, datatypes.Date(time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)), *event.DataDate)
	require.NotNil(t, event.TimeDate)
	assert.Equal(t, 4, *event.TimeDate)
}

func TestToEventStampedFieldsWinOverTimestamp(t *testing.T) {
	payload := RawEventPayload{
		RecordID:  ptrInt64(1),
		ActionID:  ptrInt(7),
		Timestamp: "2026-05-13 14:30:00",
		TimeDate:  ptrInt(9),
	}

	event, err := payload.ToEvent()
	require.NoError(t, err)

	require.NotNil(t, event.TimeDate)
	assert.Equal(t, 9, *event.TimeDate)
	// DataDate was not stamped, so it still derives from the timestamp.
	require.NotNil(t, event.DataDate)
	assert.Equal(t, "2026-05-13", time.Time(*event.DataDate).Format(DateLayout))
}

func TestToEventBadTimestampLeavesDateFieldsNil(t *testing.T) {
	payload := RawEventPayload{
		RecordID:  ptrInt64(1),
		ActionID:  ptrInt(7),
		Timestamp: "not a timestamp",
	}

	event, err := payload.ToEvent()
	require.NoError(t, err)
	assert.Nil(t, event.DataDate)
	assert.Nil(t, event.TimeDate)
}
