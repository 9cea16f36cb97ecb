package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeRequestCreated, true},
		{TypeStageDecided, true},
		{TypeRequestFinalized, true},
		{Type("instance.created"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	e := NewEvent(TypeRequestCreated, 42, nil)

	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.CorrelationID)
	assert.NotEqual(t, e.ID, e.CorrelationID)
	assert.Equal(t, int64(42), e.RequestID)
	assert.NotNil(t, e.Payload)
	assert.False(t, e.Timestamp.Before(before))

	other := NewEvent(TypeRequestCreated, 42, nil)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeStageDecided, 1, map[string]interface{}{"a": "1"})
	updated := original.WithPayload("b", true)

	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "1", updated.GetPayloadString("a"))
	assert.True(t, updated.GetPayloadBool("b"))
	_, exists := original.Payload["b"]
	assert.False(t, exists, "original payload must not change")
}

func TestEvent_GetPayloadInt(t *testing.T) {
	e := NewEvent(TypeStageDecided, 1, map[string]interface{}{
		"int":     3,
		"int64":   int64(4),
		"float64": float64(5),
		"string":  "6",
	})

	assert.Equal(t, int64(3), e.GetPayloadInt("int"))
	assert.Equal(t, int64(4), e.GetPayloadInt("int64"))
	assert.Equal(t, int64(5), e.GetPayloadInt("float64"))
	assert.Equal(t, int64(0), e.GetPayloadInt("string"))
	assert.Equal(t, int64(0), e.GetPayloadInt("missing"))
}

func TestStageDecided_RoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	decided := StageDecided{
		RequestID:  9,
		Stage:      entity.StageHRM,
		Decision:   entity.StageRejected,
		ActingRole: entity.RoleHRM,
		Remark:     "no budget line",
		Timestamp:  at,
	}

	e := decided.Event("corr-1")
	assert.Equal(t, TypeStageDecided, e.Type)
	assert.Equal(t, "corr-1", e.CorrelationID)

	back, ok := AsStageDecided(e)
	require.True(t, ok)
	assert.Equal(t, decided, back)

	_, ok = AsRequestFinalized(e)
	assert.False(t, ok)
}

func TestRequestFinalized_RoundTrip(t *testing.T) {
	e := RequestFinalized{RequestID: 3, Outcome: entity.RequestApproved}.Event("corr")

	back, ok := AsRequestFinalized(e)
	require.True(t, ok)
	assert.Equal(t, int64(3), back.RequestID)
	assert.Equal(t, entity.RequestApproved, back.Outcome)
}

func TestRequestCreated_RoundTrip(t *testing.T) {
	e := RequestCreated{RequestID: 5, RequesterID: "u-9", Type: entity.TypeAnnualLeave}.Event("corr")

	back, ok := AsRequestCreated(e)
	require.True(t, ok)
	assert.Equal(t, "u-9", back.RequesterID)
	assert.Equal(t, entity.TypeAnnualLeave, back.Type)

	_, ok = AsRequestCreated(nil)
	assert.False(t, ok)
}

func TestNewEventWithCorrelation_EmptyStartsChain(t *testing.T) {
	e := NewEventWithCorrelation(TypeRequestFinalized, 1, nil, "")
	assert.NotEmpty(t, e.CorrelationID)
}
