package event

import (
	"time"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// RequestCreated is emitted once a request and its stages are stored
type RequestCreated struct {
	RequestID   int64
	RequesterID string
	Type        entity.RequestType
}

// StageDecided is emitted after a decision on one stage commits
type StageDecided struct {
	RequestID  int64
	Stage      entity.Stage
	Decision   entity.StageState
	ActingRole entity.Role
	Remark     string
	Timestamp  time.Time
}

// RequestFinalized is emitted when a request becomes approved or rejected
type RequestFinalized struct {
	RequestID int64
	Outcome   entity.RequestStatus
}

// Event converts to a domain event
func (c RequestCreated) Event(correlationID string) *Event {
	return NewEventWithCorrelation(TypeRequestCreated, c.RequestID, map[string]interface{}{
		PayloadRequesterID: c.RequesterID,
		PayloadRequestType: string(c.Type),
	}, correlationID)
}

// Event converts to a domain event
func (d StageDecided) Event(correlationID string) *Event {
	e := NewEventWithCorrelation(TypeStageDecided, d.RequestID, map[string]interface{}{
		PayloadStage:      string(d.Stage),
		PayloadDecision:   string(d.Decision),
		PayloadActingRole: int(d.ActingRole),
		PayloadRemark:     d.Remark,
	}, correlationID)
	e.Timestamp = d.Timestamp
	return e
}

// Event converts to a domain event
func (f RequestFinalized) Event(correlationID string) *Event {
	return NewEventWithCorrelation(TypeRequestFinalized, f.RequestID, map[string]interface{}{
		PayloadOutcome: string(f.Outcome),
	}, correlationID)
}

// AsStageDecided reads a stage.decided event back into its typed form
func AsStageDecided(e *Event) (StageDecided, bool) {
	if e == nil || e.Type != TypeStageDecided {
		return StageDecided{}, false
	}
	return StageDecided{
		RequestID:  e.RequestID,
		Stage:      entity.Stage(e.GetPayloadString(PayloadStage)),
		Decision:   entity.StageState(e.GetPayloadString(PayloadDecision)),
		ActingRole: entity.Role(e.GetPayloadInt(PayloadActingRole)),
		Remark:     e.GetPayloadString(PayloadRemark),
		Timestamp:  e.Timestamp,
	}, true
}

// AsRequestFinalized reads a request.finalized event back into its typed form
func AsRequestFinalized(e *Event) (RequestFinalized, bool) {
	if e == nil || e.Type != TypeRequestFinalized {
		return RequestFinalized{}, false
	}
	return RequestFinalized{
		RequestID: e.RequestID,
		Outcome:   entity.RequestStatus(e.GetPayloadString(PayloadOutcome)),
	}, true
}

// AsRequestCreated reads a request.created event back into its typed form
func AsRequestCreated(e *Event) (RequestCreated, bool) {
	if e == nil || e.Type != TypeRequestCreated {
		return RequestCreated{}, false
	}
	return RequestCreated{
		RequestID:   e.RequestID,
		RequesterID: e.GetPayloadString(PayloadRequesterID),
		Type:        entity.RequestType(e.GetPayloadString(PayloadRequestType)),
	}, true
}
