package workflow

import (
	"fmt"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Trigger represents an event that can cause a stage transition
type Trigger string

const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// Decision is the outcome an approver records on a stage
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ParseDecision accepts "approved"/"approve" and "rejected"/"reject"
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "approved", "approve":
		return DecisionApproved, nil
	case "rejected", "reject":
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidRequest, s)
}

// IsValid returns true for approved and rejected
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Trigger returns the state machine trigger for the decision
func (d Decision) Trigger() Trigger {
	if d == DecisionRejected {
		return TriggerReject
	}
	return TriggerApprove
}

// State returns the stage state the decision leads to
func (d Decision) State() entity.StageState {
	if d == DecisionRejected {
		return entity.StageRejected
	}
	return entity.StageApproved
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}
