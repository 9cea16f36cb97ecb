package workflow

import (
	"context"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// StateMachine tracks the state of one stage and validates transitions
type StateMachine interface {
	// State returns the current state
	State() entity.StageState

	// CanFire returns true if the trigger is configured for the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error
}
