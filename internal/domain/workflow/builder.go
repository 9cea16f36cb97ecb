package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state entity.StageState) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState entity.StageState) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState entity.StageState) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState entity.StageState, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState entity.StageState
	guard   GuardFunc
}

type stateConfig struct {
	fromState   entity.StageState
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[entity.StageState]*stateConfig
}

type stateMachine struct {
	currentState   entity.StageState
	configurations map[entity.StageState]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[entity.StageState]*stateConfig),
	}
}

// NewStageBuilder returns a builder configured with the stage lifecycle:
// pending moves to approved or rejected, every other state is final.
// The guard, when non-nil, is attached to both decisions.
func NewStageBuilder(guard GuardFunc) StateMachineBuilder {
	b := NewBuilder()
	b.Configure(entity.StagePending).
		PermitIf(TriggerApprove, entity.StageApproved, guard).
		PermitIf(TriggerReject, entity.StageRejected, guard)
	return b
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state entity.StageState) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState entity.StageState) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy so later Configure calls do not leak into built machines
	configsCopy := make(map[entity.StageState]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState entity.StageState) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState entity.StageState, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// State returns the current state
func (m *stateMachine) State() entity.StageState {
	return m.currentState
}

// CanFire returns true if the trigger is configured in the current state.
// Guards are not evaluated here.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}
