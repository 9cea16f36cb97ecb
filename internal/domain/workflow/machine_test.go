package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

func TestTrigger_String(t *testing.T) {
	if got := TriggerApprove.String(); got != "APPROVE" {
		t.Errorf("Trigger.String() = %v, want %v", got, "APPROVE")
	}
}

func TestDecision_Trigger(t *testing.T) {
	tests := []struct {
		decision Decision
		trigger  Trigger
		state    entity.StageState
	}{
		{DecisionApproved, TriggerApprove, entity.StageApproved},
		{DecisionRejected, TriggerReject, entity.StageRejected},
	}

	for _, tt := range tests {
		t.Run(tt.decision.String(), func(t *testing.T) {
			if got := tt.decision.Trigger(); got != tt.trigger {
				t.Errorf("Decision.Trigger() = %v, want %v", got, tt.trigger)
			}
			if got := tt.decision.State(); got != tt.state {
				t.Errorf("Decision.State() = %v, want %v", got, tt.state)
			}
		})
	}
}

func TestParseDecision(t *testing.T) {
	for _, in := range []string{"approved", "approve"} {
		if d, err := ParseDecision(in); err != nil || d != DecisionApproved {
			t.Errorf("ParseDecision(%q) = %v, %v", in, d, err)
		}
	}
	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ParseDecision() error = %v, want %v", err, ErrInvalidRequest)
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(entity.StagePending)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	// Configure same state again should return same config
	config2 := builder.Configure(entity.StagePending)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(entity.StageState("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(entity.StageState("INVALID"))
}

func TestStageBuilder_Approve(t *testing.T) {
	machine := NewStageBuilder(nil).Build(entity.StagePending)

	if !machine.CanFire(TriggerApprove) {
		t.Error("CanFire() should return true for permitted trigger")
	}

	if err := machine.Fire(context.Background(), TriggerApprove); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != entity.StageApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), entity.StageApproved)
	}
}

func TestStageBuilder_Reject(t *testing.T) {
	machine := NewStageBuilder(nil).Build(entity.StagePending)

	if err := machine.Fire(context.Background(), TriggerReject); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != entity.StageRejected {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), entity.StageRejected)
	}
}

func TestStageBuilder_GuardFails(t *testing.T) {
	machine := NewStageBuilder(func(ctx context.Context) bool {
		return false
	}).Build(entity.StagePending)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.State() != entity.StagePending {
		t.Errorf("State should remain %v after failed Fire(), got %v", entity.StagePending, machine.State())
	}
}

func TestStageBuilder_TerminalStatesAreFinal(t *testing.T) {
	for _, state := range []entity.StageState{entity.StageApproved, entity.StageRejected, entity.StageNotApplicable} {
		t.Run(state.String(), func(t *testing.T) {
			machine := NewStageBuilder(nil).Build(state)

			for _, trigger := range []Trigger{TriggerApprove, TriggerReject} {
				if machine.CanFire(trigger) {
					t.Errorf("CanFire(%v) should be false in %v", trigger, state)
				}
				if err := machine.Fire(context.Background(), trigger); !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("Fire(%v) error = %v, want %v", trigger, err, ErrInvalidTransition)
				}
			}
		})
	}
}

func TestStateConfiguration_PermitIf_MultipleTransitions(t *testing.T) {
	type key struct{}

	builder := NewBuilder()
	builder.Configure(entity.StagePending).
		PermitIf(TriggerApprove, entity.StageApproved, func(ctx context.Context) bool {
			return ctx.Value(key{}).(bool)
		}).
		PermitIf(TriggerApprove, entity.StageRejected, func(ctx context.Context) bool {
			return !ctx.Value(key{}).(bool)
		})

	machine1 := builder.Build(entity.StagePending)
	if err := machine1.Fire(context.WithValue(context.Background(), key{}, true), TriggerApprove); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine1.State() != entity.StageApproved {
		t.Errorf("State after Fire() = %v, want %v", machine1.State(), entity.StageApproved)
	}

	// first guard fails, second passes
	machine2 := builder.Build(entity.StagePending)
	if err := machine2.Fire(context.WithValue(context.Background(), key{}, false), TriggerApprove); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != entity.StageRejected {
		t.Errorf("State after Fire() = %v, want %v", machine2.State(), entity.StageRejected)
	}
}

func TestBuilder_BuildCopiesConfiguration(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(entity.StagePending).Permit(TriggerApprove, entity.StageApproved)
	machine := builder.Build(entity.StagePending)

	builder.Configure(entity.StagePending).Permit(TriggerReject, entity.StageRejected)

	if machine.CanFire(TriggerReject) {
		t.Error("configuration added after Build() should not reach the built machine")
	}
}
