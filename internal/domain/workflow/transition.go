package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Outcome is the result of applying one decision
type Outcome struct {
	// Request is a copy of the input with the decision applied
	Request    *entity.Request
	Stage      entity.Stage
	Decision   Decision
	ActingRole entity.Role
	Remark     string
	DecidedAt  time.Time

	// Finalized is true when this decision moved the request to approved or rejected
	Finalized bool
	Status    entity.RequestStatus
}

// Apply records decision on one stage of req. An empty stage means the
// role's own stage. Admin must always name the stage, since its default
// target moves as stages are decided and a retry would land on the next one.
// req itself is not modified.
func (g *Gate) Apply(ctx context.Context, req *entity.Request, role entity.Role, stage entity.Stage,
	decision Decision, remark string, at time.Time) (*Outcome, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidRequest, decision)
	}

	target, authErr := g.authorize(role, req, stage)
	if role.IsAdmin() && stage == "" {
		if authErr != nil {
			return nil, authErr
		}
		return nil, fmt.Errorf("%w: admin decisions must name the stage", ErrInvalidRequest)
	}
	if target == "" {
		return nil, authErr
	}

	current := req.Stages.Get(target)
	machine := NewStageBuilder(func(context.Context) bool {
		return authErr == nil
	}).Build(current.State)

	// a stage that left pending takes no further decision, whoever asks
	if !machine.CanFire(decision.Trigger()) {
		if current.State != entity.StageNotApplicable {
			return nil, alreadyDecided(req, target, current.State)
		}
		if authErr != nil {
			return nil, authErr
		}
		return nil, fmt.Errorf("%w: stage %s is %s", ErrInvalidTransition, target, current.State)
	}

	if err := machine.Fire(ctx, decision.Trigger()); err != nil {
		if errors.Is(err, ErrGuardFailed) && authErr != nil {
			return nil, authErr
		}
		return nil, err
	}

	decidedAt := at.UTC()
	updated := req.Clone()
	updated.Stages[target] = entity.StageStatus{
		Stage:     target,
		State:     machine.State(),
		Remark:    strings.TrimSpace(remark),
		DecidedAt: &decidedAt,
		DecidedBy: role,
	}
	updated.UpdatedAt = decidedAt

	status := updated.Status()
	return &Outcome{
		Request:    updated,
		Stage:      target,
		Decision:   decision,
		ActingRole: role,
		Remark:     updated.Stages[target].Remark,
		DecidedAt:  decidedAt,
		Finalized:  status != entity.RequestInProgress && !req.IsTerminal(),
		Status:     status,
	}, nil
}
