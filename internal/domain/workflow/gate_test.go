package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

var decidedAt = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestRequest(t *testing.T, gate *Gate, reqType entity.RequestType, role entity.Role, dept string) *entity.Request {
	t.Helper()
	routing, err := gate.Router().Resolve(reqType, role, dept)
	require.NoError(t, err)
	return &entity.Request{
		ID:                  7,
		RequesterID:         "u-1",
		Type:                reqType,
		RequesterRole:       role,
		RequesterDepartment: dept,
		Stages:              routing.InitialStatuses(),
	}
}

func decide(t *testing.T, gate *Gate, req *entity.Request, role entity.Role, d Decision) (*entity.Request, error) {
	t.Helper()
	out, err := gate.Apply(context.Background(), req, role, "", d, "", decidedAt)
	if err != nil {
		return req, err
	}
	return out.Request, nil
}

func TestGate_Sequencing(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	assert.True(t, gate.CanApprove(entity.RoleHOD, req))
	assert.False(t, gate.CanApprove(entity.RoleHRM, req))

	_, err := decide(t, gate, req, entity.RoleHRM, DecisionApproved)
	assert.True(t, errors.Is(err, ErrForbidden))

	var forbiddenErr *ForbiddenError
	require.True(t, errors.As(err, &forbiddenErr))
	assert.Equal(t, entity.StageHRM, forbiddenErr.Stage)
	assert.Contains(t, forbiddenErr.Reason, "hod")

	req, err = decide(t, gate, req, entity.RoleHOD, DecisionApproved)
	require.NoError(t, err)
	assert.True(t, gate.CanApprove(entity.RoleHRM, req))

	req, err = decide(t, gate, req, entity.RoleHRM, DecisionApproved)
	require.NoError(t, err)
	assert.Equal(t, entity.StageApproved, req.Stages.Get(entity.StageHRM).State)
}

func TestGate_RoleWithoutResponsibility(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeSalaryAdvance, entity.RoleEmployee, "Membership")

	tests := []struct {
		name string
		role entity.Role
	}{
		{"hod has no stage under salary advance", entity.RoleHOD},
		{"auditor has no stage under salary advance", entity.RoleInternalAuditor},
		{"employees never approve", entity.RoleEmployee},
		{"unknown role", entity.Role(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, gate.CanApprove(tt.role, req))
			_, err := decide(t, gate, req, tt.role, DecisionApproved)
			assert.True(t, errors.Is(err, ErrForbidden))
		})
	}
}

func TestGate_RejectionHaltsProgress(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	req, err := decide(t, gate, req, entity.RoleHOD, DecisionApproved)
	require.NoError(t, err)
	req, err = decide(t, gate, req, entity.RoleHRM, DecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestRejected, req.Status())

	for _, role := range []entity.Role{entity.RoleInternalAuditor, entity.RoleFinance, entity.RoleExecutiveDirector, entity.RoleAdmin} {
		assert.False(t, gate.CanApprove(role, req), role.String())
		_, err := decide(t, gate, req, role, DecisionApproved)
		assert.True(t, errors.Is(err, ErrForbidden), role.String())
	}

	// admin cannot reopen a rejected request through an explicit stage either
	_, err = gate.Apply(context.Background(), req, entity.RoleAdmin, entity.StageFinance, DecisionApproved, "", decidedAt)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestGate_AdminOverride(t *testing.T) {
	gate := NewGate(nil)
	ctx := context.Background()

	for _, stage := range entity.CanonicalStages() {
		t.Run(stage.String(), func(t *testing.T) {
			req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

			out, err := gate.Apply(ctx, req, entity.RoleAdmin, stage, DecisionApproved, "override", decidedAt)
			require.NoError(t, err)
			assert.Equal(t, stage, out.Stage)
			assert.Equal(t, entity.StageApproved, out.Request.Stages.Get(stage).State)
			assert.Equal(t, entity.RoleAdmin, out.Request.Stages.Get(stage).DecidedBy)
		})
	}
}

func TestGate_AdminDefaultsToFirstPendingStage(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Internal Audit")

	target, err := gate.Authorize(entity.RoleAdmin, req, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StageAuditor, target)

	_, err = gate.Authorize(entity.RoleAdmin, req, entity.StageHOD)
	assert.True(t, errors.Is(err, ErrForbidden), "not applicable stages are never decided")
}

func TestApply_AdminRequiresExplicitStage(t *testing.T) {
	gate := NewGate(nil)
	ctx := context.Background()
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	_, err := gate.Apply(ctx, req, entity.RoleAdmin, "", DecisionApproved, "", decidedAt)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.True(t, gate.CanApprove(entity.RoleAdmin, req))

	out, err := gate.Apply(ctx, req, entity.RoleAdmin, entity.StageHOD, DecisionApproved, "", decidedAt)
	require.NoError(t, err)

	// a retry of the same admin action against the updated record
	_, err = gate.Apply(ctx, out.Request, entity.RoleAdmin, entity.StageHOD, DecisionApproved, "", decidedAt)
	assert.True(t, errors.Is(err, ErrAlreadyDecided))
	assert.Equal(t, entity.StagePending, out.Request.Stages.Get(entity.StageHRM).State)
}

func TestGate_ExplicitStageMustMatchRole(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	_, err := gate.Authorize(entity.RoleFinance, req, entity.StageHOD)
	assert.True(t, errors.Is(err, ErrForbidden))

	target, err := gate.Authorize(entity.RoleHOD, req, entity.StageHOD)
	require.NoError(t, err)
	assert.Equal(t, entity.StageHOD, target)

	_, err = gate.Authorize(entity.RoleHOD, req, entity.Stage("board"))
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestGate_AlreadyDecided(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	decided, err := decide(t, gate, req, entity.RoleHOD, DecisionApproved)
	require.NoError(t, err)

	// a stale retry against the updated record
	_, err = decide(t, gate, decided, entity.RoleHOD, DecisionApproved)
	assert.True(t, errors.Is(err, ErrAlreadyDecided))
	assert.False(t, gate.CanApprove(entity.RoleHOD, decided))

	// the input record was not mutated
	assert.Equal(t, entity.StagePending, req.Stages.Get(entity.StageHOD).State)
}

func TestGate_UnknownRoutingFailsClosed(t *testing.T) {
	gate := NewGate(nil)
	req := &entity.Request{
		ID:            1,
		Type:          entity.RequestType("Petty cash"),
		RequesterRole: entity.RoleEmployee,
		Stages:        entity.Stages{entity.StageHOD: {Stage: entity.StageHOD, State: entity.StagePending}},
	}

	for _, role := range entity.AllRoles() {
		assert.False(t, gate.CanApprove(role, req), role.String())
	}
	_, err := decide(t, gate, req, entity.RoleAdmin, DecisionApproved)
	assert.True(t, errors.Is(err, ErrUnknownRoutingCase))
}

func TestGate_SalaryAdvanceByFinanceWaitsOnHRM(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeSalaryAdvance, entity.RoleFinance, "Finance")

	assert.False(t, gate.CanApprove(entity.RoleExecutiveDirector, req))
	assert.False(t, gate.CanApprove(entity.RoleFinance, req))

	req, err := decide(t, gate, req, entity.RoleHRM, DecisionApproved)
	require.NoError(t, err)
	assert.True(t, gate.CanApprove(entity.RoleExecutiveDirector, req))
}

func TestApply_Outcome(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeTCCIARetirement, entity.RoleEmployee, "Membership")

	out, err := gate.Apply(context.Background(), req, entity.RoleFinance, "", DecisionApproved, "  receipts ok ", decidedAt)
	require.NoError(t, err)
	assert.Equal(t, entity.StageFinance, out.Stage)
	assert.Equal(t, "receipts ok", out.Remark)
	assert.False(t, out.Finalized)
	assert.Equal(t, entity.RequestInProgress, out.Status)

	st := out.Request.Stages.Get(entity.StageFinance)
	require.NotNil(t, st.DecidedAt)
	assert.True(t, decidedAt.Equal(*st.DecidedAt))
	assert.Equal(t, decidedAt, out.Request.UpdatedAt)

	out, err = gate.Apply(context.Background(), out.Request, entity.RoleExecutiveDirector, "", DecisionApproved, "", decidedAt)
	require.NoError(t, err)
	assert.True(t, out.Finalized)
	assert.Equal(t, entity.RequestApproved, out.Status)
}

func TestApply_InvalidDecision(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	_, err := gate.Apply(context.Background(), req, entity.RoleHOD, "", Decision("maybe"), "", decidedAt)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestScenario_EmployeeImprestRejectedByHRM(t *testing.T) {
	gate := NewGate(nil)
	req := newTestRequest(t, gate, entity.TypeImprest, entity.RoleEmployee, "Membership")

	for _, s := range entity.CanonicalStages() {
		assert.Equal(t, entity.StagePending, req.Stages.Get(s).State)
	}

	req, err := decide(t, gate, req, entity.RoleHOD, DecisionApproved)
	require.NoError(t, err)
	assert.True(t, gate.CanApprove(entity.RoleHRM, req))

	out, err := gate.Apply(context.Background(), req, entity.RoleHRM, "", DecisionRejected, "missing quotation", decidedAt)
	require.NoError(t, err)
	assert.True(t, out.Finalized)
	assert.Equal(t, entity.RequestRejected, out.Status)

	for _, role := range []entity.Role{entity.RoleInternalAuditor, entity.RoleFinance, entity.RoleExecutiveDirector} {
		_, err := decide(t, gate, out.Request, role, DecisionApproved)
		assert.True(t, errors.Is(err, ErrForbidden), role.String())
	}
}
