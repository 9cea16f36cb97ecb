package workflow

import (
	"fmt"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Gate answers whether an acting role may currently record a decision on a request.
// It consults the same Router that seeded the request.
type Gate struct {
	router *Router
}

// NewGate creates a gate over a router
func NewGate(router *Router) *Gate {
	if router == nil {
		router = NewRouter(nil)
	}
	return &Gate{router: router}
}

// Router returns the router the gate resolves routings with
func (g *Gate) Router() *Router {
	return g.router
}

// CanApprove reports whether role may decide some stage of req right now.
// An unroutable request is never actionable.
func (g *Gate) CanApprove(role entity.Role, req *entity.Request) bool {
	_, err := g.Authorize(role, req, "")
	return err == nil
}

// Authorize returns the stage role would decide on req. An empty stage lets
// the gate pick it: the role's own stage, or for admin the first pending stage
// in routing order. Apply refuses that admin default; it only answers CanApprove.
//
// Errors are ForbiddenError, UnknownRoutingError, or wrap ErrAlreadyDecided
// when the target stage has already left pending.
func (g *Gate) Authorize(role entity.Role, req *entity.Request, stage entity.Stage) (entity.Stage, error) {
	target, err := g.authorize(role, req, stage)
	if err != nil {
		return "", err
	}
	return target, nil
}

// authorize is Authorize but also returns the target stage alongside a refusal
// whenever one could be determined.
func (g *Gate) authorize(role entity.Role, req *entity.Request, stage entity.Stage) (entity.Stage, error) {
	if req == nil {
		return "", fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if stage != "" && !stage.IsValid() {
		return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidRequest, stage)
	}
	if !role.IsValid() {
		return "", forbidden(req, role, stage, "unknown role")
	}

	routing, err := g.router.ResolveRequest(req)
	if err != nil {
		return "", err
	}

	if role.IsAdmin() {
		return g.authorizeAdmin(routing, role, req, stage)
	}

	own, ok := role.Stage()
	if !ok {
		return "", forbidden(req, role, stage, "role does not approve any stage")
	}
	if stage != "" && stage != own {
		return "", forbidden(req, role, stage, fmt.Sprintf("stage belongs to %s", roleFor(stage)))
	}
	if !routing.IsApplicable(own) {
		return own, forbidden(req, role, own, fmt.Sprintf("stage is not part of the %s routing", routing.Rule))
	}

	if err := checkOpen(req, role, own); err != nil {
		return own, err
	}

	for _, up := range routing.Upstream(own) {
		upState := req.Stages.Get(up).State
		if !upState.Clears() {
			return own, forbidden(req, role, own, fmt.Sprintf("waiting on %s stage (%s)", up, upState))
		}
	}
	return own, nil
}

// authorizeAdmin applies the admin override: any pending stage of an open
// request, regardless of predecessor states.
func (g *Gate) authorizeAdmin(routing *Routing, role entity.Role, req *entity.Request, stage entity.Stage) (entity.Stage, error) {
	if stage == "" {
		first, ok := routing.FirstPending(req.Stages)
		if !ok {
			if req.Status() == entity.RequestRejected {
				return "", forbidden(req, role, "", "request was rejected")
			}
			return "", fmt.Errorf("%w: request %d has no pending stage", ErrAlreadyDecided, req.ID)
		}
		stage = first
	}
	if err := checkOpen(req, role, stage); err != nil {
		return stage, err
	}
	return stage, nil
}

// checkOpen refuses stages that already left pending, stages that are not
// applicable and requests that are no longer in progress.
func checkOpen(req *entity.Request, role entity.Role, stage entity.Stage) error {
	switch st := req.Stages.Get(stage); st.State {
	case entity.StageApproved, entity.StageRejected:
		return alreadyDecided(req, stage, st.State)
	case entity.StageNotApplicable:
		return forbidden(req, role, stage, "stage is not applicable")
	}
	if status := req.Status(); status != entity.RequestInProgress {
		return forbidden(req, role, stage, fmt.Sprintf("request is %s", status))
	}
	return nil
}

func forbidden(req *entity.Request, role entity.Role, stage entity.Stage, reason string) error {
	return &ForbiddenError{RequestID: req.ID, Role: role, Stage: stage, Reason: reason}
}

func alreadyDecided(req *entity.Request, stage entity.Stage, state entity.StageState) error {
	return fmt.Errorf("%w: request %d stage %s is %s", ErrAlreadyDecided, req.ID, stage, state)
}

func roleFor(stage entity.Stage) string {
	if role, ok := entity.RoleForStage(stage); ok {
		return role.String()
	}
	return "no role"
}
