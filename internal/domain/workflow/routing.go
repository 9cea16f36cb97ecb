package workflow

import (
	"github.com/garyjia/approval-router/internal/domain/entity"
)

// Rule identifies which row of the routing table resolved a request
type Rule string

const (
	RuleSalaryAdvance           Rule = "salary_advance"
	RuleTCCIARetirement         Rule = "tccia_retirement"
	RuleInternalAuditDepartment Rule = "internal_audit_department"
	RuleDefault                 Rule = "default"
)

// StageRoute is the routing of one stage for one request
type StageRoute struct {
	Stage        entity.Stage   `json:"stage"`
	Applicable   bool           `json:"applicable"`
	Predecessors []entity.Stage `json:"predecessors,omitempty"`
}

// Routing is the resolved ordering and applicability of the five stages
type Routing struct {
	Rule Rule `json:"rule"`

	// Stages holds all five slots in canonical order
	Stages [5]StageRoute `json:"stages"`

	// Order lists the applicable stages in decision order
	Order []entity.Stage `json:"order"`

	// DepartmentGroup is the alias group the requester department fell into,
	// with the normalized spellings of that group
	DepartmentGroup   DepartmentGroup `json:"department_group,omitempty"`
	DepartmentAliases []string        `json:"department_aliases,omitempty"`
}

// step declares one applicable stage and the stages it waits on
type step struct {
	stage entity.Stage
	after []entity.Stage
}

// chain declares stages that are decided one after the other
func chain(stages ...entity.Stage) []step {
	steps := make([]step, len(stages))
	for i, s := range stages {
		steps[i] = step{stage: s}
		if i > 0 {
			steps[i].after = []entity.Stage{stages[i-1]}
		}
	}
	return steps
}

const (
	hod     = entity.StageHOD
	hrm     = entity.StageHRM
	auditor = entity.StageAuditor
	finance = entity.StageFinance
	ed      = entity.StageED
)

// Stages absent from a pipeline are not applicable.
var (
	salaryAdvanceByRole = map[entity.Role][]step{
		entity.RoleHRM: chain(finance, ed),
		entity.RoleFinance: {
			{stage: hrm},
			{stage: ed, after: []entity.Stage{hrm, finance}},
		},
	}
	salaryAdvancePipeline = chain(hrm, finance, ed)

	tcciaRetirementPipeline = chain(finance, ed)

	internalAuditPipeline = chain(auditor, hrm, finance, ed)

	// defaultByRole is the canonical hod, hrm, auditor, finance, ed pipeline
	// with the requester's own stage bypassed. hod never reviews a peer
	// approver, and ed is never bypassed because only its approval
	// completes a request.
	defaultByRole = map[entity.Role][]step{
		entity.RoleEmployee:          chain(hod, hrm, auditor, finance, ed),
		entity.RoleHOD:               chain(hrm, auditor, finance, ed),
		entity.RoleHRM:               chain(auditor, finance, ed),
		entity.RoleInternalAuditor:   chain(hrm, finance, ed),
		entity.RoleFinance:           chain(hrm, auditor, ed),
		entity.RoleExecutiveDirector: chain(hrm, auditor, finance, ed),
		entity.RoleAdmin:             chain(hrm, auditor, finance, ed),
	}
)

// routingRule is one row of the routing table
type routingRule struct {
	rule    Rule
	matches func(t entity.RequestType, group DepartmentGroup) bool
	steps   func(role entity.Role) ([]step, bool)
}

// routingTable is evaluated top to bottom; the first matching row wins.
// Type rows dominate the department row, which dominates role self-bypass.
var routingTable = []routingRule{
	{
		rule: RuleSalaryAdvance,
		matches: func(t entity.RequestType, _ DepartmentGroup) bool {
			return t == entity.TypeSalaryAdvance
		},
		steps: func(role entity.Role) ([]step, bool) {
			if steps, ok := salaryAdvanceByRole[role]; ok {
				return steps, true
			}
			return salaryAdvancePipeline, true
		},
	},
	{
		rule: RuleTCCIARetirement,
		matches: func(t entity.RequestType, _ DepartmentGroup) bool {
			return t == entity.TypeTCCIARetirement
		},
		steps: func(entity.Role) ([]step, bool) {
			return tcciaRetirementPipeline, true
		},
	},
	{
		rule: RuleInternalAuditDepartment,
		matches: func(_ entity.RequestType, group DepartmentGroup) bool {
			return group == DepartmentGroupInternalAudit
		},
		steps: func(entity.Role) ([]step, bool) {
			return internalAuditPipeline, true
		},
	},
	{
		rule: RuleDefault,
		matches: func(entity.RequestType, DepartmentGroup) bool {
			return true
		},
		steps: func(role entity.Role) ([]step, bool) {
			steps, ok := defaultByRole[role]
			return steps, ok
		},
	},
}

// Router resolves routings from the routing table
type Router struct {
	departments *DepartmentClassifier
}

// NewRouter creates a router. A nil classifier uses the default alias groups.
func NewRouter(departments *DepartmentClassifier) *Router {
	if departments == nil {
		departments = NewDepartmentClassifier(DefaultDepartmentAliases())
	}
	return &Router{departments: departments}
}

// Resolve returns the routing for a request type, requester role and department.
// Any triple without a rule fails with UnknownRoutingError.
func (r *Router) Resolve(t entity.RequestType, role entity.Role, department string) (*Routing, error) {
	unknown := &UnknownRoutingError{Type: t, Role: role, Department: department}
	if !t.IsValid() || !role.IsValid() {
		return nil, unknown
	}

	group := r.departments.Classify(department)
	for _, row := range routingTable {
		if !row.matches(t, group) {
			continue
		}
		steps, ok := row.steps(role)
		if !ok || len(steps) == 0 {
			return nil, unknown
		}
		routing := newRouting(row.rule, steps)
		if group != DepartmentGroupNone {
			routing.DepartmentGroup = group
			routing.DepartmentAliases = r.departments.Aliases(group)
		}
		return routing, nil
	}
	return nil, unknown
}

// ResolveRequest resolves the routing from the requester snapshot on a request
func (r *Router) ResolveRequest(req *entity.Request) (*Routing, error) {
	return r.Resolve(req.Type, req.RequesterRole, req.RequesterDepartment)
}

func newRouting(rule Rule, steps []step) *Routing {
	routing := &Routing{Rule: rule, Order: make([]entity.Stage, 0, len(steps))}
	byStage := make(map[entity.Stage]step, len(steps))
	for _, s := range steps {
		byStage[s.stage] = s
		routing.Order = append(routing.Order, s.stage)
	}

	for i, stage := range entity.CanonicalStages() {
		route := StageRoute{Stage: stage}
		if s, ok := byStage[stage]; ok {
			route.Applicable = true
			route.Predecessors = append([]entity.Stage(nil), s.after...)
		}
		routing.Stages[i] = route
	}
	return routing
}

// Route returns the routing of one stage
func (r *Routing) Route(stage entity.Stage) StageRoute {
	for _, route := range r.Stages {
		if route.Stage == stage {
			return route
		}
	}
	return StageRoute{Stage: stage}
}

// IsApplicable reports whether a stage takes part in this routing
func (r *Routing) IsApplicable(stage entity.Stage) bool {
	return r.Route(stage).Applicable
}

// InitialStatuses returns the five stage statuses a new request starts with
func (r *Routing) InitialStatuses() entity.Stages {
	stages := make(entity.Stages, len(r.Stages))
	for _, route := range r.Stages {
		state := entity.StageNotApplicable
		if route.Applicable {
			state = entity.StagePending
		}
		stages[route.Stage] = entity.StageStatus{Stage: route.Stage, State: state}
	}
	return stages
}

// Upstream returns every stage the given stage transitively waits on, in canonical order
func (r *Routing) Upstream(stage entity.Stage) []entity.Stage {
	seen := make(map[entity.Stage]bool)
	queue := append([]entity.Stage(nil), r.Route(stage).Predecessors...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] || next == stage {
			continue
		}
		seen[next] = true
		queue = append(queue, r.Route(next).Predecessors...)
	}

	out := make([]entity.Stage, 0, len(seen))
	for _, s := range entity.CanonicalStages() {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// FirstPending returns the first pending stage in decision order
func (r *Routing) FirstPending(stages entity.Stages) (entity.Stage, bool) {
	for _, stage := range r.Order {
		if stages.Get(stage).State == entity.StagePending {
			return stage, true
		}
	}
	return "", false
}

// Actionable returns the pending stages whose upstream stages have all cleared.
// A request that is no longer in progress has none.
func (r *Routing) Actionable(stages entity.Stages) []entity.Stage {
	req := entity.Request{Stages: stages}
	if req.IsTerminal() {
		return nil
	}

	var out []entity.Stage
	for _, stage := range r.Order {
		if stages.Get(stage).State != entity.StagePending {
			continue
		}
		if r.upstreamClear(stage, stages) {
			out = append(out, stage)
		}
	}
	return out
}

func (r *Routing) upstreamClear(stage entity.Stage, stages entity.Stages) bool {
	for _, up := range r.Upstream(stage) {
		if !stages.Get(up).State.Clears() {
			return false
		}
	}
	return true
}
