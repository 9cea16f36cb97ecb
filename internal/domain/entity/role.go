package entity

import (
	"fmt"
	"strings"
)

// Role is an organizational role. The integer values are persisted and must not change.
type Role int

const (
	RoleEmployee          Role = 1
	RoleHRM               Role = 2
	RoleHOD               Role = 3
	RoleExecutiveDirector Role = 4
	RoleFinance           Role = 5
	RoleInternalAuditor   Role = 6
	RoleAdmin             Role = 7
)

var roleNames = map[Role]string{
	RoleEmployee:          "Employee",
	RoleHRM:               "HRM",
	RoleHOD:               "HOD",
	RoleExecutiveDirector: "Executive Director",
	RoleFinance:           "Finance",
	RoleInternalAuditor:   "Internal Auditor",
	RoleAdmin:             "Admin",
}

// roleStages maps each approving role to the stage it is responsible for.
var roleStages = map[Role]Stage{
	RoleHOD:               StageHOD,
	RoleHRM:               StageHRM,
	RoleInternalAuditor:   StageAuditor,
	RoleFinance:           StageFinance,
	RoleExecutiveDirector: StageED,
}

// AllRoles returns every role in registry order
func AllRoles() []Role {
	return []Role{
		RoleEmployee,
		RoleHRM,
		RoleHOD,
		RoleExecutiveDirector,
		RoleFinance,
		RoleInternalAuditor,
		RoleAdmin,
	}
}

// IsValid returns true if the role is part of the registry
func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsAdmin reports whether the role bypasses the approval gate
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Stage returns the canonical stage the role decides, if any
func (r Role) Stage() (Stage, bool) {
	s, ok := roleStages[r]
	return s, ok
}

// String returns the display name of the role
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole resolves a role from its display name (case and punctuation insensitive)
func ParseRole(s string) (Role, error) {
	key := foldKey(s)
	for role, name := range roleNames {
		if foldKey(name) == key {
			return role, nil
		}
	}
	switch key {
	case "ed", "executive":
		return RoleExecutiveDirector, nil
	case "auditor":
		return RoleInternalAuditor, nil
	case "hr":
		return RoleHRM, nil
	}
	return 0, fmt.Errorf("unknown role: %q", s)
}

// RoleForStage returns the role responsible for a stage
func RoleForStage(s Stage) (Role, bool) {
	for role, stage := range roleStages {
		if stage == s {
			return role, true
		}
	}
	return 0, false
}

// foldKey lowercases s and drops everything except letters and digits
func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
