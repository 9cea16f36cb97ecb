package entity

import (
	"fmt"
	"time"
)

// Stage is one of the five named approval checkpoints
type Stage string

const (
	StageHOD     Stage = "hod"
	StageHRM     Stage = "hrm"
	StageAuditor Stage = "auditor"
	StageFinance Stage = "finance"
	StageED      Stage = "ed"
)

// CanonicalStages returns the stages in canonical order hod → hrm → auditor → finance → ed
func CanonicalStages() []Stage {
	return []Stage{StageHOD, StageHRM, StageAuditor, StageFinance, StageED}
}

// IsValid returns true if the stage is one of the five slots
func (s Stage) IsValid() bool {
	switch s {
	case StageHOD, StageHRM, StageAuditor, StageFinance, StageED:
		return true
	default:
		return false
	}
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// ParseStage validates a stage name
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown stage: %q", s)
	}
	return st, nil
}

// StageState is the lifecycle state of a single stage
type StageState string

const (
	StageNotApplicable StageState = "not_applicable"
	StagePending       StageState = "pending"
	StageApproved      StageState = "approved"
	StageRejected      StageState = "rejected"
)

var validStageStates = map[StageState]bool{
	StageNotApplicable: true,
	StagePending:       true,
	StageApproved:      true,
	StageRejected:      true,
}

var terminalStageStates = map[StageState]bool{
	StageNotApplicable: true,
	StageApproved:      true,
	StageRejected:      true,
}

// IsTerminal returns true if no transition leaves the state
func (s StageState) IsTerminal() bool {
	return terminalStageStates[s]
}

// IsValid returns true if the state is a valid stage state
func (s StageState) IsValid() bool {
	return validStageStates[s]
}

// Clears reports whether the state lets downstream stages proceed.
// not_applicable counts as approved for sequencing.
func (s StageState) Clears() bool {
	return s == StageApproved || s == StageNotApplicable
}

// String returns the string representation of the state
func (s StageState) String() string {
	return string(s)
}

// StageStatus is the status record of one stage of one request
type StageStatus struct {
	Stage     Stage      `json:"stage"`
	State     StageState `json:"state"`
	Remark    string     `json:"remark,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	// DecidedBy is the acting role; zero while pending or not applicable
	DecidedBy Role `json:"decided_by,omitempty"`
}

// Stages holds exactly five stage slots
type Stages map[Stage]StageStatus

// Get returns the status of a stage, or not_applicable if the slot is missing
func (s Stages) Get(stage Stage) StageStatus {
	if st, ok := s[stage]; ok {
		return st
	}
	return StageStatus{Stage: stage, State: StageNotApplicable}
}

// Clone returns a deep copy
func (s Stages) Clone() Stages {
	out := make(Stages, len(s))
	for k, v := range s {
		if v.DecidedAt != nil {
			t := *v.DecidedAt
			v.DecidedAt = &t
		}
		out[k] = v
	}
	return out
}

// Ordered returns the statuses in canonical order
func (s Stages) Ordered() []StageStatus {
	out := make([]StageStatus, 0, 5)
	for _, stage := range CanonicalStages() {
		out = append(out, s.Get(stage))
	}
	return out
}
