package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the overall status derived from stage states
type RequestStatus string

const (
	RequestInProgress RequestStatus = "in_progress"
	RequestApproved   RequestStatus = "approved"
	RequestRejected   RequestStatus = "rejected"
)

// Request is one expense or leave request travelling through the approval stages
type Request struct {
	ID          int64       `json:"id"`
	RequesterID string      `json:"requester_id"`
	Type        RequestType `json:"type"`

	// Requester role and department as they were at creation. Routing is
	// always recomputed from this snapshot.
	RequesterRole       Role   `json:"requester_role"`
	RequesterDepartment string `json:"requester_department"`

	Stages  Stages            `json:"stages"`
	Details map[string]string `json:"details,omitempty"`

	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DaysApplied   int              `json:"days_applied,omitempty"`
	AttachmentRef string           `json:"attachment_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status derives the overall request status.
// Any rejected stage makes the request terminal-rejected; it is terminal-approved
// only once the ed stage is approved.
func (r *Request) Status() RequestStatus {
	for _, st := range r.Stages {
		if st.State == StageRejected {
			return RequestRejected
		}
	}
	if r.Stages.Get(StageED).State == StageApproved {
		return RequestApproved
	}
	return RequestInProgress
}

// IsTerminal reports whether no further decision can be recorded
func (r *Request) IsTerminal() bool {
	return r.Status() != RequestInProgress
}

// Clone returns a deep copy of the request
func (r *Request) Clone() *Request {
	out := *r
	out.Stages = r.Stages.Clone()
	if r.Details != nil {
		out.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			out.Details[k] = v
		}
	}
	if r.Amount != nil {
		a := *r.Amount
		out.Amount = &a
	}
	return &out
}
