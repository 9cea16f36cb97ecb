package entity

import "time"

// History action types
const (
	HistoryActionCreate  = "CREATE"
	HistoryActionApprove = "APPROVE"
	HistoryActionReject  = "REJECT"
)

// RequestHistory is the append-only audit trail of a request
type RequestHistory struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	ActorID   string    `json:"actor_id"`
	ActorRole Role      `json:"actor_role"`
	Stage     Stage     `json:"stage,omitempty"`
	Action    string    `json:"action"`
	Remark    string    `json:"remark,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
