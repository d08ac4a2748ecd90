package model

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Completion struct {
	ID               int64      `json:"id"`
	AssignmentID     int64      `json:"assignment_id"`
	CompletedForDate string     `json:"completed_for_date"` // YYYY-MM-DD
	Status           string     `json:"status"`
	ApprovedBy       *int64     `json:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at"`
	ClaimedAt        time.Time  `json:"claimed_at"`
}

// PendingCompletion is a completion joined with what a parent needs to
// review it: whose claim it is and what it is worth.
type PendingCompletion struct {
	Completion
	ChoreID    int64  `json:"chore_id"`
	ChoreTitle string `json:"chore_title"`
	Points     int    `json:"points"`
	ChildID    int64  `json:"child_id"`
	ChildName  string `json:"child_name"`
}
