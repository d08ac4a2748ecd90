package model

import "time"

const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

type Chore struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Title     string    `json:"title"`
	// Frequency is a presentation label; scheduling is decided by ActiveDays alone.
	Frequency  string    `json:"frequency"`
	Points     int       `json:"points"`
	ActiveDays string    `json:"active_days"` // "MO,WE,FR"; empty = every day
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type Assignment struct {
	ID        int64     `json:"id"`
	ChoreID   int64     `json:"chore_id"`
	ChildID   int64     `json:"child_id"`
	CreatedAt time.Time `json:"created_at"`
}
