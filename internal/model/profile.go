package model

import "time"

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type Profile struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	FamilyID    *int64    `json:"family_id"`
	Coins       int       `json:"coins"`
	StreakCount int       `json:"streak_count"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	HasPIN      bool      `json:"has_pin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
