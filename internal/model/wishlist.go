package model

import "time"

type WishlistItem struct {
	ID        int64     `json:"id"`
	ChildID   int64     `json:"child_id"`
	Title     string    `json:"title"`
	CostCoins int       `json:"cost_coins"`
	Redeemed  bool      `json:"redeemed"`
	CanAfford bool      `json:"can_afford"`
	CreatedAt time.Time `json:"created_at"`
}
