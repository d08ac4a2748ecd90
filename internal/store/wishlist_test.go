package store

import (
	"testing"

	"github.com/dukerupert/bywater/internal/model"
)

func TestWishlistCanAffordTracksBalance(t *testing.T) {
	db := setupTestDB(t)
	child, _, _ := seedAssignment(t, db, 10)
	wishlist := NewWishlistStore(db)

	cheap, err := wishlist.Create(child.ID, "Sticker pack", 5)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	pricey, err := wishlist.Create(child.ID, "Lego set", 500)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := db.Exec(`UPDATE profiles SET coins = 50 WHERE id = ?`, child.ID); err != nil {
		t.Fatalf("fund child: %v", err)
	}

	items, err := wishlist.ListByChild(child.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byID := make(map[int64]model.WishlistItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	if !byID[cheap.ID].CanAfford {
		t.Error("5-coin item should be affordable at 50 coins")
	}
	if byID[pricey.ID].CanAfford {
		t.Error("500-coin item should not be affordable at 50 coins")
	}
}

func TestWishlistRedeemAndDelete(t *testing.T) {
	db := setupTestDB(t)
	child, _, _ := seedAssignment(t, db, 10)
	wishlist := NewWishlistStore(db)

	item, err := wishlist.Create(child.ID, "Movie night", 30)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := wishlist.SetRedeemed(item.ID); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	got, err := wishlist.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Redeemed {
		t.Error("item should be redeemed")
	}

	if err := wishlist.Delete(item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = wishlist.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("deleted item should be gone")
	}
}
