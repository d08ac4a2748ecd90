package store

import (
	"testing"

	"github.com/dukerupert/bywater/internal/model"
)

func TestProfileCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	profiles := NewProfileStore(db)

	p, err := profiles.Create("Sam", model.RoleChild, "#FFAA00", "🦊")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Coins != 0 || p.StreakCount != 0 {
		t.Errorf("new profile has coins=%d streak=%d, want zeroes", p.Coins, p.StreakCount)
	}
	if p.FamilyID != nil {
		t.Error("new profile should not belong to a family yet")
	}
	if p.HasPIN {
		t.Error("new profile should not report a PIN")
	}
}

func TestListChildrenIncludesUnattached(t *testing.T) {
	db := setupTestDB(t)
	families := NewFamilyStore(db)
	profiles := NewProfileStore(db)

	f, err := families.Create("Smith Family")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	attached, err := profiles.Create("Sam", model.RoleChild, "#FFAA00", "🦊")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := profiles.SetFamily(attached.ID, f.ID); err != nil {
		t.Fatalf("set family: %v", err)
	}
	if _, err := profiles.Create("Robin", model.RoleChild, "#00AAFF", "🐢"); err != nil {
		t.Fatalf("create floating child: %v", err)
	}
	parent, err := profiles.Create("Pat", model.RoleParent, "#333333", "🧑")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if err := profiles.SetFamily(parent.ID, f.ID); err != nil {
		t.Fatalf("set parent family: %v", err)
	}

	children, err := profiles.ListChildren(f.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected family child plus unattached child, got %d", len(children))
	}
	for _, c := range children {
		if c.Role != model.RoleChild {
			t.Errorf("non-child %q in children list", c.DisplayName)
		}
	}
}

func TestPINLifecycle(t *testing.T) {
	db := setupTestDB(t)
	profiles := NewProfileStore(db)

	p, err := profiles.Create("Pat", model.RoleParent, "#333333", "🧑")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := profiles.SetPIN(p.ID, "hashed-pin"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	hash, err := profiles.GetPINHash(p.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "hashed-pin" {
		t.Errorf("hash = %q", hash)
	}
	got, err := profiles.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasPIN {
		t.Error("profile should report a PIN after SetPIN")
	}

	if err := profiles.ClearPIN(p.ID); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	got, err = profiles.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HasPIN {
		t.Error("profile should not report a PIN after ClearPIN")
	}
}
