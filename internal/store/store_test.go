package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedAssignment creates a family, a parent, a child, a chore, and an
// assignment, returning the pieces tests need most.
func seedAssignment(t *testing.T, db *sql.DB, points int) (*model.Profile, *model.Chore, *model.Assignment) {
	t.Helper()

	families := NewFamilyStore(db)
	profiles := NewProfileStore(db)
	chores := NewChoreStore(db)

	f, err := families.Create("Test Family")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err := profiles.Create("Pat", model.RoleParent, "#333333", "🧑")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if err := profiles.SetFamily(parent.ID, f.ID); err != nil {
		t.Fatalf("set parent family: %v", err)
	}
	child, err := profiles.Create("Sam", model.RoleChild, "#FFAA00", "🦊")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := profiles.SetFamily(child.ID, f.ID); err != nil {
		t.Fatalf("set child family: %v", err)
	}

	chore, err := chores.Create(f.ID, "Dishes", model.FrequencyDaily, points, "", parent.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	assignment, err := chores.Assign(chore.ID, child.ID)
	if err != nil {
		t.Fatalf("assign chore: %v", err)
	}

	child, err = profiles.GetByID(child.ID)
	if err != nil {
		t.Fatalf("reload child: %v", err)
	}
	return child, chore, assignment
}
