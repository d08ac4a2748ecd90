package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// --- Chore methods ---

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var activeDays sql.NullString

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Frequency, &c.Points,
		&c.CreatedBy, &c.CreatedAt, &activeDays,
	)
	if err != nil {
		return nil, err
	}

	// Rows predating the active_days column are NULL here; both NULL and
	// empty mean "active every day". Normalized once, at the scan.
	if activeDays.Valid {
		c.ActiveDays = activeDays.String
	}
	return &c, nil
}

const choreCols = `id, family_id, title, frequency, points, created_by, created_at, active_days`

func (s *ChoreStore) Create(familyID int64, title, frequency string, points int, activeDays string, createdBy int64) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, frequency, points, active_days, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, title, frequency, points, activeDays, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) ListByCreator(createdBy int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE created_by = ? ORDER BY created_at DESC`,
		createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by creator: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// --- Assignment methods ---

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	err := scanner.Scan(&a.ID, &a.ChoreID, &a.ChildID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const assignmentCols = `id, chore_id, child_id, created_at`

// Assign links a chore to a child. Assigning the same pair twice returns
// the existing assignment.
func (s *ChoreStore) Assign(choreID, childID int64) (*model.Assignment, error) {
	_, err := s.db.Exec(
		`INSERT INTO chore_assignments (chore_id, child_id) VALUES (?, ?) ON CONFLICT (chore_id, child_id) DO NOTHING`,
		choreID, childID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM chore_assignments WHERE chore_id = ? AND child_id = ?`,
		choreID, childID,
	)
	a, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *ChoreStore) GetAssignment(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM chore_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *ChoreStore) ListAssignmentsForChild(childID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM chore_assignments WHERE child_id = ? ORDER BY created_at ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
