package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.AssignmentID, &c.CompletedForDate, &c.Status,
		&approvedBy, &approvedAt, &c.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}

	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		c.ApprovedAt = &approvedAt.Time
	}
	return &c, nil
}

const completionCols = `id, assignment_id, completed_for_date, status, approved_by, approved_at, claimed_at`

// Claim upserts the one completion row for (assignment, date). Claiming
// the same day twice overwrites the row instead of duplicating it, and
// clears any previous resolution.
func (s *CompletionStore) Claim(assignmentID int64, date, status string) (*model.Completion, error) {
	_, err := s.db.Exec(
		`INSERT INTO completions (assignment_id, completed_for_date, status)
		 VALUES (?, ?, ?)
		 ON CONFLICT (assignment_id, completed_for_date)
		 DO UPDATE SET status = excluded.status, approved_by = NULL, approved_at = NULL, claimed_at = CURRENT_TIMESTAMP`,
		assignmentID, date, status,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert completion: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE assignment_id = ? AND completed_for_date = ?`,
		assignmentID, date,
	)
	c, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *CompletionStore) GetByID(id int64) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// LatestApprovedOnOrBefore returns the most recent approved completion
// date across all of a child's assignments, at or before asOf. Pending
// and rejected rows never count. Returns nil with no error when the
// child has no approved completion yet.
//
// The bound is inclusive: an approval already on the books for the same
// calendar day must yield a gap of zero, not be skipped.
func (s *CompletionStore) LatestApprovedOnOrBefore(childID int64, asOf string) (*time.Time, error) {
	var date string
	err := s.db.QueryRow(
		`SELECT c.completed_for_date
		 FROM completions c
		 JOIN chore_assignments a ON a.id = c.assignment_id
		 WHERE a.child_id = ? AND c.status = 'approved' AND c.completed_for_date <= ?
		 ORDER BY c.completed_for_date DESC
		 LIMIT 1`,
		childID, asOf,
	).Scan(&date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest approved completion: %w", err)
	}

	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse completion date %q: %w", date, err)
	}
	return &t, nil
}

// LatestApproved returns the child's most recent approved completion
// date with no upper bound. Used by the streak decay check.
func (s *CompletionStore) LatestApproved(childID int64) (*time.Time, error) {
	return s.LatestApprovedOnOrBefore(childID, "9999-12-31")
}

// ListPending returns all unresolved completions joined with the chore
// and child a parent needs to review them, oldest claim first.
func (s *CompletionStore) ListPending() ([]model.PendingCompletion, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.assignment_id, c.completed_for_date, c.status, c.approved_by, c.approved_at, c.claimed_at,
		        ch.id, ch.title, ch.points, p.id, p.display_name
		 FROM completions c
		 JOIN chore_assignments a ON a.id = c.assignment_id
		 JOIN chores ch ON ch.id = a.chore_id
		 JOIN profiles p ON p.id = a.child_id
		 WHERE c.status = 'pending'
		 ORDER BY c.claimed_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending completions: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingCompletion
	for rows.Next() {
		var pc model.PendingCompletion
		var approvedBy sql.NullInt64
		var approvedAt sql.NullTime

		err := rows.Scan(
			&pc.ID, &pc.AssignmentID, &pc.CompletedForDate, &pc.Status,
			&approvedBy, &approvedAt, &pc.ClaimedAt,
			&pc.ChoreID, &pc.ChoreTitle, &pc.Points, &pc.ChildID, &pc.ChildName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending completion: %w", err)
		}
		if approvedBy.Valid {
			pc.ApprovedBy = &approvedBy.Int64
		}
		if approvedAt.Valid {
			pc.ApprovedAt = &approvedAt.Time
		}
		pending = append(pending, pc)
	}
	return pending, rows.Err()
}

// SetStatusFromPending resolves a pending completion and stamps the
// audit fields. It refuses to touch rows that are already resolved: the
// guarded WHERE makes a second approval a no-op the caller can detect,
// which is what keeps a completion from being credited twice.
func (s *CompletionStore) SetStatusFromPending(id int64, status string, approverID int64, approvedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE completions SET status = ?, approved_by = ?, approved_at = ? WHERE id = ? AND status = 'pending'`,
		status, approverID, approvedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("set completion status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListForChildOnDate returns the child's completions claimed for one
// calendar day, used to attach status to the daily chore board.
func (s *CompletionStore) ListForChildOnDate(childID int64, date string) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT `+prefixedCompletionCols+`
		 FROM completions c
		 JOIN chore_assignments a ON a.id = c.assignment_id
		 WHERE a.child_id = ? AND c.completed_for_date = ?`,
		childID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions for day: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

const prefixedCompletionCols = `c.id, c.assignment_id, c.completed_for_date, c.status, c.approved_by, c.approved_at, c.claimed_at`

func (s *CompletionStore) GetByAssignmentAndDate(assignmentID int64, date string) (*model.Completion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE assignment_id = ? AND completed_for_date = ?`,
		assignmentID, date,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion by day: %w", err)
	}
	return c, nil
}
