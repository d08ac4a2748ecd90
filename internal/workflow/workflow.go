// Package workflow drives a chore claim from "I did this" to an approved,
// coin-granting, streak-updating fact. Claims land as pending (or are
// credited immediately, depending on configuration); a parent resolves
// pending claims to approved or rejected. Transitions are one-way.
package workflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/bywater/internal/ledger"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/schedule"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/streak"
)

var (
	ErrNotFound        = errors.New("workflow: referenced record not found")
	ErrAlreadyResolved = errors.New("workflow: completion already resolved")
	ErrNotParent       = errors.New("workflow: approver is not a parent")
	ErrNotAssignee     = errors.New("workflow: claimant is not the assigned child")
)

// Config selects the deployment mode. With RequireApproval a claim waits
// for a parent; without it the claim is credited on the spot.
type Config struct {
	RequireApproval bool
}

type Service struct {
	cfg         Config
	profiles    *store.ProfileStore
	chores      *store.ChoreStore
	completions *store.CompletionStore
	ledger      *ledger.Ledger
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(cfg Config, profiles *store.ProfileStore, chores *store.ChoreStore, completions *store.CompletionStore, lg *ledger.Ledger, logger *slog.Logger) *Service {
	return &Service{
		cfg:         cfg,
		profiles:    profiles,
		chores:      chores,
		completions: completions,
		ledger:      lg,
		logger:      logger,
		now:         time.Now,
	}
}

// ClaimResult is the outcome of a claim. Balance is set only in
// immediate-credit mode, where the claim itself grants the coins.
type ClaimResult struct {
	Completion *model.Completion `json:"completion"`
	Balance    *ledger.Balance   `json:"balance,omitempty"`
	FamilyID   int64             `json:"family_id"`
	ChildID    int64             `json:"child_id"`
}

// Claim records that the assigned child did the chore on the given day.
// Claiming the same day twice never creates a duplicate: a pending or
// rejected row is overwritten back to pending, an approved row is
// returned as-is so the day cannot be credited twice.
func (s *Service) Claim(assignmentID, claimantID int64, date time.Time) (*ClaimResult, error) {
	a, err := s.chores.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.ChildID != claimantID {
		return nil, ErrNotAssignee
	}

	chore, child, err := s.resolveAssignment(a)
	if err != nil {
		return nil, err
	}

	day := streak.DayKey(date)

	if s.cfg.RequireApproval {
		// An approved day is terminal. Re-claiming it must return the
		// credited row, not re-open it for a second approval. Rejected
		// and pending rows stay re-claimable.
		if existing, err := s.completions.GetByAssignmentAndDate(assignmentID, day); err != nil {
			return nil, err
		} else if existing != nil && existing.Status == model.StatusApproved {
			return &ClaimResult{Completion: existing, FamilyID: chore.FamilyID, ChildID: child.ID}, nil
		}

		c, err := s.completions.Claim(assignmentID, day, model.StatusPending)
		if err != nil {
			return nil, err
		}
		s.logger.Info("claim recorded", "assignment_id", assignmentID, "date", day, "status", c.Status)
		return &ClaimResult{Completion: c, FamilyID: chore.FamilyID, ChildID: child.ID}, nil
	}

	return s.claimImmediate(a, chore, child, day, date)
}

// claimImmediate is the self-service path: the claim row is written as
// approved and credited in the same action. The prior approved date is
// read before the new row exists so the gap is computed against the
// right completion.
func (s *Service) claimImmediate(a *model.Assignment, chore *model.Chore, child *model.Profile, day string, date time.Time) (*ClaimResult, error) {
	// A day already credited stays credited; re-claiming it is a no-op.
	if existing, err := s.completions.GetByAssignmentAndDate(a.ID, day); err != nil {
		return nil, err
	} else if existing != nil && existing.Status == model.StatusApproved {
		return &ClaimResult{Completion: existing, FamilyID: chore.FamilyID, ChildID: child.ID}, nil
	}

	last, err := s.completions.LatestApprovedOnOrBefore(child.ID, day)
	if err != nil {
		return nil, err
	}
	newStreak := streak.Next(child.StreakCount, last, date)

	c, err := s.completions.Claim(a.ID, day, model.StatusApproved)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Credit(child.ID, chore.Points, newStreak)
	if err != nil {
		return nil, err
	}

	s.logger.Info("claim auto-approved", "assignment_id", a.ID, "date", day, "points", chore.Points, "streak", newStreak)
	return &ClaimResult{Completion: c, Balance: balance, FamilyID: chore.FamilyID, ChildID: child.ID}, nil
}

// ApprovalResult is the outcome of an approval: the resolved completion,
// the points granted, and the child's balance after the credit.
type ApprovalResult struct {
	Completion *model.Completion `json:"completion"`
	Points     int               `json:"points"`
	Balance    *ledger.Balance   `json:"balance"`
	FamilyID   int64             `json:"family_id"`
}

// Approve resolves a pending completion and credits the child. The
// status flips before the credit is written: if the process dies between
// the two steps the completion is visibly approved but uncredited, which
// support can fix, instead of coins appearing with no matching approval.
func (s *Service) Approve(completionID, approverID int64) (*ApprovalResult, error) {
	if err := s.requireParent(approverID); err != nil {
		return nil, err
	}

	c, err := s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.Status != model.StatusPending {
		return nil, ErrAlreadyResolved
	}

	a, err := s.chores.GetAssignment(c.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	chore, child, err := s.resolveAssignment(a)
	if err != nil {
		return nil, err
	}

	date, err := streak.ParseDay(c.CompletedForDate)
	if err != nil {
		return nil, err
	}
	last, err := s.completions.LatestApprovedOnOrBefore(child.ID, c.CompletedForDate)
	if err != nil {
		return nil, err
	}
	newStreak := streak.Next(child.StreakCount, last, date)

	resolved, err := s.completions.SetStatusFromPending(completionID, model.StatusApproved, approverID, s.now())
	if err != nil {
		return nil, err
	}
	if !resolved {
		// Another device resolved it first.
		return nil, ErrAlreadyResolved
	}

	balance, err := s.ledger.Credit(child.ID, chore.Points, newStreak)
	if err != nil {
		return nil, err
	}

	c, err = s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("completion approved",
		"completion_id", completionID, "approver_id", approverID,
		"child_id", child.ID, "points", chore.Points, "streak", newStreak)
	return &ApprovalResult{Completion: c, Points: chore.Points, Balance: balance, FamilyID: chore.FamilyID}, nil
}

// RejectResult is the outcome of a rejection. There is no balance: a
// rejection never touches the ledger.
type RejectResult struct {
	Completion *model.Completion `json:"completion"`
	FamilyID   int64             `json:"family_id"`
}

// Reject resolves a pending completion without any ledger effect.
func (s *Service) Reject(completionID, approverID int64) (*RejectResult, error) {
	if err := s.requireParent(approverID); err != nil {
		return nil, err
	}

	c, err := s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.Status != model.StatusPending {
		return nil, ErrAlreadyResolved
	}

	a, err := s.chores.GetAssignment(c.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	chore, _, err := s.resolveAssignment(a)
	if err != nil {
		return nil, err
	}

	resolved, err := s.completions.SetStatusFromPending(completionID, model.StatusRejected, approverID, s.now())
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, ErrAlreadyResolved
	}

	s.logger.Info("completion rejected", "completion_id", completionID, "approver_id", approverID)
	c, err = s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	return &RejectResult{Completion: c, FamilyID: chore.FamilyID}, nil
}

// Pending lists unresolved completions for a parent to review.
func (s *Service) Pending() ([]model.PendingCompletion, error) {
	return s.completions.ListPending()
}

// BoardEntry is one chore on a child's daily board.
type BoardEntry struct {
	Assignment model.Assignment  `json:"assignment"`
	Chore      model.Chore       `json:"chore"`
	Status     string            `json:"status"` // "open" until claimed
	Completion *model.Completion `json:"completion,omitempty"`
}

// Board resolves which of the child's chores apply on the given day and
// attaches that day's claim status to each.
func (s *Service) Board(childID int64, date time.Time) ([]BoardEntry, error) {
	child, err := s.profiles.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil || child.Role != model.RoleChild {
		return nil, ErrNotFound
	}

	assignments, err := s.chores.ListAssignmentsForChild(childID)
	if err != nil {
		return nil, err
	}

	day := streak.DayKey(date)
	completions, err := s.completions.ListForChildOnDate(childID, day)
	if err != nil {
		return nil, err
	}
	byAssignment := make(map[int64]*model.Completion, len(completions))
	for i := range completions {
		byAssignment[completions[i].AssignmentID] = &completions[i]
	}

	var board []BoardEntry
	for _, a := range assignments {
		chore, err := s.chores.GetByID(a.ChoreID)
		if err != nil {
			return nil, err
		}
		if chore == nil {
			continue
		}

		days, err := schedule.ParseDays(chore.ActiveDays)
		if err != nil {
			s.logger.Error("invalid active days", "chore_id", chore.ID, "active_days", chore.ActiveDays, "error", err)
			days = schedule.Days{} // fall back: active every day
		}
		if !days.IsActiveOn(date) {
			continue
		}

		entry := BoardEntry{Assignment: a, Chore: *chore, Status: "open"}
		if c := byAssignment[a.ID]; c != nil {
			entry.Status = c.Status
			entry.Completion = c
		}
		board = append(board, entry)
	}
	return board, nil
}

// BalanceWithDecay reads the child's balance, zeroing the streak first
// when the last approved completion is more than a day old. Run on read
// so a streak cannot sit stale while the child never opens the app.
func (s *Service) BalanceWithDecay(childID int64, now time.Time) (*ledger.Balance, error) {
	b, err := s.ledger.Balance(childID)
	if err != nil {
		if errors.Is(err, ledger.ErrChildNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if b.StreakCount > 0 {
		last, err := s.completions.LatestApproved(childID)
		if err != nil {
			return nil, err
		}
		if streak.ShouldDecay(last, now) {
			if err := s.ledger.DecayStreak(childID); err != nil {
				return nil, err
			}
			b.StreakCount = 0
		}
	}
	return b, nil
}

// resolveAssignment loads the chore and child an assignment points at,
// failing with ErrNotFound rather than crediting an orphaned claim.
func (s *Service) resolveAssignment(a *model.Assignment) (*model.Chore, *model.Profile, error) {
	chore, err := s.chores.GetByID(a.ChoreID)
	if err != nil {
		return nil, nil, err
	}
	if chore == nil {
		return nil, nil, ErrNotFound
	}

	child, err := s.profiles.GetByID(a.ChildID)
	if err != nil {
		return nil, nil, err
	}
	if child == nil || child.Role != model.RoleChild {
		return nil, nil, ErrNotFound
	}
	return chore, child, nil
}

func (s *Service) requireParent(approverID int64) error {
	p, err := s.profiles.GetByID(approverID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if p.Role != model.RoleParent {
		return ErrNotParent
	}
	return nil
}
