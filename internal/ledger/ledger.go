// Package ledger is the only writer of a child's coins and streak count.
// Every balance change in the system goes through Credit or DecayStreak;
// the profile store exposes no way to touch these columns.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrChildNotFound is returned when the target profile is missing or is
// not a child. No balance is written in that case.
var ErrChildNotFound = errors.New("ledger: child profile not found")

type Balance struct {
	ChildID     int64 `json:"child_id"`
	Coins       int   `json:"coins"`
	StreakCount int   `json:"streak_count"`
}

type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// Credit adds points to the child's coins and overwrites the streak with
// the freshly computed value. The read and write happen inside one
// transaction; SQLite serializes writers, so two devices approving for
// the same child cannot each read a stale balance.
func (l *Ledger) Credit(childID int64, points, newStreak int) (*Balance, error) {
	if points < 0 {
		return nil, fmt.Errorf("ledger: negative credit %d", points)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var coins int
	err = tx.QueryRow(
		`SELECT coins FROM profiles WHERE id = ? AND role = 'child'`,
		childID,
	).Scan(&coins)
	if err == sql.ErrNoRows {
		return nil, ErrChildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	coins += points
	_, err = tx.Exec(
		`UPDATE profiles SET coins = ?, streak_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		coins, newStreak, childID,
	)
	if err != nil {
		return nil, fmt.Errorf("write balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}

	l.logger.Info("credited", "child_id", childID, "points", points, "coins", coins, "streak", newStreak)
	return &Balance{ChildID: childID, Coins: coins, StreakCount: newStreak}, nil
}

// DecayStreak zeroes a stale streak. Coins are untouched.
func (l *Ledger) DecayStreak(childID int64) error {
	result, err := l.db.Exec(
		`UPDATE profiles SET streak_count = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND role = 'child'`,
		childID,
	)
	if err != nil {
		return fmt.Errorf("decay streak: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrChildNotFound
	}

	l.logger.Info("streak decayed", "child_id", childID)
	return nil
}

// Balance reads the child's current coins and streak.
func (l *Ledger) Balance(childID int64) (*Balance, error) {
	var b Balance
	err := l.db.QueryRow(
		`SELECT id, coins, streak_count FROM profiles WHERE id = ? AND role = 'child'`,
		childID,
	).Scan(&b.ChildID, &b.Coins, &b.StreakCount)
	if err == sql.ErrNoRows {
		return nil, ErrChildNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	return &b, nil
}
