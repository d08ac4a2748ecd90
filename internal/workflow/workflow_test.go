package workflow

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/ledger"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

type fixture struct {
	db       *sql.DB
	svc      *Service
	profiles *store.ProfileStore
	chores   *store.ChoreStore
	parent   *model.Profile
	child    *model.Profile
	chore    *model.Chore
	assign   *model.Assignment
}

// newFixture builds a family with one parent, one child, and one
// assigned chore worth the given points.
func newFixture(t *testing.T, cfg Config, points int, activeDays string) *fixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	families := store.NewFamilyStore(db)
	profiles := store.NewProfileStore(db)
	chores := store.NewChoreStore(db)
	completions := store.NewCompletionStore(db)
	lg := ledger.New(db, logger)

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

	chore, err := chores.Create(f.ID, "Dishes", model.FrequencyDaily, points, activeDays, parent.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	assign, err := chores.Assign(chore.ID, child.ID)
	if err != nil {
		t.Fatalf("assign chore: %v", err)
	}

	svc := NewService(cfg, profiles, chores, completions, lg, logger)
	return &fixture{
		db:       db,
		svc:      svc,
		profiles: profiles,
		chores:   chores,
		parent:   parent,
		child:    child,
		chore:    chore,
		assign:   assign,
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// claimAndApprove runs the full happy path for one calendar day and
// returns the balance after the credit.
func (f *fixture) claimAndApprove(t *testing.T, date string) *ledger.Balance {
	t.Helper()
	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day(date))
	if err != nil {
		t.Fatalf("claim %s: %v", date, err)
	}
	approved, err := f.svc.Approve(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve %s: %v", date, err)
	}
	return approved.Balance
}

func TestApproveCreditsCoinsAndStartsStreak(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Completion.Status != model.StatusPending {
		t.Errorf("claim status = %q, want pending", res.Completion.Status)
	}
	if res.Balance != nil {
		t.Error("pending claim must not carry a balance")
	}

	approved, err := f.svc.Approve(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Completion.Status != model.StatusApproved {
		t.Errorf("status = %q, want approved", approved.Completion.Status)
	}
	if approved.Points != 10 {
		t.Errorf("points = %d, want 10", approved.Points)
	}
	if approved.Balance.Coins != 10 || approved.Balance.StreakCount != 1 {
		t.Errorf("balance = %d/%d, want 10/1", approved.Balance.Coins, approved.Balance.StreakCount)
	}
	if approved.Completion.ApprovedBy == nil || *approved.Completion.ApprovedBy != f.parent.ID {
		t.Errorf("approved_by = %v, want %d", approved.Completion.ApprovedBy, f.parent.ID)
	}
}

func TestConsecutiveDaysExtendStreak(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	b := f.claimAndApprove(t, "2024-01-01")
	if b.Coins != 10 || b.StreakCount != 1 {
		t.Fatalf("day 1: %d/%d, want 10/1", b.Coins, b.StreakCount)
	}
	b = f.claimAndApprove(t, "2024-01-02")
	if b.Coins != 20 || b.StreakCount != 2 {
		t.Fatalf("day 2: %d/%d, want 20/2", b.Coins, b.StreakCount)
	}
	b = f.claimAndApprove(t, "2024-01-03")
	if b.Coins != 30 || b.StreakCount != 3 {
		t.Fatalf("day 3: %d/%d, want 30/3", b.Coins, b.StreakCount)
	}
}

func TestGapResetsStreakButKeepsCoins(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	f.claimAndApprove(t, "2024-01-01")
	f.claimAndApprove(t, "2024-01-02")

	// Three days skipped: the run is broken, coins survive.
	b := f.claimAndApprove(t, "2024-01-05")
	if b.Coins != 30 {
		t.Errorf("coins = %d, want 30", b.Coins)
	}
	if b.StreakCount != 1 {
		t.Errorf("streak = %d, want 1 after gap", b.StreakCount)
	}
}

func TestSameDaySecondChoreExtendsStreak(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	f.claimAndApprove(t, "2024-01-01")

	other, err := f.chores.Create(f.chore.FamilyID, "Laundry", model.FrequencyDaily, 5, "", f.parent.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	otherAssign, err := f.chores.Assign(other.ID, f.child.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	res, err := f.svc.Claim(otherAssign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	approved, err := f.svc.Approve(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Balance.Coins != 15 || approved.Balance.StreakCount != 2 {
		t.Errorf("balance = %d/%d, want 15/2", approved.Balance.Coins, approved.Balance.StreakCount)
	}
}

func TestRejectHasNoLedgerEffect(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	rejected, err := f.svc.Reject(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Completion.Status != model.StatusRejected {
		t.Errorf("status = %q, want rejected", rejected.Completion.Status)
	}

	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Coins != 0 || b.StreakCount != 0 {
		t.Errorf("balance = %d/%d after rejection, want 0/0", b.Coins, b.StreakCount)
	}
}

func TestRejectedDayCanBeReclaimed(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Reject(res.Completion.ID, f.parent.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	res, err = f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	approved, err := f.svc.Approve(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if approved.Balance.Coins != 10 {
		t.Errorf("coins = %d, want 10", approved.Balance.Coins)
	}
}

func TestReclaimApprovedDayKeepsSingleCredit(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Re-claiming a credited day must not re-open it.
	again, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if again.Completion.ID != res.Completion.ID {
		t.Errorf("re-claim made a new completion")
	}
	if again.Completion.Status != model.StatusApproved {
		t.Errorf("status = %q, re-claim must not reset an approved day", again.Completion.Status)
	}
	if again.Completion.ApprovedBy == nil || again.Completion.ApprovedAt == nil {
		t.Error("re-claim cleared the approval audit fields")
	}

	// With the row still approved there is nothing to approve again.
	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second approve: err = %v, want ErrAlreadyResolved", err)
	}

	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Coins != 10 || b.StreakCount != 1 {
		t.Errorf("balance = %d/%d, want exactly one credit of 10 and streak 1", b.Coins, b.StreakCount)
	}
}

func TestDoubleApproveRefused(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second approve: err = %v, want ErrAlreadyResolved", err)
	}
	if _, err := f.svc.Reject(res.Completion.ID, f.parent.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("reject after approve: err = %v, want ErrAlreadyResolved", err)
	}

	// The single credit stands.
	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Coins != 10 {
		t.Errorf("coins = %d, want exactly one credit of 10", b.Coins)
	}
}

func TestClaimRequiresAssignee(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	other, err := f.profiles.Create("Robin", model.RoleChild, "#00AAFF", "🐢")
	if err != nil {
		t.Fatalf("create other child: %v", err)
	}

	if _, err := f.svc.Claim(f.assign.ID, other.ID, day("2024-01-01")); !errors.Is(err, ErrNotAssignee) {
		t.Errorf("err = %v, want ErrNotAssignee", err)
	}
	if _, err := f.svc.Claim(9999, f.child.ID, day("2024-01-01")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing assignment: err = %v, want ErrNotFound", err)
	}
}

func TestApproveRequiresParent(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := f.svc.Approve(res.Completion.ID, f.child.ID); !errors.Is(err, ErrNotParent) {
		t.Errorf("child approver: err = %v, want ErrNotParent", err)
	}
	if _, err := f.svc.Reject(res.Completion.ID, f.child.ID); !errors.Is(err, ErrNotParent) {
		t.Errorf("child rejecter: err = %v, want ErrNotParent", err)
	}

	// Still pending, still approvable by a real parent.
	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); err != nil {
		t.Fatalf("parent approve: %v", err)
	}
}

func TestApproveOrphanedAssignment(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Simulate a corrupted reference.
	if _, err := f.db.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("disable fks: %v", err)
	}
	if _, err := f.db.Exec(`DELETE FROM chores WHERE id = ?`, f.chore.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}

	if _, err := f.svc.Approve(res.Completion.ID, f.parent.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Coins != 0 {
		t.Errorf("coins = %d, orphaned approval must not credit", b.Coins)
	}
}

func TestImmediateModeCreditsOnClaim(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: false}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Completion.Status != model.StatusApproved {
		t.Errorf("status = %q, want approved", res.Completion.Status)
	}
	if res.Balance == nil || res.Balance.Coins != 10 || res.Balance.StreakCount != 1 {
		t.Fatalf("balance = %+v, want 10 coins streak 1", res.Balance)
	}

	// Re-claiming a credited day changes nothing.
	again, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if again.Completion.ID != res.Completion.ID {
		t.Errorf("re-claim made a new completion")
	}
	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Coins != 10 {
		t.Errorf("coins = %d after re-claim, want 10", b.Coins)
	}

	// Streak math works the same without a reviewer.
	next, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-02"))
	if err != nil {
		t.Fatalf("next day claim: %v", err)
	}
	if next.Balance.Coins != 20 || next.Balance.StreakCount != 2 {
		t.Errorf("balance = %d/%d, want 20/2", next.Balance.Coins, next.Balance.StreakCount)
	}
}

func TestBoardFollowsActiveDays(t *testing.T) {
	// Monday, Wednesday, Friday chore.
	f := newFixture(t, Config{RequireApproval: true}, 10, "MO,WE,FR")

	// 2024-01-03 is a Wednesday.
	board, err := f.svc.Board(f.child.ID, day("2024-01-03"))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("Wednesday board has %d entries, want 1", len(board))
	}
	if board[0].Status != "open" {
		t.Errorf("unclaimed entry status = %q, want open", board[0].Status)
	}

	// 2024-01-02 is a Tuesday.
	board, err = f.svc.Board(f.child.ID, day("2024-01-02"))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 0 {
		t.Errorf("Tuesday board has %d entries, want 0", len(board))
	}
}

func TestBoardShowsClaimStatus(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	board, err := f.svc.Board(f.child.ID, day("2024-01-01"))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("board has %d entries, want 1", len(board))
	}
	if board[0].Status != model.StatusPending {
		t.Errorf("status = %q, want pending", board[0].Status)
	}
	if board[0].Completion == nil || board[0].Completion.ID != res.Completion.ID {
		t.Error("board entry missing the day's completion")
	}

	// Other days stay open.
	board, err = f.svc.Board(f.child.ID, day("2024-01-02"))
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if board[0].Status != "open" {
		t.Errorf("next day status = %q, want open", board[0].Status)
	}
}

func TestBalanceDecaysStaleStreak(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	f.claimAndApprove(t, "2024-01-01")
	f.claimAndApprove(t, "2024-01-02")

	// Next day: the streak holds.
	b, err := f.svc.BalanceWithDecay(f.child.ID, day("2024-01-03"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.StreakCount != 2 {
		t.Errorf("streak = %d on the grace day, want 2", b.StreakCount)
	}

	// Two days later: stale, zeroed on read.
	b, err = f.svc.BalanceWithDecay(f.child.ID, day("2024-01-04"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.StreakCount != 0 {
		t.Errorf("streak = %d after stale read, want 0", b.StreakCount)
	}
	if b.Coins != 20 {
		t.Errorf("coins = %d, decay must not touch coins", b.Coins)
	}

	// The zero sticks.
	b, err = f.svc.BalanceWithDecay(f.child.ID, day("2024-01-10"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.StreakCount != 0 {
		t.Errorf("streak = %d, want 0", b.StreakCount)
	}
}

func TestBackdatedApprovalUsesHistoryBeforeItsDay(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	f.claimAndApprove(t, "2024-01-02")
	f.claimAndApprove(t, "2024-01-05") // gap, streak back to 1

	// A claim for a day inside the hole is measured against the
	// approvals on or before that day, not the newest one.
	res, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-03"))
	if err != nil {
		t.Fatalf("backdated claim: %v", err)
	}
	approved, err := f.svc.Approve(res.Completion.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Balance.StreakCount != 2 {
		t.Errorf("streak = %d, want 2", approved.Balance.StreakCount)
	}
	if approved.Balance.Coins != 30 {
		t.Errorf("coins = %d, want 30", approved.Balance.Coins)
	}
}

func TestPendingListsOldestFirst(t *testing.T) {
	f := newFixture(t, Config{RequireApproval: true}, 10, "")

	if _, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-01")); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.Claim(f.assign.ID, f.child.ID, day("2024-01-02")); err != nil {
		t.Fatalf("claim: %v", err)
	}

	pending, err := f.svc.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ChoreTitle != f.chore.Title || pending[0].ChildName != f.child.DisplayName {
		t.Errorf("pending entry missing review context: %+v", pending[0])
	}
}
