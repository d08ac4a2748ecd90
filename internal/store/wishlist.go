package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type WishlistStore struct {
	db *sql.DB
}

func NewWishlistStore(db *sql.DB) *WishlistStore {
	return &WishlistStore{db: db}
}

func scanWishlistItem(scanner interface{ Scan(...any) error }) (*model.WishlistItem, error) {
	var w model.WishlistItem
	var redeemed int

	err := scanner.Scan(&w.ID, &w.ChildID, &w.Title, &w.CostCoins, &redeemed, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	w.Redeemed = redeemed != 0
	return &w, nil
}

const wishlistCols = `id, child_id, title, cost_coins, redeemed, created_at`

func (s *WishlistStore) Create(childID int64, title string, costCoins int) (*model.WishlistItem, error) {
	result, err := s.db.Exec(
		`INSERT INTO wishlist_items (child_id, title, cost_coins) VALUES (?, ?, ?)`,
		childID, title, costCoins,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wishlist item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WishlistStore) GetByID(id int64) (*model.WishlistItem, error) {
	row := s.db.QueryRow(`SELECT `+wishlistCols+` FROM wishlist_items WHERE id = ?`, id)
	w, err := scanWishlistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return w, nil
}

// ListByChild returns the child's wishlist with CanAfford computed
// against their current coin balance, unredeemed items first.
func (s *WishlistStore) ListByChild(childID int64) ([]model.WishlistItem, error) {
	rows, err := s.db.Query(
		`SELECT w.id, w.child_id, w.title, w.cost_coins, w.redeemed, w.created_at, p.coins >= w.cost_coins
		 FROM wishlist_items w
		 JOIN profiles p ON p.id = w.child_id
		 WHERE w.child_id = ?
		 ORDER BY w.redeemed ASC, w.cost_coins ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var w model.WishlistItem
		var redeemed int
		var canAfford int
		err := rows.Scan(&w.ID, &w.ChildID, &w.Title, &w.CostCoins, &redeemed, &w.CreatedAt, &canAfford)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		w.Redeemed = redeemed != 0
		w.CanAfford = canAfford != 0
		items = append(items, w)
	}
	return items, rows.Err()
}

func (s *WishlistStore) SetRedeemed(id int64) error {
	_, err := s.db.Exec(`UPDATE wishlist_items SET redeemed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set redeemed: %w", err)
	}
	return nil
}

func (s *WishlistStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM wishlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}
