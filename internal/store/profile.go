package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

// ProfileStore owns profile identity rows. It deliberately has no
// methods that touch coins or streak_count; those belong to the ledger.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var familyID sql.NullInt64

	err := scanner.Scan(
		&p.ID, &p.DisplayName, &p.Role, &familyID, &p.Coins, &p.StreakCount,
		&p.Color, &p.AvatarEmoji, &p.HasPIN, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if familyID.Valid {
		p.FamilyID = &familyID.Int64
	}
	return &p, nil
}

const profileCols = `id, display_name, role, family_id, coins, streak_count, color, avatar_emoji, pin IS NOT NULL, created_at, updated_at`

func (s *ProfileStore) Create(displayName, role, color, avatarEmoji string) (*model.Profile, error) {
	result, err := s.db.Exec(
		`INSERT INTO profiles (display_name, role, color, avatar_emoji) VALUES (?, ?, ?, ?)`,
		displayName, role, color, avatarEmoji,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) List() ([]model.Profile, error) {
	rows, err := s.db.Query(`SELECT ` + profileCols + ` FROM profiles ORDER BY display_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// ListChildren returns child profiles in the family, plus children not yet
// attached to any family so a parent can pick them when assigning a chore.
func (s *ProfileStore) ListChildren(familyID int64) ([]model.Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles WHERE role = 'child' AND (family_id = ? OR family_id IS NULL) ORDER BY display_name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *p)
	}
	return children, rows.Err()
}

func (s *ProfileStore) SetFamily(id, familyID int64) error {
	_, err := s.db.Exec(`UPDATE profiles SET family_id = ? WHERE id = ?`, familyID, id)
	if err != nil {
		return fmt.Errorf("set family: %w", err)
	}
	return nil
}

func (s *ProfileStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE profiles SET pin = ? WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE profiles SET pin = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin FROM profiles WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("profile not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}
