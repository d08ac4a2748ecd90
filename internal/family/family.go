// Package family bootstraps the parent/child grouping: a parent's family
// is created lazily the first time they need one, and children are
// attached to it when a chore is assigned to them.
package family

import (
	"errors"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

var (
	ErrProfileNotFound = errors.New("family: profile not found")
	ErrNotParent       = errors.New("family: only parents can own a family")
	ErrNotChild        = errors.New("family: profile is not a child")
)

type Service struct {
	families *store.FamilyStore
	profiles *store.ProfileStore
}

func NewService(families *store.FamilyStore, profiles *store.ProfileStore) *Service {
	return &Service{families: families, profiles: profiles}
}

// EnsureFamily returns the parent's family id, creating the family on
// first use and linking the parent profile to it.
func (s *Service) EnsureFamily(parentID int64) (int64, error) {
	p, err := s.profiles.GetByID(parentID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrProfileNotFound
	}
	if p.Role != model.RoleParent {
		return 0, ErrNotParent
	}
	if p.FamilyID != nil {
		return *p.FamilyID, nil
	}

	f, err := s.families.Create(fmt.Sprintf("%s's Family", p.DisplayName))
	if err != nil {
		return 0, err
	}
	if err := s.profiles.SetFamily(p.ID, f.ID); err != nil {
		return 0, err
	}
	return f.ID, nil
}

// ListChildren returns the family's children plus unattached ones.
func (s *Service) ListChildren(familyID int64) ([]model.Profile, error) {
	return s.profiles.ListChildren(familyID)
}

// AttachChild links a child profile to the family. Called when a chore
// is assigned so a picked child ends up in the parent's family.
func (s *Service) AttachChild(childID, familyID int64) error {
	p, err := s.profiles.GetByID(childID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProfileNotFound
	}
	if p.Role != model.RoleChild {
		return ErrNotChild
	}
	if p.FamilyID != nil && *p.FamilyID == familyID {
		return nil
	}
	return s.profiles.SetFamily(childID, familyID)
}
