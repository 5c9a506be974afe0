package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

// CreateInput groups fields required to register an account.
type CreateInput struct {
	Code     string
	Name     string
	Type     AccountType
	Category string
	ParentID *int64
}

// Validate ensures create input meets minimum criteria.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: account code required", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	return nil
}

// Service manages the chart of accounts.
type Service struct {
	repo Repository
}

// NewService constructs the registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account. The code must not collide with any existing
// account, active or inactive. Level is derived from the parent chain: roots
// are level 1, a child sits one below its parent.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if _, err := s.repo.GetByCode(ctx, in.Code); err == nil {
		return Account{}, shared.ErrDuplicateCode
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Account{}, err
	}
	level, err := s.resolveLevel(ctx, in.ParentID)
	if err != nil {
		return Account{}, err
	}
	return s.repo.Insert(ctx, Account{
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		Category: in.Category,
		ParentID: in.ParentID,
		Level:    level,
		IsActive: true,
	})
}

// Reparent moves an account under a new parent and recomputes its level.
func (s *Service) Reparent(ctx context.Context, id int64, parentID *int64) (Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if parentID != nil && *parentID == id {
		return Account{}, fmt.Errorf("%w: account cannot parent itself", shared.ErrValidation)
	}
	level, err := s.resolveLevel(ctx, parentID)
	if err != nil {
		return Account{}, err
	}
	if err := s.repo.UpdateParent(ctx, id, parentID, level); err != nil {
		return Account{}, err
	}
	account.ParentID = parentID
	account.Level = level
	return account, nil
}

// Deactivate soft-deactivates an account. Accounts are never hard-deleted
// once they carry journal activity.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// Delete removes an account outright, refused when journal lines reference
// it. Callers should prefer Deactivate.
func (s *Service) Delete(ctx context.Context, id int64) error {
	used, err := s.repo.HasJournalActivity(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return shared.ErrAccountInUse
	}
	return s.repo.Delete(ctx, id)
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves the full chart of accounts ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) resolveLevel(ctx context.Context, parentID *int64) (int, error) {
	if parentID == nil {
		return 1, nil
	}
	parent, err := s.repo.Get(ctx, *parentID)
	if err != nil {
		return 0, err
	}
	return parent.Level + 1, nil
}
