package periods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

// CreateInput captures validation rules for new periods.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Activate  bool
}

// Validate ensures the create input is coherent.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: period name required", shared.ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end date required", shared.ErrValidation)
	}
	if !in.StartDate.Before(in.EndDate) {
		return fmt.Errorf("%w: start date must precede end date", shared.ErrValidation)
	}
	return nil
}

// Service manages accounting period lifecycle and opening balances.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new period. Active periods must not overlap, and at most
// one period is active at a time.
func (s *Service) Create(ctx context.Context, in CreateInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	if in.Activate {
		conflict, err := s.repo.RangeConflict(ctx, in.StartDate, in.EndDate, 0)
		if err != nil {
			return Period{}, err
		}
		if conflict {
			return Period{}, fmt.Errorf("%w: period overlaps an active period", shared.ErrValidation)
		}
		if err := s.repo.DeactivateAll(ctx); err != nil {
			return Period{}, err
		}
	}
	return s.repo.Insert(ctx, Period{
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    PeriodStatusOpen,
		IsActive:  in.Activate,
	})
}

// Activate makes the period the single active one.
func (s *Service) Activate(ctx context.Context, id int64) error {
	period, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if period.Closed() {
		return shared.ErrPeriodClosed
	}
	conflict, err := s.repo.RangeConflict(ctx, period.StartDate, period.EndDate, id)
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("%w: period overlaps an active period", shared.ErrValidation)
	}
	if err := s.repo.DeactivateAll(ctx); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}

// Get returns a single period.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// List returns all periods ordered by start date.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// FindOpenPeriodByDate returns the open period covering the supplied date.
func (s *Service) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenPeriodByDate(ctx, date)
}

// SetOpeningBalance records an operator-entered opening balance. Opening
// balances are immutable once their period is closed.
func (s *Service) SetOpeningBalance(ctx context.Context, accountID, periodID int64, amount decimal.Decimal) (OpeningBalance, error) {
	period, err := s.repo.Get(ctx, periodID)
	if err != nil {
		return OpeningBalance{}, err
	}
	if period.Closed() {
		return OpeningBalance{}, shared.ErrPeriodClosed
	}
	return s.repo.UpsertOpeningBalance(ctx, accountID, periodID, amount)
}
