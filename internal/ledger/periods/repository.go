package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Repository persists periods and opening balances.
type Repository interface {
	Get(ctx context.Context, id int64) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Insert(ctx context.Context, period Period) (Period, error)
	SetActive(ctx context.Context, id int64, active bool) error
	DeactivateAll(ctx context.Context) error
	RangeConflict(ctx context.Context, startDate, endDate time.Time, excludeID int64) (bool, error)
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error)
	UpsertOpeningBalance(ctx context.Context, accountID, periodID int64, amount decimal.Decimal) (OpeningBalance, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, name, start_date, end_date, status, is_active, closed_by, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsActive, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) Insert(ctx context.Context, period Period) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO periods (name, start_date, end_date, status, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		period.Name, period.StartDate, period.EndDate, period.Status, period.IsActive)
	if err := row.Scan(&period.ID, &period.CreatedAt, &period.UpdatedAt); err != nil {
		return Period{}, err
	}
	return period, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE periods SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeactivateAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE periods SET is_active=FALSE, updated_at=NOW() WHERE is_active`)
	return err
}

func (r *repository) RangeConflict(ctx context.Context, startDate, endDate time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM periods WHERE is_active AND id <> $3 AND start_date <= $2 AND end_date >= $1)`,
		startDate, endDate, excludeID).Scan(&exists)
	return exists, err
}

// FindOpenPeriodByDate returns the open period covering the supplied date.
func (r *repository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrInvalidPeriod
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) UpsertOpeningBalance(ctx context.Context, accountID, periodID int64, amount decimal.Decimal) (OpeningBalance, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO opening_balances (account_id, period_id, amount)
VALUES ($1,$2,$3)
ON CONFLICT (account_id, period_id) DO UPDATE SET amount=EXCLUDED.amount, updated_at=NOW()
RETURNING id, created_at, updated_at`, accountID, periodID, amount)
	ob := OpeningBalance{AccountID: accountID, PeriodID: periodID, Amount: amount}
	if err := row.Scan(&ob.ID, &ob.CreatedAt, &ob.UpdatedAt); err != nil {
		return OpeningBalance{}, err
	}
	return ob, nil
}
