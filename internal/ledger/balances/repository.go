package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/accounts"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Repository reads the aggregates the calculator works from. Only posted
// entries count; drafts are invisible to every balance.
type Repository interface {
	AccountType(ctx context.Context, accountID int64) (accounts.AccountType, error)
	OpeningBalance(ctx context.Context, accountID, periodID int64) (decimal.Decimal, error)
	MutationTotals(ctx context.Context, accountID int64, q Query) (debit, credit decimal.Decimal, err error)
	ActiveAccountTotals(ctx context.Context, periodID int64) ([]AccountTotals, error)
	LedgerLines(ctx context.Context, accountID int64, q Query) ([]LedgerLine, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) AccountType(ctx context.Context, accountID int64) (accounts.AccountType, error) {
	var t accounts.AccountType
	err := r.pool.QueryRow(ctx, `SELECT type FROM accounts WHERE id=$1`, accountID).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("account type: %w", err)
	}
	return t, nil
}

func (r *repository) OpeningBalance(ctx context.Context, accountID, periodID int64) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT amount FROM opening_balances WHERE account_id=$1 AND period_id=$2`,
		accountID, periodID,
	).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("opening balance: %w", err)
	}
	return amount, nil
}

func (r *repository) MutationTotals(ctx context.Context, accountID int64, q Query) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1
		  AND e.period_id = $2
		  AND e.status = 'POSTED'
		  AND ($3::date IS NULL OR e.date >= $3)
		  AND ($4::date IS NULL OR e.date <= $4)`,
		accountID, q.PeriodID, nullTime(q.From), nullTime(q.To),
	).Scan(&debit, &credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("mutation totals: %w", err)
	}
	return debit, credit, nil
}

func (r *repository) ActiveAccountTotals(ctx context.Context, periodID int64) ([]AccountTotals, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.code, a.name, a.type, a.is_active,
		       COALESCE(ob.amount, 0), m.debit, m.credit
		FROM accounts a
		LEFT JOIN opening_balances ob ON ob.account_id = a.id AND ob.period_id = $1
		LEFT JOIN LATERAL (
			SELECT COALESCE(SUM(l.debit), 0) AS debit, COALESCE(SUM(l.credit), 0) AS credit
			FROM journal_lines l
			JOIN journal_entries e ON e.id = l.entry_id
			WHERE l.account_id = a.id AND e.period_id = $1 AND e.status = 'POSTED'
		) m ON true
		WHERE a.is_active
		ORDER BY a.code`, periodID)
	if err != nil {
		return nil, fmt.Errorf("active account totals: %w", err)
	}
	defer rows.Close()

	var out []AccountTotals
	for rows.Next() {
		var t AccountTotals
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &t.Type, &t.IsActive, &t.Opening, &t.Debit, &t.Credit); err != nil {
			return nil, fmt.Errorf("scan account totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) LedgerLines(ctx context.Context, accountID int64, q Query) ([]LedgerLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.number, e.date, l.memo, l.debit, l.credit
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1
		  AND e.period_id = $2
		  AND e.status = 'POSTED'
		  AND ($3::date IS NULL OR e.date >= $3)
		  AND ($4::date IS NULL OR e.date <= $4)
		ORDER BY e.date ASC, e.id ASC, l.id ASC`,
		accountID, q.PeriodID, nullTime(q.From), nullTime(q.To))
	if err != nil {
		return nil, fmt.Errorf("ledger lines: %w", err)
	}
	defer rows.Close()

	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.EntryID, &line.Number, &line.Date, &line.Memo, &line.Debit, &line.Credit); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
