package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/balances"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
	"github.com/arthapos/ledger/internal/platform/db"
)

// Repository opens the transaction a whole close runs inside.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is everything a close touches, all on one transaction so a
// failed close leaves no trace.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error)
	NextPeriodAfter(ctx context.Context, end time.Time) (periods.Period, error)
	DraftEntryNumbers(ctx context.Context, periodID int64) ([]string, error)
	UnbalancedEntryNumbers(ctx context.Context, periodID int64) ([]string, error)
	ResolveMapping(ctx context.Context, module, key string) (int64, error)
	AccountTotals(ctx context.Context, periodID int64) ([]balances.AccountTotals, error)
	InsertClosingEntry(ctx context.Context, in EntryInput) (string, error)
	UpsertOpeningBalance(ctx context.Context, accountID, periodID int64, amount decimal.Decimal) error
	MarkClosed(ctx context.Context, periodID, closedBy int64, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	return mapConcurrentClose(err)
}

// mapConcurrentClose translates the serialization failure the loser of two
// concurrent closes gets. Under repeatable read the loser blocks on the
// period row lock and aborts with SQLSTATE 40001 when the winner commits;
// by then the period is closed, so the caller sees the same error as a
// sequential re-close.
func mapConcurrentClose(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return shared.ErrAlreadyClosed
	}
	return err
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, status, is_active, closed_by, closed_at, created_at, updated_at
FROM periods WHERE id=$1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsActive, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return periods.Period{}, shared.ErrInvalidPeriod
	}
	if err != nil {
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) NextPeriodAfter(ctx context.Context, end time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, status, is_active, closed_by, closed_at, created_at, updated_at
FROM periods WHERE status='OPEN' AND start_date > $1 ORDER BY start_date ASC LIMIT 1`, end).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsActive, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return periods.Period{}, shared.ErrInvalidPeriod
	}
	if err != nil {
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) DraftEntryNumbers(ctx context.Context, periodID int64) ([]string, error) {
	return r.numbers(ctx, `SELECT number FROM journal_entries WHERE period_id=$1 AND status='DRAFT' ORDER BY id`, periodID)
}

func (r *txRepository) UnbalancedEntryNumbers(ctx context.Context, periodID int64) ([]string, error) {
	return r.numbers(ctx, `
		SELECT e.number
		FROM journal_entries e
		JOIN journal_lines l ON l.entry_id = e.id
		WHERE e.period_id = $1 AND e.status = 'POSTED'
		GROUP BY e.id, e.number
		HAVING abs(SUM(l.debit) - SUM(l.credit)) > 0.01
		ORDER BY e.number`, periodID)
}

func (r *txRepository) numbers(ctx context.Context, query string, periodID int64) ([]string, error) {
	rows, err := r.tx.Query(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *txRepository) ResolveMapping(ctx context.Context, module, key string) (int64, error) {
	var accountID int64
	err := r.tx.QueryRow(ctx, `SELECT account_id FROM account_mappings WHERE module=$1 AND key=$2`, module, key).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
	}
	if err != nil {
		return 0, err
	}
	return accountID, nil
}

// AccountTotals aggregates every account, deactivated ones included. A
// deactivated revenue or expense account with period activity still has to
// be zeroed into retained earnings; only the carry forward is scoped to
// active accounts, and the service reads IsActive for that.
func (r *txRepository) AccountTotals(ctx context.Context, periodID int64) ([]balances.AccountTotals, error) {
	rows, err := r.tx.Query(ctx, `
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
		ORDER BY a.code`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []balances.AccountTotals
	for rows.Next() {
		var t balances.AccountTotals
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &t.Type, &t.IsActive, &t.Opening, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertClosingEntry(ctx context.Context, in EntryInput) (string, error) {
	var entryID int64
	var number string
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, period_id, date, ref_type, source_module, source_id, memo, posted_by, posted_at, status)
VALUES ('JRN-' || lpad(nextval('journal_entry_number_seq')::text, 6, '0'), $1, $2, 'PERIOD_CLOSING', 'closing', $3, $4, $5, NOW(), 'POSTED')
RETURNING id, number`,
		in.PeriodID, in.Date, in.SourceID, in.Memo, in.PostedBy).Scan(&entryID, &number)
	if err != nil {
		return "", fmt.Errorf("insert closing entry: %w", err)
	}
	for _, line := range in.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, memo)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit, line.Credit, line.Memo); err != nil {
			return "", fmt.Errorf("insert closing line: %w", err)
		}
	}
	if _, err := r.tx.Exec(ctx, `INSERT INTO source_links (module, source_id, entry_id) VALUES ('closing', $1, $2)`, in.SourceID, entryID); err != nil {
		return "", fmt.Errorf("link closing entry: %w", err)
	}
	return number, nil
}

func (r *txRepository) UpsertOpeningBalance(ctx context.Context, accountID, periodID int64, amount decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO opening_balances (account_id, period_id, amount)
VALUES ($1,$2,$3)
ON CONFLICT (account_id, period_id) DO UPDATE SET amount=EXCLUDED.amount, updated_at=NOW()`,
		accountID, periodID, amount)
	return err
}

func (r *txRepository) MarkClosed(ctx context.Context, periodID, closedBy int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE periods SET status='CLOSED', is_active=false, closed_by=$2, closed_at=$3, updated_at=NOW()
WHERE id=$1 AND status='OPEN'`, periodID, closedBy, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyClosed
	}
	return nil
}
