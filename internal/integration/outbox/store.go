package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

type pgStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const recordColumns = `id, kind, payload, attempts, last_error, status, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.Kind, &r.Payload, &r.Attempts, &r.LastError, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *pgStore) Append(ctx context.Context, kind string, payload []byte, lastError string) (Record, error) {
	record, err := scanRecord(s.pool.QueryRow(ctx, `INSERT INTO ledger_outbox (kind, payload, attempts, last_error, status)
VALUES ($1, $2, 0, $3, 'PENDING')
RETURNING `+recordColumns, kind, payload, lastError))
	if err != nil {
		return Record{}, fmt.Errorf("append outbox: %w", err)
	}
	return record, nil
}

func (s *pgStore) Get(ctx context.Context, id int64) (Record, error) {
	record, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_outbox WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get outbox record: %w", err)
	}
	return record, nil
}

func (s *pgStore) Pending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM ledger_outbox
WHERE status='PENDING' ORDER BY id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) MarkDone(ctx context.Context, id int64) error {
	return s.mark(ctx, id, StatusDone, "")
}

func (s *pgStore) MarkRetry(ctx context.Context, id int64, lastError string) error {
	_, err := s.pool.Exec(ctx, `UPDATE ledger_outbox
SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
WHERE id = $1`, id, lastError)
	return err
}

func (s *pgStore) MarkFailed(ctx context.Context, id int64, lastError string) error {
	return s.mark(ctx, id, StatusFailed, lastError)
}

func (s *pgStore) mark(ctx context.Context, id int64, status, lastError string) error {
	cmd, err := s.pool.Exec(ctx, `UPDATE ledger_outbox
SET status = $2, last_error = $3, updated_at = NOW()
WHERE id = $1`, id, status, lastError)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
