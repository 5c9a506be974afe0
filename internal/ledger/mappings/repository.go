package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

// Resolver answers "which account does this event key post to".
type Resolver interface {
	Resolve(ctx context.Context, module, key string) (int64, error)
}

// Repository manages the mapping table.
type Repository interface {
	Resolver
	List(ctx context.Context, module string) ([]AccountMapping, error)
	Upsert(ctx context.Context, m AccountMapping) (AccountMapping, error)
	Delete(ctx context.Context, module, key string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Resolve(ctx context.Context, module, key string) (int64, error) {
	var accountID int64
	err := r.pool.QueryRow(ctx,
		`SELECT account_id FROM account_mappings WHERE module = $1 AND key = $2`,
		module, key,
	).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve mapping: %w", err)
	}
	return accountID, nil
}

func (r *repository) List(ctx context.Context, module string) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, module, key, account_id, created_at, updated_at
		FROM account_mappings
		WHERE ($1 = '' OR module = $1)
		ORDER BY module, key`, module)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.ID, &m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, m AccountMapping) (AccountMapping, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO account_mappings (module, key, account_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (module, key)
		DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = now()
		RETURNING id, created_at, updated_at`,
		m.Module, m.Key, m.AccountID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return AccountMapping{}, fmt.Errorf("upsert mapping: %w", err)
	}
	return m, nil
}

func (r *repository) Delete(ctx context.Context, module, key string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM account_mappings WHERE module = $1 AND key = $2`, module, key)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMappingNotFound
	}
	return nil
}
