package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/compass-crm/compass/internal/platform/db"
	"github.com/compass-crm/compass/internal/shared"
)

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	UnsignedOnly bool
	UnpaidOnly   bool
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Contract, error)
	Get(ctx context.Context, id int64) (*Contract, error)
	Create(ctx context.Context, c *Contract) (*Contract, error)
	Update(ctx context.Context, c *Contract) error
	ClientExists(ctx context.Context, clientID int64) (bool, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const contractColumns = `id, client_id, total_amount, outstanding_amount, signed, created_at, updated_at`

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	if err := row.Scan(&c.ID, &c.ClientID, &c.TotalAmount, &c.OutstandingAmount, &c.Signed, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts`
	var clauses []string
	if filter.UnsignedOnly {
		clauses = append(clauses, `NOT signed`)
	}
	if filter.UnpaidOnly {
		clauses = append(clauses, `outstanding_amount > 0`)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract %d: %w", id, err)
	}
	return c, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Contract) (*Contract, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO contracts (client_id, total_amount, outstanding_amount, signed)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+contractColumns,
		c.ClientID, c.TotalAmount, c.OutstandingAmount, c.Signed)
	created, err := scanContract(row)
	if err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return created, nil
}

// Update rewrites the contract inside a transaction. The signed flag is
// re-read under lock so a contract signed by a concurrent writer cannot be
// flipped back by a stale update.
func (r *PGRepository) Update(ctx context.Context, c *Contract) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var signed bool
		err := tx.QueryRow(ctx, `SELECT signed FROM contracts WHERE id = $1 FOR UPDATE`, c.ID).Scan(&signed)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock contract %d: %w", c.ID, err)
		}
		if signed && !c.Signed {
			return fmt.Errorf("%w: a signed contract cannot be unsigned", shared.ErrValidation)
		}
		_, err = tx.Exec(ctx,
			`UPDATE contracts
			 SET total_amount = $2, outstanding_amount = $3, signed = $4, updated_at = NOW()
			 WHERE id = $1`,
			c.ID, c.TotalAmount, c.OutstandingAmount, c.Signed)
		if err != nil {
			return fmt.Errorf("update contract %d: %w", c.ID, err)
		}
		return nil
	})
}

func (r *PGRepository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("client exists %d: %w", clientID, err)
	}
	return exists, nil
}
