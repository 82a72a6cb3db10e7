package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/compass-crm/compass/internal/shared"
)

type Repository interface {
	List(ctx context.Context) ([]Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Create(ctx context.Context, c *Client) (*Client, error)
	Update(ctx context.Context, c *Client) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const clientColumns = `id, name, email, phone, company, marketing_contact, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.MarketingContact, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return c, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Client) (*Client, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO clients (name, email, phone, company, marketing_contact)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+clientColumns,
		c.Name, c.Email, c.Phone, c.Company, c.MarketingContact)
	created, err := scanClient(row)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Update(ctx context.Context, c *Client) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients
		 SET name = $2, email = $3, phone = $4, company = $5, updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.Company)
	if err != nil {
		return fmt.Errorf("update client %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
