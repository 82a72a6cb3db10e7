package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/compass-crm/compass/internal/shared"
)

// ListFilter narrows List results. MineFor limits to events assigned to the
// given support user id.
type ListFilter struct {
	UnassignedOnly bool
	MineFor        *int64
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, e *Event) (*Event, error)
	Update(ctx context.Context, e *Event) error
	ContractSigned(ctx context.Context, contractID int64) (bool, error)
	ActiveSupportUser(ctx context.Context, userID int64) (bool, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const eventColumns = `id, name, contract_id, starts_at, ends_at, location, attendees, notes, support_id, created_at, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.ContractID, &e.StartsAt, &e.EndsAt, &e.Location, &e.Attendees, &e.Notes, &e.SupportID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	switch {
	case filter.UnassignedOnly:
		query += ` WHERE support_id IS NULL`
	case filter.MineFor != nil:
		query += ` WHERE support_id = $1`
		args = append(args, *filter.MineFor)
	}
	query += ` ORDER BY starts_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (r *PGRepository) Create(ctx context.Context, e *Event) (*Event, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO events (name, contract_id, starts_at, ends_at, location, attendees, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+eventColumns,
		e.Name, e.ContractID, e.StartsAt, e.EndsAt, e.Location, e.Attendees, e.Notes)
	created, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Update(ctx context.Context, e *Event) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events
		 SET name = $2, starts_at = $3, ends_at = $4, location = $5, attendees = $6, notes = $7, support_id = $8, updated_at = NOW()
		 WHERE id = $1`,
		e.ID, e.Name, e.StartsAt, e.EndsAt, e.Location, e.Attendees, e.Notes, e.SupportID)
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ContractSigned(ctx context.Context, contractID int64) (bool, error) {
	var signed bool
	err := r.pool.QueryRow(ctx, `SELECT signed FROM contracts WHERE id = $1`, contractID).Scan(&signed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("contract signed %d: %w", contractID, err)
	}
	return signed, nil
}

func (r *PGRepository) ActiveSupportUser(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'support' AND is_active)`,
		userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("active support user %d: %w", userID, err)
	}
	return ok, nil
}
