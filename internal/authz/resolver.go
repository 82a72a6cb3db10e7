package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGResolver resolves ownership chains with direct reads against PostgreSQL.
// It performs no caching; foreign keys guarantee the parent rows exist, but a
// concurrent delete still surfaces as ErrRelationNotFound rather than a
// denial.
type PGResolver struct {
	pool *pgxpool.Pool
}

// NewPGResolver constructs a resolver backed by the provided pool.
func NewPGResolver(pool *pgxpool.Pool) *PGResolver {
	return &PGResolver{pool: pool}
}

// ClientOfContract loads the client a contract belongs to.
func (r *PGResolver) ClientOfContract(ctx context.Context, contract ContractRef) (ClientRef, error) {
	var ref ClientRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, marketing_contact FROM clients WHERE id = $1`,
		contract.ClientID,
	).Scan(&ref.ID, &ref.MarketingContact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientRef{}, fmt.Errorf("%w: client %d of contract %d", ErrRelationNotFound, contract.ClientID, contract.ID)
		}
		return ClientRef{}, fmt.Errorf("authz: resolve client of contract %d: %w", contract.ID, err)
	}
	return ref, nil
}

// ContractOfEvent loads the contract an event is attached to.
func (r *PGResolver) ContractOfEvent(ctx context.Context, event EventRef) (ContractRef, error) {
	var ref ContractRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, client_id, signed FROM contracts WHERE id = $1`,
		event.ContractID,
	).Scan(&ref.ID, &ref.ClientID, &ref.Signed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContractRef{}, fmt.Errorf("%w: contract %d of event %d", ErrRelationNotFound, event.ContractID, event.ID)
		}
		return ContractRef{}, fmt.Errorf("authz: resolve contract of event %d: %w", event.ID, err)
	}
	return ref, nil
}

var _ Resolver = (*PGResolver)(nil)
