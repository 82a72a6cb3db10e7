package contracts

import (
	"context"
	"fmt"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
)

type CreateInput struct {
	ClientID          int64
	TotalAmount       int64
	OutstandingAmount int64
	Signed            bool
}

// UpdateInput fields are pointers so a partial update leaves absent fields
// untouched.
type UpdateInput struct {
	TotalAmount       *int64
	OutstandingAmount *int64
	Signed            *bool
}

type Service struct {
	repo Repository
	gate *authz.Gateway
}

func NewService(repo Repository, gate *authz.Gateway) *Service {
	return &Service{repo: repo, gate: gate}
}

func (s *Service) List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]Contract, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewAll(authz.KindContract), nil); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*Contract, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewOne(authz.KindContract), nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*Contract, error) {
	if err := s.gate.Check(ctx, actor, authz.Create(authz.KindContract), nil); err != nil {
		return nil, err
	}
	if err := validateAmounts(in.TotalAmount, in.OutstandingAmount); err != nil {
		return nil, err
	}
	exists, err := s.repo.ClientExists(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: client %d does not exist", shared.ErrValidation, in.ClientID)
	}
	return s.repo.Create(ctx, &Contract{
		ClientID:          in.ClientID,
		TotalAmount:       in.TotalAmount,
		OutstandingAmount: in.OutstandingAmount,
		Signed:            in.Signed,
	})
}

// Update re-reads the contract so the ownership check sees the current
// client link and signed state, then applies the partial update.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateInput) (*Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := authz.ContractRef{ID: c.ID, ClientID: c.ClientID, Signed: c.Signed}
	if err := s.gate.Check(ctx, actor, authz.Update(authz.KindContract), ref); err != nil {
		return nil, err
	}

	if in.TotalAmount != nil {
		c.TotalAmount = *in.TotalAmount
	}
	if in.OutstandingAmount != nil {
		c.OutstandingAmount = *in.OutstandingAmount
	}
	if in.Signed != nil {
		if c.Signed && !*in.Signed {
			return nil, fmt.Errorf("%w: a signed contract cannot be unsigned", shared.ErrValidation)
		}
		c.Signed = *in.Signed
	}
	if err := validateAmounts(c.TotalAmount, c.OutstandingAmount); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateAmounts(total, outstanding int64) error {
	if total <= 0 {
		return fmt.Errorf("%w: total amount must be positive", shared.ErrValidation)
	}
	if outstanding < 0 || outstanding > total {
		return fmt.Errorf("%w: outstanding amount must be between 0 and the total", shared.ErrValidation)
	}
	return nil
}
