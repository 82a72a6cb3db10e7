package clients

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
)

// phonePattern accepts an optional leading + followed by 7 to 15 digits.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type CreateInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

type UpdateInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

type Service struct {
	repo Repository
	gate *authz.Gateway
}

func NewService(repo Repository, gate *authz.Gateway) *Service {
	return &Service{repo: repo, gate: gate}
}

func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Client, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewAll(authz.KindClient), nil); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*Client, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewOne(authz.KindClient), nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create stamps the acting user as the client's marketing contact.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*Client, error) {
	if err := s.gate.Check(ctx, actor, authz.Create(authz.KindClient), nil); err != nil {
		return nil, err
	}
	if err := validateContactFields(in.Email, in.Phone); err != nil {
		return nil, err
	}
	c := &Client{
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		Company:          strings.TrimSpace(in.Company),
		MarketingContact: actor.Username,
	}
	if c.Name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, c)
}

// Update re-reads the client and checks ownership against the stored
// marketing contact before applying changes.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateInput) (*Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := authz.ClientRef{ID: c.ID, MarketingContact: c.MarketingContact}
	if err := s.gate.Check(ctx, actor, authz.Update(authz.KindClient), ref); err != nil {
		return nil, err
	}
	if err := validateContactFields(in.Email, in.Phone); err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Email != "" {
		c.Email = strings.TrimSpace(in.Email)
	}
	if in.Phone != "" {
		c.Phone = strings.TrimSpace(in.Phone)
	}
	if in.Company != "" {
		c.Company = strings.TrimSpace(in.Company)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateContactFields(email, phone string) error {
	if phone != "" && !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return fmt.Errorf("%w: phone must be digits with an optional leading +", shared.ErrValidation)
	}
	if email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is malformed", shared.ErrValidation)
	}
	return nil
}
