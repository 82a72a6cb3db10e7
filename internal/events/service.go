package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
)

type CreateInput struct {
	Name       string
	ContractID int64
	StartsAt   time.Time
	EndsAt     time.Time
	Location   string
	Attendees  int32
	Notes      string
}

type UpdateInput struct {
	Name      *string
	StartsAt  *time.Time
	EndsAt    *time.Time
	Location  *string
	Attendees *int32
	Notes     *string
}

type Service struct {
	repo Repository
	gate *authz.Gateway
}

func NewService(repo Repository, gate *authz.Gateway) *Service {
	return &Service{repo: repo, gate: gate}
}

func (s *Service) List(ctx context.Context, actor authz.Actor, mineOnly bool) ([]Event, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewAll(authz.KindEvent), nil); err != nil {
		return nil, err
	}
	var filter ListFilter
	if mineOnly {
		id := actor.ID
		filter.MineFor = &id
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) ListUnassigned(ctx context.Context, actor authz.Actor) ([]Event, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewUnassigned(), nil); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{UnassignedOnly: true})
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*Event, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewOne(authz.KindEvent), nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create authorizes against the target contract before touching any other
// state. Sailors must own the client relationship and the contract must be
// signed; the policy walks that chain itself. Roles that skip the ownership
// walk still may not book events on unsigned contracts.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*Event, error) {
	ref := authz.EventRef{ContractID: in.ContractID}
	if err := s.gate.Check(ctx, actor, authz.Create(authz.KindEvent), ref); err != nil {
		return nil, err
	}
	signed, err := s.repo.ContractSigned(ctx, in.ContractID)
	if err != nil {
		return nil, fmt.Errorf("%w: contract %d does not exist", shared.ErrValidation, in.ContractID)
	}
	if !signed {
		return nil, fmt.Errorf("%w: contract %d is not signed", shared.ErrValidation, in.ContractID)
	}
	if err := validateSchedule(in.StartsAt, in.EndsAt, in.Attendees, true); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, &Event{
		Name:       name,
		ContractID: in.ContractID,
		StartsAt:   in.StartsAt,
		EndsAt:     in.EndsAt,
		Location:   strings.TrimSpace(in.Location),
		Attendees:  in.Attendees,
		Notes:      in.Notes,
	})
}

// Update re-reads the event so support assignment is checked against the
// current row, then applies the partial update.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateInput) (*Event, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := authz.EventRef{ID: e.ID, ContractID: e.ContractID, AssignedSupportID: e.SupportID}
	if err := s.gate.Check(ctx, actor, authz.Update(authz.KindEvent), ref); err != nil {
		return nil, err
	}

	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.StartsAt != nil {
		e.StartsAt = *in.StartsAt
	}
	if in.EndsAt != nil {
		e.EndsAt = *in.EndsAt
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.Attendees != nil {
		e.Attendees = *in.Attendees
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
	if err := validateSchedule(e.StartsAt, e.EndsAt, e.Attendees, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AssignSupport sets or clears the support user running the event. The target
// must be an active support account.
func (s *Service) AssignSupport(ctx context.Context, actor authz.Actor, eventID int64, supportID *int64) (*Event, error) {
	e, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ref := authz.EventRef{ID: e.ID, ContractID: e.ContractID, AssignedSupportID: e.SupportID}
	if err := s.gate.Check(ctx, actor, authz.AssignSupport(), ref); err != nil {
		return nil, err
	}
	if supportID != nil {
		ok, err := s.repo.ActiveSupportUser(ctx, *supportID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: user %d is not an active support user", shared.ErrValidation, *supportID)
		}
	}
	e.SupportID = supportID
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// validateSchedule enforces the booking invariants. Past start times are only
// rejected on creation; existing events keep their history editable.
func validateSchedule(start, end time.Time, attendees int32, creating bool) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end times are required", shared.ErrValidation)
	}
	if creating && start.Before(time.Now()) {
		return fmt.Errorf("%w: start time is in the past", shared.ErrValidation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end time precedes start time", shared.ErrValidation)
	}
	if attendees <= 0 {
		return fmt.Errorf("%w: attendees must be positive", shared.ErrValidation)
	}
	return nil
}
