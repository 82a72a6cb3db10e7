package events_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/events"
	"github.com/compass-crm/compass/internal/shared"
)

type contractRow struct {
	clientID int64
	signed   bool
}

type stubRepo struct {
	byID      map[int64]*events.Event
	contracts map[int64]contractRow
	clients   map[int64]string // client id -> marketing contact
	support   map[int64]bool   // user id -> active support account
	created   *events.Event
	updated   *events.Event
}

func (s *stubRepo) List(ctx context.Context, filter events.ListFilter) ([]events.Event, error) {
	var out []events.Event
	for _, e := range s.byID {
		if filter.UnassignedOnly && e.SupportID != nil {
			continue
		}
		if filter.MineFor != nil && (e.SupportID == nil || *e.SupportID != *filter.MineFor) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*events.Event, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *stubRepo) Create(ctx context.Context, e *events.Event) (*events.Event, error) {
	cp := *e
	cp.ID = 301
	s.created = &cp
	return &cp, nil
}

func (s *stubRepo) Update(ctx context.Context, e *events.Event) error {
	cp := *e
	s.updated = &cp
	s.byID[e.ID] = &cp
	return nil
}

func (s *stubRepo) ContractSigned(ctx context.Context, contractID int64) (bool, error) {
	c, ok := s.contracts[contractID]
	if !ok {
		return false, shared.ErrNotFound
	}
	return c.signed, nil
}

func (s *stubRepo) ActiveSupportUser(ctx context.Context, userID int64) (bool, error) {
	return s.support[userID], nil
}

type repoResolver struct {
	repo *stubRepo
}

func (r repoResolver) ClientOfContract(ctx context.Context, contract authz.ContractRef) (authz.ClientRef, error) {
	contact, ok := r.repo.clients[contract.ClientID]
	if !ok {
		return authz.ClientRef{}, authz.ErrRelationNotFound
	}
	return authz.ClientRef{ID: contract.ClientID, MarketingContact: contact}, nil
}

func (r repoResolver) ContractOfEvent(ctx context.Context, event authz.EventRef) (authz.ContractRef, error) {
	c, ok := r.repo.contracts[event.ContractID]
	if !ok {
		return authz.ContractRef{}, authz.ErrRelationNotFound
	}
	return authz.ContractRef{ID: event.ContractID, ClientID: c.clientID, Signed: c.signed}, nil
}

func newService(repo *stubRepo) *events.Service {
	engine := authz.NewEngine(authz.DefaultCapabilities(), repoResolver{repo: repo})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return events.NewService(repo, authz.NewGateway(engine, logger, nil, nil))
}

func newRepo() *stubRepo {
	return &stubRepo{
		byID:      map[int64]*events.Event{},
		contracts: map[int64]contractRow{10: {clientID: 5, signed: true}, 11: {clientID: 5, signed: false}},
		clients:   map[int64]string{5: "alice"},
		support:   map[int64]bool{40: true},
	}
}

func sailorAlice() authz.Actor {
	return authz.Actor{ID: 2, Username: "alice", Role: authz.RoleSailor}
}

func supportActor(id int64) authz.Actor {
	return authz.Actor{ID: id, Username: "carol", Role: authz.RoleSupport}
}

func validCreate(contractID int64) events.CreateInput {
	start := time.Now().Add(48 * time.Hour)
	return events.CreateInput{
		Name:       "Launch Party",
		ContractID: contractID,
		StartsAt:   start,
		EndsAt:     start.Add(4 * time.Hour),
		Location:   "53 Rue du Port",
		Attendees:  75,
	}
}

func TestCreateBySailorOnOwnSignedContract(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	e, err := svc.Create(context.Background(), sailorAlice(), validCreate(10))
	require.NoError(t, err)
	require.Equal(t, int64(10), e.ContractID)
	require.Nil(t, e.SupportID)
}

func TestCreateDeniedOnUnsignedContract(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	_, err := svc.Create(context.Background(), sailorAlice(), validCreate(11))
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonContractNotSigned, denied.Reason)
	require.Nil(t, repo.created)
}

func TestCreateDeniedOnForeignClient(t *testing.T) {
	repo := newRepo()
	repo.clients[5] = "bob"
	svc := newService(repo)

	_, err := svc.Create(context.Background(), sailorAlice(), validCreate(10))
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonNotLinkedToClient, denied.Reason)
}

func TestCreateByAdminStillRequiresSignedContract(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	admin := authz.Actor{ID: 1, Username: "root", Role: authz.RoleAdmin}
	_, err := svc.Create(context.Background(), admin, validCreate(11))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsPastStart(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	in := validCreate(10)
	in.StartsAt = time.Now().Add(-time.Hour)
	in.EndsAt = time.Now().Add(time.Hour)
	_, err := svc.Create(context.Background(), sailorAlice(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	in := validCreate(10)
	in.EndsAt = in.StartsAt.Add(-time.Hour)
	_, err := svc.Create(context.Background(), sailorAlice(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateBySupportRequiresAssignment(t *testing.T) {
	repo := newRepo()
	assigned := int64(40)
	start := time.Now().Add(24 * time.Hour)
	repo.byID[7] = &events.Event{
		ID: 7, Name: "Gala", ContractID: 10,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Attendees: 50, SupportID: &assigned,
	}
	svc := newService(repo)

	notes := "Checked the venue"
	e, err := svc.Update(context.Background(), supportActor(40), 7, events.UpdateInput{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, notes, e.Notes)

	_, err = svc.Update(context.Background(), supportActor(41), 7, events.UpdateInput{Notes: &notes})
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonNotAssigned, denied.Reason)
}

func TestUpdateBySupportDeniedWhenUnassigned(t *testing.T) {
	repo := newRepo()
	start := time.Now().Add(24 * time.Hour)
	repo.byID[7] = &events.Event{
		ID: 7, Name: "Gala", ContractID: 10,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Attendees: 50,
	}
	svc := newService(repo)

	notes := "hello"
	_, err := svc.Update(context.Background(), supportActor(40), 7, events.UpdateInput{Notes: &notes})
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonNotAssigned, denied.Reason)
}

func TestAssignSupport(t *testing.T) {
	repo := newRepo()
	start := time.Now().Add(24 * time.Hour)
	repo.byID[7] = &events.Event{
		ID: 7, Name: "Gala", ContractID: 10,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Attendees: 50,
	}
	svc := newService(repo)

	mgr := authz.Actor{ID: 1, Username: "meg", Role: authz.RoleManager}
	target := int64(40)
	e, err := svc.AssignSupport(context.Background(), mgr, 7, &target)
	require.NoError(t, err)
	require.NotNil(t, e.SupportID)
	require.Equal(t, int64(40), *e.SupportID)

	// Clearing the assignment is allowed.
	e, err = svc.AssignSupport(context.Background(), mgr, 7, nil)
	require.NoError(t, err)
	require.Nil(t, e.SupportID)
}

func TestAssignSupportRejectsNonSupportUser(t *testing.T) {
	repo := newRepo()
	start := time.Now().Add(24 * time.Hour)
	repo.byID[7] = &events.Event{
		ID: 7, Name: "Gala", ContractID: 10,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Attendees: 50,
	}
	svc := newService(repo)

	mgr := authz.Actor{ID: 1, Username: "meg", Role: authz.RoleManager}
	target := int64(99)
	_, err := svc.AssignSupport(context.Background(), mgr, 7, &target)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignSupportDeniedForSailor(t *testing.T) {
	repo := newRepo()
	start := time.Now().Add(24 * time.Hour)
	repo.byID[7] = &events.Event{
		ID: 7, Name: "Gala", ContractID: 10,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
		Attendees: 50,
	}
	svc := newService(repo)

	target := int64(40)
	_, err := svc.AssignSupport(context.Background(), sailorAlice(), 7, &target)
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonRoleNotPermitted, denied.Reason)
}

func TestListUnassigned(t *testing.T) {
	repo := newRepo()
	assigned := int64(40)
	start := time.Now().Add(24 * time.Hour)
	repo.byID[1] = &events.Event{ID: 1, ContractID: 10, StartsAt: start, EndsAt: start.Add(time.Hour), Attendees: 10, SupportID: &assigned}
	repo.byID[2] = &events.Event{ID: 2, ContractID: 10, StartsAt: start, EndsAt: start.Add(time.Hour), Attendees: 10}
	svc := newService(repo)

	mgr := authz.Actor{ID: 1, Username: "meg", Role: authz.RoleManager}
	list, err := svc.ListUnassigned(context.Background(), mgr)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(2), list[0].ID)

	_, err = svc.ListUnassigned(context.Background(), sailorAlice())
	require.ErrorIs(t, err, authz.ErrDenied)
}

func TestListMineForSupport(t *testing.T) {
	repo := newRepo()
	assigned := int64(40)
	start := time.Now().Add(24 * time.Hour)
	repo.byID[1] = &events.Event{ID: 1, ContractID: 10, StartsAt: start, EndsAt: start.Add(time.Hour), Attendees: 10, SupportID: &assigned}
	repo.byID[2] = &events.Event{ID: 2, ContractID: 10, StartsAt: start, EndsAt: start.Add(time.Hour), Attendees: 10}
	svc := newService(repo)

	list, err := svc.List(context.Background(), supportActor(40), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(1), list[0].ID)
}
