package users_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
	"github.com/compass-crm/compass/internal/users"
)

type stubRepo struct {
	byID       map[int64]*users.User
	created    *users.User
	updated    *users.User
	duplicates map[string]struct{}
}

func (s *stubRepo) List(ctx context.Context) ([]users.User, error) {
	var out []users.User
	for _, u := range s.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*users.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) Create(ctx context.Context, u *users.User) (*users.User, error) {
	if _, dup := s.duplicates[u.Username]; dup {
		return nil, shared.ErrDuplicate
	}
	cp := *u
	cp.ID = 401
	s.created = &cp
	return &cp, nil
}

func (s *stubRepo) Update(ctx context.Context, u *users.User) error {
	cp := *u
	s.updated = &cp
	s.byID[u.ID] = &cp
	return nil
}

type spyAuditor struct {
	logs []shared.AuditLog
}

func (s *spyAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type noResolver struct{}

func (noResolver) ClientOfContract(ctx context.Context, contract authz.ContractRef) (authz.ClientRef, error) {
	return authz.ClientRef{}, errors.New("unexpected resolution")
}

func (noResolver) ContractOfEvent(ctx context.Context, event authz.EventRef) (authz.ContractRef, error) {
	return authz.ContractRef{}, errors.New("unexpected resolution")
}

func newService(repo *stubRepo, auditor *spyAuditor) *users.Service {
	engine := authz.NewEngine(authz.DefaultCapabilities(), noResolver{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := authz.NewGateway(engine, logger, nil, nil)
	var a users.Auditor
	if auditor != nil {
		a = auditor
	}
	return users.NewService(repo, gate, a, logger)
}

func managerActor() authz.Actor {
	return authz.Actor{ID: 1, Username: "meg", Role: authz.RoleManager}
}

func TestCreateHashesPasswordAndAudits(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}}
	auditor := &spyAuditor{}
	svc := newService(repo, auditor)

	u, err := svc.Create(context.Background(), managerActor(), users.CreateInput{
		Username: "dave",
		Email:    "dave@compass.example",
		Password: "correct horse battery",
		Role:     "support",
	})
	require.NoError(t, err)
	require.True(t, u.IsActive)
	require.NotEqual(t, "correct horse battery", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse battery")))

	require.Len(t, auditor.logs, 1)
	require.Equal(t, "user.create", auditor.logs[0].Action)
	require.Equal(t, "user", auditor.logs[0].Entity)
}

func TestCreateDeniedForSailorAndSupport(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}}
	svc := newService(repo, nil)

	for _, role := range []authz.Role{authz.RoleSailor, authz.RoleSupport} {
		actor := authz.Actor{ID: 9, Username: "who", Role: role}
		_, err := svc.Create(context.Background(), actor, users.CreateInput{
			Username: "dave", Email: "d@x.example", Password: "longenough", Role: "support",
		})
		var denied *authz.DeniedError
		require.ErrorAs(t, err, &denied, "role %s", role)
		require.Equal(t, authz.ReasonRoleNotPermitted, denied.Reason)
	}
	require.Nil(t, repo.created)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}}
	svc := newService(repo, nil)

	_, err := svc.Create(context.Background(), managerActor(), users.CreateInput{
		Username: "dave", Email: "d@x.example", Password: "longenough", Role: "pirate",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}}
	svc := newService(repo, nil)

	_, err := svc.Create(context.Background(), managerActor(), users.CreateInput{
		Username: "dave", Email: "d@x.example", Password: "short", Role: "support",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}, duplicates: map[string]struct{}{"dave": {}}}
	svc := newService(repo, nil)

	_, err := svc.Create(context.Background(), managerActor(), users.CreateInput{
		Username: "dave", Email: "d@x.example", Password: "longenough", Role: "support",
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateRoleAndDeactivate(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{
		7: {ID: 7, Username: "dave", Email: "d@x.example", Role: "support", IsActive: true},
	}}
	auditor := &spyAuditor{}
	svc := newService(repo, auditor)

	role := "sailor"
	inactive := false
	u, err := svc.Update(context.Background(), managerActor(), 7, users.UpdateInput{Role: &role, IsActive: &inactive})
	require.NoError(t, err)
	require.Equal(t, "sailor", u.Role)
	require.False(t, u.IsActive)

	require.Len(t, auditor.logs, 1)
	require.Equal(t, "user.update", auditor.logs[0].Action)
	require.Equal(t, "sailor", auditor.logs[0].Meta["role"])
}

func TestUpdateRotatesPassword(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{
		7: {ID: 7, Username: "dave", Role: "support", IsActive: true, PasswordHash: "old"},
	}}
	svc := newService(repo, nil)

	pw := "a new long password"
	u, err := svc.Update(context.Background(), managerActor(), 7, users.UpdateInput{Password: &pw})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)))
}

func TestUpdateMissingUser(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{}}
	svc := newService(repo, nil)

	role := "sailor"
	_, err := svc.Update(context.Background(), managerActor(), 99, users.UpdateInput{Role: &role})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListRequiresViewCapability(t *testing.T) {
	repo := &stubRepo{byID: map[int64]*users.User{
		7: {ID: 7, Username: "dave", Role: "support", IsActive: true},
	}}
	svc := newService(repo, nil)

	list, err := svc.List(context.Background(), managerActor())
	require.NoError(t, err)
	require.Len(t, list, 1)
}
