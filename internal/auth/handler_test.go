package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/compass-crm/compass/internal/auth"
	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
	_ "github.com/compass-crm/compass/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &auth.User{
		ID:           7,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         "sailor",
		IsActive:     true,
	}
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *auth.Service, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	service := auth.NewService(repo)
	handler := auth.NewHandler(slog.Default(), service, sessionManager, csrfManager)
	return handler, service, sessionManager
}

func newRouter(handler *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: testUser(t)}
	handler, _, sm := newAuthHandler(t, repo)

	body := strings.NewReader(`{"username":"alice","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"username":"alice"`) {
		t.Fatalf("expected username in body, got %s", res.Body.String())
	}
	if !strings.Contains(res.Body.String(), `"csrf_token"`) {
		t.Fatalf("expected csrf token in body")
	}
	if sess.User() == "" {
		t.Fatal("expected session user to be set")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one registered session, got %d", len(repo.sessions))
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: testUser(t)}
	handler, _, sm := newAuthHandler(t, repo)

	body := strings.NewReader(`{"username":"alice","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := testUser(t)
	user.IsActive = false
	handler, _, sm := newAuthHandler(t, &stubRepo{user: user})

	body := strings.NewReader(`{"username":"alice","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoadActor(t *testing.T) {
	user := testUser(t)
	service := auth.NewService(&stubRepo{user: user})

	actor, err := service.LoadActor(context.Background(), 7)
	if err != nil {
		t.Fatalf("load actor: %v", err)
	}
	if actor.Role != authz.RoleSailor {
		t.Fatalf("expected sailor role, got %s", actor.Role)
	}
	if actor.Username != "alice" {
		t.Fatalf("expected alice, got %s", actor.Username)
	}

	if _, err := service.LoadActor(context.Background(), 99); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestLoadActorRejectsUnknownRole(t *testing.T) {
	user := testUser(t)
	user.Role = "intern"
	service := auth.NewService(&stubRepo{user: user})

	if _, err := service.LoadActor(context.Background(), 7); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
