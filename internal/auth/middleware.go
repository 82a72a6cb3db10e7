package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/compass-crm/compass/internal/platform/httpx"
	"github.com/compass-crm/compass/internal/shared"
)

// ActorMiddleware resolves the session user into an authorization actor. The
// user row is loaded on every request rather than cached in the session, so
// the policy always sees the current role.
type ActorMiddleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireActor rejects unauthenticated requests and installs the actor into
// the request context.
func (m *ActorMiddleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("parse session user id", slog.String("value", sess.User()))
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		actor, err := m.Service.LoadActor(r.Context(), userID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}
