package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/compass-crm/compass/internal/authz"
	"github.com/compass-crm/compass/internal/shared"
)

const minPasswordLength = 8

type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type UpdateInput struct {
	Email    *string
	Password *string
	Role     *string
	IsActive *bool
}

// Auditor records user management mutations. *shared.AuditLogger satisfies
// it.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo    Repository
	gate    *authz.Gateway
	auditor Auditor
	logger  *slog.Logger
}

// NewService constructs the user management service. The auditor may be nil.
func NewService(repo Repository, gate *authz.Gateway, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, gate: gate, auditor: auditor, logger: logger}
}

func (s *Service) List(ctx context.Context, actor authz.Actor) ([]User, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewAll(authz.KindUser), nil); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (*User, error) {
	if err := s.gate.Check(ctx, actor, authz.ViewOne(authz.KindUser), nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (*User, error) {
	if err := s.gate.Check(ctx, actor, authz.Create(authz.KindUser), nil); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", shared.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", shared.ErrValidation, minPasswordLength)
	}
	role, err := authz.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, &User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         role.String(),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "user.create", created.ID, map[string]any{"role": created.Role})
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, in UpdateInput) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, actor, authz.Update(authz.KindUser), authz.UserRef{ID: u.ID}); err != nil {
		return nil, err
	}

	meta := map[string]any{}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", shared.ErrValidation, minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
		meta["password"] = "rotated"
	}
	if in.Role != nil {
		role, err := authz.ParseRole(*in.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
		}
		meta["role"] = role.String()
		u.Role = role.String()
	}
	if in.IsActive != nil {
		meta["is_active"] = *in.IsActive
		u.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "user.update", u.ID, meta)
	return u, nil
}

func (s *Service) audit(ctx context.Context, actor authz.Actor, action string, userID int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
