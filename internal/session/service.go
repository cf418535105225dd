package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/events"
	"github.com/spec-kit/faceauth-service/internal/observability"
	"github.com/spec-kit/faceauth-service/internal/store"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

// Service owns envelope creation and destruction. Token selection is
// delegated to the Resolver it wraps.
type Service struct {
	store    store.CredentialStore
	resolver *Resolver
	events   events.Dispatcher
	logger   *zap.Logger
	now      func() time.Time
}

// NewService builds the session service on top of a resolver sharing the same store.
func NewService(deps ResolverDependencies) *Service {
	resolver := NewResolver(deps)
	return &Service{
		store:    deps.Store,
		resolver: resolver,
		events:   resolver.events,
		logger:   observability.OrNop(deps.Logger).Named("session"),
		now:      time.Now,
	}
}

// Resolver exposes the underlying resolver for CallWithRetry.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Resolve is a convenience for s.Resolver().Resolve.
func (s *Service) Resolve(ctx context.Context, scope domain.Scope) (string, error) {
	return s.resolver.Resolve(ctx, scope)
}

// Login stores an envelope after a password login.
func (s *Service) Login(ctx context.Context, role domain.Role, token string, profile *domain.SubjectProfile) error {
	if !role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	return s.storeEnvelope(ctx, role, domain.Envelope{
		Token:           token,
		SubjectProfile:  profile,
		IsAuthenticated: true,
	}, "password")
}

// LoginWithFace stores a pseudo-token envelope for a subject identified by
// face matching. The first Resolve for the role exchanges it.
func (s *Service) LoginWithFace(ctx context.Context, role domain.Role, profile domain.SubjectProfile) (string, error) {
	if !role.Valid() {
		return "", apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if profile.ID == "" || profile.Name == "" {
		return "", apperrors.NewValidationError("profile id and name required", nil)
	}
	pseudo := auth.MintPseudoToken(profile.ID, s.now())
	err := s.storeEnvelope(ctx, role, domain.Envelope{
		Token:           pseudo,
		SubjectProfile:  &profile,
		IsAuthenticated: true,
	}, "face")
	if err != nil {
		return "", err
	}
	return pseudo, nil
}

// CompleteFaceMatch hands a roster match over to LoginWithFace. Only
// manager and admin candidates own an envelope; other matches are ignored.
func (s *Service) CompleteFaceMatch(ctx context.Context, result domain.MatchResult) error {
	if !result.Matched || result.Candidate == nil {
		return nil
	}
	role, ok := result.Candidate.RoleTag.EnvelopeRole()
	if !ok {
		return nil
	}
	_, err := s.LoginWithFace(ctx, role, result.Candidate.Profile())
	return err
}

func (s *Service) storeEnvelope(ctx context.Context, role domain.Role, env domain.Envelope, method string) error {
	if err := s.store.Put(ctx, role, env); err != nil {
		return apperrors.NewInternalError(err)
	}
	subjectID := ""
	if env.SubjectProfile != nil {
		subjectID = env.SubjectProfile.ID
		if err := s.store.SetDisplayName(ctx, role, env.SubjectProfile.Name); err != nil {
			s.logger.Warn("cache display name failed", zap.Error(err))
		}
	}
	s.logger.Info("envelope stored", zap.String("role", string(role)), zap.String("method", method))
	s.resolver.publish(ctx, events.New(events.EventLoggedIn, role, subjectID, events.LoginPayload{
		Method:    method,
		TokenKind: auth.DecodeToken(env.Token).Kind,
	}))
	return nil
}

// Logout removes every credential key in one store operation.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("credentials cleared")
	s.resolver.publish(ctx, events.New(events.EventLoggedOut, "", "", nil))
	return nil
}

// RoleStatus describes one envelope without exposing its token.
type RoleStatus struct {
	Role          domain.Role            `json:"role"`
	TokenKind     domain.TokenKind       `json:"tokenKind"`
	Authenticated bool                   `json:"authenticated"`
	Subject       *domain.SubjectProfile `json:"subject,omitempty"`
	ExpiresAt     *time.Time             `json:"expiresAt,omitempty"`
}

// Status reports every role's envelope, manager first.
func (s *Service) Status(ctx context.Context) ([]RoleStatus, error) {
	out := make([]RoleStatus, 0, 2)
	for _, role := range domain.ScopeAny.Roles() {
		st := RoleStatus{Role: role, TokenKind: domain.TokenNone}
		env, err := s.store.Get(ctx, role)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("status %s: %w", role, err)
		default:
			tok := auth.DecodeToken(env.Token)
			st.TokenKind = tok.Kind
			st.Authenticated = env.IsAuthenticated
			st.Subject = env.SubjectProfile
			if tok.IsSigned() {
				if info, err := auth.InspectSigned(tok.Raw); err == nil {
					st.ExpiresAt = info.ExpiresAt
				}
			}
		}
		out = append(out, st)
	}
	return out, nil
}
