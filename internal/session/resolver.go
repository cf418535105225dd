package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/events"
	"github.com/spec-kit/faceauth-service/internal/observability"
	"github.com/spec-kit/faceauth-service/internal/store"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

var (
	ErrNoCredential          = apperrors.ErrNoCredential
	ErrAuthorizationRejected = apperrors.ErrAuthorizationRejected
)

// Exchanger trades a face-verified identity for a signed token.
type Exchanger interface {
	Exchange(ctx context.Context, role domain.Role, identityID, name string) (string, error)
}

// ResolverDependencies bundles what a Resolver needs.
type ResolverDependencies struct {
	Store     store.CredentialStore
	Exchanger Exchanger
	Events    events.Dispatcher
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Resolver picks a usable bearer token for a scope.
type Resolver struct {
	store     store.CredentialStore
	exchanger Exchanger
	events    events.Dispatcher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewResolver builds a Resolver.
func NewResolver(deps ResolverDependencies) *Resolver {
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &Resolver{
		store:     deps.Store,
		exchanger: deps.Exchanger,
		events:    dispatcher,
		logger:    observability.OrNop(deps.Logger).Named("resolver"),
		metrics:   deps.Metrics,
	}
}

// Resolve returns a token for scope. Envelopes are examined in the scope's
// precedence order: a signed token wins immediately, a pseudo-token is
// exchanged and written back, and an unrecognized token is returned as is so
// the backend can reject it and CallWithRetry can refresh.
func (r *Resolver) Resolve(ctx context.Context, scope domain.Scope) (string, error) {
	roles := scope.Roles()
	if roles == nil {
		return "", apperrors.NewValidationError("unknown scope", map[string]any{"scope": scope})
	}

	for _, role := range roles {
		env, ok := r.envelope(ctx, role)
		if !ok {
			if legacy := r.legacySigned(ctx, role); legacy != "" {
				return legacy, nil
			}
			continue
		}

		tok := auth.DecodeToken(env.Token)
		switch tok.Kind {
		case domain.TokenSigned:
			return tok.Raw, nil
		case domain.TokenPseudo:
			signed, err := r.exchange(ctx, role, *env, tok)
			if err != nil {
				continue
			}
			return signed, nil
		case domain.TokenOpaque:
			r.logger.Warn("envelope holds unrecognized token shape", zap.String("role", string(role)))
			return tok.Raw, nil
		}
	}

	return "", fmt.Errorf("%w: scope %s", ErrNoCredential, scope)
}

// Refresh re-runs the exchange for the first envelope in scope that carries
// a subject profile, regardless of the stored token's shape. The server
// rejected the current token, so its local shape proves nothing.
func (r *Resolver) Refresh(ctx context.Context, scope domain.Scope) (string, error) {
	roles := scope.Roles()
	if roles == nil {
		return "", apperrors.NewValidationError("unknown scope", map[string]any{"scope": scope})
	}

	for _, role := range roles {
		env, ok := r.envelope(ctx, role)
		if !ok || env.SubjectProfile == nil {
			continue
		}
		signed, err := r.exchange(ctx, role, *env, auth.DecodeToken(env.Token))
		if err != nil {
			continue
		}
		return signed, nil
	}
	return "", fmt.Errorf("%w: no exchangeable envelope for scope %s", ErrNoCredential, scope)
}

func (r *Resolver) envelope(ctx context.Context, role domain.Role) (*domain.Envelope, bool) {
	env, err := r.store.Get(ctx, role)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("read envelope failed", zap.String("role", string(role)), zap.Error(err))
		}
		return nil, false
	}
	if !env.Usable() {
		return nil, false
	}
	return env, true
}

// legacySigned returns the pre-envelope scalar token when it is signed.
// A legacy pseudo-token has no profile and cannot be exchanged.
func (r *Resolver) legacySigned(ctx context.Context, role domain.Role) string {
	raw, err := r.store.LegacyToken(ctx, role)
	if err != nil {
		r.logger.Warn("read legacy token failed", zap.String("role", string(role)), zap.Error(err))
		return ""
	}
	if tok := auth.DecodeToken(raw); tok.IsSigned() {
		return tok.Raw
	}
	return ""
}

// exchange trades the envelope's identity for a signed token and writes the
// upgraded envelope back before returning it.
func (r *Resolver) exchange(ctx context.Context, role domain.Role, env domain.Envelope, tok domain.Token) (string, error) {
	if env.SubjectProfile == nil {
		r.logger.Warn("pseudo token without subject profile", zap.String("role", string(role)))
		return "", fmt.Errorf("%w: %s envelope has no subject profile", apperrors.ErrExchangeFailed, role)
	}
	identityID := tok.SubjectID
	if identityID == "" {
		identityID = env.SubjectProfile.ID
	}
	if identityID == "" {
		return "", fmt.Errorf("%w: %s envelope has no subject id", apperrors.ErrExchangeFailed, role)
	}

	signed, err := r.exchanger.Exchange(ctx, role, identityID, env.SubjectProfile.Name)
	if err != nil {
		r.metrics.RecordExchange(string(role), "failure")
		r.logger.Warn("face login exchange failed",
			zap.String("role", string(role)),
			zap.String("subject_id", identityID),
			zap.Error(err),
		)
		r.publish(ctx, events.New(events.EventExchangeFailed, role, identityID, events.ExchangeFailedPayload{Reason: err.Error()}))
		return "", err
	}

	// A logout or another login may have replaced the envelope while the
	// exchange was in flight.
	current, ok := r.envelope(ctx, role)
	if !ok || current.SubjectProfile == nil || current.SubjectProfile.ID != env.SubjectProfile.ID {
		r.metrics.RecordExchange(string(role), "discarded")
		r.logger.Info("envelope changed during exchange; discarding token",
			zap.String("role", string(role)),
			zap.String("subject_id", identityID),
		)
		return "", fmt.Errorf("%w: %s envelope changed during exchange", ErrNoCredential, role)
	}
	if err := r.store.Put(ctx, role, current.WithToken(signed)); err != nil {
		r.logger.Error("write exchanged token failed", zap.String("role", string(role)), zap.Error(err))
	}
	r.metrics.RecordExchange(string(role), "success")
	r.logger.Info("face login exchanged", zap.String("role", string(role)), zap.String("subject_id", identityID))
	r.publish(ctx, events.New(events.EventTokenExchanged, role, identityID, nil))
	return signed, nil
}

func (r *Resolver) publish(ctx context.Context, event events.Event) {
	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Debug("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
