package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/events"
)

// Response is the envelope REST collaborators answer with.
type Response[T any] struct {
	Success bool   `json:"success"`
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data"`
}

// NeedsRetry reports whether the response is a rejected credential.
func (r *Response[T]) NeedsRetry() bool {
	return r != nil && !r.Success && IsAuthError(r.Status, r.Code, r.Error)
}

// Action performs one protected call with the given bearer token.
type Action[T any] func(ctx context.Context, token string) (*Response[T], error)

// CallWithRetry runs action with a token for scope. When the first attempt
// is rejected as unauthorized, the token is refreshed through a new exchange
// and action runs exactly once more; that second result is returned as is.
// A second rejection is reported as ErrAuthorizationRejected alongside the
// response.
func CallWithRetry[T any](ctx context.Context, r *Resolver, scope domain.Scope, action Action[T]) (*Response[T], error) {
	token, err := r.Resolve(ctx, scope)
	if err != nil {
		return nil, err
	}

	resp, err := action(ctx, token)
	if !needsRetry(resp, err) {
		return resp, err
	}
	firstErr := failureText(resp, err)

	r.logger.Info("credential rejected; refreshing", zap.String("scope", string(scope)), zap.String("error", firstErr))
	fresh, refreshErr := r.Refresh(ctx, scope)
	if refreshErr != nil {
		r.metrics.RecordRetry("refresh_failed")
		r.publish(ctx, events.New(events.EventRetryPerformed, "", "", events.RetryPayload{
			Scope: scope, FirstError: firstErr, RefreshFail: refreshErr.Error(),
		}))
		return resp, fmt.Errorf("%w: refresh: %w", ErrAuthorizationRejected, refreshErr)
	}

	resp, err = action(ctx, fresh)
	recovered := !needsRetry(resp, err)
	r.publish(ctx, events.New(events.EventRetryPerformed, "", "", events.RetryPayload{
		Scope: scope, FirstError: firstErr, Recovered: recovered,
	}))
	if !recovered {
		r.metrics.RecordRetry("rejected")
		r.logger.Warn("credential rejected after refresh", zap.String("scope", string(scope)))
		if err != nil {
			return resp, fmt.Errorf("%w: %w", ErrAuthorizationRejected, err)
		}
		return resp, fmt.Errorf("%w: %s", ErrAuthorizationRejected, resp.Error)
	}
	r.metrics.RecordRetry("recovered")
	return resp, err
}

func needsRetry[T any](resp *Response[T], err error) bool {
	if err != nil {
		return isAuthFailureErr(err)
	}
	return resp.NeedsRetry()
}

func failureText[T any](resp *Response[T], err error) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return resp.Error
	}
	return ""
}
