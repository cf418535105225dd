package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/events"
	"github.com/spec-kit/faceauth-service/internal/observability"
)

// AuditService writes one structured log line per credential event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     observability.OrNop(logger).Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoggedIn, a.handleLoggedIn)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleInfo)
	a.dispatcher.Subscribe(events.EventTokenExchanged, a.handleInfo)
	a.dispatcher.Subscribe(events.EventExchangeFailed, a.handleWarn)
	a.dispatcher.Subscribe(events.EventRetryPerformed, a.handleRetry)
	a.dispatcher.Subscribe(events.EventFaceMatched, a.handleInfo)
	a.dispatcher.Subscribe(events.EventFaceUnmatched, a.handleInfo)
	a.dispatcher.Subscribe(events.EventComparisonError, a.handleWarn)
}

func (a *AuditService) handleLoggedIn(_ context.Context, event events.Event) error {
	fields := a.fields(event)
	if p, ok := event.Payload.(events.LoginPayload); ok {
		fields = append(fields, zap.String("method", p.Method), zap.String("token_kind", string(p.TokenKind)))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func (a *AuditService) handleRetry(_ context.Context, event events.Event) error {
	p, ok := event.Payload.(events.RetryPayload)
	if !ok || p.Recovered {
		a.logger.Info(string(event.Type), a.fields(event)...)
		return nil
	}
	a.logger.Warn(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) handleInfo(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) handleWarn(_ context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", string(event.Role)))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	return fields
}
