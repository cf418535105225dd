package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/events"
)

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.New(events.EventLoggedIn, domain.RoleManager, "m42", events.LoginPayload{Method: "face", TokenKind: domain.TokenPseudo}))
	_ = dispatcher.Publish(ctx, events.New(events.EventExchangeFailed, domain.RoleAdmin, "a1", events.ExchangeFailedPayload{Reason: "HTTP 404"}))
	_ = dispatcher.Publish(ctx, events.New(events.EventRetryPerformed, "", "", events.RetryPayload{Scope: domain.ScopeAny, Recovered: true}))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	login := entries[0]
	if login.Message != "logged_in" || login.ContextMap()["method"] != "face" || login.ContextMap()["subject_id"] != "m42" {
		t.Fatalf("unexpected login entry %+v", login.ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("exchange failure should log at warn, got %s", entries[1].Level)
	}
	if entries[2].Level != zapcore.InfoLevel {
		t.Fatalf("recovered retry should log at info, got %s", entries[2].Level)
	}
}
