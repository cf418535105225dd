package devbackend_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/faceauth-service/internal/auth"
	"github.com/spec-kit/faceauth-service/internal/backend"
	"github.com/spec-kit/faceauth-service/internal/devbackend"
	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/facematch"
	"github.com/spec-kit/faceauth-service/internal/session"
	"github.com/spec-kit/faceauth-service/internal/store"
)

type harness struct {
	tokens    *auth.TokenManager
	store     *store.Store
	session   *session.Service
	directory *backend.Directory
	matcher   *facematch.Matcher
}

func newHarness(t *testing.T) harness {
	t.Helper()
	people, err := devbackend.Seed()
	if err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	tm := auth.NewTokenManager("e2e-secret", 5)
	server := httptest.NewServer(adaptor.FiberApp(devbackend.NewServer(devbackend.NewDirectory(people), tm, nil).App()))
	t.Cleanup(server.Close)

	opts := backend.Options{BaseURL: server.URL, HTTPClient: server.Client()}
	st := store.NewMemory()
	return harness{
		tokens: tm,
		store:  st,
		session: session.NewService(session.ResolverDependencies{
			Store:     st,
			Exchanger: backend.NewFaceLoginExchanger(opts),
		}),
		directory: backend.NewDirectory(opts),
		matcher:   facematch.NewMatcher(facematch.MatcherDependencies{Comparer: backend.NewFaceComparer(opts)}),
	}
}

func writeProbe(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jpg")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write probe: %v", err)
	}
	return path
}

func TestFaceLoginEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.session.LoginWithFace(ctx, domain.RoleManager, domain.SubjectProfile{ID: "m42", Name: "Sana"}); err != nil {
		t.Fatalf("LoginWithFace() error: %v", err)
	}

	roster, err := facematch.LoadRoster(ctx, h.session.Resolver(), h.directory, domain.ScopeAny,
		domain.RoleTagEmployee, domain.RoleTagManager, domain.RoleTagAdmin)
	if err != nil {
		t.Fatalf("LoadRoster() error: %v", err)
	}
	if len(roster) != 4 {
		t.Fatalf("expected 4 roster entries, got %+v", roster)
	}
	env, err := h.store.Get(ctx, domain.RoleManager)
	if err != nil || !auth.DecodeToken(env.Token).IsSigned() {
		t.Fatalf("expected exchanged manager token in store, got %+v, %v", env, err)
	}

	flow := facematch.NewFlow(h.matcher, facematch.WithHandOff(func(ctx context.Context, r domain.MatchResult) error {
		role, ok := r.Candidate.RoleTag.EnvelopeRole()
		if !ok {
			return nil
		}
		_, err := h.session.LoginWithFace(ctx, role, r.Candidate.Profile())
		return err
	}))
	result, err := flow.Identify(ctx, writeProbe(t, "jpeg-bytes face:a1 jpeg-bytes"), roster)
	if err != nil {
		t.Fatalf("Identify() error: %v", err)
	}
	if !result.Matched || result.Candidate.Identifier != "a1" || result.Candidate.RoleTag != domain.RoleTagAdmin {
		t.Fatalf("expected admin a1, got %+v", result)
	}

	token, err := h.session.Resolve(ctx, domain.ScopeAdminOnly)
	if err != nil {
		t.Fatalf("Resolve(admin-only) error: %v", err)
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil || claims.Subject != "a1" || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected admin token claims %+v, %v", claims, err)
	}

	if err := h.session.Logout(ctx); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := h.session.Resolve(ctx, domain.ScopeAny); !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential after logout, got %v", err)
	}
}

func TestStaleSignedTokenIsRefreshed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	stale, _, err := auth.NewTokenManager("rotated-away", 5).GenerateToken("m42", "Sana", domain.RoleManager)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if err := h.session.Login(ctx, domain.RoleManager, stale, &domain.SubjectProfile{ID: "m42", Name: "Sana"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	roster, err := facematch.LoadRoster(ctx, h.session.Resolver(), h.directory, domain.ScopeManagerOnly, domain.RoleTagEmployee)
	if err != nil {
		t.Fatalf("LoadRoster() error: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 employees, got %+v", roster)
	}
	token, _ := h.session.Resolve(ctx, domain.ScopeManagerOnly)
	if token == stale {
		t.Fatalf("expected stored token to be replaced after refresh")
	}
}

func TestUnregisteredFaceIsUnmatched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	roster := []domain.RosterEntry{
		{Identifier: "e1", RoleTag: domain.RoleTagEmployee, ReferenceImageURL: "https://faces.local/employees/e1.jpg"},
		{Identifier: "gone", RoleTag: domain.RoleTagEmployee, ReferenceImageURL: "https://faces.local/employees/gone.jpg"},
	}

	result, err := h.matcher.Match(ctx, writeProbe(t, "someone else"), roster)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected unmatched, got %+v", result)
	}
}
