package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spec-kit/faceauth-service/internal/domain"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

type recordingAction struct {
	tokens    []string
	responses []*Response[[]string]
	errs      []error
}

func (a *recordingAction) call(_ context.Context, token string) (*Response[[]string], error) {
	i := len(a.tokens)
	a.tokens = append(a.tokens, token)
	var err error
	if i < len(a.errs) {
		err = a.errs[i]
	}
	if i < len(a.responses) {
		return a.responses[i], err
	}
	return a.responses[len(a.responses)-1], err
}

func exchangeableManager(t *testing.T) (*Resolver, *fakeExchanger) {
	r, st, ex := newTestResolver(t)
	ex.tokens[domain.RoleManager] = "eyJrefreshed"
	mustPut(t, st, domain.RoleManager, domain.Envelope{
		Token:           "eyJoriginal",
		SubjectProfile:  &domain.SubjectProfile{ID: "m42", Name: "Sana"},
		IsAuthenticated: true,
	})
	return r, ex
}

func TestCallWithRetryRecoversFrom401(t *testing.T) {
	r, ex := exchangeableManager(t)
	action := &recordingAction{responses: []*Response[[]string]{
		{Success: false, Error: "HTTP 401"},
		{Success: true, Data: []string{"e1", "e2"}},
	}}

	resp, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if err != nil {
		t.Fatalf("CallWithRetry() error: %v", err)
	}
	if !resp.Success || len(resp.Data) != 2 {
		t.Fatalf("expected success response, got %+v", resp)
	}
	if len(action.tokens) != 2 {
		t.Fatalf("expected 2 action calls, got %d", len(action.tokens))
	}
	if action.tokens[0] != "eyJoriginal" || action.tokens[1] != "eyJrefreshed" {
		t.Fatalf("unexpected tokens %v", action.tokens)
	}
	if ex.count() != 1 {
		t.Fatalf("expected one exchange, got %d", ex.count())
	}
}

func TestCallWithRetryCallsActionAtMostTwice(t *testing.T) {
	r, _ := exchangeableManager(t)
	action := &recordingAction{responses: []*Response[[]string]{
		{Success: false, Error: "Invalid face authentication token"},
	}}

	resp, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if !errors.Is(err, ErrAuthorizationRejected) {
		t.Fatalf("expected ErrAuthorizationRejected, got %v", err)
	}
	if resp == nil || resp.Success {
		t.Fatalf("expected the second failure response, got %+v", resp)
	}
	if len(action.tokens) != 2 {
		t.Fatalf("expected exactly 2 action calls, got %d", len(action.tokens))
	}
}

func TestCallWithRetryIgnoresOtherFailures(t *testing.T) {
	r, ex := exchangeableManager(t)
	action := &recordingAction{responses: []*Response[[]string]{
		{Success: false, Error: "employee not found"},
	}}

	resp, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if err != nil {
		t.Fatalf("CallWithRetry() error: %v", err)
	}
	if resp.Error != "employee not found" {
		t.Fatalf("expected first response unchanged, got %+v", resp)
	}
	if len(action.tokens) != 1 || ex.count() != 0 {
		t.Fatalf("expected no retry, got %d calls / %d exchanges", len(action.tokens), ex.count())
	}
}

func TestCallWithRetryWithoutCredential(t *testing.T) {
	r, _, _ := newTestResolver(t)
	action := &recordingAction{responses: []*Response[[]string]{{Success: true}}}

	_, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if len(action.tokens) != 0 {
		t.Fatalf("action must not run without a token")
	}
}

func TestCallWithRetryRefreshImpossible(t *testing.T) {
	r, st, _ := newTestResolver(t)
	mustPut(t, st, domain.RoleAdmin, domain.Envelope{Token: "eyJadmin", IsAuthenticated: true})
	first := &Response[[]string]{Success: false, Status: http.StatusUnauthorized, Error: "token expired"}
	action := &recordingAction{responses: []*Response[[]string]{first}}

	resp, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if !errors.Is(err, ErrAuthorizationRejected) || !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected rejection wrapping ErrNoCredential, got %v", err)
	}
	if resp != first || len(action.tokens) != 1 {
		t.Fatalf("expected first response and a single call, got %+v after %d calls", resp, len(action.tokens))
	}
}

func TestCallWithRetryOnUnauthorizedError(t *testing.T) {
	r, _ := exchangeableManager(t)
	action := &recordingAction{
		responses: []*Response[[]string]{nil, {Success: true}},
		errs:      []error{apperrors.NewUpstreamError(http.StatusUnauthorized, "")},
	}

	resp, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if err != nil || !resp.Success {
		t.Fatalf("CallWithRetry() = %+v, %v", resp, err)
	}
	if len(action.tokens) != 2 {
		t.Fatalf("expected retry after 401 error, got %d calls", len(action.tokens))
	}
}

func TestCallWithRetryPassesThroughTransportError(t *testing.T) {
	r, _ := exchangeableManager(t)
	boom := errors.New("dial tcp: connection refused")
	action := &recordingAction{responses: []*Response[[]string]{nil}, errs: []error{boom}}

	_, err := CallWithRetry(context.Background(), r, domain.ScopeAny, action.call)
	if !errors.Is(err, boom) || len(action.tokens) != 1 {
		t.Fatalf("expected transport error without retry, got %v after %d calls", err, len(action.tokens))
	}
}

func TestIsAuthError(t *testing.T) {
	cases := []struct {
		status  int
		code    string
		message string
		want    bool
	}{
		{0, "", "HTTP 401", true},
		{0, "", "Request failed with status code 401", true},
		{0, "", "Unauthorized access", true},
		{0, "", "INVALID FACE AUTHENTICATION TOKEN", true},
		{401, "", "", true},
		{0, apperrors.CodeUnauthorized, "", true},
		{0, "", "order 14012 not found", false},
		{500, "", "internal error", false},
		{0, "", "", false},
	}
	for _, tc := range cases {
		if got := IsAuthError(tc.status, tc.code, tc.message); got != tc.want {
			t.Errorf("IsAuthError(%d, %q, %q) = %v, want %v", tc.status, tc.code, tc.message, got, tc.want)
		}
	}
}
