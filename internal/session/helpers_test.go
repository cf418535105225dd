package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/store"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

type exchangeCall struct {
	Role       domain.Role
	IdentityID string
	Name       string
}

type fakeExchanger struct {
	mu     sync.Mutex
	calls  []exchangeCall
	tokens map[domain.Role]string
	fail   map[domain.Role]bool
	// during runs inside Exchange, while the call is in flight.
	during func()
}

func newFakeExchanger() *fakeExchanger {
	return &fakeExchanger{tokens: map[domain.Role]string{}, fail: map[domain.Role]bool{}}
}

func (f *fakeExchanger) Exchange(_ context.Context, role domain.Role, identityID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, exchangeCall{Role: role, IdentityID: identityID, Name: name})
	if f.during != nil {
		f.during()
	}
	if f.fail[role] {
		return "", fmt.Errorf("%w: HTTP 404", apperrors.ErrExchangeFailed)
	}
	if tok, ok := f.tokens[role]; ok {
		return tok, nil
	}
	return "eyJ" + string(role) + "-" + identityID, nil
}

func (f *fakeExchanger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestResolver(t *testing.T) (*Resolver, *store.Store, *fakeExchanger) {
	t.Helper()
	st := store.NewMemory()
	ex := newFakeExchanger()
	return NewResolver(ResolverDependencies{Store: st, Exchanger: ex}), st, ex
}

func mustPut(t *testing.T, st *store.Store, role domain.Role, env domain.Envelope) {
	t.Helper()
	if err := st.Put(context.Background(), role, env); err != nil {
		t.Fatalf("Put(%s) error: %v", role, err)
	}
}

func pseudoEnvelope(subjectID, name string) domain.Envelope {
	return domain.Envelope{
		Token:           "face_auth_170000_" + subjectID,
		SubjectProfile:  &domain.SubjectProfile{ID: subjectID, Name: name},
		IsAuthenticated: true,
	}
}
