package facematch

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

var errUnreachable = errors.New("reference image unreachable")

// scriptedComparer answers by reference URL and records the order of calls.
type scriptedComparer struct {
	mu      sync.Mutex
	results map[string]domain.Comparison
	errs    map[string]error
	calls   []string
}

func newScriptedComparer() *scriptedComparer {
	return &scriptedComparer{results: map[string]domain.Comparison{}, errs: map[string]error{}}
}

func (c *scriptedComparer) Compare(_ context.Context, _ string, referenceURL string) (domain.Comparison, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, referenceURL)
	if err := c.errs[referenceURL]; err != nil {
		return domain.Comparison{}, err
	}
	return c.results[referenceURL], nil
}

func (c *scriptedComparer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func entry(id string, tag domain.RoleTag) domain.RosterEntry {
	return domain.RosterEntry{
		Identifier:        id,
		DisplayName:       "Person " + id,
		RoleTag:           tag,
		ReferenceImageURL: "https://cdn/" + id + ".jpg",
	}
}
