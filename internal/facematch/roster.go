package facematch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/session"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

// RosterSource lists the candidates registered under one role tag.
type RosterSource interface {
	ListCandidates(ctx context.Context, token string, tag domain.RoleTag) (*session.Response[[]domain.RosterEntry], error)
}

// BuildRoster concatenates lists in priority order. Entries without a
// reference image are dropped, and an identity listed twice under the same
// tag keeps its first position.
func BuildRoster(lists ...[]domain.RosterEntry) []domain.RosterEntry {
	type key struct {
		tag domain.RoleTag
		id  string
	}
	seen := make(map[key]struct{})
	var out []domain.RosterEntry
	for _, list := range lists {
		for _, entry := range list {
			if !entry.Comparable() {
				continue
			}
			k := key{tag: entry.RoleTag, id: entry.Identifier}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, entry)
		}
	}
	return out
}

// LoadRoster fetches the roster for each tag in priority order with a token
// for scope, refreshing it once if the directory rejects it.
func LoadRoster(ctx context.Context, resolver *session.Resolver, source RosterSource, scope domain.Scope, tags ...domain.RoleTag) ([]domain.RosterEntry, error) {
	lists := make([][]domain.RosterEntry, 0, len(tags))
	for _, tag := range tags {
		resp, err := session.CallWithRetry(ctx, resolver, scope, func(ctx context.Context, token string) (*session.Response[[]domain.RosterEntry], error) {
			return source.ListCandidates(ctx, token, tag)
		})
		if err != nil {
			return nil, fmt.Errorf("load %s roster: %w", tag, err)
		}
		if !resp.Success {
			return nil, fmt.Errorf("load %s roster: %w", tag, apperrors.NewDomainError(
				apperrors.CodeUpstream, resp.Error, http.StatusBadGateway, map[string]any{"status": resp.Status}))
		}
		lists = append(lists, resp.Data)
	}
	return BuildRoster(lists...), nil
}
