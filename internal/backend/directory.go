package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/session"
)

var rosterPaths = map[domain.RoleTag]string{
	domain.RoleTagEmployee: "/employees",
	domain.RoleTagManager:  "/managers",
	domain.RoleTagAdmin:    "/admins",
}

// rosterItem accepts both the current and the document-store field names.
type rosterItem struct {
	ID           string `json:"id"`
	DocumentID   string `json:"_id"`
	Name         string `json:"name"`
	FaceImageURL string `json:"faceImageUrl"`
	ProfileImage string `json:"profileImage"`
}

func (i rosterItem) entry(tag domain.RoleTag) domain.RosterEntry {
	id := i.ID
	if id == "" {
		id = i.DocumentID
	}
	ref := i.FaceImageURL
	if ref == "" {
		ref = i.ProfileImage
	}
	return domain.RosterEntry{Identifier: id, DisplayName: i.Name, RoleTag: tag, ReferenceImageURL: ref}
}

type listResponse struct {
	Success *bool        `json:"success"`
	Data    []rosterItem `json:"data"`
}

// Directory lists the people registered for face login.
type Directory struct {
	caller caller
}

func NewDirectory(opts Options) *Directory {
	return &Directory{caller: newCaller(opts, "directory")}
}

// ListCandidates fetches one roster list with token. Upstream rejections are
// reported in the Response so session.CallWithRetry can classify them;
// only transport failures are returned as errors.
func (d *Directory) ListCandidates(ctx context.Context, token string, tag domain.RoleTag) (*session.Response[[]domain.RosterEntry], error) {
	path, ok := rosterPaths[tag]
	if !ok {
		return nil, fmt.Errorf("unknown roster tag %q", tag)
	}

	endpoint := d.caller.url(path)
	status, body, err := d.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tag, err)
	}

	if !isSuccess(status) {
		msg := upstreamMessage(body)
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &session.Response[[]domain.RosterEntry]{
			Success: false,
			Status:  status,
			Error:   fmt.Sprintf("HTTP %d: %s", status, msg),
		}, nil
	}

	var decoded listResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", tag, err)
	}
	if decoded.Success != nil && !*decoded.Success {
		return &session.Response[[]domain.RosterEntry]{Success: false, Status: status, Error: upstreamMessage(body)}, nil
	}

	entries := make([]domain.RosterEntry, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		entries = append(entries, item.entry(tag))
	}
	return &session.Response[[]domain.RosterEntry]{Success: true, Status: status, Data: entries}, nil
}
