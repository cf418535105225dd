package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/domain"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

var ErrExchangeFailed = apperrors.ErrExchangeFailed

type faceLoginRequest struct {
	IdentityID   string `json:"identityId"`
	Name         string `json:"name"`
	FaceVerified bool   `json:"faceVerified"`
}

// The token is either top-level or nested under data depending on the role endpoint.
type faceLoginResponse struct {
	Token string `json:"token"`
	Data  *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// FaceLoginExchanger calls POST /{role}/face-login.
type FaceLoginExchanger struct {
	caller caller
}

func NewFaceLoginExchanger(opts Options) *FaceLoginExchanger {
	return &FaceLoginExchanger{caller: newCaller(opts, "face-login")}
}

// Exchange trades a face-verified identity for a signed token.
func (e *FaceLoginExchanger) Exchange(ctx context.Context, role domain.Role, identityID, name string) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrExchangeFailed, role)
	}
	payload, err := json.Marshal(faceLoginRequest{IdentityID: identityID, Name: name, FaceVerified: true})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ErrExchangeFailed, err)
	}

	endpoint := e.caller.url("/" + string(role) + "/face-login")
	status, body, err := e.caller.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		e.caller.logger.Warn("face login request failed", zap.String("role", string(role)), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	if !isSuccess(status) {
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed, apperrors.NewUpstreamError(status, upstreamMessage(body)))
	}

	var decoded faceLoginResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrExchangeFailed, err)
	}
	token := decoded.Token
	if token == "" && decoded.Data != nil {
		token = decoded.Data.Token
	}
	if token == "" {
		return "", fmt.Errorf("%w: response carried no token", ErrExchangeFailed)
	}
	return token, nil
}
