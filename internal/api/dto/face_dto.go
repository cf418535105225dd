package dto

import "github.com/spec-kit/faceauth-service/internal/domain"

// IdentifyResponse is the outcome of POST /face/identify.
type IdentifyResponse struct {
	domain.MatchResult
	// LoggedInAs is set when the match populated a credential envelope.
	LoggedInAs domain.Role `json:"loggedInAs,omitempty"`
}
