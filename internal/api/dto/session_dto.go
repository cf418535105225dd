package dto

import (
	"github.com/spec-kit/faceauth-service/internal/domain"
)

// LoginRequest stores a token obtained from a password login.
type LoginRequest struct {
	Role    domain.Role            `json:"role"`
	Token   string                 `json:"token"`
	Profile *domain.SubjectProfile `json:"profile"`
}

// FaceLoginRequest stores a pseudo-token for a subject identified by face.
type FaceLoginRequest struct {
	Role    domain.Role           `json:"role"`
	Profile domain.SubjectProfile `json:"profile"`
}

// ResolveRequest asks for a bearer token for a scope.
type ResolveRequest struct {
	Scope domain.Scope `json:"scope"`
}

// ResolveResponse carries the resolved bearer token.
type ResolveResponse struct {
	Token string           `json:"token"`
	Kind  domain.TokenKind `json:"kind"`
}
