package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/faceauth-service/internal/domain"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// InvalidTokenMessage is the rejection text clients match on when they
// cannot read a structured code.
const InvalidTokenMessage = "Invalid face authentication token"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	Name      string
	Role      domain.Role
}

// AuthMiddleware validates bearer tokens issued by a TokenManager.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. Pseudo-tokens are
// never accepted: they only name a subject and must be exchanged first.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	if !DecodeToken(parts[1]).IsSigned() {
		return apperrors.NewUnauthorized(InvalidTokenMessage)
	}
	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized(InvalidTokenMessage)
	}

	c.Locals(principalKey, &Principal{SubjectID: claims.Subject, Name: claims.Name, Role: claims.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
