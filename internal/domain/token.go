package domain

import "time"

// TokenKind tags the decoded shape of a stored token.
type TokenKind string

const (
	TokenNone   TokenKind = "none"
	TokenSigned TokenKind = "signed"
	TokenPseudo TokenKind = "pseudo"
	TokenOpaque TokenKind = "opaque"
)

// Token is a stored credential decoded once at the storage boundary.
// Only the fields relevant to Kind are populated.
type Token struct {
	Kind TokenKind
	Raw  string

	// Pseudo tokens.
	SubjectID string
	IssuedAt  time.Time
}

// IsSigned reports whether the token can be sent to the backend as-is.
func (t Token) IsSigned() bool { return t.Kind == TokenSigned }

// IsPseudo reports whether the token must be exchanged first.
func (t Token) IsPseudo() bool { return t.Kind == TokenPseudo }
