package session

import (
	"errors"
	"net/http"
	"regexp"

	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

// authFailurePattern matches the messages upstream services use when they
// reject a token and cannot send a structured code.
var authFailurePattern = regexp.MustCompile(`(?i)\b401\b|unauthori[sz]ed|invalid face authentication token`)

// IsAuthError is the single rule for "the server rejected the credential".
func IsAuthError(status int, code, message string) bool {
	if status == http.StatusUnauthorized || code == apperrors.CodeUnauthorized {
		return true
	}
	return message != "" && authFailurePattern.MatchString(message)
}

// isAuthFailureErr applies IsAuthError to an error returned by an action.
func isAuthFailureErr(err error) bool {
	if err == nil {
		return false
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return IsAuthError(0, de.Code, de.Error())
	}
	return IsAuthError(0, "", err.Error())
}
