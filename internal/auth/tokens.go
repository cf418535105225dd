package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

const (
	// SignedPrefix is the base64url encoding of `{"` that opens every JWT header.
	SignedPrefix = "eyJ"
	// PseudoPrefix marks a placeholder credential minted after a face capture.
	PseudoPrefix = "face_auth_"
)

var ErrMalformedPseudoToken = errors.New("malformed pseudo token")

// DecodeToken classifies a stored token string.
func DecodeToken(raw string) domain.Token {
	switch {
	case raw == "":
		return domain.Token{Kind: domain.TokenNone}
	case strings.HasPrefix(raw, SignedPrefix):
		return domain.Token{Kind: domain.TokenSigned, Raw: raw}
	case strings.HasPrefix(raw, PseudoPrefix):
		tok := domain.Token{Kind: domain.TokenPseudo, Raw: raw}
		if subjectID, issuedAt, err := ParsePseudoToken(raw); err == nil {
			tok.SubjectID = subjectID
			tok.IssuedAt = issuedAt
		}
		return tok
	default:
		return domain.Token{Kind: domain.TokenOpaque, Raw: raw}
	}
}

// MintPseudoToken builds face_auth_<unixMillis>_<subjectID>.
func MintPseudoToken(subjectID string, at time.Time) string {
	return PseudoPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "_" + subjectID
}

// ParsePseudoToken extracts the subject and issue time. The subject is
// everything after the timestamp, so identifiers may contain underscores.
func ParsePseudoToken(raw string) (string, time.Time, error) {
	rest, ok := strings.CutPrefix(raw, PseudoPrefix)
	if !ok {
		return "", time.Time{}, ErrMalformedPseudoToken
	}
	stamp, subjectID, ok := strings.Cut(rest, "_")
	if !ok || subjectID == "" {
		return "", time.Time{}, ErrMalformedPseudoToken
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformedPseudoToken, stamp)
	}
	return subjectID, time.UnixMilli(millis), nil
}

// SignedInfo is what the device can learn from a signed token without the key.
type SignedInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// InspectSigned reads registered claims without verifying the signature.
// The device never holds the signing key; the server stays authoritative.
func InspectSigned(raw string) (SignedInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return SignedInfo{}, err
	}
	info := SignedInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, nil
}
