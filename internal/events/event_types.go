package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoggedIn        EventType = "logged_in"
	EventTokenExchanged  EventType = "token_exchanged"
	EventExchangeFailed  EventType = "exchange_failed"
	EventRetryPerformed  EventType = "retry_performed"
	EventFaceMatched     EventType = "face_matched"
	EventFaceUnmatched   EventType = "face_unmatched"
	EventLoggedOut       EventType = "logged_out"
	EventComparisonError EventType = "comparison_error"
)

// Event represents something that happened to the device's credentials.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Role      domain.Role `json:"role,omitempty"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, role domain.Role, subjectID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Role:      role,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginPayload describes how an envelope was created.
type LoginPayload struct {
	Method    string           `json:"method"`
	TokenKind domain.TokenKind `json:"token_kind"`
}

// ExchangeFailedPayload carries the reason an exchange did not succeed.
type ExchangeFailedPayload struct {
	Reason string `json:"reason"`
}

// RetryPayload records the outcome of an unauthorized retry.
type RetryPayload struct {
	Scope       domain.Scope `json:"scope"`
	FirstError  string       `json:"first_error"`
	Recovered   bool         `json:"recovered"`
	RefreshFail string       `json:"refresh_failure,omitempty"`
}

// FacePayload summarizes a roster scan.
type FacePayload struct {
	Confidence  float64        `json:"confidence"`
	RoleTag     domain.RoleTag `json:"role_tag,omitempty"`
	Comparisons int            `json:"comparisons"`
	RosterSize  int            `json:"roster_size"`
}

// ComparisonErrorPayload records a skipped roster entry.
type ComparisonErrorPayload struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
}
