package facematch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/observability"
)

// State is a step of the capture screen.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateComparing State = "comparing"
	StateMatched   State = "matched"
	StateUnmatched State = "unmatched"
	StateError     State = "error"
)

// RosterMatcher is the part of Matcher a Flow drives.
type RosterMatcher interface {
	Match(ctx context.Context, probePath string, roster []domain.RosterEntry, opts ...MatchOption) (domain.MatchResult, error)
}

// HandOff receives a successful identification.
type HandOff func(ctx context.Context, result domain.MatchResult) error

// Transition is reported to observers on every state change.
type Transition struct {
	From State
	To   State
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithHandOff sets the callback invoked on Matched.
func WithHandOff(h HandOff) FlowOption {
	return func(f *Flow) { f.handOff = h }
}

// OnTransition registers an observer.
func OnTransition(fn func(Transition)) FlowOption {
	return func(f *Flow) { f.observers = append(f.observers, fn) }
}

// WithFlowLogger sets the logger.
func WithFlowLogger(logger *zap.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

// Flow serializes captures: Idle -> Capturing -> Comparing, then Matched,
// Unmatched or Error, and back to Idle. Only one capture is compared at a time.
type Flow struct {
	mu        sync.Mutex
	state     State
	matcher   RosterMatcher
	handOff   HandOff
	observers []func(Transition)
	logger    *zap.Logger
}

func NewFlow(matcher RosterMatcher, opts ...FlowOption) *Flow {
	f := &Flow{state: StateIdle, matcher: matcher}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = observability.OrNop(f.logger).Named("capture")
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// BeginCapture moves Idle to Capturing.
func (f *Flow) BeginCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return ErrCaptureInProgress
	}
	f.setLocked(StateCapturing)
	return nil
}

// CancelCapture abandons a capture that has not started comparing.
func (f *Flow) CancelCapture() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateCapturing {
		f.setLocked(StateIdle)
	}
}

// Identify compares the captured probe with roster. It may be called from
// Idle (the capture step is implied) or Capturing; while a previous call is
// still comparing it fails with ErrCaptureInProgress.
func (f *Flow) Identify(ctx context.Context, probePath string, roster []domain.RosterEntry, opts ...MatchOption) (domain.MatchResult, error) {
	f.mu.Lock()
	switch f.state {
	case StateIdle:
		f.setLocked(StateCapturing)
	case StateCapturing:
	default:
		f.mu.Unlock()
		return domain.MatchResult{}, ErrCaptureInProgress
	}
	f.setLocked(StateComparing)
	f.mu.Unlock()

	result, err := f.matcher.Match(ctx, probePath, roster, opts...)
	switch {
	case err != nil:
		f.finish(StateError)
		return result, err
	case !result.Matched:
		f.finish(StateUnmatched)
		return result, nil
	}

	f.set(StateMatched)
	if f.handOff != nil {
		if err := f.handOff(ctx, result); err != nil {
			f.logger.Warn("hand-off failed", zap.Error(err))
			f.finish(StateError)
			return result, err
		}
	}
	f.set(StateIdle)
	return result, nil
}

// finish records a terminal state and returns to Idle.
func (f *Flow) finish(terminal State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(terminal)
	f.setLocked(StateIdle)
}

func (f *Flow) set(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(s)
}

func (f *Flow) setLocked(s State) {
	if f.state == s {
		return
	}
	t := Transition{From: f.state, To: s}
	f.state = s
	for _, fn := range f.observers {
		fn(t)
	}
}
