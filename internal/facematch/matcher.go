// Package facematch identifies a captured face against a roster of
// registered reference images.
package facematch

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/faceauth-service/internal/domain"
	"github.com/spec-kit/faceauth-service/internal/events"
	"github.com/spec-kit/faceauth-service/internal/observability"
	apperrors "github.com/spec-kit/faceauth-service/pkg/util/errorutil"
)

// DefaultThreshold is the minimum confidence (0-100) accepted as a positive identification.
const DefaultThreshold = 80.0

var (
	ErrNoCandidates      = apperrors.ErrNoCandidates
	ErrCaptureInProgress = apperrors.ErrCaptureInProgress
)

// Comparer asks the remote comparison service about one probe/reference pair.
type Comparer interface {
	Compare(ctx context.Context, probePath, referenceURL string) (domain.Comparison, error)
}

// Evaluation is the outcome of comparing the probe with one roster entry.
type Evaluation struct {
	Index      int
	Candidate  domain.RosterEntry
	Comparison domain.Comparison
	Err        error
	Accepted   bool
}

// MatcherDependencies bundles what a Matcher needs.
type MatcherDependencies struct {
	Comparer  Comparer
	Threshold float64
	// Limiter paces comparison calls. Nil means unthrottled.
	Limiter *rate.Limiter
	Events  events.Dispatcher
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Matcher scans a roster sequentially and stops at the first acceptance.
type Matcher struct {
	comparer  Comparer
	threshold float64
	limiter   *rate.Limiter
	events    events.Dispatcher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewMatcher(deps MatcherDependencies) *Matcher {
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &Matcher{
		comparer:  deps.Comparer,
		threshold: threshold,
		limiter:   deps.Limiter,
		events:    dispatcher,
		logger:    observability.OrNop(deps.Logger).Named("facematch"),
		metrics:   deps.Metrics,
	}
}

// NewLimiter paces comparison calls to perSecond. Zero or less disables pacing.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Threshold returns the matcher's default acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

type matchOptions struct {
	threshold float64
}

// MatchOption adjusts a single Match call.
type MatchOption func(*matchOptions)

// WithThreshold overrides the acceptance threshold for one call.
func WithThreshold(threshold float64) MatchOption {
	return func(o *matchOptions) {
		if threshold > 0 {
			o.threshold = threshold
		}
	}
}

// Scan lazily compares probePath with each comparable entry of roster, in
// order. Nothing is compared until the sequence is ranged over, each range
// starts again from the first entry, and breaking out of the loop stops
// further comparison calls.
func (m *Matcher) Scan(ctx context.Context, probePath string, roster []domain.RosterEntry, threshold float64) iter.Seq[Evaluation] {
	return func(yield func(Evaluation) bool) {
		for i, entry := range roster {
			if !entry.Comparable() {
				continue
			}
			if m.limiter != nil {
				if err := m.limiter.Wait(ctx); err != nil {
					return
				}
			}
			ev := Evaluation{Index: i, Candidate: entry}
			ev.Comparison, ev.Err = m.comparer.Compare(ctx, probePath, entry.ReferenceImageURL)
			ev.Accepted = ev.Err == nil && ev.Comparison.Match && ev.Comparison.Confidence >= threshold
			if !yield(ev) {
				return
			}
		}
	}
}

// Match returns the first roster entry the comparison service accepts with
// at least the threshold confidence. A failed comparison is logged and the
// scan moves on; when no entry is accepted the result is unmatched with the
// best confidence seen.
func (m *Matcher) Match(ctx context.Context, probePath string, roster []domain.RosterEntry, opts ...MatchOption) (domain.MatchResult, error) {
	o := matchOptions{threshold: m.threshold}
	for _, opt := range opts {
		opt(&o)
	}

	candidates := countComparable(roster)
	if candidates == 0 {
		m.metrics.RecordMatch("no_candidates")
		return domain.MatchResult{}, fmt.Errorf("%w: roster of %d has no reference images", ErrNoCandidates, len(roster))
	}

	var (
		calls int
		best  float64
	)
	for ev := range m.Scan(ctx, probePath, roster, o.threshold) {
		calls++
		if ev.Err != nil {
			m.metrics.RecordComparison("error")
			m.logger.Warn("face comparison failed; skipping candidate",
				zap.String("candidate_id", ev.Candidate.Identifier),
				zap.Int("index", ev.Index),
				zap.Error(ev.Err),
			)
			m.publish(ctx, events.New(events.EventComparisonError, "", ev.Candidate.Identifier, events.ComparisonErrorPayload{
				CandidateID: ev.Candidate.Identifier,
				Reason:      ev.Err.Error(),
			}))
			continue
		}
		m.metrics.RecordComparison("ok")
		if ev.Accepted {
			candidate := ev.Candidate
			m.metrics.RecordMatch("matched")
			m.logger.Info("face matched",
				zap.String("candidate_id", candidate.Identifier),
				zap.String("role_tag", string(candidate.RoleTag)),
				zap.Float64("confidence", ev.Comparison.Confidence),
				zap.Int("comparisons", calls),
			)
			role, _ := candidate.RoleTag.EnvelopeRole()
			m.publish(ctx, events.New(events.EventFaceMatched, role, candidate.Identifier, events.FacePayload{
				Confidence:  ev.Comparison.Confidence,
				RoleTag:     candidate.RoleTag,
				Comparisons: calls,
				RosterSize:  candidates,
			}))
			return domain.MatchResult{Matched: true, Confidence: ev.Comparison.Confidence, Candidate: &candidate}, nil
		}
		if ev.Comparison.Confidence > best {
			best = ev.Comparison.Confidence
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.MatchResult{}, err
	}

	m.metrics.RecordMatch("unmatched")
	m.logger.Info("face not matched", zap.Int("comparisons", calls), zap.Float64("best_confidence", best))
	m.publish(ctx, events.New(events.EventFaceUnmatched, "", "", events.FacePayload{
		Confidence:  best,
		Comparisons: calls,
		RosterSize:  candidates,
	}))
	return domain.MatchResult{Matched: false, Confidence: best}, nil
}

func (m *Matcher) publish(ctx context.Context, event events.Event) {
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Debug("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func countComparable(roster []domain.RosterEntry) int {
	n := 0
	for _, entry := range roster {
		if entry.Comparable() {
			n++
		}
	}
	return n
}
