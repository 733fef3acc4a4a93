// Package spans partitions a person's timeline into non-overlapping,
// contiguous spans carrying the attributes active throughout each interval.
package spans

import (
	"log/slog"
	"sort"
	"time"

	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/models"
)

type Builder struct {
	logger *slog.Logger
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func New(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the span partition from normalized periods of all kinds.
// The output covers the timeline from the earliest period start to the latest
// period end with no gaps and no overlaps; the final span is open-ended when
// any contributing period is open. Consecutive spans with identical
// attributes are merged.
//
// Build fails only when the normalized input violates its own invariants.
// That signals an upstream defect, never bad input data, and must not be
// retried: the same input reproduces the same failure.
func (b *Builder) Build(byKind map[models.PeriodKind][]models.NormalizedPeriod) ([]models.Span, error) {
	var contributing []models.NormalizedPeriod
	for _, kind := range models.SpanKinds() {
		periods := byKind[kind]
		if err := checkNormalized(kind, periods); err != nil {
			b.logger.Error("span builder precondition violated",
				"kind", kind, "error", err)
			return nil, err
		}
		for _, p := range periods {
			if !p.ZeroDuration() {
				contributing = append(contributing, p)
			}
		}
	}
	if len(contributing) == 0 {
		return nil, nil
	}

	boundaries, open := criticalTimestamps(contributing)

	var out []models.Span
	for i := 0; i+1 < len(boundaries); i++ {
		lo, hi := boundaries[i], boundaries[i+1]
		span := models.Span{
			Start: lo,
			End:   &hi,
			Attrs: activeAttributes(contributing, lo),
		}
		out = appendMerged(out, span)
	}
	if open {
		last := boundaries[len(boundaries)-1]
		span := models.Span{
			Start: last,
			Attrs: activeAttributes(contributing, last),
		}
		out = appendMerged(out, span)
	}
	return out, nil
}

// criticalTimestamps returns the sorted, deduplicated period boundaries and
// whether any contributing period is open.
func criticalTimestamps(periods []models.NormalizedPeriod) ([]time.Time, bool) {
	seen := make(map[time.Time]struct{}, len(periods)*2)
	var stamps []time.Time
	open := false
	add := func(t time.Time) {
		t = t.UTC()
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			stamps = append(stamps, t)
		}
	}
	for _, p := range periods {
		add(p.Start)
		if p.End == nil {
			open = true
		} else {
			add(*p.End)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	return stamps, open
}

// activeAttributes computes the attribute union over the subinterval starting
// at lo. Normalized periods of one kind never overlap, so at most one period
// per kind is active at lo.
func activeAttributes(periods []models.NormalizedPeriod, lo time.Time) models.SpanAttributes {
	var attrs models.SpanAttributes
	for _, p := range periods {
		if !p.Contains(lo) {
			continue
		}
		switch p.Kind {
		case models.KindIncarceration:
			attrs.Incarceration = true
			attrs.Facility = p.Attrs.Facility
			attrs.CustodyLevel = p.Attrs.CustodyLevel
		case models.KindSupervision:
			attrs.Supervision = true
			attrs.SupervisionType = p.Attrs.SupervisionType
			attrs.SupervisionLevel = p.Attrs.SupervisionLevel
		case models.KindSentence:
			attrs.Sentenced = true
		}
	}
	return attrs
}

// appendMerged appends span, folding it into the previous span when the two
// are contiguous with identical attributes.
func appendMerged(out []models.Span, span models.Span) []models.Span {
	if n := len(out); n > 0 {
		prev := &out[n-1]
		if prev.End != nil && prev.End.Equal(span.Start) && prev.Attrs == span.Attrs {
			prev.End = span.End
			return out
		}
	}
	return append(out, span)
}

// checkNormalized verifies the precondition over normalizer output:
// start-ordered and pairwise non-overlapping per kind.
func checkNormalized(kind models.PeriodKind, periods []models.NormalizedPeriod) error {
	for i := 0; i < len(periods); i++ {
		p := periods[i]
		if p.Kind != kind {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"span construction: %s period found among %s periods", p.Kind, kind)
		}
		if models.Period(p).NegativeDuration() {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"span construction: negative-duration %s period seq %d", kind, p.Seq)
		}
		if i == 0 {
			continue
		}
		prev := periods[i-1]
		if p.Start.Before(prev.Start) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"span construction: %s periods out of order at seq %d", kind, p.Seq)
		}
		if !prev.ZeroDuration() && !p.ZeroDuration() && prev.Overlaps(p) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"span construction: overlapping %s periods at seq %d and %d", kind, prev.Seq, p.Seq)
		}
	}
	return nil
}
