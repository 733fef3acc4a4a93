// Package normalizer turns one person's raw periods of a single kind into a
// deduplicated, gap/overlap-resolved sequence, applying the jurisdiction
// delegate's adjacency and merge rules.
package normalizer

import (
	"log/slog"
	"sort"
	"time"

	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/models"
)

type Normalizer struct {
	logger *slog.Logger
}

type Option func(*Normalizer)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize sorts raw periods by (start, seq), validates them against the
// delegate's fatal constraints, and sweeps left to right merging
// continuations. Running Normalize on its own output returns it unchanged.
//
// Overlapping periods with differing merge-relevant attributes are resolved
// deterministically: the later-starting record governs from its start, the
// earlier record is truncated, and any coverage the earlier record had beyond
// the later one is preserved as a trailing piece.
func (n *Normalizer) Normalize(del delegate.Delegate, kind models.PeriodKind, raw []models.Period) ([]models.NormalizedPeriod, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	pending := make([]models.Period, 0, len(raw))
	var passthrough []models.Period

	for _, p := range raw {
		if p.Kind != kind {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
				"normalize called for kind %s with a %s period", kind, p.Kind)
		}
		if err := del.Validate(p); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "raw period rejected by jurisdiction rules")
		}
		if p.ZeroDuration() {
			if del.KeepZeroDuration(p) {
				// Meaningful zero-length records (same-day transfers) bypass
				// the sweep: they cover no instant, so they cannot overlap.
				passthrough = append(passthrough, p)
			} else {
				n.logger.Debug("dropping zero-duration period",
					"jurisdiction", del.Jurisdiction, "kind", kind, "seq", p.Seq)
			}
			continue
		}
		pending = append(pending, p)
	}

	sortPeriods(pending)
	merged := n.sweep(del, pending)

	merged = append(merged, passthrough...)
	sortPeriods(merged)

	out := make([]models.NormalizedPeriod, len(merged))
	for i, p := range merged {
		out[i] = models.NormalizedPeriod(p)
	}
	return out, nil
}

// sweep maintains one open "current" period and folds each next period into
// it or closes it. pending must be sorted by (start, seq).
func (n *Normalizer) sweep(del delegate.Delegate, pending []models.Period) []models.Period {
	var out []models.Period
	var cur *models.Period

	for i := 0; i < len(pending); i++ {
		p := pending[i]
		if cur == nil {
			c := p
			cur = &c
			continue
		}

		if del.SameMergeAttributes(*cur, p) && del.Adjacent(*cur, p) {
			cur.Attrs = del.MergeAttributes(*cur, p)
			if cur.End != nil {
				if p.End == nil {
					cur.End = nil
				} else if p.End.After(*cur.End) {
					end := *p.End
					cur.End = &end
				}
			}
			continue
		}

		// Not a continuation. If the records overlap, the later-starting one
		// governs from its start; keep whatever the current record covered
		// beyond it as a trailing piece.
		if cur.End == nil || cur.End.After(p.Start) {
			if rem, ok := remainderAfter(*cur, p); ok {
				pending = insertSorted(pending, i+1, rem)
			}
			start := p.Start
			cur.End = &start
		}
		if !cur.ZeroDuration() {
			out = append(out, *cur)
		}
		c := p
		cur = &c
	}

	if cur != nil && !cur.ZeroDuration() {
		out = append(out, *cur)
	}
	return out
}

// remainderAfter returns the part of cur that extends past p's end, if any.
func remainderAfter(cur, p models.Period) (models.Period, bool) {
	if p.End == nil {
		return models.Period{}, false
	}
	if cur.End != nil && !cur.End.After(*p.End) {
		return models.Period{}, false
	}
	rem := cur
	rem.Start = *p.End
	return rem, true
}

// insertSorted inserts p into pending at or after index from, keeping the
// (start, seq) order.
func insertSorted(pending []models.Period, from int, p models.Period) []models.Period {
	pos := from
	for pos < len(pending) && before(pending[pos], p) {
		pos++
	}
	pending = append(pending, models.Period{})
	copy(pending[pos+1:], pending[pos:])
	pending[pos] = p
	return pending
}

func sortPeriods(periods []models.Period) {
	sort.SliceStable(periods, func(i, j int) bool {
		return before(periods[i], periods[j])
	})
}

// before is the total sort order over periods: start date ascending, then
// sequence id. The tie-break keeps output deterministic regardless of input
// iteration order.
func before(a, b models.Period) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return endBefore(a.End, b.End)
}

func endBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}
