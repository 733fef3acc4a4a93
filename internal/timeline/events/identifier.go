// Package events scans normalized periods and spans for qualifying
// transitions, producing discrete timestamped events. Qualification rules are
// pure over (signal, overlapping spans), so identification for one signal
// never depends on the evaluation order of other signals.
package events

import (
	"log/slog"
	"sort"

	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/models"
)

type Identifier struct {
	logger *slog.Logger
}

type Option func(*Identifier)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Identifier) {
		i.logger = logger
	}
}

func New(opts ...Option) *Identifier {
	i := &Identifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Identify produces the ordered event sequence for one person: delegate-
// qualified signal events plus span-transition events (admissions from
// supervision, releases). Violation events sharing a timestamp collapse into
// one carrying the most severe decision. Output ordering is total over
// (timestamp, kind, source seq), so the sequence is deterministic regardless
// of input order.
func (i *Identifier) Identify(
	del delegate.Delegate,
	byKind map[models.PeriodKind][]models.NormalizedPeriod,
	timeline []models.Span,
) []models.Event {
	var out []models.Event

	for _, kind := range models.PeriodKinds() {
		for _, p := range byKind[kind] {
			signal := models.Period(p)
			event, ok := del.QualifyEvent(signal, overlapping(timeline, signal))
			if !ok {
				continue
			}
			out = append(out, event)
		}
	}

	out = collapseSameDayViolations(out)
	out = append(out, transitions(timeline)...)

	sort.Slice(out, func(a, b int) bool {
		ea, eb := out[a], out[b]
		if !ea.Timestamp.Equal(eb.Timestamp) {
			return ea.Timestamp.Before(eb.Timestamp)
		}
		if ea.Kind != eb.Kind {
			return ea.Kind < eb.Kind
		}
		return ea.SourceSeq < eb.SourceSeq
	})
	return out
}

// collapseSameDayViolations folds violation events sharing a timestamp into a
// single event carrying the most severe decision. Source systems record one
// response row per decision, so several same-day responses describe one
// violation, not several. The surviving event references the lowest-ordered
// source so the result is independent of evaluation order.
func collapseSameDayViolations(eventList []models.Event) []models.Event {
	groups := make(map[int64][]models.Event)
	var out []models.Event
	for _, e := range eventList {
		if e.Kind != models.EventViolation {
			out = append(out, e)
			continue
		}
		at := e.Timestamp.UnixNano()
		groups[at] = append(groups[at], e)
	}
	for _, group := range groups {
		merged := group[0]
		decisions := []models.ResponseDecision{merged.Decision}
		for _, e := range group[1:] {
			decisions = append(decisions, e.Decision)
			if e.SourceSeq < merged.SourceSeq ||
				(e.SourceSeq == merged.SourceSeq && e.SourceKind < merged.SourceKind) {
				merged = e
			}
		}
		if most := delegate.MostSevereDecision(decisions); most != "" {
			merged.Decision = most
		}
		out = append(out, merged)
	}
	return out
}

// overlapping returns the spans sharing any instant with the signal. A
// zero-length signal overlaps the span containing its timestamp.
func overlapping(timeline []models.Span, signal models.Period) []models.Span {
	var out []models.Span
	for _, span := range timeline {
		if signal.ZeroDuration() || signal.NegativeDuration() {
			if span.Contains(signal.Start) {
				out = append(out, span)
			}
			continue
		}
		if span.End != nil && !signal.Start.Before(*span.End) {
			continue
		}
		if signal.End != nil && !span.Start.Before(*signal.End) {
			continue
		}
		out = append(out, span)
	}
	return out
}

// transitions derives events from consecutive span boundaries:
//   - an incarceration span beginning while supervision was active is an
//     admission from supervision,
//   - an incarceration span ending into no custody is a release, including
//     the closed end of the final span.
//
// A release is stamped at the first instant the person is out of custody.
// For interior boundaries that instant starts the following span; at the end
// of the observed timeline it is the final span's exclusive end, the one
// event timestamp that sits on a span boundary rather than inside a span.
func transitions(timeline []models.Span) []models.Event {
	var out []models.Event
	for i := 1; i < len(timeline); i++ {
		prev, cur := timeline[i-1], timeline[i]
		if cur.Attrs.Incarceration && !prev.Attrs.Incarceration && prev.Attrs.Supervision {
			out = append(out, models.Event{
				Kind:       models.EventAdmissionFromSupervision,
				Timestamp:  cur.Start,
				SourceKind: models.KindIncarceration,
			})
		}
		if prev.Attrs.Incarceration && !cur.Attrs.Incarceration {
			out = append(out, models.Event{
				Kind:       models.EventRelease,
				Timestamp:  cur.Start,
				SourceKind: models.KindIncarceration,
			})
		}
	}
	if n := len(timeline); n > 0 {
		last := timeline[n-1]
		if last.Attrs.Incarceration && last.End != nil {
			out = append(out, models.Event{
				Kind:       models.EventRelease,
				Timestamp:  *last.End,
				SourceKind: models.KindIncarceration,
			})
		}
	}
	return out
}
