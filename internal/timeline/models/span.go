package models

import "time"

// SpanAttributes is the union of attributes active during a span. Comparable,
// so the span builder merges neighbors with plain equality.
type SpanAttributes struct {
	Incarceration bool `json:"incarceration"`
	Supervision   bool `json:"supervision"`
	Sentenced     bool `json:"sentenced"`

	Facility         string `json:"facility,omitempty"`
	CustodyLevel     string `json:"custody_level,omitempty"`
	SupervisionType  string `json:"supervision_type,omitempty"`
	SupervisionLevel string `json:"supervision_level,omitempty"`
}

// Empty reports whether no period kind is active during the span.
func (a SpanAttributes) Empty() bool {
	return !a.Incarceration && !a.Supervision && !a.Sentenced
}

// ActiveKinds lists the kinds active during the span, in stable order.
func (a SpanAttributes) ActiveKinds() []PeriodKind {
	var kinds []PeriodKind
	if a.Incarceration {
		kinds = append(kinds, KindIncarceration)
	}
	if a.Supervision {
		kinds = append(kinds, KindSupervision)
	}
	if a.Sentenced {
		kinds = append(kinds, KindSentence)
	}
	return kinds
}

// Span is a derived semi-open segment [Start, End) of the person's timeline.
// A nil End means the span is open-ended because a contributing period is
// still ongoing. Spans for one person form an exact partition of the observed
// timeline: no gaps, no overlaps.
type Span struct {
	Start time.Time      `json:"start"`
	End   *time.Time     `json:"end,omitempty"`
	Attrs SpanAttributes `json:"attrs"`
}

// IsOpen reports whether the span has no end.
func (s Span) IsOpen() bool { return s.End == nil }

// Contains reports whether t falls within [Start, End).
func (s Span) Contains(t time.Time) bool {
	if t.Before(s.Start) {
		return false
	}
	return s.End == nil || t.Before(*s.End)
}

// ClippedDays returns the number of whole days the span overlaps [from, to).
func (s Span) ClippedDays(from, to time.Time) float64 {
	start := s.Start
	if start.Before(from) {
		start = from
	}
	end := to
	if s.End != nil && s.End.Before(to) {
		end = *s.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours() / 24
}
