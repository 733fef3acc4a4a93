// Package delegate holds the jurisdiction-specific business rules consumed by
// the pipeline stages. A Delegate is a bundle of independently overridable
// pure functions, not a type hierarchy: jurisdictions override the rules they
// need and inherit documented defaults for the rest.
package delegate

import (
	"time"

	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/models"
)

// Inclusion is the outcome of an inclusion predicate. Exclusions carry the
// predicate name and reason so the producer can audit them.
type Inclusion struct {
	Include   bool
	Predicate string
	Reason    string
}

// Included is the affirmative inclusion outcome.
var Included = Inclusion{Include: true}

// Excluded builds a negative outcome for the named predicate.
func Excluded(predicate, reason string) Inclusion {
	return Inclusion{Predicate: predicate, Reason: reason}
}

// Delegate bundles one jurisdiction's rules. All functions are pure and safe
// to share across concurrent person-runs. Zero-value fields are filled with
// defaults by build(), so every resolved delegate is fully populated.
type Delegate struct {
	// Jurisdiction is the canonical code this delegate serves, or "DEFAULT".
	Jurisdiction string

	// Validate returns a coded validation error for raw-period constraints
	// this jurisdiction declares non-tolerable rather than resolvable noise.
	// Default: a period that ends before it starts is fatal.
	Validate func(p models.Period) error

	// KeepZeroDuration reports whether a zero-length period is semantically
	// meaningful (e.g. a same-day transfer record) and must survive
	// normalization. Default: violation responses are kept (a response is a
	// dated signal, not a status interval); status kinds are dropped.
	KeepZeroDuration func(p models.Period) bool

	// Adjacent reports whether next continues current: overlapping, touching,
	// or within the jurisdiction's tolerance gap. Attribute equivalence is
	// checked separately by SameMergeAttributes. Default: tolerance zero,
	// i.e. overlap or exact touch.
	Adjacent func(current, next models.Period) bool

	// SameMergeAttributes reports whether two periods carry identical
	// merge-relevant attributes. Default: full attribute equality, ignoring
	// fields that only identify the record (Seq).
	SameMergeAttributes func(a, b models.Period) bool

	// MergeAttributes combines attributes when next is merged into current.
	// Default: keep current's attributes (earliest record wins).
	MergeAttributes func(current, next models.Period) models.Attributes

	// IncludeSpan decides whether a span counts toward this jurisdiction's
	// measurement population. Default: exclude spans with no active kind.
	IncludeSpan func(s models.Span) Inclusion

	// IncludeEvent decides whether an event counts. Default: include all.
	IncludeEvent func(e models.Event) Inclusion

	// QualifyEvent decides whether a signal period produces an event given
	// the spans overlapping it, and supplies the event kind and effective
	// timestamp. Pure over (signal, overlapping spans); identification for
	// one signal cannot depend on other signals. Default: a violation
	// response during an active supervision span yields a violation event at
	// the response date.
	QualifyEvent func(signal models.Period, active []models.Span) (models.Event, bool)
}

// build fills unset rules with defaults so callers never nil-check.
func build(jurisdiction string, override func(*Delegate)) Delegate {
	d := Delegate{Jurisdiction: jurisdiction}
	if override != nil {
		override(&d)
	}
	if d.Validate == nil {
		d.Validate = defaultValidate
	}
	if d.KeepZeroDuration == nil {
		d.KeepZeroDuration = defaultKeepZeroDuration
	}
	if d.Adjacent == nil {
		d.Adjacent = AdjacentWithin(0)
	}
	if d.SameMergeAttributes == nil {
		d.SameMergeAttributes = func(a, b models.Period) bool { return a.Attrs == b.Attrs }
	}
	if d.MergeAttributes == nil {
		d.MergeAttributes = func(current, _ models.Period) models.Attributes { return current.Attrs }
	}
	if d.IncludeSpan == nil {
		d.IncludeSpan = defaultIncludeSpan
	}
	if d.IncludeEvent == nil {
		d.IncludeEvent = func(models.Event) Inclusion { return Included }
	}
	if d.QualifyEvent == nil {
		d.QualifyEvent = defaultQualifyEvent
	}
	return d
}

// defaultKeepZeroDuration keeps zero-length violation responses: responses
// arrive dated, with start and end on the response date, and dropping them
// would erase the violation signal before event identification. Status kinds
// default to treating zero length as data noise.
func defaultKeepZeroDuration(p models.Period) bool {
	return p.Kind == models.KindViolationResponse
}

func defaultValidate(p models.Period) error {
	if p.NegativeDuration() {
		return dErrors.Newf(dErrors.CodeValidation,
			"%s period seq %d ends before it starts", p.Kind, p.Seq)
	}
	return nil
}

// AdjacentWithin builds an adjacency rule that treats overlap, touch, or a
// gap up to tolerance as continuation.
func AdjacentWithin(tolerance time.Duration) func(current, next models.Period) bool {
	return func(current, next models.Period) bool {
		if current.End == nil {
			return true
		}
		return next.Start.Sub(*current.End) <= tolerance
	}
}

func defaultIncludeSpan(s models.Span) Inclusion {
	if s.Attrs.Empty() {
		return Excluded("active_population", "no period kind active during span")
	}
	return Included
}

// defaultQualifyEvent qualifies a violation response that overlaps an active
// supervision span. The effective timestamp is the response date (the
// signal's own start).
func defaultQualifyEvent(signal models.Period, active []models.Span) (models.Event, bool) {
	if signal.Kind != models.KindViolationResponse {
		return models.Event{}, false
	}
	for _, span := range active {
		if !span.Attrs.Supervision {
			continue
		}
		return models.Event{
			Kind:       models.EventViolation,
			Timestamp:  signal.Start,
			SourceKind: signal.Kind,
			SourceSeq:  signal.Seq,
			Decision:   signal.Attrs.ResponseDecision,
		}, true
	}
	return models.Event{}, false
}
