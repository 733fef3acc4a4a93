package models

import (
	"time"

	"caseline/pkg/domain"
)

// EventKind classifies discrete qualifying occurrences on the timeline.
type EventKind string

const (
	// EventViolation: a violation response qualified against an active
	// supervision span.
	EventViolation EventKind = "violation"

	// EventAdmissionFromSupervision: an incarceration span begins while a
	// supervision span was active (recidivism-style transition).
	EventAdmissionFromSupervision EventKind = "admission_from_supervision"

	// EventRelease: an incarceration span ends into no custody.
	EventRelease EventKind = "release"
)

// Event is a single qualifying occurrence. Events reference the period or
// span that produced them; they never own or mutate spans.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// SourceKind/SourceSeq identify the signal period that produced the
	// event. Span-derived events (admissions, releases) carry the span kind
	// that changed and Seq zero.
	SourceKind PeriodKind        `json:"source_kind"`
	SourceSeq  domain.SequenceID `json:"source_seq"`

	// Decision is the most severe response decision, violation events only.
	Decision ResponseDecision `json:"decision,omitempty"`
}
