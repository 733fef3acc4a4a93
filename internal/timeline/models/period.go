// Package models holds the entities flowing through the timeline pipeline:
// raw periods in, normalized periods, spans, events, and metric records out.
// Everything here is plain data; behavior lives in the pipeline stages.
package models

import (
	"time"

	"caseline/pkg/domain"
)

// PeriodKind discriminates the raw period variants a jurisdiction reports.
type PeriodKind string

const (
	KindIncarceration     PeriodKind = "incarceration"
	KindSupervision       PeriodKind = "supervision"
	KindSentence          PeriodKind = "sentence"
	KindViolationResponse PeriodKind = "violation_response"
)

// PeriodKinds returns all kinds in stable processing order.
func PeriodKinds() []PeriodKind {
	return []PeriodKind{KindIncarceration, KindSupervision, KindSentence, KindViolationResponse}
}

// SpanKinds returns the kinds that contribute to timeline spans.
// Violation responses are discrete signals, not statuses, so they feed the
// event identifier instead.
func SpanKinds() []PeriodKind {
	return []PeriodKind{KindIncarceration, KindSupervision, KindSentence}
}

// ResponseDecision is the decision recorded on a violation response.
type ResponseDecision string

const (
	DecisionRevocation         ResponseDecision = "revocation"
	DecisionShockIncarceration ResponseDecision = "shock_incarceration"
	DecisionTreatmentInPrison  ResponseDecision = "treatment_in_prison"
	DecisionWarrantIssued      ResponseDecision = "warrant_issued"
	DecisionPrivilegesRevoked  ResponseDecision = "privileges_revoked"
	DecisionNewConditions      ResponseDecision = "new_conditions"
	DecisionExtension          ResponseDecision = "extension"
	DecisionSuspension         ResponseDecision = "suspension"
	DecisionCommunityService   ResponseDecision = "community_service"
	DecisionDelayedAction      ResponseDecision = "delayed_action"
	DecisionWarning            ResponseDecision = "warning"
	DecisionContinuance        ResponseDecision = "continuance"
	DecisionUnfounded          ResponseDecision = "violation_unfounded"
)

// Attributes carries the kind-specific fields of a period. The struct is
// deliberately comparable so default merge rules can use plain equality.
// Fields not applicable to a period's kind stay zero.
type Attributes struct {
	// Incarceration
	Facility     string `json:"facility,omitempty"`
	CustodyLevel string `json:"custody_level,omitempty"`
	// AdmissionReasonRaw is the jurisdiction's raw movement-reason text.
	// Some jurisdictions encode violation admissions in it.
	AdmissionReasonRaw string `json:"admission_reason_raw,omitempty"`

	// Supervision
	SupervisionType  string `json:"supervision_type,omitempty"`
	SupervisionLevel string `json:"supervision_level,omitempty"`

	// Violation response
	ViolationSeverity string           `json:"violation_severity,omitempty"`
	ResponseDecision  ResponseDecision `json:"response_decision,omitempty"`
	// ViolationDate is the date of the underlying violation, when the
	// jurisdiction reports it separately from the response date.
	ViolationDate time.Time `json:"violation_date,omitzero"`
}

// Period is a raw, possibly noisy semi-open interval [Start, End). A nil End
// means the period is still ongoing. Raw periods may overlap, duplicate, or
// have zero duration; that is expected input noise at this stage.
type Period struct {
	Kind  PeriodKind        `json:"kind"`
	Seq   domain.SequenceID `json:"seq"`
	Start time.Time         `json:"start"`
	End   *time.Time        `json:"end,omitempty"`
	Attrs Attributes        `json:"attrs"`
}

// NormalizedPeriod has the same shape as Period but is produced only by the
// normalizer: per kind and person it is pairwise non-overlapping, ordered by
// start date, merged across jurisdiction-adjacent boundaries, and free of
// zero-duration entries unless the delegate keeps them.
type NormalizedPeriod Period

// IsOpen reports whether the period has no end date.
func (p Period) IsOpen() bool { return p.End == nil }

// ZeroDuration reports whether the period starts and ends on the same instant.
func (p Period) ZeroDuration() bool {
	return p.End != nil && p.End.Equal(p.Start)
}

// NegativeDuration reports whether the period ends before it starts.
func (p Period) NegativeDuration() bool {
	return p.End != nil && p.End.Before(p.Start)
}

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	return p.End == nil || t.Before(*p.End)
}

// Overlaps reports whether the two intervals share any instant.
func (p Period) Overlaps(q Period) bool {
	if q.End != nil && !p.Start.Before(*q.End) {
		return false
	}
	if p.End != nil && !q.Start.Before(*p.End) {
		return false
	}
	return true
}

// GapAfter returns the gap between p's end and q's start. Zero when they
// touch, negative when they overlap, and zero when p is open.
func (p Period) GapAfter(q Period) time.Duration {
	if p.End == nil {
		return 0
	}
	return q.Start.Sub(*p.End)
}

func (p NormalizedPeriod) IsOpen() bool               { return Period(p).IsOpen() }
func (p NormalizedPeriod) ZeroDuration() bool         { return Period(p).ZeroDuration() }
func (p NormalizedPeriod) Contains(t time.Time) bool  { return Period(p).Contains(t) }
func (p NormalizedPeriod) Overlaps(q NormalizedPeriod) bool {
	return Period(p).Overlaps(Period(q))
}

// Date builds a UTC midnight timestamp; raw records carry dates, not times.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date with a pointer result, for period end fields.
func DatePtr(year int, month time.Month, day int) *time.Time {
	t := Date(year, month, day)
	return &t
}
