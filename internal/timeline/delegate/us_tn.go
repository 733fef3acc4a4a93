package delegate

import (
	"strings"

	"caseline/internal/timeline/models"
)

// usTN: Tennessee.
//
// Movement-reason raw text encodes violation admissions: a reason ending in
// "VIOLT" is a technical violation warrant, "VIOLW" a new-charge warrant.
// Incarceration admissions with those reasons qualify as violation events in
// addition to the standard violation-response signals.
//
// Same-day transfer records arrive as zero-length incarceration periods and
// are semantically meaningful, so they survive normalization.
func usTN(d *Delegate) {
	d.KeepZeroDuration = func(p models.Period) bool {
		return p.Kind == models.KindIncarceration || defaultKeepZeroDuration(p)
	}
	d.QualifyEvent = func(signal models.Period, active []models.Span) (models.Event, bool) {
		if signal.Kind == models.KindIncarceration {
			severity, ok := usTNViolationSeverity(signal.Attrs.AdmissionReasonRaw)
			if !ok {
				return models.Event{}, false
			}
			return models.Event{
				Kind:       models.EventViolation,
				Timestamp:  signal.Start,
				SourceKind: signal.Kind,
				SourceSeq:  signal.Seq,
				Decision:   severity,
			}, true
		}
		return defaultQualifyEvent(signal, active)
	}
}

// usTNViolationSeverity maps an admission-reason suffix to the decision kind
// it implies. Reasons without a violation suffix imply no event.
func usTNViolationSeverity(raw string) (models.ResponseDecision, bool) {
	switch {
	case strings.HasSuffix(raw, "VIOLT"):
		return models.DecisionRevocation, true
	case strings.HasSuffix(raw, "VIOLW"):
		return models.DecisionWarrantIssued, true
	default:
		return "", false
	}
}
