package models

import (
	"time"

	"caseline/pkg/domain"
)

// Person is one person's canonical entity graph as handed over by the
// ingested-entity store: identity, governing jurisdiction, and raw periods.
// Immutable once loaded for a processing run.
type Person struct {
	ID           domain.PersonID         `json:"id"`
	Jurisdiction domain.JurisdictionCode `json:"jurisdiction"`
	// BirthDate enables the age-bucket metric dimension. Zero means unknown.
	BirthDate time.Time `json:"birth_date,omitzero"`
	Periods   []Period  `json:"periods"`
}

// PeriodsOfKind returns the person's raw periods of one kind, in input order.
func (p Person) PeriodsOfKind(kind PeriodKind) []Period {
	var out []Period
	for _, period := range p.Periods {
		if period.Kind == kind {
			out = append(out, period)
		}
	}
	return out
}

// AgeBucket returns the demographic bucket for the person at the given date,
// or "" when the birth date is unknown.
func (p Person) AgeBucket(at time.Time) string {
	if p.BirthDate.IsZero() {
		return ""
	}
	years := at.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	switch {
	case years < 25:
		return "<25"
	case years < 30:
		return "25-29"
	case years < 35:
		return "30-34"
	case years < 40:
		return "35-39"
	default:
		return "40+"
	}
}
