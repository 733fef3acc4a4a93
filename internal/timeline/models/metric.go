package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"caseline/pkg/domain"
)

// MetricKind enumerates the output metric families, each independently
// enabled per run.
type MetricKind string

const (
	// MetricSpanDuration: one record per included span per overlapped month,
	// valued in days of overlap.
	MetricSpanDuration MetricKind = "span_duration"

	// MetricPopulation: one record per configured snapshot date per included
	// span containing it.
	MetricPopulation MetricKind = "population"

	// MetricEventCount: one record per included event.
	MetricEventCount MetricKind = "event_count"
)

// metricRecordNamespace seeds deterministic record IDs so identical inputs
// produce byte-identical records across reruns.
var metricRecordNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// MetricRecord is the terminal, write-once artifact of the engine.
type MetricRecord struct {
	ID           domain.MetricRecordID   `json:"id"`
	RunID        domain.RunID            `json:"run_id"`
	PersonID     domain.PersonID         `json:"person_id"`
	Jurisdiction domain.JurisdictionCode `json:"jurisdiction"`
	Kind         MetricKind              `json:"kind"`
	Date         time.Time               `json:"date"`
	Value        float64                 `json:"value"`
	Dimensions   map[string]string       `json:"dimensions,omitempty"`
}

// Fingerprint is a stable string over the record's identity fields, used for
// deterministic ID derivation and output ordering.
func (m MetricRecord) Fingerprint() string {
	keys := make([]string, 0, len(m.Dimensions))
	for k := range m.Dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(m.RunID.String())
	b.WriteByte('|')
	b.WriteString(m.PersonID.String())
	b.WriteByte('|')
	b.WriteString(string(m.Kind))
	b.WriteByte('|')
	b.WriteString(m.Date.UTC().Format(time.RFC3339))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Dimensions[k])
	}
	return b.String()
}

// DeriveID assigns the deterministic record ID from the fingerprint.
func (m *MetricRecord) DeriveID() {
	m.ID = domain.MetricRecordID(uuid.NewSHA1(metricRecordNamespace, []byte(m.Fingerprint())))
}

// Exclusion records a span or event rejected by an inclusion predicate. An
// exclusion is a normal, auditable outcome, distinct from the subject never
// having been built.
type Exclusion struct {
	PersonID     domain.PersonID         `json:"person_id"`
	Jurisdiction domain.JurisdictionCode `json:"jurisdiction"`
	// Subject is "span" or "event".
	Subject   string     `json:"subject"`
	Predicate string     `json:"predicate"`
	Reason    string     `json:"reason"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
}

// PersonResult is everything one person's run produced.
type PersonResult struct {
	PersonID     domain.PersonID         `json:"person_id"`
	Jurisdiction domain.JurisdictionCode `json:"jurisdiction"`
	// UsedDefaultDelegate flags that the jurisdiction code was not
	// recognized and baseline rules applied; callers log it as a warning.
	UsedDefaultDelegate bool           `json:"used_default_delegate,omitempty"`
	Metrics             []MetricRecord `json:"metrics"`
	Exclusions          []Exclusion    `json:"exclusions,omitempty"`
}
