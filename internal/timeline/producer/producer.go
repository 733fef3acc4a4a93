// Package producer aggregates spans and events into output metric records
// along configured dimensions, applying jurisdiction inclusion predicates.
// Anything an inclusion predicate rejects is classified as an auditable
// exclusion, never silently dropped.
package producer

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"caseline/pkg/domain"

	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/models"
)

// Config enumerates which metric kinds to compute and their bounds. Supplied
// once per run; the producer itself holds no state across persons.
type Config struct {
	RunID domain.RunID

	// AsOf is the run's reference date. Open spans are clipped here for
	// duration metrics, and the month window counts back from it. Explicit
	// so reruns over the same inputs are byte-identical.
	AsOf time.Time

	SpanDuration bool
	Population   bool
	EventCount   bool

	// CalculationMonths limits span-duration output to the months within
	// this window ending at AsOf. -1 means unbounded.
	CalculationMonths int

	// Snapshots are the point-in-time population count dates.
	Snapshots []time.Time
}

type Producer struct{}

func New() *Producer { return &Producer{} }

// Produce turns one person's spans and events into metric records. Output is
// sorted by (kind, date, dimension fingerprint) so identical inputs yield
// byte-identical record sequences.
func (pr *Producer) Produce(
	cfg Config,
	del delegate.Delegate,
	person models.Person,
	timeline []models.Span,
	eventList []models.Event,
) ([]models.MetricRecord, []models.Exclusion) {
	var records []models.MetricRecord
	var exclusions []models.Exclusion

	spanMetricsWanted := cfg.SpanDuration || cfg.Population
	for _, span := range timeline {
		if !spanMetricsWanted {
			break
		}
		if verdict := del.IncludeSpan(span); !verdict.Include {
			exclusions = append(exclusions, models.Exclusion{
				PersonID:     person.ID,
				Jurisdiction: person.Jurisdiction,
				Subject:      "span",
				Predicate:    verdict.Predicate,
				Reason:       verdict.Reason,
				Start:        span.Start,
				End:          span.End,
			})
			continue
		}
		if cfg.SpanDuration {
			records = append(records, pr.spanDurationRecords(cfg, person, span)...)
		}
		if cfg.Population {
			records = append(records, pr.populationRecords(cfg, person, span)...)
		}
	}

	if cfg.EventCount {
		for _, event := range eventList {
			if verdict := del.IncludeEvent(event); !verdict.Include {
				exclusions = append(exclusions, models.Exclusion{
					PersonID:     person.ID,
					Jurisdiction: person.Jurisdiction,
					Subject:      "event",
					Predicate:    verdict.Predicate,
					Reason:       verdict.Reason,
					Start:        event.Timestamp,
				})
				continue
			}
			records = append(records, pr.eventRecord(cfg, person, event))
		}
	}

	for i := range records {
		records[i].DeriveID()
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Fingerprint() < b.Fingerprint()
	})
	return records, exclusions
}

// spanDurationRecords emits one record per calendar month the span overlaps
// within the configured window, valued in days of overlap in that month.
func (pr *Producer) spanDurationRecords(cfg Config, person models.Person, span models.Span) []models.MetricRecord {
	windowEnd := cfg.AsOf
	windowStart := span.Start
	if cfg.CalculationMonths >= 0 {
		lower := monthStart(cfg.AsOf).AddDate(0, -(cfg.CalculationMonths - 1), 0)
		if windowStart.Before(lower) {
			windowStart = lower
		}
	}

	var out []models.MetricRecord
	for month := monthStart(windowStart); month.Before(windowEnd); month = month.AddDate(0, 1, 0) {
		next := month.AddDate(0, 1, 0)
		hi := next
		if windowEnd.Before(hi) {
			hi = windowEnd
		}
		days := span.ClippedDays(month, hi)
		if days == 0 {
			continue
		}
		out = append(out, models.MetricRecord{
			RunID:        cfg.RunID,
			PersonID:     person.ID,
			Jurisdiction: person.Jurisdiction,
			Kind:         models.MetricSpanDuration,
			Date:         month,
			Value:        days,
			Dimensions:   spanDimensions(person, span, month),
		})
	}
	return out
}

// populationRecords emits one record per snapshot date the span contains.
func (pr *Producer) populationRecords(cfg Config, person models.Person, span models.Span) []models.MetricRecord {
	var out []models.MetricRecord
	for _, snapshot := range cfg.Snapshots {
		if !span.Contains(snapshot) {
			continue
		}
		out = append(out, models.MetricRecord{
			RunID:        cfg.RunID,
			PersonID:     person.ID,
			Jurisdiction: person.Jurisdiction,
			Kind:         models.MetricPopulation,
			Date:         snapshot,
			Value:        1,
			Dimensions:   spanDimensions(person, span, snapshot),
		})
	}
	return out
}

func (pr *Producer) eventRecord(cfg Config, person models.Person, event models.Event) models.MetricRecord {
	dims := map[string]string{
		"jurisdiction": person.Jurisdiction.String(),
		"event_kind":   string(event.Kind),
		// Distinguishes multiple same-kind events on one date so records
		// keep distinct deterministic IDs.
		"source_seq": strconv.FormatInt(int64(event.SourceSeq), 10),
	}
	if event.Decision != "" {
		dims["decision"] = string(event.Decision)
	}
	if bucket := person.AgeBucket(event.Timestamp); bucket != "" {
		dims["age_bucket"] = bucket
	}
	return models.MetricRecord{
		RunID:        cfg.RunID,
		PersonID:     person.ID,
		Jurisdiction: person.Jurisdiction,
		Kind:         models.MetricEventCount,
		Date:         event.Timestamp,
		Value:        1,
		Dimensions:   dims,
	}
}

func spanDimensions(person models.Person, span models.Span, at time.Time) map[string]string {
	kinds := span.Attrs.ActiveKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	dims := map[string]string{
		"jurisdiction": person.Jurisdiction.String(),
		"active_kinds": strings.Join(names, ","),
		// Distinguishes records from different spans that share a month and
		// dimension values, keeping record IDs distinct and deterministic.
		"span_start": span.Start.UTC().Format("2006-01-02"),
	}
	if span.Attrs.SupervisionType != "" {
		dims["supervision_type"] = span.Attrs.SupervisionType
	}
	if span.Attrs.CustodyLevel != "" {
		dims["custody_level"] = span.Attrs.CustodyLevel
	}
	if span.Attrs.Facility != "" {
		dims["facility"] = span.Attrs.Facility
	}
	if bucket := person.AgeBucket(at); bucket != "" {
		dims["age_bucket"] = bucket
	}
	return dims
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
