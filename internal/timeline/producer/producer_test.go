package producer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseline/pkg/domain"

	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/models"
)

type ProducerSuite struct {
	suite.Suite
	registry *delegate.Registry
	producer *Producer
	person   models.Person
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupTest() {
	s.registry = delegate.NewRegistry()
	s.producer = New()
	s.person = models.Person{
		ID:           domain.PersonID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
		Jurisdiction: "US-TN",
		BirthDate:    models.Date(1988, 4, 20),
	}
}

func (s *ProducerSuite) config() Config {
	return Config{
		RunID:             domain.RunID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
		AsOf:              models.Date(2020, 6, 1),
		SpanDuration:      true,
		Population:        true,
		EventCount:        true,
		CalculationMonths: -1,
	}
}

func incarcerationSpan(start time.Time, end *time.Time) models.Span {
	return models.Span{
		Start: start,
		End:   end,
		Attrs: models.SpanAttributes{Incarceration: true, Facility: "FAC-A"},
	}
}

func (s *ProducerSuite) TestSpanDurationMonthExpansion() {
	cfg := s.config()
	cfg.Population = false
	cfg.EventCount = false

	timeline := []models.Span{
		incarcerationSpan(models.Date(2020, 1, 15), models.DatePtr(2020, 3, 10)),
	}

	records, exclusions := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, nil)
	s.Empty(exclusions)
	s.Require().Len(records, 3)

	s.Equal(models.Date(2020, 1, 1), records[0].Date)
	s.Equal(float64(17), records[0].Value)
	s.Equal(models.Date(2020, 2, 1), records[1].Date)
	s.Equal(float64(29), records[1].Value)
	s.Equal(models.Date(2020, 3, 1), records[2].Date)
	s.Equal(float64(9), records[2].Value)

	for _, r := range records {
		s.Equal(models.MetricSpanDuration, r.Kind)
		s.Equal("incarceration", r.Dimensions["active_kinds"])
		s.Equal("FAC-A", r.Dimensions["facility"])
		s.Equal("30-34", r.Dimensions["age_bucket"])
	}
}

func (s *ProducerSuite) TestCalculationWindowBoundsOutput() {
	cfg := s.config()
	cfg.Population = false
	cfg.EventCount = false
	cfg.AsOf = models.Date(2020, 6, 15)
	cfg.CalculationMonths = 2

	timeline := []models.Span{
		incarcerationSpan(models.Date(2019, 1, 1), nil),
	}

	records, _ := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, nil)
	s.Require().Len(records, 2, "only the two months ending at the reference date count")
	s.Equal(models.Date(2020, 5, 1), records[0].Date)
	s.Equal(float64(31), records[0].Value)
	s.Equal(models.Date(2020, 6, 1), records[1].Date)
	s.Equal(float64(14), records[1].Value)
}

func (s *ProducerSuite) TestOpenSpanClippedAtReferenceDate() {
	cfg := s.config()
	cfg.Population = false
	cfg.EventCount = false
	cfg.AsOf = models.Date(2020, 4, 10)

	timeline := []models.Span{
		incarcerationSpan(models.Date(2020, 3, 15), nil),
	}

	records, _ := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, nil)
	s.Require().Len(records, 2)
	s.Equal(float64(17), records[0].Value)
	s.Equal(float64(9), records[1].Value)
}

func (s *ProducerSuite) TestPopulationSnapshots() {
	cfg := s.config()
	cfg.SpanDuration = false
	cfg.EventCount = false
	cfg.Snapshots = []time.Time{
		models.Date(2020, 1, 1),
		models.Date(2020, 2, 15),
		models.Date(2020, 7, 1),
	}

	timeline := []models.Span{
		incarcerationSpan(models.Date(2020, 1, 10), models.DatePtr(2020, 3, 1)),
	}

	records, _ := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, nil)
	s.Require().Len(records, 1, "only the snapshot inside the span counts")
	s.Equal(models.MetricPopulation, records[0].Kind)
	s.Equal(models.Date(2020, 2, 15), records[0].Date)
	s.Equal(float64(1), records[0].Value)
}

func (s *ProducerSuite) TestEventRecords() {
	cfg := s.config()
	cfg.SpanDuration = false
	cfg.Population = false

	eventList := []models.Event{
		{
			Kind:       models.EventViolation,
			Timestamp:  models.Date(2020, 2, 1),
			SourceKind: models.KindViolationResponse,
			SourceSeq:  7,
			Decision:   models.DecisionRevocation,
		},
		{
			Kind:       models.EventRelease,
			Timestamp:  models.Date(2020, 5, 1),
			SourceKind: models.KindIncarceration,
		},
	}

	records, _ := s.producer.Produce(cfg, s.registry.Default(), s.person, nil, eventList)
	s.Require().Len(records, 2)
	s.Equal(models.MetricEventCount, records[0].Kind)
	s.Equal("violation", records[0].Dimensions["event_kind"])
	s.Equal("revocation", records[0].Dimensions["decision"])
	s.Equal("7", records[0].Dimensions["source_seq"])
	s.Equal("release", records[1].Dimensions["event_kind"])
}

func (s *ProducerSuite) TestExclusionsAreAudited() {
	s.Run("empty span", func() {
		cfg := s.config()
		timeline := []models.Span{
			{Start: models.Date(2020, 1, 1), End: models.DatePtr(2020, 2, 1)},
		}
		records, exclusions := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, nil)
		s.Empty(records)
		s.Require().Len(exclusions, 1)
		s.Equal("span", exclusions[0].Subject)
		s.Equal("active_population", exclusions[0].Predicate)
		s.NotEmpty(exclusions[0].Reason)
	})

	s.Run("unresolved supervision type in US-MO", func() {
		mo, ok := s.registry.Resolve("US-MO")
		s.Require().True(ok)
		timeline := []models.Span{
			{
				Start: models.Date(2020, 1, 1),
				End:   models.DatePtr(2020, 2, 1),
				Attrs: models.SpanAttributes{Supervision: true},
			},
		}
		records, exclusions := s.producer.Produce(s.config(), mo, s.person, timeline, nil)
		s.Empty(records)
		s.Require().Len(exclusions, 1)
		s.Equal("supervision_type_resolved", exclusions[0].Predicate)
	})
}

func (s *ProducerSuite) TestDisabledKindsProduceNothing() {
	cfg := s.config()
	cfg.SpanDuration = false
	cfg.Population = false
	cfg.EventCount = false

	timeline := []models.Span{
		incarcerationSpan(models.Date(2020, 1, 1), models.DatePtr(2020, 3, 1)),
	}
	eventList := []models.Event{
		{Kind: models.EventRelease, Timestamp: models.Date(2020, 3, 1)},
	}

	records, exclusions := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, eventList)
	s.Empty(records)
	s.Empty(exclusions)
}

func (s *ProducerSuite) TestDeterministicRecords() {
	cfg := s.config()
	cfg.Snapshots = []time.Time{models.Date(2020, 2, 1)}

	timeline := []models.Span{
		incarcerationSpan(models.Date(2020, 1, 15), models.DatePtr(2020, 3, 10)),
	}
	eventList := []models.Event{
		{
			Kind:       models.EventViolation,
			Timestamp:  models.Date(2020, 2, 1),
			SourceKind: models.KindViolationResponse,
			SourceSeq:  1,
			Decision:   models.DecisionWarning,
		},
	}

	a, aExcl := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, eventList)
	b, bExcl := s.producer.Produce(cfg, s.registry.Default(), s.person, timeline, eventList)
	s.Empty(cmp.Diff(a, b), "reruns over the same inputs must be byte-identical")
	s.Empty(cmp.Diff(aExcl, bExcl))

	seen := make(map[domain.MetricRecordID]bool, len(a))
	for _, r := range a {
		s.NotEqual(domain.MetricRecordID(domain.Nil), r.ID)
		s.False(seen[r.ID], "record IDs must be distinct: %s", r.Fingerprint())
		seen[r.ID] = true
	}
}
