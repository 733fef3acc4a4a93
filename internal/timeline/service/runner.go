// Package service wires the pipeline stages into a per-person runner and a
// batch runner with per-person failure isolation. The runner is intentionally
// thin: every stage is a pure function and the hard logic lives in the stage
// packages.
package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"caseline/pkg/domain"
	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/cache"
	"caseline/internal/timeline/delegate"
	"caseline/internal/timeline/events"
	"caseline/internal/timeline/metrics"
	"caseline/internal/timeline/models"
	"caseline/internal/timeline/normalizer"
	"caseline/internal/timeline/ports"
	"caseline/internal/timeline/producer"
	"caseline/internal/timeline/spans"
)

// RunConfig is everything a run needs beyond the person data itself. It is
// resolved once per run and never mutated, so processing stays a pure
// function of (person, jurisdiction code, run config).
type RunConfig struct {
	RunID domain.RunID
	AsOf  time.Time

	SpanDuration bool
	Population   bool
	EventCount   bool

	CalculationMonths int
	Snapshots         []time.Time

	// Concurrency bounds parallel person processing in ProcessBatch.
	Concurrency int
}

// Stage names used in failure reporting and metrics labels.
const (
	StageNormalize = "normalize"
	StageSpans     = "spans"
	StageEvents    = "events"
	StageProduce   = "produce"
)

type Runner struct {
	registry   *delegate.Registry
	cfg        RunConfig
	normalizer *normalizer.Normalizer
	builder    *spans.Builder
	identifier *events.Identifier
	producer   *producer.Producer

	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   ports.ResultCache
	sink    ports.MetricSink
	tracer  trace.Tracer
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithCache(c ports.ResultCache) Option {
	return func(r *Runner) { r.cache = c }
}

func WithSink(s ports.MetricSink) Option {
	return func(r *Runner) { r.sink = s }
}

func New(registry *delegate.Registry, cfg RunConfig, opts ...Option) (*Runner, error) {
	if registry == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "delegate registry is required")
	}
	if cfg.AsOf.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "run config requires an as-of date")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	r := &Runner{
		registry: registry,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("caseline/timeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.normalizer = normalizer.New(normalizer.WithLogger(r.logger))
	r.builder = spans.New(spans.WithLogger(r.logger))
	r.identifier = events.New(events.WithLogger(r.logger))
	r.producer = producer.New()
	return r, nil
}

// ProcessPerson runs Normalize -> BuildSpans -> IdentifyEvents -> Produce for
// one person. It is safe to call concurrently across persons: all shared
// state (registry, config) is read-only.
func (r *Runner) ProcessPerson(ctx context.Context, person models.Person) (*models.PersonResult, error) {
	result, _, err := r.processPerson(ctx, person)
	return result, err
}

func (r *Runner) processPerson(ctx context.Context, person models.Person) (*models.PersonResult, string, error) {
	ctx, span := r.tracer.Start(ctx, "timeline.process_person",
		trace.WithAttributes(
			attribute.String("person_id", person.ID.String()),
			attribute.String("jurisdiction", person.Jurisdiction.String()),
		))
	defer span.End()

	del, recognized := r.registry.Resolve(person.Jurisdiction)
	if !recognized {
		r.logger.Warn("unrecognized jurisdiction, using default delegate",
			"person_id", person.ID, "jurisdiction", person.Jurisdiction)
		if r.metrics != nil {
			r.metrics.DefaultDelegateFallbacks.Inc()
		}
	}

	digest := ""
	if r.cache != nil {
		digest = cache.Digest(person, r.cfg)
		if cached, err := r.cache.Get(ctx, digest); err == nil {
			if r.metrics != nil {
				r.metrics.CacheHits.Inc()
			}
			return cached, "", nil
		}
	}

	byKind := make(map[models.PeriodKind][]models.NormalizedPeriod, len(models.PeriodKinds()))
	for _, kind := range models.PeriodKinds() {
		normalized, err := r.normalizer.Normalize(del, kind, person.PeriodsOfKind(kind))
		if err != nil {
			return nil, StageNormalize, r.fail(StageNormalize, person, err)
		}
		byKind[kind] = normalized
	}

	timeline, err := r.builder.Build(byKind)
	if err != nil {
		// Invariant violations are defects, not data problems; the batch
		// substrate must not retry them.
		return nil, StageSpans, r.fail(StageSpans, person, err)
	}

	eventList := r.identifier.Identify(del, byKind, timeline)

	records, exclusions := r.producer.Produce(producer.Config{
		RunID:             r.cfg.RunID,
		AsOf:              r.cfg.AsOf,
		SpanDuration:      r.cfg.SpanDuration,
		Population:        r.cfg.Population,
		EventCount:        r.cfg.EventCount,
		CalculationMonths: r.cfg.CalculationMonths,
		Snapshots:         r.cfg.Snapshots,
	}, del, person, timeline, eventList)

	result := &models.PersonResult{
		PersonID:            person.ID,
		Jurisdiction:        person.Jurisdiction,
		UsedDefaultDelegate: !recognized,
		Metrics:             records,
		Exclusions:          exclusions,
	}

	if r.metrics != nil {
		r.metrics.PersonsProcessed.Inc()
		r.metrics.MetricRecordsEmitted.Add(float64(len(records)))
		r.metrics.ExclusionsRecorded.Add(float64(len(exclusions)))
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, digest, result); err != nil {
			r.logger.Warn("result cache write failed", "person_id", person.ID, "error", err)
		}
	}
	return result, "", nil
}

func (r *Runner) fail(stage string, person models.Person, err error) error {
	if r.metrics != nil {
		r.metrics.PersonFailures.WithLabelValues(stage).Inc()
	}
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		r.logger.Error("pipeline defect", "stage", stage, "person_id", person.ID, "error", err)
	} else {
		r.logger.Warn("person failed", "stage", stage, "person_id", person.ID, "error", err)
	}
	return err
}

// PersonFailure records one person's failure without aborting the batch.
type PersonFailure struct {
	PersonID     domain.PersonID
	Jurisdiction domain.JurisdictionCode
	Stage        string
	Err          error
}

// BatchResult aggregates a batch run. Results and Failures are sorted by
// person ID so identical batches produce identical output.
type BatchResult struct {
	Results  []models.PersonResult
	Failures []PersonFailure
}

// ProcessBatch processes persons with bounded concurrency. A failure in one
// person's pipeline never aborts the others; failures are collected in the
// result. When a sink is configured, all records and exclusions are written
// after processing completes, in sorted order.
func (r *Runner) ProcessBatch(ctx context.Context, persons []models.Person) (*BatchResult, error) {
	batch := &BatchResult{}
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	results := make([]*models.PersonResult, len(persons))
	failures := make([]*PersonFailure, len(persons))

	for i, person := range persons {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, stage, err := r.processPerson(ctx, person)
			if err != nil {
				failures[i] = &PersonFailure{
					PersonID:     person.ID,
					Jurisdiction: person.Jurisdiction,
					Stage:        stage,
					Err:          err,
				}
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		if res != nil {
			batch.Results = append(batch.Results, *res)
		}
	}
	for _, f := range failures {
		if f != nil {
			batch.Failures = append(batch.Failures, *f)
		}
	}
	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].PersonID.String() < batch.Results[j].PersonID.String()
	})
	sort.Slice(batch.Failures, func(i, j int) bool {
		return batch.Failures[i].PersonID.String() < batch.Failures[j].PersonID.String()
	})

	if r.sink != nil {
		var records []models.MetricRecord
		var exclusions []models.Exclusion
		for _, res := range batch.Results {
			records = append(records, res.Metrics...)
			exclusions = append(exclusions, res.Exclusions...)
		}
		if err := r.sink.WriteMetrics(ctx, records); err != nil {
			return batch, dErrors.Wrap(err, dErrors.CodeUnavailable, "metric sink write failed")
		}
		if err := r.sink.WriteExclusions(ctx, exclusions); err != nil {
			return batch, dErrors.Wrap(err, dErrors.CodeUnavailable, "exclusion sink write failed")
		}
	}
	return batch, nil
}
