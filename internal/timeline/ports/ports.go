// Package ports defines the interfaces between the engine and its external
// collaborators: the ingested-entity store upstream, the metric sink
// downstream, and the optional run-result cache.
package ports

import (
	"context"

	"caseline/pkg/domain"

	"caseline/internal/timeline/models"
)

// EntityReader hands the engine fully materialized in-memory entity graphs.
// The engine performs no other I/O.
type EntityReader interface {
	// GetPerson returns one person's graph, or sentinel.ErrNotFound.
	GetPerson(ctx context.Context, id domain.PersonID) (*models.Person, error)

	// ListPersons returns all persons in the processing population, ordered
	// by person ID for deterministic batch iteration.
	ListPersons(ctx context.Context) ([]models.Person, error)
}

// MetricSink receives the terminal artifacts of the engine. Implementations
// own write transactions, partitioning, and schema; the engine does not.
type MetricSink interface {
	WriteMetrics(ctx context.Context, records []models.MetricRecord) error
	WriteExclusions(ctx context.Context, exclusions []models.Exclusion) error
}

// ResultCache memoizes per-person results keyed by an input digest. Safe
// because processing is a pure function of (raw periods, jurisdiction code,
// run config): equal digests imply equal results.
type ResultCache interface {
	// Get returns the cached result for the digest, or sentinel.ErrCacheMiss.
	Get(ctx context.Context, digest string) (*models.PersonResult, error)
	Put(ctx context.Context, digest string, result *models.PersonResult) error
}
