// Package sink provides MetricSink adapters: an in-memory sink for tests and
// a Kafka producer for downstream columnar ingestion.
package sink

import (
	"context"
	"sync"

	"caseline/internal/timeline/models"
)

// MemorySink collects records in memory. Safe for concurrent writers.
type MemorySink struct {
	mu         sync.Mutex
	records    []models.MetricRecord
	exclusions []models.Exclusion
}

func NewMemory() *MemorySink { return &MemorySink{} }

func (s *MemorySink) WriteMetrics(_ context.Context, records []models.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemorySink) WriteExclusions(_ context.Context, exclusions []models.Exclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exclusions = append(s.exclusions, exclusions...)
	return nil
}

// Records returns a copy of everything written so far.
func (s *MemorySink) Records() []models.MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MetricRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Exclusions returns a copy of everything written so far.
func (s *MemorySink) Exclusions() []models.Exclusion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Exclusion, len(s.exclusions))
	copy(out, s.exclusions)
	return out
}
