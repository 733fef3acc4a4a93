// Package entity provides EntityReader adapters over the ingested-entity
// store: an in-memory reader for tests and local runs, and a PostgreSQL
// reader for real populations.
package entity

import (
	"context"
	"sort"
	"sync"

	"caseline/pkg/domain"
	"caseline/pkg/platform/sentinel"

	"caseline/internal/timeline/models"
)

// MemoryReader serves persons from memory. Safe for concurrent reads.
type MemoryReader struct {
	mu      sync.RWMutex
	persons map[domain.PersonID]models.Person
}

func NewMemory(persons ...models.Person) *MemoryReader {
	r := &MemoryReader{persons: make(map[domain.PersonID]models.Person, len(persons))}
	for _, p := range persons {
		r.persons[p.ID] = p
	}
	return r
}

// Add registers a person; intended for test setup.
func (r *MemoryReader) Add(p models.Person) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persons[p.ID] = p
}

func (r *MemoryReader) GetPerson(_ context.Context, id domain.PersonID) (*models.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.persons[id]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (r *MemoryReader) ListPersons(_ context.Context) ([]models.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Person, 0, len(r.persons))
	for _, p := range r.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
