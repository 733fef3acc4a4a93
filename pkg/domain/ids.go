// Package domain holds the shared typed identifiers used across the pipeline.
// Keeping them typed prevents accidentally crossing a PersonID with a RunID in
// function signatures that otherwise take several uuids.
package domain

import "github.com/google/uuid"

// UUID is re-exported so callers don't import the uuid package directly.
type UUID = uuid.UUID

// Nil is the zero UUID.
var Nil = uuid.Nil

// PersonID identifies one person across all of their raw and derived records.
type PersonID uuid.UUID

// RunID identifies one pipeline run. Every metric record carries the run that
// produced it so reruns can be diffed and superseded downstream.
type RunID uuid.UUID

// MetricRecordID identifies a single output metric record.
type MetricRecordID uuid.UUID

// SequenceID is the jurisdiction-local ordering identifier carried on raw
// periods. It breaks start-date ties so normalization output is deterministic.
type SequenceID int64

// NewPersonID returns a random PersonID.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewRunID returns a random RunID.
func NewRunID() RunID { return RunID(uuid.New()) }

// NewMetricRecordID returns a random MetricRecordID.
func NewMetricRecordID() MetricRecordID { return MetricRecordID(uuid.New()) }

func (p PersonID) String() string       { return uuid.UUID(p).String() }
func (r RunID) String() string          { return uuid.UUID(r).String() }
func (m MetricRecordID) String() string { return uuid.UUID(m).String() }

// ParsePersonID parses the canonical string form of a PersonID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PersonID(Nil), err
	}
	return PersonID(u), nil
}
