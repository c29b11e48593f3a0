// Package metrics holds the process-wide validation counters and the
// periodic reporter that logs them.
package metrics

import (
	"sync/atomic"
	"time"
)

// Stats is the aggregate counter set shared by every validation in the
// process. Each field is updated with an independent atomic operation, so a
// Snapshot is consistent per field but not across fields.
//
// A Stats is created once at startup and lives for the process lifetime. It
// is never reset.
type Stats struct {
	processed    atomic.Uint64
	errors       atomic.Uint64
	totalMicros  atomic.Uint64
	activeLayers atomic.Uint64
}

// NewStats returns a zeroed Stats whose active-layers gauge starts at layers.
func NewStats(layers int) *Stats {
	s := &Stats{}
	s.activeLayers.Store(uint64(layers))
	return s
}

// RecordValidation counts one completed validation that took elapsed and used
// layers rounds.
func (s *Stats) RecordValidation(elapsed time.Duration, layers int) {
	us := elapsed.Microseconds()
	if us < 0 {
		us = 0
	}
	s.activeLayers.Store(uint64(layers))
	s.processed.Add(1)
	s.totalMicros.Add(uint64(us))
}

// RecordError counts one abandoned connection or request.
func (s *Stats) RecordError() {
	s.errors.Add(1)
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Processed:    s.processed.Load(),
		Errors:       s.errors.Load(),
		TotalMicros:  s.totalMicros.Load(),
		ActiveLayers: s.activeLayers.Load(),
	}
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Processed    uint64
	Errors       uint64
	TotalMicros  uint64
	ActiveLayers uint64
}

// AverageMicros is TotalMicros/Processed, or 0 before the first validation.
func (s Snapshot) AverageMicros() uint64 {
	if s.Processed == 0 {
		return 0
	}
	return s.TotalMicros / s.Processed
}

// ErrorPercent is Errors*100/Processed, or 0 before the first validation.
func (s Snapshot) ErrorPercent() uint64 {
	if s.Processed == 0 {
		return 0
	}
	return s.Errors * 100 / s.Processed
}

const (
	HealthOK       = "healthy"
	HealthDegraded = "degraded"
)

// Health is HealthDegraded when more than a tenth of the processed count
// has failed.
func (s Snapshot) Health() string {
	if s.Errors > s.Processed/10 {
		return HealthDegraded
	}
	return HealthOK
}
