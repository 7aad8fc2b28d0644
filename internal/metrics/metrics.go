// Package metrics records draft activity in memory and, when telemetry is
// enabled, through OpenTelemetry instruments exported to Prometheus and
// optionally OTLP.
package metrics

import (
	"sync"
	"time"
)

// Common metric attribute keys
const (
	AttrMethod  = "method"
	AttrPath    = "path"
	AttrStatus  = "status"
	AttrCommand = "command"
	AttrOutcome = "outcome"
)

type commandStats struct {
	calls       int
	errors      int
	lastLatency time.Duration
}

// Snapshot is a copy of the counters for one command.
type Snapshot struct {
	Calls       int
	Errors      int
	LastLatency time.Duration
}

// Recorder captures per-command counters. A nil Recorder is valid and
// records nothing.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*commandStats
	otel  *otelInstruments
}

// NewRecorder returns an in-memory recorder with no exporters.
func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*commandStats),
		otel:  otel,
	}
}

// RecordCommand counts one session command. outcome is the failure kind, or
// empty on success.
func (r *Recorder) RecordCommand(command string, duration time.Duration, outcome string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats, ok := r.stats[command]
	if !ok {
		stats = &commandStats{}
		r.stats[command] = stats
	}
	stats.calls++
	stats.lastLatency = duration
	if outcome != "" {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCommand(command, duration, outcome)
	}
}

// RecordRosterFetch tracks a roster load against the roster store.
func (r *Recorder) RecordRosterFetch(players int, duration time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := ""
	if err != nil {
		outcome = "error"
	}
	r.RecordCommand("roster_fetch", duration, outcome)
	if r.otel != nil && err == nil {
		r.otel.recordRosterSize(players)
	}
}

// RecordAllocation tracks how many players one allocation run placed.
func (r *Recorder) RecordAllocation(players int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordAllocation(players, duration)
}

// RecordHandicapSync tracks one handicap sync cycle.
func (r *Recorder) RecordHandicapSync(updated int, duration time.Duration, err error) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHandicapSync(updated, duration, err)
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// Calls returns the total invocations recorded for command.
func (r *Recorder) Calls(command string) int {
	return r.Snapshot(command).Calls
}

// Errors returns the failed invocations recorded for command.
func (r *Recorder) Errors(command string) int {
	return r.Snapshot(command).Errors
}

// Snapshot returns a copy of the current stats for command.
func (r *Recorder) Snapshot(command string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[command]
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		Calls:       stats.calls,
		Errors:      stats.errors,
		LastLatency: stats.lastLatency,
	}
}
