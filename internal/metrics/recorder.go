// Package metrics exposes build observability hooks with a Prometheus backend.
package metrics

import "time"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning" // finished with abandoned or skipped documents
	OutcomeFailed  Outcome = "failed"
)

// Recorder receives build and resolution measurements. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	SetDocuments(state string, n int)
	ObserveResolvePasses(n int)
	IncDanglingIncludes(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(Outcome)                    {}
func (NoopRecorder) SetDocuments(string, int)                   {}
func (NoopRecorder) ObserveResolvePasses(int)                   {}
func (NoopRecorder) IncDanglingIncludes(int)                    {}
