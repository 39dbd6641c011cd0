package metadata

import (
	"log/slog"
	"time"
)

/*
Recorder captures structured archive events and emits them through slog.
It must not:
- perform I/O decisions
- affect control flow
- impose a logging backend beyond the injected slog handler
Ordering guarantees:
- Events are recorded in the order they reach the recorder.
- Download workers complete in arbitrary order, so no cross-worker
  ordering is guaranteed or implied.
- Ordering is provided for debuggability, not causality.
*/
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a recorder emitting through the given logger.
// A nil logger falls back to slog.Default().
func NewRecorder(logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	args := []any{
		"package", packageName,
		"action", action,
		"cause", int(cause),
		"error", errorString,
		"observed_at", observedAt,
	}
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Warn("archive error", args...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	attempts int,
) {
	r.logger.Debug("fetch",
		"url", fetchUrl,
		"http_status", httpStatus,
		"duration", duration,
		"attempts", attempts,
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []any{
		"kind", string(kind),
		"path", path,
	}
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Debug("artifact written", args...)
}

/*
RecordFinalArchiveStats records a terminal, derived summary of a completed run.

Contract:
  - MUST be called exactly once per archive execution.
  - MUST be called only after every download task has terminated.
  - The counters MUST be derived from pipeline state,
    not accumulated incrementally via the recorder.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordFinalArchiveStats(
	resourcesOk int,
	resourcesFailed int,
	bytesWritten int64,
	duration time.Duration,
) {
	stats := archiveStats{
		resourcesOk:     resourcesOk,
		resourcesFailed: resourcesFailed,
		bytesWritten:    bytesWritten,
		durationMs:      duration.Milliseconds(),
	}

	r.logger.Info("archive complete",
		"resources_ok", stats.resourcesOk,
		"resources_failed", stats.resourcesFailed,
		"bytes_written", stats.bytesWritten,
		"duration_ms", stats.durationMs,
	)
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		attempts int,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type ArchiveFinalizer interface {
	RecordFinalArchiveStats(
		resourcesOk int,
		resourcesFailed int,
		bytesWritten int64,
		duration time.Duration,
	)
}

// NoopSink, struct that implements MetadataSink but does nothing
// Pipeline (or Test) can decide whether to inject Recorder or NoopSink
// Purpose is to make metadata orthogonal

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	attempts int,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalArchiveStats(
	resourcesOk int,
	resourcesFailed int,
	bytesWritten int64,
	duration time.Duration,
) {
}
