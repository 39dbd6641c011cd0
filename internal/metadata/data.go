package metadata

import (
	"time"
)

/*
Metadata Collected
- Fetch timestamps and durations
- HTTP status codes
- Retry counts
- Written artifact paths

Logging Goals
- Debuggable archive behavior
- Post-run auditability
- Failure diagnostics

Determinism guarantees:
 - Metadata does not affect control flow
 - Errors do not reorder downloads
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence archive decisions.
*/

/*
archiveStats
  - Represents a terminal, derived summary of a completed archive run
  - Contains only aggregate counts and durations
  - Is computed by the pipeline after all downloads terminate
  - Is recorded exactly once
  - Must not influence retries, rewriting, or run termination
*/
type archiveStats struct {
	resourcesOk     int
	resourcesFailed int
	bytesWritten    int64
	durationMs      int64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

const (
	// CauseUnknown: the failure does not map cleanly to any known category.
	CauseUnknown ErrorCause = iota
	// CauseNetworkFailure: transport or remote availability failure
	// (timeouts, DNS, connection resets).
	CauseNetworkFailure
	// CausePolicyDisallow: an explicit remote rejection (403, 401, 429).
	CausePolicyDisallow
	// CauseContentInvalid: content was fetched but could not be processed
	// (non-HTML root document, unparseable reference URL).
	CauseContentInvalid
	// CauseStorageFailure: failure while persisting the bundle
	// (disk full, permissions, filesystem I/O).
	CauseStorageFailure
	// CauseRetryFailure: a retry sequence exhausted all attempts.
	CauseRetryFailure
)

type ArtifactKind string

const (
	ArtifactResource ArtifactKind = "resource"
	ArtifactDocument ArtifactKind = "document"
)

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrKind       AttributeKey = "kind"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrAttempts   AttributeKey = "attempts"
	AttrWritePath  AttributeKey = "write_path"
	AttrMessage    AttributeKey = "message"
)
