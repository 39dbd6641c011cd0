package pipeline

import (
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
)

type PipelineErrorCause int

const (
	ErrCauseUnknown PipelineErrorCause = iota
	ErrCauseRootFetchFail
	ErrCauseParseFail
	ErrCauseDocumentWriteFail
)

// PipelineError marks the run-terminating failures: the root document
// could not be fetched, parsed, or written. Resource failures never
// surface here; they land in the summary instead.
type PipelineError struct {
	Message string
	Cause   PipelineErrorCause
}

func (e *PipelineError) Error() string {
	return e.Message
}

func (e *PipelineError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *PipelineError) IsRetryable() bool {
	return false
}

func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Cause == e.Cause
}

func mapPipelineErrorToMetadataCause(cause PipelineErrorCause) metadata.ErrorCause {
	switch cause {
	case ErrCauseRootFetchFail:
		return metadata.CauseNetworkFailure
	case ErrCauseParseFail:
		return metadata.CauseContentInvalid
	case ErrCauseDocumentWriteFail:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
