package rewriter

import (
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
)

type RewriteErrorCause int

const (
	ErrCauseUnknown RewriteErrorCause = iota
	ErrCauseRenderFail
	ErrCauseNoticeInjectFail
)

type RewriteError struct {
	Message   string
	Retryable bool
	Cause     RewriteErrorCause
}

func (e *RewriteError) Error() string {
	return e.Message
}

func (e *RewriteError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RewriteError) IsRetryable() bool {
	return e.Retryable
}

func (e *RewriteError) Is(target error) bool {
	t, ok := target.(*RewriteError)
	if !ok {
		return false
	}
	return t.Cause == e.Cause
}

func mapRewriteErrorToMetadataCause(cause RewriteErrorCause) metadata.ErrorCause {
	switch cause {
	case ErrCauseRenderFail, ErrCauseNoticeInjectFail:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
