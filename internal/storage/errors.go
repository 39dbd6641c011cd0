package storage

import (
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/failure"
)

type StorageErrorCause int

const (
	ErrCauseUnknown StorageErrorCause = iota
	ErrCauseDirCreation
	ErrCauseWriteFail
	ErrCauseDiskFull
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
}

func (e *StorageError) Error() string {
	return e.Message
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return t.Cause == e.Cause
}

// mapStorageErrorToMetadataCause translates storage failure causes into
// metadata vocabulary. Observational only.
func mapStorageErrorToMetadataCause(cause StorageErrorCause) metadata.ErrorCause {
	switch cause {
	case ErrCauseDirCreation, ErrCauseWriteFail, ErrCauseDiskFull:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
