package retry

import (
	"time"

	"github.com/rohmanhakim/page-archiver/pkg/failure"
	"github.com/rohmanhakim/page-archiver/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic.
// These parameters are passed from outside (e.g., config) and should not
// be known by the retry handler internally.
type RetryParam struct {
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

// NewRetryParam creates a new RetryParam with the given settings.
func NewRetryParam(
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

// Result carries the outcome of a retried task together with the number of
// attempts actually performed. Attempts counts every execution of the task,
// including the final one, whether it succeeded or not.
type Result[T any] struct {
	value    T
	attempts int
	err      failure.ClassifiedError
}

func NewResult[T any](value T, attempts int, err failure.ClassifiedError) Result[T] {
	return Result[T]{
		value:    value,
		attempts: attempts,
		err:      err,
	}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}
