package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter
// Specialized component to bound how many downloads run at the same time
// Responsibilities:
// - Hand out at most K slots; the (K+1)-th Acquire blocks until a slot frees
// - A slot is held for the full lifetime of a task, retries included,
//   so the bound applies to network connections, not first attempts
// - Honor context cancellation while a caller is blocked waiting for a slot
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context) error
	Release()
	Limit() int
}

type SemaphoreLimiter struct {
	sem   *semaphore.Weighted
	limit int
}

func NewSemaphoreLimiter(limit int) *SemaphoreLimiter {
	if limit < 1 {
		limit = 1
	}
	return &SemaphoreLimiter{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
	}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (l *SemaphoreLimiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees the slot taken by a prior successful Acquire.
func (l *SemaphoreLimiter) Release() {
	l.sem.Release(1)
}

func (l *SemaphoreLimiter) Limit() int {
	return l.limit
}
