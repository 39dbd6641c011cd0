package limiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/page-archiver/pkg/limiter"
)

// TestLimiterBoundsInFlightTasks launches many more tasks than the limit and
// tracks the high-water mark of concurrently running tasks. The mark must
// never exceed the configured limit.
func TestLimiterBoundsInFlightTasks(t *testing.T) {
	const limit = 5
	const tasks = 40

	l := limiter.NewSemaphoreLimiter(limit)

	var inFlight atomic.Int64
	var highWater atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			defer l.Release()

			current := inFlight.Add(1)
			defer inFlight.Add(-1)

			// Record the high-water mark of concurrent holders
			for {
				seen := highWater.Load()
				if current <= seen || highWater.CompareAndSwap(seen, current) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, highWater.Load(), int64(limit))
	// With 40 tasks and short sleeps the pool should actually saturate
	assert.Equal(t, int64(limit), highWater.Load())
}

func TestLimiterAcquireRespectsCancellation(t *testing.T) {
	l := limiter.NewSemaphoreLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l.Release()
}

func TestLimiterFloorsAtOne(t *testing.T) {
	l := limiter.NewSemaphoreLimiter(0)
	assert.Equal(t, 1, l.Limit())
}
