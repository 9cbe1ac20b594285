package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter(t *testing.T) {
	t.Parallel()

	t.Run("implements entrel.HostLimiter interface", func(t *testing.T) {
		t.Parallel()
		var _ entrel.HostLimiter = pipeline.NewHostLimiter(1)
	})

	t.Run("allows immediate request when under limit", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(10) // 10 req/sec

		start := time.Now()
		err := limiter.Wait(context.Background(), "acme.example")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "first request should be immediate")
	})

	t.Run("rate limits requests to same host", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(10) // 10 req/sec = 100ms between requests

		// First request is immediate
		err := limiter.Wait(context.Background(), "acme.example")
		require.NoError(t, err)

		// Second request should wait
		start := time.Now()
		err = limiter.Wait(context.Background(), "acme.example")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "should wait for rate limit")
	})

	t.Run("different hosts have independent limits", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(10) // 10 req/sec

		// First request to host A
		err := limiter.Wait(context.Background(), "acme.example")
		require.NoError(t, err)

		// First request to host B should be immediate
		start := time.Now()
		err = limiter.Wait(context.Background(), "globex.example")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "different host should not wait")
	})

	t.Run("shares a bucket across spellings of a host", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(10)

		require.NoError(t, limiter.Wait(context.Background(), "Acme.Example:443"))

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), "acme.example."))
		elapsed := time.Since(start)

		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "same host should wait")
		assert.Equal(t, 1, limiter.Hosts())
	})

	t.Run("keeps non-default ports apart", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(10)

		require.NoError(t, limiter.Wait(context.Background(), "acme.example:8080"))
		require.NoError(t, limiter.Wait(context.Background(), "acme.example"))

		assert.Equal(t, 2, limiter.Hosts())
	})

	t.Run("returns EUNAVAILABLE when the wait outlasts the deadline", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(1) // 1 req/sec = 1000ms between requests

		// First request exhausts the token
		err := limiter.Wait(context.Background(), "acme.example")
		require.NoError(t, err)

		// Second request with short timeout
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = limiter.Wait(ctx, "acme.example")
		require.Error(t, err, "should fail when context times out")
		assert.Equal(t, entrel.EUNAVAILABLE, entrel.ErrorCode(err))
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := limiter.Wait(ctx, "acme.example")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("concurrent requests are serialized per host", func(t *testing.T) {
		t.Parallel()

		limiter := pipeline.NewHostLimiter(100) // 100 req/sec = 10ms between requests

		var wg sync.WaitGroup
		var completed atomic.Int32

		// Launch 5 concurrent requests to same host
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := limiter.Wait(context.Background(), "acme.example")
				if err == nil {
					completed.Add(1)
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, int32(5), completed.Load(), "all requests should complete")
	})
}
