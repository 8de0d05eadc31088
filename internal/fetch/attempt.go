package fetch

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/laytan/tubescript/internal/tube"
)

// attempt is one bounded network call. Attempt numbers start at 1 inside a
// race, numbering the backoff so simultaneously launched attempts hit the
// network staggered. Number 0 means no backoff.
func (f *Fetcher) attempt(ctx context.Context, r Retriever, id string, number int) ([]tube.Segment, error) {
	if err := f.backoff(ctx, number); err != nil {
		return nil, err
	}

	return invokeWithTimeout(ctx, f.Config.AttemptTimeout, func(ctx context.Context) ([]tube.Segment, error) {
		return r.Transcript(ctx, id)
	})
}

// attemptWithFallback tries the proxied route and, when that fails, retries
// once immediately over a direct connection. Both count as one logical
// attempt.
func (f *Fetcher) attemptWithFallback(ctx context.Context, id string) ([]tube.Segment, error) {
	segments, err := f.attempt(ctx, f.Proxied, id, 0)
	if err == nil {
		return segments, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	log.Printf("[WARN]: [%s] proxied attempt failed (%s), retrying direct", id, truncate(err))
	return f.attempt(ctx, f.Direct, id, 0)
}

// backoff sleeps base*2^number plus up to one extra base unit of jitter, so
// concurrent attempts spread out instead of stampeding anti-automation
// defenses together.
func (f *Fetcher) backoff(ctx context.Context, number int) error {
	if number <= 0 {
		return nil
	}

	base := f.Config.BackoffBase
	delay := time.Duration(1<<uint(number))*base + time.Duration(rand.Float64()*float64(base))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// invokeWithTimeout runs op on its own goroutine and blocks at most timeout
// waiting for its result. On timeout op's context is cancelled best effort: a
// call already blocked inside the network stack may run on detached until its
// own deadline, and its result is discarded.
func invokeWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) ([]tube.Segment, error)) ([]tube.Segment, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		segments []tube.Segment
		err      error
	}
	results := make(chan result, 1)
	go func() {
		segments, err := op(ctx)
		results <- result{segments: segments, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-results:
		return res.segments, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("no result within %s: %w", timeout, ErrAttemptTimeout)
	}
}
