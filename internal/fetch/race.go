package fetch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/laytan/tubescript/internal/tube"
	"golang.org/x/sync/errgroup"
)

// Failure reasons aggregated into an AllFailedError, anything past this is
// dropped.
const maxReasons = 3

// race launches the configured number of proxied attempts at once and
// resolves with the first success, cancelling the rest. If every attempt
// fails it resolves immediately with an AllFailedError; if neither happens
// before the race deadline it resolves with ErrRaceTimeout. The result always
// comes from exactly one attempt.
func (f *Fetcher) race(ctx context.Context, id string) ([]tube.Segment, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	success := make(chan []tube.Segment, 1)
	var mu sync.Mutex
	var reasons []string

	group, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= f.Config.MaxAttempts; i++ {
		i := i
		group.Go(func() error {
			segments, err := f.attempt(gctx, f.Proxied, id, i)
			if err != nil {
				if gctx.Err() == nil {
					log.Printf("[WARN]: [%s] attempt %d failed: %s", id, i, truncate(err))
				}
				mu.Lock()
				if len(reasons) < maxReasons {
					reasons = append(reasons, fmt.Sprintf("attempt %d: %s", i, truncate(err)))
				}
				mu.Unlock()
				return nil
			}

			select {
			case success <- segments:
				log.Printf("[INFO]: [%s] attempt %d won with %d segments", id, i, len(segments))
				cancel() // First result wins, signal the others to stop.
			default: // A sibling already won, discard this result.
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = group.Wait() // Attempts record their failures instead of returning them.
		close(done)
	}()

	timer := time.NewTimer(f.Config.RaceTimeout)
	defer timer.Stop()

	select {
	case segments := <-success:
		return segments, nil
	case <-done:
		// The win and the group finishing can land together, the win takes
		// precedence.
		select {
		case segments := <-success:
			return segments, nil
		default:
		}

		mu.Lock()
		defer mu.Unlock()
		return nil, &AllFailedError{Reasons: reasons}
	case <-timer.C:
		return nil, fmt.Errorf("no attempt resolved within %s: %w", f.Config.RaceTimeout, ErrRaceTimeout)
	}
}
