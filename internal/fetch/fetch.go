// Package fetch is the transcript retrieval pipeline: consult the cache,
// race concurrent network attempts with a hard deadline, fall back to a
// single plain attempt, persist the winner.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/laytan/tubescript/internal/cache"
	"github.com/laytan/tubescript/internal/tube"
	"github.com/laytan/tubescript/internal/videoid"
)

const (
	DefaultMaxAttempts    = 2
	DefaultAttemptTimeout = 45 * time.Second
	// The race deadline leaves the slowest attempt a little room on top of
	// its own timeout.
	DefaultRaceBuffer  = 5 * time.Second
	DefaultBackoffBase = time.Second
)

var (
	ErrBadReference   = errors.New("no video id in reference")
	ErrAttemptTimeout = errors.New("attempt timed out")
	ErrRaceTimeout    = errors.New("race timed out")
)

// AllFailedError is the race outcome when every attempt failed before any
// succeeded. Individual attempt errors never cross this boundary, only their
// truncated reasons do.
type AllFailedError struct {
	Reasons []string
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all attempts failed: %s", strings.Join(e.Reasons, "; "))
}

// Retriever is the underlying transcript call an attempt makes.
// *tube.Client implements it, tests substitute their own.
type Retriever interface {
	Transcript(ctx context.Context, videoID string) ([]tube.Segment, error)
}

// Config bounds one logical fetch. Zero values mean the defaults above.
type Config struct {
	// MaxAttempts is the number of concurrent attempts in a race.
	MaxAttempts int
	// AttemptTimeout is the hard wall-clock bound on one network call.
	AttemptTimeout time.Duration
	// RaceTimeout bounds the race as a whole.
	RaceTimeout time.Duration
	// BackoffBase is the unit of the per-attempt exponential delay.
	BackoffBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.RaceTimeout <= 0 {
		c.RaceTimeout = c.AttemptTimeout + DefaultRaceBuffer
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	return c
}

// Fetcher owns the in-flight attempts for one logical request at a time.
// Concurrent requests for the same id may both fetch and both write, last
// write wins, the writes replace the same logical content.
type Fetcher struct {
	Cache  *cache.Store
	Direct Retriever
	// Proxied is nil when no proxy credentials are configured, which disables
	// racing and the proxied fallback.
	Proxied Retriever
	Config  Config
}

// New wires a Fetcher against the real site. proxy may be nil.
func New(store *cache.Store, proxy *url.URL, cfg Config) *Fetcher {
	f := &Fetcher{
		Cache:  store,
		Direct: &tube.Client{},
		Config: cfg.withDefaults(),
	}
	if proxy != nil {
		f.Proxied = &tube.Client{Proxy: proxy}
	}
	return f
}

// Transcript resolves the reference to a video id and returns its transcript,
// consulting the cache first unless force is set. A forced fetch still writes
// its result back. The returned bool reports whether the transcript came from
// cache.
func (f *Fetcher) Transcript(ctx context.Context, reference string, force bool) ([]tube.Segment, bool, error) {
	id, ok := videoid.Extract(reference)
	if !ok {
		return nil, false, fmt.Errorf("%q: %w", reference, ErrBadReference)
	}

	if !force {
		cached, err := f.Cache.Load(id)
		if err != nil {
			// Unreadable entries are refetched, not surfaced.
			log.Printf("[WARN]: [%s] %v, refetching", id, err)
		}
		if cached != nil {
			return cached, true, nil
		}
	}

	segments, err := f.fetch(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if err := f.Cache.Save(id, segments); err != nil {
		return nil, false, fmt.Errorf("saving transcript for %q: %w", id, err)
	}

	return segments, false, nil
}

func (f *Fetcher) fetch(ctx context.Context, id string) ([]tube.Segment, error) {
	if f.Proxied == nil {
		log.Printf("[INFO]: [%s] no proxy configured, single direct attempt", id)
		segments, err := f.attempt(ctx, f.Direct, id, 0)
		if err != nil {
			return nil, &AllFailedError{Reasons: []string{truncate(err)}}
		}
		return segments, nil
	}

	segments, raceErr := f.race(ctx, id)
	if raceErr == nil {
		return segments, nil
	}

	// Race failures are sometimes transient (proxy pool exhaustion for one),
	// a single plain attempt occasionally succeeds where concurrent ones
	// collided.
	log.Printf("[WARN]: [%s] race failed (%s), falling back to a single attempt", id, truncate(raceErr))
	segments, err := f.attemptWithFallback(ctx, id)
	if err != nil {
		var allFailed *AllFailedError
		if errors.As(raceErr, &allFailed) && len(allFailed.Reasons) < maxReasons {
			allFailed.Reasons = append(allFailed.Reasons, "fallback: "+truncate(err))
		}
		return nil, raceErr
	}

	return segments, nil
}

const maxErrLen = 200

// truncate caps diagnostic text so aggregated errors and logs stay bounded.
func truncate(err error) string {
	msg := err.Error()
	if len(msg) > maxErrLen {
		msg = msg[:maxErrLen]
	}
	return msg
}
