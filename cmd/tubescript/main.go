package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/laytan/tubescript/internal/cache"
	"github.com/laytan/tubescript/internal/config"
	"github.com/laytan/tubescript/internal/fetch"
	"github.com/laytan/tubescript/internal/timefmt"
	"github.com/laytan/tubescript/internal/tubescript"
	"github.com/laytan/tubescript/internal/videoid"
)

var (
	cfg     *config.Config
	store   *cache.Store
	fetcher *fetch.Fetcher
)

func main() {
	c, err := config.Load(os.Getenv("TUBESCRIPT_CONFIG"))
	if err != nil {
		log.Fatalf("[ERROR]: loading config: %v", err)
	}
	cfg = c

	store = &cache.Store{Dir: cfg.CacheDir}
	fetcher = fetch.New(store, cfg.ProxyURL(), cfg.FetchConfig())
	tubescript.Fetcher = fetcher

	if len(os.Args) > 1 && os.Args[1] == "fetch" {
		runFetch(os.Args[2:])
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := tubescript.Start(ctx, cfg.Addr); err != nil {
		log.Fatalf("[ERROR]: %v", err)
	}
}

// runFetch is the one-shot CLI: fetch a single transcript and print it as
// JSON, or as plain text with -flat.
func runFetch(args []string) {
	var flat, force bool
	var reference string
	for _, arg := range args {
		switch arg {
		case "-flat":
			flat = true
		case "-force":
			force = true
		default:
			reference = arg
		}
	}
	if reference == "" {
		log.Fatal("[ERROR]: usage: tubescript fetch [-flat] [-force] <url or id>")
	}

	start := time.Now()
	segments, cached, err := fetcher.Transcript(context.Background(), reference, force)
	if err != nil {
		log.Fatalf("[ERROR]: fetching %q: %v", reference, err)
	}
	log.Printf("[INFO]: %d segments in %s (cached=%t)", len(segments), timefmt.Duration(time.Since(start)), cached)

	if flat {
		// The id is valid here, the fetch above already extracted it.
		id, _ := videoid.Extract(reference)
		if err := store.SaveFlattened(id, segments); err != nil {
			log.Printf("[WARN]: %v", err)
		}

		os.Stdout.WriteString(cache.Flatten(segments) + "\n")
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(segments); err != nil {
		log.Fatalf("[ERROR]: encoding transcript: %v", err)
	}
}
