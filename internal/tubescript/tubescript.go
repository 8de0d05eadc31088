// Package tubescript is the HTTP surface of the service.
package tubescript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/laytan/tubescript/internal/fetch"
	"github.com/laytan/tubescript/internal/timefmt"
	"github.com/laytan/tubescript/internal/tube"
)

const (
	ServiceName = "tubescript"
	Version     = "1.0.0"

	shutdownTimeout = 5 * time.Second
)

// Service is what the routes need from the fetch pipeline.
type Service interface {
	Transcript(ctx context.Context, reference string, force bool) ([]tube.Segment, bool, error)
}

// Fetcher handles the actual retrieval, wired up in main.
var Fetcher Service

// App builds the fiber application with all routes registered.
func App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/", info)
	app.Get("/health", health)
	app.Get("/transcript/:id", transcript)

	return app
}

// Start serves the app on addr until the context is cancelled, then shuts
// down gracefully.
func Start(ctx context.Context, addr string) error {
	app := App()

	go func() {
		<-ctx.Done()
		log.Println("[INFO]: shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Printf("[ERROR]: shutdown: %v", err)
		}
	}()

	log.Printf("[INFO]: listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	return nil
}

func transcript(c *fiber.Ctx) error {
	start := time.Now()

	id := c.Params("id")
	if len(id) != 11 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid video ID format",
			"message": "Video ID must be exactly 11 characters",
		})
	}

	force := c.Query("force") == "1" || strings.EqualFold(c.Query("force"), "true")

	segments, cached, err := Fetcher.Transcript(c.UserContext(), id, force)
	if err != nil {
		if notAvailable(err) {
			log.Printf("[WARN]: [%s] not available: %v", id, err)
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Transcript not available",
				"message": err.Error(),
			})
		}

		log.Printf("[ERROR]: [%s] %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	elapsed := time.Since(start)
	log.Printf("[INFO]: [%s] served %d segments in %s (cached=%t)", id, len(segments), timefmt.Duration(elapsed), cached)

	return c.JSON(fiber.Map{
		"video_id":              id,
		"transcript":            segments,
		"cached":                cached,
		"retrieval_duration_ms": float64(elapsed.Microseconds()) / 1000,
	})
}

// notAvailable reports whether err is one of the expected ways a transcript
// can come up empty, as opposed to an internal failure.
func notAvailable(err error) bool {
	var allFailed *fetch.AllFailedError
	return errors.Is(err, fetch.ErrBadReference) ||
		errors.Is(err, fetch.ErrRaceTimeout) ||
		errors.Is(err, fetch.ErrAttemptTimeout) ||
		errors.Is(err, tube.ErrNoCaptions) ||
		errors.Is(err, tube.ErrUnavailable) ||
		errors.Is(err, tube.ErrTooManyRequests) ||
		errors.Is(err, tube.ErrEmpty) ||
		errors.As(err, &allFailed)
}

func health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": ServiceName,
		"version": Version,
		"endpoints": fiber.Map{
			"GET /transcript/:id": "Get the transcript for a video, ?force=1 bypasses the cache",
			"GET /health":         "Health check",
			"GET /":               "Service information",
		},
	})
}
