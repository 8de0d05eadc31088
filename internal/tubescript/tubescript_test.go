package tubescript_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laytan/tubescript/internal/fetch"
	"github.com/laytan/tubescript/internal/tube"
	"github.com/laytan/tubescript/internal/tubescript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rickroll = []tube.Segment{
	{Text: "Never gonna give you up", Start: 0, Duration: 2.5},
	{Text: "Never gonna let you down", Start: 2.5, Duration: 2.5},
}

type fakeService struct {
	segments  []tube.Segment
	cached    bool
	err       error
	lastForce bool
	calls     int
}

func (s *fakeService) Transcript(ctx context.Context, reference string, force bool) ([]tube.Segment, bool, error) {
	s.calls++
	s.lastForce = force
	return s.segments, s.cached, s.err
}

type transcriptResponse struct {
	VideoID             string         `json:"video_id"`
	Transcript          []tube.Segment `json:"transcript"`
	Cached              bool           `json:"cached"`
	RetrievalDurationMS float64        `json:"retrieval_duration_ms"`
	Error               string         `json:"error"`
}

func request(t *testing.T, path string) (*http.Response, transcriptResponse) {
	t.Helper()

	app := tubescript.App()
	res, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var parsed transcriptResponse
	require.NoError(t, json.Unmarshal(body, &parsed))

	return res, parsed
}

func TestTranscriptRoute(t *testing.T) {
	service := &fakeService{segments: rickroll}
	tubescript.Fetcher = service

	res, body := request(t, "/transcript/dQw4w9WgXcQ")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "dQw4w9WgXcQ", body.VideoID)
	assert.Equal(t, rickroll, body.Transcript)
	assert.False(t, body.Cached)
	assert.GreaterOrEqual(t, body.RetrievalDurationMS, 0.0)
	assert.False(t, service.lastForce)
}

func TestTranscriptRouteCached(t *testing.T) {
	tubescript.Fetcher = &fakeService{segments: rickroll, cached: true}

	res, body := request(t, "/transcript/dQw4w9WgXcQ")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, body.Cached)
}

func TestTranscriptRouteForce(t *testing.T) {
	for _, value := range []string{"1", "true", "TRUE"} {
		service := &fakeService{segments: rickroll}
		tubescript.Fetcher = service

		res, _ := request(t, "/transcript/dQw4w9WgXcQ?force="+value)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.True(t, service.lastForce, value)
	}

	for _, value := range []string{"0", "false", ""} {
		service := &fakeService{segments: rickroll}
		tubescript.Fetcher = service

		res, _ := request(t, "/transcript/dQw4w9WgXcQ?force="+value)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.False(t, service.lastForce, value)
	}
}

func TestTranscriptRouteRejectsBadID(t *testing.T) {
	service := &fakeService{segments: rickroll}
	tubescript.Fetcher = service

	res, body := request(t, "/transcript/tooshort")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Invalid video ID format", body.Error)
	assert.Zero(t, service.calls, "the pipeline must not be invoked for a bad id")
}

func TestTranscriptRouteNotAvailable(t *testing.T) {
	errs := []error{
		&fetch.AllFailedError{Reasons: []string{"attempt 1: boom"}},
		fetch.ErrRaceTimeout,
		fetch.ErrBadReference,
		tube.ErrNoCaptions,
	}
	for _, serviceErr := range errs {
		tubescript.Fetcher = &fakeService{err: serviceErr}

		res, body := request(t, "/transcript/dQw4w9WgXcQ")
		assert.Equal(t, http.StatusNotFound, res.StatusCode, serviceErr)
		assert.Equal(t, "Transcript not available", body.Error, serviceErr)
	}
}

func TestTranscriptRouteInternalError(t *testing.T) {
	tubescript.Fetcher = &fakeService{err: errors.New("disk full")}

	res, body := request(t, "/transcript/dQw4w9WgXcQ")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "Internal server error", body.Error)
}

func TestHealthRoute(t *testing.T) {
	app := tubescript.App()
	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestInfoRoute(t *testing.T) {
	app := tubescript.App()
	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tubescript")
}
