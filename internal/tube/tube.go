// Package tube retrieves caption transcripts for videos by scraping the watch
// page and downloading the best matching timedtext track.
package tube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://www.youtube.com"

// Segment is one timestamped line of transcript text. Times are in seconds.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

var (
	ErrNotOk           = errors.New("unexpected non 200 status code")
	ErrTooManyRequests = errors.New("too many requests")
	ErrNoCaptions      = errors.New("no caption tracks")
	ErrUnavailable     = errors.New("video unavailable")
	ErrEmpty           = errors.New("transcript has no segments")
)

// Rotated between requests so consecutive attempts don't present the exact
// same browser fingerprint.
var userAgents = [...]string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/121.0",
}

// Client fetches transcripts, optionally through an egress proxy.
// Timeouts are not configured here: every call takes a context and the
// deadline on that context bounds the whole request.
type Client struct {
	// BaseURL of the site, DefaultBaseURL when empty. Tests point this at a
	// local server.
	BaseURL string
	// Proxy for outbound requests, nil means a direct connection.
	Proxy *url.URL
}

type resCaptionsList struct {
	PlayerCaptionsTrackListRenderer struct {
		CaptionTracks []resTrack
	}
}

type resTrack struct {
	BaseUrl string
	Name    struct {
		SimpleText string
	}
	LanguageCode string
	Kind         string
}

type timedText struct {
	Entries []struct {
		Text  string  `xml:",chardata"`
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
	} `xml:"text"`
}

// Transcript scrapes the watch page of the given video, picks the best
// caption track and returns its segments in original order.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]Segment, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	content, err := c.get(ctx, fmt.Sprintf("%s/watch?v=%s", base, url.QueryEscape(videoID)))
	if err != nil {
		return nil, fmt.Errorf("requesting watch page: %w", err)
	}
	sContent := string(content)

	if strings.Contains(sContent, `action="https://consent.youtube.com/s"`) {
		return nil, fmt.Errorf("got consent form, this was never shown in testing")
	}

	split := strings.Split(sContent, `"captions":`)
	if len(split) <= 1 {
		if strings.Contains(sContent, `class="g-recaptcha"`) {
			return nil, fmt.Errorf("video %q got captcha: %w", videoID, ErrTooManyRequests)
		}

		if strings.Contains(sContent, `"playabilityStatus"`) &&
			strings.Contains(sContent, `"ERROR"`) {
			return nil, fmt.Errorf("video %q not playable, maybe unlisted?: %w", videoID, ErrUnavailable)
		}

		return nil, fmt.Errorf("no captions json: %w", ErrNoCaptions)
	}

	rawCaptions := strings.ReplaceAll(strings.Split(split[1], `,"videoDetails`)[0], "\n", "")
	captionsList := resCaptionsList{}
	if err := json.Unmarshal([]byte(rawCaptions), &captionsList); err != nil {
		return nil, fmt.Errorf("could not unmarshal caption results %q: %w", rawCaptions, err)
	}

	track := bestTrack(captionsList.PlayerCaptionsTrackListRenderer.CaptionTracks)
	if track == nil {
		return nil, ErrNoCaptions
	}

	body, err := c.get(ctx, track.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("captions request: %w", err)
	}

	transcript := timedText{}
	if err := xml.Unmarshal(body, &transcript); err != nil {
		return nil, fmt.Errorf("could not parse transcript xml %q: %w", body, err)
	}

	segments := make([]Segment, 0, len(transcript.Entries))
	for _, entry := range transcript.Entries {
		segments = append(segments, Segment{
			Text:     html.UnescapeString(entry.Text),
			Start:    entry.Start,
			Duration: entry.Dur,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("video %q: %w", videoID, ErrEmpty)
	}

	return segments, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	transport := &http.Transport{}
	if c.Proxy != nil {
		transport.Proxy = http.ProxyURL(c.Proxy)
	}
	client := &http.Client{Transport: transport}

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("got code %d: %w", res.StatusCode, ErrNotOk)
	}

	return body, nil
}

// Returns the "best" track, which is an english non automatic track.
// Then goes for english automatic,
// Then for non-english non-automatic,
// Then for any track at all.
func bestTrack(tracks []resTrack) *resTrack {
	for i, t := range tracks {
		if t.LanguageCode == "en" && t.Kind != "asr" {
			return &tracks[i]
		}
	}

	for i, t := range tracks {
		if t.LanguageCode == "en" {
			return &tracks[i]
		}
	}

	for i, t := range tracks {
		if t.Kind != "asr" {
			return &tracks[i]
		}
	}

	if len(tracks) > 0 {
		return &tracks[0]
	}

	return nil
}
