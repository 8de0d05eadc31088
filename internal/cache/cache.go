// Package cache stores fetched transcripts on disk, one JSON file per video
// id. Files are an indented array of segments; entries written by older
// versions wrap that array in an object and are still readable.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/laytan/tubescript/internal/tube"
)

// ErrCorrupt marks a cache entry that exists but can't be parsed. Callers
// decide whether to refetch or surface it.
var ErrCorrupt = errors.New("unreadable cache entry")

type Store struct {
	Dir string
}

// Path is the on-disk location for the given id. Pure, no side effects.
func (s *Store) Path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

// FlattenedPath is the on-disk location of the plain text rendition.
func (s *Store) FlattenedPath(id string) string {
	return filepath.Join(s.Dir, id+"_flattened.txt")
}

// Load returns the stored transcript for id, or nil when there is none.
func (s *Store) Load(id string) ([]tube.Segment, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry for %q: %w", id, err)
	}

	var segments []tube.Segment
	if err := json.Unmarshal(data, &segments); err == nil {
		return segments, nil
	}

	var legacy struct {
		TranscriptData []tube.Segment `json:"transcript_data"`
	}
	if err := json.Unmarshal(data, &legacy); err == nil && legacy.TranscriptData != nil {
		return legacy.TranscriptData, nil
	}

	return nil, fmt.Errorf("cache entry for %q: %w", id, ErrCorrupt)
}

// Save writes the transcript for id, replacing any existing entry and
// creating the cache directory when absent.
func (s *Store) Save(id string, segments []tube.Segment) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %q: %w", s.Dir, err)
	}

	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling transcript for %q: %w", id, err)
	}

	if err := os.WriteFile(s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry for %q: %w", id, err)
	}

	return nil
}

// SaveFlattened writes the plain text rendition of the transcript next to the
// JSON entry.
func (s *Store) SaveFlattened(id string, segments []tube.Segment) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %q: %w", s.Dir, err)
	}

	if err := os.WriteFile(s.FlattenedPath(id), []byte(Flatten(segments)), 0o644); err != nil {
		return fmt.Errorf("writing flattened transcript for %q: %w", id, err)
	}

	return nil
}

var dialoguePrefix = regexp.MustCompile(`^\s*>>\s*`)

// Flatten renders the segments as plain text, one segment per line, dropping
// empty segments and the ">>" dialogue markers.
func Flatten(segments []tube.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, segment := range segments {
		if dialoguePrefix.MatchString(segment.Text) {
			lines = append(lines, dialoguePrefix.ReplaceAllString(segment.Text, ""))
		} else if strings.TrimSpace(segment.Text) != "" {
			lines = append(lines, segment.Text)
		}
	}

	return strings.Join(lines, "\n")
}
