package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"wave-platform/internal/models"
)

// FileSource reads samples from a JSON file. Two layouts are accepted: an
// object with a "gridData" array and an optional RFC 3339 "refTime", or a
// bare array of samples.
type FileSource struct {
	path   string
	window float64

	mu      sync.Mutex
	refTime time.Time
}

// NewFileSource creates a source reading path. window is returned unchanged
// by Window; use 0 for an unbounded search.
func NewFileSource(path string, window float64) *FileSource {
	return &FileSource{path: path, window: window}
}

// Name returns "file".
func (s *FileSource) Name() string {
	return "file"
}

// Window returns the configured search window.
func (s *FileSource) Window(models.VelocityGridHeader) float64 {
	return s.window
}

type gridDocument struct {
	RefTime  string              `json:"refTime"`
	GridData []models.WaveSample `json:"gridData"`
}

// ValidTime returns the refTime of the last file read, if it had one.
func (s *FileSource) ValidTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refTime, !s.refTime.IsZero()
}

// Samples reads the file. Sample order is preserved.
func (s *FileSource) Samples(ctx context.Context, _ models.VelocityGridHeader) ([]models.WaveSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read sample file: %w", err)
	}

	samples, refTime, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if len(samples) == 0 {
		return nil, models.ErrNoSamples
	}

	s.mu.Lock()
	s.refTime = refTime
	s.mu.Unlock()
	return samples, nil
}

// parseDocument decodes either sample layout and validates latitudes.
func parseDocument(data []byte) ([]models.WaveSample, time.Time, error) {
	var refTime time.Time

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, refTime, nil
	}

	var samples []models.WaveSample
	if data[0] == '[' {
		if err := json.Unmarshal(data, &samples); err != nil {
			return nil, refTime, fmt.Errorf("decode sample array: %w", err)
		}
	} else {
		var doc gridDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, refTime, fmt.Errorf("decode sample document: %w", err)
		}
		if doc.RefTime != "" {
			t, err := time.Parse(time.RFC3339, doc.RefTime)
			if err != nil {
				return nil, refTime, &models.ValidationError{
					Field:   "refTime",
					Value:   doc.RefTime,
					Message: "refTime must be an RFC 3339 timestamp",
				}
			}
			refTime = t.UTC()
		}
		samples = doc.GridData
	}

	for i, s := range samples {
		if s.Latitude < -90 || s.Latitude > 90 {
			return nil, refTime, &models.ValidationError{
				Field:   "lat",
				Value:   strconv.FormatFloat(s.Latitude, 'g', -1, 64),
				Message: fmt.Sprintf("sample %d: latitude %v out of range [-90, 90]", i, s.Latitude),
			}
		}
	}
	return samples, refTime, nil
}
