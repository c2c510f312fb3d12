package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"garage-scraper/models"
)

// Header is the column row written once at the top of every stream file.
var Header = []string{"Date", "Hour", "Minute", "Permit Type", "Spaces Left"}

// StreamStore appends samples to one CSV file per (weekday, garage) stream.
// It is not safe for concurrent use.
//
// A single process is assumed to be the only writer to DataDir. Two stores
// appending to the same file concurrently may interleave partial records.
type StreamStore struct {
	dir string

	// streams this store has already written to; their headers are on disk
	initialized map[models.StreamID]bool
}

// NewStreamStore creates dir if needed.
func NewStreamStore(dir string) (*StreamStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &StreamStore{dir: dir, initialized: make(map[models.StreamID]bool)}, nil
}

// Path returns the file backing id.
func (s *StreamStore) Path(id models.StreamID) string {
	return filepath.Join(s.dir, id.FileName())
}

// Append writes samples to the end of the stream, creating the file and its
// header on first use. A stream already on disk from an earlier run is never
// given a second header.
func (s *StreamStore) Append(id models.StreamID, samples []models.Sample) error {
	path := s.Path(id)

	needHeader, err := s.needsHeader(id, path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("store: open %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("store: write header: %w", err)
		}
	}

	for _, sample := range samples {
		if err := w.Write(encodeSample(sample)); err != nil {
			return fmt.Errorf("store: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("store: flush %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close %q: %w", path, err)
	}

	s.initialized[id] = true
	return nil
}

// needsHeader consults the registry first and falls back to the file on disk
// for streams this process has not touched yet.
func (s *StreamStore) needsHeader(id models.StreamID, path string) (bool, error) {
	if s.initialized[id] {
		return false, nil
	}

	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: stat %q: %w", path, err)
	}
	return stat.Size() == 0, nil
}

// Close is a no-op; files are opened per append.
func (s *StreamStore) Close() error { return nil }

func encodeSample(sample models.Sample) []string {
	return []string{
		sample.Date.Format(models.DateLayout),
		strconv.Itoa(sample.Hour),
		strconv.Itoa(sample.Minute),
		sample.PermitType,
		sample.SpacesLeft,
	}
}
