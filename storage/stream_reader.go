package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"garage-scraper/models"
)

// ErrSchemaMismatch means a stream file lacks one of the Header columns and
// was not written by StreamStore.
var ErrSchemaMismatch = errors.New("stream is missing required columns")

// ErrEmptyStream means a stream file has no header at all.
var ErrEmptyStream = errors.New("stream file is empty")

// StreamFile is a stream discovered on disk.
type StreamFile struct {
	ID   models.StreamID
	Path string
}

// ListStreams returns the stream files in dir, sorted by name. Files whose
// names do not follow <Weekday>_Garage_<n>.csv go into skipped.
func ListStreams(dir string) (streams []StreamFile, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("store: list %q: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		id, ok := models.ParseStreamFileName(e.Name())
		if !ok {
			skipped = append(skipped, e.Name())
			continue
		}
		streams = append(streams, StreamFile{ID: id, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(streams, func(i, j int) bool {
		return streams[i].Path < streams[j].Path
	})
	return streams, skipped, nil
}

// ReadStream loads every sample in the file at path. Rows whose Date, Hour or
// Minute cannot be parsed are skipped and counted; Spaces Left is kept verbatim.
func ReadStream(path string) ([]models.Sample, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("store: open %q: %w", path, err)
	}
	defer f.Close()

	return DecodeStream(f)
}

// DecodeStream is ReadStream over any reader.
func DecodeStream(r io.Reader) ([]models.Sample, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrEmptyStream
	}
	if err != nil {
		return nil, 0, fmt.Errorf("store: read header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		samples []models.Sample
		skipped int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("store: read row: %w", err)
		}

		sample, ok := decodeSample(record, cols)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, sample)
	}

	return samples, skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var missing []string
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return cols, nil
}

func decodeSample(record []string, cols map[string]int) (models.Sample, bool) {
	field := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	dateText, ok1 := field("Date")
	hourText, ok2 := field("Hour")
	minuteText, ok3 := field("Minute")
	permit, ok4 := field("Permit Type")
	spaces, ok5 := field("Spaces Left")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return models.Sample{}, false
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(dateText))
	if err != nil {
		return models.Sample{}, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(hourText))
	if err != nil || hour < 0 || hour > 23 {
		return models.Sample{}, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(minuteText))
	if err != nil || minute < 0 || minute > 59 {
		return models.Sample{}, false
	}

	return models.Sample{
		Date:       date,
		Hour:       hour,
		Minute:     minute,
		PermitType: permit,
		SpacesLeft: spaces,
	}, true
}
