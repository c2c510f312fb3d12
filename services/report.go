package services

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"garage-scraper/models"
	"garage-scraper/storage"
	"garage-scraper/utils"
)

// ReportEntry is the outcome of aggregating and rendering one stream.
type ReportEntry struct {
	Stream  models.StreamID
	Chart   string
	Result  *models.AggregationResult
	Skipped int
	Err     error
}

// ReportService runs the read path over every stream in a data directory.
type ReportService struct {
	dataDir  string
	renderer *Renderer
	logger   *utils.Logger
}

func NewReportService(dataDir string, renderer *Renderer, logger *utils.Logger) *ReportService {
	return &ReportService{dataDir: dataDir, renderer: renderer, logger: logger}
}

// Run aggregates and renders each stream in turn. A stream that cannot be read
// or rendered is reported in its entry and does not stop the others.
func (s *ReportService) Run() ([]ReportEntry, error) {
	streams, skipped, err := storage.ListStreams(s.dataDir)
	if err != nil {
		return nil, err
	}
	for _, name := range skipped {
		s.logger.Warn("[report] Skipping file %q due to incorrect naming format", name)
	}
	if len(streams) == 0 {
		s.logger.Warn("[report] No stream files found in %s", s.dataDir)
	}

	entries := make([]ReportEntry, 0, len(streams))
	for _, sf := range streams {
		entries = append(entries, s.runStream(sf))
	}
	return entries, nil
}

func (s *ReportService) runStream(sf storage.StreamFile) ReportEntry {
	entry := ReportEntry{Stream: sf.ID}

	samples, skipped, err := storage.ReadStream(sf.Path)
	entry.Skipped = skipped
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrSchemaMismatch):
			s.logger.Error("[report] Error in data for %s Garage %d: %v", sf.ID.Weekday, sf.ID.Garage, err)
		case errors.Is(err, storage.ErrEmptyStream):
			s.logger.Error("[report] The file %q is empty. Skipping.", sf.Path)
		default:
			s.logger.Error("[report] Reading %q: %v", sf.Path, err)
		}
		entry.Err = err
		return entry
	}

	s.logger.Info("[report] Processing data for %s Garage %d...", sf.ID.Weekday, sf.ID.Garage)
	entry.Result = Aggregate(samples)
	s.logger.Debug("[aggregator] %s: used %d samples, dropped %d, skipped %d rows",
		sf.ID, entry.Result.Used, entry.Result.Dropped, skipped)

	chart, err := s.renderer.Render(entry.Result, sf.ID)
	if err != nil {
		s.logger.Error("[report] %v", err)
		entry.Err = err
		return entry
	}
	entry.Chart = chart
	return entry
}

// PermitSummary condenses one permit type's hourly means.
type PermitSummary struct {
	Permit      models.PermitType
	Samples     int
	Hours       int
	Mean        float64
	BusiestHour int
}

// Summarize computes per-permit totals for r. The busiest hour is the one with
// the fewest spaces left on average.
func Summarize(r *models.AggregationResult) []PermitSummary {
	var out []PermitSummary
	for _, permit := range r.PermitTypes() {
		sum := PermitSummary{Permit: permit, BusiestHour: -1}
		lowest := math.Inf(1)
		var total float64

		for _, h := range r.Hours(permit) {
			hm := r.Permits[permit][h]
			sum.Samples += hm.Count
			sum.Hours++
			total += hm.Mean * float64(hm.Count)
			if hm.Mean < lowest {
				lowest = hm.Mean
				sum.BusiestHour = h
			}
		}
		if sum.Samples > 0 {
			sum.Mean = total / float64(sum.Samples)
		}
		out = append(out, sum)
	}
	return out
}

// Print writes a summary table of entries to w.
func (s *ReportService) Print(w io.Writer, entries []ReportEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Parking availability by stream")
	t.AppendHeader(table.Row{"Stream", "Permit", "Samples", "Hours", "Avg Spaces", "Busiest Hour", "Chart"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Samples", Align: text.AlignRight},
		{Name: "Hours", Align: text.AlignRight},
		{Name: "Avg Spaces", Align: text.AlignRight},
		{Name: "Busiest Hour", Align: text.AlignRight},
	})

	for _, e := range entries {
		if e.Err != nil {
			t.AppendRow(table.Row{e.Stream.String(), "-", "-", "-", "-", "-", "error: " + e.Err.Error()})
			continue
		}
		summaries := Summarize(e.Result)
		if len(summaries) == 0 {
			t.AppendRow(table.Row{e.Stream.String(), "no valid samples", 0, 0, "-", "-", e.Chart})
			continue
		}
		for _, ps := range summaries {
			t.AppendRow(table.Row{
				e.Stream.String(),
				string(ps.Permit),
				ps.Samples,
				ps.Hours,
				fmt.Sprintf("%.1f", ps.Mean),
				fmt.Sprintf("%02d:00", ps.BusiestHour),
				e.Chart,
			})
		}
		t.AppendSeparator()
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
