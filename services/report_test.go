package services

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"garage-scraper/models"
	"garage-scraper/storage"
)

func TestReportRunSkipsBadStreams(t *testing.T) {
	dataDir := t.TempDir()
	chartDir := t.TempDir()

	store, err := storage.NewStreamStore(dataDir)
	require.NoError(t, err)
	good := models.StreamID{Weekday: "Monday", Garage: 1}
	require.NoError(t, store.Append(good, []models.Sample{
		sampleAt(9, "Gold Permit", "10"),
		sampleAt(9, "Gold Permit", "20"),
		sampleAt(10, "Orange Permit", "FULL"),
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Monday_Garage_3.csv"),
		[]byte("Date,Hour,Spaces\n2025-11-03,9,4\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Monday_Garage_4.csv"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "table_1.csv"), []byte("x"), 0644))

	renderer, err := NewRenderer(chartDir, newTestLogger())
	require.NoError(t, err)
	svc := NewReportService(dataDir, renderer, newTestLogger())

	entries, err := svc.Run()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byGarage := map[int]ReportEntry{}
	for _, e := range entries {
		byGarage[e.Stream.Garage] = e
	}

	ok := byGarage[1]
	require.NoError(t, ok.Err)
	require.FileExists(t, ok.Chart)
	mean, found := ok.Result.Mean(models.PermitGold, 9)
	require.True(t, found)
	require.Equal(t, 15.0, mean)
	require.Equal(t, []models.PermitType{models.PermitGold}, ok.Result.PermitTypes())

	require.ErrorIs(t, byGarage[3].Err, storage.ErrSchemaMismatch)
	require.Empty(t, byGarage[3].Chart)
	require.ErrorIs(t, byGarage[4].Err, storage.ErrEmptyStream)

	var out bytes.Buffer
	svc.Print(&out, entries)
	require.Contains(t, out.String(), "Monday_Garage_1")
	require.Contains(t, out.String(), "Gold Permit")
	require.Contains(t, out.String(), "15.0")
	require.Contains(t, out.String(), "09:00")
}

func TestSummarize(t *testing.T) {
	r := Aggregate([]models.Sample{
		sampleAt(8, "Purple", "30"),
		sampleAt(12, "Purple", "2"),
		sampleAt(12, "Purple", "4"),
		sampleAt(16, "Purple", "10"),
	})

	summaries := Summarize(r)
	require.Len(t, summaries, 1)
	s := summaries[0]
	require.Equal(t, models.PermitPurple, s.Permit)
	require.Equal(t, 4, s.Samples)
	require.Equal(t, 3, s.Hours)
	require.Equal(t, 12, s.BusiestHour)
	require.InDelta(t, 11.5, s.Mean, 1e-9)
}

func TestReportRunMissingDir(t *testing.T) {
	renderer, err := NewRenderer(t.TempDir(), newTestLogger())
	require.NoError(t, err)

	_, err = NewReportService(filepath.Join(t.TempDir(), "missing"), renderer, newTestLogger()).Run()
	require.Error(t, err)
}
