package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"garage-scraper/metrics"
	"garage-scraper/models"
	"garage-scraper/scraper/garages"
	"garage-scraper/storage"
	"garage-scraper/utils"
)

const twoGaragePage = `<html><body>
<table class="parking">
  <tr><td class="parking_gold">Gold</td><td class="rightalign">12</td></tr>
  <tr><td class="parking_orange">Orange</td><td class="rightalign">5</td></tr>
</table>
<table class="parking">
  <tr><td class="parking_purple">Purple</td><td class="rightalign">0</td></tr>
</table>
</body></html>`

var testPolicy = Policy{DayStart: 7, DayEnd: 18, DayInterval: 30 * time.Second, NightInterval: time.Hour}

type scriptedFetcher struct {
	responses []fetchResult
	calls     int
}

type fetchResult struct {
	body string
	err  error
}

func (f *scriptedFetcher) Fetch(context.Context) (string, error) {
	r := f.responses[f.calls%len(f.responses)]
	f.calls++
	return r.body, r.err
}

type recordingAppender struct {
	batches map[models.StreamID][]models.Sample
	failFor map[int]bool
}

func newRecordingAppender() *recordingAppender {
	return &recordingAppender{batches: map[models.StreamID][]models.Sample{}, failFor: map[int]bool{}}
}

func (a *recordingAppender) Append(id models.StreamID, samples []models.Sample) error {
	if a.failFor[id.Garage] {
		return errors.New("disk full")
	}
	a.batches[id] = append(a.batches[id], samples...)
	return nil
}

func (a *recordingAppender) Close() error { return nil }

// monday 2025-11-03 is a Monday
func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time { return time.Date(2025, 11, 3, hour, minute, 0, 0, time.UTC) }
}

func TestPolicyInterval(t *testing.T) {
	tests := []struct {
		hour int
		want time.Duration
	}{
		{0, time.Hour},
		{6, time.Hour},
		{7, 30 * time.Second},
		{12, 30 * time.Second},
		{17, 30 * time.Second},
		{18, time.Hour},
		{23, time.Hour},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, testPolicy.Interval(tt.hour), "hour %d", tt.hour)
	}
}

func TestRunOnceTwoGarageScenario(t *testing.T) {
	store, err := storage.NewStreamStore(t.TempDir())
	require.NoError(t, err)

	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, time.UTC, newTestLogger(),
		WithClock(fixedClock(14, 20)))

	require.NoError(t, p.RunOnce(context.Background()))

	garage1, _, err := storage.ReadStream(store.Path(models.StreamID{Weekday: "Monday", Garage: 1}))
	require.NoError(t, err)
	require.Len(t, garage1, 2)
	require.Equal(t, "Gold", garage1[0].PermitType)
	require.Equal(t, "12", garage1[0].SpacesLeft)
	require.Equal(t, "Orange", garage1[1].PermitType)
	require.Equal(t, "5", garage1[1].SpacesLeft)

	garage3, _, err := storage.ReadStream(store.Path(models.StreamID{Weekday: "Monday", Garage: 3}))
	require.NoError(t, err)
	require.Len(t, garage3, 1)
	require.Equal(t, "Purple", garage3[0].PermitType)
	require.Equal(t, "0", garage3[0].SpacesLeft)

	for _, s := range append(garage1, garage3...) {
		require.Equal(t, 14, s.Hour)
	}

	_, err = os.Stat(store.Path(models.StreamID{Weekday: "Monday", Garage: 2}))
	require.True(t, os.IsNotExist(err), "garage 2 does not exist on campus")
}

func TestRunOnceFetchFailureWritesNothing(t *testing.T) {
	store := newRecordingAppender()
	fetcher := &scriptedFetcher{responses: []fetchResult{{err: &garages.FetchError{URL: "x", StatusCode: 500}}}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, time.UTC, newTestLogger(),
		WithClock(fixedClock(9, 0)), WithMetrics(m))

	err := p.RunOnce(context.Background())
	var fetchErr *garages.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Empty(t, store.batches)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues(metrics.ResultFetchFailed)))
}

func TestRunContinuesAfterFetchFailure(t *testing.T) {
	store := newRecordingAppender()
	fetcher := &scriptedFetcher{responses: []fetchResult{
		{err: &garages.FetchError{URL: "x", StatusCode: 503}},
		{body: twoGaragePage},
	}}

	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 2 {
			return context.Canceled
		}
		return nil
	}

	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, time.UTC, newTestLogger(),
		WithClock(fixedClock(10, 0)), WithSleep(sleep))

	err := p.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, fetcher.calls, "the cycle after a failed fetch still runs")
	require.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, slept)
	require.Len(t, store.batches[models.StreamID{Weekday: "Monday", Garage: 1}], 2)
}

func TestRunReevaluatesIntervalEachCycle(t *testing.T) {
	current := time.Date(2025, 11, 3, 17, 59, 45, 0, time.UTC)
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		if len(slept) == 3 {
			return context.Canceled
		}
		return nil
	}

	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), newRecordingAppender(), testPolicy, time.UTC, newTestLogger(),
		WithClock(func() time.Time { return current }), WithSleep(sleep))

	require.ErrorIs(t, p.Run(context.Background()), context.Canceled)
	require.Equal(t, []time.Duration{30 * time.Second, time.Hour, time.Hour}, slept)
}

func TestRunOnceStoreFailureIsLocalToGarage(t *testing.T) {
	store := newRecordingAppender()
	store.failFor[1] = true
	mirror := newRecordingAppender()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, time.UTC, newTestLogger(),
		WithClock(fixedClock(14, 0)), WithMirror(mirror), WithMetrics(m))

	err := p.RunOnce(context.Background())
	require.Error(t, err)

	garage3 := models.StreamID{Weekday: "Monday", Garage: 3}
	require.Len(t, store.batches[garage3], 1)
	require.Len(t, mirror.batches[garage3], 1)
	require.NotContains(t, mirror.batches, models.StreamID{Weekday: "Monday", Garage: 1},
		"mirror only receives batches the primary store accepted")

	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SamplesWritten.WithLabelValues("3")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues(metrics.ResultStoreFailed)))
}

func TestRunOnceMirrorFailureIsNotFatal(t *testing.T) {
	mirror := newRecordingAppender()
	mirror.failFor[1] = true
	mirror.failFor[3] = true

	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), newRecordingAppender(), testPolicy, time.UTC, newTestLogger(),
		WithClock(fixedClock(14, 0)), WithMirror(mirror))

	require.NoError(t, p.RunOnce(context.Background()))
}

func TestRunOnceUsesConfiguredZone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tzdata not available")
	}

	store := newRecordingAppender()
	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	// 03:30 UTC on Tuesday is 21:30 Monday in Chicago
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, chicago, newTestLogger(),
		WithClock(func() time.Time { return time.Date(2025, 11, 4, 3, 30, 0, 0, time.UTC) }))

	require.NoError(t, p.RunOnce(context.Background()))
	samples := store.batches[models.StreamID{Weekday: "Monday", Garage: 1}]
	require.Len(t, samples, 2)
	require.Equal(t, 21, samples[0].Hour)
}

func TestRunOnceWarnsWhenTablesShareAGarage(t *testing.T) {
	page := `<html><body>
<table class="parking"><tr><td class="parking_gold">Gold</td><td class="rightalign">1</td></tr></table>
<table class="parking"><tr><td class="parking_gold">Gold</td><td class="rightalign">2</td></tr></table>
<table class="parking"><tr><td class="parking_gold">Gold</td><td class="rightalign">3</td></tr></table>
<table class="parking"><tr><td class="parking_gold">Gold</td><td class="rightalign">4</td></tr></table>
</body></html>`

	var logs bytes.Buffer
	store := newRecordingAppender()
	fetcher := &scriptedFetcher{responses: []fetchResult{{body: page}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), store, testPolicy, time.UTC,
		utils.NewWriterLogger(&logs, false), WithClock(fixedClock(14, 0)))

	require.NoError(t, p.RunOnce(context.Background()))

	garage4 := store.batches[models.StreamID{Weekday: "Monday", Garage: 4}]
	require.Len(t, garage4, 2)
	require.Equal(t, "3", garage4[0].SpacesLeft)
	require.Equal(t, "4", garage4[1].SpacesLeft)

	require.Contains(t, logs.String(), "tables 3 and 4 both map to Monday_Garage_4")
	require.Equal(t, 1, strings.Count(logs.String(), "both map to"))
}

func TestRunOnceDistinctGaragesDoNotWarn(t *testing.T) {
	var logs bytes.Buffer
	fetcher := &scriptedFetcher{responses: []fetchResult{{body: twoGaragePage}}}
	p := NewPoller(fetcher, NewNormalizer(newTestLogger(), true), newRecordingAppender(), testPolicy, time.UTC,
		utils.NewWriterLogger(&logs, false), WithClock(fixedClock(14, 0)))

	require.NoError(t, p.RunOnce(context.Background()))
	require.NotContains(t, logs.String(), "both map to")
}
