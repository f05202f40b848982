package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippe-ths/ai-running-coach/pkg/processing"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/strava"
)

// fakeProvider serves the three provider endpoints a sync touches.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/athlete/activities":
			_, _ = w.Write([]byte(`[
				{"id": 501, "name": "Morning Run", "type": "Run", "sport_type": "Run",
				 "start_date": "2026-06-10T07:00:00Z", "distance": 8000, "moving_time": 2400,
				 "elapsed_time": 2500, "average_heartrate": 140},
				{"id": 502, "name": "Evening Walk", "type": "Walk", "sport_type": "Walk",
				 "start_date": "2026-06-11T18:00:00Z", "distance": 3000, "moving_time": 2000,
				 "elapsed_time": 2100}
			]`))
		case strings.HasSuffix(r.URL.Path, "/streams"):
			_, _ = w.Write([]byte(`{
				"time": {"data": [0,1,2,3,4]},
				"heartrate": {"data": [120,125,130,128,126]},
				"velocity_smooth": {"data": [3.0,3.1,3.0,2.9,3.0]}
			}`))
		case strings.HasPrefix(r.URL.Path, "/activities/"):
			_, _ = w.Write([]byte(`{"id": 501, "name": "Morning Run (renamed)", "type": "Run",
				"start_date": "2026-06-10T07:00:00Z", "distance": 8000, "moving_time": 2400}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestSyncer(t *testing.T, providerURL string) (*Syncer, *store.Store, *store.StravaAccount) {
	t.Helper()
	st := store.NewTestStore(t)
	account, err := st.LinkAccount(77, "fresh-token", "refresh", time.Now().Add(time.Hour).Unix(), "read")
	require.NoError(t, err)

	syncer := NewSyncer(st,
		strava.NewClientWithBaseURL(providerURL),
		strava.NewOAuth("id", "secret", "http://localhost/callback"),
		processing.NewEngine(st, slog.Default()),
		slog.Default())
	return syncer, st, account
}

func TestSyncAccount(t *testing.T) {
	server := fakeProvider(t)
	defer server.Close()
	syncer, st, account := newTestSyncer(t, server.URL)

	resp := syncer.SyncAccount(context.Background(), account)
	require.Empty(t, resp.Errors)
	assert.Equal(t, 2, resp.Fetched)
	assert.Equal(t, 2, resp.Upserted)
	assert.Equal(t, 2, resp.Analyzed)
	assert.Equal(t, 0, resp.Skipped)

	run, err := st.GetActivityByStravaID(501)
	require.NoError(t, err)
	assert.Equal(t, "Morning Run", run.Name)
	assert.Equal(t, int64(8000), run.DistanceM)
	require.NotNil(t, run.AverageHR)
	assert.Equal(t, 140.0, *run.AverageHR)
	assert.NotEmpty(t, run.RawData, "provider payload preserved")

	streams, err := st.GetStreams(run.ID)
	require.NoError(t, err)
	assert.Len(t, streams.Heartrate, 5)

	_, err = st.GetDerivedMetric(run.ID)
	require.NoError(t, err, "each upserted activity is analyzed")

	// A second manual sync re-upserts but skips analysis.
	resp = syncer.SyncAccount(context.Background(), account)
	require.Empty(t, resp.Errors)
	assert.Equal(t, 2, resp.Upserted)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 0, resp.Analyzed)
}

func TestSyncAccountReportsFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	syncer, _, account := newTestSyncer(t, server.URL)

	resp := syncer.SyncAccount(context.Background(), account)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "fetching activities")
	assert.Zero(t, resp.Fetched)
}

func TestSyncActivityAlwaysReanalyzes(t *testing.T) {
	server := fakeProvider(t)
	defer server.Close()
	syncer, st, account := newTestSyncer(t, server.URL)

	require.NoError(t, syncer.SyncActivity(context.Background(), account, 501))

	run, err := st.GetActivityByStravaID(501)
	require.NoError(t, err)
	assert.Equal(t, "Morning Run (renamed)", run.Name, "detail fetch, not summary")

	first, err := st.GetDerivedMetric(run.ID)
	require.NoError(t, err)

	// Webhook-driven re-syncs overwrite the previous analysis.
	require.NoError(t, syncer.SyncActivity(context.Background(), account, 501))
	second, err := st.GetDerivedMetric(run.ID)
	require.NoError(t, err)
	assert.False(t, second.ComputedAt.Before(first.ComputedAt))
}

func TestActivityFromProviderFallsBackToSportType(t *testing.T) {
	p := &strava.Activity{ID: 1, SportType: "TrailRun", StartDate: time.Now()}
	a := activityFromProvider("u1", p)
	assert.Equal(t, "TrailRun", a.Type)
	assert.Equal(t, int64(1), a.StravaID)
}
