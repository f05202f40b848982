package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippe-ths/ai-running-coach/pkg/bootstrap"
	"github.com/philippe-ths/ai-running-coach/pkg/contextpack"
	"github.com/philippe-ths/ai-running-coach/pkg/ingest"
	"github.com/philippe-ths/ai-running-coach/pkg/processing"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/strava"
	"github.com/philippe-ths/ai-running-coach/pkg/trends"
)

func floatPtr(f float64) *float64 { return &f }

// newTestServer wires the HTTP surface over an in-memory store. Paths that
// need the queue or the provider client are not exercised here.
func newTestServer(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	st := store.NewTestStore(t)
	logger := slog.Default()

	svc := &bootstrap.Service{
		Config: &bootstrap.Config{
			AppEnv:     "test",
			AppBaseURL: "http://localhost:5173",
		},
		Logger:      logger,
		Store:       st,
		OAuth:       strava.NewOAuth("id", "secret", "http://localhost/callback"),
		Engine:      processing.NewEngine(st, logger),
		Webhooks:    ingest.NewWebhookHandler(st, nil, "verify-secret", logger),
		Trends:      trends.NewAggregator(st),
		ContextPack: contextpack.NewBuilder(st),
	}
	return NewServer(svc).Router(), st
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestLoginRedirectsToProvider(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/auth/strava/login", "")
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "strava.com/oauth/authorize")
	assert.Contains(t, location, "client_id=id")
}

func TestCallbackRejectsBadRequests(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/auth/strava/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/auth/strava/callback", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookVerifyHandshake(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet,
		"/api/webhooks/strava?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=echo-me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "echo-me", body["hub.challenge"])

	rec = doRequest(t, h, http.MethodGet,
		"/api/webhooks/strava?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=echo-me", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookEventAlwaysAcknowledges(t *testing.T) {
	h, _ := newTestServer(t)

	// Undecodable bodies are acknowledged, never retried.
	rec := doRequest(t, h, http.MethodPost, "/api/webhooks/strava", "not json")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, ingest.ActionIgnored, body["action"])

	// A delete for an unknown activity is an ignore, not an error.
	rec = doRequest(t, h, http.MethodPost, "/api/webhooks/strava",
		`{"object_type": "activity", "aspect_type": "delete", "object_id": 999}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ingest.ActionIgnored, body["action"])
}

func TestListActivitiesEmpty(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/activities", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ActivityRead
	decodeBody(t, rec, &out)
	assert.Empty(t, out)
	assert.Equal(t, "[]\n", rec.Body.String(), "empty list, not null")
}

func TestActivityDetailNotFound(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/activities/12345", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/activities/not-a-number", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedRun(t *testing.T, st *store.Store) *store.Activity {
	t.Helper()
	user, err := st.CreateUser(nil)
	require.NoError(t, err)
	activity, _, err := st.UpsertActivity(&store.Activity{
		UserID:      user.ID,
		StravaID:    4001,
		StartDate:   time.Date(2026, 6, 10, 7, 0, 0, 0, time.UTC),
		Type:        "Run",
		Name:        "Morning Run",
		DistanceM:   8000,
		MovingTimeS: 2400,
		AverageHR:   floatPtr(140),
	})
	require.NoError(t, err)
	return activity
}

func TestActivityDetail(t *testing.T) {
	h, st := newTestServer(t)
	activity := seedRun(t, st)

	rec := doRequest(t, h, http.MethodGet, "/api/activities/"+itoa(activity.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail ActivityDetailRead
	decodeBody(t, rec, &detail)
	assert.Equal(t, activity.ID, detail.ID)
	assert.Equal(t, "Run", detail.EffectiveType)
	assert.NotNil(t, detail.Streams)
	assert.Nil(t, detail.CheckIn)
}

func TestSetIntentReprocesses(t *testing.T) {
	h, st := newTestServer(t)
	activity := seedRun(t, st)

	rec := doRequest(t, h, http.MethodPut, "/api/activities/"+itoa(activity.ID)+"/intent",
		`{"user_intent": "Tempo Run"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out ActivityRead
	decodeBody(t, rec, &out)
	assert.Equal(t, "Tempo Run", out.EffectiveType)
	require.NotNil(t, out.Metric)
	assert.Equal(t, "Tempo Run", out.Metric.ActivityClass, "intent wins over every heuristic")

	// Clearing the intent reverts to the provider type.
	rec = doRequest(t, h, http.MethodPut, "/api/activities/"+itoa(activity.ID)+"/intent",
		`{"user_intent": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &out)
	assert.Equal(t, "Run", out.EffectiveType)
}

func TestCheckInReprocesses(t *testing.T) {
	h, st := newTestServer(t)
	activity := seedRun(t, st)

	rec := doRequest(t, h, http.MethodPost, "/api/activities/"+itoa(activity.ID)+"/checkin",
		`{"rpe": 6, "pain_score": 8, "pain_location": "left knee"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out CheckInRead
	decodeBody(t, rec, &out)
	require.NotNil(t, out.RPE)
	assert.Equal(t, 6, *out.RPE)

	// Severe pain must land in the re-derived metric immediately.
	metric, err := st.GetDerivedMetric(activity.ID)
	require.NoError(t, err)
	assert.Contains(t, metric.Flags, processing.FlagPainSevere)
	assert.Equal(t, "red", metric.RiskLevel)
}

func TestActivityContextPack(t *testing.T) {
	h, st := newTestServer(t)
	activity := seedRun(t, st)

	rec := doRequest(t, h, http.MethodGet, "/api/activities/"+itoa(activity.ID)+"/context", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out ContextPackRead
	decodeBody(t, rec, &out)
	assert.Len(t, out.Hash, 64)
	for _, key := range []string{"activity", "metrics", "safety_rules", "available_signals"} {
		assert.Contains(t, out.Context, key)
	}
	assert.NotNil(t, out.Context["metrics"], "first read derives the metric row")

	// The same stored state hashes identically on a second read.
	rec = doRequest(t, h, http.MethodGet, "/api/activities/"+itoa(activity.ID)+"/context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var again ContextPackRead
	decodeBody(t, rec, &again)
	assert.Equal(t, out.Hash, again.Hash)

	// A check-in feeds the pack, so it must move the hash.
	rec = doRequest(t, h, http.MethodPost, "/api/activities/"+itoa(activity.ID)+"/checkin",
		`{"rpe": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, h, http.MethodGet, "/api/activities/"+itoa(activity.ID)+"/context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &again)
	assert.NotEqual(t, out.Hash, again.Hash)

	rec = doRequest(t, h, http.MethodGet, "/api/activities/99999/context", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileDefaultsAndUpdate(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var profile UserProfileRead
	decodeBody(t, rec, &profile)
	assert.Equal(t, "general", profile.GoalType)
	assert.Equal(t, 4, profile.DaysPerWeek)
	require.NotNil(t, profile.MaxHR)
	assert.Equal(t, 190, *profile.MaxHR)

	rec = doRequest(t, h, http.MethodPut, "/api/profile",
		`{"goal_type": "race", "max_hr": 184, "max_hr_source": "field_test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &profile)
	assert.Equal(t, "race", profile.GoalType)
	assert.Equal(t, 184, *profile.MaxHR)
	// Omitted fields keep their stored values.
	assert.Equal(t, 4, profile.DaysPerWeek)
}

func TestTrendsEndpoint(t *testing.T) {
	h, st := newTestServer(t)
	seedRun(t, st)

	rec := doRequest(t, h, http.MethodGet, "/api/trends?range=all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp trends.Response
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ALL", resp.Range)
	assert.Equal(t, 1, resp.ActivityCount)

	rec = doRequest(t, h, http.MethodGet, "/api/trends/types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var types []string
	decodeBody(t, rec, &types)
	assert.Equal(t, []string{"run"}, types)
}

func TestSyncWithoutLinkedAccount(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
