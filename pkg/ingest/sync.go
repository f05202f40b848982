// Package ingest pulls activities from the provider into the store:
// manual 30-day syncs, single-activity webhook syncs, and webhook event
// dispatch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/observability"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/strava"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// syncWindow is how far back a manual sync reaches.
const syncWindow = 30 * 24 * time.Hour

// syncPageSize caps one manual sync at a single provider page.
const syncPageSize = 50

// streamChannels is every channel fetched and stored per activity.
var streamChannels = types.KnownChannels

// SyncResponse reports the outcome of a manual sync. Per-activity
// failures land in Errors and never abort the batch; a global failure
// sets Errors[0] and short-circuits.
type SyncResponse struct {
	Fetched  int      `json:"fetched"`
	Upserted int      `json:"upserted"`
	Skipped  int      `json:"skipped"`
	Analyzed int      `json:"analyzed"`
	Errors   []string `json:"errors"`
}

// Processor runs the processing pipeline for one activity.
type Processor interface {
	Process(ctx context.Context, activityID int64, plan *types.PlannedWorkout) (*store.DerivedMetric, error)
}

// Syncer ingests provider activities for linked accounts.
type Syncer struct {
	store  *store.Store
	client *strava.Client
	oauth  *strava.OAuth
	engine Processor
	logger *slog.Logger
}

// NewSyncer wires an ingest syncer.
func NewSyncer(st *store.Store, client *strava.Client, oauth *strava.OAuth, engine Processor, logger *slog.Logger) *Syncer {
	return &Syncer{
		store:  st,
		client: client,
		oauth:  oauth,
		engine: engine,
		logger: logger.With("component", "ingest"),
	}
}

// SyncAccount performs a manual 30-day sync for one linked account,
// committing per activity so partial progress is durable.
func (s *Syncer) SyncAccount(ctx context.Context, account *store.StravaAccount) *SyncResponse {
	resp := &SyncResponse{Errors: []string{}}

	token, err := s.oauth.EnsureValidToken(ctx, s.accountTokens(account))
	if err != nil {
		resp.Errors = append(resp.Errors, fmt.Sprintf("token refresh failed: %v", err))
		return resp
	}

	after := time.Now().Add(-syncWindow).Unix()
	summaries, err := s.client.FetchActivitiesSince(ctx, token, after, syncPageSize)
	if err != nil {
		resp.Errors = append(resp.Errors, fmt.Sprintf("fetching activities: %v", err))
		return resp
	}
	resp.Fetched = len(summaries)

	for i := range summaries {
		summary := &summaries[i]
		if err := s.ingestOne(ctx, account, token, summary, resp); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("activity %d: %v", summary.ID, err))
		}
	}

	s.logger.Info("manual sync finished",
		"athlete_id", account.AthleteID,
		"fetched", resp.Fetched,
		"upserted", resp.Upserted,
		"skipped", resp.Skipped,
		"analyzed", resp.Analyzed,
		"errors", len(resp.Errors))
	return resp
}

func (s *Syncer) ingestOne(ctx context.Context, account *store.StravaAccount, token string, summary *strava.Activity, resp *SyncResponse) error {
	activity, _, err := s.store.UpsertActivity(activityFromProvider(account.UserID, summary))
	if err != nil {
		return err
	}
	resp.Upserted++
	observability.ActivitiesSyncedTotal.Inc()

	if err := s.fetchAndStoreStreams(ctx, token, activity); err != nil {
		return err
	}

	if _, err := s.store.GetDerivedMetric(activity.ID); err == nil {
		resp.Skipped++
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := s.engine.Process(ctx, activity.ID, nil); err != nil {
		return err
	}
	resp.Analyzed++
	return nil
}

// SyncActivity ingests and re-processes one activity. Used by
// webhook-driven jobs; unlike manual sync it always re-analyzes.
func (s *Syncer) SyncActivity(ctx context.Context, account *store.StravaAccount, stravaActivityID int64) error {
	token, err := s.oauth.EnsureValidToken(ctx, s.accountTokens(account))
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}

	detail, err := s.client.FetchActivity(ctx, token, stravaActivityID)
	if err != nil {
		return fmt.Errorf("fetching activity %d: %w", stravaActivityID, err)
	}

	activity, _, err := s.store.UpsertActivity(activityFromProvider(account.UserID, detail))
	if err != nil {
		return err
	}
	observability.ActivitiesSyncedTotal.Inc()

	if err := s.fetchAndStoreStreams(ctx, token, activity); err != nil {
		return err
	}

	_, err = s.engine.Process(ctx, activity.ID, nil)
	return err
}

// RefetchStreams replaces the stored streams for an already-synced
// activity. Used by the deep re-process endpoint.
func (s *Syncer) RefetchStreams(ctx context.Context, account *store.StravaAccount, activity *store.Activity) error {
	token, err := s.oauth.EnsureValidToken(ctx, s.accountTokens(account))
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}
	return s.fetchAndStoreStreams(ctx, token, activity)
}

func (s *Syncer) fetchAndStoreStreams(ctx context.Context, token string, activity *store.Activity) error {
	channels, err := s.client.FetchStreams(ctx, token, activity.StravaID, streamChannels)
	if err != nil {
		return fmt.Errorf("fetching streams: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}
	if err := s.store.ReplaceStreams(activity.ID, channels); err != nil {
		return fmt.Errorf("storing streams: %w", err)
	}
	return nil
}

func activityFromProvider(userID string, p *strava.Activity) *store.Activity {
	activityType := p.Type
	if activityType == "" {
		activityType = p.SportType
	}
	return &store.Activity{
		UserID:         userID,
		StravaID:       p.ID,
		StartDate:      p.StartDate,
		Type:           activityType,
		Name:           p.Name,
		DistanceM:      int64(p.Distance),
		MovingTimeS:    p.MovingTime,
		ElapsedTimeS:   p.ElapsedTime,
		ElevationGainM: p.TotalElevationGain,
		AverageHR:      p.AverageHeartrate,
		MaxHR:          p.MaxHeartrate,
		AverageCadence: p.AverageCadence,
		AverageSpeed:   p.AverageSpeed,
		SufferScore:    p.SufferScore,
		RawData:        p.Raw,
	}
}

// accountTokens adapts a stored account to the token refresh contract.
type accountTokens struct {
	store   *store.Store
	account *store.StravaAccount
}

func (s *Syncer) accountTokens(account *store.StravaAccount) *accountTokens {
	return &accountTokens{store: s.store, account: account}
}

// Credentials re-reads the stored row so a caller that waited out another
// worker's refresh observes the replacement triple, not its stale copy.
func (a *accountTokens) Credentials() (string, string, int64) {
	if current, err := a.store.GetAccountByAthleteID(a.account.AthleteID); err == nil {
		a.account = current
	}
	return a.account.AccessToken, a.account.RefreshToken, a.account.ExpiresAt
}

func (a *accountTokens) StoreCredentials(accessToken, refreshToken string, expiresAt int64) error {
	if err := a.store.UpdateAccountTokens(a.account.ID, accessToken, refreshToken, expiresAt); err != nil {
		return err
	}
	a.account.AccessToken = accessToken
	a.account.RefreshToken = refreshToken
	a.account.ExpiresAt = expiresAt
	return nil
}
