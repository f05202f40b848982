package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/philippe-ths/ai-running-coach/pkg/processing"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "resolving user", err)
		return
	}

	skip := intQuery(r, "skip", 0)
	limit := intQuery(r, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	activities, err := s.svc.Store.ListActivities(user.ID, skip, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "listing activities", err)
		return
	}

	out := make([]*ActivityRead, 0, len(activities))
	for i := range activities {
		metric, err := s.svc.Store.GetDerivedMetric(activities[i].ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusInternalServerError, "loading metrics", err)
			return
		}
		out = append(out, activityRead(&activities[i], metric))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	activity := s.activityParam(w, r)
	if activity == nil {
		return
	}

	metric, err := s.svc.Store.GetDerivedMetric(activity.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, "loading metric", err)
		return
	}

	if s.svc.Config.RepairOnRead && metric != nil {
		if repaired := s.repairClassification(r, activity, metric); repaired != nil {
			metric = repaired
		}
	}

	streams, err := s.svc.Store.GetStreams(activity.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading streams", err)
		return
	}

	checkIn, err := s.svc.Store.GetCheckIn(activity.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, "loading check-in", err)
		return
	}

	detail := &ActivityDetailRead{
		ActivityRead: *activityRead(activity, metric),
		Streams:      streamsPayload(streams),
		Splits:       processing.ComputeSplits(streams),
		CheckIn:      checkInRead(checkIn),
	}
	respondJSON(w, http.StatusOK, detail)
}

// repairClassification re-runs processing when the stored class no longer
// matches what the classifier would produce today. Historical rows written
// before raw provider data was stored are the usual trigger.
func (s *Server) repairClassification(r *http.Request, activity *store.Activity, metric *store.DerivedMetric) *store.DerivedMetric {
	history, err := s.svc.Store.RecentActivitiesBefore(activity.UserID, activity.StartDate, 20)
	if err != nil {
		s.logger.Error("repair history load failed", "activity_id", activity.ID, "error", err)
		return nil
	}
	if processing.Classify(activity, history) == metric.ActivityClass {
		return nil
	}

	repaired, err := s.svc.Engine.Process(r.Context(), activity.ID, nil)
	if err != nil {
		s.logger.Error("lazy repair failed", "activity_id", activity.ID, "error", err)
		return nil
	}
	s.logger.Info("activity reclassified on read",
		"activity_id", activity.ID,
		"was", metric.ActivityClass,
		"now", repaired.ActivityClass)
	return repaired
}

func (s *Server) handleSetIntent(w http.ResponseWriter, r *http.Request) {
	activity := s.activityParam(w, r)
	if activity == nil {
		return
	}

	var body IntentWrite
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := s.svc.Store.SetUserIntent(activity.ID, body.UserIntent); err != nil {
		s.respondError(w, http.StatusInternalServerError, "updating intent", err)
		return
	}
	activity.UserIntent = body.UserIntent

	metric, err := s.svc.Engine.Process(r.Context(), activity.ID, nil)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "re-processing activity", err)
		return
	}
	respondJSON(w, http.StatusOK, activityRead(activity, metric))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	activity := s.activityParam(w, r)
	if activity == nil {
		return
	}

	var body CheckInWrite
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	checkIn := &store.CheckIn{
		ActivityID:   activity.ID,
		RPE:          body.RPE,
		PainScore:    body.PainScore,
		PainLocation: body.PainLocation,
		SleepQuality: body.SleepQuality,
		Notes:        body.Notes,
	}
	if err := s.svc.Store.UpsertCheckIn(checkIn); err != nil {
		s.respondError(w, http.StatusInternalServerError, "saving check-in", err)
		return
	}

	// The check-in feeds flags, risk and confidence, so re-derive.
	if _, err := s.svc.Engine.Process(r.Context(), activity.ID, nil); err != nil {
		s.respondError(w, http.StatusInternalServerError, "re-processing activity", err)
		return
	}
	respondJSON(w, http.StatusOK, checkInRead(checkIn))
}

// handleActivityContext serves the full coaching context pack for one
// activity. An activity that was never analyzed gets its metric row
// derived on the spot so the pack is never served half-empty.
func (s *Server) handleActivityContext(w http.ResponseWriter, r *http.Request) {
	activity := s.activityParam(w, r)
	if activity == nil {
		return
	}

	metric, err := s.svc.Store.GetDerivedMetric(activity.ID)
	if errors.Is(err, store.ErrNotFound) {
		metric, err = s.svc.Engine.Process(r.Context(), activity.ID, nil)
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "deriving metrics", err)
		return
	}

	checkIn, err := s.svc.Store.GetCheckIn(activity.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, "loading check-in", err)
		return
	}

	profile, err := s.svc.Store.GetProfile(activity.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, "loading profile", err)
		return
	}

	streams, err := s.svc.Store.GetStreams(activity.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading streams", err)
		return
	}

	trainingContext, err := s.svc.Engine.TrainingContextFor(activity)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "building training context", err)
		return
	}

	doc, hash, err := s.svc.ContextPack.Build(activity, metric, checkIn, profile, trainingContext, streams)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "building context pack", err)
		return
	}
	respondJSON(w, http.StatusOK, ContextPackRead{Hash: hash, Context: doc})
}

func (s *Server) handleProcessDeep(w http.ResponseWriter, r *http.Request) {
	activity := s.activityParam(w, r)
	if activity == nil {
		return
	}

	account, err := s.svc.Store.GetAccountByUserID(activity.UserID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no linked account", nil)
		return
	}

	if err := s.svc.Syncer.RefetchStreams(r.Context(), account, activity); err != nil {
		s.respondError(w, http.StatusBadRequest, "refetching streams failed", err)
		return
	}

	metric, err := s.svc.Engine.Process(r.Context(), activity.ID, nil)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "processing failed", err)
		return
	}
	respondJSON(w, http.StatusOK, metricRead(metric))
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
