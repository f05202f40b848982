package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "resolving user", err)
		return
	}

	profile, err := s.svc.Store.EnsureProfile(user.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profileRead(profile))
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "resolving user", err)
		return
	}

	// Start from the stored row so omitted fields keep their values.
	profile, err := s.svc.Store.EnsureProfile(user.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "loading profile", err)
		return
	}

	var body UserProfileRead
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if body.GoalType != "" {
		profile.GoalType = body.GoalType
	}
	if body.ExperienceLevel != "" {
		profile.ExperienceLevel = body.ExperienceLevel
	}
	if body.DaysPerWeek > 0 {
		profile.DaysPerWeek = body.DaysPerWeek
	}
	if body.TargetDate != nil {
		profile.TargetDate = body.TargetDate
	}
	if body.CurrentWeeklyKM != nil {
		profile.CurrentWeeklyKM = body.CurrentWeeklyKM
	}
	if body.MaxHR != nil {
		profile.MaxHR = body.MaxHR
	}
	if body.MaxHRSource != nil {
		profile.MaxHRSource = body.MaxHRSource
	}
	if body.InjuryNotes != nil {
		profile.InjuryNotes = body.InjuryNotes
	}
	if len(body.UpcomingRaces) > 0 {
		profile.UpcomingRaces = body.UpcomingRaces
	}

	if err := s.svc.Store.UpsertProfile(profile); err != nil {
		s.respondError(w, http.StatusInternalServerError, "saving profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profileRead(profile))
}
