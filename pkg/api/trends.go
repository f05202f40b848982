package api

import (
	"net/http"
	"strings"
	"time"
)

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "resolving user", err)
		return
	}

	query := r.URL.Query()
	var typeFilter []string
	for _, raw := range query["types"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				typeFilter = append(typeFilter, t)
			}
		}
	}

	resp, err := s.svc.Trends.Build(user.ID, query.Get("range"), typeFilter, time.Now())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "building trends", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrendTypes(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "resolving user", err)
		return
	}

	activityTypes, err := s.svc.Trends.DistinctTypes(user.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "listing types", err)
		return
	}
	respondJSON(w, http.StatusOK, activityTypes)
}
