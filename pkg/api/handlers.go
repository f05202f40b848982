package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/philippe-ths/ai-running-coach/pkg/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := "ok"
	if err := s.svc.Store.Ping(); err != nil {
		database = "unreachable"
		s.logger.Error("health check failed", "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": database,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.svc.OAuth.AuthorizeURL(uuid.NewString()), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("error") != "" {
		s.respondError(w, http.StatusBadRequest, "authorization denied", nil)
		return
	}
	code := query.Get("code")
	if code == "" {
		s.respondError(w, http.StatusBadRequest, "missing authorization code", nil)
		return
	}

	bundle, err := s.svc.OAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "token exchange failed", err)
		return
	}

	scope := query.Get("scope")
	account, err := s.svc.Store.LinkAccount(bundle.AthleteID,
		bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt, scope)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "linking account", err)
		return
	}

	s.logger.Info("account linked", "athlete_id", account.AthleteID)
	http.Redirect(w, r, s.svc.Config.AppBaseURL+"?connected=true", http.StatusFound)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	account, err := s.resolveAccount(r.URL.Query().Get("strava_athlete_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNoAccount) {
			s.respondError(w, http.StatusNotFound, "no linked account", nil)
		} else {
			s.respondError(w, http.StatusInternalServerError, "resolving account", err)
		}
		return
	}

	resp := s.svc.Syncer.SyncAccount(r.Context(), account)
	respondJSON(w, http.StatusOK, resp)
}

// resolveAccount looks up the linked account by athlete id, or by the
// single local user when the caller names none.
func (s *Server) resolveAccount(athleteParam string) (*store.StravaAccount, error) {
	if athleteParam != "" {
		athleteID, err := strconv.ParseInt(athleteParam, 10, 64)
		if err != nil {
			return nil, store.ErrNoAccount
		}
		return s.svc.Store.GetAccountByAthleteID(athleteID)
	}
	user, err := s.svc.Store.FirstUser()
	if err != nil {
		return nil, err
	}
	return s.svc.Store.GetAccountByUserID(user.ID)
}
