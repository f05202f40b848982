// Package api is the HTTP surface: a thin chi adapter over the ingest,
// processing, trends and context-pack services.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/getsentry/sentry-go"

	"github.com/philippe-ths/ai-running-coach/pkg/bootstrap"
	"github.com/philippe-ths/ai-running-coach/pkg/observability"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
)

// Server holds the wired dependencies behind the HTTP surface.
type Server struct {
	svc    *bootstrap.Service
	logger *slog.Logger
}

// NewServer builds the HTTP surface over an initialized service.
func NewServer(svc *bootstrap.Service) *Server {
	return &Server{
		svc:    svc,
		logger: svc.Logger.With("component", "api"),
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(countRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/auth/strava/login", s.handleLogin)
		r.Get("/auth/strava/callback", s.handleCallback)

		r.Post("/sync", s.handleSync)

		r.Get("/activities", s.handleListActivities)
		r.Get("/activities/{id}", s.handleActivityDetail)
		r.Put("/activities/{id}/intent", s.handleSetIntent)
		r.Post("/activities/{id}/checkin", s.handleCheckIn)
		r.Post("/activities/{id}/process_deep", s.handleProcessDeep)
		r.Get("/activities/{id}/context", s.handleActivityContext)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handlePutProfile)

		r.Get("/trends", s.handleTrends)
		r.Get("/trends/types", s.handleTrendTypes)

		r.Get("/webhooks/strava", s.handleWebhookVerify)
		r.Post("/webhooks/strava", s.handleWebhookEvent)
	})

	r.Handle("/metrics", observability.Handler())
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string, err error) {
	if err != nil {
		s.logger.Error(detail, "error", err, "status", status)
		if status >= http.StatusInternalServerError {
			sentry.CaptureException(err)
		}
	}
	respondJSON(w, status, errorBody{Detail: detail})
}

// currentUser resolves the single local user, creating one if the
// database is empty so profile reads work before any account is linked.
func (s *Server) currentUser() (*store.User, error) {
	user, err := s.svc.Store.FirstUser()
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.svc.Store.CreateUser(nil)
}

// activityParam loads the path activity, writing the 404 itself when
// missing. A nil return means the response was already written.
func (s *Server) activityParam(w http.ResponseWriter, r *http.Request) *store.Activity {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "activity not found", nil)
		return nil
	}
	activity, err := s.svc.Store.GetActivity(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "activity not found", nil)
		} else {
			s.respondError(w, http.StatusInternalServerError, "loading activity", err)
		}
		return nil
	}
	return activity
}
