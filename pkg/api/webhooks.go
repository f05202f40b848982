package api

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/philippe-ths/ai-running-coach/pkg/ingest"
)

func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	challenge, ok := s.svc.Webhooks.Verify(
		query.Get("hub.mode"),
		query.Get("hub.verify_token"),
		query.Get("hub.challenge"))
	if !ok {
		s.respondError(w, http.StatusForbidden, "verification failed", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"hub.challenge": challenge})
}

// handleWebhookEvent always acknowledges with 2xx; the provider retries
// on anything else and duplicate deliveries are already collapsed by the
// queue's job-id dedup.
func (s *Server) handleWebhookEvent(w http.ResponseWriter, r *http.Request) {
	var ev ingest.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.logger.Warn("undecodable webhook body", "error", err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": ingest.ActionIgnored})
		return
	}

	action, err := s.svc.Webhooks.HandleEvent(r.Context(), &ev)
	if err != nil {
		s.logger.Error("webhook dispatch failed", "object_id", ev.ObjectID, "error", err)
		sentry.CaptureException(err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "error", "action": ingest.ActionIgnored})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": action})
}
