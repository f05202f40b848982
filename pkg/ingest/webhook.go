package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/philippe-ths/ai-running-coach/pkg/queue"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
)

// Webhook event actions reported back to the provider.
const (
	ActionIgnored   = "ignored"
	ActionDeleted   = "deleted"
	ActionEnqueued  = "enqueued"
	ActionDuplicate = "duplicate"
)

// JobTypeSyncActivity is the queue job type for webhook-driven syncs.
const JobTypeSyncActivity = "sync_activity"

// WebhookEvent is the provider's push event body.
type WebhookEvent struct {
	ObjectType     string         `json:"object_type"`
	ObjectID       int64          `json:"object_id"`
	AspectType     string         `json:"aspect_type"`
	OwnerID        int64          `json:"owner_id"`
	SubscriptionID int64          `json:"subscription_id"`
	Updates        map[string]any `json:"updates"`
	EventTime      int64          `json:"event_time"`
}

// SyncJobPayload is the payload of a sync_activity job.
type SyncJobPayload struct {
	ObjectID  int64 `json:"object_id"`
	OwnerID   int64 `json:"owner_id"`
	EventTime int64 `json:"event_time"`
}

// WebhookHandler verifies the subscription handshake and dispatches push
// events. Heavy work always goes to the queue; the handler itself returns
// within the provider's retry budget.
type WebhookHandler struct {
	store       *store.Store
	queue       *queue.Queue
	verifyToken string
	logger      *slog.Logger
}

// NewWebhookHandler wires the webhook dispatcher.
func NewWebhookHandler(st *store.Store, q *queue.Queue, verifyToken string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:       st,
		queue:       q,
		verifyToken: verifyToken,
		logger:      logger.With("component", "webhook"),
	}
}

// Verify answers the provider's subscription handshake: echo the
// challenge for a matching subscribe request, refuse anything else.
func (h *WebhookHandler) Verify(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || token != h.verifyToken {
		return "", false
	}
	return challenge, true
}

// HandleEvent dispatches one push event and reports the taken action.
// It never propagates a provider-visible failure for unknown shapes;
// those become ActionIgnored.
func (h *WebhookHandler) HandleEvent(ctx context.Context, ev *WebhookEvent) (string, error) {
	if ev.ObjectType != "activity" {
		return ActionIgnored, nil
	}

	switch ev.AspectType {
	case "delete":
		if err := h.store.SoftDeleteByStravaID(ev.ObjectID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ActionIgnored, nil
			}
			return "", err
		}
		h.logger.Info("activity soft-deleted", "object_id", ev.ObjectID)
		return ActionDeleted, nil

	case "create", "update":
		payload, err := json.Marshal(SyncJobPayload{
			ObjectID:  ev.ObjectID,
			OwnerID:   ev.OwnerID,
			EventTime: ev.EventTime,
		})
		if err != nil {
			return "", err
		}

		enqueued, err := h.queue.Enqueue(ctx, &queue.Job{
			ID:      queue.SyncJobID(ev.ObjectID, ev.EventTime),
			Type:    JobTypeSyncActivity,
			Payload: payload,
		}, queue.DefaultResultTTL)
		if err != nil {
			return "", err
		}
		if !enqueued {
			return ActionDuplicate, nil
		}
		h.logger.Info("sync job enqueued", "object_id", ev.ObjectID, "aspect", ev.AspectType)
		return ActionEnqueued, nil

	default:
		return ActionIgnored, nil
	}
}
