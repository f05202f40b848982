// Package worker registers the job handlers behind the shared queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/philippe-ths/ai-running-coach/pkg/bootstrap"
	"github.com/philippe-ths/ai-running-coach/pkg/ingest"
	"github.com/philippe-ths/ai-running-coach/pkg/queue"
)

// New builds a queue worker with every job handler registered.
func New(svc *bootstrap.Service) *queue.Worker {
	w := queue.NewWorker(svc.Queue, svc.Logger.With("component", "worker"))
	w.Handle(ingest.JobTypeSyncActivity, syncActivityHandler(svc))
	return w
}

// syncActivityHandler resolves the owning account from the webhook payload
// and runs the single-activity sync + analysis path.
func syncActivityHandler(svc *bootstrap.Service) queue.HandlerFunc {
	return func(ctx context.Context, job *queue.Job) error {
		var payload ingest.SyncJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}

		account, err := svc.Store.GetAccountByAthleteID(payload.OwnerID)
		if err != nil {
			return fmt.Errorf("no account for athlete %d: %w", payload.OwnerID, err)
		}

		return svc.Syncer.SyncActivity(ctx, account, payload.ObjectID)
	}
}
