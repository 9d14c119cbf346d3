package httpapi

import (
	"context"
	"time"

	"artsync/internal/models"
	"artsync/internal/processor"
)

// SyncProcessor is the processing core the handlers drive.
type SyncProcessor interface {
	ProcessTask(ctx context.Context, id string) processor.Outcome
	ProcessBatch(ctx context.Context) ([]models.TaskResult, error)
	SyncDirect(ctx context.Context, req processor.DirectSyncRequest) (string, error)
	CleanupStorage(ctx context.Context, orderID, prefix string) (int, error)
}

// QueueStore is the slice of the store the API itself needs (enqueue + list).
type QueueStore interface {
	PutSyncTask(ctx context.Context, t models.SyncTask) error
	ListSyncTasks(ctx context.Context, limit int32) ([]models.SyncTask, error)
}

// Publisher dispatches fresh queue ids to the worker.
type Publisher interface {
	PublishQueueID(ctx context.Context, queueID string) error
}

// Presigner issues short-lived URLs for previewing queued source objects.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type App struct {
	Processor SyncProcessor
	Store     QueueStore
	Publisher Publisher // nil when no broker is configured; enqueue still persists
	Previews  Presigner // nil disables preview links in the queue listing
}
