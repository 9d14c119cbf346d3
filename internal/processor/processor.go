// Package processor runs the hot->cold sync state machine. Every trigger
// path (immediate HTTP call, queue worker, periodic batch, direct sync) goes
// through the same core.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"artsync/internal/coldstore"
	"artsync/internal/models"
)

// ErrSourceMissing means the hot-storage object is gone; retrying will not
// bring it back.
var ErrSourceMissing = errors.New("source object missing in hot storage")

// mockupFolderMarker: destination paths containing this segment feed the
// order's primary image slot even when target_field says nothing.
const mockupFolderMarker = "/mockups/"

const (
	DefaultMaxRetry  = 5
	DefaultBatchSize = 10
	DefaultPause     = 2 * time.Second
)

type QueueStore interface {
	GetSyncTask(ctx context.Context, id string) (*models.SyncTask, error)
	ClaimSyncTask(ctx context.Context, id string, nowMs int64) (bool, error)
	MarkSyncTaskFailed(ctx context.Context, id string, retryCount int, errLog string, nowMs int64) error
	DeleteSyncTask(ctx context.Context, id string) error
	FetchProcessableTasks(ctx context.Context, limit int, maxRetry int) ([]models.SyncTask, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderMirror(ctx context.Context, orderID string, url string, setURL bool) error
}

type HotStorage interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type ColdStorage interface {
	Transfer(ctx context.Context, src io.Reader, destPath string, creds models.DropboxCredentials) (coldstore.UploadResult, error)
	GetOrCreateSharedLink(ctx context.Context, path string, creds models.DropboxCredentials) (string, error)
}

type CredentialSource interface {
	Resolve(ctx context.Context) (models.DropboxCredentials, error)
}

// Notifier is told when a task burns its last retry. Optional.
type Notifier interface {
	AlertAbandoned(ctx context.Context, task models.SyncTask, lastErr string) error
}

type Processor struct {
	Store QueueStore
	Hot   HotStorage
	Cold  ColdStorage
	Creds CredentialSource

	Notify Notifier // may be nil

	MaxRetry  int
	BatchSize int
	Pause     time.Duration
}

func New(store QueueStore, hot HotStorage, cold ColdStorage, creds CredentialSource) *Processor {
	return &Processor{
		Store:     store,
		Hot:       hot,
		Cold:      cold,
		Creds:     creds,
		MaxRetry:  DefaultMaxRetry,
		BatchSize: DefaultBatchSize,
		Pause:     DefaultPause,
	}
}

// Outcome statuses.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeNotFound = "not_found"
)

// Outcome is one processTask result. Err is non-nil only for OutcomeError and
// is already recorded on the queue row by the time the caller sees it.
type Outcome struct {
	TaskID     string
	Status     string
	DropboxURL string
	Err        error
}

// ProcessTask runs one queue entry through the state machine:
// claim -> verify source -> resolve creds -> transfer -> shared link ->
// order update -> delete row. Failures are written back to the row and never
// propagate as a process crash.
func (p *Processor) ProcessTask(ctx context.Context, id string) Outcome {
	task, err := p.Store.GetSyncTask(ctx, id)
	if err != nil {
		return Outcome{TaskID: id, Status: OutcomeError, Err: fmt.Errorf("load task: %w", err)}
	}
	if task == nil {
		// Row already deleted by a prior successful run, or a stale id.
		return Outcome{TaskID: id, Status: OutcomeNotFound}
	}
	if task.Status == models.StatusSuccess {
		return Outcome{TaskID: id, Status: OutcomeSkipped}
	}

	claimed, err := p.Store.ClaimSyncTask(ctx, id, time.Now().UnixMilli())
	if err != nil {
		return Outcome{TaskID: id, Status: OutcomeError, Err: fmt.Errorf("claim task: %w", err)}
	}
	if !claimed {
		// Another invocation owns the row right now.
		return Outcome{TaskID: id, Status: OutcomeSkipped}
	}

	url, err := p.runSync(ctx, syncRequest{
		orderID:     task.OrderID,
		hotPath:     task.HotStoragePath,
		coldPath:    task.ColdStoragePath,
		targetField: task.TargetField,
	})
	if err != nil {
		p.recordFailure(ctx, task, err)
		return Outcome{TaskID: id, Status: OutcomeError, Err: err}
	}

	// Success rows are deleted, not retained; delete only after the order
	// record mutation landed. A double delete is harmless.
	if err := p.Store.DeleteSyncTask(ctx, id); err != nil {
		p.recordFailure(ctx, task, fmt.Errorf("delete queue row: %w", err))
		return Outcome{TaskID: id, Status: OutcomeError, Err: err}
	}

	return Outcome{TaskID: id, Status: OutcomeSuccess, DropboxURL: url}
}

type syncRequest struct {
	orderID     string
	hotPath     string
	coldPath    string
	targetField string
}

// runSync performs the transfer + link + order update sequence shared by the
// queued and direct paths. Side effects are strictly ordered: the order
// record is touched only after the remote transfer completed.
func (p *Processor) runSync(ctx context.Context, req syncRequest) (string, error) {
	exists, err := p.Hot.Exists(ctx, req.hotPath)
	if err != nil {
		return "", fmt.Errorf("check source: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, req.hotPath)
	}

	credentials, err := p.Creds.Resolve(ctx)
	if err != nil {
		return "", err
	}

	src, size, err := p.Hot.Open(ctx, req.hotPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	result, err := p.Cold.Transfer(ctx, src, req.coldPath, credentials)
	if err != nil {
		return "", err
	}
	log.Println("processor: transferred", "path=", result.Path, "bytes=", result.Size, "srcBytes=", size)

	// Link resolution is best-effort; the transfer is the critical path.
	url, err := p.Cold.GetOrCreateSharedLink(ctx, req.coldPath, credentials)
	if err != nil {
		log.Println("processor: shared link failed (continuing):", err)
		url = ""
	}

	setURL := targetsMockup(req.targetField, req.coldPath) && url != ""
	if err := p.Store.UpdateOrderMirror(ctx, req.orderID, url, setURL); err != nil {
		return "", fmt.Errorf("update order: %w", err)
	}

	return url, nil
}

// targetsMockup decides whether the derived URL belongs in the order's
// primary image field: either the entry says so explicitly or the destination
// path lands in the mockups folder. Unrelated attachments must not clobber
// the display image.
func targetsMockup(targetField, coldPath string) bool {
	return targetField == models.TargetFieldMockup || strings.Contains(coldPath, mockupFolderMarker)
}

func (p *Processor) recordFailure(ctx context.Context, task *models.SyncTask, cause error) {
	var rate *coldstore.RateLimitError
	if errors.As(cause, &rate) {
		log.Println("processor: provider rate limited", "task=", task.ID, "retryAfter=", rate.RetryAfter)
	}

	newRetry := task.RetryCount + 1
	if err := p.Store.MarkSyncTaskFailed(ctx, task.ID, newRetry, cause.Error(), time.Now().UnixMilli()); err != nil {
		log.Println("processor: record failure failed", "task=", task.ID, "err=", err)
		return
	}

	if newRetry >= p.MaxRetry && p.Notify != nil {
		if err := p.Notify.AlertAbandoned(ctx, *task, cause.Error()); err != nil {
			log.Println("processor: abandonment alert failed", "task=", task.ID, "err=", err)
		}
	}
}
