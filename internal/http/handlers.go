package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"artsync/internal/models"
	"artsync/internal/processor"

	"github.com/google/uuid"
)

type EnqueueRequest struct {
	OrderID      string `json:"orderId"`
	FirebasePath string `json:"firebasePath"`
	DropboxPath  string `json:"dropboxPath"`
	TargetField  string `json:"targetField"`
}

type ProcessQueueRequest struct {
	QueueID string `json:"queueId"`
}

type SyncDropboxRequest struct {
	FirebasePath string `json:"firebasePath"`
	DropboxPath  string `json:"dropboxPath"`
	OrderID      string `json:"orderId"`
	ReadableID   string `json:"readableId"`
	TargetField  string `json:"targetField"`
}

type CleanupStorageRequest struct {
	OrderID string `json:"orderId"`
	Prefix  string `json:"prefix"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /cron-retry — run one batch pass over the backlog.
func (a *App) cronRetryHandler(w http.ResponseWriter, r *http.Request) {
	if a.Processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processor not initialized"})
		return
	}

	results, err := a.Processor.ProcessBatch(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(results),
		"results":   results,
	})
}

// POST /process-queue — immediate path for one queue entry.
func (a *App) processQueueHandler(w http.ResponseWriter, r *http.Request) {
	if a.Processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processor not initialized"})
		return
	}

	var req ProcessQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QueueID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "queueId is required"})
		return
	}

	out := a.Processor.ProcessTask(r.Context(), req.QueueID)
	switch out.Status {
	case processor.OutcomeSuccess:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"dropboxUrl": out.DropboxURL,
		})
	case processor.OutcomeNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "queue entry not found"})
	case processor.OutcomeSkipped:
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "status": out.Status})
	default:
		status := http.StatusInternalServerError
		if errors.Is(out.Err, processor.ErrSourceMissing) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]any{
			"error":             out.Err.Error(),
			"scheduledForRetry": true,
		})
	}
}

// POST /sync-dropbox — direct, non-queued sync.
func (a *App) syncDropboxHandler(w http.ResponseWriter, r *http.Request) {
	if a.Processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processor not initialized"})
		return
	}

	var req SyncDropboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	url, err := a.Processor.SyncDirect(r.Context(), processor.DirectSyncRequest{
		OrderID:     req.OrderID,
		HotPath:     req.FirebasePath,
		ColdPath:    req.DropboxPath,
		TargetField: req.TargetField,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, processor.ErrSourceMissing) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"dropboxUrl": url,
	})
}

// POST /cleanup-storage — delete hot-storage objects for a removed order.
func (a *App) cleanupStorageHandler(w http.ResponseWriter, r *http.Request) {
	if a.Processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage not initialized"})
		return
	}

	var req CleanupStorageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	deleted, err := a.Processor.CleanupStorage(r.Context(), req.OrderID, req.Prefix)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}

// POST /sync-queue — persist a pending task and nudge the worker.
func (a *App) enqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.OrderID == "" || req.FirebasePath == "" || req.DropboxPath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId, firebasePath and dropboxPath are required"})
		return
	}

	now := time.Now().UnixMilli()
	task := models.SyncTask{
		ID:              uuid.New().String(),
		OrderID:         req.OrderID,
		HotStoragePath:  req.FirebasePath,
		ColdStoragePath: req.DropboxPath,
		TargetField:     req.TargetField,
		Status:          models.StatusPending,
		RetryCount:      0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := a.Store.PutSyncTask(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store task"})
		return
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishQueueID(r.Context(), task.ID); err != nil {
			// Row is persisted; the periodic pass will pick it up.
			log.Println("api: publish queue id failed:", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"queueId": task.ID})
}

type queueItem struct {
	models.SyncTask
	PreviewURL string `json:"previewUrl,omitempty"`
}

// GET /sync-queue — recent queue rows for the dashboard admin view, with
// short-lived preview links for the source objects when presigning is wired.
func (a *App) listQueueHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := a.Store.ListSyncTasks(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load queue"})
		return
	}

	items := make([]queueItem, 0, len(tasks))
	for _, t := range tasks {
		item := queueItem{SyncTask: t}
		if a.Previews != nil {
			if url, err := a.Previews.PresignGet(r.Context(), t.HotStoragePath, 15*time.Minute); err == nil {
				item.PreviewURL = url
			}
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
