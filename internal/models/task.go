package models

// Sync task statuses as stored in the sync_queue table.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusError      = "error"
	StatusSuccess    = "success"
)

// TargetFieldMockup marks the queue entry whose resolved link should land in
// the order's primary image slot.
const TargetFieldMockup = "mockupUrl"

// SyncTask is one pending hot->cold file migration.
type SyncTask struct {
	// Keys
	ID      string `dynamodbav:"id" json:"id"`
	OrderID string `dynamodbav:"order_id" json:"orderId"`

	// Paths
	HotStoragePath  string `dynamodbav:"hot_storage_path" json:"firebasePath"`
	ColdStoragePath string `dynamodbav:"cold_storage_path" json:"dropboxPath"`

	// Which order field receives the derived URL; empty means flag-only.
	TargetField string `dynamodbav:"target_field" json:"targetField,omitempty"`

	// Processing
	Status     string `dynamodbav:"status" json:"status"`
	RetryCount int    `dynamodbav:"retry_count" json:"retryCount"`
	ErrorLog   string `dynamodbav:"error_log" json:"errorLog,omitempty"`

	// Epoch ms
	CreatedAt int64 `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt int64 `dynamodbav:"updated_at" json:"updatedAt"`
}

// Order is the slice of the order record this subsystem touches. The full
// record belongs to the dashboard; only these fields are ever read or
// written here.
type Order struct {
	ID          string `dynamodbav:"id" json:"id"`
	ReadableID  string `dynamodbav:"readable_id" json:"readableId,omitempty"`
	HotBasePath string `dynamodbav:"hot_base_path" json:"hotBasePath,omitempty"`
	DropboxPath string `dynamodbav:"dropbox_path" json:"dropboxPath,omitempty"`

	DropboxReady bool   `dynamodbav:"dropbox_ready" json:"dropboxReady"`
	DropboxURL   string `dynamodbav:"dropbox_url" json:"dropboxUrl,omitempty"`
}

// TaskResult is one task's outcome inside a batch pass.
type TaskResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
