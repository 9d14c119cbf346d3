package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"artsync/internal/coldstore"
	"artsync/internal/models"
	"artsync/internal/store"
)

// fakeStore is an in-memory QueueStore recording every mutation so tests can
// assert on side-effect ordering.
type fakeStore struct {
	tasks  map[string]*models.SyncTask
	orders map[string]*models.Order
	ops    []string

	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  map[string]*models.SyncTask{},
		orders: map[string]*models.Order{},
	}
}

func (s *fakeStore) GetSyncTask(ctx context.Context, id string) (*models.SyncTask, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ClaimSyncTask(ctx context.Context, id string, nowMs int64) (bool, error) {
	t, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	if t.Status != models.StatusPending && t.Status != models.StatusError {
		return false, nil
	}
	t.Status = models.StatusProcessing
	t.UpdatedAt = nowMs
	s.ops = append(s.ops, "claim:"+id)
	return true, nil
}

func (s *fakeStore) MarkSyncTaskFailed(ctx context.Context, id string, retryCount int, errLog string, nowMs int64) error {
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("no such task %s", id)
	}
	t.Status = models.StatusError
	t.RetryCount = retryCount
	t.ErrorLog = errLog
	t.UpdatedAt = nowMs
	s.ops = append(s.ops, "fail:"+id)
	return nil
}

func (s *fakeStore) DeleteSyncTask(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.tasks, id)
	s.ops = append(s.ops, "delete:"+id)
	return nil
}

func (s *fakeStore) FetchProcessableTasks(ctx context.Context, limit int, maxRetry int) ([]models.SyncTask, error) {
	var eligible []models.SyncTask
	for _, t := range s.tasks {
		if (t.Status == models.StatusPending || t.Status == models.StatusError) && t.RetryCount < maxRetry {
			eligible = append(eligible, *t)
		}
	}
	return store.OrderProcessable(eligible, limit), nil
}

func (s *fakeStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) UpdateOrderMirror(ctx context.Context, orderID string, url string, setURL bool) error {
	o, ok := s.orders[orderID]
	if !ok {
		o = &models.Order{ID: orderID}
		s.orders[orderID] = o
	}
	o.DropboxReady = true
	if setURL {
		o.DropboxURL = url
	}
	s.ops = append(s.ops, fmt.Sprintf("order:%s:setURL=%v", orderID, setURL))
	return nil
}

type fakeHot struct {
	files   map[string][]byte
	deleted []string
	ops     *[]string
}

func (h *fakeHot) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := h.files[key]
	return ok, nil
}

func (h *fakeHot) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	b, ok := h.files[key]
	if !ok {
		return nil, 0, fmt.Errorf("no such object %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (h *fakeHot) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	for key := range h.files {
		if strings.HasPrefix(key, prefix) {
			delete(h.files, key)
			n++
		}
	}
	h.deleted = append(h.deleted, prefix)
	return n, nil
}

type fakeCold struct {
	uploads map[string][]byte
	ops     *[]string

	transferErr error
	linkErr     error
	link        string

	// failPaths makes Transfer fail only for specific destinations.
	failPaths map[string]error
}

func newFakeCold() *fakeCold {
	return &fakeCold{uploads: map[string][]byte{}, link: "https://www.dropbox.com/s/x/a.png?raw=1"}
}

func (c *fakeCold) Transfer(ctx context.Context, src io.Reader, destPath string, creds models.DropboxCredentials) (coldstore.UploadResult, error) {
	if c.transferErr != nil {
		return coldstore.UploadResult{}, c.transferErr
	}
	if err, ok := c.failPaths[destPath]; ok {
		return coldstore.UploadResult{}, err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return coldstore.UploadResult{}, err
	}
	c.uploads[destPath] = b
	if c.ops != nil {
		*c.ops = append(*c.ops, "transfer:"+destPath)
	}
	return coldstore.UploadResult{Path: destPath, Size: int64(len(b))}, nil
}

func (c *fakeCold) GetOrCreateSharedLink(ctx context.Context, path string, creds models.DropboxCredentials) (string, error) {
	if c.linkErr != nil {
		return "", c.linkErr
	}
	if c.ops != nil {
		*c.ops = append(*c.ops, "link:"+path)
	}
	return c.link, nil
}

type fakeCreds struct {
	err error
}

func (f *fakeCreds) Resolve(ctx context.Context) (models.DropboxCredentials, error) {
	if f.err != nil {
		return models.DropboxCredentials{}, f.err
	}
	return models.DropboxCredentials{AccessToken: "tok", Source: models.CredentialsFromEnv}, nil
}

type fakeNotifier struct {
	alerts []string
}

func (n *fakeNotifier) AlertAbandoned(ctx context.Context, task models.SyncTask, lastErr string) error {
	n.alerts = append(n.alerts, task.ID)
	return nil
}

var errBoom = errors.New("remote exploded")

// harness wires a processor over all the fakes with a fast batch pause.
func newHarness() (*Processor, *fakeStore, *fakeHot, *fakeCold) {
	st := newFakeStore()
	hot := &fakeHot{files: map[string][]byte{}}
	cold := newFakeCold()
	p := New(st, hot, cold, &fakeCreds{})
	p.Pause = time.Millisecond
	return p, st, hot, cold
}

func seedTask(st *fakeStore, id, orderID, hotPath, coldPath, targetField string, retry int, createdAt int64) {
	st.tasks[id] = &models.SyncTask{
		ID:              id,
		OrderID:         orderID,
		HotStoragePath:  hotPath,
		ColdStoragePath: coldPath,
		TargetField:     targetField,
		Status:          models.StatusPending,
		RetryCount:      retry,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}
