package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artsync/internal/models"
)

func TestSyncDirect(t *testing.T) {
	p, st, hot, cold := newHarness()
	hot.files["uploads/o9/art.png"] = []byte("direct bytes")

	url, err := p.SyncDirect(context.Background(), DirectSyncRequest{
		OrderID:     "o9",
		HotPath:     "uploads/o9/art.png",
		ColdPath:    "/orders/o9/mockups/art.png",
		TargetField: models.TargetFieldMockup,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	assert.Equal(t, []byte("direct bytes"), cold.uploads["/orders/o9/mockups/art.png"])
	assert.True(t, st.orders["o9"].DropboxReady)
	assert.Equal(t, url, st.orders["o9"].DropboxURL)
}

func TestSyncDirectValidates(t *testing.T) {
	p, _, _, _ := newHarness()

	_, err := p.SyncDirect(context.Background(), DirectSyncRequest{OrderID: "o1"})
	assert.Error(t, err)
}

func TestSyncDirectSourceMissing(t *testing.T) {
	p, _, _, _ := newHarness()

	_, err := p.SyncDirect(context.Background(), DirectSyncRequest{
		OrderID:  "o1",
		HotPath:  "uploads/nope",
		ColdPath: "/orders/nope",
	})
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestCleanupStorageExplicitPrefix(t *testing.T) {
	p, _, hot, _ := newHarness()
	hot.files["uploads/o1/a.png"] = []byte("a")
	hot.files["uploads/o1/b.png"] = []byte("b")
	hot.files["uploads/o2/keep.png"] = []byte("k")

	n, err := p.CleanupStorage(context.Background(), "o1", "uploads/o1/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, hot.files, "uploads/o2/keep.png")
}

func TestCleanupStorageDerivesPrefixFromOrder(t *testing.T) {
	p, st, hot, _ := newHarness()
	st.orders["o1"] = &models.Order{ID: "o1", HotBasePath: "uploads/o1/"}
	hot.files["uploads/o1/a.png"] = []byte("a")

	n, err := p.CleanupStorage(context.Background(), "o1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCleanupStorageRefusesEmptyPrefix(t *testing.T) {
	p, st, _, _ := newHarness()

	_, err := p.CleanupStorage(context.Background(), "", "")
	assert.Error(t, err)

	_, err = p.CleanupStorage(context.Background(), "", "/")
	assert.Error(t, err)

	// Order exists but never stored a base path.
	st.orders["o1"] = &models.Order{ID: "o1"}
	_, err = p.CleanupStorage(context.Background(), "o1", "")
	assert.Error(t, err)
}
