package store

import (
	"testing"

	"artsync/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestOrderProcessableByRetryThenAge(t *testing.T) {
	tasks := []models.SyncTask{
		{ID: "a", RetryCount: 2, CreatedAt: 100},
		{ID: "b", RetryCount: 0, CreatedAt: 300},
		{ID: "c", RetryCount: 1, CreatedAt: 200},
	}

	got := OrderProcessable(tasks, 10)

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestOrderProcessableTiesByCreatedAt(t *testing.T) {
	tasks := []models.SyncTask{
		{ID: "newer", RetryCount: 1, CreatedAt: 500},
		{ID: "older", RetryCount: 1, CreatedAt: 100},
	}

	got := OrderProcessable(tasks, 10)
	assert.Equal(t, "older", got[0].ID)
	assert.Equal(t, "newer", got[1].ID)
}

func TestOrderProcessableTruncates(t *testing.T) {
	tasks := []models.SyncTask{
		{ID: "a", RetryCount: 0, CreatedAt: 1},
		{ID: "b", RetryCount: 0, CreatedAt: 2},
		{ID: "c", RetryCount: 0, CreatedAt: 3},
	}

	got := OrderProcessable(tasks, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestOrderProcessableZeroLimitKeepsAll(t *testing.T) {
	tasks := []models.SyncTask{
		{ID: "a"}, {ID: "b"},
	}
	assert.Len(t, OrderProcessable(tasks, 0), 2)
}
