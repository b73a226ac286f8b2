package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestStore(t *testing.T) {
	store := openTestStore(t)

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []Run{
		{DeviceID: "red", Source: "/src", Target: "/Dest", AppIdentifier: "app",
			Status: StatusCompleted, Files: 3, StartedAt: start, FinishedAt: start.Add(time.Minute)},
		{DeviceID: "blue", Source: "/src", Target: "/Dest", AppIdentifier: "app",
			Status: StatusFailed, Error: "offline", StartedAt: start, FinishedAt: start.Add(3 * time.Minute)},
		{DeviceID: "green", Source: "/src", Target: "/Dest", AppIdentifier: "app",
			Status: StatusCompleted, Files: 3, FailedCopies: 1, StartedAt: start, FinishedAt: start.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		require.NoError(t, store.Record(run))
	}

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "blue", recent[0].DeviceID)
	assert.Equal(t, "offline", recent[0].Error)
	assert.Equal(t, "green", recent[1].DeviceID)
	assert.Equal(t, 1, recent[1].FailedCopies)
	assert.True(t, start.Add(2*time.Minute).Equal(recent[1].FinishedAt))

	recent, err = store.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Completed: 2, Failed: 1}, stats)

	deleted, err := store.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestStoreEmpty(t *testing.T) {
	store := openTestStore(t)

	recent, err := store.Recent(5)
	assert.NoError(t, err)
	assert.Empty(t, recent)

	stats, err := store.Stats()
	assert.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}
