package history

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:          id,
		Environment: "Debug",
		StartedAt:   started,
		Duration:    2 * time.Second,
		Success:     true,
		Tasks: []TaskRecord{
			{Task: "install-solr", State: "completed", Duration: time.Second},
		},
	}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")

	store, err := NewStore(dir, 10, testLogger())
	require.NoError(t, err)

	assert.Empty(t, store.Runs())
	assert.DirExists(t, dir)
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 10, testLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(testRun("run-1", time.Now())))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "run-1.json", files[0].Name())

	got, err := store.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "Debug", got.Environment)
	assert.Len(t, got.Tasks, 1)
}

func TestStore_SaveRequiresIDAndStartTime(t *testing.T) {
	store, err := NewStore(t.TempDir(), 10, testLogger())
	require.NoError(t, err)

	err = store.Save(testRun("", time.Now()))
	assert.ErrorContains(t, err, "without an ID")

	err = store.Save(testRun("run-1", time.Time{}))
	assert.ErrorContains(t, err, "without start time")
}

func TestStore_GetUnknown(t *testing.T) {
	store, err := NewStore(t.TempDir(), 10, testLogger())
	require.NoError(t, err)

	_, err = store.Get("run-missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ReloadFromDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 10, testLogger())
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(testRun(fmt.Sprintf("run-%d", i), now.Add(time.Duration(i)*time.Hour))))
	}

	reopened, err := NewStore(dir, 10, testLogger())
	require.NoError(t, err)

	runs := reopened.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-2", "run-1", "run-0"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.True(t, runs[0].StartedAt.Equal(now.Add(2*time.Hour)))
	assert.Equal(t, 2*time.Second, runs[0].Duration)
}

func TestStore_PrunesOldestRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2, testLogger())
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Save(testRun(fmt.Sprintf("run-%d", i), now.Add(time.Duration(i)*time.Minute))))
	}

	runs := store.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.NoFileExists(t, filepath.Join(dir, "run-0.json"))
}

func TestStore_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	store, err := NewStore(dir, 10, testLogger())
	require.NoError(t, err)
	assert.Empty(t, store.Runs())

	require.NoError(t, store.Save(testRun("run-1", time.Now())))
	assert.Len(t, store.Runs(), 1)
}

func TestNewStore_DefaultLimit(t *testing.T) {
	store, err := NewStore(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRuns, store.maxRuns)
}
