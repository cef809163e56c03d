package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	writeFile(t, filepath.Join(root, "sub", "b.PNG"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"))
	writeFile(t, filepath.Join(root, ".d.jpg"))
	explicit := filepath.Join(root, "notes.txt")

	files, stats, err := Collect([]string{root, explicit, filepath.Join(root, "a.pdf")}, true)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.pdf"),
		filepath.Join(root, "sub", "b.PNG"),
		explicit,
	}, files)
	assert.Equal(t, 3, stats.Matched)
	assert.Equal(t, 1, stats.Skipped)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, _, err := Collect([]string{filepath.Join(t.TempDir(), "nope")}, true)
	assert.Error(t, err)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("webp"))
	assert.False(t, AllowedExt(".heic"))
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("."))
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no watcher event")
			return ""
		}
	}

	assert.Equal(t, filepath.Join(root, "existing.pdf"), next())

	writeFile(t, filepath.Join(root, "ignored.txt"))
	writeFile(t, filepath.Join(root, "new.png"))
	assert.Equal(t, filepath.Join(root, "new.png"), next())

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
