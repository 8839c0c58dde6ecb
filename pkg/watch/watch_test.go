package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.bild")
	require.NoError(t, os.WriteFile(path, []byte("(grid 1 1 1)"), 0o644))

	var calls atomic.Int32
	var got atomic.Value
	w, err := New(path, func(_ context.Context, p string) {
		got.Store(p)
		calls.Add(1)
	}, Options{Debounce: 100 * time.Millisecond, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("(grid 2 2 2)"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes triggers one call")
	assert.Equal(t, w.Path(), got.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.bild")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	var calls atomic.Int32
	w, err := New(path, func(context.Context, string) { calls.Add(1) },
		Options{Debounce: 20 * time.Millisecond, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bild"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestRelevant(t *testing.T) {
	w, err := New("scene.bild", func(context.Context, string) {}, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: w.Path(), Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: w.Path(), Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: w.Path(), Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: w.Path(), Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: w.Path() + ".swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.event), "%s", tt.event)
	}
}

func TestRunFailsForMissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "nope", "scene.bild"), func(context.Context, string) {}, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}
