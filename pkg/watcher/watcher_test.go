package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metro.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("name: metro\n"), 0600))

	var calls atomic.Int32
	changed := make(chan string, 10)
	w := New([]string{path}, func(p string) {
		calls.Add(1)
		changed <- p
	}, WithDebounce(150*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Watch(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0600))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("name: metro\nnodes: []\n"), 0600))
	}

	select {
	case got := <-changed:
		want, _ := filepath.Abs(path)
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes should fire once")

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
