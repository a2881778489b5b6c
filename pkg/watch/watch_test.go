package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) (*Watcher, <-chan []byte) {
	t.Helper()
	got := make(chan []byte, 4)
	w := New(path, func(b []byte) { got <- b }, nil).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Watch(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return w, got
}

func TestDeliversContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.json")
	_, got := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":[],"links":[]}`), 0644))

	select {
	case b := <-got:
		assert.Equal(t, `{"nodes":[],"links":[]}`, string(b))
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, got := startWatcher(t, filepath.Join(dir, "diagram.json"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("x"), 0644))

	select {
	case b := <-got:
		t.Fatalf("unexpected delivery %q", b)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSeenSuppressesOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.json")
	w, got := startWatcher(t, path)

	w.Seen([]byte("mine"))
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0644))

	select {
	case b := <-got:
		t.Fatalf("own write delivered: %q", b)
	case <-time.After(300 * time.Millisecond):
	}
}
