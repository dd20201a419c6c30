package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/content"
)

type collector struct {
	mu     sync.Mutex
	topics []string
	fail   string
}

func (c *collector) handle(_ context.Context, req content.Request, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, req.Topic())
	if req.Topic() == c.fail {
		return errors.New("execution failed")
	}
	return nil
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

func startWatcher(t *testing.T, dir string, c *collector) {
	t.Helper()
	w, err := New(dir, c.handle, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		require.NoError(t, w.Close())
	})
}

func TestWatcherProcessesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"topic":"Go"}`), 0o600))

	c := &collector{}
	startWatcher(t, dir, c)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ProcessedDir, "a.json"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("- topic: Rust\n- topic: Zig\n"), 0o600))
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ProcessedDir, "b.yaml"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"Go", "Rust", "Zig"}, c.seen())
	assert.NoFileExists(t, filepath.Join(dir, "a.json"))
}

func TestWatcherMovesFailuresAside(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fails.json"), []byte(`{"topic":"Bad"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600))

	c := &collector{fail: "Bad"}
	startWatcher(t, dir, c)

	require.Eventually(t, func() bool {
		_, errBroken := os.Stat(filepath.Join(dir, FailedDir, "broken.json"))
		_, errFails := os.Stat(filepath.Join(dir, FailedDir, "fails.json"))
		return errBroken == nil && errFails == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"Bad"}, c.seen())
	assert.FileExists(t, filepath.Join(dir, "ignored.txt"))
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(t.TempDir(), nil)
	require.Error(t, err)
}
