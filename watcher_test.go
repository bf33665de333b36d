package phase

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// replaceFile swaps the file at path in one rename so the watcher never
// observes a truncated file.
func replaceFile(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestConfigWatcherReloadsOnReplace(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, t.TempDir(), "collisions:\n  default-max: 1\n")
	reloads := make(chan *Config, 16)

	w, err := NewConfigWatcher(path, func(cfg *Config) { reloads <- cfg }, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	replaceFile(t, path, "collisions:\n  default-max: 7\n")

	select {
	case cfg := <-reloads:
		assert.Equal(t, 7, cfg.Collisions.DefaultMax)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, w.Close())
	<-done
}

func TestConfigWatcherKeepsPreviousOnBadFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, t.TempDir(), "collisions:\n  default-max: 1\n")
	reloads := make(chan *Config, 16)

	w, err := NewConfigWatcher(path, func(cfg *Config) { reloads <- cfg }, discardLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(context.Background())
	}()

	replaceFile(t, path, "collisions: [")

	select {
	case cfg := <-reloads:
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	<-done
}

func TestConfigWatcherCloseIsIdempotent(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "collisions: {}\n")
	w, err := NewConfigWatcher(path, nil, discardLogger())
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
