package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	cfg *Config
	err error
}

func startWatcher(t *testing.T, path string) <-chan reload {
	t.Helper()
	reloads := make(chan reload, 8)
	w, err := NewWatcher(path, 20*time.Millisecond, nil, func(cfg *Config, err error) {
		reloads <- reload{cfg, err}
	})
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return reloads
}

func nextReload(t *testing.T, reloads <-chan reload) reload {
	t.Helper()
	select {
	case r := <-reloads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
		return reload{}
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "grc.yaml")
	writeFile(t, path, "base_url: https://one.example.com/api/v1\nauth:\n  token: tok\n")

	reloads := startWatcher(t, path)

	cfg := Default()
	cfg.BaseURL = "https://two.example.com/api/v1"
	cfg.Auth.Token = "tok"
	_, err := Write(cfg, path)
	require.NoError(t, err)

	r := nextReload(t, reloads)
	require.NoError(t, r.err)
	assert.Equal(t, "https://two.example.com/api/v1", r.cfg.BaseURL)
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "grc.yaml")
	writeFile(t, path, "base_url: https://one.example.com/api/v1\nauth:\n  token: tok\n")

	reloads := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated\n"), 0o600))

	r := nextReload(t, reloads)
	require.Error(t, r.err)
	assert.Nil(t, r.cfg)
	assert.Contains(t, r.err.Error(), "failed to parse YAML")
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "grc.yaml")
	writeFile(t, path, "base_url: https://one.example.com/api/v1\nauth:\n  token: tok\n")

	reloads := startWatcher(t, path)
	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")

	select {
	case r := <-reloads:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent", "grc.yaml"), 0, nil, func(*Config, error) {})
	assert.Error(t, err)
}
