package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"media-console/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	storagePath, err := s.Save(ctx, "asset-1", "clip.mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := s.Open(ctx, storagePath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("content: got %q", data)
	}

	if err := s.Delete(ctx, storagePath); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(storagePath); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, stat err: %v", err)
	}
	// Deleting again is not an error.
	if err := s.Delete(ctx, storagePath); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestLocalStorageSanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)

	storagePath, err := s.Save(context.Background(), "asset-1", "../../escape.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(storagePath, dir) {
		t.Fatalf("path escaped base dir: %s", storagePath)
	}
}

func configWithDriver(driver string) config.StorageConfig {
	return config.StorageConfig{Driver: driver, LocalPath: "./uploads"}
}

func TestNewSelectsDriver(t *testing.T) {
	// Unknown driver is an error, not a silent fallback.
	if _, err := New(configWithDriver("gcs")); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	s, err := New(configWithDriver(""))
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Fatalf("default driver should be local, got %T", s)
	}
}
