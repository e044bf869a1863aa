package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wsmigrate/internal/wspath"
)

// writeStateDir lays out storageRoot/<hash>/workspace.json recording uri.
func writeStateDir(t *testing.T, storageRoot, hash, uri string) string {
	t.Helper()
	dir := filepath.Join(storageRoot, hash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	meta, _ := json.Marshal(map[string]string{"folder": uri})
	if err := os.WriteFile(filepath.Join(dir, "workspace.json"), meta, 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLocate(t *testing.T) {
	storageRoot := t.TempDir()
	proj := t.TempDir()
	uri := wspath.URIFromPath(proj)

	writeStateDir(t, storageRoot, "abc123", uri)
	writeStateDir(t, storageRoot, "other1", "file:///somewhere/else")

	sd, err := NewLocator(nil).Locate(storageRoot, proj)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if sd.HashID != "abc123" {
		t.Errorf("HashID = %q, want abc123", sd.HashID)
	}
	if sd.URI != uri {
		t.Errorf("URI = %q, want %q", sd.URI, uri)
	}
	if sd.Root != filepath.Join(storageRoot, "abc123") {
		t.Errorf("Root = %q", sd.Root)
	}
}

func TestLocateWorkspaceKey(t *testing.T) {
	storageRoot := t.TempDir()
	proj := t.TempDir()
	uri := wspath.URIFromPath(proj)

	dir := filepath.Join(storageRoot, "ws1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	meta, _ := json.Marshal(map[string]string{"workspace": uri})
	if err := os.WriteFile(filepath.Join(dir, "workspace.json"), meta, 0644); err != nil {
		t.Fatal(err)
	}

	sd, err := NewLocator(nil).Locate(storageRoot, proj)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if sd.HashID != "ws1" {
		t.Errorf("HashID = %q, want ws1", sd.HashID)
	}
}

func TestLocateRawPathRecord(t *testing.T) {
	storageRoot := t.TempDir()
	proj := t.TempDir()

	writeStateDir(t, storageRoot, "raw1", proj)

	sd, err := NewLocator(nil).Locate(storageRoot, proj)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if sd.HashID != "raw1" {
		t.Errorf("HashID = %q, want raw1", sd.HashID)
	}
}

func TestLocateNotFound(t *testing.T) {
	storageRoot := t.TempDir()
	writeStateDir(t, storageRoot, "other1", "file:///somewhere/else")

	_, err := NewLocator(nil).Locate(storageRoot, t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateMissingStorageRoot(t *testing.T) {
	_, err := NewLocator(nil).Locate(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateSkipsCorruptMetadata(t *testing.T) {
	storageRoot := t.TempDir()
	proj := t.TempDir()
	uri := wspath.URIFromPath(proj)

	bad := filepath.Join(storageRoot, "corrupt")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "workspace.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	writeStateDir(t, storageRoot, "good1", uri)

	sd, err := NewLocator(nil).Locate(storageRoot, proj)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if sd.HashID != "good1" {
		t.Errorf("HashID = %q, want good1", sd.HashID)
	}
}

func TestLocateDuplicatesPicksNewest(t *testing.T) {
	storageRoot := t.TempDir()
	proj := t.TempDir()
	uri := wspath.URIFromPath(proj)

	stale := writeStateDir(t, storageRoot, "stale1", uri)
	fresh := writeStateDir(t, storageRoot, "fresh1", uri)

	old := time.Now().Add(-24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := os.Chtimes(fresh, now, now); err != nil {
		t.Fatal(err)
	}

	var warned string
	sd, err := NewLocator(func(msg string) { warned = msg }).Locate(storageRoot, proj)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if sd.HashID != "fresh1" {
		t.Errorf("HashID = %q, want fresh1", sd.HashID)
	}
	if warned == "" {
		t.Error("expected a duplicate-match warning")
	}
}
