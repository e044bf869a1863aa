package relocate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRelocate(t *testing.T) {
	storageRoot := t.TempDir()
	src := filepath.Join(storageRoot, "abc123")
	writeTree(t, src, map[string]string{
		"workspace.json":               `{"folder":"file:///home/user/proj"}`,
		"state.vscdb":                  "not really a db",
		"chatSessions/session-1.json":  `{"path":"/home/user/proj"}`,
		"anysphere.cursor-retrieval/x": "blob",
	})

	dest, err := Relocate(src, storageRoot, "def456")
	if err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}
	if dest != filepath.Join(storageRoot, "def456") {
		t.Errorf("dest = %q", dest)
	}

	srcDigest, err := TreeDigest(src)
	if err != nil {
		t.Fatal(err)
	}
	destDigest, err := TreeDigest(dest)
	if err != nil {
		t.Fatal(err)
	}
	if srcDigest != destDigest {
		t.Errorf("relocated tree digest %s != source %s", destDigest, srcDigest)
	}

	// Source is preserved.
	if _, err := os.Stat(filepath.Join(src, "state.vscdb")); err != nil {
		t.Errorf("source tree was modified: %v", err)
	}
}

func TestRelocateConflict(t *testing.T) {
	storageRoot := t.TempDir()
	src := filepath.Join(storageRoot, "abc123")
	writeTree(t, src, map[string]string{"workspace.json": "{}"})

	other := filepath.Join(storageRoot, "def456")
	writeTree(t, other, map[string]string{"state.vscdb": "someone else's chat history"})

	_, err := Relocate(src, storageRoot, "def456")
	if !errors.Is(err, ErrRelocationConflict) {
		t.Fatalf("expected ErrRelocationConflict, got %v", err)
	}

	// The existing state is untouched.
	content, err := os.ReadFile(filepath.Join(other, "state.vscdb"))
	if err != nil || string(content) != "someone else's chat history" {
		t.Errorf("existing destination was modified: %q, %v", content, err)
	}
}

func TestRelocateReplacesEmptyDestination(t *testing.T) {
	storageRoot := t.TempDir()
	src := filepath.Join(storageRoot, "abc123")
	writeTree(t, src, map[string]string{"workspace.json": "{}"})

	if err := os.MkdirAll(filepath.Join(storageRoot, "def456"), 0755); err != nil {
		t.Fatal(err)
	}

	dest, err := Relocate(src, storageRoot, "def456")
	if err != nil {
		t.Fatalf("Relocate returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "workspace.json")); err != nil {
		t.Errorf("destination missing copied file: %v", err)
	}
}

func TestRelocateFailureLeavesNoPartialDestination(t *testing.T) {
	storageRoot := t.TempDir()
	src := filepath.Join(storageRoot, "abc123")
	writeTree(t, src, map[string]string{"workspace.json": "{}"})

	// A dangling symlink makes the staged copy fail partway through.
	if err := os.Symlink(filepath.Join(src, "nope"), filepath.Join(src, "zz-broken")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	_, err := Relocate(src, storageRoot, "def456")
	if err == nil {
		t.Fatal("expected relocation to fail")
	}

	if _, err := os.Stat(filepath.Join(storageRoot, "def456")); !os.IsNotExist(err) {
		t.Error("partial destination directory left behind")
	}

	entries, err := os.ReadDir(storageRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".stage-") {
			t.Errorf("staging directory %s left behind", e.Name())
		}
	}
}

func TestTreeDigest(t *testing.T) {
	a := t.TempDir()
	writeTree(t, a, map[string]string{"x/y.txt": "hello", "z.json": "{}"})

	d1, err := TreeDigest(a)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := TreeDigest(a)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("TreeDigest is not deterministic")
	}

	b := t.TempDir()
	writeTree(t, b, map[string]string{"x/y.txt": "hello", "z.json": "{}"})
	d3, err := TreeDigest(b)
	if err != nil {
		t.Fatal(err)
	}
	if d3 != d1 {
		t.Error("identical trees produced different digests")
	}

	if err := os.WriteFile(filepath.Join(b, "z.json"), []byte(`{"a":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	d4, err := TreeDigest(b)
	if err != nil {
		t.Fatal(err)
	}
	if d4 == d1 {
		t.Error("modified tree produced identical digest")
	}
}

func TestCopyTreeRefusesExistingFiles(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "new"})

	dst := t.TempDir()
	writeTree(t, dst, map[string]string{"a.txt": "old"})

	if err := CopyTree(src, dst); err == nil {
		t.Error("expected error copying over existing file")
	}
}
