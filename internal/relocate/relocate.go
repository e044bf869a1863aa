// Package relocate places a state directory at its new hash-named
// location using a stage-then-rename copy, so a crash mid-operation
// leaves the destination either absent or complete.
package relocate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// ErrRelocationConflict means the destination hash directory already
// holds state. Another workspace owns it; it is never overwritten.
var ErrRelocationConflict = errors.New("destination state directory already populated")

// Relocate copies the tree at stateDir to storageRoot/newHash. The copy
// is staged under a temporary name, verified against the source content
// digest, and renamed into place. The source is never deleted.
func Relocate(stateDir, storageRoot, newHash string) (string, error) {
	dest := filepath.Join(storageRoot, newHash)

	if entries, err := os.ReadDir(dest); err == nil {
		if len(entries) > 0 {
			return "", fmt.Errorf("%w: %s", ErrRelocationConflict, dest)
		}
		// An empty leftover directory is safe to replace.
		if err := os.Remove(dest); err != nil {
			return "", fmt.Errorf("removing empty destination: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking destination: %w", err)
	}

	srcDigest, err := TreeDigest(stateDir)
	if err != nil {
		return "", fmt.Errorf("digesting source tree: %w", err)
	}

	stage := filepath.Join(storageRoot, ".stage-"+uuid.NewString())
	defer os.RemoveAll(stage)

	if err := CopyTree(stateDir, stage); err != nil {
		return "", fmt.Errorf("staging copy: %w", err)
	}

	stageDigest, err := TreeDigest(stage)
	if err != nil {
		return "", fmt.Errorf("digesting staged tree: %w", err)
	}
	if stageDigest != srcDigest {
		return "", fmt.Errorf("staged copy digest mismatch: %s != %s", stageDigest, srcDigest)
	}

	if err := os.Rename(stage, dest); err != nil {
		return "", fmt.Errorf("renaming staged copy into place: %w", err)
	}

	return dest, nil
}

// CopyTree recursively copies the directory at src to dst, preserving
// file contents, modes and relative structure. dst must not exist.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}

		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// TreeDigest computes a BLAKE3 digest over every file's relative path
// and content, in walk order. Identical trees produce identical
// digests, so a staged copy can be verified complete before the rename.
func TreeDigest(root string) (string, error) {
	hasher := blake3.New(32, nil)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		hasher.Write([]byte(filepath.ToSlash(rel)))
		hasher.Write([]byte("\n"))
		hasher.Write(content)
		hasher.Write([]byte("\n"))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking tree: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
