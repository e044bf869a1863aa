// Package storage locates existing per-workspace state directories
// under an editor's workspaceStorage root.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wsmigrate/internal/wspath"
)

// ErrNotFound means no state directory records the target workspace. A
// workspace may simply never have been opened, so callers treat this as
// a skip rather than a failure.
var ErrNotFound = errors.New("no workspace state directory found")

// StateDir is an editor state directory matched to a workspace.
type StateDir struct {
	HashID  string
	Root    string
	URI     string
	ModTime time.Time
}

// Locator scans a workspaceStorage root for the directory whose
// metadata records a given workspace folder.
type Locator struct {
	// Warn receives non-fatal diagnostics (duplicate matches, etc).
	Warn func(msg string)
}

// NewLocator returns a Locator reporting warnings through warn. A nil
// warn discards them.
func NewLocator(warn func(msg string)) *Locator {
	return &Locator{Warn: warn}
}

// workspaceMeta is the metadata record each state directory carries.
// Single-folder workspaces record "folder"; .code-workspace setups
// record "workspace".
type workspaceMeta struct {
	Folder    string `json:"folder"`
	Workspace string `json:"workspace"`
}

// Locate finds the state directory for absPath under storageRoot.
// Returns ErrNotFound when nothing matches. When stale storage yields
// several matches the most recently modified one wins and a warning is
// emitted.
func (l *Locator) Locate(storageRoot, absPath string) (*StateDir, error) {
	norm, err := wspath.Normalize(absPath)
	if err != nil {
		return nil, err
	}
	targetURI := wspath.URIFromPath(norm)

	entries, err := os.ReadDir(storageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: storage root %s does not exist", ErrNotFound, storageRoot)
		}
		return nil, fmt.Errorf("reading storage root: %w", err)
	}

	var matches []*StateDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(storageRoot, entry.Name())

		meta, err := readMeta(filepath.Join(dir, "workspace.json"))
		if err != nil {
			// Corrupt or absent metadata; not a candidate.
			continue
		}

		recorded := meta.Folder
		if recorded == "" {
			recorded = meta.Workspace
		}
		if !pathsEqual(recorded, targetURI) && !pathsEqual(recorded, norm) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat candidate %s: %w", dir, err)
		}
		matches = append(matches, &StateDir{
			HashID:  entry.Name(),
			Root:    dir,
			URI:     recorded,
			ModTime: info.ModTime(),
		})
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, norm, storageRoot)
	case 1:
		return matches[0], nil
	default:
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].ModTime.After(matches[j].ModTime)
		})
		l.warnf("%d state directories record %s; using most recent %s", len(matches), norm, matches[0].HashID)
		return matches[0], nil
	}
}

func (l *Locator) warnf(format string, args ...interface{}) {
	if l.Warn != nil {
		l.Warn(fmt.Sprintf(format, args...))
	}
}

func readMeta(path string) (*workspaceMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta workspaceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// pathsEqual compares a recorded path or URI against a target, folding
// case on hosts whose filesystems conventionally do.
func pathsEqual(a, b string) bool {
	if a == "" {
		return false
	}
	if wspath.IsCaseInsensitiveHost() {
		return strings.EqualFold(a, b)
	}
	return a == b
}
