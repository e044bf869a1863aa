// Package rewrite walks a relocated state directory and replaces every
// reference to the old workspace path or its file:// URI with the new
// one, across plain text, JSON and the embedded state database.
package rewrite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"wsmigrate/internal/statedb"
	"wsmigrate/internal/wspath"
)

// ErrPartialRewrite means a transactional database rewrite failed and
// was rolled back; no rows were committed.
var ErrPartialRewrite = errors.New("state database rewrite rolled back")

// Counts reports what a rewrite touched, surfaced to the operator.
type Counts struct {
	TextFiles int // text files changed
	TextHits  int // substitutions across text files
	DBRows    int // database rows rewritten
}

// Rewriter rewrites path references under a state directory.
type Rewriter struct {
	// SkipGlobs are doublestar patterns (matched against the
	// slash-separated relative path) excluded from text rewriting.
	SkipGlobs []string

	// Warn receives non-fatal diagnostics; nil discards them.
	Warn func(msg string)
}

// NewRewriter returns a Rewriter with the given skip patterns.
func NewRewriter(skipGlobs []string, warn func(msg string)) *Rewriter {
	return &Rewriter{SkipGlobs: skipGlobs, Warn: warn}
}

// Rewrite replaces oldPath and its URI form with newPath equivalents in
// every rewritable file under dir. Text substitution is literal and
// idempotent; the database is rewritten in a single transaction. Binary
// and skipped files are left untouched.
func (r *Rewriter) Rewrite(dir, oldPath, newPath string) (Counts, error) {
	var counts Counts

	oldURI := wspath.URIFromPath(oldPath)
	newURI := wspath.URIFromPath(newPath)

	replace := func(s string) string {
		s, _ = replaceRefs(s, oldURI, newURI)
		s, _ = replaceRefs(s, oldPath, newPath)
		return s
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if filepath.Base(path) == stateDatabaseName {
			rows, err := r.rewriteDatabase(path, replace)
			if err != nil {
				return err
			}
			counts.DBRows += rows
			return nil
		}

		if r.skipped(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			r.warnf("skipping unreadable file %s: %v", path, err)
			return nil
		}

		if Classify(path, content) != KindText {
			return nil
		}

		s := string(content)
		s, uriHits := replaceRefs(s, oldURI, newURI)
		s, pathHits := replaceRefs(s, oldPath, newPath)
		hits := uriHits + pathHits
		if hits == 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(s), info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		counts.TextFiles++
		counts.TextHits += hits
		return nil
	})
	if err != nil {
		return counts, err
	}

	return counts, nil
}

// rewriteDatabase rewrites matching rows of one state database inside a
// single transaction.
func (r *Rewriter) rewriteDatabase(path string, replace func(string) string) (int, error) {
	db, err := statedb.Open(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	rows, err := db.RewriteTextValues(replace)
	if err != nil {
		if errors.Is(err, statedb.ErrDatabaseLocked) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrPartialRewrite, path, err)
	}
	return rows, nil
}

func (r *Rewriter) skipped(rel string) bool {
	for _, glob := range r.SkipGlobs {
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (r *Rewriter) warnf(format string, args ...interface{}) {
	if r.Warn != nil {
		r.Warn(fmt.Sprintf(format, args...))
	}
}

// replaceRefs substitutes old with new wherever the match ends on a
// path boundary, returning the result and the substitution count. The
// boundary check keeps a reference to /home/user/proj2 intact while
// /home/user/proj is being rewritten, which also makes a second run a
// no-op when the new path extends the old one.
func replaceRefs(s, old, new string) (string, int) {
	if old == "" || old == new {
		return s, 0
	}

	var b strings.Builder
	count := 0
	i := 0
	for {
		j := strings.Index(s[i:], old)
		if j < 0 {
			break
		}
		j += i

		end := j + len(old)
		if end < len(s) && isPathChar(s[end]) {
			// The match continues into a longer segment name; a
			// different folder, not a reference to old.
			b.WriteString(s[i:end])
			i = end
			continue
		}

		b.WriteString(s[i:j])
		b.WriteString(new)
		count++
		i = end
	}
	b.WriteString(s[i:])
	return b.String(), count
}

// isPathChar reports whether c would extend the final path segment.
func isPathChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-' || c == '~' || c == '%':
		return true
	}
	return false
}
