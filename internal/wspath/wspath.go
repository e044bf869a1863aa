// Package wspath provides workspace path normalization and file URI derivation.
package wspath

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Normalize returns the cleaned absolute form of a workspace path.
func Normalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// URIFromPath returns the file:// URI form an editor records for a
// workspace folder. Separators become forward slashes and the path is
// percent-encoded; on Windows the drive letter colon is encoded too
// (file:///c%3A/...).
func URIFromPath(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths (c:/...) need a leading slash in URI form.
		p = "/" + p
	}
	return "file://" + escapePath(p)
}

// IsCaseInsensitiveHost reports whether path comparison on this host
// should fold case. Follows the platform convention rather than probing
// the filesystem.
func IsCaseInsensitiveHost() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// escapePath percent-encodes a slash-separated path, leaving "/" and
// unreserved characters intact.
func escapePath(p string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' || isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}
