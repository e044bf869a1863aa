package rewrite

import (
	"bytes"
	"path/filepath"
	"unicode/utf8"
)

// Kind labels a state directory entry for rewrite dispatch.
type Kind string

const (
	// KindText is plain text or JSON, rewritten by literal substitution.
	KindText Kind = "text"
	// KindDatabase is the embedded state database, rewritten row by row.
	KindDatabase Kind = "database"
	// KindBinary is anything else; never touched.
	KindBinary Kind = "binary"
)

// stateDatabaseName is the editor's embedded key-value database file.
const stateDatabaseName = "state.vscdb"

// Classify labels a file by name and content. Every file gets exactly
// one kind; the rewriter dispatches on it.
func Classify(path string, content []byte) Kind {
	if filepath.Base(path) == stateDatabaseName {
		return KindDatabase
	}
	if isText(content) {
		return KindText
	}
	return KindBinary
}

// isText reports whether content is NUL-free valid UTF-8.
func isText(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return false
	}
	return utf8.Valid(content)
}
