package store

import (
	"fmt"
	"os"
)

// KeywordBackend selects the keyword index implementation.
type KeywordBackend string

const (
	// KeywordBackendFTS5 uses SQLite FTS5 (default). WAL mode allows
	// concurrent multi-process access.
	KeywordBackendFTS5 KeywordBackend = "fts5"

	// KeywordBackendBleve uses Bleve v2. BoltDB holds an exclusive file
	// lock, single process only.
	KeywordBackendBleve KeywordBackend = "bleve"
)

// NewKeywordIndex creates a KeywordIndex for the given backend. basePath is
// the path without extension; .db or .bleve is appended per backend. An
// empty basePath creates an in-memory index for testing.
func NewKeywordIndex(basePath string, backend string) (KeywordIndex, error) {
	switch backend {
	case string(KeywordBackendFTS5), "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewFTSIndex(path)

	case string(KeywordBackendBleve):
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveIndex(path)

	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (valid options: fts5, bleve)", backend)
	}
}

// DetectKeywordBackend detects which backend an existing index uses based on
// file existence. Returns empty when no index exists yet.
func DetectKeywordBackend(basePath string) KeywordBackend {
	if info, err := os.Stat(basePath + ".db"); err == nil && !info.IsDir() {
		return KeywordBackendFTS5
	}
	if info, err := os.Stat(basePath + ".bleve"); err == nil && info.IsDir() {
		return KeywordBackendBleve
	}
	return ""
}
