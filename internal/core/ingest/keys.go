package ingest

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// originalKey lays out the storage key for an original upload. The document
// ID keeps keys unique per upload even when a user re-uploads the same file.
func originalKey(ownerID, docID, fileName string) string {
	return path.Join("documents", ownerID, docID, sanitizeFileName(fileName))
}

func previewKey(ownerID, docID string, page int) string {
	return path.Join("previews", ownerID, docID, fmt.Sprintf("page-%d.jpg", page))
}

// sanitizeFileName strips path components and spaces from a client-supplied
// file name before it becomes part of a storage key.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}
