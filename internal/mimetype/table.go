// Package mimetype resolves response content types from file names.
package mimetype

import (
	"mime"
	"path"
	"strings"
)

// Fallback is returned when no mapping exists for an extension.
const Fallback = "application/octet-stream"

// Audio is the content type forced for .mp3 files.
const Audio = "audio/mpeg"

// Table maps file extensions to content types.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	overrides map[string]string
}

// New builds a table on top of the system defaults. Overrides win over
// the defaults; keys are extensions including the leading dot.
func New(overrides map[string]string) *Table {
	t := &Table{overrides: make(map[string]string, len(overrides))}
	for ext, typ := range overrides {
		t.overrides[ext] = typ
	}
	return t
}

// Default returns the table served by devserve: system defaults plus .mp3.
func Default() *Table {
	return New(map[string]string{".mp3": Audio})
}

// Lookup returns the content type registered for ext.
func (t *Table) Lookup(ext string) (string, bool) {
	if ext == "" {
		return "", false
	}
	if typ, ok := t.overrides[ext]; ok {
		return typ, true
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ, true
	}
	return "", false
}

// Resolve returns the content type for a file name. Names ending in .mp3
// are always audio/mpeg; anything unknown is application/octet-stream.
func (t *Table) Resolve(name string) string {
	if strings.HasSuffix(name, ".mp3") {
		return Audio
	}
	if typ, ok := t.Lookup(path.Ext(name)); ok {
		return typ
	}
	return Fallback
}
