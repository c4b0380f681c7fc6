// Package testutil provides testing utilities and fixtures
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// SongBytes is a tiny stand-in for an MP3 payload (ID3 header plus frame sync).
var SongBytes = []byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFB, 0x90, 0x64}

// CreateTestRoot creates an in-memory root filesystem with the given files.
// Keys are slash-separated paths relative to the root.
func CreateTestRoot(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(filepath.FromSlash("/"+path)), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := afero.WriteFile(fs, "/"+path, content, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return fs
}

// CreateGameRoot creates the layout of a small browser game.
func CreateGameRoot(t *testing.T) afero.Fs {
	t.Helper()
	return CreateTestRoot(t, map[string][]byte{
		"index.html":      []byte("<!doctype html><title>Roach</title><script src=\"game.js\"></script>"),
		"game.js":         []byte("const game = new Game();\n"),
		"song.mp3":        SongBytes,
		"sfx/slipper.mp3": SongBytes,
		"notes/todo.txt":  []byte("add shockwave particles\n"),
	})
}

// CreateTempRoot writes files into a fresh directory on disk and returns it.
func CreateTempRoot(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(full, content, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return dir
}

// AssertHeader checks that a header has exactly the expected value.
func AssertHeader(t *testing.T, h http.Header, key, want string) {
	t.Helper()
	got := h.Values(key)
	if len(got) != 1 || got[0] != want {
		t.Errorf("header %s = %q, want exactly %q", key, got, want)
	}
}
