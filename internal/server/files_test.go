package server

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/devserve/internal/config"
	"github.com/Kush-Singh-26/devserve/internal/testutil"
)

// lockedFs fails opens of the paths in deny, and listings of the paths in
// noList, while Stat keeps succeeding.
type lockedFs struct {
	afero.Fs
	deny   map[string]bool
	noList map[string]bool
}

func (l lockedFs) Open(name string) (afero.File, error) {
	if l.deny[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	f, err := l.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	if l.noList[name] {
		return unlistableFile{f}, nil
	}
	return f, nil
}

type unlistableFile struct {
	afero.File
}

var errListDenied = errors.New("readdir: permission denied")

func (unlistableFile) Readdir(int) ([]fs.FileInfo, error) { return nil, errListDenied }
func (unlistableFile) Readdirnames(int) ([]string, error) { return nil, errListDenied }

func TestUnreadableDirectories(t *testing.T) {
	mem := testutil.CreateTestRoot(t, map[string][]byte{
		"locked/secret.txt":    []byte("s"),
		"sealed/secret.txt":    []byte("s"),
		"indexed/index.html":   []byte("<p>ok</p>"),
		"visible/readme.txt":   []byte("r"),
		"locked.mp3/README.md": []byte("odd dir name"),
	})
	root := lockedFs{
		Fs:     mem,
		deny:   map[string]bool{"/locked": true, "/locked.mp3": true},
		noList: map[string]bool{"/sealed": true, "/indexed": true},
	}
	s := newTestServer(t, nil, root)

	tests := []struct {
		target string
		want   int
	}{
		{target: "/locked/", want: http.StatusNotFound},
		{target: "/locked", want: http.StatusNotFound},
		{target: "/locked.mp3/", want: http.StatusNotFound},
		{target: "/sealed/", want: http.StatusNotFound},
		// The index is served without listing the directory.
		{target: "/indexed/", want: http.StatusOK},
		{target: "/visible/", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.want, rec.Body.String())
			}
			assertFixedHeaders(t, rec.Header())
		})
	}
}

func TestNotExistFS(t *testing.T) {
	root := lockedFs{
		Fs:   testutil.CreateTestRoot(t, map[string][]byte{"song.mp3": testutil.SongBytes}),
		deny: map[string]bool{"/song.mp3": true},
	}
	hfs := notExistFS{afero.NewHttpFs(root).Dir("/")}

	if _, err := hfs.Open("/song.mp3"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(denied) error = %v, want not-exist", err)
	}

	// FileServer handles the trailing-slash form of a regular file itself.
	s := newTestServer(t, nil, root)
	rec := do(s, http.MethodGet, "/song.mp3/", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUnsupportedMethod_ReloadRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.Watch = true
	s := newTestServer(t, cfg, testutil.CreateGameRoot(t))
	defer s.broker.Close()

	for _, target := range []string{"/__devserve/events", "/__devserve/reload.js", "/song.mp3"} {
		for _, method := range []string{http.MethodPost, http.MethodDelete} {
			t.Run(method+" "+target, func(t *testing.T) {
				req := httptest.NewRequest(method, target, strings.NewReader("x"))
				rec := httptest.NewRecorder()
				s.ServeHTTP(rec, req)

				if rec.Code != http.StatusNotImplemented {
					t.Fatalf("status = %d, want 501", rec.Code)
				}
				testutil.AssertHeader(t, rec.Header(), "Allow", "GET, HEAD")
				assertFixedHeaders(t, rec.Header())
			})
		}
	}
}
