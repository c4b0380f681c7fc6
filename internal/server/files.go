package server

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ContentTypeResolver maps a file name to the Content-Type it is served with.
type ContentTypeResolver func(name string) string

// fileHandler serves GET and HEAD requests from an afero filesystem.
// Regular files are streamed directly with a resolved Content-Type;
// directories and redirects are left to http.FileServer.
type fileHandler struct {
	fs          afero.Fs
	dirs        http.Handler
	contentType ContentTypeResolver
	logger      *slog.Logger
}

func newFileHandler(root afero.Fs, resolve ContentTypeResolver, logger *slog.Logger) *fileHandler {
	return &fileHandler{
		fs:          root,
		dirs:        http.FileServer(notExistFS{afero.NewHttpFs(root).Dir("/")}),
		contentType: resolve,
		logger:      logger,
	}
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	trailingSlash := strings.HasSuffix(r.URL.Path, "/")
	name := cleanRequestPath(r.URL.Path)

	info, err := h.fs.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		if alt, altInfo, ok := h.findAlternate(name); ok {
			name, info, err = alt, altInfo, nil
			target := alt
			if trailingSlash && alt != "/" {
				target += "/"
			}
			r = withPath(r, target)
		}
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Debug("Stat failed", "path", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		index := path.Join(name, "index.html")
		hasIndex := false
		if trailingSlash {
			if ii, err := h.fs.Stat(index); err == nil && ii.Mode().IsRegular() {
				hasIndex = true
			}
		}
		if err := h.checkDir(name, trailingSlash && !hasIndex); err != nil {
			h.logger.Debug("Directory unreadable", "path", name, "error", err)
			http.NotFound(w, r)
			return
		}
		if hasIndex {
			w.Header().Set("Content-Type", h.contentType(index))
		}
		h.dirs.ServeHTTP(w, r)
		return
	}

	// FileServer canonicalizes these with a redirect.
	if trailingSlash || strings.HasSuffix(r.URL.Path, "/index.html") {
		h.dirs.ServeHTTP(w, r)
		return
	}

	h.serveFile(w, r, name, info)
}

// serveFile streams one regular file. The handle is released on every path,
// including client disconnects mid-transfer.
func (h *fileHandler) serveFile(w http.ResponseWriter, r *http.Request, name string, info os.FileInfo) {
	f, err := h.fs.Open(name)
	if err != nil {
		h.logger.Debug("Open failed", "path", name, "error", err)
		http.NotFound(w, r)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			h.logger.Warn("Failed to close file", "path", name, "error", cerr)
		}
	}()

	w.Header().Set("Content-Type", h.contentType(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// checkDir opens the directory name and, when it is about to be listed, reads
// it. FileServer would answer either failure with 403 or 500.
func (h *fileHandler) checkDir(name string, listing bool) error {
	f, err := h.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if listing {
		if _, err := f.Readdirnames(-1); err != nil {
			return err
		}
	}
	return nil
}

// findAlternate looks name up under its other Unicode normalization forms.
func (h *fileHandler) findAlternate(name string) (string, os.FileInfo, bool) {
	for _, alt := range alternateForms(name) {
		if info, err := h.fs.Stat(alt); err == nil {
			return alt, info, true
		}
	}
	return "", nil, false
}

// notExistFS reports every open failure as not-exist so FileServer answers 404
// instead of 403.
type notExistFS struct {
	http.FileSystem
}

func (n notExistFS) Open(name string) (http.File, error) {
	f, err := n.FileSystem.Open(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f, nil
}

// readOnlyMethods answers anything but GET and HEAD with 501, for every route.
func readOnlyMethods(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "501 - Unsupported method", http.StatusNotImplemented)
			return
		}
		next.ServeHTTP(w, r)
	})
}
