package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Values of the headers attached to every response.
const (
	CacheControl = "no-store, no-cache, must-revalidate"
	AllowOrigin  = "*"
)

// HeaderHook edits the response headers right before they are sent.
type HeaderHook func(http.Header)

// FixedHeaders disables caching and allows any origin.
func FixedHeaders(h http.Header) {
	h.Set("Cache-Control", CacheControl)
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
}

// hookWriter runs its hook exactly once, when the header section is finalized.
// Handlers that delete headers on error paths (http.FileServer drops
// Cache-Control before writing a 404) cannot undo it.
type hookWriter struct {
	http.ResponseWriter
	hook        HeaderHook
	status      int
	wroteHeader bool
}

func (w *hookWriter) WriteHeader(code int) {
	if w.wroteHeader {
		// Superfluous call; net/http reports it.
		w.ResponseWriter.WriteHeader(code)
		return
	}
	// 1xx responses are not final and may be followed by the real header.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.status = code
	w.hook(w.Header())
	w.ResponseWriter.WriteHeader(code)
}

func (w *hookWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *hookWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *hookWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withHeaderHook applies hook to every response of next and logs the
// outcome at debug level.
func withHeaderHook(next http.Handler, hook HeaderHook, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hw := &hookWriter{ResponseWriter: w, hook: hook}
		next.ServeHTTP(hw, r)
		if !hw.wroteHeader {
			hw.WriteHeader(http.StatusOK)
		}
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", hw.status,
			"duration", time.Since(start),
		)
	})
}
