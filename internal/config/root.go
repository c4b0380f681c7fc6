package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveRoot returns the absolute directory to serve. An explicit path wins;
// otherwise it is the directory holding the entry point, independent of the
// working directory the process was started from.
func ResolveRoot(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		var err error
		if dir, err = entryDir(); err != nil {
			return "", err
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid root directory: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return "", fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root directory %s is not a directory", absDir)
	}
	return absDir, nil
}

func entryDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	dir := filepath.Dir(exe)
	// `go run` executes from a throwaway build dir; serve the sources instead.
	if isBuildCacheDir(dir) {
		if src, ok := mainSourceDir(); ok {
			return src, nil
		}
	}
	return dir, nil
}

// isBuildCacheDir reports whether dir looks like $TMPDIR/go-buildNNN/...
func isBuildCacheDir(dir string) bool {
	tmp := filepath.Clean(os.TempDir())
	if resolved, err := filepath.EvalSymlinks(tmp); err == nil {
		tmp = resolved
	}
	rel, err := filepath.Rel(tmp, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return strings.HasPrefix(rel, "go-build")
}

// mainSourceDir finds the directory of main.main's source file on the stack.
func mainSourceDir() (string, bool) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function == "main.main" && filepath.IsAbs(frame.File) {
			return filepath.Dir(frame.File), true
		}
		if !more {
			return "", false
		}
	}
}
