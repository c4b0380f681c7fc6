package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/Kush-Singh-26/devserve/internal/config"
	"github.com/Kush-Singh-26/devserve/internal/mimetype"
	"github.com/Kush-Singh-26/devserve/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printError(stderr, err)
		return 2
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	root, err := config.ResolveRoot(cfg.Root)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	cfg.Root = root

	ln, err := server.Listen(cfg)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	port := cfg.Port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	_, _ = fmt.Fprintf(stdout, "🌐 Serving at port %s\n", color.CyanString("%d", port))
	_, _ = fmt.Fprintf(stdout, "📁 Current directory: %s\n", root)
	if cfg.Watch {
		_, _ = fmt.Fprintln(stdout, "   (Auto-reload enabled via /__devserve/events)")
	}
	if cfg.Compress {
		_, _ = fmt.Fprintln(stdout, "   (gzip compression enabled)")
	}

	srv := server.New(cfg, server.NewRootFs(root), mimetype.Default(), logger)
	if err := srv.Serve(ctx, ln); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed).Fprintf(w, "❌ Error: %v\n", err)
}
