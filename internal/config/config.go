// handles command-line flags and root directory resolution
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Config contains the server settings. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	Host string // Interface to bind; empty means all interfaces
	Port int    // TCP port (default: 8000)
	Root string // Directory to serve; empty means the entry point directory

	Compress bool // gzip responses for clients that accept it
	Watch    bool // Enable live reload over /__devserve/events
	Verbose  bool // Debug logging to stderr

	Debounce        time.Duration // File watcher debounce (default: 300ms)
	ShutdownTimeout time.Duration // Server shutdown timeout (default: 5s)
}

// Default returns the configuration used when no flags are given.
func Default() *Config {
	return &Config{
		Port:            8000,
		Debounce:        300 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ErrInvalidPort is returned for ports outside 1..65535.
var ErrInvalidPort = errors.New("invalid port")

// Load parses args (without the program name) into a Config.
// Usage errors are written to output.
func Load(args []string, output io.Writer) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("devserve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "The host/IP to bind to (empty for all interfaces)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The port to listen on")
	fs.StringVar(&cfg.Root, "root", cfg.Root, "Directory to serve (default: directory of the executable)")
	fs.BoolVar(&cfg.Compress, "compress", cfg.Compress, "Enable gzip compression")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Enable live reload via /__devserve/events")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "File watcher debounce")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log every request to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// validate rejects unusable values and clamps the rest into range
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	// Timeouts
	if c.Debounce < 10*time.Millisecond {
		c.Debounce = 10 * time.Millisecond
	}
	if c.Debounce > 5*time.Second {
		c.Debounce = 5 * time.Second
	}
	if c.ShutdownTimeout < 1*time.Second {
		c.ShutdownTimeout = 1 * time.Second
	}
	if c.ShutdownTimeout > 60*time.Second {
		c.ShutdownTimeout = 60 * time.Second
	}
	return nil
}
