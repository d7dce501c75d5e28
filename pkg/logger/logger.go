// Package logger wires zerolog for the whole process. Everything is
// written to stderr (and optionally a file): stdout may be carrying the
// newline-framed protocol stream, so diagnostics must never touch it.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures the process logger once at startup.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values fall back
	// to info.
	Level string
	// Format is "console" for human-readable output or "json" (default).
	Format string
	// Dir, when non-empty, adds a file sink at Dir/server.log alongside
	// stderr.
	Dir string
	// ServerName is stamped on every event.
	ServerName string
}

var (
	mu      sync.Mutex
	root    zerolog.Logger
	sink    *os.File
	isReady bool
)

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init builds the process logger. Safe to call more than once; the last
// call wins. The returned logger is the same value later calls to L
// observe, so callers can hold it explicitly rather than going through
// the package.
func Init(opts Options) (zerolog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(parseLevel(opts.Level))

	var out io.Writer = os.Stderr
	if strings.ToLower(opts.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	writers := []io.Writer{out}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return zerolog.Logger{}, err
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, "server.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		if sink != nil {
			sink.Close()
		}
		sink = f
		writers = append(writers, f)
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).With().Timestamp()
	if opts.ServerName != "" {
		ctx = ctx.Str("server", opts.ServerName)
	}
	root = ctx.Logger()
	isReady = true
	return root, nil
}

// L returns the process logger. Before Init it returns a usable logger
// writing to stderr at the default level, so early startup paths and
// tests never log into the void.
func L() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !isReady {
		root = zerolog.New(os.Stderr).With().Timestamp().Logger()
		isReady = true
	}
	return root
}

// With returns a child logger carrying a component field, the shape
// every subsystem (dispatcher, engine, bridge) is handed at wiring time.
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// Close releases the file sink, if one was opened. Called at shutdown.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

// Debug starts a debug-level event on the process logger.
func Debug() *zerolog.Event { l := L(); return l.Debug() }

// Info starts an info-level event on the process logger.
func Info() *zerolog.Event { l := L(); return l.Info() }

// Warn starts a warn-level event on the process logger.
func Warn() *zerolog.Event { l := L(); return l.Warn() }

// Error starts an error-level event on the process logger.
func Error() *zerolog.Event { l := L(); return l.Error() }
