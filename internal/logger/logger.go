// Package logger builds the structured logger used across phpbc.
//
// Terminals get a compact colored handler; everything else gets slog's
// logfmt-style text handler so logs stay greppable in CI.
package logger

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options configures New.
type Options struct {
	Verbose bool // enable debug records
	Quiet   bool // only warnings and errors
	// NoColor disables color even on a terminal. NO_COLOR in the
	// environment has the same effect.
	NoColor bool
}

// Level returns the minimum level for the given verbosity flags.
// Verbose wins over Quiet.
func (o Options) Level() slog.Level {
	switch {
	case o.Verbose:
		return slog.LevelDebug
	case o.Quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	if IsTerminal(w) {
		return slog.New(newTerminalHandler(w, opts))
	}
	return slog.New(newTextHandler(w, opts.Level()))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorDisabled reports whether NO_COLOR asks for plain output.
func ColorDisabled() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				lvl, ok := a.Value.Any().(slog.Level)
				if ok {
					return slog.String(a.Key, strings.ToLower(lvl.String()))
				}
			}
			return a
		},
	})
}

func newTerminalHandler(w io.Writer, opts Options) slog.Handler {
	level := opts.Level()
	return tint.NewHandler(w, &tint.Options{
		NoColor:   opts.NoColor || ColorDisabled() || runtime.GOOS == "windows",
		AddSource: level <= slog.LevelDebug,
		Level:     level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}
