// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package log builds the process-wide slog logger used by the bot and the classifier.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/color"

	"github.com/mattn/go-isatty"
)

var (
	mu sync.Mutex

	// Logger is used for all messages that are printed to stdout.
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
)

// Options describes how SetupLogging renders records.
type Options struct {
	Level      string
	FormatJSON bool
	ColorMode  string
	Theme      string
	Instance   string
	Output     io.Writer
}

// Config is the "log" section of a configuration file.
type Config struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=none off error warn warning info debug"`
	JSON  bool   `mapstructure:"json"`
	Color string `mapstructure:"color" validate:"omitempty,oneof=auto always never"`
	Theme string `mapstructure:"theme" validate:"omitempty,oneof=light dark"`
}

// DefaultConfig logs at info level, colored when stdout is a terminal.
func DefaultConfig() Config {
	return Config{
		Level: "info",
		Color: definitions.ColorAuto,
		Theme: "light",
	}
}

// Options converts the section into SetupLogging options.
func (c Config) Options(instance string) Options {
	return Options{
		Level:      c.Level,
		FormatJSON: c.JSON,
		ColorMode:  c.Color,
		Theme:      c.Theme,
		Instance:   instance,
	}
}

// SetupLogging initializes the global Logger and returns it.
func SetupLogging(opts Options) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler

	lvl, enabled := ParseLevel(opts.Level)
	if !enabled {
		handler = slog.NewTextHandler(io.Discard, nil)
	} else {
		handlerOpts := &slog.HandlerOptions{Level: lvl}

		switch {
		case opts.FormatJSON:
			handler = slog.NewJSONHandler(out, handlerOpts)
		case UseColor(opts.ColorMode, out):
			handler = color.NewLineWrapper(out, handlerOpts, color.ThemeColorMap(opts.Theme))
		default:
			handler = slog.NewTextHandler(out, handlerOpts)
		}
	}

	logger := slog.New(handler)
	if opts.Instance != "" {
		logger = logger.With(definitions.LogKeyInstance, opts.Instance)
	}

	Logger = logger

	return logger
}

// ParseLevel maps a level name to a slog level. "none" reports enabled=false.
func ParseLevel(name string) (lvl slog.Level, enabled bool) {
	switch LevelFromName(name) {
	case definitions.LogLevelNone:
		return slog.LevelError, false
	case definitions.LogLevelError:
		return slog.LevelError, true
	case definitions.LogLevelWarn:
		return slog.LevelWarn, true
	case definitions.LogLevelDebug:
		return slog.LevelDebug, true
	default:
		return slog.LevelInfo, true
	}
}

// LevelFromName converts a configured level name into one of the definitions.LogLevel* values.
func LevelFromName(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off":
		return definitions.LogLevelNone
	case "error":
		return definitions.LogLevelError
	case "warn", "warning":
		return definitions.LogLevelWarn
	case "debug":
		return definitions.LogLevelDebug
	default:
		return definitions.LogLevelInfo
	}
}

// UseColor decides whether to color output for the given mode. NO_COLOR always wins.
func UseColor(mode string, out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	switch strings.ToLower(mode) {
	case definitions.ColorAlways:
		return true
	case definitions.ColorNever:
		return false
	}

	f, ok := out.(*os.File)
	if !ok {
		return false
	}

	return IsTTY(f)
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
