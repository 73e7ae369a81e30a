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

// Package level offers the go-kit style call pattern level.Info(logger).Log("msg", "text", "k", v)
// on top of log/slog. Keys must be strings; a string value under "msg" becomes the record message.
package level

import (
	"context"
	"log/slog"
	"reflect"
)

// Logger is the keyvals logging surface returned by the level constructors.
type Logger interface {
	Log(keyvals ...any) error
}

type leveled struct {
	l   *slog.Logger
	lvl slog.Level
}

// Debug returns a Logger that emits on slog.LevelDebug.
func Debug(l *slog.Logger) Logger { return newLeveled(l, slog.LevelDebug) }

// Info returns a Logger that emits on slog.LevelInfo.
func Info(l *slog.Logger) Logger { return newLeveled(l, slog.LevelInfo) }

// Warn returns a Logger that emits on slog.LevelWarn.
func Warn(l *slog.Logger) Logger { return newLeveled(l, slog.LevelWarn) }

// Error returns a Logger that emits on slog.LevelError.
func Error(l *slog.Logger) Logger { return newLeveled(l, slog.LevelError) }

func newLeveled(l *slog.Logger, lvl slog.Level) Logger {
	if l == nil {
		l = slog.Default()
	}

	return &leveled{l: l, lvl: lvl}
}

// Log implements Logger. Pairs with non-string keys and a trailing odd key are dropped.
func (s *leveled) Log(keyvals ...any) error {
	ctx := context.Background()
	if !s.l.Enabled(ctx, s.lvl) {
		return nil
	}

	var msg string

	attrs := make([]slog.Attr, 0, len(keyvals)/2)

	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}

		value := keyvals[i+1]

		if key == "msg" {
			if text, isString := value.(string); isString {
				msg = text

				continue
			}
		}

		if isTypedNil(value) {
			attrs = append(attrs, slog.String(key, "<nil>"))

			continue
		}

		attrs = append(attrs, slog.Any(key, value))
	}

	if msg == "" {
		msg = defaultMessage(s.lvl)
	}

	s.l.LogAttrs(ctx, s.lvl, msg, attrs...)

	return nil
}

// isTypedNil guards slog.Any against nil pointers wrapped in interfaces (e.g. a nil error value).
func isTypedNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func defaultMessage(lvl slog.Level) string {
	switch lvl {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}
