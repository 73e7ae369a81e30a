// Copyright (C) 2025 Christian Rößner
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

package logfx

import (
	"bytes"
	"context"
	stdlog "log"
	"log/slog"

	"github.com/AnkitShukla-arch/ddos-simulation/log"

	"go.uber.org/fx"
)

// Module provides the global slog logger and bridges the stdlib logger into it.
var Module = fx.Module("logfx",
	fx.Provide(NewLogger),
	fx.Invoke(BridgeStdLog),
)

// NewLogger returns the logger configured by log.SetupLogging.
func NewLogger() *slog.Logger {
	return log.Logger
}

// BridgeStdLog redirects the stdlib log package (used by net/http and gin internals) to logger.
func BridgeStdLog(lc fx.Lifecycle, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if logger == nil {
				return nil
			}

			stdlog.SetFlags(0)
			stdlog.SetOutput(&slogStdWriter{logger: logger})

			return nil
		},
	})
}

type slogStdWriter struct {
	logger *slog.Logger
}

func (w *slogStdWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(bytes.TrimRight(p, "\n")), slog.String("origin", "stdlib"))

	return len(p), nil
}
