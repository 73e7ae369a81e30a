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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/AnkitShukla-arch/ddos-simulation/app/logfx"
	"github.com/AnkitShukla-arch/ddos-simulation/app/signalsfx"
	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
	"github.com/AnkitShukla-arch/ddos-simulation/model/config"
	"github.com/AnkitShukla-arch/ddos-simulation/model/detector"
	"github.com/AnkitShukla-arch/ddos-simulation/model/handler"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/metrics"
	"github.com/AnkitShukla-arch/ddos-simulation/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func rootContextOption(ctx context.Context, cancel context.CancelFunc) fx.Option {
	return fx.Provide(
		func() context.Context {
			return ctx
		},
		func() context.CancelFunc {
			return cancel
		},
	)
}

// main starts the classifier HTTP service and blocks until it is signaled.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("classifier", pflag.ContinueOnError)
	config.RegisterFlags(fs)

	showVersion := fs.BoolP("version", "V", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 2
	}

	if *showVersion {
		fmt.Println(monitoring.Version)

		return 0
	}

	configPath, _ := fs.GetString("config")

	cfg, err := config.Load(configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	logger := log.SetupLogging(cfg.Log.Options(cfg.Instance))

	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fApp := fx.New(
		fx.WithLogger(func() fxevent.Logger { return logfx.NewFxEventLogger(logger) }),
		rootContextOption(ctx, cancel),
		fx.Supply(cfg, cfg.Tracing),
		logfx.Module,
		monitoring.Module,
		fx.Provide(
			newDetector,
			metrics.New,
			func(m *metrics.Metrics) handler.VerdictObserver { return m },
			handler.New,
			handler.NewRouter,
			func(cancel context.CancelFunc) signalsfx.Stopper { return signalsfx.StopperFunc(cancel) },
		),
		signalsfx.Module(),
		fx.Invoke(registerHTTPServer),
	)

	if err = fApp.Start(context.Background()); err != nil {
		level.Error(logger).Log(definitions.LogKeyMsg, "Unable to start the classifier", definitions.LogKeyError, err)

		return 1
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()

	if err = fApp.Stop(stopCtx); err != nil {
		level.Error(logger).Log(definitions.LogKeyMsg, "Shutdown incomplete", definitions.LogKeyError, err)

		return 1
	}

	return 0
}

func newDetector(cfg *config.Config) *detector.Detector {
	return detector.New(cfg.Rules)
}

// registerHTTPServer serves router on the configured address. A failing listener cancels the root context.
func registerHTTPServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine, cancel context.CancelFunc, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return err
			}

			level.Info(logger).Log(
				definitions.LogKeyMsg, "Classifier listening",
				definitions.LogKeySource, definitions.SourceClassifier,
				"address", ln.Addr().String(),
			)

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					level.Error(logger).Log(definitions.LogKeyMsg, "HTTP server failed", definitions.LogKeyError, err)
					cancel()
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			level.Info(logger).Log(definitions.LogKeyMsg, "Shutting down classifier")

			return srv.Shutdown(stopCtx)
		},
	})
}
