package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/app/logfx"
	"github.com/AnkitShukla-arch/ddos-simulation/app/signalsfx"
	"github.com/AnkitShukla-arch/ddos-simulation/bot/engine"
	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
	"github.com/AnkitShukla-arch/ddos-simulation/monitoring"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const stopTimeout = 10 * time.Second

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

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("trafficbot", pflag.ContinueOnError)
	engine.RegisterFlags(fs)

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

	cfg, err := engine.LoadConfig(configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		return 1
	}

	logger := log.SetupLogging(cfg.Log.Options(cfg.Instance))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eng *engine.Engine

	fApp := fx.New(
		fx.WithLogger(func() fxevent.Logger { return logfx.NewFxEventLogger(logger) }),
		rootContextOption(ctx, cancel),
		fx.Supply(cfg, cfg.Tracing),
		logfx.Module,
		monitoring.Module,
		engine.Module,
		fx.Provide(func(e *engine.Engine) signalsfx.Stopper { return e }),
		signalsfx.Module(),
		fx.Invoke(runEngine),
		fx.Populate(&eng),
	)

	if err = fApp.Start(context.Background()); err != nil {
		level.Error(logger).Log(definitions.LogKeyMsg, "Unable to start the traffic bot", definitions.LogKeyError, err)

		return 1
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err = fApp.Stop(stopCtx); err != nil {
		level.Error(logger).Log(definitions.LogKeyMsg, "Shutdown incomplete", definitions.LogKeyError, err)
	}

	stats, runErr := eng.Result()

	engine.WriteReport(os.Stdout, stats)

	if runErr != nil {
		return 1
	}

	return 0
}

// runEngine starts the run with the application and cancels the root context once it has finished, which lets main
// stop the fx app.
func runEngine(lc fx.Lifecycle, e *engine.Engine, ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer cancel()

				if _, err := e.Run(ctx); err != nil {
					level.Error(logger).Log(
						definitions.LogKeyMsg, "Traffic engine finished with error",
						definitions.LogKeyRunID, string(e.RunID),
						definitions.LogKeyError, err,
					)
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			e.Stop()

			select {
			case <-e.Done():
			case <-stopCtx.Done():
				cancel()
				<-e.Done()
			}

			return nil
		},
	})
}
