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

// Package signalsfx turns SIGINT/SIGTERM into a graceful stop request and a repeated signal into a hard cancel.
package signalsfx

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"go.uber.org/fx"
)

// Stopper begins a graceful shutdown. It must be safe to call more than once.
type Stopper interface {
	Stop()
}

// StopperFunc adapts a function to Stopper.
type StopperFunc func()

// Stop calls f.
func (f StopperFunc) Stop() { f() }

// Controller listens for termination signals for the lifetime of the fx app.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	logger   *slog.Logger
	notifier Notifier
	stopper  Stopper

	mu       sync.Mutex
	sigCh    chan os.Signal
	received int
	wg       sync.WaitGroup
}

type controllerIn struct {
	fx.In

	Ctx    context.Context
	Cancel context.CancelFunc

	Logger   *slog.Logger
	Notifier Notifier
	Stopper  Stopper
}

// NewController wires a Controller from its fx dependencies.
func NewController(in controllerIn) *Controller {
	return &Controller{
		ctx:      in.Ctx,
		cancel:   in.Cancel,
		logger:   in.Logger,
		notifier: in.Notifier,
		stopper:  in.Stopper,
	}
}

// Start subscribes to SIGINT and SIGTERM.
func (c *Controller) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sigCh != nil {
		return nil
	}

	sigCh := make(chan os.Signal, 8)
	c.sigCh = sigCh
	c.notifier.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(sigCh)
	}()

	return nil
}

// Stop unsubscribes and waits for the listener goroutine.
func (c *Controller) Stop(_ context.Context) error {
	c.mu.Lock()
	sigCh := c.sigCh
	c.sigCh = nil
	c.mu.Unlock()

	if sigCh != nil {
		c.notifier.Stop(sigCh)
		close(sigCh)
	}

	c.wg.Wait()

	return nil
}

// Received returns how many termination signals were handled.
func (c *Controller) Received() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.received
}

func (c *Controller) loop(sigCh <-chan os.Signal) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			c.mu.Lock()
			c.received++
			n := c.received
			c.mu.Unlock()

			if n == 1 {
				level.Info(c.logger).Log(definitions.LogKeyMsg, "Received termination signal, draining", "signal", sig.String())

				if c.stopper != nil {
					c.stopper.Stop()
				}

				continue
			}

			level.Warn(c.logger).Log(definitions.LogKeyMsg, "Received repeated termination signal, aborting", "signal", sig.String())
			c.cancel()

			return
		}
	}
}
