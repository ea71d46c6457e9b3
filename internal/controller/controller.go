// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/config"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller/api"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller/listener"
	internallog "github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

// ErrAlreadyStarted is returned by a second Start call.
var ErrAlreadyStarted = errors.New("controller already started")

// Options contains controller options set at build time.
type Options struct {
	Version   string
	Commit    string
	BuildDate string
}

// Deps are the runtime collaborators exposed through the API.
type Deps struct {
	LogsDir string
	RunID   string
	Trigger api.ShutdownTrigger
	Status  api.StatusProvider
	Logger  *slog.Logger
}

// Controller owns the HTTP server and its listener.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger
	router *api.Router
	server *http.Server

	mu      sync.Mutex
	ln      net.Listener
	errCh   chan error
	started bool
}

// New creates a controller. The listener is not bound until Start.
func New(cfg *config.Config, opts Options, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = internallog.Discard()
	}
	logger = internallog.WithComponent(logger, "http")

	router := api.NewRouter(api.RouterConfig{
		App:       cfg.App,
		LogsDir:   deps.LogsDir,
		RunID:     deps.RunID,
		Version:   opts.Version,
		Commit:    opts.Commit,
		BuildDate: opts.BuildDate,
	}, logger)
	if deps.Trigger != nil {
		router.SetShutdownTrigger(deps.Trigger)
	}
	if deps.Status != nil {
		router.SetStatusProvider(deps.Status)
	}
	router.SetMetricsHandler(promhttp.Handler())

	readHeaderTimeout := cfg.Server.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}

	return &Controller{
		cfg:    cfg,
		logger: logger,
		router: router,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		errCh: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
// It returns the bound port once the socket accepts connections.
func (c *Controller) Start(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return 0, ErrAlreadyStarted
	}

	ln, err := listener.New(listener.Config{
		Host:        c.cfg.Server.Host,
		Port:        c.cfg.Server.Port,
		AllowRemote: c.cfg.Server.AllowRemote,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create listener: %w", err)
	}
	c.ln = ln
	c.started = true
	c.server.BaseContext = func(net.Listener) context.Context { return ctx }

	port := listener.Port(ln)
	c.logger.Info("http server listening",
		slog.String("addr", ln.Addr().String()),
		internallog.Port(port))

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.errCh <- err
		}
		close(c.errCh)
	}()
	return port, nil
}

// Errors receives a serve error, if any. It is closed when serving stops.
func (c *Controller) Errors() <-chan error {
	return c.errCh
}

// Addr returns the bound address, or nil before Start.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return nil
	}
	return c.ln.Addr()
}

// Handler returns the API handler.
func (c *Controller) Handler() http.Handler {
	return c.router
}

// Shutdown drains in-flight requests within the configured shutdown timeout.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	timeout := c.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.Warn("http drain incomplete, closing connections", internallog.Error(err))
		_ = c.server.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	c.logger.Info("http server stopped")
	return nil
}
