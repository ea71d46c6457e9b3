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

// Package api provides the HTTP API the desktop shell talks to.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/config"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller/middleware"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

// ShutdownTrigger is satisfied by *lifecycle.Coordinator.
type ShutdownTrigger interface {
	Trigger(reason lifecycle.Reason) bool
}

// StatusProvider reports lifecycle component state for /api/health.
type StatusProvider interface {
	Checks() map[string]string
}

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	App       config.AppDescriptor
	LogsDir   string
	RunID     string
	Version   string
	Commit    string
	BuildDate string

	// CORS defaults to middleware.DefaultCORSConfig.
	CORS *middleware.CORSConfig
}

// Router wraps an http.ServeMux with the backend endpoints.
type Router struct {
	mux       *http.ServeMux
	handler   http.Handler
	config    RouterConfig
	trigger   ShutdownTrigger
	status    StatusProvider
	logger    *slog.Logger
	startedAt time.Time
}

// NewRouter creates a router with all API endpoints.
func NewRouter(cfg RouterConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Router{
		mux:       http.NewServeMux(),
		config:    cfg,
		logger:    logger,
		startedAt: time.Now(),
	}

	r.mux.HandleFunc("GET /api/health", r.handleHealth)
	r.mux.HandleFunc("POST /api/hello", r.handleHello)
	r.mux.HandleFunc("GET /api/config", r.handleConfig)
	r.mux.HandleFunc("GET /api/version", r.handleVersion)
	r.mux.HandleFunc("GET /api/logs/path", r.handleLogsPath)
	r.mux.HandleFunc("GET /api/logs/recent", r.handleLogsRecent)
	r.mux.HandleFunc("POST /api/lifecycle/shutdown", r.handleShutdown)

	cors := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		cors = *cfg.CORS
	}
	r.handler = middleware.CORS(cors)(log.HTTPMiddleware(logger)(r.mux))
	return r
}

// SetShutdownTrigger wires the window-close endpoint to the coordinator.
func (r *Router) SetShutdownTrigger(t ShutdownTrigger) {
	r.trigger = t
}

// SetStatusProvider adds lifecycle checks to /api/health.
func (r *Router) SetStatusProvider(p StatusProvider) {
	r.status = p
}

// SetMetricsHandler exposes a Prometheus handler at /metrics.
func (r *Router) SetMetricsHandler(h http.Handler) {
	if h != nil {
		r.mux.Handle("GET /metrics", h)
	}
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}
