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

package api

import (
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller/httputil"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

// HelloReply is returned by POST /api/hello, the launcher's readiness probe.
const HelloReply = "Hello from desktop-backend!"

// HealthResponse is the response format for /api/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	PID       int               `json:"pid"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionResponse is the response format for /api/version.
type VersionResponse struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// handleHealth handles GET /api/health.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{
		"api":     "ok",
		"runtime": runtime.Version(),
	}
	if r.status != nil {
		for k, v := range r.status.Checks() {
			checks[k] = v
		}
	}

	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(r.startedAt).Round(time.Second).String(),
		RunID:     r.config.RunID,
		PID:       os.Getpid(),
		Checks:    checks,
	})
}

// handleHello handles POST /api/hello. The body is an optional text message.
func (r *Router) handleHello(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 64<<10))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	r.logger.Info("received message", "message", string(body))
	httputil.WriteText(w, http.StatusOK, HelloReply)
}

// handleConfig handles GET /api/config.
func (r *Router) handleConfig(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, r.config.App)
}

// handleVersion handles GET /api/version.
func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, VersionResponse{
		App:       r.config.App.Name,
		Version:   r.config.Version,
		Commit:    r.config.Commit,
		BuildDate: r.config.BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	})
}

// handleShutdown handles POST /api/lifecycle/shutdown, sent by the shell when
// its window closes. The response is written before shutdown begins.
func (r *Router) handleShutdown(w http.ResponseWriter, req *http.Request) {
	if r.trigger == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "shutdown not available")
		return
	}
	accepted := r.trigger.Trigger(lifecycle.Reason{
		Cause:  lifecycle.CauseWindowClosed,
		Detail: "requested by " + req.RemoteAddr,
	})
	if !accepted {
		r.logger.Debug("shutdown already in progress", log.EventKey, "shutdown_request")
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}
