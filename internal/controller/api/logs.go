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
	"bufio"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller/httputil"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

const (
	// LogFileName is the application log inside the logs directory.
	LogFileName = "app.log"

	// DefaultRecentLines is used when ?lines is absent.
	DefaultRecentLines = 100

	maxRecentLines = 10000
)

// RecentLogsResponse is the response format for /api/logs/recent.
type RecentLogsResponse struct {
	Lines  []string `json:"lines"`
	Exists bool     `json:"exists"`
	Total  int      `json:"total,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// handleLogsPath handles GET /api/logs/path.
func (r *Router) handleLogsPath(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"path": r.config.LogsDir})
}

// handleLogsRecent handles GET /api/logs/recent?lines=N.
func (r *Router) handleLogsRecent(w http.ResponseWriter, req *http.Request) {
	n := DefaultRecentLines
	if raw := req.URL.Query().Get("lines"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			httputil.WriteError(w, http.StatusBadRequest, "lines must be a non-negative integer")
			return
		}
		n = min(v, maxRecentLines)
	}

	lines, total, err := tailFile(filepath.Join(r.config.LogsDir, LogFileName), n)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		httputil.WriteJSON(w, http.StatusOK, RecentLogsResponse{Lines: []string{}})
	case err != nil:
		r.logger.Error("failed to read logs", log.Error(err))
		httputil.WriteJSON(w, http.StatusOK, RecentLogsResponse{Lines: []string{}, Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusOK, RecentLogsResponse{Lines: lines, Exists: true, Total: total})
	}
}

// tailFile returns the last n lines of path and the total line count.
func tailFile(path string, n int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		total++
		if n == 0 {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return ring, total, nil
}
