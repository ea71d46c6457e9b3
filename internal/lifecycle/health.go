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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/httpclient"
)

var (
	// ErrHealthCheckTimeout is returned when the backend is not healthy in time.
	ErrHealthCheckTimeout = errors.New("health check timeout")

	// ErrHealthCheckFailed is returned when the health endpoint answers with an error status.
	ErrHealthCheckFailed = errors.New("health check failed")
)

// DefaultHealthTimeout is how long a launcher waits for a fresh backend.
const DefaultHealthTimeout = 30 * time.Second

// HealthChecker polls a backend health endpoint with exponential backoff.
type HealthChecker struct {
	endpoint        string
	method          string
	client          *http.Client
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// HealthCheckResult contains the result of a health check attempt.
type HealthCheckResult struct {
	Success      bool
	StatusCode   int
	ResponseTime time.Duration
	Error        error
}

// NewHealthChecker creates a GET health checker for endpoint.
// Default backoff: 50ms initial, 2x multiplier, 1s max interval.
func NewHealthChecker(endpoint string) *HealthChecker {
	client, err := httpclient.New(httpclient.DefaultConfig())
	if err != nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HealthChecker{
		endpoint: endpoint,
		method:   http.MethodGet,
		client:   client,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		multiplier:      2.0,
	}
}

// WithMethod switches the probe method, e.g. POST for /api/hello.
func (h *HealthChecker) WithMethod(method string) *HealthChecker {
	h.method = method
	return h
}

// WithBackoff configures custom backoff parameters.
func (h *HealthChecker) WithBackoff(initial, max time.Duration, multiplier float64) *HealthChecker {
	h.initialInterval = initial
	h.maxInterval = max
	h.multiplier = multiplier
	return h
}

// WithHTTPClient sets a custom HTTP client.
func (h *HealthChecker) WithHTTPClient(client *http.Client) *HealthChecker {
	h.client = client
	return h
}

// Endpoint returns the probed URL.
func (h *HealthChecker) Endpoint() string {
	return h.endpoint
}

// Check performs a single health check.
func (h *HealthChecker) Check(ctx context.Context) *HealthCheckResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.method, h.endpoint, nil)
	if err != nil {
		return &HealthCheckResult{Error: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := h.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return &HealthCheckResult{
			ResponseTime: elapsed,
			Error:        fmt.Errorf("request failed: %w", err),
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &HealthCheckResult{
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
	}
	if !result.Success {
		result.Error = fmt.Errorf("%w: status %d", ErrHealthCheckFailed, resp.StatusCode)
	}
	return result
}

// WaitUntilHealthy polls until the endpoint succeeds, ctx ends, or timeout
// elapses. onAttempt, when non-nil, observes every attempt.
func (h *HealthChecker) WaitUntilHealthy(ctx context.Context, timeout time.Duration, onAttempt func(*HealthCheckResult, int)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := h.initialInterval
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempts := 1; ; attempts++ {
		result := h.Check(ctx)
		if onAttempt != nil {
			onAttempt(result, attempts)
		}
		if result.Success {
			return nil
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w after %d attempts: %v", ErrHealthCheckTimeout, attempts, result.Error)
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * h.multiplier)
		if interval > h.maxInterval {
			interval = h.maxInterval
		}
	}
}
