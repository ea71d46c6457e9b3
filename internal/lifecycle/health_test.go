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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHealthChecker_Check(t *testing.T) {
	t.Run("returns success for healthy endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		result := NewHealthChecker(server.URL).Check(context.Background())

		if !result.Success {
			t.Errorf("Check() success = false, want true (error: %v)", result.Error)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("Check() status = %d, want %d", result.StatusCode, http.StatusOK)
		}
	})

	t.Run("returns failure for unhealthy endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		result := NewHealthChecker(server.URL).Check(context.Background())

		if result.Success {
			t.Error("Check() success = true, want false")
		}
		if !errors.Is(result.Error, ErrHealthCheckFailed) {
			t.Errorf("Check() error = %v, want ErrHealthCheckFailed", result.Error)
		}
	})

	t.Run("returns error for connection failure", func(t *testing.T) {
		result := NewHealthChecker("http://127.0.0.1:1/api/health").Check(context.Background())

		if result.Success {
			t.Error("Check() success = true, want false")
		}
		if result.Error == nil {
			t.Error("Check() error = nil, want non-nil")
		}
	})

	t.Run("uses configured method", func(t *testing.T) {
		var method atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method.Store(r.Method)
		}))
		defer server.Close()

		result := NewHealthChecker(server.URL).WithMethod(http.MethodPost).Check(context.Background())
		if !result.Success {
			t.Fatalf("Check() error = %v", result.Error)
		}
		if got := method.Load(); got != http.MethodPost {
			t.Errorf("method = %v, want POST", got)
		}
	})
}

func TestHealthChecker_WaitUntilHealthy(t *testing.T) {
	t.Run("succeeds once endpoint becomes healthy", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		checker := NewHealthChecker(server.URL).WithBackoff(time.Millisecond, 5*time.Millisecond, 2)
		var attempts int
		err := checker.WaitUntilHealthy(context.Background(), 2*time.Second, func(_ *HealthCheckResult, n int) {
			attempts = n
		})
		if err != nil {
			t.Fatalf("WaitUntilHealthy() error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("times out", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		checker := NewHealthChecker(server.URL).WithBackoff(time.Millisecond, 5*time.Millisecond, 2)
		err := checker.WaitUntilHealthy(context.Background(), 50*time.Millisecond, nil)
		if !errors.Is(err, ErrHealthCheckTimeout) {
			t.Errorf("WaitUntilHealthy() error = %v, want ErrHealthCheckTimeout", err)
		}
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		checker := NewHealthChecker("http://127.0.0.1:1/api/health")
		err := checker.WaitUntilHealthy(ctx, time.Minute, nil)
		if !errors.Is(err, ErrHealthCheckTimeout) {
			t.Errorf("WaitUntilHealthy() error = %v, want ErrHealthCheckTimeout", err)
		}
	})
}
