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

// Package metrics holds the Prometheus collectors for the backend lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lock acquisition results.
const (
	LockAcquired       = "acquired"
	LockAlreadyRunning = "already_running"
	LockDisabled       = "disabled"
	LockError          = "error"
)

// Watchdog poll results.
const (
	PollAlive  = "alive"
	PollExited = "exited"
	PollError  = "error"
)

var (
	instanceLock = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktop_backend_instance_lock_total",
			Help: "Single-instance lock acquisition attempts by result",
		},
		[]string{"result"},
	)

	portAdvertisements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktop_backend_port_advertisements_total",
			Help: "Port advertisements by channel and result",
		},
		[]string{"channel", "result"},
	)

	watchdogPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktop_backend_watchdog_polls_total",
			Help: "Parent liveness polls by result",
		},
		[]string{"result"},
	)

	watchdogState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "desktop_backend_watchdog_state",
			Help: "Current watchdog state (0 disabled, 1 armed, 2 polling, 3 triggered, 4 stopped)",
		},
	)

	shutdowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desktop_backend_shutdowns_total",
			Help: "Shutdown sequences run by cause",
		},
		[]string{"cause"},
	)
)

// RecordLock counts one lock attempt. result is one of the Lock* constants.
func RecordLock(result string) {
	instanceLock.WithLabelValues(result).Inc()
}

// RecordAdvertisement counts one port publication on channel.
func RecordAdvertisement(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	portAdvertisements.WithLabelValues(channel, result).Inc()
}

// RecordPoll counts one watchdog liveness poll. result is one of the Poll* constants.
func RecordPoll(result string) {
	watchdogPolls.WithLabelValues(result).Inc()
}

// SetWatchdogState publishes the numeric watchdog state.
func SetWatchdogState(state int) {
	watchdogState.Set(float64(state))
}

// RecordShutdown counts one shutdown sequence.
func RecordShutdown(cause string) {
	shutdowns.WithLabelValues(cause).Inc()
}
