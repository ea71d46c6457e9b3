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

package config

import (
	"fmt"
	"strings"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	id := c.App.ID
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		errs = append(errs, fmt.Sprintf("app.id must be a plain directory name, got %q", id))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Host == "" {
		errs = append(errs, "server.host must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout))
	}

	if c.Lifecycle.WatchdogInterval <= 0 {
		errs = append(errs, fmt.Sprintf("lifecycle.watchdog_interval must be positive, got %v", c.Lifecycle.WatchdogInterval))
	}
	if _, err := c.Channels(); err != nil {
		errs = append(errs, fmt.Sprintf("lifecycle.port_channels: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// Channels returns the parsed port advertisement channels.
func (c *Config) Channels() ([]lifecycle.Channel, error) {
	return lifecycle.ParseChannels(strings.Join(c.Lifecycle.PortChannels, ","))
}
