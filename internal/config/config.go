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

// Package config loads the backend configuration from the app descriptor
// (app-config.json) and the environment set by the desktop launcher.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	apperrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// executable locates the running binary; replaced in tests.
	executable = os.Executable
)

// Config is the complete backend configuration.
type Config struct {
	// App is the application descriptor.
	App AppDescriptor

	// DescriptorPath is the file App was read from, empty when defaults were used.
	DescriptorPath string

	// DataDir overrides the per-OS application data directory.
	DataDir string

	Server    ServerConfig
	Lifecycle LifecycleConfig
	LogFile   LogFileConfig

	// Warnings collects tolerated problems, logged once a logger exists.
	Warnings []string

	// Notes collects informational messages about how the config was built.
	Notes []string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the listen address. Default: 127.0.0.1
	Host string

	// Port is the fixed port, 0 for an ephemeral one.
	// Environment: BACKEND_PORT
	Port int

	// AllowRemote permits binding a non-loopback host.
	AllowRemote bool

	// ShutdownTimeout bounds the HTTP drain. Default: 5s
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers. Default: 10s
	ReadHeaderTimeout time.Duration
}

// LifecycleConfig configures lock, port advertisement and watchdog.
type LifecycleConfig struct {
	// ParentPID is the raw launcher PID; empty disables the watchdog.
	// Environment: TAURI_PARENT_PID
	ParentPID string

	// SingleInstance enables the instance lock. Default: true
	// Environment: SINGLE_INSTANCE_ENABLED
	SingleInstance bool

	// PortChannels lists where the bound port is published. Default: [stdout]
	// Environment: BACKEND_PORT_CHANNELS
	PortChannels []string

	// WatchdogInterval is the parent poll period. Default: 1s
	// Environment: BACKEND_WATCHDOG_INTERVAL
	WatchdogInterval time.Duration
}

// LogFileConfig configures the rotating dataDir/logs/app.log.
type LogFileConfig struct {
	// Enabled writes logs to app.log in addition to stderr. Default: true
	Enabled bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// envSpec maps environment variables processed by envconfig.
// Port and ParentPID stay strings so malformed values degrade to warnings.
type envSpec struct {
	ParentPID        string        `envconfig:"TAURI_PARENT_PID"`
	Port             string        `envconfig:"BACKEND_PORT"`
	Host             string        `envconfig:"BACKEND_HOST"`
	SingleInstance   bool          `envconfig:"SINGLE_INSTANCE_ENABLED" default:"true"`
	PortChannels     []string      `envconfig:"BACKEND_PORT_CHANNELS" default:"stdout"`
	WatchdogInterval time.Duration `envconfig:"BACKEND_WATCHDOG_INTERVAL" default:"1s"`
	ShutdownTimeout  time.Duration `envconfig:"BACKEND_SHUTDOWN_TIMEOUT" default:"5s"`
	DataDir          string        `envconfig:"BACKEND_DATA_DIR"`
	AppConfig        string        `envconfig:"APP_CONFIG"`
	LogFile          bool          `envconfig:"BACKEND_LOG_FILE" default:"true"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		App: DefaultDescriptor(),
		Server: ServerConfig{
			Host:              "127.0.0.1",
			ShutdownTimeout:   5 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Lifecycle: LifecycleConfig{
			SingleInstance:   true,
			PortChannels:     []string{"stdout"},
			WatchdogInterval: time.Second,
		},
		LogFile: LogFileConfig{
			Enabled:    true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration: defaults, then the app descriptor, then the
// environment. descriptorPath (the --config flag) wins over APP_CONFIG; when
// both are empty app-config.json next to the executable is used if present.
func Load(descriptorPath string) (*Config, error) {
	cfg := Default()

	var env envSpec
	if err := envconfig.Process("", &env); err != nil {
		return nil, envError(err)
	}

	if descriptorPath == "" {
		descriptorPath = env.AppConfig
	}
	cfg.loadDescriptor(descriptorPath)

	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, &apperrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}
	return cfg, nil
}

func envError(err error) error {
	var perr *envconfig.ParseError
	if errors.As(err, &perr) {
		return &apperrors.ConfigError{
			Key:    perr.KeyName,
			Reason: fmt.Sprintf("cannot parse %q as %s", perr.Value, perr.TypeName),
			Cause:  perr.Err,
		}
	}
	return &apperrors.ConfigError{Key: "environment", Reason: "cannot read environment", Cause: err}
}

// loadDescriptor reads the app descriptor. A missing or malformed descriptor
// is tolerated: defaults stay in place and a warning is recorded.
func (c *Config) loadDescriptor(path string) {
	if path == "" {
		path = findDescriptor()
		if path == "" {
			c.Notes = append(c.Notes, fmt.Sprintf("no app descriptor found, using defaults (id %q)", c.App.ID))
			return
		}
	}

	desc, err := ReadDescriptor(path)
	if err != nil {
		c.warnf("could not load app descriptor %s, using defaults: %v", path, err)
		return
	}
	c.App = desc
	c.DescriptorPath = path
}

// findDescriptor returns the first descriptor next to the executable, or "".
func findDescriptor() string {
	exe, err := executable()
	if err != nil {
		return ""
	}
	dir := filepath.Dir(exe)
	for _, name := range DescriptorNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyEnv(env envSpec) {
	c.Lifecycle.ParentPID = strings.TrimSpace(env.ParentPID)
	c.Lifecycle.SingleInstance = env.SingleInstance
	c.Lifecycle.WatchdogInterval = env.WatchdogInterval
	if len(env.PortChannels) > 0 {
		c.Lifecycle.PortChannels = env.PortChannels
	}
	if env.Host != "" {
		c.Server.Host = env.Host
	}
	c.Server.ShutdownTimeout = env.ShutdownTimeout
	c.Server.Port = c.parsePort(env.Port)
	c.DataDir = env.DataDir
	c.LogFile.Enabled = env.LogFile
}

// parsePort tolerates a malformed BACKEND_PORT by falling back to an ephemeral port.
func (c *Config) parsePort(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 0 || port > 65535 {
		c.warnf("invalid BACKEND_PORT %q, using an ephemeral port", raw)
		return 0
	}
	return port
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Identity resolves the application identity and data directory.
func (c *Config) Identity(p appdata.Platform) (appdata.Identity, error) {
	if c.DataDir != "" {
		return appdata.WithDataDir(c.App.ID, c.DataDir), nil
	}
	return appdata.Resolve(c.App.ID, p)
}
