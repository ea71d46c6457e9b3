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

package log

import (
	"io"
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions controls rotation of the on-disk application log.
type FileOptions struct {
	// MaxSizeMB is the size at which app.log is rotated.
	// Default: 10
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	// Default: 3
	MaxBackups int

	// MaxAgeDays removes rotated files older than this many days.
	// Default: 28
	MaxAgeDays int
}

// Sink is a rotating file destination that can be closed exactly once.
// Writes after Close are dropped so late records never reopen the file.
type Sink struct {
	mu     sync.Mutex
	file   *lumberjack.Logger
	closed bool
}

// NewSink returns a Sink writing to path. The parent directory must exist.
func NewSink(path string, opts FileOptions) *Sink {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 28
	}
	return &Sink{
		file: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		},
	}
}

// Path returns the active log file.
func (s *Sink) Path() string {
	return s.file.Filename
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	return s.file.Write(p)
}

// Close flushes and closes the file. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// NewWithSink creates a logger that writes to cfg.Output and to sink.
// A nil sink yields the same logger as New.
func NewWithSink(cfg *Config, sink *Sink) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if sink == nil {
		return New(cfg)
	}
	teed := *cfg
	var writers []io.Writer
	if cfg.Output != nil {
		writers = append(writers, cfg.Output)
	}
	writers = append(writers, sink)
	teed.Output = io.MultiWriter(writers...)
	return New(&teed)
}
