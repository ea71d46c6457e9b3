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

// Package launcher implements the parent side of the backend handshake:
// spawning the backend, discovering its port and waiting for readiness.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
)

// ErrNoHandshake is returned when the stream ends before a port line.
var ErrNoHandshake = errors.New("backend exited without advertising a port")

// WaitForHandshake scans r for the first BACKEND_PORT:<port> line.
// Other lines are ignored. Bytes buffered past the handshake line are dropped.
func WaitForHandshake(ctx context.Context, r io.Reader) (int, error) {
	type result struct {
		port int
		err  error
	}
	resCh := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if port, ok := lifecycle.ParseHandshake(scanner.Text()); ok {
				resCh <- result{port: port}
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = ErrNoHandshake
		}
		resCh <- result{err: err}
	}()

	select {
	case res := <-resCh:
		return res.port, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// WaitForPortFile waits until path holds a valid port and returns it.
// A file that already exists is read immediately.
func WaitForPortFile(ctx context.Context, path string) (int, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := appdata.EnsureDir(dir); err != nil {
		return 0, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return 0, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Checked after Add so a write between the two is not missed.
	if port, err := lifecycle.ReadPortFile(path); err == nil {
		return port, nil
	}

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return 0, errors.New("file watcher closed")
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			if port, err := lifecycle.ReadPortFile(path); err == nil {
				return port, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0, errors.New("file watcher closed")
			}
			return 0, fmt.Errorf("file watcher: %w", err)
		}
	}
}
