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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink_WritesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	sink := NewSink(path, FileOptions{})

	var stderr bytes.Buffer
	logger := NewWithSink(&Config{Level: "info", Format: FormatJSON, Output: &stderr}, sink)
	logger.Info("backend started", Port(8080))

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	logger.Info("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "backend started") {
		t.Errorf("expected file to contain record, got: %s", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Errorf("expected writes after Close to be dropped, got: %s", data)
	}
	if !strings.Contains(stderr.String(), "after close") {
		t.Errorf("expected stderr to keep receiving records, got: %s", stderr.String())
	}
	if sink.Path() != path {
		t.Errorf("Path() = %q, want %q", sink.Path(), path)
	}
}

func TestNewWithSink_NilSink(t *testing.T) {
	var buf bytes.Buffer
	NewWithSink(&Config{Level: "info", Output: &buf}, nil).Info("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected output to contain record, got: %s", buf.String())
	}
}
