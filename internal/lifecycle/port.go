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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/metrics"
)

const (
	// HandshakePrefix starts the single stdout line announcing the bound port.
	HandshakePrefix = "BACKEND_PORT:"

	// PortFileName is the port file written inside the data directory.
	PortFileName = "backend.port"
)

var (
	// ErrInvalidPort is returned for ports outside 1..65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrAlreadyAdvertised is returned when Advertise is called more than once.
	ErrAlreadyAdvertised = errors.New("port already advertised")
)

// Channel is a destination for the port advertisement.
type Channel string

const (
	ChannelStdout Channel = "stdout"
	ChannelFile   Channel = "file"
)

// ParseChannels parses a comma separated channel list such as "stdout,file".
// An empty list yields the stdout channel.
func ParseChannels(raw string) ([]Channel, error) {
	var out []Channel
	seen := make(map[Channel]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		ch := Channel(part)
		if ch != ChannelStdout && ch != ChannelFile {
			return nil, fmt.Errorf("unknown port channel %q (expected stdout or file)", part)
		}
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		out = []Channel{ChannelStdout}
	}
	return out, nil
}

// Advertisement records one successful publication.
type Advertisement struct {
	Port    uint16
	Channel Channel
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Channels to publish on. Default: stdout only.
	Channels []Channel

	// Stdout receives the handshake line. Default: os.Stdout.
	Stdout io.Writer

	// Dir is the data directory holding the port file.
	Dir string

	Logger *slog.Logger
}

// Advertiser publishes the bound port to the launcher exactly once.
type Advertiser struct {
	cfg AdvertiserConfig

	once      sync.Once
	mu        sync.Mutex
	published []Advertisement
}

// NewAdvertiser creates an Advertiser.
func NewAdvertiser(cfg AdvertiserConfig) *Advertiser {
	if len(cfg.Channels) == 0 {
		cfg.Channels = []Channel{ChannelStdout}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Advertiser{cfg: cfg}
}

// PortFilePath returns where the file channel writes.
func (a *Advertiser) PortFilePath() string {
	return filepath.Join(a.cfg.Dir, PortFileName)
}

// Advertise publishes port on every configured channel. Channel failures are
// logged and returned joined; the remaining channels are still attempted.
func (a *Advertiser) Advertise(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	var (
		first bool
		errs  []error
	)
	a.once.Do(func() {
		first = true
		for _, ch := range a.cfg.Channels {
			err := a.publish(ch, port)
			metrics.RecordAdvertisement(string(ch), err)
			if err != nil {
				a.cfg.Logger.Error("failed to advertise port",
					slog.String("channel", string(ch)), log.Port(port), log.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", ch, err))
				continue
			}
			a.mu.Lock()
			a.published = append(a.published, Advertisement{Port: uint16(port), Channel: ch})
			a.mu.Unlock()
			a.cfg.Logger.Info("port advertised", slog.String("channel", string(ch)), log.Port(port))
		}
	})
	if !first {
		return ErrAlreadyAdvertised
	}
	return errors.Join(errs...)
}

// Published returns the successful publications.
func (a *Advertiser) Published() []Advertisement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Advertisement(nil), a.published...)
}

func (a *Advertiser) publish(ch Channel, port int) error {
	switch ch {
	case ChannelStdout:
		return writeHandshake(a.cfg.Stdout, port)
	case ChannelFile:
		return writePortFile(a.cfg.Dir, port)
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}
}

func writeHandshake(w io.Writer, port int) error {
	if _, err := fmt.Fprintf(w, "%s%d\n", HandshakePrefix, port); err != nil {
		return err
	}
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case *os.File:
		// Sync fails on pipes and terminals; the write already reached the kernel.
		_ = f.Sync()
	}
	return nil
}

// writePortFile replaces dir/backend.port atomically with the decimal port.
func writePortFile(dir string, port int) error {
	if err := appdata.EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+PortFileName+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(strconv.Itoa(port)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, PortFileName)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// ParseHandshake extracts the port from a stdout handshake line.
func ParseHandshake(line string) (int, bool) {
	line = strings.TrimRight(line, "\r\n")
	rest, ok := strings.CutPrefix(line, HandshakePrefix)
	if !ok {
		return 0, false
	}
	port, err := strconv.Atoi(rest)
	if err != nil || port < 1 || port > 65535 {
		return 0, false
	}
	return port, true
}

// ReadPortFile reads a port file written by the file channel.
func ReadPortFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(data))
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %q in %s", ErrInvalidPort, raw, path)
	}
	return port, nil
}
