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

// Package listener binds the backend's loopback TCP listener.
package listener

import (
	"fmt"
	"net"
	"strconv"
)

// Config describes the address to bind.
type Config struct {
	// Host is the interface to bind. Default: 127.0.0.1
	Host string

	// Port is the TCP port; 0 asks the OS for an ephemeral one.
	Port int

	// AllowRemote permits non-loopback hosts.
	AllowRemote bool
}

// New binds a TCP listener for cfg.
func New(cfg Config) (net.Listener, error) {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))

	if !cfg.AllowRemote && isRemoteAddr(addr) {
		return nil, fmt.Errorf(
			"binding to %s exposes the backend to the network.\n"+
				"The desktop shell only needs a loopback port; set allow_remote to override",
			addr,
		)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Port returns the TCP port ln is bound to, or 0 for non-TCP listeners.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// isRemoteAddr returns true if the address binds to non-localhost interfaces.
func isRemoteAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		return true
	}
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}
