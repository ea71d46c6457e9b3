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
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestAdvertiser_Stdout(t *testing.T) {
	var out bytes.Buffer
	adv := NewAdvertiser(AdvertiserConfig{Stdout: &out, Dir: t.TempDir()})

	require.NoError(t, adv.Advertise(54321))
	assert.Equal(t, "BACKEND_PORT:54321\n", out.String())
	assert.Equal(t, []Advertisement{{Port: 54321, Channel: ChannelStdout}}, adv.Published())

	_, err := os.Stat(adv.PortFilePath())
	assert.True(t, os.IsNotExist(err), "stdout-only advertiser must not write the port file")
}

func TestAdvertiser_FlushesBufferedWriter(t *testing.T) {
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	adv := NewAdvertiser(AdvertiserConfig{Stdout: bw})

	require.NoError(t, adv.Advertise(8080))
	assert.Equal(t, "BACKEND_PORT:8080\n", out.String())
}

func TestAdvertiser_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	adv := NewAdvertiser(AdvertiserConfig{Channels: []Channel{ChannelFile}, Dir: dir})

	require.NoError(t, adv.Advertise(8080))

	data, err := os.ReadFile(filepath.Join(dir, PortFileName))
	require.NoError(t, err)
	assert.Equal(t, "8080", string(data), "no trailing newline")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestAdvertiser_FileOverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PortFileName), []byte("1111111"), 0600))

	adv := NewAdvertiser(AdvertiserConfig{Channels: []Channel{ChannelFile}, Dir: dir})
	require.NoError(t, adv.Advertise(9))

	port, err := ReadPortFile(filepath.Join(dir, PortFileName))
	require.NoError(t, err)
	assert.Equal(t, 9, port)
}

func TestAdvertiser_BothChannels(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	adv := NewAdvertiser(AdvertiserConfig{
		Channels: []Channel{ChannelStdout, ChannelFile},
		Stdout:   &out,
		Dir:      dir,
	})

	require.NoError(t, adv.Advertise(65535))
	assert.Equal(t, "BACKEND_PORT:65535\n", out.String())
	port, err := ReadPortFile(adv.PortFilePath())
	require.NoError(t, err)
	assert.Equal(t, 65535, port)
}

func TestAdvertiser_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		var out bytes.Buffer
		dir := t.TempDir()
		adv := NewAdvertiser(AdvertiserConfig{
			Channels: []Channel{ChannelStdout, ChannelFile},
			Stdout:   &out,
			Dir:      dir,
		})

		err := adv.Advertise(port)
		assert.ErrorIs(t, err, ErrInvalidPort, "port %d", port)
		assert.Empty(t, out.String(), "port %d", port)
		_, statErr := os.Stat(adv.PortFilePath())
		assert.True(t, os.IsNotExist(statErr), "port %d", port)
	}
}

func TestAdvertiser_OnlyOnce(t *testing.T) {
	var out bytes.Buffer
	adv := NewAdvertiser(AdvertiserConfig{Stdout: &out})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = adv.Advertise(3000 + i)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyAdvertised)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, strings.Count(out.String(), HandshakePrefix))
}

func TestAdvertiser_ChannelFailure(t *testing.T) {
	dir := t.TempDir()
	adv := NewAdvertiser(AdvertiserConfig{
		Channels: []Channel{ChannelStdout, ChannelFile},
		Stdout:   failingWriter{},
		Dir:      dir,
	})

	err := adv.Advertise(4000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdout")

	port, rerr := ReadPortFile(adv.PortFilePath())
	require.NoError(t, rerr, "file channel still attempted")
	assert.Equal(t, 4000, port)
	assert.Equal(t, []Advertisement{{Port: 4000, Channel: ChannelFile}}, adv.Published())
}

func TestParseChannels(t *testing.T) {
	tests := []struct {
		raw     string
		want    []Channel
		wantErr bool
	}{
		{raw: "", want: []Channel{ChannelStdout}},
		{raw: "stdout", want: []Channel{ChannelStdout}},
		{raw: "FILE", want: []Channel{ChannelFile}},
		{raw: "stdout, file", want: []Channel{ChannelStdout, ChannelFile}},
		{raw: "file,file", want: []Channel{ChannelFile}},
		{raw: "socket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseChannels(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHandshake(t *testing.T) {
	tests := []struct {
		line string
		port int
		ok   bool
	}{
		{"BACKEND_PORT:8080", 8080, true},
		{"BACKEND_PORT:8080\r\n", 8080, true},
		{"BACKEND_PORT:0", 0, false},
		{"BACKEND_PORT:70000", 0, false},
		{"BACKEND_PORT:", 0, false},
		{"Started application on 8080", 0, false},
		{" BACKEND_PORT:8080", 0, false},
	}

	for _, tt := range tests {
		port, ok := ParseHandshake(tt.line)
		assert.Equal(t, tt.ok, ok, "ParseHandshake(%q)", tt.line)
		assert.Equal(t, tt.port, port, "ParseHandshake(%q)", tt.line)
	}
}

func TestReadPortFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), PortFileName)
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0600))

	_, err := ReadPortFile(path)
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = ReadPortFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
