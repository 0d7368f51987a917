// ConsoleCam
// Copyright (c) 2026 The ConsoleCam Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ConsoleCam.
//
// ConsoleCam is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ConsoleCam is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ConsoleCam.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	// A missing config is written out so the operator can edit it.
	_, statErr := os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, statErr)

	assert.Equal(t, "/dev/ttyS3", cfg.Serial().Port)
	assert.Equal(t, 115200, cfg.Serial().BaudRate)
	assert.Equal(t, "root", cfg.Target().Username)
	assert.Equal(t, "reboot", cfg.Target().RebootCommand)
	assert.Equal(t, frame.NV12, cfg.PixelFormat())
	assert.Equal(t, 240, cfg.Camera().Width)
	assert.Equal(t, 135, cfg.Camera().Height)
}

func TestNewConfig_LoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[serial]
port = "/dev/ttyUSB0"
baud_rate = 1500000

[camera]
pixel_format = "YUYV"
width = 640
height = 480

[timeouts]
reboot_wait_s = 45
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial().Port)
	assert.Equal(t, 1500000, cfg.Serial().BaudRate)
	assert.Equal(t, frame.YUYV, cfg.PixelFormat())
	assert.Equal(t, 640, cfg.Camera().Width)
	assert.Equal(t, 45*time.Second, cfg.RebootWait())

	// Unset sections keep their defaults.
	assert.Equal(t, "root", cfg.Target().Username)
	assert.Equal(t, "/tmp/csi_capture.yuv", cfg.Camera().RemoteTempPath)
}

func TestNewConfig_EnvOverridesPath(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(CfgEnv, override)

	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)

	_, statErr := os.Stat(override)
	require.NoError(t, statErr, "defaults must be written to the override path")
	assert.Equal(t, "/dev/ttyS3", cfg.Serial().Port)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Values)
		wantMsg string
	}{
		{
			name:    "empty serial port",
			mutate:  func(v *Values) { v.Serial.Port = "" },
			wantMsg: "serial port",
		},
		{
			name:    "zero baud rate",
			mutate:  func(v *Values) { v.Serial.BaudRate = 0 },
			wantMsg: "baud rate",
		},
		{
			name:    "no shell prompts",
			mutate:  func(v *Values) { v.Target.ShellPrompts = nil },
			wantMsg: "shell prompt",
		},
		{
			name:    "bad pixel format",
			mutate:  func(v *Values) { v.Camera.PixelFormat = "RGB9000" },
			wantMsg: "unknown pixel format",
		},
		{
			name:    "zero resolution",
			mutate:  func(v *Values) { v.Camera.Width = 0 },
			wantMsg: "resolution",
		},
		{
			name:    "empty remote path",
			mutate:  func(v *Values) { v.Camera.RemoteTempPath = "" },
			wantMsg: "remote temp path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := BaseDefaults
			tt.mutate(&vals)

			_, err := NewConfig(t.TempDir(), vals)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestTimeoutAccessors(t *testing.T) {
	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.RebootWait())
	assert.Equal(t, 15*time.Second, cfg.LoginTimeout())
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout())
	assert.Equal(t, 15*time.Second, cfg.CaptureTimeout())
	assert.Equal(t, 60*time.Second, cfg.TransferTimeout())
	assert.Equal(t, 30*time.Second, cfg.ConvertTimeout())
}

func TestRuntimeSetters(t *testing.T) {
	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)

	cfg.SetOutputDir("/data/captures")
	assert.Equal(t, "/data/captures", cfg.OutputDir())

	assert.False(t, cfg.DebugLogging())
	cfg.SetDebugLogging(true)
	assert.True(t, cfg.DebugLogging())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetOutputDir("/data/captures")
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "/data/captures", reloaded.OutputDir())
	assert.Equal(t, BaseDefaults.Target.ShellPrompts, reloaded.Target().ShellPrompts)
}
