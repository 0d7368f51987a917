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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/frame"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	CfgEnv     = "CONSOLECAM_CFG"
	CfgFile    = "consolecam.toml"
	ReportFile = "session_report.log"
)

type Values struct {
	Serial       Serial   `toml:"serial"`
	Target       Target   `toml:"target"`
	Camera       Camera   `toml:"camera"`
	Transfer     Transfer `toml:"transfer"`
	Timeouts     Timeouts `toml:"timeouts"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Serial struct {
	Port     string `toml:"port"`
	BaudRate int    `toml:"baud_rate"`
}

type Target struct {
	Username         string   `toml:"username"`
	Password         string   `toml:"password"`
	LoginPrompt      string   `toml:"login_prompt"`
	PasswordPrompt   string   `toml:"password_prompt"`
	RebootCommand    string   `toml:"reboot_command"`
	NetworkInterface string   `toml:"network_interface"`
	ShellPrompts     []string `toml:"shell_prompts,multiline"`
	ServicesToStop   []string `toml:"services_to_stop"`
}

type Camera struct {
	DeviceNode     string `toml:"device_node"`
	PixelFormat    string `toml:"pixel_format"`
	RemoteTempPath string `toml:"remote_temp_path"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
}

type Transfer struct {
	OutputDir string `toml:"output_dir"`
}

// Timeouts are externally configured constants, not adaptive. Seconds
// in the file, durations through the accessors.
type Timeouts struct {
	RebootWaitS int `toml:"reboot_wait_s"`
	LoginS      int `toml:"login_s"`
	CommandS    int `toml:"command_s"`
	CaptureS    int `toml:"capture_s"`
	TransferS   int `toml:"transfer_s"`
	ConvertS    int `toml:"convert_s"`
}

// BaseDefaults matches the LuckFox Pico target this tool was built
// against. Every field can be overridden in the config file.
var BaseDefaults = Values{
	Serial: Serial{
		Port:     "/dev/ttyS3",
		BaudRate: 115200,
	},
	Target: Target{
		Username:         "root",
		Password:         "luckfox",
		LoginPrompt:      "login: ",
		PasswordPrompt:   "Password: ",
		RebootCommand:    "reboot",
		NetworkInterface: "eth0",
		ShellPrompts: []string{
			"[root@luckfox ~]# ",
			"[root@luckfox root]# ",
			"# ",
		},
		ServicesToStop: []string{"rkipc"},
	},
	Camera: Camera{
		DeviceNode:     "/dev/video15",
		PixelFormat:    "NV12",
		RemoteTempPath: "/tmp/csi_capture.yuv",
		Width:          240,
		Height:         135,
	},
	Transfer: Transfer{
		OutputDir: "./captured_images",
	},
	Timeouts: Timeouts{
		RebootWaitS: 30,
		LoginS:      15,
		CommandS:    10,
		CaptureS:    15,
		TransferS:   60,
		ConvertS:    30,
	},
}

type Instance struct {
	cfgPath string
	vals    Values
	mu      sync.RWMutex
}

// NewConfig loads the config file from configDir, creating it with
// defaults when absent. The CONSOLECAM_CFG env var overrides the path.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath: cfgPath,
		vals:    defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("save default config: %w", err)
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	vals := c.vals
	if err := toml.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if err := validate(&vals); err != nil {
		return err
	}

	c.vals = vals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if err := os.MkdirAll(filepath.Dir(c.cfgPath), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func validate(vals *Values) error {
	if vals.Serial.Port == "" {
		return errors.New("serial port not configured")
	}
	if vals.Serial.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", vals.Serial.BaudRate)
	}
	if vals.Target.Username == "" {
		return errors.New("target username not configured")
	}
	if vals.Target.LoginPrompt == "" || vals.Target.PasswordPrompt == "" {
		return errors.New("login and password prompts must be configured")
	}
	if len(vals.Target.ShellPrompts) == 0 {
		return errors.New("at least one shell prompt must be configured")
	}
	if vals.Camera.Width <= 0 || vals.Camera.Height <= 0 {
		return fmt.Errorf("invalid capture resolution %dx%d", vals.Camera.Width, vals.Camera.Height)
	}
	if _, err := frame.ParseFormat(vals.Camera.PixelFormat); err != nil {
		return err
	}
	if vals.Camera.RemoteTempPath == "" {
		return errors.New("remote temp path not configured")
	}
	return nil
}

func (c *Instance) Serial() Serial {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial
}

func (c *Instance) Target() Target {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Target
}

func (c *Instance) Camera() Camera {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Camera
}

// PixelFormat returns the validated capture format.
func (c *Instance) PixelFormat() frame.Format {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := frame.ParseFormat(c.vals.Camera.PixelFormat)
	if err != nil {
		// validate ran at load time, this cannot normally happen
		return frame.NV12
	}
	return f
}

func (c *Instance) OutputDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Transfer.OutputDir
}

func (c *Instance) SetOutputDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Transfer.OutputDir = dir
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = on
}

func (c *Instance) RebootWait() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.RebootWaitS })
}

func (c *Instance) LoginTimeout() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.LoginS })
}

func (c *Instance) CommandTimeout() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.CommandS })
}

func (c *Instance) CaptureTimeout() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.CaptureS })
}

func (c *Instance) TransferTimeout() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.TransferS })
}

func (c *Instance) ConvertTimeout() time.Duration {
	return c.seconds(func(t Timeouts) int { return t.ConvertS })
}

func (c *Instance) seconds(pick func(Timeouts) int) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(pick(c.vals.Timeouts)) * time.Second
}
