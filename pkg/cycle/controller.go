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

// Package cycle composes the reboot sequence, capture commands,
// transfer, repair and conversion into one run against a single
// serial-attached board. Strictly sequential: each phase depends on
// the side effect of the previous one.
package cycle

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/config"
	"github.com/ConsoleCamProject/consolecam-core/pkg/frame"
	"github.com/ConsoleCamProject/consolecam-core/pkg/target"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Session is the console session surface the controller drives.
// Satisfied by console.Session.
type Session interface {
	Open() error
	Login(timeout time.Duration) error
	Execute(command string, timeout time.Duration) (string, error)
	Send(command string) error
	Logout(timeout time.Duration) error
	Close() error
}

// Commander is the device-side operation surface. Satisfied by
// target.Target.
type Commander interface {
	StopServices(services []string, timeout time.Duration)
	DiscoverIP(iface string, timeout time.Duration) (string, error)
	Capture(job target.CaptureJob, timeout time.Duration) error
	VerifyCapture(remotePath string, timeout time.Duration) (int64, error)
	RemoveArtifact(remotePath string, timeout time.Duration) error
}

// Retriever pulls the remote artifact to local storage.
type Retriever interface {
	Pull(user, host, remotePath string) (localPath string, size int64, err error)
}

// Repairer pads a short raw frame to the converter's expected size.
type Repairer interface {
	Repair(path string, width, height int, format frame.Format) (size, padded int64, err error)
}

// Converter produces the final image file from the repaired raw frame.
type Converter interface {
	ToJPEG(rawPath, jpgPath string, width, height int, format frame.Format) error
}

// Deps are the controller's collaborators. NewCommander may be left
// nil to wrap sessions with target.New.
type Deps struct {
	Config       *config.Instance
	Clock        clockwork.Clock
	NewSession   func() Session
	NewCommander func(target.Executor) Commander
	Retriever    Retriever
	Repairer     Repairer
	Converter    Converter
}

// Controller runs one capture cycle.
type Controller struct {
	deps Deps
}

// NewController creates a Controller from its collaborators.
func NewController(deps Deps) *Controller {
	if deps.NewCommander == nil {
		deps.NewCommander = func(exec target.Executor) Commander {
			return target.New(exec)
		}
	}
	return &Controller{deps: deps}
}

// Run executes one full cycle: reboot, capture and verify, transfer,
// repair, convert, cleanup. Any phase failure short-circuits the
// remaining phases except best-effort cleanup, which always runs once
// a post-reboot session exists.
func (c *Controller) Run() Result {
	cfg := c.deps.Config
	var timings []PhaseTiming

	record := func(phase Phase, fn func() error) error {
		start := c.deps.Clock.Now()
		err := fn()
		end := c.deps.Clock.Now()
		timings = append(timings, PhaseTiming{Phase: phase, Start: start, End: end})
		if err != nil {
			log.Error().Err(err).Str("phase", string(phase)).Dur("elapsed", end.Sub(start)).Msg("phase failed")
		} else {
			log.Info().Str("phase", string(phase)).Dur("elapsed", end.Sub(start)).Msg("phase complete")
		}
		return err
	}
	fail := func(phase Phase, err error) Result {
		return Result{Phase: phase, Err: err, Timings: timings}
	}

	coordinator := NewRebootCoordinator(
		c.deps.NewSession, c.deps.Clock,
		cfg.Target().RebootCommand, cfg.RebootWait(), cfg.LoginTimeout())

	var sess Session
	if err := record(PhaseReboot, func() error {
		s, err := coordinator.Run()
		sess = s
		return err
	}); err != nil {
		return fail(PhaseReboot, err)
	}

	cmd := c.deps.NewCommander(sess)
	camera := cfg.Camera()
	tgt := cfg.Target()
	cmdTimeout := cfg.CommandTimeout()

	// The session, once opened, is guaranteed a close attempt no
	// matter which phase failed. Cleanup failures are logged only and
	// never override the cycle outcome.
	cleanup := func() {
		_ = record(PhaseCleanup, func() error {
			if err := cmd.RemoveArtifact(camera.RemoteTempPath, cmdTimeout); err != nil {
				log.Warn().Err(err).Msg("failed to remove remote artifact")
			}
			if err := sess.Logout(cmdTimeout); err != nil {
				log.Warn().Err(err).Msg("logout failed")
			}
			if err := sess.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close session")
			}
			return nil
		})
	}

	var boardIP string
	if err := record(PhaseCapture, func() error {
		cmd.StopServices(tgt.ServicesToStop, cmdTimeout)

		ip, err := cmd.DiscoverIP(tgt.NetworkInterface, cmdTimeout)
		if err != nil {
			return err
		}
		boardIP = ip
		log.Info().Str("ip", boardIP).Msg("target address resolved")

		job := target.CaptureJob{
			DeviceNode:  camera.DeviceNode,
			Width:       camera.Width,
			Height:      camera.Height,
			PixelFormat: camera.PixelFormat,
			RemotePath:  camera.RemoteTempPath,
		}
		if err := cmd.Capture(job, cfg.CaptureTimeout()); err != nil {
			return err
		}
		_, err = cmd.VerifyCapture(camera.RemoteTempPath, cmdTimeout)
		return err
	}); err != nil {
		cleanup()
		return fail(PhaseCapture, err)
	}

	var rawPath string
	if err := record(PhaseTransfer, func() error {
		path, _, err := c.deps.Retriever.Pull(tgt.Username, boardIP, camera.RemoteTempPath)
		rawPath = path
		return err
	}); err != nil {
		cleanup()
		return fail(PhaseTransfer, err)
	}

	format := cfg.PixelFormat()
	if err := record(PhaseRepair, func() error {
		_, _, err := c.deps.Repairer.Repair(rawPath, camera.Width, camera.Height, format)
		return err
	}); err != nil {
		cleanup()
		return fail(PhaseRepair, err)
	}

	jpgPath := finalImagePath(rawPath)
	if err := record(PhaseConvert, func() error {
		return c.deps.Converter.ToJPEG(rawPath, jpgPath, camera.Width, camera.Height, format)
	}); err != nil {
		cleanup()
		return fail(PhaseConvert, err)
	}

	cleanup()
	return Result{OK: true, ImagePath: jpgPath, Timings: timings}
}

// finalImagePath derives the converted image name from the raw
// artifact name, keeping the timestamp and run ID.
func finalImagePath(rawPath string) string {
	base := strings.TrimSuffix(rawPath, filepath.Ext(rawPath))
	base = strings.Replace(base, "capture_raw_", "capture_final_", 1)
	return base + ".jpg"
}
