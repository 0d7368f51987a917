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

// Package target issues device-side commands over an authenticated
// console session: stopping the streaming service, discovering the
// board's address, capturing a frame and verifying the artifact.
package target

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrCaptureVerification indicates the capture artifact is missing or
// empty on the device. Terminal for the cycle: the camera driver
// allows exactly one capture per boot, so there is nothing to retry.
var ErrCaptureVerification = errors.New("capture verification failed")

// Executor runs a command on the remote shell and returns its output.
// Satisfied by console.Session.
type Executor interface {
	Execute(command string, timeout time.Duration) (string, error)
}

// CaptureJob describes one single-frame capture. Immutable for the run.
type CaptureJob struct {
	DeviceNode  string
	PixelFormat string
	RemotePath  string
	Width       int
	Height      int
}

// Target wraps an authenticated session with the device-side
// operations of a capture cycle.
type Target struct {
	exec Executor
}

// New creates a Target over an authenticated session.
func New(exec Executor) *Target {
	return &Target{exec: exec}
}

// StopServices kills the configured background services, which restart
// on every boot and hold the camera pipeline open. killall is made
// idempotent with "|| true" so an already-dead service is not an
// error. A timeout on an individual kill is logged and skipped: the
// capture attempt decides whether it mattered.
func (t *Target) StopServices(services []string, timeout time.Duration) {
	for _, svc := range services {
		cmd := fmt.Sprintf("killall %s || true", svc)
		if _, err := t.exec.Execute(cmd, timeout); err != nil {
			log.Warn().Err(err).Str("service", svc).Msg("no clear response stopping service")
			continue
		}
		log.Debug().Str("service", svc).Msg("service stop command sent")
	}
}

var (
	ipAddrPattern    = regexp.MustCompile(`inet\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})/\d+`)
	ifconfigPattern  = regexp.MustCompile(`inet addr:(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	ansiColorPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// DiscoverIP resolves the board's address on iface, trying
// "ip addr show" first and falling back to BusyBox ifconfig.
func (t *Target) DiscoverIP(iface string, timeout time.Duration) (string, error) {
	out, err := t.exec.Execute("ip addr show "+iface, timeout)
	if err == nil {
		if m := ipAddrPattern.FindStringSubmatch(out); m != nil {
			log.Debug().Str("iface", iface).Str("ip", m[1]).Msg("address from ip addr show")
			return m[1], nil
		}
	}

	out, err = t.exec.Execute("ifconfig "+iface, timeout)
	if err != nil {
		return "", fmt.Errorf("discover address on %s: %w", iface, err)
	}
	if m := ifconfigPattern.FindStringSubmatch(out); m != nil {
		log.Debug().Str("iface", iface).Str("ip", m[1]).Msg("address from ifconfig")
		return m[1], nil
	}
	return "", fmt.Errorf("no address found for interface %s", iface)
}

// Capture configures the camera and grabs a single raw frame to the
// job's remote path. v4l2-ctl is chatty and its output is not a
// reliable success signal; VerifyCapture is the actual check.
func (t *Target) Capture(job CaptureJob, timeout time.Duration) error {
	cmd := fmt.Sprintf(
		"v4l2-ctl --device=%s --set-fmt-video=width=%d,height=%d,pixelformat=%s --stream-mmap --stream-count=1 --stream-to=%s",
		job.DeviceNode, job.Width, job.Height, job.PixelFormat, job.RemotePath)
	out, err := t.exec.Execute(cmd, timeout)
	if err != nil {
		return fmt.Errorf("capture command: %w", err)
	}
	if out != "" {
		log.Debug().Str("output", out).Msg("v4l2-ctl output")
	}
	return nil
}

// VerifyCapture stats the capture artifact on the device and returns
// its size. Missing file, zero size or unparseable output all fail
// with ErrCaptureVerification.
func (t *Target) VerifyCapture(remotePath string, timeout time.Duration) (int64, error) {
	out, err := t.exec.Execute("ls -l --color=never "+remotePath, timeout)
	if err != nil {
		return 0, fmt.Errorf("stat remote artifact: %w", err)
	}

	size, err := parseListingSize(out, remotePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCaptureVerification, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrCaptureVerification, remotePath)
	}
	log.Info().Str("path", remotePath).Int64("size", size).Msg("capture verified on device")
	return size, nil
}

// RemoveArtifact deletes the capture artifact on the device.
func (t *Target) RemoveArtifact(remotePath string, timeout time.Duration) error {
	if _, err := t.exec.Execute("rm -f "+remotePath, timeout); err != nil {
		return fmt.Errorf("remove remote artifact: %w", err)
	}
	return nil
}

// parseListingSize extracts the size field from the ls -l line for
// path. The console may interleave kernel log spew with the listing,
// so only the line naming path is parsed. BusyBox ls sometimes colors
// output despite --color=never, so ANSI sequences are stripped first.
func parseListingSize(out, path string) (int64, error) {
	out = strings.TrimSpace(ansiColorPattern.ReplaceAllString(out, ""))
	if out == "" {
		return 0, fmt.Errorf("empty listing for %s", path)
	}
	if strings.Contains(out, "No such file or directory") || strings.Contains(out, "cannot access") {
		return 0, fmt.Errorf("%s not found on device", path)
	}

	// -rw-r--r-- 1 root root 48480 May  7 10:00 /tmp/csi_capture.yuv
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || !slices.Contains(fields, path) {
			continue
		}
		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		return size, nil
	}
	return 0, fmt.Errorf("no listing line for %s: %q", path, out)
}
