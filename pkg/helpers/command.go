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

package helpers

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandExecutor provides an abstraction over exec.Command for
// testability. The scp and ffmpeg invocations go through it so tests
// never run real system commands.
type CommandExecutor interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits with
	// non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its captured stdout and
	// stderr along with the exit error, so callers can surface tool
	// diagnostics verbatim.
	Output(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// RealCommandExecutor uses actual exec.Command to execute system
// commands. This is the production implementation.
type RealCommandExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a system command and captures both output streams.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealCommandExecutor) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}
