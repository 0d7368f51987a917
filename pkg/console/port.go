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

package console

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port defines the interface for the serial console channel.
// It is satisfied by go.bug.st/serial ports and by mock ports in tests.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port connection.
// The factory pattern allows sessions to be testable by injecting mock
// implementations.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory is the default factory that opens real serial ports.
// It wraps the go.bug.st/serial library for production use.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}
