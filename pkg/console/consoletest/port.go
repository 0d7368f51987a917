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

// Package consoletest provides a scripted mock serial port for testing
// session and cycle logic without hardware.
package consoletest

import (
	"errors"
	"sync"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/console"
	"go.bug.st/serial"
)

// MockPort is a mock implementation of console.Port. Reads drain a
// pending buffer; writes are recorded and can trigger a scripted
// response, which is how tests play the role of the remote board.
type MockPort struct {
	ReadErr  error
	WriteErr error
	CloseErr error

	// Respond is called with each written chunk and returns bytes to
	// queue for subsequent reads. Optional.
	Respond func(written string) string

	Writes []string

	pending []byte
	closed  bool
	mu      sync.Mutex
}

// NewMockPort creates an empty mock port.
func NewMockPort() *MockPort {
	return &MockPort{}
}

// Queue appends data to the pending read buffer.
func (p *MockPort) Queue(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, data...)
}

// Read drains pending data. With nothing pending it emulates a serial
// read timeout: a short real delay and a zero-byte result.
func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errors.New("port closed")
	}
	if p.ReadErr != nil {
		err := p.ReadErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	p.mu.Unlock()
	return n, nil
}

// Write records the chunk and queues any scripted response.
func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errors.New("port closed")
	}
	if p.WriteErr != nil {
		err := p.WriteErr
		p.mu.Unlock()
		return 0, err
	}
	written := string(b)
	p.Writes = append(p.Writes, written)
	respond := p.Respond
	p.mu.Unlock()

	if respond != nil {
		if reply := respond(written); reply != "" {
			p.Queue(reply)
		}
	}
	return len(b), nil
}

// Close marks the port closed.
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

// SetReadTimeout is a no-op on the mock.
func (*MockPort) SetReadTimeout(_ time.Duration) error {
	return nil
}

// IsClosed reports whether Close has been called.
func (p *MockPort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Factory returns a console.PortFactory that always hands out port.
func Factory(port *MockPort) console.PortFactory {
	return func(_ string, _ *serial.Mode) (console.Port, error) {
		return port, nil
	}
}

// FailingFactory returns a console.PortFactory that always fails with
// err, for exercising channel errors.
func FailingFactory(err error) console.PortFactory {
	return func(_ string, _ *serial.Mode) (console.Port, error) {
		return nil, err
	}
}
