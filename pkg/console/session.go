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
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// readPollTimeout bounds each individual port read so the await loop
// can check its deadline between reads.
const readPollTimeout = 100 * time.Millisecond

// State is the authentication state of a Session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Session. All fields come from the run
// configuration and are fixed for the session's lifetime.
type Options struct {
	Port           string
	BaudRate       int
	Username       string
	Password       string
	LoginPrompt    string
	PasswordPrompt string
	ShellPrompts   []string
}

// Session owns one serial console channel to the target board. It is
// strictly single-flow: one session is live at a time, and a closed
// session is never reopened - the cycle controller creates a fresh one
// for each connect.
type Session struct {
	factory  PortFactory
	clock    clockwork.Clock
	port     Port
	login    *Matcher
	password *Matcher
	shell    *Matcher
	opts     Options
	state    State
}

// NewSession creates an unopened session. The factory and clock are
// injected so tests can run against a mock port and fake time.
func NewSession(opts Options, factory PortFactory, clock clockwork.Clock) *Session {
	return &Session{
		opts:     opts,
		factory:  factory,
		clock:    clock,
		login:    NewMatcher(opts.LoginPrompt),
		password: NewMatcher(opts.PasswordPrompt),
		shell:    NewMatcher(opts.ShellPrompts...),
	}
}

// State returns the current authentication state.
func (s *Session) State() State {
	return s.state
}

// Open acquires the serial transport. A session can only be opened
// once; recreate the session after Close.
func (s *Session) Open() error {
	if s.state == Closed {
		return ErrClosed
	}
	if s.port != nil {
		return fmt.Errorf("%w: session already open on %s", ErrChannel, s.opts.Port)
	}

	port, err := s.factory(s.opts.Port, &serial.Mode{
		BaudRate: s.opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}

	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: set read timeout: %w", ErrChannel, err)
	}

	s.port = port
	log.Debug().Str("port", s.opts.Port).Int("baud", s.opts.BaudRate).Msg("serial console opened")
	return nil
}

// Close releases the transport. Idempotent.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	s.state = Closed
	if s.port == nil {
		return nil
	}
	port := s.port
	s.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	log.Debug().Str("port", s.opts.Port).Msg("serial console closed")
	return nil
}

// Login performs the console login handshake: wake the console with a
// newline, answer the login and password prompts, and wait for a
// shell-ready prompt. If the board is still logged in from a previous
// run the shell prompt comes back immediately and the credential
// exchange is skipped.
func (s *Session) Login(timeout time.Duration) error {
	if s.state == Closed {
		return ErrClosed
	}
	if s.port == nil {
		return fmt.Errorf("%w: session not open", ErrChannel)
	}

	// Shell prompts are listed before the login prompt so a live shell
	// wins even when the banner contains the word "login:".
	initial := s.shell.With(s.opts.LoginPrompt)

	if err := s.write("\n"); err != nil {
		return err
	}
	buf, prompt, ok, err := s.await(initial.Contains, timeout/2)
	if err != nil {
		return err
	}
	if !ok {
		// A second newline sometimes wakes a console that swallowed
		// the first one mid-boot.
		log.Debug().Msg("no initial prompt, sending wake newline again")
		if err := s.write("\n"); err != nil {
			return err
		}
		buf, prompt, ok, err = s.await(initial.Contains, timeout/2)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no login or shell prompt: %q", ErrLoginTimeout, tail(buf))
		}
	}

	if prompt != s.opts.LoginPrompt {
		log.Info().Str("prompt", prompt).Msg("already logged in, shell prompt detected")
		s.state = Authenticated
		return nil
	}

	log.Debug().Msg("login prompt detected, sending username")
	if err := s.write(s.opts.Username + "\n"); err != nil {
		return err
	}
	buf, _, ok, err = s.await(s.password.Contains, timeout)
	if err != nil {
		return err
	}
	if !ok {
		if _, again := s.login.Contains(buf); again {
			return fmt.Errorf("%w: login prompt reappeared after username", ErrLoginRejected)
		}
		return fmt.Errorf("%w: no password prompt: %q", ErrLoginTimeout, tail(buf))
	}

	log.Debug().Msg("password prompt detected, sending password")
	if err := s.write(s.opts.Password + "\n"); err != nil {
		return err
	}
	// Only a shell prompt counts here: a motd or "Last login:" banner
	// contains the login prompt text without meaning rejection. The
	// buffer ending with the login prompt is the rejection signal.
	buf, _, ok, err = s.await(s.shell.Contains, timeout)
	if err != nil {
		return err
	}
	if !ok {
		if _, _, rejected := s.login.Match(buf); rejected {
			return fmt.Errorf("%w: login prompt reappeared after password", ErrLoginRejected)
		}
		return fmt.Errorf("%w: no shell prompt after password", ErrLoginTimeout)
	}

	log.Info().Str("port", s.opts.Port).Msg("login successful")
	s.state = Authenticated
	return nil
}

// Execute writes a command line and blocks until a shell-ready prompt
// reappears or the timeout fires. The echoed command line is stripped
// from the returned output. Execute never retries: the caller decides
// whether a retry is safe.
func (s *Session) Execute(command string, timeout time.Duration) (string, error) {
	if s.state != Authenticated {
		return "", fmt.Errorf("%w: cannot execute %q", ErrNotAuthenticated, command)
	}
	if err := s.write(command + "\n"); err != nil {
		return "", err
	}

	buf, _, ok, err := s.await(func(b []byte) (string, bool) {
		p, _, found := s.shell.Match(b)
		return p, found
	}, timeout)
	if err != nil {
		return "", err
	}

	var before []byte
	if ok {
		_, before, _ = s.shell.Match(buf)
	} else {
		// The prompt may have returned and been buried under log spew
		// printed afterwards. Take the latest occurrence anywhere.
		_, before, ok = s.shell.MatchLast(buf)
		if !ok {
			return "", fmt.Errorf("%w after %q: %q", ErrCommandTimeout, command, tail(buf))
		}
	}

	return stripEcho(before, command), nil
}

// Send writes a command line without waiting for any response. Used
// for the reboot trigger, where the peer will not answer.
func (s *Session) Send(command string) error {
	if s.state != Authenticated {
		return fmt.Errorf("%w: cannot send %q", ErrNotAuthenticated, command)
	}
	return s.write(command + "\n")
}

// Logout sends "exit" and waits briefly for either a login prompt or
// another shell prompt. Output after exit is unpredictable, so only
// transport errors are reported.
func (s *Session) Logout(timeout time.Duration) error {
	if s.state != Authenticated {
		return nil
	}
	s.state = Unauthenticated
	if err := s.write("exit\n"); err != nil {
		return err
	}
	either := s.shell.With(s.opts.LoginPrompt)
	if _, _, ok, err := s.await(either.Contains, timeout); err != nil {
		return err
	} else if !ok {
		log.Debug().Msg("no prompt after exit, logout assumed")
	}
	return nil
}

func (s *Session) write(data string) error {
	if _, err := s.port.Write([]byte(data)); err != nil {
		return fmt.Errorf("%w: write: %w", ErrChannel, err)
	}
	return nil
}

// await reads from the port until match reports a prompt or the
// deadline passes. Each read is bounded by the port read timeout, so
// the loop can never hang past the deadline. ok is false on deadline;
// buf always holds everything read for diagnostics.
func (s *Session) await(match func([]byte) (string, bool), timeout time.Duration) (buf []byte, prompt string, ok bool, err error) {
	deadline := s.clock.Now().Add(timeout)
	buf = make([]byte, 0, 4096)
	chunk := make([]byte, 512)

	for {
		n, readErr := s.port.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if p, found := match(buf); found {
				return buf, p, true, nil
			}
		}
		if readErr != nil {
			return buf, "", false, fmt.Errorf("%w: read: %w", ErrChannel, readErr)
		}
		if !s.clock.Now().Before(deadline) {
			return buf, "", false, nil
		}
	}
}

// stripEcho removes the echoed command from the head of the output.
func stripEcho(out []byte, command string) string {
	text := string(out)
	first, rest, found := strings.Cut(text, "\n")
	if found && strings.TrimSpace(first) == strings.TrimSpace(command) {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}
