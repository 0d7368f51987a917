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

package cycle

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RebootState is a step of the reboot sequence. States advance in
// order and are never skipped.
type RebootState int

const (
	StateIdle RebootState = iota
	StateConnected
	StateAuthenticated
	StateRebootSent
	StateDisconnected
	StateWaiting
	StateReconnecting
	StateReAuthenticated
)

func (s RebootState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateRebootSent:
		return "reboot-sent"
	case StateDisconnected:
		return "disconnected"
	case StateWaiting:
		return "waiting"
	case StateReconnecting:
		return "reconnecting"
	case StateReAuthenticated:
		return "re-authenticated"
	default:
		return "unknown"
	}
}

// RebootCoordinator drives the board through a forced reboot and back
// to an authenticated session. The camera ISP driver wedges after one
// raw capture, so every cycle starts here: the coordinator is what
// makes "one capture per boot" an invariant rather than a race.
type RebootCoordinator struct {
	clock         clockwork.Clock
	newSession    func() Session
	rebootCommand string
	state         RebootState
	wait          time.Duration
	loginTimeout  time.Duration
}

// NewRebootCoordinator creates a coordinator. newSession must return a
// fresh unopened session on every call: the pre-reboot channel is torn
// down and never reused.
func NewRebootCoordinator(newSession func() Session, clock clockwork.Clock, rebootCommand string, wait, loginTimeout time.Duration) *RebootCoordinator {
	return &RebootCoordinator{
		newSession:    newSession,
		clock:         clock,
		rebootCommand: rebootCommand,
		wait:          wait,
		loginTimeout:  loginTimeout,
	}
}

// State returns the last state reached.
func (c *RebootCoordinator) State() RebootState {
	return c.state
}

func (c *RebootCoordinator) transition(s RebootState) {
	c.state = s
	log.Info().Stringer("state", s).Msg("reboot sequence")
}

// Run executes the full sequence and returns the re-authenticated
// post-reboot session. The wait is a single blind sleep: the board's
// boot time is empirically stable but not observable over this link,
// and a too-early reconnect attempt risks corrupting login detection.
func (c *RebootCoordinator) Run() (Session, error) {
	c.transition(StateIdle)

	sess := c.newSession()
	if err := sess.Open(); err != nil {
		return nil, err
	}
	c.transition(StateConnected)

	if err := sess.Login(c.loginTimeout); err != nil {
		_ = sess.Close()
		return nil, err
	}
	c.transition(StateAuthenticated)

	// The peer will not answer the reboot command, so no prompt wait.
	if err := sess.Send(c.rebootCommand); err != nil {
		_ = sess.Close()
		return nil, err
	}
	c.transition(StateRebootSent)

	// The old channel is meaningless once the peer is going down.
	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close pre-reboot session")
	}
	c.transition(StateDisconnected)

	c.transition(StateWaiting)
	log.Info().Dur("wait", c.wait).Msg("waiting for target to reboot")
	c.clock.Sleep(c.wait)

	c.transition(StateReconnecting)
	sess = c.newSession()
	if err := sess.Open(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRebootTimeout, err)
	}
	if err := sess.Login(c.loginTimeout); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: %w", ErrRebootTimeout, err)
	}
	c.transition(StateReAuthenticated)

	return sess, nil
}
