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

import "errors"

var (
	// ErrChannel indicates the serial transport is unavailable or failed
	// mid-operation.
	ErrChannel = errors.New("serial channel unavailable")

	// ErrLoginTimeout indicates no expected prompt appeared during the
	// login handshake.
	ErrLoginTimeout = errors.New("login timed out")

	// ErrLoginRejected indicates the login prompt reappeared after
	// credentials were sent, meaning they were not accepted.
	ErrLoginRejected = errors.New("login rejected")

	// ErrCommandTimeout indicates no shell prompt reappeared after a
	// command within the configured duration.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrNotAuthenticated indicates a command was issued before the
	// session completed login.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrClosed indicates an operation on a closed session.
	ErrClosed = errors.New("session closed")
)
