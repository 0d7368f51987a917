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
	"errors"
	"time"
)

// ErrRebootTimeout indicates the board did not come back to an
// authenticated session after the reboot wait. The board's hardware
// reset policy is outside this tool's control, so there are no
// further automatic retries.
var ErrRebootTimeout = errors.New("no re-authentication after reboot wait")

// Phase tags the step of a capture cycle a result refers to.
type Phase string

const (
	PhaseReboot   Phase = "reboot"
	PhaseCapture  Phase = "capture"
	PhaseTransfer Phase = "transfer"
	PhaseRepair   Phase = "repair"
	PhaseConvert  Phase = "convert"
	PhaseCleanup  Phase = "cleanup"
)

// PhaseTiming records when a phase started and ended.
type PhaseTiming struct {
	Start time.Time
	End   time.Time
	Phase Phase
}

// Result is the terminal outcome of one capture cycle.
type Result struct {
	Err       error
	ImagePath string
	Phase     Phase
	Timings   []PhaseTiming
	OK        bool
}
