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

package frame

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrOversize indicates the raw buffer is larger than the expected
// size, which points at a capture or configuration problem. Padding
// only ever appends; an oversize buffer is never truncated.
var ErrOversize = errors.New("raw frame larger than expected size")

// Repairer pads short raw frames in place to the expected size.
type Repairer struct {
	fs afero.Fs
}

// NewRepairer creates a Repairer over the given filesystem.
func NewRepairer(fs afero.Fs) *Repairer {
	return &Repairer{fs: fs}
}

// Repair appends zero bytes to the file at path until it reaches the
// expected size for the frame geometry. A correctly sized file is left
// untouched. Returns the final size and how many bytes were appended.
func (r *Repairer) Repair(path string, width, height int, format Format) (size, padded int64, err error) {
	expected, err := ExpectedSize(width, height, format)
	if err != nil {
		return 0, 0, err
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("stat raw frame: %w", err)
	}
	actual := info.Size()

	switch {
	case actual == expected:
		return actual, 0, nil
	case actual > expected:
		return actual, 0, fmt.Errorf("%w: %d > %d for %dx%d %s",
			ErrOversize, actual, expected, width, height, format)
	}

	padded = expected - actual
	f, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return actual, 0, fmt.Errorf("open raw frame for padding: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close raw frame: %w", closeErr)
		}
	}()

	if _, err = f.Write(make([]byte, padded)); err != nil {
		return actual, 0, fmt.Errorf("pad raw frame: %w", err)
	}

	log.Info().Str("path", path).
		Int64("actual", actual).Int64("expected", expected).Int64("padded", padded).
		Msg("raw frame padded to expected size")
	return expected, padded, nil
}
