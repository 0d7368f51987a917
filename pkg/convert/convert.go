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

// Package convert turns a repaired raw frame into a standard image
// file by invoking ffmpeg. Conversion failures are surfaced verbatim
// and never retried.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/frame"
	"github.com/ConsoleCamProject/consolecam-core/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrConversion indicates ffmpeg failed or produced no output.
var ErrConversion = errors.New("raw image conversion failed")

// Converter invokes ffmpeg on a local raw frame.
type Converter struct {
	exec    helpers.CommandExecutor
	fs      afero.Fs
	timeout time.Duration
}

// NewConverter creates a Converter. Each ffmpeg invocation is bounded
// by timeout.
func NewConverter(exec helpers.CommandExecutor, fs afero.Fs, timeout time.Duration) *Converter {
	return &Converter{exec: exec, fs: fs, timeout: timeout}
}

// ToJPEG encodes the raw frame at rawPath into a JPEG at jpgPath.
func (c *Converter) ToJPEG(rawPath, jpgPath string, width, height int, format frame.Format) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	_, stderr, err := c.exec.Output(ctx, "ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", format.PixFmt(),
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-i", rawPath,
		"-frames:v", "1",
		"-q:v", "2",
		jpgPath,
	)
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("%w: ffmpeg: %w: %s", ErrConversion, err, msg)
		}
		return fmt.Errorf("%w: ffmpeg: %w", ErrConversion, err)
	}

	info, err := c.fs.Stat(jpgPath)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg succeeded but %s is missing: %w", ErrConversion, jpgPath, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: ffmpeg succeeded but %s is empty", ErrConversion, jpgPath)
	}

	log.Info().Str("path", jpgPath).Int64("size", info.Size()).Msg("raw frame converted")
	return nil
}
