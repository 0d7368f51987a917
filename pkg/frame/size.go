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

// Package frame repairs raw capture buffers so the downstream converter
// accepts them. The board's raw capture utility and ffmpeg disagree on
// chroma-plane sizing for odd frame heights: the capture path truncates
// the chroma height down, ffmpeg expects it rounded up. The size policy
// here encodes the converter's convention.
package frame

import (
	"errors"
	"fmt"
	"strings"
)

// Format is a raw pixel format tag as used by v4l2-ctl.
type Format string

const (
	NV12 Format = "NV12" // 4:2:0 semi-planar, UV interleaved
	NV21 Format = "NV21" // 4:2:0 semi-planar, VU interleaved
	YUYV Format = "YUYV" // 4:2:2 packed
	UYVY Format = "UYVY" // 4:2:2 packed
)

var ErrUnknownFormat = errors.New("unknown pixel format")

// ParseFormat validates a configured pixel format tag.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case NV12, NV21, YUYV, UYVY:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// PixFmt returns the format tag as ffmpeg spells it.
func (f Format) PixFmt() string {
	return strings.ToLower(string(f))
}

// ExpectedSize returns the byte length the converter expects for one
// raw frame of the given geometry. For 4:2:0 semi-planar formats the
// chroma plane height is (h+1)/2: rounded up for odd heights, which is
// where the device's truncating capture path falls short.
func ExpectedSize(width, height int, format Format) (int64, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid frame geometry %dx%d", width, height)
	}
	w, h := int64(width), int64(height)
	switch format {
	case NV12, NV21:
		luma := w * h
		chroma := w * ((h + 1) / 2)
		return luma + chroma, nil
	case YUYV, UYVY:
		return 2 * w * h, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
