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
	"bytes"
	"strings"
)

// diagnosticTail is how many trailing bytes of console output are kept
// for error messages when no prompt was found.
const diagnosticTail = 200

// Matcher recognizes a set of candidate prompt strings in an
// accumulating console byte buffer. The device's background services
// flood the console with unrelated log output, so matching is
// substring-based over the raw stream, not terminal emulation.
type Matcher struct {
	prompts [][]byte
}

// NewMatcher returns a Matcher for the given prompt strings. Empty
// candidates are dropped.
func NewMatcher(prompts ...string) *Matcher {
	m := &Matcher{prompts: make([][]byte, 0, len(prompts))}
	for _, p := range prompts {
		if p != "" {
			m.prompts = append(m.prompts, []byte(p))
		}
	}
	return m
}

// With returns a new Matcher recognizing this matcher's prompts plus
// the extra candidates.
func (m *Matcher) With(prompts ...string) *Matcher {
	all := make([]string, 0, len(m.prompts)+len(prompts))
	for _, p := range m.prompts {
		all = append(all, string(p))
	}
	all = append(all, prompts...)
	return NewMatcher(all...)
}

// Match reports a candidate prompt terminating buf, along with the
// content preceding it. A prompt at the end of the stream is the normal
// "ready for input" signal: the shell prints it without a trailing
// newline and stops.
func (m *Matcher) Match(buf []byte) (prompt string, before []byte, ok bool) {
	for _, p := range m.prompts {
		if bytes.HasSuffix(buf, p) {
			return string(p), buf[:len(buf)-len(p)], true
		}
	}
	return "", nil, false
}

// MatchLast reports the candidate with the latest occurrence anywhere
// in buf. Used as a fallback at deadline, when log spew printed after
// the prompt has pushed it away from the end of the buffer.
func (m *Matcher) MatchLast(buf []byte) (prompt string, before []byte, ok bool) {
	bestStart, bestEnd := -1, -1
	var bestPrompt []byte
	for _, p := range m.prompts {
		idx := bytes.LastIndex(buf, p)
		if idx < 0 {
			continue
		}
		// Prefer the match ending latest; on a tie the longer prompt
		// wins, so "# " cannot shadow a full shell prompt it is part of.
		end := idx + len(p)
		if end > bestEnd || (end == bestEnd && idx < bestStart) {
			bestStart, bestEnd = idx, end
			bestPrompt = p
		}
	}
	if bestStart < 0 {
		return "", nil, false
	}
	return string(bestPrompt), buf[:bestStart], true
}

// Contains reports the first candidate found anywhere in buf. Login
// detection uses containment because the boot banner keeps printing
// after the login prompt.
func (m *Matcher) Contains(buf []byte) (prompt string, ok bool) {
	for _, p := range m.prompts {
		if bytes.Contains(buf, p) {
			return string(p), true
		}
	}
	return "", false
}

// tail returns the last diagnosticTail bytes of buf as a printable
// string for error messages.
func tail(buf []byte) string {
	if len(buf) > diagnosticTail {
		buf = buf[len(buf)-diagnosticTail:]
	}
	return strings.ToValidUTF8(string(buf), "�")
}
