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

// Package transfer pulls capture artifacts off the board over the
// network. This is the one phase safe to retry: a failed scp does not
// consume the board's one-shot capture state.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/helpers"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrTransfer indicates the artifact could not be pulled after all
// attempts.
var ErrTransfer = errors.New("artifact transfer failed")

const (
	defaultAttempts   = 3
	defaultRetryDelay = 2 * time.Second
)

// Retriever copies the remote capture artifact to the local output
// directory under a collision-free name.
type Retriever struct {
	exec       helpers.CommandExecutor
	fs         afero.Fs
	clock      clockwork.Clock
	outputDir  string
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
}

// NewRetriever creates a Retriever writing into outputDir. Each scp
// invocation is bounded by timeout.
func NewRetriever(exec helpers.CommandExecutor, fs afero.Fs, clock clockwork.Clock, outputDir string, timeout time.Duration) *Retriever {
	return &Retriever{
		exec:       exec,
		fs:         fs,
		clock:      clock,
		outputDir:  outputDir,
		timeout:    timeout,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
}

// Pull copies user@host:remotePath to a uniquely named local file and
// returns its path and size. Network hiccups are transient, so failed
// attempts are retried a bounded number of times.
func (r *Retriever) Pull(user, host, remotePath string) (string, int64, error) {
	if err := r.fs.MkdirAll(r.outputDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create output directory: %w", err)
	}

	// Timestamp plus a short run ID keeps names unique across cycles
	// even when the clock has not advanced between runs.
	name := fmt.Sprintf("capture_raw_%s_%s%s",
		r.clock.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
		filepath.Ext(remotePath))
	localPath := filepath.Join(r.outputDir, name)

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		size, err := r.pullOnce(user, host, remotePath, localPath)
		if err == nil {
			log.Info().Str("path", localPath).Int64("size", size).Msg("artifact retrieved")
			return localPath, size, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("attempts", r.attempts).Msg("transfer attempt failed")
		if attempt < r.attempts {
			r.clock.Sleep(r.retryDelay)
		}
	}

	// An aborted scp can leave a partial file behind; the output
	// directory must only ever hold complete artifacts.
	if err := r.fs.Remove(localPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", localPath).Msg("failed to remove partial artifact")
	}
	return "", 0, fmt.Errorf("%w: %w", ErrTransfer, lastErr)
}

func (r *Retriever) pullOnce(user, host, remotePath, localPath string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, stderr, err := r.exec.Output(ctx, "scp",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "ConnectTimeout=10",
		fmt.Sprintf("%s@%s:%s", user, host, remotePath),
		localPath,
	)
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return 0, fmt.Errorf("scp: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("scp: %w", err)
	}

	info, err := r.fs.Stat(localPath)
	if err != nil {
		return 0, fmt.Errorf("scp reported success but %s is missing: %w", localPath, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("scp reported success but %s is empty", localPath)
	}
	return info.Size(), nil
}
