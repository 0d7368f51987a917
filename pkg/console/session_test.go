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

package console_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ConsoleCamProject/consolecam-core/pkg/console"
	"github.com/ConsoleCamProject/consolecam-core/pkg/console/consoletest"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const shellPrompt = "[root@luckfox ~]# "

func testOptions() console.Options {
	return console.Options{
		Port:           "/dev/ttyS3",
		BaudRate:       115200,
		Username:       "root",
		Password:       "luckfox",
		LoginPrompt:    "login: ",
		PasswordPrompt: "Password: ",
		ShellPrompts:   []string{shellPrompt, "# "},
	}
}

// boardResponder plays a freshly booted board: login prompt on wake,
// then the credential exchange, then echoing shell commands.
func boardResponder(written string) string {
	switch written {
	case "\n":
		return "luckfox login: "
	case "root\n":
		return "Password: "
	case "luckfox\n":
		return "\n" + shellPrompt
	default:
		return written + "\n" + shellPrompt
	}
}

func openSession(t *testing.T, port *consoletest.MockPort) *console.Session {
	t.Helper()
	sess := console.NewSession(testOptions(), consoletest.Factory(port), clockwork.NewRealClock())
	require.NoError(t, sess.Open())
	return sess
}

func TestSession_LoginSuccess(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	require.NoError(t, sess.Login(2*time.Second))
	assert.Equal(t, console.Authenticated, sess.State())
	assert.Contains(t, port.Writes, "root\n")
	assert.Contains(t, port.Writes, "luckfox\n")
}

func TestSession_LoginAlreadyAtShell(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = func(string) string { return shellPrompt }
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	require.NoError(t, sess.Login(2*time.Second))
	assert.Equal(t, console.Authenticated, sess.State())
	assert.Equal(t, []string{"\n"}, port.Writes, "no credentials should be sent")
}

func TestSession_LoginRejected(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = func(written string) string {
		switch written {
		case "\n":
			return "luckfox login: "
		case "root\n":
			return "Password: "
		default:
			// Wrong password: the board prints the login prompt again.
			return "\nLogin incorrect\nluckfox login: "
		}
	}
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	err := sess.Login(500 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrLoginRejected)
	assert.Equal(t, console.Unauthenticated, sess.State())
}

func TestSession_LoginBannerAfterPassword(t *testing.T) {
	t.Parallel()

	// The shell prompt trails the banner in a later read, so the
	// "login: " text inside the banner must not read as rejection.
	port := consoletest.NewMockPort()
	port.Respond = func(written string) string {
		switch written {
		case "\n":
			return "luckfox login: "
		case "root\n":
			return "Password: "
		case "luckfox\n":
			go func() {
				time.Sleep(50 * time.Millisecond)
				port.Queue(shellPrompt)
			}()
			return "\nLast login: Thu May  7 10:00:00 on ttyS3\n"
		default:
			return ""
		}
	}
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	require.NoError(t, sess.Login(2*time.Second))
	assert.Equal(t, console.Authenticated, sess.State())
}

func TestSession_LoginTimeout(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	// The board never answers the wake newlines.
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	start := time.Now()
	err := sess.Login(300 * time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrLoginTimeout)
	assert.Less(t, elapsed, 2*time.Second, "login must not block past its deadline")
}

func TestSession_ExecuteStripsEcho(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Login(2*time.Second))

	port.Respond = func(written string) string {
		return written + "total 0\n-rw-r--r-- 1 root root 48480 May  7 10:00 /tmp/csi_capture.yuv\n" + shellPrompt
	}
	out, err := sess.Execute("ls -l /tmp/csi_capture.yuv", 2*time.Second)
	require.NoError(t, err)
	assert.NotContains(t, out, "ls -l /tmp/csi_capture.yuv\n", "echo must be stripped")
	assert.Contains(t, out, "48480")
}

func TestSession_ExecuteFindsBuriedPrompt(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Login(2*time.Second))

	// Log spew printed after the prompt keeps it off the buffer end,
	// so only the late anywhere-search can find it.
	port.Respond = func(written string) string {
		return written + "done\n" + shellPrompt + "\nrkipc: stream restarted\nrkipc: encoder up\n"
	}
	out, err := sess.Execute("killall rkipc || true", 500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestSession_ExecuteTimeout(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Login(2*time.Second))

	// Command output arrives but the prompt never does.
	port.Respond = func(written string) string {
		return written + "still going...\n"
	}
	start := time.Now()
	_, err := sess.Execute("v4l2-ctl --stream-count=1", 300*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrCommandTimeout)
	assert.Less(t, elapsed, 3*time.Second, "execute must not block past its deadline")
}

func TestSession_ExecuteRequiresAuthentication(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	_, err := sess.Execute("ls", time.Second)
	assert.ErrorIs(t, err, console.ErrNotAuthenticated)

	err = sess.Send("reboot")
	assert.ErrorIs(t, err, console.ErrNotAuthenticated)
}

func TestSession_SendDoesNotWait(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Login(2*time.Second))

	// No scripted response for reboot: Send must return immediately.
	port.Respond = nil
	require.NoError(t, sess.Send("reboot"))
	assert.Contains(t, port.Writes, "reboot\n")
}

func TestSession_Logout(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.Respond = boardResponder
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Login(2*time.Second))

	port.Respond = func(written string) string { return "luckfox login: " }
	require.NoError(t, sess.Logout(500*time.Millisecond))
	assert.Equal(t, console.Unauthenticated, sess.State())
	assert.Contains(t, port.Writes, "exit\n")
}

func TestSession_CloseIdempotent(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	sess := openSession(t, port)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.True(t, port.IsClosed())
	assert.Equal(t, console.Closed, sess.State())
}

func TestSession_OpenFailure(t *testing.T) {
	t.Parallel()

	sess := console.NewSession(testOptions(),
		consoletest.FailingFactory(errors.New("no such device")),
		clockwork.NewRealClock())

	err := sess.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrChannel)
}

func TestSession_OpenTwiceFails(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	err := sess.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrChannel)
}

func TestSession_ReadErrorSurfacesAsChannelError(t *testing.T) {
	t.Parallel()

	port := consoletest.NewMockPort()
	port.ReadErr = errors.New("device unplugged")
	sess := openSession(t, port)
	defer func() { _ = sess.Close() }()

	err := sess.Login(time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, console.ErrChannel)
}
