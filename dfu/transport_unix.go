// Copyright (C) 2018 Rob Caelers <rob.caelers@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

//go:build linux || darwin

package dfu

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// tarm/serial opens its own handle on the port and never exposes its
// file descriptor, so DTR is driven through a second, short-lived
// open() on the same device node. TIOCMBIS/TIOCMBIC act on the tty
// line state directly rather than through the fd's buffers, so this is
// safe to interleave with the long-lived read/write handle.
func setDTR(path string, state bool) error {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return wrapf(KindSerial, err, "setting DTR on %s", path)
	}
	defer f.Close()

	bits := unix.TIOCM_DTR
	if state {
		return unix.IoctlSetPointerInt(int(f.Fd()), unix.TIOCMBIS, bits)
	}
	return unix.IoctlSetPointerInt(int(f.Fd()), unix.TIOCMBIC, bits)
}

// keepAlive queries the modem-control-line state, a side-effect-free
// ioctl that's enough to keep macOS from silently invalidating a tty
// handle left idle during a long flash-page wait.
func keepAlive(path string) error {
	return portIsHealthyErr(path)
}

func portIsHealthy(path string) bool {
	return portIsHealthyErr(path) == nil
}

func portIsHealthyErr(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return wrapf(KindSerial, err, "health check on %s", path)
	}
	defer f.Close()

	_, err = unix.IoctlGetInt(int(f.Fd()), unix.TIOCMGET)
	if err != nil {
		return wrapf(KindSerial, err, "health check on %s", path)
	}
	return nil
}

// normalizePortNamePlatform rewrites macOS /dev/tty.* paths to their
// /dev/cu.* twin; other paths are returned unchanged.
func normalizePortNamePlatform(name string) string {
	if runtime.GOOS == "darwin" && strings.HasPrefix(name, "/dev/tty.") {
		return "/dev/cu." + strings.TrimPrefix(name, "/dev/tty.")
	}
	return name
}
