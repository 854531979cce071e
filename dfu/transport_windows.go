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

//go:build windows

package dfu

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/windows"
)

const (
	escapeSetDTR = 5 // SETDTR
	escapeClrDTR = 6 // CLRDTR
)

// setDTR opens a short-lived handle on the COM port (tarm/serial keeps
// its own handle private) and issues EscapeCommFunction, the Win32 call
// for toggling individual modem-control lines without touching the
// rest of the DCB.
func setDTR(path string, state bool) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return wrapf(KindSerial, err, "setting DTR on %s", path)
	}
	defer f.Close()

	fn := uint32(escapeClrDTR)
	if state {
		fn = escapeSetDTR
	}
	if err := windows.EscapeCommFunction(windows.Handle(f.Fd()), fn); err != nil {
		return wrapf(KindSerial, err, "setting DTR on %s", path)
	}
	return nil
}

// keepAlive clears any pending comm error/status, a side-effect-free
// call that touches the handle to discourage Windows from tearing it
// down during a long idle wait.
func keepAlive(path string) error {
	return portIsHealthyErr(path)
}

func portIsHealthy(path string) bool {
	return portIsHealthyErr(path) == nil
}

func portIsHealthyErr(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return wrapf(KindSerial, err, "health check on %s", path)
	}
	defer f.Close()

	var errs uint32
	var stat windows.ComStat
	if err := windows.ClearCommError(windows.Handle(f.Fd()), &errs, &stat); err != nil {
		return wrapf(KindSerial, err, "health check on %s", path)
	}
	return nil
}

// normalizePortNamePlatform adds the \\.\ device-namespace prefix
// required by the Win32 API for COM ports numbered above 9.
func normalizePortNamePlatform(name string) string {
	if strings.HasPrefix(name, `\\.\`) {
		return name
	}
	if !strings.HasPrefix(strings.ToUpper(name), "COM") {
		return name
	}
	numPart := name[3:]
	if n, err := strconv.Atoi(numPart); err == nil && n > 9 {
		return `\\.\` + name
	}
	return name
}
