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

//go:build darwin

package dfu

import (
	"path/filepath"
	"strings"
)

// listSerialPorts globs for /dev/cu.* device nodes only. macOS exposes
// each USB CDC device twice, as /dev/tty.* and /dev/cu.*; the tty.*
// variant blocks open() waiting for carrier-detect and is skipped here
// to keep exactly one entry per physical device.
func listSerialPorts() []string {
	matches, err := filepath.Glob("/dev/cu.*")
	if err != nil {
		return nil
	}
	var paths []string
	for _, m := range matches {
		if strings.Contains(m, "/dev/tty.") {
			continue
		}
		paths = append(paths, m)
	}
	return normalizedSortedPaths(paths)
}
