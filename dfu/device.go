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

package dfu

import (
	"fmt"
	"strings"
	"time"
)

// Device is a snapshot of one detected serial port believed to be an
// Adafruit-family nRF52840, taken at enumeration time. Devices are
// immutable once constructed; a new enumeration produces new values.
type Device struct {
	Port         string
	VID          uint16
	PID          uint16
	Serial       string // "" if the device exposed none
	InBootloader bool
	Product      string
	Manufacturer string
}

// DisplayLabel renders a human-facing name for the device, preferring
// the USB product string, falling back to a mode-qualified port label.
func (d Device) DisplayLabel() string {
	if d.Product != "" {
		return d.Product
	}
	if d.InBootloader {
		return fmt.Sprintf("nRF52840 Bootloader (%s)", d.Port)
	}
	return fmt.Sprintf("BlueBuzzah (%s)", d.Port)
}

// DeviceIdentifier tracks a physical device across a bootloader entry
// or reboot, during which its port path and PID may both change. It
// prefers a USB serial number; absent one, it falls back to a
// (vid, pid-family, port-pattern) tuple. Expressed as a struct with a
// sentinel empty Serial rather than an interface, since the two
// branches share no behavior beyond Matches.
type DeviceIdentifier struct {
	Serial      string
	VID         uint16
	PIDFamily   uint8
	PortPattern string
}

// NewDeviceIdentifier builds an identifier from a just-enumerated
// device, preferring its serial number.
func NewDeviceIdentifier(d Device) DeviceIdentifier {
	if d.Serial != "" {
		return DeviceIdentifier{Serial: d.Serial}
	}
	return DeviceIdentifier{
		VID:         d.VID,
		PIDFamily:   uint8(d.PID & 0x00FF),
		PortPattern: extractPortPattern(d.Port),
	}
}

// HasSerial reports whether this identifier tracks by serial number
// rather than by VID/PID/port pattern.
func (id DeviceIdentifier) HasSerial() bool { return id.Serial != "" }

// Matches reports whether d is the device this identifier tracks.
func (id DeviceIdentifier) Matches(d Device) bool {
	if id.HasSerial() {
		return d.Serial == id.Serial
	}
	return d.VID == id.VID &&
		isSameDeviceFamily(d.PID, id.PIDFamily) &&
		strings.Contains(d.Port, id.PortPattern)
}

// isSameDeviceFamily reports whether pid's low byte matches family —
// Adafruit's application (0x80XX) and bootloader (0x00XX) PIDs for the
// same board variant always share a low byte.
func isSameDeviceFamily(pid uint16, family uint8) bool {
	return uint8(pid&0x00FF) == family
}

// pidsSameFamily is the two-PID form used directly by tests and by
// registry code comparing two freshly enumerated devices.
func pidsSameFamily(pid1, pid2 uint16) bool {
	return (pid1 & 0x00FF) == (pid2 & 0x00FF)
}

// isApplicationPID classifies a PID by its high byte: 0x80 is
// application mode, 0x00 is bootloader mode.
func isApplicationPID(pid uint16) bool {
	return (pid>>8)&0xFF == 0x80
}

func isBootloaderPID(pid uint16) bool {
	return (pid>>8)&0xFF == 0x00
}

// extractPortPattern extracts the stable portion of a port name used
// to re-identify a device across minor renumbering, following each
// OS's own naming convention.
func extractPortPattern(port string) string {
	if idx := strings.LastIndex(port, "usbmodem"); idx >= 0 {
		end := idx + len("usbmodem") + 3
		if end > len(port) {
			end = len(port)
		}
		return port[idx:end]
	}
	if strings.HasPrefix(port, "COM") {
		return port
	}
	if idx := strings.LastIndex(port, "ttyACM"); idx >= 0 {
		end := idx + len("ttyACM") + 1
		if end > len(port) {
			end = len(port)
		}
		return port[idx:end]
	}
	if idx := strings.LastIndex(port, "ttyUSB"); idx >= 0 {
		end := idx + len("ttyUSB") + 1
		if end > len(port) {
			end = len(port)
		}
		return port[idx:end]
	}
	return port
}

// requiredConsecutiveHits is the debounce threshold: a device must be
// seen this many scans in a row before a wait resolves, so a brief
// mid-enumeration listing doesn't trigger early.
const requiredConsecutiveHits = 2

// waitForDevice polls enumerate every PortScanIntervalMs until a device
// matching pred is seen requiredConsecutiveHits times in a row, or
// timeoutMs elapses.
func waitForDevice(enumerate func() []Device, timeoutMs int, pred func(Device) bool) (Device, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	consecutive := 0
	for time.Now().Before(deadline) {
		found := false
		for _, d := range enumerate() {
			if pred(d) {
				consecutive++
				found = true
				if consecutive >= requiredConsecutiveHits {
					return d, nil
				}
				break
			}
		}
		if !found {
			consecutive = 0
		}
		time.Sleep(PortScanIntervalMs * time.Millisecond)
	}
	return Device{}, errf(KindBootloaderTimeout, "timed out after %dms waiting for device", timeoutMs)
}

// WaitForBootloader polls for identifier to appear in bootloader mode.
func WaitForBootloader(enumerate func() []Device, identifier DeviceIdentifier, timeoutMs int) (Device, error) {
	return waitForDevice(enumerate, timeoutMs, func(d Device) bool {
		return d.InBootloader && identifier.Matches(d)
	})
}

// WaitForApplication polls for identifier to appear in application mode.
func WaitForApplication(enumerate func() []Device, identifier DeviceIdentifier, timeoutMs int) (Device, error) {
	return waitForDevice(enumerate, timeoutMs, func(d Device) bool {
		return !d.InBootloader && identifier.Matches(d)
	})
}
