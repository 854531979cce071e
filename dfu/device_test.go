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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPortPattern(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"/dev/cu.usbmodem14201", "usbmodem142"},
		{"/dev/cu.usbmodem14203", "usbmodem142"},
		{"COM4", "COM4"},
		{"COM12", "COM12"},
		{"/dev/ttyACM0", "ttyACM0"},
		{"/dev/ttyUSB1", "ttyUSB1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, extractPortPattern(c.port), "port=%s", c.port)
	}
}

func TestIsApplicationBootloaderPID(t *testing.T) {
	assert.True(t, isApplicationPID(0x8029))
	assert.False(t, isApplicationPID(0x0029))
	assert.True(t, isBootloaderPID(0x0029))
	assert.False(t, isBootloaderPID(0x8029))
}

func TestPidsSameFamily(t *testing.T) {
	assert.True(t, pidsSameFamily(0x8029, 0x0029))
	assert.False(t, pidsSameFamily(0x8029, 0x002A))
}

func TestDeviceIdentifierPrefersSerial(t *testing.T) {
	d := Device{Port: "/dev/cu.usbmodem14201", VID: AdafruitVendorID, PID: 0x8029, Serial: "ABC123"}
	id := NewDeviceIdentifier(d)
	assert.True(t, id.HasSerial())
	assert.Equal(t, "ABC123", id.Serial)
}

func TestDeviceIdentifierMatchesBySerial(t *testing.T) {
	id := DeviceIdentifier{Serial: "ABC123"}
	assert.True(t, id.Matches(Device{Serial: "ABC123", Port: "/dev/cu.usbmodem14299"}))
	assert.False(t, id.Matches(Device{Serial: "OTHER", Port: "/dev/cu.usbmodem14201"}))
}

func TestDeviceIdentifierMatchesByVidPidPortFallback(t *testing.T) {
	d := Device{Port: "/dev/cu.usbmodem14201", VID: AdafruitVendorID, PID: 0x8029}
	id := NewDeviceIdentifier(d)
	assert.False(t, id.HasSerial())

	// Same family (low byte), same vendor, port contains the pattern: matches
	// even though the PID's high byte flipped from application to bootloader
	// and the port renumbered slightly.
	assert.True(t, id.Matches(Device{Port: "/dev/cu.usbmodem14203", VID: AdafruitVendorID, PID: 0x0029}))

	assert.False(t, id.Matches(Device{Port: "/dev/cu.usbmodem99999", VID: AdafruitVendorID, PID: 0x0029}))
	assert.False(t, id.Matches(Device{Port: "/dev/cu.usbmodem14203", VID: 0x1234, PID: 0x0029}))
}

func TestWaitForDeviceDebounces(t *testing.T) {
	calls := 0
	enumerate := func() []Device {
		calls++
		if calls < 2 {
			return nil
		}
		return []Device{{Port: "/dev/cu.usbmodem14201", InBootloader: true, Serial: "X"}}
	}

	id := DeviceIdentifier{Serial: "X"}
	d, err := WaitForBootloader(enumerate, id, 5000)
	assert.NoError(t, err)
	assert.Equal(t, "/dev/cu.usbmodem14201", d.Port)
	assert.GreaterOrEqual(t, calls, 3) // one miss, then two consecutive hits
}

func TestWaitForDeviceTimesOut(t *testing.T) {
	enumerate := func() []Device { return nil }
	_, err := waitForDevice(enumerate, 50, func(Device) bool { return false })
	var de *DfuError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, KindBootloaderTimeout, de.Kind)
}
