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
	"github.com/stretchr/testify/require"
)

func TestCoordinatorSingleFlight(t *testing.T) {
	c := NewCoordinator()

	release, err := c.acquire()
	require.NoError(t, err)

	_, err = c.acquire()
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindAlreadyInProgress, de.Kind)

	release()

	release2, err := c.acquire()
	require.NoError(t, err)
	release2()
}

func TestCoordinatorCancelResetOnAcquire(t *testing.T) {
	c := NewCoordinator()
	c.cancelled.Store(true)

	release, err := c.acquire()
	require.NoError(t, err)
	defer release()

	assert.False(t, c.cancelled.Load())
}

func TestCoordinatorDetectNumbersDuplicateLabels(t *testing.T) {
	// Detect drives off registry.Enumerate(), which in turn drives off
	// OS-level port listing; exercise labelDevices, the step Detect
	// applies to that list, against a fixed device slice instead.
	devices := []Device{
		{Port: "/dev/cu.usbmodem14201", Product: "Feather nRF52840"},
		{Port: "/dev/cu.usbmodem14301", Product: "Feather nRF52840"},
		{Port: "/dev/cu.usbmodem14401", Product: "Other Board"},
	}

	var labels []string
	for _, d := range labelDevices(devices) {
		labels = append(labels, d.Label)
	}

	assert.Equal(t, []string{"Feather nRF52840 #1", "Feather nRF52840 #2", "Other Board"}, labels)
}

func TestWithSessionRetryStopsOnSuccess(t *testing.T) {
	c := NewCoordinator()
	attempts := 0
	err := c.withSessionRetry(func() error {
		attempts++
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithSessionRetryGivesUpOnNonRetriable(t *testing.T) {
	c := NewCoordinator()
	attempts := 0
	err := c.withSessionRetry(func() error {
		attempts++
		return errf(KindPortPermissionDenied, "nope")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithSessionRetryStopsOnCancellation(t *testing.T) {
	c := NewCoordinator()
	attempts := 0
	err := c.withSessionRetry(func() error {
		attempts++
		return errf(KindCancelled, "cancelled")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestValidatePackage(t *testing.T) {
	c := NewCoordinator()
	path := writeTestZip(t, validManifest, true, true)

	info, err := c.ValidatePackage(path)
	require.NoError(t, err)
	assert.Equal(t, 4, info.FirmwareSize)
	assert.Equal(t, 3, info.InitSize)
	assert.Equal(t, uint16(18974), info.FirmwareCrc16)
	assert.Equal(t, uint16(82), info.DeviceType)
}
