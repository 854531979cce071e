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
	"sync/atomic"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// Coordinator is the public host API: detect, flash, cancel, set role,
// set profile, validate package. It wraps the engine with a
// single-flight guard and a cancellation flag, and retries
// a whole failed session a bounded number of times.
//
// Go has no implicit process-wide globals the way the legacy binding's
// fire-and-forget cancel() demanded one; the atomics below are scoped
// to one Coordinator value instead; a process that wants the original
// global behavior constructs exactly one Coordinator and shares it.
type Coordinator struct {
	inProgress atomic.Bool
	cancelled  atomic.Bool
	registry   *Registry
}

// NewCoordinator returns a ready-to-use Coordinator with its own
// device registry.
func NewCoordinator() *Coordinator {
	return &Coordinator{registry: NewRegistry()}
}

// DetectedDevice pairs an enumerated Device with the disambiguated
// label the UI should display for it.
type DetectedDevice struct {
	Device
	Label string
}

// Detect enumerates candidate devices, numbering duplicate display
// labels #1, #2, ...
func (c *Coordinator) Detect() []DetectedDevice {
	return labelDevices(c.registry.Enumerate())
}

// labelDevices pairs each device with its display label, numbering
// labels shared by several devices #1, #2, ... in enumeration order.
func labelDevices(devices []Device) []DetectedDevice {
	counts := map[string]int{}
	for _, d := range devices {
		counts[d.DisplayLabel()]++
	}

	seen := map[string]int{}
	out := make([]DetectedDevice, len(devices))
	for i, d := range devices {
		label := d.DisplayLabel()
		if counts[label] > 1 {
			seen[label]++
			label = fmt.Sprintf("%s #%d", label, seen[label])
		}
		out[i] = DetectedDevice{Device: d, Label: label}
	}
	return out
}

// Cancel requests cancellation of the in-flight operation, if any.
func (c *Coordinator) Cancel() {
	c.cancelled.Store(true)
}

// acquire implements the single-flight guard; its returned release
// func is deferred by every public entry point so every exit path
// (success, error, panic-free early return) clears the flag.
func (c *Coordinator) acquire() (release func(), err error) {
	if !c.inProgress.CompareAndSwap(false, true) {
		return nil, errf(KindAlreadyInProgress, "a DFU operation is already running")
	}
	c.cancelled.Store(false)
	return func() { c.inProgress.Store(false) }, nil
}

// Flash runs the full update pipeline under the single-flight guard and
// the session-level retry policy.
func (c *Coordinator) Flash(port, packagePath, role string, settings *AdvancedSettings, progress ProgressFunc) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	opts := FlashOptions{
		Port:        port,
		PackagePath: packagePath,
		Role:        role,
		Settings:    settings,
		Registry:    c.registry,
		Progress:    progress,
		Cancelled:   c.cancelled.Load,
	}

	return c.withSessionRetry(func() error { return Flash(opts) }, progress)
}

// SetRole runs the standalone role-change dialog under the same guard
// and retry policy, without reflashing firmware.
func (c *Coordinator) SetRole(port, role string, settings *AdvancedSettings, progress ProgressFunc) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	return c.withSessionRetry(func() error {
		return ConfigureRole(port, role, settings, c.registry, progress)
	}, progress)
}

// SetProfile runs the standalone profile-change dialog under the same
// guard and retry policy.
func (c *Coordinator) SetProfile(port, profile string, settings *AdvancedSettings, progress ProgressFunc) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	return c.withSessionRetry(func() error {
		return ConfigureProfile(port, profile, settings, c.registry, progress)
	}, progress)
}

// ValidatePackageInfo is the result shape of validating a firmware
// package.
type ValidatePackageInfo struct {
	FirmwareSize  int
	InitSize      int
	FirmwareCrc16 uint16
	DeviceType    uint16
	DfuVersion    float32
}

// ValidatePackage parses a firmware.zip without touching any device,
// for pre-flight sanity checks in the UI.
func (c *Coordinator) ValidatePackage(path string) (ValidatePackageInfo, error) {
	pkg, err := ReadFirmwareZip(path)
	if err != nil {
		return ValidatePackageInfo{}, err
	}
	return ValidatePackageInfo{
		FirmwareSize:  len(pkg.FirmwareData),
		InitSize:      len(pkg.InitData),
		FirmwareCrc16: pkg.Manifest.FirmwareCrc16,
		DeviceType:    pkg.Manifest.DeviceType,
		DfuVersion:    pkg.Manifest.DfuVersion,
	}, nil
}

// withSessionRetry retries op up to MaxOperationRetries additional
// times (MaxOperationRetries+1 attempts total) when it fails with a
// session-retriable error, sleeping 3+2*attempt seconds and clearing
// cancellation between attempts.
func (c *Coordinator) withSessionRetry(op func() error, progress ProgressFunc) error {
	var lastErr error
	for attempt := 0; attempt <= MaxOperationRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(3+2*attempt) * time.Second
			jww.INFO.Printf("retrying DFU session (attempt %d/%d) after %v: %v", attempt+1, MaxOperationRetries+1, delay, lastErr)
			emit(progress, Stage{Kind: StageLog, Message: fmt.Sprintf("retrying after error: %v", lastErr)})
			time.Sleep(delay)
			c.cancelled.Store(false)
		}

		err := op()
		if err == nil {
			return nil
		}
		if de, ok := err.(*DfuError); ok && de.Kind == KindCancelled {
			emit(progress, Stage{Kind: StageCancelled})
			return err
		}
		lastErr = err
		if !IsSessionRetriable(err) {
			return err
		}
	}
	return lastErr
}
