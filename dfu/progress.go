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

import "fmt"

// StageKind tags the variant carried by a Stage value.
type StageKind string

const (
	StageReadingPackage     StageKind = "reading_package"
	StageDetectedDevice     StageKind = "detected_device"
	StageEnteringBootloader StageKind = "entering_bootloader"
	StageWaitingBootloader  StageKind = "waiting_for_bootloader"
	StageConnecting         StageKind = "connecting"
	StageStarting           StageKind = "starting"
	StageSendingInit        StageKind = "sending_init"
	StageUploading          StageKind = "uploading"
	StageFinalizing         StageKind = "finalizing"
	StageWaitingReboot      StageKind = "waiting_for_reboot"
	StageConfiguringRole    StageKind = "configuring_role"
	StageComplete           StageKind = "complete"
	StageLog                StageKind = "log"
	StageCancelled          StageKind = "cancelled"
)

// Stage is one event in the typed stage stream the engine emits to a
// caller's progress sink. Only the fields relevant to Kind are
// populated; a single struct rather than an interface hierarchy,
// matching the shape DeviceIdentifier already uses in device.go.
type Stage struct {
	Kind StageKind

	// DetectedDevice
	PID          uint16
	InBootloader bool

	// Uploading
	Sent  int
	Total int

	// Log
	Message string
}

func (s Stage) String() string {
	switch s.Kind {
	case StageDetectedDevice:
		return fmt.Sprintf("detected device pid=0x%04x in_bootloader=%v", s.PID, s.InBootloader)
	case StageUploading:
		return fmt.Sprintf("uploading %d/%d", s.Sent, s.Total)
	case StageLog:
		return s.Message
	default:
		return string(s.Kind)
	}
}

// ProgressFunc receives stage events in emission order, synchronously on
// the goroutine running the operation. It returns nothing, so the engine
// cannot tell whether the sink is still being consumed; a sink that has
// gone away does not cancel the operation (only Coordinator.Cancel does).
type ProgressFunc func(Stage)

func emit(progress ProgressFunc, s Stage) {
	if progress != nil {
		progress(s)
	}
}
