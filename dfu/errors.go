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
)

// Kind classifies a DfuError into the taxonomy a caller or the
// coordinator's session-retry logic can switch on.
type Kind string

const (
	KindInvalidSlipEscape  Kind = "invalid_slip_escape"
	KindIncompleteSlipFrame Kind = "incomplete_slip_frame"
	KindSlipBufferOverflow Kind = "slip_buffer_overflow"
	KindCrcMismatch        Kind = "crc_mismatch"
	KindSequenceMismatch   Kind = "sequence_mismatch"
	KindPacketTooLarge     Kind = "packet_too_large"

	KindPortBusy           Kind = "port_busy"
	KindPortPermissionDenied Kind = "port_permission_denied"
	KindNoDeviceFound      Kind = "no_device_found"
	KindDeviceDisconnected Kind = "device_disconnected"
	KindSerial             Kind = "serial"
	KindIo                 Kind = "io"

	KindTimeout            Kind = "timeout"
	KindBootloaderTimeout  Kind = "bootloader_timeout"
	KindMaxRetriesExceeded Kind = "max_retries_exceeded"
	KindDfuResponse        Kind = "dfu_response"

	KindMissingFile     Kind = "missing_file"
	KindInvalidManifest Kind = "invalid_manifest"

	KindRoleConfigFailed    Kind = "role_config_failed"
	KindProfileConfigFailed Kind = "profile_config_failed"
	KindSettingConfigFailed Kind = "setting_config_failed"
	KindNoSerialNumber      Kind = "no_serial_number"

	KindCancelled        Kind = "cancelled"
	KindAlreadyInProgress Kind = "already_in_progress"
)

// code maps each Kind to its stable DFU-0XX short code, for
// operator-facing documentation and log correlation.
var code = map[Kind]string{
	KindInvalidSlipEscape:    "DFU-001",
	KindIncompleteSlipFrame:  "DFU-002",
	KindSlipBufferOverflow:   "DFU-003",
	KindCrcMismatch:          "DFU-004",
	KindSequenceMismatch:     "DFU-005",
	KindPacketTooLarge:       "DFU-006",
	KindPortBusy:             "DFU-010",
	KindPortPermissionDenied: "DFU-011",
	KindNoDeviceFound:        "DFU-012",
	KindDeviceDisconnected:   "DFU-013",
	KindSerial:               "DFU-014",
	KindIo:                   "DFU-015",
	KindTimeout:              "DFU-020",
	KindBootloaderTimeout:    "DFU-021",
	KindMaxRetriesExceeded:   "DFU-022",
	KindDfuResponse:          "DFU-023",
	KindMissingFile:          "DFU-030",
	KindInvalidManifest:      "DFU-031",
	KindRoleConfigFailed:     "DFU-040",
	KindProfileConfigFailed:  "DFU-041",
	KindSettingConfigFailed:  "DFU-042",
	KindNoSerialNumber:       "DFU-043",
	KindCancelled:            "DFU-050",
	KindAlreadyInProgress:    "DFU-051",
}

// DfuError is the engine's single error type: a stable kind/code pair
// plus an optional wrapped cause and free-form detail.
type DfuError struct {
	Kind   Kind
	Code   string
	Detail string
	Cause  error
}

func (e *DfuError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Detail)
}

func (e *DfuError) Unwrap() error { return e.Cause }

// newErr builds a DfuError with the stable code looked up for kind.
func newErr(kind Kind, detail string, cause error) *DfuError {
	return &DfuError{Kind: kind, Code: code[kind], Detail: detail, Cause: cause}
}

func wrapf(kind Kind, cause error, format string, args ...interface{}) *DfuError {
	return newErr(kind, fmt.Sprintf(format, args...), cause)
}

func errf(kind Kind, format string, args ...interface{}) *DfuError {
	return newErr(kind, fmt.Sprintf(format, args...), nil)
}

// IsRetriable reports whether send_and_wait_ack should retry the same
// frame locally rather than escalating.
func (e *DfuError) IsRetriable() bool {
	switch e.Kind {
	case KindTimeout, KindCrcMismatch, KindSequenceMismatch:
		return true
	default:
		return false
	}
}

// retriableSessionText is the text set the coordinator matches against
// an escalated error's message to decide whether a whole session is
// worth retrying.
var retriableSessionText = []string{
	"timeout",
	"bootloader",
	"disconnected",
	"health check",
	"no compatible device",
	"not found",
	"not functioning",
	"temporarily unavailable",
	"interrupted",
}

// IsSessionRetriable applies the coordinator's text-match policy to any
// error, DfuError or not. DfuError.Error() already embeds its full
// wrapped chain in its message, so matching against err.Error()
// directly is sufficient without a separate unwrap step.
func IsSessionRetriable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retriableSessionText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
