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

import "time"

// Serial link parameters.
const (
	DfuBaudRate        = 115200
	TouchResetBaudRate = 1200

	SerialReadTimeout  = 1000 * time.Millisecond
	SerialWriteTimeout = 1000 * time.Millisecond
)

// Protocol timeouts.
const (
	AckTimeoutMs          = 5000
	BootloaderTimeoutMs   = 10000
	RebootTimeoutMs       = 10000
	PortScanIntervalMs    = 500
	RoleConfigTimeoutMs   = 5000
	ProfileConfigTimeoutMs = 5000
	SettingConfigTimeoutMs = 2000
)

// Retry parameters.
const (
	MaxPacketRetries   = 3
	RetryBaseDelayMs   = 100
	MaxOperationRetries = 2
)

// Flash/packet sizing.
const (
	FirmwareChunkSize    = 512
	FlashPageSize        = 4096
	FramesPerFlashPage   = 8
	FlashPageEraseTimeMs = 90
	FlashPageWriteTimeMs = 45
	MaxSlipFrameSize     = 1536
)

// HCI/SLIP framing constants.
const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD

	hciPacketType           = 14
	hciDataIntegrityPresent = 1
	hciReliablePacket       = 1
)

// DFU opcodes (32-bit little-endian at payload[0:4]).
const (
	OpStartDfu = 3
	OpInit     = 1
	OpData     = 4
	OpStop     = 5
)

// DFU image types, used in the StartDfu payload.
const (
	ImageApplication = 4
	ImageSoftdevice   = 1
	ImageBootloader   = 2
	ImageSdBootloader = 3
)

// USB identity.
const (
	AdafruitVendorID uint16 = 0x239A
)

// Boot-output draining.
const (
	BootDrainMaxMs      = 5000
	BootDrainPokeMs     = 200
	BootDrainSilenceMs  = 500
	BootDrainSettleMs   = 200
	BootDrainMaxBuffer  = 512
)

// Device-reboot settle times.
const (
	RebootSettleDelay = 2 * time.Second
)
