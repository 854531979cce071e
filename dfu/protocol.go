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
	"encoding/binary"
	"math"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// HciDfuProtocol is one DFU session over an already-open bootloader
// transport: a sequence counter reset at construction, a fresh SLIP
// decoder, and the per-packet send/ack/retry logic.
type HciDfuProtocol struct {
	transport *Transport
	seq       SequenceCounter
	decoder   *SlipDecoder
	cancelled func() bool
}

// NewHciDfuProtocol starts a session: resets the sequence counter and
// allocates a fresh decoder.
func NewHciDfuProtocol(t *Transport, cancelled func() bool) *HciDfuProtocol {
	p := &HciDfuProtocol{transport: t, decoder: NewSlipDecoder(), cancelled: cancelled}
	p.seq.Reset()
	return p
}

func (p *HciDfuProtocol) isCancelled() bool {
	return p.cancelled != nil && p.cancelled()
}

// sendAndWaitAck sends payload under a freshly assigned sequence number
// and waits for the device's ACK frame, retrying the identical bytes on
// a retriable error. The sequence number is assigned once; retries
// resend the same built packet.
func (p *HciDfuProtocol) sendAndWaitAck(payload []byte) error {
	packet := buildHciPacket(p.seq.Next(), payload)

	var lastErr error
	for attempt := 0; attempt <= MaxPacketRetries; attempt++ {
		if attempt > 0 {
			p.decoder.Reset()
			backoff := RetryBaseDelayMs << uint(attempt-1)
			time.Sleep(time.Duration(backoff) * time.Millisecond)
		}

		if err := p.transport.Write(packet); err != nil {
			return err
		}

		frame, err := p.readAckFrame(AckTimeoutMs)
		if err == nil {
			ack, ackErr := parseAck(frame)
			if ackErr != nil {
				return ackErr
			}
			jww.DEBUG.Printf("ack received (ack number %d, not validated)", ack)
			return nil
		}

		lastErr = err
		if de, ok := err.(*DfuError); !ok || !de.IsRetriable() {
			return err
		}
	}
	return wrapf(KindMaxRetriesExceeded, lastErr, "packet retries exhausted")
}

// readAckFrame reads and decodes one SLIP frame within timeoutMs,
// verifying its trailing CRC16 against the header+payload it covers.
func (p *HciDfuProtocol) readAckFrame(timeoutMs int) ([]byte, error) {
	buf := make([]byte, 128)
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	for {
		n, err := p.transport.Read(buf, 100)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			frames, ferr := p.decoder.FeedBytes(buf[:n])
			if ferr != nil {
				return nil, ferr
			}
			for _, frame := range frames {
				return p.verifyFrameCrc(frame)
			}
		}
		if time.Now().After(deadline) {
			return nil, errf(KindTimeout, "no ack within %dms", timeoutMs)
		}
	}
}

func (p *HciDfuProtocol) verifyFrameCrc(frame []byte) ([]byte, error) {
	if len(frame) < 6 {
		return nil, errf(KindDfuResponse, "response frame too short: %d bytes", len(frame))
	}
	body := frame[:len(frame)-2]
	want := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	got := crc16(body)
	if want != got {
		return nil, errf(KindCrcMismatch, "response crc16 mismatch: got 0x%04x want 0x%04x", got, want)
	}
	return frame, nil
}

// waitWithDrain blocks for totalMs, draining incidental device output
// while it waits and keeping the handle alive every 500ms, for the
// flash-page erase wait. Elapsed time is tracked against the wall
// clock rather than counted in fixed per-call increments, since
// transport.Read's timeoutMs argument bounds that one call but a port
// can still return earlier (data arrived) or, under the platform's
// fixed connection-level read timeout, later than requested.
func (p *HciDfuProtocol) waitWithDrain(totalMs int) error {
	buf := make([]byte, 64)
	deadline := time.Now().Add(time.Duration(totalMs) * time.Millisecond)
	lastKeepAlive := time.Now()

	for time.Now().Before(deadline) {
		if p.isCancelled() {
			return errf(KindCancelled, "cancelled during flash wait")
		}
		_, _ = p.transport.Read(buf, 100)
		if time.Since(lastKeepAlive) >= 500*time.Millisecond {
			if err := p.transport.KeepAlive(); err != nil {
				jww.DEBUG.Printf("keep-alive during flash wait failed: %v", err)
			}
			lastKeepAlive = time.Now()
		}
	}
	return nil
}

// eraseWaitMs is FLASH_PAGE_ERASE_TIME_MS × the number of pages the
// firmware image occupies (rounded up, plus one), floored at 500ms.
func eraseWaitMs(firmwareSize int) int {
	pages := math.Ceil(float64(firmwareSize)/float64(FlashPageSize) + 1)
	wait := int(pages) * FlashPageEraseTimeMs
	if wait < 500 {
		wait = 500
	}
	return wait
}

// FlashOptions parameterizes one Flash invocation.
type FlashOptions struct {
	Port        string
	PackagePath string
	Role        string // e.g. "PRIMARY"/"SECONDARY"; empty skips SET_ROLE
	Settings    *AdvancedSettings
	Registry    *Registry
	Progress    ProgressFunc
	Cancelled   func() bool
}

// Flash runs the complete update pipeline: read package, enter
// bootloader, transfer the image, reboot, and configure the
// freshly-updated application. It is the engine the Coordinator wraps
// with single-flight and session-retry semantics.
func Flash(opts FlashOptions) error {
	cancelled := opts.Cancelled
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	checkCancel := func() error {
		if cancelled() {
			return errf(KindCancelled, "cancelled")
		}
		return nil
	}

	if err := checkCancel(); err != nil {
		return err
	}
	emit(opts.Progress, Stage{Kind: StageReadingPackage})
	pkg, err := ReadFirmwareZip(opts.PackagePath)
	if err != nil {
		return err
	}

	if err := checkCancel(); err != nil {
		return err
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	device, ok := registry.GetDeviceByPort(opts.Port)
	if !ok {
		return errf(KindNoDeviceFound, "no compatible device on %s", opts.Port)
	}
	identifier := NewDeviceIdentifier(device)
	emit(opts.Progress, Stage{Kind: StageDetectedDevice, PID: device.PID, InBootloader: device.InBootloader})

	if err := checkCancel(); err != nil {
		return err
	}
	emit(opts.Progress, Stage{Kind: StageEnteringBootloader})
	if device.InBootloader {
		if err := ResetBootloader(opts.Port); err != nil {
			return err
		}
	} else {
		if err := TouchReset(opts.Port); err != nil {
			return err
		}
	}

	emit(opts.Progress, Stage{Kind: StageWaitingBootloader})
	bootloaderDevice, err := WaitForBootloader(registry.Enumerate, identifier, BootloaderTimeoutMs)
	if err != nil {
		return err
	}

	if err := checkCancel(); err != nil {
		return err
	}
	emit(opts.Progress, Stage{Kind: StageConnecting})
	transport, err := OpenTransport(bootloaderDevice.Port)
	if err != nil {
		return err
	}
	defer transport.Close()

	proto := NewHciDfuProtocol(transport, cancelled)

	if err := checkCancel(); err != nil {
		return err
	}
	emit(opts.Progress, Stage{Kind: StageStarting})
	total := len(pkg.FirmwareData)
	startPayload := buildStartDfuPayload(ImageApplication, 0, 0, uint32(total))
	if err := proto.sendAndWaitAck(startPayload); err != nil {
		return err
	}
	if err := proto.waitWithDrain(eraseWaitMs(total)); err != nil {
		return err
	}

	if err := checkCancel(); err != nil {
		return err
	}
	emit(opts.Progress, Stage{Kind: StageSendingInit})
	initPayload := buildInitPacketPayload(pkg.InitData)
	if err := proto.sendAndWaitAck(initPayload); err != nil {
		return err
	}

	if err := uploadFirmware(proto, pkg.FirmwareData, opts.Progress, checkCancel); err != nil {
		return err
	}

	emit(opts.Progress, Stage{Kind: StageFinalizing})
	if err := proto.sendAndWaitAck(buildStopDataPayload()); err != nil {
		return err
	}
	transport.Close()

	emit(opts.Progress, Stage{Kind: StageWaitingReboot})
	time.Sleep(RebootSettleDelay)
	appDevice, err := WaitForApplication(registry.Enumerate, identifier, RebootTimeoutMs)
	if err != nil {
		return err
	}

	emit(opts.Progress, Stage{Kind: StageConfiguringRole})
	if err := configureAfterFlash(appDevice.Port, opts.Role, opts.Settings, registry, identifier, opts.Progress); err != nil {
		return err
	}

	emit(opts.Progress, Stage{Kind: StageComplete})
	return nil
}

// uploadFirmware streams data in FirmwareChunkSize chunks, sleeping
// FlashPageWriteTimeMs after every FramesPerFlashPage chunks so the
// device can finish writing a flash page.
func uploadFirmware(proto *HciDfuProtocol, data []byte, progress ProgressFunc, checkCancel func() error) error {
	total := len(data)
	sent := 0
	frameCount := 0

	for sent < total {
		if err := checkCancel(); err != nil {
			return err
		}
		end := sent + FirmwareChunkSize
		if end > total {
			end = total
		}
		chunk := data[sent:end]
		if err := proto.sendAndWaitAck(buildDataPayload(chunk)); err != nil {
			return err
		}
		sent = end
		frameCount++
		emit(progress, Stage{Kind: StageUploading, Sent: sent, Total: total})

		if frameCount%FramesPerFlashPage == 0 {
			time.Sleep(FlashPageWriteTimeMs * time.Millisecond)
		}
	}
	return nil
}
