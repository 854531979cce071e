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
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// Transport owns one open serial connection: 8N1, no flow control,
// configurable baud, byte-level read/write with per-call timeouts.
// tarm/serial is the only serial-port library in the reference pack; it
// configures a fixed read timeout per port rather than per call and
// exposes no modem-control-line (DTR) access, so Transport layers both
// on top — Read's wall-clock deadline loop approximates a per-call
// timeout over the port's fixed connection-level one, and the platform
// DTR helpers in transport_unix.go/transport_windows.go add line
// control.
type Transport struct {
	port *serial.Port
	name string
}

// openWithRetry opens port at baud, retrying up to 10 times at 200ms
// spacing when the driver reports a transient condition, since a
// freshly reset device can take a moment to re-register its tty node.
func openWithRetry(port string, baud int, readTimeout time.Duration) (*serial.Port, error) {
	normalized := NormalizePortName(port)
	cfg := &serial.Config{Name: normalized, Baud: baud, ReadTimeout: readTimeout}

	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		p, err := serial.OpenPort(cfg)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !isTransientOpenError(err) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, classifyOpenError(port, lastErr)
}

func isTransientOpenError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"not functioning", "temporarily unavailable", "interrupted"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func classifyOpenError(port string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"):
		return errf(KindPortPermissionDenied, "opening %s", port)
	case strings.Contains(msg, "no such file") || strings.Contains(msg, "not found"):
		return wrapf(KindNoDeviceFound, err, "opening %s", port)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return errf(KindPortBusy, "opening %s", port)
	default:
		return wrapf(KindSerial, err, "opening %s", port)
	}
}

// OpenTransport opens port at the standard DFU baud rate.
func OpenTransport(port string) (*Transport, error) {
	return OpenTransportBaud(port, DfuBaudRate)
}

// OpenTransportBaud opens port at baud, then pulses DTR low->high,
// settles, and clears any stale input.
func OpenTransportBaud(port string, baud int) (*Transport, error) {
	p, err := openWithRetry(port, baud, SerialReadTimeout)
	if err != nil {
		return nil, err
	}

	t := &Transport{port: p, name: NormalizePortName(port)}

	_ = setDTR(t.name, false)
	time.Sleep(50 * time.Millisecond)
	_ = setDTR(t.name, true)
	time.Sleep(100 * time.Millisecond)
	_ = t.ClearInput()

	return t, nil
}

// TouchReset performs the 1200-baud DTR-drop convention that asks a
// running Adafruit/Arduino-family sketch to reboot into its bootloader.
func TouchReset(port string) error {
	normalized := NormalizePortName(port)
	p, err := serial.OpenPort(&serial.Config{Name: normalized, Baud: TouchResetBaudRate, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return wrapf(KindSerial, err, "touch-reset opening %s", port)
	}

	_ = setDTR(normalized, true)
	time.Sleep(50 * time.Millisecond)
	_ = setDTR(normalized, false)
	p.Close()

	settle := 400 * time.Millisecond
	if runtime.GOOS == "windows" {
		settle = 800 * time.Millisecond
	}
	time.Sleep(settle)
	return nil
}

// ResetBootloader clears stale bootloader state left by a previous
// failed DFU attempt by pulsing DTR at the DFU baud rate.
func ResetBootloader(port string) error {
	normalized := NormalizePortName(port)
	p, err := serial.OpenPort(&serial.Config{Name: normalized, Baud: DfuBaudRate, ReadTimeout: 100 * time.Millisecond})
	if err != nil {
		return wrapf(KindSerial, err, "reset-bootloader opening %s", port)
	}

	_ = setDTR(normalized, false)
	time.Sleep(50 * time.Millisecond)
	_ = setDTR(normalized, true)
	time.Sleep(50 * time.Millisecond)
	_ = setDTR(normalized, false)
	p.Close()

	time.Sleep(500 * time.Millisecond)
	return nil
}

// Read blocks for up to timeoutMs waiting for any bytes, returning 0
// (not an error) on timeout.
func (t *Transport) Read(buf []byte, timeoutMs int) (int, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, wrapf(KindIo, err, "reading %s", t.name)
		}
		if time.Now().After(deadline) {
			return 0, nil
		}
	}
}

// Write writes all of data; the OS handles USB packetization.
func (t *Transport) Write(data []byte) error {
	_, err := t.port.Write(data)
	if err != nil {
		return wrapf(KindIo, err, "writing %s", t.name)
	}
	return nil
}

// Flush flushes any buffered output.
func (t *Transport) Flush() error {
	if err := t.port.Flush(); err != nil {
		return wrapf(KindSerial, err, "flushing %s", t.name)
	}
	return nil
}

// ClearInput discards any pending input data left over from a previous
// session.
func (t *Transport) ClearInput() error {
	buf := make([]byte, 256)
	for {
		n, err := t.Read(buf, 20)
		if err != nil || n == 0 {
			return nil
		}
	}
}

// KeepAlive issues a cheap modem-control-line query to prevent a
// macOS-class stale-handle condition during long waits.
func (t *Transport) KeepAlive() error {
	return keepAlive(t.name)
}

// IsHealthy returns false iff a modem-control-line query against the
// port fails, indicating the port has gone stale (commonly: the device
// re-enumerated under a new path out from under this handle).
func (t *Transport) IsHealthy() bool {
	return portIsHealthy(t.name)
}

// Close releases the underlying serial handle.
func (t *Transport) Close() error {
	return t.port.Close()
}

// NormalizePortName adjusts a port path for OS-specific quirks: macOS
// tty.* -> cu.*, Windows COMn with n>9 gets the \\.\ prefix.
func NormalizePortName(name string) string {
	return normalizePortNamePlatform(name)
}
