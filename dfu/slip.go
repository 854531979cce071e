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

// Package dfu implements the Nordic legacy Serial DFU protocol
// (HCI-framed, SLIP-encoded) for Adafruit-family nRF52840 devices, plus
// the post-DFU ASCII configuration dialog.
package dfu

// slipEncode wraps data with SLIP END delimiters, escaping END and ESC
// bytes within it.
func slipEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)*2+2)
	out = append(out, slipEnd)
	for _, b := range data {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, slipEnd)
	return out
}

// slipDecode decodes a complete SLIP-framed buffer (both END delimiters
// included). Used by tests for the round-trip property; production code
// uses the streaming SlipDecoder below, since data arrives from the
// serial port in arbitrary-sized reads.
func slipDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	escapeNext := false
	for _, b := range data {
		if b == slipEnd {
			continue
		}
		if escapeNext {
			switch b {
			case slipEscEnd:
				out = append(out, slipEnd)
			case slipEscEsc:
				out = append(out, slipEsc)
			default:
				return nil, errf(KindInvalidSlipEscape, "invalid SLIP escape byte 0x%02x", b)
			}
			escapeNext = false
		} else if b == slipEsc {
			escapeNext = true
		} else {
			out = append(out, b)
		}
	}
	if escapeNext {
		return nil, errf(KindIncompleteSlipFrame, "frame ended mid-escape")
	}
	return out, nil
}

// SlipDecoder is a streaming SLIP frame decoder suited to byte-at-a-time
// or chunk-at-a-time serial reads. It never buffers more than
// MaxSlipFrameSize bytes; exceeding the cap resets the decoder and
// yields SlipBufferOverflow, but the decoder remains usable for the
// next frame.
type SlipDecoder struct {
	buffer     []byte
	escapeNext bool
	inFrame    bool
}

// NewSlipDecoder returns a decoder ready to consume bytes.
func NewSlipDecoder() *SlipDecoder {
	return &SlipDecoder{buffer: make([]byte, 0, 1024)}
}

// Feed consumes one byte. It returns (frame, true, nil) when byte
// completes a frame, (nil, true, err) on a decode error (the decoder
// has already been reset), and (nil, false, nil) when more bytes are
// needed.
func (d *SlipDecoder) Feed(b byte) ([]byte, bool, error) {
	if b == slipEnd {
		if d.inFrame && len(d.buffer) > 0 {
			frame := d.buffer
			d.buffer = make([]byte, 0, 1024)
			d.inFrame = false
			d.escapeNext = false
			return frame, true, nil
		}
		d.buffer = d.buffer[:0]
		d.inFrame = true
		d.escapeNext = false
		return nil, false, nil
	}

	if !d.inFrame {
		d.inFrame = true
	}

	if d.escapeNext {
		switch b {
		case slipEscEnd:
			d.buffer = append(d.buffer, slipEnd)
		case slipEscEsc:
			d.buffer = append(d.buffer, slipEsc)
		default:
			d.Reset()
			return nil, true, errf(KindInvalidSlipEscape, "invalid SLIP escape byte 0x%02x", b)
		}
		d.escapeNext = false
	} else if b == slipEsc {
		d.escapeNext = true
	} else {
		d.buffer = append(d.buffer, b)
	}

	if len(d.buffer) > MaxSlipFrameSize {
		d.Reset()
		return nil, true, errf(KindSlipBufferOverflow, "frame exceeded %d bytes", MaxSlipFrameSize)
	}

	return nil, false, nil
}

// FeedBytes feeds a whole chunk and returns every complete frame found
// in it, in order. A decode error stops processing of the current
// chunk (the decoder has been reset and can keep decoding the next
// chunk read from the port).
func (d *SlipDecoder) FeedBytes(data []byte) (frames [][]byte, err error) {
	for _, b := range data {
		frame, done, ferr := d.Feed(b)
		if ferr != nil {
			return frames, ferr
		}
		if done {
			frames = append(frames, frame)
		}
	}
	return frames, nil
}

// Reset clears all decoder state.
func (d *SlipDecoder) Reset() {
	d.buffer = d.buffer[:0]
	d.escapeNext = false
	d.inFrame = false
}

// InFrame reports whether the decoder is mid-frame.
func (d *SlipDecoder) InFrame() bool { return d.inFrame }

// BufferLen reports the number of bytes buffered in the current frame.
func (d *SlipDecoder) BufferLen() int { return len(d.buffer) }
