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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlipRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		{0xC0},
		{0xDB},
		{0xC0, 0xDB, 0xC0, 0xDB},
		{0x00, 0xFF, 0xC0, 0xDB, 0xDC, 0xDD},
		bytes.Repeat([]byte{0xC0}, 50),
	}
	for _, b := range cases {
		encoded := slipEncode(b)
		decoded, err := slipDecode(encoded)
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestSlipDecodeInvalidEscape(t *testing.T) {
	_, err := slipDecode([]byte{0xC0, 0xDB, 0x01, 0xC0})
	require.Error(t, err)
	var de *DfuError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindInvalidSlipEscape, de.Kind)
}

func TestSlipDecoderStreaming(t *testing.T) {
	d := NewSlipDecoder()
	packet := slipEncode([]byte{1, 2, 3})

	var frames [][]byte
	for _, b := range packet {
		frame, done, err := d.Feed(b)
		require.NoError(t, err)
		if done {
			frames = append(frames, frame)
		}
	}
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3}, frames[0])
}

func TestSlipDecoderFeedBytesMultipleFrames(t *testing.T) {
	d := NewSlipDecoder()
	chunk := append(slipEncode([]byte{1}), slipEncode([]byte{2, 3})...)

	frames, err := d.FeedBytes(chunk)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{1}, frames[0])
	assert.Equal(t, []byte{2, 3}, frames[1])
}

func TestSlipDecoderOverflowResets(t *testing.T) {
	d := NewSlipDecoder()
	d.Feed(slipEnd) // open a frame

	var overflowErr error
	for i := 0; i < MaxSlipFrameSize+10; i++ {
		_, done, err := d.Feed(0x01)
		if done {
			overflowErr = err
			break
		}
	}
	require.Error(t, overflowErr)
	var de *DfuError
	require.ErrorAs(t, overflowErr, &de)
	assert.Equal(t, KindSlipBufferOverflow, de.Kind)

	// Decoder is usable for the next frame after an overflow.
	frames, err := d.FeedBytes(slipEncode([]byte{9, 9}))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{9, 9}}, frames)
	assert.False(t, d.InFrame())
}
