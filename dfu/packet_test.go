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

func TestBuildHciHeaderChecksum(t *testing.T) {
	for seq := uint8(0); seq < 8; seq++ {
		for _, length := range []int{0, 1, 12, 512, 4095} {
			hdr := buildHciHeader(seq, length)
			sum := hdr[0] + hdr[1] + hdr[2]
			assert.Equal(t, byte(-int8(sum)), hdr[3], "seq=%d length=%d", seq, length)

			reconstructedLen := (int(hdr[1]>>4) & 0x0F) | (int(hdr[2]) << 4)
			assert.Equal(t, length, reconstructedLen, "seq=%d length=%d", seq, length)

			assert.Equal(t, seq&0x07, hdr[0]&0x07)
			assert.Equal(t, (seq+1)&0x07, (hdr[0]>>3)&0x07)
		}
	}
}

func TestBuildHciPacketRoundTrips(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	packet := buildHciPacket(3, payload)

	decoded, err := slipDecode(packet)
	require.NoError(t, err)
	require.Len(t, decoded, 4+len(payload)+2)

	body := decoded[:len(decoded)-2]
	assert.Equal(t, crc16(body), uint16(decoded[len(decoded)-2])|uint16(decoded[len(decoded)-1])<<8)
}

func TestBuildStartDfuPayload(t *testing.T) {
	payload := buildStartDfuPayload(ImageApplication, 0, 0, 16384)
	require.Len(t, payload, 20)
	assert.Equal(t, uint32(OpStartDfu), le32ToUint(payload[0:4]))
	assert.Equal(t, uint32(ImageApplication), le32ToUint(payload[4:8]))
	assert.Equal(t, uint32(16384), le32ToUint(payload[16:20]))
}

func TestBuildInitPacketPayload(t *testing.T) {
	init := []byte{1, 2, 3, 4}
	payload := buildInitPacketPayload(init)
	require.Len(t, payload, 4+len(init)+2)
	assert.Equal(t, byte(0x00), payload[len(payload)-2])
	assert.Equal(t, byte(0x00), payload[len(payload)-1])
}

func TestBuildDataPayload(t *testing.T) {
	chunk := make([]byte, FirmwareChunkSize)
	payload := buildDataPayload(chunk)
	assert.Len(t, payload, 4+FirmwareChunkSize)
	assert.Equal(t, uint32(OpData), le32ToUint(payload[0:4]))
}

func TestParseAck(t *testing.T) {
	frame := []byte{0b00111000, 0, 0, 0}
	ack, err := parseAck(frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), ack)
}

func TestParseAckTooShort(t *testing.T) {
	_, err := parseAck([]byte{0x01})
	require.Error(t, err)
}

func le32ToUint(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
