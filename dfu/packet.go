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

import "encoding/binary"

// buildHciHeader builds the 4-byte HCI header: seq/next-seq/integrity/
// reliable in byte 0, packet type + low length nibble in byte 1,
// length high byte in byte 2, and a
// two's-complement checksum of the first three bytes in byte 3.
func buildHciHeader(seq uint8, payloadLen int) [4]byte {
	nextSeq := (seq + 1) & 0x07
	var hdr [4]byte
	hdr[0] = (seq & 0x07) | ((nextSeq & 0x07) << 3) | (hciDataIntegrityPresent << 6) | (hciReliablePacket << 7)
	hdr[1] = byte(hciPacketType&0x0F) | byte((payloadLen&0x0F)<<4)
	hdr[2] = byte((payloadLen >> 4) & 0xFF)
	sum := hdr[0] + hdr[1] + hdr[2]
	hdr[3] = byte(-int8(sum))
	return hdr
}

// buildHciPacket assembles header‖payload‖crc16(header‖payload) and
// SLIP-encodes the result, ready to write to the transport.
func buildHciPacket(seq uint8, payload []byte) []byte {
	hdr := buildHciHeader(seq, len(payload))
	body := make([]byte, 0, 4+len(payload)+2)
	body = append(body, hdr[:]...)
	body = append(body, payload...)
	crc := crc16(body)
	var crcBytes [2]byte
	binary.LittleEndian.PutUint16(crcBytes[:], crc)
	body = append(body, crcBytes[:]...)
	return slipEncode(body)
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

// buildStartDfuPayload builds the StartDfu opcode payload: opcode,
// image type, then softdevice/bootloader/application sizes as
// little-endian u32.
func buildStartDfuPayload(imageType uint32, sdSize, blSize, appSize uint32) []byte {
	payload := make([]byte, 0, 4+4+4+4+4)
	payload = append(payload, le32(OpStartDfu)...)
	payload = append(payload, le32(imageType)...)
	payload = append(payload, le32(sdSize)...)
	payload = append(payload, le32(blSize)...)
	payload = append(payload, le32(appSize)...)
	return payload
}

// buildInitPacketPayload builds the InitPacket opcode payload: opcode,
// the firmware.dat bytes, then a two-byte 0x0000 pad.
func buildInitPacketPayload(initData []byte) []byte {
	payload := make([]byte, 0, 4+len(initData)+2)
	payload = append(payload, le32(OpInit)...)
	payload = append(payload, initData...)
	payload = append(payload, 0x00, 0x00)
	return payload
}

// buildDataPayload builds one DATA opcode payload carrying up to
// FirmwareChunkSize bytes of firmware.
func buildDataPayload(chunk []byte) []byte {
	payload := make([]byte, 0, 4+len(chunk))
	payload = append(payload, le32(OpData)...)
	payload = append(payload, chunk...)
	return payload
}

// buildStopDataPayload builds the StopData opcode payload, which
// carries no additional bytes.
func buildStopDataPayload() []byte {
	return le32(OpStop)
}

// ackNumber extracts the acknowledgement number from the first header
// byte of an ACK frame: bits 3-5.
func ackNumber(headerByte0 byte) uint8 {
	return (headerByte0 >> 3) & 0x07
}

// parseAck checks that frame is at least as long as an HCI header and
// returns the ack number carried in its first byte; the trailing CRC is
// checked separately, by the protocol's verifyFrameCrc. Presence of the frame is the
// acknowledgement; the ack number is informational only, since the
// bootloader's sequence bits do not reliably correlate with the host's
// counter.
func parseAck(frame []byte) (ack uint8, err error) {
	if len(frame) < 4 {
		return 0, errf(KindDfuResponse, "ack frame too short: %d bytes", len(frame))
	}
	return ackNumber(frame[0]), nil
}
