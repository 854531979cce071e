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

// SequenceCounter is a 3-bit (0..7) wrapping counter, pre-incremented
// so the first value returned is 1. It is reset at the start of every DFU
// session (HciDfuProtocol construction), scoped to one protocol
// session rather than a package-level global — the session object is
// threaded through explicitly instead of relying on process-wide state.
type SequenceCounter struct {
	value uint8
}

// Next advances and returns the next sequence number: 1,2,3,4,5,6,7,0,1,...
func (s *SequenceCounter) Next() uint8 {
	s.value = (s.value + 1) & 0x07
	return s.value
}

// Reset restores the counter to its starting state (so the next Next()
// call returns 1).
func (s *SequenceCounter) Reset() {
	s.value = 0
}

// Current returns the last value returned by Next without advancing.
func (s *SequenceCounter) Current() uint8 {
	return s.value
}
