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
)

func TestSequenceCounterWraps(t *testing.T) {
	var s SequenceCounter
	want := []uint8{1, 2, 3, 4, 5, 6, 7, 0, 1, 2}
	for i, w := range want {
		assert.Equal(t, w, s.Next(), "call %d", i)
	}
}

func TestSequenceCounterReset(t *testing.T) {
	var s SequenceCounter
	s.Next()
	s.Next()
	s.Next()
	s.Reset()
	assert.Equal(t, uint8(0), s.Current())
	assert.Equal(t, uint8(1), s.Next())
}

func TestSequenceCounterCurrentDoesNotAdvance(t *testing.T) {
	var s SequenceCounter
	s.Next()
	before := s.Current()
	assert.Equal(t, before, s.Current())
}
