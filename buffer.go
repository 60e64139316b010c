package tmio

/*
MIT License

Copyright (c) 2015-2017 University Corporation for Atmospheric Research

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

import (
	"bytes"
	"fmt"
)

/*frameBuffer is a fixed capacity byte store with a fill mark.  Bytes in
[0, n) are received but not yet handed to a caller; everything past n is
garbage.  The backing array never grows.*/
type frameBuffer struct {
	data []byte
	n    int
}

func newFrameBuffer(capacity int) (*frameBuffer, error) {
	if capacity <= 0 {
		return nil, newErr(CodeMemoryAllocation, "allocate buffer", fmt.Errorf("invalid capacity %d", capacity))
	}
	return &frameBuffer{data: make([]byte, capacity)}, nil
}

func (b *frameBuffer) capacity() int { return len(b.data) }

func (b *frameBuffer) pending() int { return b.n }

/*index returns the absolute offset of the first c in [from, to), or -1.
The range is clipped to the pending bytes.*/
func (b *frameBuffer) index(c byte, from, to int) int {
	if to > b.n {
		to = b.n
	}
	if from < 0 || from >= to {
		return -1
	}
	if i := bytes.IndexByte(b.data[from:to], c); i >= 0 {
		return from + i
	}
	return -1
}

/*fill performs one read into the free space [n, limit) and advances the
fill mark by whatever arrived, even when read also returns an error.*/
func (b *frameBuffer) fill(read func([]byte) (int, error), limit int) (int, error) {
	if limit > len(b.data) || limit <= b.n {
		return 0, newErr(CodeRequestTooLarge, "fill buffer", fmt.Errorf("limit %d outside (%d, %d]", limit, b.n, len(b.data)))
	}
	got, err := read(b.data[b.n:limit])
	if got < 0 || b.n+got > limit {
		return 0, newErr(CodeDeviceRead, "fill buffer", fmt.Errorf("transport reported %d bytes for a %d byte read", got, limit-b.n))
	}
	b.n += got
	return got, err
}

/*consume copies the first k pending bytes into dst, shifts the rest down to
the front and returns how many were copied.  k is clipped to what is pending
and to len(dst).*/
func (b *frameBuffer) consume(dst []byte, k int) int {
	if k > b.n {
		k = b.n
	}
	if k > len(dst) {
		k = len(dst)
	}
	copy(dst, b.data[:k])
	b.n = copy(b.data, b.data[k:b.n])
	return k
}

//reset drops every pending byte
func (b *frameBuffer) reset() { b.n = 0 }
