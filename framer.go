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
	"fmt"
	"time"
)

/*framer turns the transport byte stream into messages.  Bytes that arrive
past the end of a message stay in buf for the next call.*/
type framer struct {
	buf *frameBuffer
}

//awaitReadable applies the readiness wait of the framing loop
func awaitReadable(t Transport, wait time.Duration) error {
	if wait == 0 {
		return nil
	}
	ok, err := t.WaitReadable(wait)
	if err != nil {
		return err
	}
	if !ok {
		return newErr(CodeTimeout, "read", nil)
	}
	return nil
}

/*readRaw is the unframed path: one wait, one read straight into p, whatever
size comes back.  Residue left by earlier framed reads is handed out first
without touching the transport.*/
func (f *framer) readRaw(t Transport, p []byte, wait time.Duration) (int, error) {
	if f.buf.pending() > 0 {
		return f.buf.consume(p, len(p)), nil
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := awaitReadable(t, wait); err != nil {
		return 0, err
	}
	return t.ReadRaw(p)
}

/*readMessage fills p with the next message ending in term, terminator
included.  len(p) is the longest message the caller accepts and may not
exceed the buffer capacity.

Residue is searched first and satisfies the call without any I/O when it
already holds a terminator.  Otherwise reads accumulate in buf until a
terminator shows up or len(p) bytes are held without one; in that case the
first len(p) bytes are copied to p, everything buffered is dropped and
CodeBufferOverflow is returned.  Bytes gathered before a failed wait or read
are kept as residue.*/
func (f *framer) readMessage(t Transport, p []byte, term byte, wait time.Duration) (int, error) {
	limit := len(p)
	if limit > f.buf.capacity() {
		return 0, newErr(CodeRequestTooLarge, "read", fmt.Errorf("%d bytes requested, buffer holds %d", limit, f.buf.capacity()))
	}
	if limit == 0 {
		return 0, nil
	}

	if i := f.buf.index(term, 0, limit); i >= 0 {
		return f.buf.consume(p, i+1), nil
	}

	for f.buf.pending() < limit {
		if err := awaitReadable(t, wait); err != nil {
			return 0, err
		}
		done := f.buf.pending()
		n, err := f.buf.fill(t.ReadRaw, limit)
		if i := f.buf.index(term, done, done+n); i >= 0 {
			return f.buf.consume(p, i+1), nil
		}
		if err != nil {
			return 0, err
		}
	}

	n := f.buf.consume(p, limit)
	f.buf.reset()
	return n, newErr(CodeBufferOverflow, "read", fmt.Errorf("no terminator 0x%02x within %d bytes", term, limit))
}
