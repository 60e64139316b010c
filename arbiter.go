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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

/*
Arbiter provides serialized command and response access to a Session.  A
Session allows exactly one caller; an Arbiter locks it under a mutex so many
goroutines can share one instrument, and adds Query, the write-then-read
exchange most instruments are driven with.  Errors are the Session's own and
are to be delt with by the caller.*/
type Arbiter struct {
	mux sync.Mutex //only one reader and writer: me
	s   *Session
}

//Arbitrate wraps s.  The Arbiter owns s from here on.
func Arbitrate(s *Session) *Arbiter {
	return &Arbiter{s: s}
}

/*NewArbiter returns an Arbiter over a freshly opened Session.  dial will need
to match a known dial format, and ctx bounds the connection process.*/
func NewArbiter(ctx context.Context, dial string, opts ...Option) (*Arbiter, error) {
	s, err := Open(ctx, dial, opts...)
	if err != nil {
		return nil, err
	}
	return Arbitrate(s), nil
}

/*String conforms to fmt.Stringer, but for an Arbiter.*/
func (a *Arbiter) String() string {
	a.mux.Lock()
	defer a.mux.Unlock()
	return fmt.Sprintf("Arbiter over %s", a.s.String())
}

/*Close conforms to io.Closer, but for an Arbiter.*/
func (a *Arbiter) Close() error {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.s.Close()
}

/*Read conforms to io.Reader, but for an Arbiter.*/
func (a *Arbiter) Read(b []byte) (int, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.s.ReadMessage(b)
}

/*Write conforms to io.Writer, but for an Arbiter.*/
func (a *Arbiter) Write(b []byte) (int, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.s.WriteMessage(b)
}

//SetAttribute is Session.SetAttribute under the lock
func (a *Arbiter) SetAttribute(id Attribute, v uint32) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.s.SetAttribute(id, v)
}

//GetAttribute is Session.GetAttribute under the lock
func (a *Arbiter) GetAttribute(id Attribute) (uint32, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.s.GetAttribute(id)
}

/*Do runs fn with exclusive use of the Session.  fn must not keep the
Session past its return.*/
func (a *Arbiter) Do(fn func(*Session) error) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	return fn(a.s)
}

/*Response is what Query returns.

Bytes is the reply as read, terminator included.  Error is nil, or the first
failure of the exchange; Bytes may still hold a partial reply (an overflow
delivers the first size bytes).  Duration is how long the exchange took.*/
type Response struct {
	Bytes    []byte
	Error    error
	Duration time.Duration
}

//String implements the Stringer interface
func (r Response) String() string {
	return fmt.Sprintf("Response> Rx Bytes: %q\tErrors: %v\tDuration: %v", r.Bytes, r.Error, r.Duration)
}

/*Query sends cmd and reads back a single message of at most size bytes.
Query is the reason that serialized access is required: nothing else may
touch the Session between the write and the read.  Generally:

1) drop residue left over from earlier exchanges

2) write cmd in full

3) read one message

ctx is checked before each step; a step already running is bounded by the
session timeout, not by ctx.*/
func (a *Arbiter) Query(ctx context.Context, cmd []byte, size int) (rsp Response) {
	a.mux.Lock()
	defer a.mux.Unlock()
	start := time.Now()
	defer func() { rsp.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		return Response{Error: errors.Wrap(err, "query abandoned before write")}
	}
	if _, err := a.s.Flush(); err != nil {
		return Response{Error: err}
	}
	if n, err := a.s.WriteMessage(cmd); err != nil {
		return Response{Error: errors.Wrapf(err, "unable to write full message of %d bytes (wrote %d)", len(cmd), n)}
	}
	if err := ctx.Err(); err != nil {
		return Response{Error: errors.Wrap(err, "query abandoned before read")}
	}
	buf := make([]byte, size)
	n, err := a.s.ReadMessage(buf)
	return Response{Bytes: buf[:n], Error: err}
}
