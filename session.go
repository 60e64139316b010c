/*
MIT License

Copyright (c) 2015-2018 University Corporation for Atmospheric Research

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

package tmio

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

var _ io.ReadWriteCloser = &Session{}

/*Session is one open connection to an instrument: a single Transport, the
local receive buffer that carries residue between reads, and the common
attributes (timeout, terminator, EOL, tracing).

A Session is not safe for concurrent use.  Wrap it in an Arbiter when more
than one goroutine needs it.*/
type Session struct {
	t      Transport
	buf    *frameBuffer
	fr     framer
	cfg    settings
	trace  tracer
	closed bool
}

/*Option adjusts how a Session is built.  Options are checked before any
transport is acquired.*/
type Option func(*options) error

type attrValue struct {
	id Attribute
	v  uint32
}

type options struct {
	log   zerolog.Logger
	attrs []attrValue
}

/*WithLock requests exclusive, cooperative device locking.  Locking is not
supported; WithLock(true) makes construction fail with
CodeLockingNotSupported before anything is opened.*/
func WithLock(lock bool) Option {
	return func(*options) error {
		if lock {
			return newErr(CodeLockingNotSupported, "open", nil)
		}
		return nil
	}
}

//WithLogger routes lifecycle and trace events to l
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) error {
		o.log = l
		return nil
	}
}

/*WithAttribute sets id to v once the session is built, exactly as
SetAttribute would.  A failure closes the session and is returned from the
constructor.*/
func WithAttribute(id Attribute, v uint32) Option {
	return func(o *options) error {
		o.attrs = append(o.attrs, attrValue{id: id, v: v})
		return nil
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

/*New builds a Session over an already open Transport and takes ownership of
it: if New fails, t has been closed.*/
func New(t Transport, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, newErr(CodeBadOperation, "open", fmt.Errorf("nil transport"))
	}
	o, err := buildOptions(opts)
	if err != nil {
		t.Close()
		return nil, err
	}
	return newSession(t, o)
}

/*Open dials one of the forms NewTransport understands and returns a Session
over it.*/
func Open(ctx context.Context, dial string, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return NewTransport(ctx, dial)
	})
}

//DialTCP returns a Session over a TCP connection to address:port
func DialTCP(ctx context.Context, address string, port uint16, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return asTransport(DialSocket(ctx, "tcp", address, port))
	})
}

//OpenUSBTMCByID returns a Session over the usbtmc device with the given USB ids
func OpenUSBTMCByID(vendor, product uint16, serial string, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return asTransport(NewUSBTMCByID(vendor, product, serial))
	})
}

//OpenUSBTMCByName returns a Session over the usbtmc device with the given descriptor strings
func OpenUSBTMCByName(manufacturer, product, serial string, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return asTransport(NewUSBTMCByName(manufacturer, product, serial))
	})
}

//OpenUSBTMCByMinor returns a Session over /dev/usbtmc<minor>
func OpenUSBTMCByMinor(minor int, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return asTransport(NewUSBTMCByMinor(minor))
	})
}

//OpenSerial returns a Session over an 8N1 serial line
func OpenSerial(dev string, baud int, opts ...Option) (*Session, error) {
	return acquire(opts, func() (Transport, error) {
		return asTransport(NewSerial(dev, baud))
	})
}

func acquire(opts []Option, open func() (Transport, error)) (*Session, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	t, err := open()
	if err != nil {
		return nil, err
	}
	return newSession(t, o)
}

/*newSession sizes the receive buffer from the transport's buffer-size
attribute, applies the requested attributes and closes t on any failure.*/
func newSession(t Transport, o options) (*Session, error) {
	size := uint32(DefaultBufferSize)
	v, ok, err := t.GetAttribute(AttrBufferSize)
	if err != nil {
		t.Close()
		return nil, err
	}
	if ok {
		size = v
	}
	buf, err := newFrameBuffer(int(size))
	if err != nil {
		t.Close()
		return nil, err
	}
	s := &Session{
		t:     t,
		buf:   buf,
		fr:    framer{buf: buf},
		cfg:   defaultSettings(),
		trace: newTracer(o.log),
	}
	for _, a := range o.attrs {
		if err := s.SetAttribute(a.id, a.v); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.trace.debug("session opened", t.String())
	return s, nil
}

/*String conforms to the fmt.Stringer interface*/
func (s *Session) String() string {
	if s.closed {
		return "closed session"
	}
	return fmt.Sprintf("session over %v", s.t)
}

//Transport returns the underlying transport.  It stays owned by the Session.
func (s *Session) Transport() Transport {
	return s.t
}

func (s *Session) check(op string) error {
	if s.closed {
		return newErr(CodeSessionClosed, op, nil)
	}
	return nil
}

/*WriteMessage sends all of p, waiting up to the timeout attribute for the
transport to accept each piece.  The count returned with an error is what
had gone out before the failure.*/
func (s *Session) WriteMessage(p []byte) (int, error) {
	if err := s.check("write"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := writeAll(s.t, p, s.cfg.wait())
	s.trace.tx(s.t.String(), p, n, err)
	return n, err
}

/*ReadMessage reads the next message into p; len(p) is the longest message
accepted.  With the terminator enabled the result is one message ending in
the terminator, and len(p) may not exceed the buffer size
(CodeRequestTooLarge).  With it disabled, whatever a single read returns is
handed over, buffered residue first.*/
func (s *Session) ReadMessage(p []byte) (int, error) {
	if err := s.check("read"); err != nil {
		return 0, err
	}
	var n int
	var err error
	if s.cfg.termEnable {
		n, err = s.fr.readMessage(s.t, p, s.cfg.term, s.cfg.wait())
	} else {
		n, err = s.fr.readRaw(s.t, p, s.cfg.wait())
	}
	s.trace.rx(s.t.String(), p, n, err)
	return n, err
}

//Write conforms to io.Writer; see WriteMessage
func (s *Session) Write(p []byte) (int, error) {
	return s.WriteMessage(p)
}

//Read conforms to io.Reader; see ReadMessage
func (s *Session) Read(p []byte) (int, error) {
	return s.ReadMessage(p)
}

//WriteString sends msg, followed by the EOL byte if eol is set
func (s *Session) WriteString(msg string, eol bool) (int, error) {
	p := []byte(msg)
	if eol {
		p = append(p, s.cfg.eol)
	}
	return s.WriteMessage(p)
}

/*ReadString reads one message of up to the buffer size and returns it as a
string.  The bytes delivered alongside an overflow are returned with the
error.*/
func (s *Session) ReadString() (string, error) {
	if err := s.check("read"); err != nil {
		return "", err
	}
	p := make([]byte, s.buf.capacity())
	n, err := s.ReadMessage(p)
	return string(p[:n]), err
}

/*Flush drops any residue held from earlier reads and reports how many bytes
were discarded.  Bytes still queued at the transport are not touched.*/
func (s *Session) Flush() (int, error) {
	if err := s.check("flush"); err != nil {
		return 0, err
	}
	n := s.buf.pending()
	s.buf.reset()
	return n, nil
}

/*SetAttribute changes id to v.  The transport gets the first chance at id,
then the common attributes; if neither knows it the result is
CodeBadAttribute.  A bad value leaves the attribute unchanged.*/
func (s *Session) SetAttribute(id Attribute, v uint32) error {
	if err := s.check("set " + id.String()); err != nil {
		return err
	}
	if ok, err := s.t.SetAttribute(id, v); ok {
		return err
	}
	ok, err := s.cfg.set(id, v)
	if !ok {
		return newErr(CodeBadAttribute, "set "+id.String(), fmt.Errorf("%v does not handle attribute %d", s.t, uint32(id)))
	}
	s.trace.on = s.cfg.tracing
	return err
}

//GetAttribute returns the current value of id, looked up like SetAttribute
func (s *Session) GetAttribute(id Attribute) (uint32, error) {
	if err := s.check("get " + id.String()); err != nil {
		return 0, err
	}
	if v, ok, err := s.t.GetAttribute(id); ok {
		return v, err
	}
	if v, ok := s.cfg.get(id); ok {
		return v, nil
	}
	return 0, newErr(CodeBadAttribute, "get "+id.String(), fmt.Errorf("%v does not handle attribute %d", s.t, uint32(id)))
}

//Special runs a transport specific operation
func (s *Session) Special(op Operation, v uint32) error {
	if err := s.check("special"); err != nil {
		return err
	}
	return s.t.Special(op, v)
}

/*Close closes the transport and drops the receive buffer.  The buffer is
released even when the transport fails to close; that failure is returned.
Closing twice is a CodeSessionClosed error.*/
func (s *Session) Close() error {
	if err := s.check("close"); err != nil {
		return err
	}
	where := s.t.String()
	err := s.t.Close()
	s.closed = true
	s.buf.reset()
	s.buf, s.fr.buf = nil, nil
	s.trace.debug("session closed", where)
	return err
}
