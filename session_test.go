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
	"bytes"
	"context"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, tr *scripted, opts ...Option) *Session {
	t.Helper()
	s, err := New(tr, opts...)
	require.NoError(t, err)
	return s
}

func readMsg(t *testing.T, s *Session, size int) (string, error) {
	t.Helper()
	p := make([]byte, size)
	n, err := s.ReadMessage(p)
	return string(p[:n]), err
}

func TestSessionExample(t *testing.T) {
	tr := newScripted("MEAS:VOLT 1.0\nNEXT\n")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "MEAS:VOLT 1.0\n", msg)
	require.Equal(t, 1, tr.rawReads)

	msg, err = readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "NEXT\n", msg)
	require.Equal(t, 1, tr.rawReads, "second message came from residue")
}

func TestSessionMessageAcrossReads(t *testing.T) {
	tr := newScripted("MEAS", ":VOLT", " 1.0", "\n")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "MEAS:VOLT 1.0\n", msg)
	require.Equal(t, 4, tr.rawReads)
	require.Equal(t, 4, tr.waitsR)
}

func TestSessionResidue(t *testing.T) {
	tr := newScripted("A\nBC", "D\n", "X\n\nY\n")
	s := newTestSession(t, tr)

	for _, want := range []string{"A\n", "BCD\n", "X\n", "\n", "Y\n"} {
		msg, err := readMsg(t, s, 64)
		require.NoError(t, err)
		require.Equal(t, want, msg)
	}
	require.Equal(t, 3, tr.rawReads)
	require.Equal(t, 0, s.buf.pending())
}

func TestSessionOverflow(t *testing.T) {
	tr := newScripted("0123456789\n")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 8)
	require.ErrorIs(t, err, ErrBufferOverflow)
	require.True(t, IsTemporary(err))
	require.Equal(t, "01234567", msg, "first max bytes are delivered with the error")
	require.Equal(t, 0, s.buf.pending())

	//the discarded bytes are not reread, the session carries on
	msg, err = readMsg(t, s, 8)
	require.NoError(t, err)
	require.Equal(t, "89\n", msg)
}

func TestSessionOverflowExactLength(t *testing.T) {
	tr := newScripted("abcd")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 4)
	require.Equal(t, CodeBufferOverflow, CodeOf(err))
	require.Equal(t, "abcd", msg)
}

func TestSessionOverflowFromResidue(t *testing.T) {
	tr := newScripted("a\nbcdefghij")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 16)
	require.NoError(t, err)
	require.Equal(t, "a\n", msg)
	reads := tr.rawReads

	msg, err = readMsg(t, s, 4)
	require.Equal(t, CodeBufferOverflow, CodeOf(err))
	require.Equal(t, "bcde", msg)
	require.Equal(t, reads, tr.rawReads, "no I/O when residue already fills max")
	require.Equal(t, 0, s.buf.pending(), "everything past max is dropped too")

	tr.queue("z\n")
	msg, err = readMsg(t, s, 4)
	require.NoError(t, err)
	require.Equal(t, "z\n", msg)
}

func TestSessionRequestTooLarge(t *testing.T) {
	tr := newScripted("never read\n")
	tr.bufSize = 16
	s := newTestSession(t, tr)

	_, err := readMsg(t, s, 17)
	require.ErrorIs(t, err, ErrRequestTooLarge)
	require.Zero(t, tr.rawReads)
	require.Zero(t, tr.waitsR)

	msg, err := readMsg(t, s, 16)
	require.NoError(t, err)
	require.Equal(t, "never read\n", msg)
}

func TestSessionZeroLengthRead(t *testing.T) {
	tr := newScripted("x\n")
	s := newTestSession(t, tr)
	n, err := s.ReadMessage(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, tr.rawReads)
}

func TestSessionReadTimeout(t *testing.T) {
	tr := newScripted("par")
	s := newTestSession(t, tr)
	require.NoError(t, s.SetAttribute(AttrTimeout, 1))

	msg, err := readMsg(t, s, 64)
	require.True(t, IsTimeout(err))
	require.ErrorIs(t, err, ErrTimeout)
	require.Empty(t, msg)
	require.Equal(t, []time.Duration{time.Second, time.Second}, tr.waitsSeen)

	//what arrived before the timeout is kept
	tr.queue("tial\n")
	msg, err = readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "partial\n", msg)
}

func TestSessionNoWait(t *testing.T) {
	tr := newScripted("now\n")
	s := newTestSession(t, tr)
	require.NoError(t, s.SetAttribute(AttrTimeout, 0))

	msg, err := readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "now\n", msg)

	//nothing queued: the raw read runs straight away and its failure surfaces
	_, err = readMsg(t, s, 64)
	require.Equal(t, Code(-int(syscall.EAGAIN)), CodeOf(err))

	n, err := s.WriteMessage([]byte("*RST\n"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Zero(t, tr.waitsR)
	require.Zero(t, tr.waitsW)
}

func TestSessionReadPeerClosed(t *testing.T) {
	tr := newScripted("ab")
	tr.eof = true
	s := newTestSession(t, tr)

	_, err := readMsg(t, s, 64)
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.False(t, IsTemporary(err))
	require.Equal(t, 2, s.buf.pending())
}

func TestSessionUnframed(t *testing.T) {
	tr := newScripted("A\nBC", "DEFG")
	s := newTestSession(t, tr)

	msg, err := readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "A\n", msg)

	require.NoError(t, s.SetAttribute(AttrTermCharEnable, 0))
	msg, err = readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "BC", msg, "residue is handed out before the transport is read")

	msg, err = readMsg(t, s, 3)
	require.NoError(t, err)
	require.Equal(t, "DEF", msg, "a single raw read, whatever size comes back")
	require.Equal(t, 2, tr.rawReads)

	msg, err = readMsg(t, s, 100)
	require.NoError(t, err)
	require.Equal(t, "G", msg)

	//the unframed path has no local buffer to outgrow
	tr.queue(strings.Repeat("z", 100))
	msg, err = readMsg(t, s, 100)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("z", 100), msg)
}

func TestSessionCustomTerminator(t *testing.T) {
	tr := newScripted("1.0;2.0;")
	s := newTestSession(t, tr)
	require.NoError(t, s.SetAttribute(AttrTermChar, ';'))

	msg, err := readMsg(t, s, 64)
	require.NoError(t, err)
	require.Equal(t, "1.0;", msg)
}

func TestSessionWritePartial(t *testing.T) {
	tr := newScripted()
	tr.writeChunk = 7
	s := newTestSession(t, tr)

	payload := bytes.Repeat([]byte("0123456789"), 1000)
	n, err := s.WriteMessage(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, tr.written.Bytes(), "every byte exactly once")
	require.Equal(t, (len(payload)+6)/7, tr.rawWrites)
	require.Equal(t, tr.rawWrites, tr.waitsW)
}

func TestSessionWriteFailure(t *testing.T) {
	tr := newScripted()
	tr.writeChunk = 4
	tr.writeLimit = 10
	s := newTestSession(t, tr)

	n, err := s.WriteMessage([]byte("0123456789ABCDEF"))
	require.Equal(t, Code(-int(syscall.EPIPE)), CodeOf(err))
	require.Equal(t, 10, n, "bytes sent before the failure are reported")
}

func TestSessionWriteTimeout(t *testing.T) {
	tr := newScripted()
	tr.notWritable = true
	s := newTestSession(t, tr)

	n, err := s.WriteMessage([]byte("*IDN?\n"))
	require.ErrorIs(t, err, ErrTimeout)
	require.Zero(t, n)
	require.Zero(t, tr.rawWrites)

	n, err = s.WriteMessage(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, tr.waitsW, "empty payload does no I/O")
}

func TestSessionStrings(t *testing.T) {
	tr := newScripted("KEYSIGHT,34465A\n")
	s := newTestSession(t, tr)

	_, err := s.WriteString("*IDN?", true)
	require.NoError(t, err)
	require.NoError(t, s.SetAttribute(AttrEOLChar, '\r'))
	_, err = s.WriteString("SYST:ERR?", true)
	require.NoError(t, err)
	_, err = s.WriteString("RAW", false)
	require.NoError(t, err)
	require.Equal(t, "*IDN?\nSYST:ERR?\rRAW", tr.written.String())

	msg, err := s.ReadString()
	require.NoError(t, err)
	require.Equal(t, "KEYSIGHT,34465A\n", msg)
}

func TestSessionAttributes(t *testing.T) {
	tr := newScripted()
	s := newTestSession(t, tr)

	defaults := map[Attribute]uint32{
		AttrTracing:        0,
		AttrEOLChar:        '\n',
		AttrTimeout:        DefaultTimeout,
		AttrTermCharEnable: 1,
		AttrTermChar:       '\n',
		AttrBufferSize:     64,
		AttrBaudRate:       9600,
	}
	for id, want := range defaults {
		v, err := s.GetAttribute(id)
		require.NoError(t, err, id.String())
		require.Equal(t, want, v, id.String())
	}

	//out of range values leave the attribute alone
	bad := map[Attribute]uint32{
		AttrTermChar:       256,
		AttrEOLChar:        1000,
		AttrTracing:        2,
		AttrTermCharEnable: 7,
		AttrBaudRate:       0,
	}
	for id, v := range bad {
		require.ErrorIs(t, s.SetAttribute(id, v), ErrBadAttributeValue, id.String())
		got, err := s.GetAttribute(id)
		require.NoError(t, err)
		require.Equal(t, defaults[id], got, id.String())
	}

	require.NoError(t, s.SetAttribute(AttrTimeout, 1<<31))
	v, err := s.GetAttribute(AttrTimeout)
	require.NoError(t, err)
	require.Equal(t, uint32(1<<31), v)

	require.NoError(t, s.SetAttribute(AttrBaudRate, 115200))
	require.Equal(t, uint32(115200), tr.baud)

	//unknown to both tiers
	require.ErrorIs(t, s.SetAttribute(Attribute(999), 1), ErrBadAttribute)
	_, err = s.GetAttribute(Attribute(999))
	require.ErrorIs(t, err, ErrBadAttribute)

	//read-only, neither tier accepts a write
	require.ErrorIs(t, s.SetAttribute(AttrBufferSize, 128), ErrBadAttribute)

	//the status byte is only answered by usbtmc transports
	_, err = s.GetAttribute(AttrStatusByte)
	require.ErrorIs(t, err, ErrBadAttribute)
}

func TestSessionSpecial(t *testing.T) {
	s := newTestSession(t, newScripted())
	require.NoError(t, s.Special(OpTrigger, 0))
	require.ErrorIs(t, s.Special(OpBreak, 10), ErrBadOperation)
}

func TestSessionConstruction(t *testing.T) {
	tr := newScripted()
	_, err := New(tr, WithLock(true))
	require.ErrorIs(t, err, ErrLockingNotSupported)
	require.Equal(t, 1, tr.closed, "the transport is released on failure")

	//locking is refused before anything is dialled
	_, err = Open(context.Background(), "no-can-dial", WithLock(true))
	require.Equal(t, CodeLockingNotSupported, CodeOf(err))

	tr = newScripted()
	tr.bufSize = 0
	_, err = New(tr)
	require.Equal(t, CodeMemoryAllocation, CodeOf(err))
	require.Equal(t, 1, tr.closed)

	tr = newScripted()
	_, err = New(tr, WithAttribute(AttrTermChar, 300))
	require.ErrorIs(t, err, ErrBadAttributeValue)
	require.Equal(t, 1, tr.closed)

	tr = newScripted()
	tr.noBufSize = true
	s, err := New(tr, WithLock(false), WithAttribute(AttrTimeout, 0), WithAttribute(AttrTermChar, '\r'))
	require.NoError(t, err)
	require.Equal(t, DefaultBufferSize, s.buf.capacity())
	v, _ := s.GetAttribute(AttrTermChar)
	require.Equal(t, uint32('\r'), v)

	_, err = New(nil)
	require.ErrorIs(t, err, ErrBadOperation)
}

func TestSessionClose(t *testing.T) {
	tr := newScripted("left over\n")
	tr.closeErr = newErr(CodeDeviceClose, "close", syscall.EIO)
	s := newTestSession(t, tr)
	_, err := s.WriteString("bye", true)
	require.NoError(t, err)

	err = s.Close()
	require.Equal(t, CodeDeviceClose, CodeOf(err), "close failure is reported")
	require.Equal(t, 1, tr.closed)
	require.Nil(t, s.buf, "buffer released regardless")

	require.ErrorIs(t, s.Close(), ErrSessionClosed)
	require.Equal(t, 1, tr.closed)
	_, err = s.ReadMessage(make([]byte, 8))
	require.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.WriteMessage([]byte("x"))
	require.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.ReadString()
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, s.SetAttribute(AttrTimeout, 1), ErrSessionClosed)
	_, err = s.GetAttribute(AttrTimeout)
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, s.Special(OpTrigger, 0), ErrSessionClosed)
	_, err = s.Flush()
	require.ErrorIs(t, err, ErrSessionClosed)
	require.Equal(t, "closed session", s.String())
}

func TestSessionTracing(t *testing.T) {
	var out bytes.Buffer
	tr := newScripted("reply\n")
	s := newTestSession(t, tr, WithLogger(zerolog.New(&out)))

	_, err := s.WriteString("quiet", true)
	require.NoError(t, err)
	require.NotContains(t, out.String(), "quiet")

	require.NoError(t, s.SetAttribute(AttrTracing, 1))
	_, err = s.WriteString("loud", true)
	require.NoError(t, err)
	_, err = s.ReadString()
	require.NoError(t, err)

	log := out.String()
	require.Contains(t, log, `"message":"tx"`)
	require.Contains(t, log, "loud")
	require.Contains(t, log, `"message":"rx"`)
	require.Contains(t, log, "reply")
}

func TestSessionFlush(t *testing.T) {
	tr := newScripted("one\ntwo\n")
	s := newTestSession(t, tr)
	_, err := readMsg(t, s, 64)
	require.NoError(t, err)

	n, err := s.Flush()
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 0, s.buf.pending())
}
