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
	"io"
	"regexp"
	"strconv"
	"time"
)

/*Transport is the capability set every physical connection offers a Session.
The framing and write engines only ever talk to this interface.

WriteRaw and ReadRaw make a single best effort attempt and may move fewer
bytes than asked.  WaitWritable and WaitReadable block for at most d and
report false when d expires.  SetAttribute and GetAttribute report
recognized=false for identifiers the transport does not handle, letting the
Session fall back to the common attributes; a recognized identifier with a bad
value returns an error instead.  Special returns CodeBadOperation for anything
the transport cannot do.*/
type Transport interface {
	fmt.Stringer
	io.Closer
	WriteRaw(p []byte) (int, error)
	ReadRaw(p []byte) (int, error)
	WaitWritable(d time.Duration) (bool, error)
	WaitReadable(d time.Duration) (bool, error)
	SetAttribute(id Attribute, v uint32) (recognized bool, err error)
	GetAttribute(id Attribute) (v uint32, recognized bool, err error)
	Special(op Operation, v uint32) error
}

type dialer struct {
	re   *regexp.Regexp
	open func(ctx context.Context, m []string) (Transport, error)
}

/*known is tried in order; the patterns are disjoint but the ordering keeps
the lookup deterministic.*/
var known = []dialer{
	{re: netClientRe, open: func(ctx context.Context, m []string) (Transport, error) {
		port, err := strconv.ParseUint(m[3], 10, 16)
		if err != nil {
			return nil, newErr(CodeSocketCreate, "dial", fmt.Errorf("invalid port %q", m[3]))
		}
		return asTransport(DialSocket(ctx, m[1], m[2], uint16(port)))
	}},
	{re: usbtmcMinorRe, open: func(_ context.Context, m []string) (Transport, error) {
		minor, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, newErr(CodeDeviceOpen, "dial", err)
		}
		return asTransport(NewUSBTMCByMinor(minor))
	}},
	{re: usbtmcIDRe, open: func(_ context.Context, m []string) (Transport, error) {
		vid, _ := strconv.ParseUint(m[1], 16, 16)
		pid, _ := strconv.ParseUint(m[2], 16, 16)
		return asTransport(NewUSBTMCByID(uint16(vid), uint16(pid), m[3]))
	}},
	{re: usbtmcNameRe, open: func(_ context.Context, m []string) (Transport, error) {
		return asTransport(NewUSBTMCByName(m[1], m[2], m[3]))
	}},
	{re: serialRe, open: func(_ context.Context, m []string) (Transport, error) {
		baud, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, newErr(CodeDeviceOpen, "dial", fmt.Errorf("invalid baud rate %q", m[2]))
		}
		return asTransport(NewSerial(m[1], baud))
	}},
}

//asTransport keeps a nil concrete pointer from becoming a non-nil Transport
func asTransport[T Transport](t T, err error) (Transport, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

var (
	usbtmcMinorRe = regexp.MustCompile(`^usbtmc://([0-9]+)$`)
	usbtmcIDRe    = regexp.MustCompile(`^usbtmc://(?:0x)?([0-9a-fA-F]{4}):(?:0x)?([0-9a-fA-F]{4})(?:/([^/]*))?$`)
	usbtmcNameRe  = regexp.MustCompile(`^usbtmc://([^/:]+)/([^/]+)/([^/]*)$`)
)

/*NewTransport opens the transport described by dial.  Recognized forms:
  tcp://<host>:<port>             (also tcp4:// and tcp6://)
  usbtmc://<minor>                /dev/usbtmc<minor>
  usbtmc://<vid>:<pid>[/<serial>] hex USB ids, optional serial number
  usbtmc://<vendor>/<product>/<serial>
  serial://<device>:<baud>        (also rs232://)
The context only bounds connection setup.*/
func NewTransport(ctx context.Context, dial string) (Transport, error) {
	for _, d := range known {
		if m := d.re.FindStringSubmatch(dial); m != nil {
			return d.open(ctx, m)
		}
	}
	return nil, newErr(CodeBadOperation, "dial", fmt.Errorf("no known way to open a transport from %q", dial))
}
