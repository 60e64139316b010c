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

package tmio

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var _ Transport = &Socket{}
var netClientRe = regexp.MustCompile(`^(tcp|tcp4|tcp6)://(.+):([0-9]+)$`)

//SocketBufferSize is the local receive buffer a socket session gets
const SocketBufferSize = DefaultBufferSize

//DefaultConnectTimeout bounds connection setup when the caller's context has no deadline
const DefaultConnectTimeout = 5 * time.Second

/*Socket is the TCP stream transport.  It talks to instruments that expose a
raw socket port (typically 5025).

Readiness is tested with poll(2) on the connection's descriptor, so
WaitReadable never consumes data and WaitWritable reflects the kernel send
buffer.  The raw read and write calls are the ordinary net.Conn ones.*/
type Socket struct {
	network, address string
	conn             *net.TCPConn
}

/*DialSocket opens a TCP connection to address:port. network is one of tcp,
tcp4 or tcp6 (empty means tcp).  An address that cannot be resolved fails with
CodeSocketCreate, a refused or unreachable peer with CodeSocketConnect.*/
func DialSocket(ctx context.Context, network, address string, port uint16) (*Socket, error) {
	if network == "" {
		network = "tcp"
	}
	host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	target := net.JoinHostPort(host, strconv.Itoa(int(port)))
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		return nil, newErr(CodeSocketCreate, "dial", errors.Wrapf(err, "unable to resolve %q", host))
	}
	dialer := net.Dialer{KeepAlive: 30 * time.Second}
	//Errors from DialContext implement net.Error
	conn, err := dialer.DialContext(ctx, network, target)
	if err != nil {
		return nil, newErr(CodeSocketConnect, "dial", errors.Wrapf(err, "unable to connect to %s", target))
	}
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, newErr(CodeSocketCreate, "dial", fmt.Errorf("%s did not yield a TCP stream", network))
	}
	tcp.SetNoDelay(true)
	return &Socket{network: network, address: target, conn: tcp}, nil
}

/*String conforms to the fmt.Stringer interface*/
func (s *Socket) String() string {
	return fmt.Sprintf("%v connection to %v", s.network, s.address)
}

//WriteRaw conforms to Transport
func (s *Socket) WriteRaw(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	return n, osErr("send", err, CodeDeviceWrite)
}

/*ReadRaw conforms to Transport. A peer that closed its end reports
CodeConnectionClosed rather than an endless run of zero length reads.*/
func (s *Socket) ReadRaw(p []byte) (int, error) {
	n, err := s.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	return n, osErr("recv", err, CodeDeviceRead)
}

//WaitWritable conforms to Transport
func (s *Socket) WaitWritable(d time.Duration) (bool, error) {
	ok, err := waitWritable(s.conn, d)
	return ok, osErr("select", err, CodeDeviceWrite)
}

//WaitReadable conforms to Transport
func (s *Socket) WaitReadable(d time.Duration) (bool, error) {
	ok, err := waitReadable(s.conn, d)
	return ok, osErr("select", err, CodeDeviceRead)
}

//SetAttribute conforms to Transport. A socket has nothing settable of its own.
func (s *Socket) SetAttribute(Attribute, uint32) (bool, error) {
	return false, nil
}

//GetAttribute conforms to Transport and reports the local buffer size
func (s *Socket) GetAttribute(id Attribute) (uint32, bool, error) {
	if id == AttrBufferSize {
		return SocketBufferSize, true, nil
	}
	return 0, false, nil
}

//Special conforms to Transport; sockets support no special operations
func (s *Socket) Special(op Operation, _ uint32) error {
	return newErr(CodeBadOperation, "special", fmt.Errorf("operation %d not supported on %v", op, s))
}

/*Close conforms to io.Closer.  A failure is reported as CodeSocketClose; the
descriptor is released either way.*/
func (s *Socket) Close() error {
	if err := s.conn.Close(); err != nil {
		return newErr(CodeSocketClose, "close", err)
	}
	return nil
}
