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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var _ Transport = &Serial{}
var serialRe = regexp.MustCompile(`^(?:rs232|serial)://([^:]*):([0-9]+)$`)

//SerialBufferSize is the local receive buffer a serial session gets
const SerialBufferSize = DefaultBufferSize

/*Serial is the RS-232 transport, 8N1 at a configurable baud rate.

A serial port has no readiness test that leaves the data in place, so
WaitReadable reads a single byte with the port's read timeout and parks it;
the next ReadRaw hands the parked byte out first, along with anything else
already waiting.  Writes block in the driver
and WaitWritable always reports ready.*/
type Serial struct {
	dev    string
	mode   *serial.Mode
	port   serial.Port
	parked []byte
}

//openPort is swapped out by tests
var openPort = serial.Open

/*NewSerial opens a serial device in 8N1 mode.*/
func NewSerial(dev string, baud int) (*Serial, error) {
	if baud <= 0 {
		return nil, newErr(CodeDeviceOpen, "open serial", fmt.Errorf("invalid baud rate %d", baud))
	}
	s := &Serial{
		dev: dev,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		parked: make([]byte, 0, 1),
	}
	port, err := openPort(dev, s.mode)
	if err != nil {
		return nil, newErr(CodeDeviceOpen, "open serial", errors.Wrapf(err, "unable to open serial device %q", dev))
	}
	s.port = port
	return s, nil
}

/*NewSerialByID opens the USB serial adapter with the given vendor and
product ids (hex, as the OS reports them).  An empty serial number matches
any adapter.*/
func NewSerialByID(vid, pid, serialNumber string, baud int) (*Serial, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, newErr(CodeDeviceNotFound, "open serial", err)
	}
	for _, p := range ports {
		if !p.IsUSB || !strings.EqualFold(p.VID, vid) || !strings.EqualFold(p.PID, pid) {
			continue
		}
		if matchText(serialNumber, p.SerialNumber) {
			return NewSerial(p.Name, baud)
		}
	}
	return nil, newErr(CodeDeviceNotFound, "open serial", fmt.Errorf("no USB serial adapter %s:%s serial %q among %d ports", vid, pid, serialNumber, len(ports)))
}

/*String conforms to the fmt.Stringer interface*/
func (s *Serial) String() string {
	return fmt.Sprintf("serial connection to %v:%d 8N1", s.dev, s.mode.BaudRate)
}

//WriteRaw conforms to Transport
func (s *Serial) WriteRaw(p []byte) (int, error) {
	n, err := s.port.Write(p)
	return n, serialErr("write", err, CodeDeviceWrite)
}

/*ReadRaw conforms to Transport.  A byte parked by WaitReadable comes first,
topped up with whatever else has already arrived.*/
func (s *Serial) ReadRaw(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.parked) == 0 {
		if err := s.port.SetReadTimeout(serial.NoTimeout); err != nil {
			return 0, serialErr("read", err, CodeDeviceRead)
		}
		n, err := s.port.Read(p)
		return n, serialErr("read", err, CodeDeviceRead)
	}
	p[0] = s.parked[0]
	s.parked = s.parked[:0]
	if len(p) == 1 {
		return 1, nil
	}
	if err := s.port.SetReadTimeout(0); err != nil {
		return 1, serialErr("read", err, CodeDeviceRead)
	}
	n, err := s.port.Read(p[1:])
	return 1 + n, serialErr("read", err, CodeDeviceRead)
}

//WaitWritable conforms to Transport
func (s *Serial) WaitWritable(time.Duration) (bool, error) {
	return true, nil
}

//WaitReadable conforms to Transport
func (s *Serial) WaitReadable(d time.Duration) (bool, error) {
	if len(s.parked) > 0 {
		return true, nil
	}
	if err := s.port.SetReadTimeout(d); err != nil {
		return false, serialErr("wait", err, CodeDeviceRead)
	}
	var one [1]byte
	n, err := s.port.Read(one[:])
	if err != nil {
		return false, serialErr("wait", err, CodeDeviceRead)
	}
	if n == 0 {
		return false, nil
	}
	s.parked = append(s.parked, one[0])
	return true, nil
}

//SetAttribute conforms to Transport; the baud rate is changed on the open port
func (s *Serial) SetAttribute(id Attribute, v uint32) (bool, error) {
	if id != AttrBaudRate {
		return false, nil
	}
	if v == 0 {
		return true, newErr(CodeBadAttributeValue, "set "+id.String(), fmt.Errorf("baud rate must be positive"))
	}
	mode := *s.mode
	mode.BaudRate = int(v)
	if err := s.port.SetMode(&mode); err != nil {
		return true, newErr(CodeBadAttributeValue, "set "+id.String(), err)
	}
	s.mode = &mode
	return true, nil
}

//GetAttribute conforms to Transport
func (s *Serial) GetAttribute(id Attribute) (uint32, bool, error) {
	switch id {
	case AttrBufferSize:
		return SerialBufferSize, true, nil
	case AttrBaudRate:
		return uint32(s.mode.BaudRate), true, nil
	}
	return 0, false, nil
}

/*Special conforms to Transport.  OpBreak holds the line in break for v ms,
OpSetDTR and OpSetRTS take 0 or 1.*/
func (s *Serial) Special(op Operation, v uint32) error {
	var err error
	switch op {
	case OpBreak:
		err = s.port.Break(time.Duration(v) * time.Millisecond)
	case OpResetInput:
		s.parked = s.parked[:0]
		err = s.port.ResetInputBuffer()
	case OpResetOutput:
		err = s.port.ResetOutputBuffer()
	case OpDrain:
		err = s.port.Drain()
	case OpSetDTR, OpSetRTS:
		if v > 1 {
			return newErr(CodeBadAttributeValue, "special", fmt.Errorf("%d is not 0 or 1", v))
		}
		if op == OpSetDTR {
			err = s.port.SetDTR(v == 1)
		} else {
			err = s.port.SetRTS(v == 1)
		}
	default:
		return newErr(CodeBadOperation, "special", fmt.Errorf("operation %d not supported on %v", op, s))
	}
	return osErr("special", err, CodeBadOperation)
}

//serialErr is osErr that also knows the serial library's closed port error
func serialErr(op string, err error, fallback Code) error {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return newErr(CodeConnectionClosed, op, err)
	}
	return osErr(op, err, fallback)
}

//Close conforms to io.Closer
func (s *Serial) Close() error {
	if err := s.port.Close(); err != nil {
		return newErr(CodeDeviceClose, "close", err)
	}
	return nil
}
