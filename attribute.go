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

/*Attribute identifies a session setting.  The numeric values are stable and
shared by every transport.*/
type Attribute uint32

//Common attributes, handled by every session
const (
	AttrTracing        Attribute = 1
	AttrEOLChar        Attribute = 2
	AttrTimeout        Attribute = 3 //seconds, 0 disables readiness waits
	AttrTermCharEnable Attribute = 4
	AttrTermChar       Attribute = 5
)

//Transport attributes, only answered by the transports that know them
const (
	AttrBufferSize    Attribute = 6  //read-only
	AttrUSBTMCTimeout Attribute = 16 //milliseconds, driver side
	AttrStatusByte    Attribute = 17 //read-only, USBTMC488 devices
	AttrBaudRate      Attribute = 32
)

var attrNames = map[Attribute]string{
	AttrTracing:        "tracing",
	AttrEOLChar:        "eol-char",
	AttrTimeout:        "timeout",
	AttrTermCharEnable: "term-char-enable",
	AttrTermChar:       "term-char",
	AttrBufferSize:     "buffer-size",
	AttrUSBTMCTimeout:  "usbtmc-timeout",
	AttrStatusByte:     "status-byte",
	AttrBaudRate:       "baud-rate",
}

//String conforms to fmt.Stringer
func (a Attribute) String() string {
	if s, ok := attrNames[a]; ok {
		return s
	}
	return fmt.Sprintf("attribute(%d)", uint32(a))
}

//Operation names a transport specific command issued through Special
type Operation uint32

//Special operations.  Which ones work depends on the transport.
const (
	OpClear Operation = iota + 1
	OpAbortBulkOut
	OpAbortBulkIn
	OpClearOutHalt
	OpClearInHalt
	OpIndicatorPulse
	OpTrigger
	OpRenControl
	OpGotoLocal
	OpLocalLockout
)

//Serial line operations
const (
	OpBreak Operation = iota + 0x20 //value is the break length in ms
	OpResetInput
	OpResetOutput
	OpDrain
	OpSetDTR
	OpSetRTS
)

//Default values for a fresh session
const (
	DefaultTimeout    uint32 = 5
	DefaultTermChar   byte   = '\n'
	DefaultEOLChar    byte   = '\n'
	DefaultBufferSize        = 4096
)

/*settings is the common attribute tier.  Each method reports whether the
attribute was recognized; a recognized attribute with a bad value returns an
error and leaves the setting untouched.*/
type settings struct {
	timeout    uint32
	termEnable bool
	term       byte
	eol        byte
	tracing    bool
}

func defaultSettings() settings {
	return settings{
		timeout:    DefaultTimeout,
		termEnable: true,
		term:       DefaultTermChar,
		eol:        DefaultEOLChar,
	}
}

func (s *settings) set(id Attribute, v uint32) (bool, error) {
	switch id {
	case AttrTracing:
		b, err := boolValue(id, v)
		if err != nil {
			return true, err
		}
		s.tracing = b
	case AttrEOLChar:
		c, err := byteValue(id, v)
		if err != nil {
			return true, err
		}
		s.eol = c
	case AttrTimeout:
		s.timeout = v
	case AttrTermCharEnable:
		b, err := boolValue(id, v)
		if err != nil {
			return true, err
		}
		s.termEnable = b
	case AttrTermChar:
		c, err := byteValue(id, v)
		if err != nil {
			return true, err
		}
		s.term = c
	default:
		return false, nil
	}
	return true, nil
}

func (s *settings) get(id Attribute) (uint32, bool) {
	switch id {
	case AttrTracing:
		return b2u(s.tracing), true
	case AttrEOLChar:
		return uint32(s.eol), true
	case AttrTimeout:
		return s.timeout, true
	case AttrTermCharEnable:
		return b2u(s.termEnable), true
	case AttrTermChar:
		return uint32(s.term), true
	}
	return 0, false
}

//wait is the readiness wait bound, zero meaning "do not wait"
func (s *settings) wait() time.Duration {
	return time.Duration(s.timeout) * time.Second
}

func boolValue(id Attribute, v uint32) (bool, error) {
	if v > 1 {
		return false, newErr(CodeBadAttributeValue, "set "+id.String(), fmt.Errorf("%d is not 0 or 1", v))
	}
	return v == 1, nil
}

func byteValue(id Attribute, v uint32) (byte, error) {
	if v > 0xff {
		return 0, newErr(CodeBadAttributeValue, "set "+id.String(), fmt.Errorf("%d does not fit in a byte", v))
	}
	return byte(v), nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
