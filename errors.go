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
	"io"
	"net"
	"syscall"

	"github.com/pkg/errors"
)

/*Code is the stable, signed identity of a failure. Library codes sit below
-0x4000 so they never collide with a negated OS errno, which is how OS level
I/O failures are reported.*/
type Code int

//Library error codes.  These values are part of the public contract.
const (
	CodeOK                  Code = 0
	CodeMemoryAllocation    Code = -0x4001
	CodeSocketCreate        Code = -0x4002
	CodeSocketConnect       Code = -0x4003
	CodeSocketClose         Code = -0x4004
	CodeTimeout             Code = -0x4005
	CodeBufferOverflow      Code = -0x4006
	CodeRequestTooLarge     Code = -0x4007
	CodeBadAttribute        Code = -0x4008
	CodeBadAttributeValue   Code = -0x4009
	CodeBadOperation        Code = -0x400a
	CodeLockingNotSupported Code = -0x400b
	CodeConnectionClosed    Code = -0x400c
	CodeSessionClosed       Code = -0x400d
	CodeUnknown             Code = -0x400e

	CodeDeviceOpen     Code = -0x4100
	CodeDeviceRead     Code = -0x4101
	CodeDeviceWrite    Code = -0x4102
	CodeDeviceClose    Code = -0x4103
	CodeDeviceNotFound Code = -0x4104
)

var codeText = map[Code]string{
	CodeOK:                  "no error",
	CodeMemoryAllocation:    "memory allocation failed",
	CodeSocketCreate:        "unable to create socket",
	CodeSocketConnect:       "unable to connect socket",
	CodeSocketClose:         "unable to close socket",
	CodeTimeout:             "timeout",
	CodeBufferOverflow:      "buffer overflow: no terminator within requested length",
	CodeRequestTooLarge:     "request exceeds local buffer capacity",
	CodeBadAttribute:        "unknown attribute",
	CodeBadAttributeValue:   "attribute value out of range",
	CodeBadOperation:        "operation not supported",
	CodeLockingNotSupported: "locking not supported",
	CodeConnectionClosed:    "connection closed by peer",
	CodeSessionClosed:       "session closed",
	CodeUnknown:             "error from outside tmio",
	CodeDeviceOpen:          "unable to open device",
	CodeDeviceRead:          "device read failed",
	CodeDeviceWrite:         "device write failed",
	CodeDeviceClose:         "unable to close device",
	CodeDeviceNotFound:      "no matching device",
}

//String conforms to fmt.Stringer
func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	if c < 0 && c > -0x4000 {
		return syscall.Errno(-c).Error()
	}
	return fmt.Sprintf("error code %d", int(c))
}

/*Error is the single error type every fallible operation in this package
returns.  Code is what callers should match on; Op names the operation that
failed and Err, if any, is the lower level cause.*/
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, int(e.Code))
	if e.Op == "" {
		msg = fmt.Sprintf("%s (%d)", e.Code, int(e.Code))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

//Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *Error) Unwrap() error { return e.Err }

/*Is reports a match when target is an *Error carrying the same Code, so the
package sentinels work with errors.Is regardless of Op or cause.  ErrTimeout
also matches a driver side ETIMEDOUT.*/
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == CodeTimeout {
		return e.Timeout()
	}
	return t.Code == e.Code
}

//codeETIMEDOUT is what a driver that times out a transfer itself reports
var codeETIMEDOUT = Code(-int(syscall.ETIMEDOUT))

/*Timeout conforms to net.Error.  Both the library's own readiness timeout and
an ETIMEDOUT from the OS count; the Code is left as it was.*/
func (e *Error) Timeout() bool {
	return e.Code == CodeTimeout || e.Code == codeETIMEDOUT
}

/*Temporary conforms to net.Error. Timeouts and overflowed messages leave the
session usable, so both count as temporary.*/
func (e *Error) Temporary() bool {
	return e.Timeout() || e.Code == CodeBufferOverflow
}

var _ net.Error = &Error{}

//Sentinels for errors.Is comparisons
var (
	ErrTimeout             = &Error{Code: CodeTimeout}
	ErrBufferOverflow      = &Error{Code: CodeBufferOverflow}
	ErrRequestTooLarge     = &Error{Code: CodeRequestTooLarge}
	ErrBadAttribute        = &Error{Code: CodeBadAttribute}
	ErrBadAttributeValue   = &Error{Code: CodeBadAttributeValue}
	ErrBadOperation        = &Error{Code: CodeBadOperation}
	ErrLockingNotSupported = &Error{Code: CodeLockingNotSupported}
	ErrConnectionClosed    = &Error{Code: CodeConnectionClosed}
	ErrSessionClosed       = &Error{Code: CodeSessionClosed}
)

//newErr builds an *Error for op with an optional cause
func newErr(code Code, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

/*osErr converts a failure from the OS (or the net package sitting on top of
it) into an *Error.  A recoverable errno is propagated as its negated value;
end of stream becomes CodeConnectionClosed; anything else gets fallback.
An error that already is an *Error passes through untouched.*/
func osErr(op string, err error, fallback Code) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	if err == io.EOF || errors.Is(err, io.EOF) {
		return newErr(CodeConnectionClosed, op, err)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return newErr(Code(-int(errno)), op, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newErr(CodeTimeout, op, err)
	}
	return newErr(fallback, op, err)
}

/*CodeOf returns the Code carried by err, CodeOK for a nil error, or
CodeUnknown if err did not originate in this package.*/
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

/*IsTimeout returns true if the error is a timeout. It panics on a nil error,
since asking about a non-error is a programming fault.*/
func IsTimeout(err error) bool {
	if err == nil {
		panic("IsTimeout called with nil error")
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}

/*IsTemporary returns true if the session is expected to stay usable after
err.  It panics on a nil error.*/
func IsTemporary(err error) bool {
	if err == nil {
		panic("IsTemporary called with nil error")
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}
