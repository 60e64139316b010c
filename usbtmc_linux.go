//go:build linux

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
	"os"

	"golang.org/x/sys/unix"
)

//ioctl requests of the kernel usbtmc driver (include/uapi/linux/usb/tmc.h)
const (
	usbtmcIOC = '['

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func usbtmcIoctl(dir, nr, size uint) uint {
	return dir<<30 | size<<16 | usbtmcIOC<<8 | nr
}

var (
	ioctlIndicatorPulse = usbtmcIoctl(iocNone, 1, 0)
	ioctlClear          = usbtmcIoctl(iocNone, 2, 0)
	ioctlAbortBulkOut   = usbtmcIoctl(iocNone, 3, 0)
	ioctlAbortBulkIn    = usbtmcIoctl(iocNone, 4, 0)
	ioctlClearOutHalt   = usbtmcIoctl(iocNone, 6, 0)
	ioctlClearInHalt    = usbtmcIoctl(iocNone, 7, 0)
	ioctlGetTimeout     = usbtmcIoctl(iocRead, 9, 4)
	ioctlSetTimeout     = usbtmcIoctl(iocWrite, 10, 4)
	ioctlReadSTB        = usbtmcIoctl(iocRead, 18, 1)
	ioctlRenControl     = usbtmcIoctl(iocWrite, 19, 1)
	ioctlGotoLocal      = usbtmcIoctl(iocNone, 20, 0)
	ioctlLocalLockout   = usbtmcIoctl(iocNone, 21, 0)
	ioctlTrigger        = usbtmcIoctl(iocNone, 22, 0)
)

var simpleOps = map[Operation]uint{
	OpClear:          ioctlClear,
	OpAbortBulkOut:   ioctlAbortBulkOut,
	OpAbortBulkIn:    ioctlAbortBulkIn,
	OpClearOutHalt:   ioctlClearOutHalt,
	OpClearInHalt:    ioctlClearInHalt,
	OpIndicatorPulse: ioctlIndicatorPulse,
	OpTrigger:        ioctlTrigger,
	OpGotoLocal:      ioctlGotoLocal,
	OpLocalLockout:   ioctlLocalLockout,
}

//openDevice opens the node blocking, so reads and writes are plain syscalls outside the netpoller
func openDevice(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func (u *USBTMC) fd() int { return int(u.f.Fd()) }

/*Special conforms to Transport.  OpRenControl takes 0 or 1 to release or
assert remote enable; every other operation ignores v.*/
func (u *USBTMC) Special(op Operation, v uint32) error {
	if req, ok := simpleOps[op]; ok {
		_, err := unix.IoctlRetInt(u.fd(), req)
		return osErr("ioctl", err, CodeBadOperation)
	}
	if op == OpRenControl {
		if v > 1 {
			return newErr(CodeBadAttributeValue, "ren control", fmt.Errorf("%d is not 0 or 1", v))
		}
		return osErr("ioctl", unix.IoctlSetPointerInt(u.fd(), ioctlRenControl, int(v)), CodeBadOperation)
	}
	return newErr(CodeBadOperation, "special", fmt.Errorf("operation %d not supported on %v", op, u))
}

//setTimeoutIoctl is swapped out by tests
var setTimeoutIoctl = func(fd int, ms uint32) error {
	return unix.IoctlSetPointerInt(fd, ioctlSetTimeout, int(ms))
}

func (u *USBTMC) setDriverTimeout(ms uint32) error {
	return osErr("ioctl", setTimeoutIoctl(u.fd(), ms), CodeBadOperation)
}

func (u *USBTMC) driverTimeout() (uint32, error) {
	v, err := unix.IoctlGetUint32(u.fd(), ioctlGetTimeout)
	return v, osErr("ioctl", err, CodeBadOperation)
}

func (u *USBTMC) statusByte() (byte, error) {
	v, err := unix.IoctlGetInt(u.fd(), ioctlReadSTB)
	return byte(v), osErr("ioctl", err, CodeBadOperation)
}
