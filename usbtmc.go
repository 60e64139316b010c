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
	"math"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var _ Transport = &USBTMC{}

//USBTMCBufferSize is the local receive buffer a USBTMC session gets
const USBTMCBufferSize = DefaultBufferSize

//the kernel driver refuses transfer timeouts shorter than this (ms)
const minUSBTMCTimeout = 100

/*USBTMC is the transport for USB test and measurement class instruments,
driven through the kernel's usbtmc character devices (/dev/usbtmcN).  Each
write is one device dependent message out; each read returns at most one
transfer.  Control requests (device clear, trigger, remote/local) are
exposed through Special, the driver side I/O timeout and the 488.2 status
byte through attributes.

The driver cannot poll a pending bulk-in transfer, so the readiness wait a
session asks for becomes the driver timeout of the read that follows it.*/
type USBTMC struct {
	path  string
	minor int //-1 when opened by path
	f     *os.File

	wait    time.Duration //requested by the last WaitReadable, not yet applied
	applied uint32        //driver timeout last set, ms; 0 when unknown
	fixed   bool          //node refuses timeout requests
}

/*NewUSBTMCByMinor opens /dev/usbtmc<minor>.*/
func NewUSBTMCByMinor(minor int) (*USBTMC, error) {
	if minor < 0 {
		return nil, newErr(CodeDeviceOpen, "open usbtmc", fmt.Errorf("invalid minor %d", minor))
	}
	return openUSBTMC(filepath.Join(devRoot, fmt.Sprintf("usbtmc%d", minor)), minor)
}

/*NewUSBTMCByID opens the first usbtmc device with the given vendor and
product ids.  An empty serial matches any serial number.*/
func NewUSBTMCByID(vendor, product uint16, serial string) (*USBTMC, error) {
	dev, err := findUSBTMC(sysfsRoot, func(d usbtmcDevice) bool {
		return d.VendorID == vendor && d.ProductID == product && matchText(serial, d.Serial)
	})
	if err != nil {
		return nil, newErr(CodeDeviceNotFound, "open usbtmc", errors.Wrapf(err, "%04x:%04x serial %q", vendor, product, serial))
	}
	return NewUSBTMCByMinor(dev.Minor)
}

/*NewUSBTMCByName opens the first usbtmc device whose manufacturer and product
strings match (case insensitive).  An empty serial matches any serial number.*/
func NewUSBTMCByName(manufacturer, product, serial string) (*USBTMC, error) {
	dev, err := findUSBTMC(sysfsRoot, func(d usbtmcDevice) bool {
		return matchText(manufacturer, d.Manufacturer) && matchText(product, d.Product) && matchText(serial, d.Serial)
	})
	if err != nil {
		return nil, newErr(CodeDeviceNotFound, "open usbtmc", errors.Wrapf(err, "%q %q serial %q", manufacturer, product, serial))
	}
	return NewUSBTMCByMinor(dev.Minor)
}

/*NewUSBTMCPath opens an arbitrary character device node with usbtmc
semantics.  Useful for udev symlinks such as /dev/instruments/scope.*/
func NewUSBTMCPath(path string) (*USBTMC, error) {
	return openUSBTMC(path, -1)
}

func openUSBTMC(path string, minor int) (*USBTMC, error) {
	f, err := openDevice(path)
	if err != nil {
		return nil, newErr(CodeDeviceOpen, "open usbtmc", errors.Wrapf(err, "unable to open %q", path))
	}
	return &USBTMC{path: path, minor: minor, f: f}, nil
}

/*String conforms to the fmt.Stringer interface*/
func (u *USBTMC) String() string {
	return fmt.Sprintf("usbtmc device %v", u.path)
}

//WriteRaw conforms to Transport
func (u *USBTMC) WriteRaw(p []byte) (int, error) {
	n, err := u.f.Write(p)
	return n, osErr("write", err, CodeDeviceWrite)
}

/*ReadRaw conforms to Transport.  A wait recorded by WaitReadable is applied
as the driver timeout first, so an instrument that never answers fails the
read with ETIMEDOUT, which IsTimeout recognizes.*/
func (u *USBTMC) ReadRaw(p []byte) (int, error) {
	if err := u.applyWait(); err != nil {
		return 0, err
	}
	n, err := u.f.Read(p)
	if n > 0 {
		return n, nil
	}
	return n, osErr("read", err, CodeDeviceRead)
}

//WaitWritable conforms to Transport
func (u *USBTMC) WaitWritable(d time.Duration) (bool, error) {
	ok, err := waitWritable(u.f, d)
	return ok, osErr("poll", err, CodeDeviceWrite)
}

/*WaitReadable conforms to Transport.  A usbtmc read is request driven and
the driver only signals POLLIN for its asynchronous interface, so the wait is
recorded for the next ReadRaw to bound the transfer with, and WaitReadable
reports ready.*/
func (u *USBTMC) WaitReadable(d time.Duration) (bool, error) {
	u.wait = d
	return true, nil
}

//driverMillis is d as a driver timeout: at least the driver minimum, at most what fits an int32
func driverMillis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < minUSBTMCTimeout:
		return minUSBTMCTimeout
	case ms > math.MaxInt32:
		return math.MaxInt32
	}
	return uint32(ms)
}

/*applyWait hands a recorded wait to the driver.  A node that is not a usbtmc
device (ENOTTY) or a platform without the ioctls keeps reading unbounded and
is not asked again.*/
func (u *USBTMC) applyWait() error {
	d := u.wait
	u.wait = 0
	if d <= 0 || u.fixed {
		return nil
	}
	ms := driverMillis(d)
	if ms == u.applied {
		return nil
	}
	err := u.setDriverTimeout(ms)
	switch CodeOf(err) {
	case CodeOK:
		u.applied = ms
	case codeENOTTY, CodeBadOperation:
		u.fixed = true
	default:
		return err
	}
	return nil
}

var codeENOTTY = Code(-int(syscall.ENOTTY))

/*SetAttribute conforms to Transport.  AttrUSBTMCTimeout is the driver's own
transfer timeout in milliseconds.  It holds until a read that follows a
readiness wait of a different length, i.e. while the session timeout is 0.*/
func (u *USBTMC) SetAttribute(id Attribute, v uint32) (bool, error) {
	switch id {
	case AttrUSBTMCTimeout:
		if v < minUSBTMCTimeout {
			return true, newErr(CodeBadAttributeValue, "set "+id.String(), fmt.Errorf("%d ms is below the driver minimum of %d ms", v, minUSBTMCTimeout))
		}
		if err := u.setDriverTimeout(v); err != nil {
			return true, err
		}
		u.applied = v
		return true, nil
	}
	return false, nil
}

//GetAttribute conforms to Transport
func (u *USBTMC) GetAttribute(id Attribute) (uint32, bool, error) {
	switch id {
	case AttrBufferSize:
		return USBTMCBufferSize, true, nil
	case AttrUSBTMCTimeout:
		v, err := u.driverTimeout()
		return v, true, err
	case AttrStatusByte:
		v, err := u.statusByte()
		return uint32(v), true, err
	}
	return 0, false, nil
}

//Close conforms to io.Closer
func (u *USBTMC) Close() error {
	if err := u.f.Close(); err != nil {
		return newErr(CodeDeviceClose, "close", err)
	}
	return nil
}
