//go:build !linux

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
)

//The usbtmc character devices only exist on Linux; elsewhere a node can still be opened by path.
func openDevice(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

func (u *USBTMC) unsupported(what string) error {
	return newErr(CodeBadOperation, what, fmt.Errorf("usbtmc control requests need linux"))
}

//Special conforms to Transport
func (u *USBTMC) Special(op Operation, _ uint32) error {
	return u.unsupported(fmt.Sprintf("special %d", op))
}

func (u *USBTMC) setDriverTimeout(uint32) error { return u.unsupported("set timeout") }

func (u *USBTMC) driverTimeout() (uint32, error) { return 0, u.unsupported("get timeout") }

func (u *USBTMC) statusByte() (byte, error) { return 0, u.unsupported("read stb") }
