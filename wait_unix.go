//go:build unix

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
	"math"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

/*pollFD blocks until fd reports one of events or d elapses.  A negative d
waits forever.  Hangup and error conditions count as ready so the following
read or write gets to report them.*/
func pollFD(fd int, events int16, d time.Duration) (bool, error) {
	ms := -1
	if d >= 0 {
		ms = int(math.Min(float64(d/time.Millisecond), math.MaxInt32))
		if d > 0 && ms == 0 {
			ms = 1
		}
	}
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && pfd[0].Revents != 0, nil
	}
}

//pollConn runs pollFD against the descriptor behind a net or os handle
func pollConn(c syscall.Conn, events int16, d time.Duration) (bool, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return false, err
	}
	var (
		ready bool
		perr  error
	)
	if err := rc.Control(func(fd uintptr) {
		ready, perr = pollFD(int(fd), events, d)
	}); err != nil {
		return false, err
	}
	return ready, perr
}

func waitReadable(c syscall.Conn, d time.Duration) (bool, error) {
	return pollConn(c, unix.POLLIN, d)
}

func waitWritable(c syscall.Conn, d time.Duration) (bool, error) {
	return pollConn(c, unix.POLLOUT, d)
}
