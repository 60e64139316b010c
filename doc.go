/*Package tmio talks to test and measurement instruments over whatever they
happen to be plugged into.  A Session wraps one physical connection (a TCP
socket, a USBTMC character device or a serial line) and turns its byte
stream into messages: writes are pushed out in full, reads are split on a
terminator byte and anything received past the end of a message is kept for
the next read.

Purpose


Bench instruments speak SCPI-like line protocols but sit behind very
different plumbing.  This package is a thin vanier over that plumbing so
callers only ever deal with "send a message, read a message", with a timeout,
regardless of the mechanics underneath.

Implemented


Sessions can be built directly (DialTCP, OpenUSBTMCByID, OpenUSBTMCByName,
OpenUSBTMCByMinor, OpenSerial) or from a dial string with Open:
  tcp://<host>:<port> - Outgoing sockets of type tcp (either v4 or v6)
  tcp4://<host>:<port> - Outgoing sockets of type tcp v4
  tcp6://<host>:<port> - Outgoing sockets of type tcp v6
  usbtmc://<minor> - /dev/usbtmc<minor>
  usbtmc://<vid>:<pid>[/<serial>] - USBTMC device by hex USB ids
  usbtmc://<manufacturer>/<product>/<serial> - USBTMC device by descriptor strings
  serial://<device>:<baud> - Serial connection, 8N1
  rs232://<device>:<baud> - Serial connection, 8N1

Attributes


Behaviour is tuned through numeric attributes (AttrTimeout, AttrTermChar,
AttrTermCharEnable, AttrEOLChar, AttrTracing) common to every session, plus a
few each transport answers for itself (AttrBufferSize, AttrUSBTMCTimeout,
AttrStatusByte, AttrBaudRate).  The timeout is in whole seconds and bounds
each readiness wait; 0 means do not wait at all.

Error Handling


Every failure is an *Error carrying a stable negative Code.  OS level
failures carry the negated errno.  Timeouts and overflowed messages leave the
session usable (IsTemporary); everything else is for the caller to decide.
Neither a Session nor an Arbiter tries to maintain a connection: when it dies
the error is passed to the caller, who should have a better idea of what to
do.
*/
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
