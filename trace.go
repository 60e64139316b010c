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
	"github.com/rs/zerolog"
)

/*tracer logs the bytes that cross a session's transport when the tracing
attribute is on, and the session lifecycle at debug level.  The zero value
logs nothing.*/
type tracer struct {
	log zerolog.Logger
	on  bool
}

func newTracer(l zerolog.Logger) tracer {
	return tracer{log: l}
}

//tx records a write attempt; n is what was accepted
func (t tracer) tx(where string, p []byte, n int, err error) {
	if !t.on {
		return
	}
	t.event(err).Str("transport", where).Int("requested", len(p)).Int("bytes", n).Bytes("data", clip(p, n)).Msg("tx")
}

//rx records a read; p[:n] is what reached the caller
func (t tracer) rx(where string, p []byte, n int, err error) {
	if !t.on {
		return
	}
	t.event(err).Str("transport", where).Int("max", len(p)).Int("bytes", n).Bytes("data", clip(p, n)).Msg("rx")
}

func (t tracer) event(err error) *zerolog.Event {
	if err != nil {
		return t.log.Warn().Err(err).Int("code", int(CodeOf(err)))
	}
	return t.log.Info()
}

//lifecycle events are debug level and ignore the tracing switch
func (t tracer) debug(msg, where string) {
	t.log.Debug().Str("transport", where).Msg(msg)
}

func clip(p []byte, n int) []byte {
	if n < 0 {
		return nil
	}
	if n > len(p) {
		n = len(p)
	}
	return p[:n]
}
