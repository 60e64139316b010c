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

import "time"

/*writeAll drives t.WriteRaw until every byte of p is accepted.  When wait is
non zero each attempt is preceded by a readiness wait of that length, and an
expired wait is a CodeTimeout failure.  The count returned with an error is
what had been sent before the failure.*/
func writeAll(t Transport, p []byte, wait time.Duration) (int, error) {
	done := 0
	for done < len(p) {
		if wait != 0 {
			ok, err := t.WaitWritable(wait)
			if err != nil {
				return done, err
			}
			if !ok {
				return done, newErr(CodeTimeout, "write", nil)
			}
		}
		n, err := t.WriteRaw(p[done:])
		if n > 0 {
			done += n
		}
		if err != nil {
			return done, err
		}
	}
	return done, nil
}
