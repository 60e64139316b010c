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

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/NCAR/tmio"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParseChar(t *testing.T) {
	cases := map[string]byte{
		"#":     '#',
		"\\n":   '\n',
		"\\r":   '\r',
		"\\x0b": 0x0b,
		"10":    10,
		"0x3b":  ';',
	}
	for in, want := range cases {
		got, err := parseChar(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "256", "\\q", "ab", "\\u0100"} {
		_, err := parseChar(bad)
		require.Error(t, err, bad)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dial = "usbtmc://0957:1755"
timeout = 0
term_char = "\\r"
query = true

[attributes]
usbtmc-timeout = 2500
baud-rate = 19200
`), 0o644))

	cfg := defaultConfig()
	require.NoError(t, loadFile(&cfg, path))
	require.Equal(t, "usbtmc://0957:1755", cfg.Dial)
	require.Equal(t, uint32(0), cfg.Timeout)
	require.Equal(t, byte('\r'), cfg.TermChar)
	require.Equal(t, tmio.DefaultEOLChar, cfg.EOL, "keys not in the file keep their default")
	require.True(t, cfg.Query)
	require.Equal(t, tmio.Attributes{tmio.AttrUSBTMCTimeout: 2500, tmio.AttrBaudRate: 19200}, cfg.Attrs)

	attrs := cfg.attributes()
	require.Equal(t, uint32(0), attrs[tmio.AttrTimeout])
	require.Equal(t, uint32('\r'), attrs[tmio.AttrTermChar])
	require.Equal(t, uint32(1), attrs[tmio.AttrTermCharEnable])
	require.Equal(t, uint32(2500), attrs[tmio.AttrUSBTMCTimeout])

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[attributes]\nvolume = 11\n"), 0o644))
	require.Error(t, loadFile(&cfg, bad))
	require.Error(t, loadFile(&cfg, filepath.Join(t.TempDir(), "missing.toml")))
}

func TestLoadEnv(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, loadEnv(&cfg, env(map[string]string{
		"TMCTL_DIAL":    "serial:///dev/ttyUSB0:9600",
		"TMCTL_TIMEOUT": "3",
		"TMCTL_NO_TERM": "yes",
		"TMCTL_EOL":     "0x0d",
		"TMCTL_TRACE":   "1",
		"TMCTL_MAX":     "128",
	})))
	require.Equal(t, "serial:///dev/ttyUSB0:9600", cfg.Dial)
	require.Equal(t, uint32(3), cfg.Timeout)
	require.True(t, cfg.NoTerm)
	require.Equal(t, byte('\r'), cfg.EOL)
	require.True(t, cfg.Trace)
	require.Equal(t, 128, cfg.Max)
	require.False(t, cfg.Query)

	attrs := cfg.attributes()
	require.Equal(t, uint32(0), attrs[tmio.AttrTermCharEnable])
	require.Equal(t, uint32(1), attrs[tmio.AttrTracing])

	require.Error(t, loadEnv(&cfg, env(map[string]string{"TMCTL_TIMEOUT": "soon"})))
	require.Error(t, loadEnv(&cfg, env(map[string]string{"TMCTL_MAX": "lots"})))
}

//instrument answers each line with its length, like a very dull multimeter
func instrument(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			con, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer con.Close()
				lines := bufio.NewScanner(con)
				for lines.Scan() {
					fmt.Fprintf(con, "len=%d\n", len(lines.Text()))
				}
			}()
		}
	}()
	return "tcp://" + l.Addr().String()
}

func TestRun(t *testing.T) {
	dial := instrument(t)
	ctx := context.Background()
	var stdout, stderr bytes.Buffer

	require.NoError(t, run(ctx, []string{"--version"}, nil, &stdout, &stderr, env(nil)))
	require.Equal(t, "tmctl "+version+"\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run(ctx, []string{"-q", "--max", "64", dial, "*IDN?", "MEAS:VOLT?"}, nil, &stdout, &stderr, env(nil)))
	require.Equal(t, "len=5\nlen=10\n", stdout.String())

	//piped lines, timeout from the environment, terminator from the flags
	stdout.Reset()
	stdin := strings.NewReader("ABC\nDEFGH\n")
	require.NoError(t, run(ctx, []string{"--term-char", "=", dial}, stdin, &stdout, &stderr, env(map[string]string{
		"TMCTL_TIMEOUT": "2",
		"TMCTL_QUERY":   "true",
	})))
	require.Equal(t, "len=len=", stdout.String())

	stdout.Reset()
	require.NoError(t, run(ctx, []string{"--attrs", "--timeout", "7", dial}, nil, &stdout, &stderr, env(nil)))
	require.Contains(t, stdout.String(), "7s")
	require.Contains(t, stdout.String(), "buffer-size")

	err := run(ctx, []string{"--eol", "\\q", dial}, nil, &stdout, &stderr, env(nil))
	require.ErrorContains(t, err, "--eol: bad escape")
	err = run(ctx, []string{"--term-char", "300", dial}, nil, &stdout, &stderr, env(nil))
	require.ErrorContains(t, err, "--term-char:")

	err = run(ctx, []string{"no-can-dial", "x"}, nil, &stdout, &stderr, env(nil))
	require.Equal(t, tmio.CodeBadOperation, tmio.CodeOf(err))
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, syscall.EPIPE }

func TestRunOutput(t *testing.T) {
	dial := instrument(t)
	ctx := context.Background()
	var stderr bytes.Buffer

	require.NoError(t, run(ctx, []string{"--help"}, nil, io.Discard, &stderr, env(nil)))
	require.Contains(t, stderr.String(), "only written unless --query")

	//a reply that cannot be printed stops tmctl, even though the query worked
	err := run(ctx, []string{"-q", dial, "*IDN?"}, nil, brokenPipe{}, &stderr, env(nil))
	require.ErrorIs(t, err, syscall.EPIPE)
	require.ErrorContains(t, err, "write reply")

	stdin := strings.NewReader("*IDN?\n")
	err = run(ctx, []string{"-q", dial}, stdin, brokenPipe{}, &stderr, env(nil))
	require.ErrorIs(t, err, syscall.EPIPE)
}
