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

/*Command tmctl sends messages to an instrument and prints what comes back.

	tmctl [flags] <dial> [message ...]

Each message is sent with the EOL byte appended; with --query one reply is
read back per message and printed.  Without --query tmctl only writes and
whatever the instrument says is left unread.  Without messages, lines from
stdin are sent instead.*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/NCAR/tmio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

const usageNote = `Messages are only written unless --query is given; with --query each
message waits for one reply, which is printed.
`

//version is overridable at link time with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "tmctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("tmctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		path, termChar, eol string
		timeout             uint32
		noTerm, trace       bool
		maxLen              int
		query, showAttrs    bool
		verbose             int
		showVersion         bool
		showHelp            bool
	)
	fs.StringVar(&path, "config", "", "TOML config file")
	fs.Uint32VarP(&timeout, "timeout", "t", tmio.DefaultTimeout, "Readiness timeout in seconds (0 never waits)")
	fs.StringVar(&termChar, "term-char", "\\n", "Message terminator (char, escape or number)")
	fs.BoolVar(&noTerm, "no-term", false, "Disable terminator framing")
	fs.StringVar(&eol, "eol", "\\n", "Byte appended to each message sent")
	fs.BoolVar(&trace, "trace", false, "Log every byte sent and received")
	fs.IntVar(&maxLen, "max", 0, "Longest reply accepted (0 is the session buffer size)")
	fs.BoolVarP(&query, "query", "q", false, "Read and print one reply per message (otherwise replies are not read)")
	fs.BoolVar(&showAttrs, "attrs", false, "Print the session attributes")
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: tmctl [flags] <dial> [message ...]\n\n%s\n%s", fs.FlagUsages(), usageNote)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		fs.Usage()
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "tmctl %s\n", version)
		return nil
	}

	cfg := defaultConfig()
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return err
		}
	}
	if err := loadEnv(&cfg, getenv); err != nil {
		return err
	}
	var err error
	if fs.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if fs.Changed("term-char") {
		if cfg.TermChar, err = parseChar(termChar); err != nil {
			return errors.Wrap(err, "--term-char")
		}
	}
	if fs.Changed("no-term") {
		cfg.NoTerm = noTerm
	}
	if fs.Changed("eol") {
		if cfg.EOL, err = parseChar(eol); err != nil {
			return errors.Wrap(err, "--eol")
		}
	}
	if fs.Changed("trace") {
		cfg.Trace = trace
	}
	if fs.Changed("max") {
		cfg.Max = maxLen
	}
	if fs.Changed("query") {
		cfg.Query = query
	}

	messages := fs.Args()
	if len(messages) > 0 {
		cfg.Dial, messages = messages[0], messages[1:]
	}

	logger := newLogger(stderr, verbose, cfg.Trace)
	opts := append(cfg.attributes().Options(), tmio.WithLogger(logger))
	arb, err := tmio.NewArbiter(ctx, cfg.Dial, opts...)
	if err != nil {
		return err
	}
	defer arb.Close()
	logger.Info().Str("dial", cfg.Dial).Msg("connected")

	size := cfg.Max
	if size <= 0 {
		v, err := arb.GetAttribute(tmio.AttrBufferSize)
		if err != nil {
			return err
		}
		size = int(v)
	}

	if showAttrs {
		err := arb.Do(func(s *tmio.Session) error {
			snap, err := s.Snapshot()
			fmt.Fprint(stdout, snap)
			return err
		})
		if err != nil {
			logger.Warn().Err(err).Msg("some attributes could not be read")
		}
		if len(messages) == 0 {
			return nil
		}
	}

	send := func(msg []byte) error {
		msg = append(msg, cfg.EOL)
		if !cfg.Query {
			_, err := arb.Write(msg)
			return err
		}
		rsp := arb.Query(ctx, msg, size)
		logger.Debug().Dur("duration", rsp.Duration).Int("bytes", len(rsp.Bytes)).Msg("reply")
		if _, err := stdout.Write(rsp.Bytes); err != nil {
			return errors.Wrap(err, "write reply")
		}
		return rsp.Error
	}

	if len(messages) > 0 {
		for _, m := range messages {
			if err := send([]byte(m)); err != nil {
				return err
			}
		}
		return nil
	}

	//read from stdin
	lines := bufio.NewScanner(stdin)
	for lines.Scan() {
		if err := send(append([]byte(nil), lines.Bytes()...)); err != nil {
			if !tmio.IsTemporary(err) {
				return err
			}
			logger.Warn().Err(err).Msg("no reply")
		}
	}
	return lines.Err()
}

/*newLogger writes console formatted events to w.  Warnings and up by
default, one -v for info, two for debug.  Tracing needs info.*/
func newLogger(w io.Writer, verbose int, trace bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbose >= 2:
		level = zerolog.DebugLevel
	case verbose == 1 || trace:
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "tmctl").Logger()
}
