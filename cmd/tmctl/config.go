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
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/NCAR/tmio"
	"github.com/pkg/errors"
)

/*config is everything tmctl needs to know before it opens a session.
Precedence (highest wins): flags, TMCTL_* environment, config file,
defaults.*/
type config struct {
	Dial     string
	Timeout  uint32
	TermChar byte
	NoTerm   bool
	EOL      byte
	Trace    bool
	Max      int
	Query    bool
	Attrs    tmio.Attributes //extra attributes from the [attributes] table
}

func defaultConfig() config {
	return config{
		Dial:     "tcp://localhost:5025",
		Timeout:  tmio.DefaultTimeout,
		TermChar: tmio.DefaultTermChar,
		EOL:      tmio.DefaultEOLChar,
		Attrs:    tmio.Attributes{},
	}
}

type fileConfig struct {
	Dial       string            `toml:"dial"`
	Timeout    uint32            `toml:"timeout"`
	TermChar   string            `toml:"term_char"`
	NoTerm     bool              `toml:"no_term"`
	EOL        string            `toml:"eol"`
	Trace      bool              `toml:"trace"`
	Max        int               `toml:"max"`
	Query      bool              `toml:"query"`
	Attributes map[string]uint32 `toml:"attributes"`
}

//loadFile overlays the keys present in the TOML file at path onto cfg
func loadFile(cfg *config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	if meta.IsDefined("dial") {
		cfg.Dial = strings.TrimSpace(raw.Dial)
	}
	if meta.IsDefined("timeout") {
		cfg.Timeout = raw.Timeout
	}
	if meta.IsDefined("term_char") {
		if cfg.TermChar, err = parseChar(raw.TermChar); err != nil {
			return errors.Wrap(err, "parse term_char")
		}
	}
	if meta.IsDefined("no_term") {
		cfg.NoTerm = raw.NoTerm
	}
	if meta.IsDefined("eol") {
		if cfg.EOL, err = parseChar(raw.EOL); err != nil {
			return errors.Wrap(err, "parse eol")
		}
	}
	if meta.IsDefined("trace") {
		cfg.Trace = raw.Trace
	}
	if meta.IsDefined("max") {
		cfg.Max = raw.Max
	}
	if meta.IsDefined("query") {
		cfg.Query = raw.Query
	}
	for name, v := range raw.Attributes {
		id, err := tmio.ParseAttribute(name)
		if err != nil {
			return errors.Wrapf(err, "attributes.%s", name)
		}
		cfg.Attrs[id] = v
	}
	return nil
}

/*loadEnv overlays the TMCTL_* variables onto cfg.  Only non-empty variables
override.  Booleans accept 1, true and yes.*/
func loadEnv(cfg *config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var err error
	if v := getenv("TMCTL_DIAL"); v != "" {
		cfg.Dial = v
	}
	if v := getenv("TMCTL_TIMEOUT"); v != "" {
		n, perr := strconv.ParseUint(v, 10, 32)
		if perr != nil {
			return errors.Wrap(perr, "TMCTL_TIMEOUT")
		}
		cfg.Timeout = uint32(n)
	}
	if v := getenv("TMCTL_TERM_CHAR"); v != "" {
		if cfg.TermChar, err = parseChar(v); err != nil {
			return errors.Wrap(err, "TMCTL_TERM_CHAR")
		}
	}
	if envBool(getenv("TMCTL_NO_TERM")) {
		cfg.NoTerm = true
	}
	if v := getenv("TMCTL_EOL"); v != "" {
		if cfg.EOL, err = parseChar(v); err != nil {
			return errors.Wrap(err, "TMCTL_EOL")
		}
	}
	if envBool(getenv("TMCTL_TRACE")) {
		cfg.Trace = true
	}
	if v := getenv("TMCTL_MAX"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return errors.Wrap(perr, "TMCTL_MAX")
		}
		cfg.Max = n
	}
	if envBool(getenv("TMCTL_QUERY")) {
		cfg.Query = true
	}
	return nil
}

func envBool(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "yes"
}

/*parseChar reads a single byte written as itself ("#"), as a Go escape
(\n, \r, \x0a) or as a number ("10", "0x0a").*/
func parseChar(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	if strings.HasPrefix(s, "\\") {
		v, _, tail, err := strconv.UnquoteChar(s, '\'')
		if err != nil || tail != "" || v > 0xff {
			return 0, fmt.Errorf("bad escape %q", s)
		}
		return byte(v), nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a character, escape or number below 256", s)
	}
	return byte(n), nil
}

//attributes is cfg as session attributes; explicit [attributes] entries lose
func (c config) attributes() tmio.Attributes {
	term := uint32(1)
	if c.NoTerm {
		term = 0
	}
	trace := uint32(0)
	if c.Trace {
		trace = 1
	}
	return c.Attrs.Merge(tmio.Attributes{
		tmio.AttrTimeout:        c.Timeout,
		tmio.AttrTermChar:       uint32(c.TermChar),
		tmio.AttrTermCharEnable: term,
		tmio.AttrEOLChar:        uint32(c.EOL),
		tmio.AttrTracing:        trace,
	})
}
