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
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

//Attributes is a set of attribute values keyed by identifier
type Attributes map[Attribute]uint32

//readOnly attributes are reported by Snapshot but skipped by Options
var readOnly = map[Attribute]bool{
	AttrBufferSize: true,
	AttrStatusByte: true,
}

/*Snapshot collects every attribute s answers.  Identifiers neither tier
knows are left out; any other failure is returned along with whatever was
collected.*/
func (s *Session) Snapshot() (Attributes, error) {
	a := Attributes{}
	var first error
	for _, id := range sortedAttributes(attrNames) {
		v, err := s.GetAttribute(id)
		switch {
		case err == nil:
			a[id] = v
		case CodeOf(err) == CodeBadAttribute:
		case first == nil:
			first = err
		}
	}
	return a, first
}

func sortedAttributes[V any](m map[Attribute]V) []Attribute {
	ids := make([]Attribute, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

/*Options turns the writable attributes into construction options, in
identifier order.*/
func (a Attributes) Options() []Option {
	var opts []Option
	for _, id := range sortedAttributes(a) {
		if readOnly[id] {
			continue
		}
		opts = append(opts, WithAttribute(id, a[id]))
	}
	return opts
}

/*Merge returns a single set holding every value of every set; later sets
win.*/
func (a Attributes) Merge(others ...Attributes) Attributes {
	r := Attributes{}
	for _, set := range append([]Attributes{a}, others...) {
		for id, v := range set {
			r[id] = v
		}
	}
	return r
}

//render shows a value the way a person would write it
func render(id Attribute, v uint32) string {
	switch id {
	case AttrTracing, AttrTermCharEnable:
		if v == 1 {
			return "on"
		}
		return "off"
	case AttrEOLChar, AttrTermChar:
		return strconv.QuoteRune(rune(v))
	case AttrTimeout:
		if v == 0 {
			return "no wait"
		}
		return (time.Duration(v) * time.Second).String()
	case AttrUSBTMCTimeout:
		return (time.Duration(v) * time.Millisecond).String()
	case AttrStatusByte:
		return fmt.Sprintf("0x%02x", v)
	}
	return strconv.FormatUint(uint64(v), 10)
}

//String implements the Stringer interface
func (a Attributes) String() string {
	buf := bytes.NewBufferString("")
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Id", "Attribute", "Value", "Raw"})
	for _, id := range sortedAttributes(a) {
		tw.Append([]string{
			strconv.FormatUint(uint64(id), 10),
			id.String(),
			render(id, a[id]),
			strconv.FormatUint(uint64(a[id]), 10),
		})
	}
	tw.Render()
	return buf.String()
}

/*ParseAttribute maps a name as printed by Attribute.String, or a decimal
identifier, back to an Attribute.*/
func ParseAttribute(name string) (Attribute, error) {
	for id, n := range attrNames {
		if n == name {
			return id, nil
		}
	}
	v, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, newErr(CodeBadAttribute, "parse attribute", fmt.Errorf("unknown attribute %q", name))
	}
	return Attribute(v), nil
}
