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
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

//Where device nodes and their sysfs descriptions live; tests point these at a fake tree.
var (
	sysfsRoot = "/sys"
	devRoot   = "/dev"
)

//usbtmcDevice describes one bound usbtmc interface as sysfs reports it
type usbtmcDevice struct {
	Minor        int
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
}

/*listUSBTMC walks the usbmisc class directory (usb on old kernels) and reads
the descriptor strings of the USB device each usbtmc interface belongs to.
The result is ordered by minor number.*/
func listUSBTMC(root string) ([]usbtmcDevice, error) {
	var names []string
	for _, class := range []string{"usbmisc", "usb"} {
		classDir := filepath.Join(root, "class", class)
		found, err := filepath.Glob(filepath.Join(classDir, "usbtmc*"))
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			names = found
			break
		}
	}

	devs := make([]usbtmcDevice, 0, len(names))
	for _, entry := range names {
		minor, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(entry), "usbtmc"))
		if err != nil {
			continue
		}
		//device points at the interface; the descriptor files sit on its parent
		iface, err := filepath.EvalSymlinks(filepath.Join(entry, "device"))
		if err != nil {
			continue
		}
		usb := filepath.Dir(iface)
		dev := usbtmcDevice{
			Minor:        minor,
			Manufacturer: readSysfs(usb, "manufacturer"),
			Product:      readSysfs(usb, "product"),
			Serial:       readSysfs(usb, "serial"),
		}
		if v, err := strconv.ParseUint(readSysfs(usb, "idVendor"), 16, 16); err == nil {
			dev.VendorID = uint16(v)
		}
		if v, err := strconv.ParseUint(readSysfs(usb, "idProduct"), 16, 16); err == nil {
			dev.ProductID = uint16(v)
		}
		devs = append(devs, dev)
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].Minor < devs[j].Minor })
	return devs, nil
}

func findUSBTMC(root string, match func(usbtmcDevice) bool) (usbtmcDevice, error) {
	devs, err := listUSBTMC(root)
	if err != nil {
		return usbtmcDevice{}, err
	}
	for _, d := range devs {
		if match(d) {
			return d, nil
		}
	}
	return usbtmcDevice{}, fmt.Errorf("none of %d usbtmc devices match", len(devs))
}

func readSysfs(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

//matchText treats an empty want as a wildcard
func matchText(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}
