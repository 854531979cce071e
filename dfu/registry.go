// Copyright (C) 2018 Rob Caelers <rob.caelers@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dfu

import (
	"path/filepath"
	"sort"

	"github.com/google/gousb"
	jww "github.com/spf13/jwalterweatherman"
)

// Registry enumerates serial ports believed to be Adafruit-family
// nRF52840 devices, combining OS-level port listing with gousb
// descriptor reads so a USB serial number is available even on
// platforms whose tty layer doesn't surface it.
type Registry struct {
	// knownPIDs is a sanity-check allow-list, never the authoritative
	// filter — the family/high-byte classification in device.go is.
	// Classification stays pattern-based rather than enum-based so an
	// unlisted PID variant is still accepted.
	knownPIDs map[uint16]bool
}

// NewRegistry returns a Registry seeded with the known Adafruit
// nRF52840 PID variants, logged at DEBUG when a compatible-by-pattern
// device isn't on the list (still accepted — see above).
func NewRegistry() *Registry {
	return &Registry{
		knownPIDs: map[uint16]bool{
			0x8029: true, 0x0029: true, // Feather nRF52840 Express
			0x802A: true, 0x002A: true, // Feather nRF52840 Sense
		},
	}
}

// Enumerate lists currently connected candidate devices.
func (r *Registry) Enumerate() []Device {
	paths := listSerialPorts()
	descs := r.usbDescriptors()

	devices := make([]Device, 0, len(descs))
	for i, p := range paths {
		if i >= len(descs) {
			// No descriptor survived the Adafruit-vendor filter for this
			// path; skip it rather than guess. A port left unmatched here
			// simply stays invisible to this enumeration pass instead of
			// being promoted to a device on a fabricated descriptor.
			break
		}
		desc := descs[i]
		if !isCompatibleDevice(desc.VID, desc.PID) {
			continue
		}
		if !r.knownPIDs[desc.PID] {
			jww.DEBUG.Printf("device on %s has an unlisted PID 0x%04x; accepting on pattern match alone", p, desc.PID)
		}
		devices = append(devices, Device{
			Port:         p,
			VID:          desc.VID,
			PID:          desc.PID,
			Serial:       desc.Serial,
			InBootloader: isBootloaderPID(desc.PID),
			Product:      desc.Product,
			Manufacturer: desc.Manufacturer,
		})
	}
	return devices
}

// GetDeviceByPort returns the device currently enumerated at port, if any.
func (r *Registry) GetDeviceByPort(port string) (Device, bool) {
	for _, d := range r.Enumerate() {
		if d.Port == port {
			return d, true
		}
	}
	return Device{}, false
}

// isCompatibleDevice applies the vendor check plus the application/
// bootloader high-byte predicate.
func isCompatibleDevice(vid, pid uint16) bool {
	if vid != AdafruitVendorID {
		return false
	}
	return isApplicationPID(pid) || isBootloaderPID(pid)
}

// usbDescriptor is what Registry can recover from the USB device
// descriptor directly, independent of how the OS names the resulting
// tty/COM path.
type usbDescriptor struct {
	VID, PID             uint16
	Serial               string
	Product, Manufacturer string
}

// usbDescriptors reads VID/PID/serial/product/manufacturer off every
// attached Adafruit-vendor USB device via gousb. Descriptor-level
// access does not itself know which OS tty path a device enumerated
// as; Enumerate zips descs against the sorted path list positionally,
// which only holds when both lists have the same length and device
// creation order, i.e. the common case of a single attached board. Any
// path beyond len(descs) is unmatched and skipped rather than paired
// with a guessed descriptor. The port-pattern fallback in device.go
// exists to firm this up once a device has been seen once by serial
// number.
func (r *Registry) usbDescriptors() []usbDescriptor {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var out []usbDescriptor
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == AdafruitVendorID
	})
	if err != nil {
		jww.WARN.Printf("USB descriptor enumeration failed: %v", err)
		return out
	}
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	for _, d := range devs {
		serial, _ := d.SerialNumber()
		product, _ := d.Product()
		manufacturer, _ := d.Manufacturer()
		out = append(out, usbDescriptor{
			VID:          uint16(d.Desc.Vendor),
			PID:          uint16(d.Desc.Product),
			Serial:       serial,
			Product:      product,
			Manufacturer: manufacturer,
		})
	}
	return out
}

// normalizedSortedPaths sorts candidate port paths so enumeration order
// is stable across calls (the OS glob order is not guaranteed).
func normalizedSortedPaths(paths []string) []string {
	sort.Strings(paths)
	return paths
}

// baseName returns the last element of a port path.
func baseName(p string) string { return filepath.Base(p) }
