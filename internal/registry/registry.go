// Package registry holds the peripherals discovered during a scan, in
// discovery order and unique by peripheral id.
package registry

import (
	"github.com/google/uuid"

	"github.com/chaz8081/bleterm/internal/ble"
	"github.com/chaz8081/bleterm/internal/ble/protocol"
)

// UnknownName is shown for peripherals that advertise no local name.
const UnknownName = "Unknown"

// Device is a discovered peripheral.
type Device struct {
	ID              string
	RowID           uuid.UUID // stable list key for presentation
	Name            string
	RSSI            int
	RadioGeneration string
	Connected       bool
}

// FromAdvertisement derives a Device from an advertising report.
func FromAdvertisement(adv ble.Advertisement) Device {
	name := adv.LocalName
	if name == "" {
		name = UnknownName
	}
	return Device{
		ID:              adv.ID,
		RowID:           uuid.New(),
		Name:            name,
		RSSI:            adv.RSSI,
		RadioGeneration: protocol.RadioGeneration(adv.ManufacturerData),
	}
}

// Registry is an ordered set of devices keyed by id.
// It is not safe for concurrent use; the session controller owns it.
type Registry struct {
	devices []Device
	index   map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends d unless a device with the same id is already present, in
// which case the existing entry is kept unchanged. It reports whether d was added.
func (r *Registry) Add(d Device) bool {
	if _, ok := r.index[d.ID]; ok {
		return false
	}
	r.index[d.ID] = len(r.devices)
	r.devices = append(r.devices, d)
	return true
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (Device, bool) {
	i, ok := r.index[id]
	if !ok {
		return Device{}, false
	}
	return r.devices[i], true
}

// SetConnected updates the connection flag of a device. It reports whether
// the device exists.
func (r *Registry) SetConnected(id string, connected bool) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.devices[i].Connected = connected
	return true
}

// Clear removes every device.
func (r *Registry) Clear() {
	r.devices = nil
	clear(r.index)
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns a copy of the devices in discovery order.
func (r *Registry) Devices() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}
