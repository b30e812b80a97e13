// Package ble is the boundary to the platform radio stack. A Gateway issues
// scan, connect and capability-negotiation commands without blocking and
// reports every outcome as an Event on a single ordered channel.
package ble

import "errors"

var (
	// ErrAdapterUnavailable is returned by Initialize when the platform
	// reports no usable BLE adapter.
	ErrAdapterUnavailable = errors.New("ble: adapter unavailable")
	// ErrPeripheralNotFound is carried by ConnectFailed when the id was
	// never seen by the gateway.
	ErrPeripheralNotFound = errors.New("ble: peripheral not found")
	// ErrNotInitialized is returned by commands issued before Initialize.
	ErrNotInitialized = errors.New("ble: gateway not initialized")
)

// PowerState is the adapter's power/authorization state.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerResetting
	PowerUnsupported
	PowerUnauthorized
	PowerOff
	PowerOn
)

func (s PowerState) String() string {
	switch s {
	case PowerResetting:
		return "resetting"
	case PowerUnsupported:
		return "unsupported"
	case PowerUnauthorized:
		return "unauthorized"
	case PowerOff:
		return "poweredOff"
	case PowerOn:
		return "poweredOn"
	default:
		return "unknown"
	}
}

// Advertisement is a single advertising report from a peripheral.
type Advertisement struct {
	ID        string // platform identifier (UUID on macOS, MAC elsewhere)
	LocalName string
	RSSI      int
	// ManufacturerData is the raw manufacturer-specific data: a
	// little-endian company identifier followed by the vendor payload.
	ManufacturerData []byte
}

// Gateway abstracts the BLE adapter for the session controller.
//
// Commands return immediately. Their results, and any unsolicited
// radio activity, arrive on Events in the order the gateway observed them.
// Events has exactly one consumer.
type Gateway interface {
	// Initialize acquires the radio stack. It returns ErrAdapterUnavailable
	// when the platform cannot provide one.
	Initialize() error
	// Events returns the ordered event stream.
	Events() <-chan Event
	// StartScan starts continuous discovery with no service filter.
	// Calling it while already scanning is a no-op.
	StartScan() error
	// StopScan stops discovery.
	StopScan() error
	// Connect starts establishing a link to a discovered peripheral.
	Connect(id string)
	// Disconnect requests link teardown.
	Disconnect(id string)
	// DiscoverServices enumerates all services of a connected peripheral.
	DiscoverServices(peripheralID string)
	// DiscoverCharacteristics enumerates all characteristics of a service.
	DiscoverCharacteristics(peripheralID, serviceID string)
	// SetNotify enables or disables notifications on a characteristic.
	SetNotify(peripheralID, characteristicID string, enabled bool)
	// Close stops scanning and releases the event stream.
	Close() error
}
