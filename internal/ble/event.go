package ble

// Event is one of the gateway's event types below. The set is closed; a
// consumer dispatches with a type switch.
type Event interface {
	event()
}

// AdapterStateChanged reports a new adapter power state.
type AdapterStateChanged struct {
	State PowerState
}

// DeviceDiscovered reports an advertisement seen during a scan.
type DeviceDiscovered struct {
	Advertisement Advertisement
}

// Connected reports that a link to the peripheral is up.
type Connected struct {
	PeripheralID string
}

// ConnectFailed reports that a connect attempt ended without a link.
type ConnectFailed struct {
	PeripheralID string
	Err          error
}

// Disconnected reports that the link went down. Err is nil for a requested
// teardown.
type Disconnected struct {
	PeripheralID string
	Err          error
}

// ServicesDiscovered carries the service UUIDs of a connected peripheral.
type ServicesDiscovered struct {
	PeripheralID string
	Services     []string
	Err          error
}

// CharacteristicsDiscovered carries the characteristic UUIDs of one service.
type CharacteristicsDiscovered struct {
	PeripheralID    string
	ServiceID       string
	Characteristics []string
	Err             error
}

// ValueUpdated carries a notification payload, or the error that prevented
// one from being delivered.
type ValueUpdated struct {
	PeripheralID     string
	CharacteristicID string
	Value            []byte
	Err              error
}

func (AdapterStateChanged) event()       {}
func (DeviceDiscovered) event()          {}
func (Connected) event()                 {}
func (ConnectFailed) event()             {}
func (Disconnected) event()              {}
func (ServicesDiscovered) event()        {}
func (CharacteristicsDiscovered) event() {}
func (ValueUpdated) event()              {}
