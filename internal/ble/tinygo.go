package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/bleterm/internal/ble/protocol"
)

// DefaultEventBuffer is the event channel capacity used when none is given.
const DefaultEventBuffer = 64

// scanner is the discovery half of *bluetooth.Adapter.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// TinyGoGateway implements Gateway on tinygo-org/bluetooth.
// On macOS peripheral ids are CoreBluetooth UUIDs; on Linux they are MAC
// addresses. Either way the id is Address.String() of the scan result.
type TinyGoGateway struct {
	adapter *bluetooth.Adapter
	scanner scanner
	events  chan Event
	done    chan struct{}

	closeOnce sync.Once

	// mu protects everything below.
	mu          sync.Mutex
	initialized bool
	scanning    bool
	scanGen     uint64        // bumped by every StartScan that starts a run
	scanDone    chan struct{} // closed when the latest run's Scan returns
	addresses   map[string]bluetooth.Address
	devices     map[string]*bluetooth.Device
	services    map[string]map[string]*bluetooth.DeviceService        // peripheral -> service UUID
	chars       map[string]map[string]*bluetooth.DeviceCharacteristic // peripheral -> characteristic UUID
}

// NewTinyGoGateway creates a gateway on the default adapter.
// eventBuffer <= 0 selects DefaultEventBuffer.
func NewTinyGoGateway(eventBuffer int) *TinyGoGateway {
	g := newGateway(bluetooth.DefaultAdapter, eventBuffer)
	g.adapter = bluetooth.DefaultAdapter
	return g
}

func newGateway(s scanner, eventBuffer int) *TinyGoGateway {
	if eventBuffer <= 0 {
		eventBuffer = DefaultEventBuffer
	}
	return &TinyGoGateway{
		scanner:   s,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
		addresses: make(map[string]bluetooth.Address),
		devices:   make(map[string]*bluetooth.Device),
		services:  make(map[string]map[string]*bluetooth.DeviceService),
		chars:     make(map[string]map[string]*bluetooth.DeviceCharacteristic),
	}
}

// Compile-time check that TinyGoGateway implements Gateway.
var _ Gateway = (*TinyGoGateway)(nil)

// Events returns the ordered event stream. It is never closed.
func (g *TinyGoGateway) Events() <-chan Event {
	return g.events
}

// Initialize enables the default adapter and installs the disconnect
// handler. On success AdapterStateChanged{PowerOn} follows on Events.
func (g *TinyGoGateway) Initialize() error {
	if err := g.adapter.Enable(); err != nil {
		go g.emit(AdapterStateChanged{State: PowerUnsupported})
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}

	// tinygo reports peripheral-side disconnects through the adapter-level
	// connect handler with connected=false.
	g.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := device.Address.String()
		g.forget(id)
		g.emit(Disconnected{PeripheralID: id})
	})

	g.mu.Lock()
	g.initialized = true
	g.mu.Unlock()

	// tinygo has no power-state callback; a successful Enable means on.
	go g.emit(AdapterStateChanged{State: PowerOn})
	return nil
}

// StartScan starts discovery in the background. Every advertisement is
// reported as DeviceDiscovered, repeats included.
func (g *TinyGoGateway) StartScan() error {
	g.mu.Lock()
	if !g.initialized {
		g.mu.Unlock()
		return ErrNotInitialized
	}
	if g.scanning {
		g.mu.Unlock()
		return nil
	}
	g.scanning = true
	g.scanGen++
	gen := g.scanGen
	prev := g.scanDone
	done := make(chan struct{})
	g.scanDone = done
	g.mu.Unlock()

	go g.runScan(gen, prev, done)
	return nil
}

// runScan performs one discovery run. A run started right after StopScan
// waits for the previous Scan call to return, since the adapter allows
// only one at a time.
func (g *TinyGoGateway) runScan(gen uint64, prev, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}

	g.mu.Lock()
	current := g.scanning && g.scanGen == gen
	g.mu.Unlock()
	if !current {
		// Stopped before it could begin.
		return
	}

	err := g.scanner.Scan(g.onScanResult)

	g.mu.Lock()
	if g.scanGen == gen {
		g.scanning = false
	}
	g.mu.Unlock()
	if err != nil {
		slog.Warn("[BLE] scan ended with error", "error", err)
	}
}

func (g *TinyGoGateway) onScanResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	id := result.Address.String()

	g.mu.Lock()
	g.addresses[id] = result.Address
	g.mu.Unlock()

	adv := Advertisement{
		ID:        id,
		LocalName: result.LocalName(),
		RSSI:      int(result.RSSI),
	}
	if elems := result.ManufacturerData(); len(elems) > 0 {
		adv.ManufacturerData = protocol.EncodeManufacturerData(elems[0].CompanyID, elems[0].Data)
	}
	g.emit(DeviceDiscovered{Advertisement: adv})
}

// StopScan stops discovery. The gateway counts as stopped as soon as it
// returns, so an immediate StartScan begins a new run.
func (g *TinyGoGateway) StopScan() error {
	g.mu.Lock()
	if !g.scanning {
		g.mu.Unlock()
		return nil
	}
	g.scanning = false
	g.mu.Unlock()

	if err := g.scanner.StopScan(); err != nil {
		return fmt.Errorf("ble: stop scan: %w", err)
	}
	return nil
}

// Connect dials a peripheral seen while scanning and reports Connected or
// ConnectFailed.
func (g *TinyGoGateway) Connect(id string) {
	g.mu.Lock()
	addr, ok := g.addresses[id]
	g.mu.Unlock()
	if !ok {
		go g.emit(ConnectFailed{PeripheralID: id, Err: fmt.Errorf("ble: connect to %s: %w", id, ErrPeripheralNotFound)})
		return
	}

	go func() {
		device, err := g.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			g.emit(ConnectFailed{PeripheralID: id, Err: fmt.Errorf("ble: connect to %s: %w", id, err)})
			return
		}
		g.mu.Lock()
		g.devices[id] = &device
		g.mu.Unlock()
		g.emit(Connected{PeripheralID: id})
	}()
}

// Disconnect tears down the link to id. The resulting Disconnected event
// comes from the adapter's connect handler.
func (g *TinyGoGateway) Disconnect(id string) {
	g.mu.Lock()
	device, ok := g.devices[id]
	g.mu.Unlock()
	if !ok {
		slog.Warn("[BLE] disconnect requested for unconnected peripheral", "id", id)
		return
	}

	go func() {
		if err := device.Disconnect(); err != nil {
			slog.Warn("[BLE] disconnect failed", "id", id, "error", err)
		}
	}()
}

// DiscoverServices enumerates every service of a connected peripheral and
// reports ServicesDiscovered.
func (g *TinyGoGateway) DiscoverServices(peripheralID string) {
	g.mu.Lock()
	device, ok := g.devices[peripheralID]
	g.mu.Unlock()
	if !ok {
		go g.emit(ServicesDiscovered{PeripheralID: peripheralID, Err: fmt.Errorf("ble: discover services on %s: %w", peripheralID, ErrPeripheralNotFound)})
		return
	}

	go func() {
		svcs, err := device.DiscoverServices(nil)
		if err != nil {
			g.emit(ServicesDiscovered{PeripheralID: peripheralID, Err: fmt.Errorf("ble: discover services: %w", err)})
			return
		}

		byUUID := make(map[string]*bluetooth.DeviceService, len(svcs))
		ids := make([]string, 0, len(svcs))
		for i := range svcs {
			uuid := svcs[i].UUID().String()
			byUUID[uuid] = &svcs[i]
			ids = append(ids, uuid)
		}
		g.mu.Lock()
		g.services[peripheralID] = byUUID
		g.mu.Unlock()

		g.emit(ServicesDiscovered{PeripheralID: peripheralID, Services: ids})
	}()
}

// DiscoverCharacteristics enumerates every characteristic of a service found
// by DiscoverServices and reports CharacteristicsDiscovered.
func (g *TinyGoGateway) DiscoverCharacteristics(peripheralID, serviceID string) {
	g.mu.Lock()
	svc, ok := g.services[peripheralID][serviceID]
	g.mu.Unlock()
	if !ok {
		go g.emit(CharacteristicsDiscovered{
			PeripheralID: peripheralID,
			ServiceID:    serviceID,
			Err:          fmt.Errorf("ble: service %s not found", serviceID),
		})
		return
	}

	go func() {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			g.emit(CharacteristicsDiscovered{
				PeripheralID: peripheralID,
				ServiceID:    serviceID,
				Err:          fmt.Errorf("ble: discover characteristics: %w", err),
			})
			return
		}

		ids := make([]string, 0, len(chars))
		g.mu.Lock()
		byUUID := g.chars[peripheralID]
		if byUUID == nil {
			byUUID = make(map[string]*bluetooth.DeviceCharacteristic)
			g.chars[peripheralID] = byUUID
		}
		for i := range chars {
			uuid := chars[i].UUID().String()
			byUUID[uuid] = &chars[i]
			ids = append(ids, uuid)
		}
		g.mu.Unlock()

		g.emit(CharacteristicsDiscovered{PeripheralID: peripheralID, ServiceID: serviceID, Characteristics: ids})
	}()
}

// SetNotify subscribes to or unsubscribes from a characteristic. Each
// notification is reported as ValueUpdated with a private copy of the bytes.
func (g *TinyGoGateway) SetNotify(peripheralID, characteristicID string, enabled bool) {
	g.mu.Lock()
	char, ok := g.chars[peripheralID][characteristicID]
	g.mu.Unlock()
	if !ok {
		go g.emit(ValueUpdated{
			PeripheralID:     peripheralID,
			CharacteristicID: characteristicID,
			Err:              fmt.Errorf("ble: characteristic %s not found", characteristicID),
		})
		return
	}

	go func() {
		var cb func([]byte)
		if enabled {
			cb = func(buf []byte) {
				// tinygo reuses buf between notifications.
				value := make([]byte, len(buf))
				copy(value, buf)
				g.emit(ValueUpdated{PeripheralID: peripheralID, CharacteristicID: characteristicID, Value: value})
			}
		}
		if err := char.EnableNotifications(cb); err != nil {
			g.emit(ValueUpdated{
				PeripheralID:     peripheralID,
				CharacteristicID: characteristicID,
				Err:              fmt.Errorf("ble: set notify on %s: %w", characteristicID, err),
			})
		}
	}()
}

// Close stops scanning and unblocks pending event deliveries. Events sent
// after Close are discarded. It is safe to call more than once.
func (g *TinyGoGateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		err = g.StopScan()
		close(g.done)
	})
	return err
}

// emit delivers ev unless the gateway is closed. It may block while the
// consumer is behind, so it is never called on the consumer's goroutine.
func (g *TinyGoGateway) emit(ev Event) {
	select {
	case g.events <- ev:
	case <-g.done:
	}
}

// forget drops the cached handles of a peripheral whose link went down.
func (g *TinyGoGateway) forget(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.devices, id)
	delete(g.services, id)
	delete(g.chars, id)
}
