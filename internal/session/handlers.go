package session

import (
	"fmt"
	"log/slog"

	"github.com/chaz8081/bleterm/internal/ble"
	"github.com/chaz8081/bleterm/internal/ble/protocol"
	"github.com/chaz8081/bleterm/internal/registry"
)

const unknownPeripheral = "Unknown peripheral"

// handle dispatches one gateway event. Run goroutine only.
func (c *Controller) handle(ev ble.Event) {
	switch ev := ev.(type) {
	case ble.AdapterStateChanged:
		c.onAdapterState(ev.State)
	case ble.DeviceDiscovered:
		c.onDiscovered(ev.Advertisement)
	case ble.Connected:
		c.onConnected(ev.PeripheralID)
	case ble.ConnectFailed:
		c.onConnectFailed(ev.PeripheralID, ev.Err)
	case ble.Disconnected:
		c.onDisconnected(ev.PeripheralID, ev.Err)
	case ble.ServicesDiscovered:
		c.onServices(ev)
	case ble.CharacteristicsDiscovered:
		c.onCharacteristics(ev)
	case ble.ValueUpdated:
		c.onValue(ev)
	default:
		slog.Warn("[session] unhandled gateway event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) startScanning() {
	c.devices.Clear()
	c.log.Clear()
	if err := c.gw.StartScan(); err != nil {
		slog.Warn("[session] start scan failed", "error", err)
	}
	c.scanning = true
	slog.Info("[session] started scanning for peripherals")
}

func (c *Controller) stopScanning() {
	if err := c.gw.StopScan(); err != nil {
		slog.Warn("[session] stop scan failed", "error", err)
	}
	c.devices.Clear()
	c.scanning = false
	slog.Info("[session] stopped scanning for peripherals")
}

func (c *Controller) connectToDevice(id string) {
	d, ok := c.devices.Get(id)
	if !ok {
		c.log.Appendf("Peripheral is nil for device %s", id)
		slog.Warn("[session] connect requested for unknown device", "id", id)
		return
	}
	c.pendingID = id
	c.gw.Connect(id)
	c.log.Appendf("Connecting to %s...", d.Name)
	slog.Info("[session] connecting", "id", id, "name", d.Name)
}

func (c *Controller) disconnect() {
	if c.activeID == "" {
		c.log.Append("No connected device to disconnect.")
		return
	}
	id := c.activeID
	c.gw.Disconnect(id)
	c.devices.SetConnected(id, false)
	c.activeID = ""
	slog.Info("[session] disconnect requested", "id", id, "name", c.nameOf(id))
}

func (c *Controller) onAdapterState(state ble.PowerState) {
	switch state {
	case ble.PowerOn:
		slog.Info("[session] Bluetooth is powered on.")
		if c.opts.AutoStart && c.state() == Idle {
			c.startScanning()
		}
	case ble.PowerOff:
		slog.Info("[session] Bluetooth is powered off.")
	case ble.PowerResetting:
		slog.Info("[session] Bluetooth is resetting.")
	case ble.PowerUnauthorized:
		slog.Info("[session] Bluetooth is not authorized.")
	case ble.PowerUnsupported:
		slog.Info("[session] Bluetooth is not supported on this device.")
	default:
		slog.Info("[session] Bluetooth state is unknown.", "state", state)
	}
}

func (c *Controller) onDiscovered(adv ble.Advertisement) {
	d := registry.FromAdvertisement(adv)
	if c.devices.Add(d) {
		slog.Debug("[session] discovered", "name", d.Name, "id", d.ID, "rssi", d.RSSI, "version", d.RadioGeneration)
	}
}

func (c *Controller) onConnected(id string) {
	if c.pendingID == id {
		c.pendingID = ""
	}
	if _, ok := c.devices.Get(id); ok {
		if c.activeID != "" && c.activeID != id {
			c.devices.SetConnected(c.activeID, false)
		}
		c.devices.SetConnected(id, true)
		c.activeID = id
	}
	c.log.Appendf("Connected to %s", c.nameOf(id))
	slog.Info("[session] connected", "id", id)

	c.gw.DiscoverServices(id)
}

func (c *Controller) onConnectFailed(id string, err error) {
	if c.pendingID == id {
		c.pendingID = ""
	}
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.fail(&Failure{Kind: ConnectFailed, PeripheralID: id, Err: err}, "Failed to connect to %s: %s", c.nameOf(id), msg)
	c.errState = ErrorState{Present: true, Message: msg}
}

func (c *Controller) onDisconnected(id string, err error) {
	name := c.nameOf(id)
	if err != nil {
		c.fail(&Failure{Kind: DisconnectedWithError, PeripheralID: id, Err: err}, "Disconnected from %s: %v", name, err)
	} else {
		c.log.Appendf("Disconnected from %s: Disconnected successfully", name)
		slog.Info("[session] disconnected", "id", id)
	}

	if c.pendingID == id {
		c.pendingID = ""
	}
	if c.opts.ClearOnDrop && c.activeID == id {
		c.devices.SetConnected(id, false)
		c.activeID = ""
	}
}

func (c *Controller) onServices(ev ble.ServicesDiscovered) {
	name := c.nameOf(ev.PeripheralID)
	if ev.Err != nil {
		c.fail(&Failure{Kind: ServiceDiscoveryFailed, PeripheralID: ev.PeripheralID, Err: ev.Err},
			"Error discovering services for %s: %v", name, ev.Err)
		return
	}
	if len(ev.Services) == 0 {
		slog.Info("[session] no services found", "name", name)
		return
	}
	for _, svc := range ev.Services {
		c.gw.DiscoverCharacteristics(ev.PeripheralID, svc)
	}
}

func (c *Controller) onCharacteristics(ev ble.CharacteristicsDiscovered) {
	name := c.nameOf(ev.PeripheralID)
	if ev.Err != nil {
		c.fail(&Failure{Kind: CharacteristicDiscoveryFailed, PeripheralID: ev.PeripheralID, Err: ev.Err},
			"Error discovering characteristics for service %s on %s: %v", ev.ServiceID, name, ev.Err)
		return
	}
	if len(ev.Characteristics) == 0 {
		slog.Info("[session] no characteristics found", "service", ev.ServiceID, "name", name)
		return
	}
	for _, char := range ev.Characteristics {
		c.gw.SetNotify(ev.PeripheralID, char, true)
	}
}

func (c *Controller) onValue(ev ble.ValueUpdated) {
	name := c.nameOf(ev.PeripheralID)
	if ev.Err != nil {
		c.fail(&Failure{Kind: NotifyUpdateFailed, PeripheralID: ev.PeripheralID, Err: ev.Err},
			"Error updating value for characteristic %s on %s: %v", ev.CharacteristicID, name, ev.Err)
		return
	}
	if ev.Value == nil {
		return
	}

	text, ok := protocol.DecodeText(ev.Value)
	if !ok {
		text = protocol.NotUTF8Message
		if c.opts.HexFallback {
			text = fmt.Sprintf("%s: %s", text, protocol.HexDump(ev.Value))
		}
	}
	e := c.log.Append(text)
	slog.Debug("[session] received message", "name", name, "line", e.String())
}

// fail records a terminal failure in the session log and the process log.
func (c *Controller) fail(f *Failure, format string, args ...any) {
	c.log.Appendf(format, args...)
	slog.Warn("[session] operation failed", "kind", f.Kind.String(), "id", f.PeripheralID, "error", f)
}

func (c *Controller) nameOf(id string) string {
	if d, ok := c.devices.Get(id); ok {
		return d.Name
	}
	return unknownPeripheral
}
