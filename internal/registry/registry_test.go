package registry

import (
	"testing"

	"github.com/google/uuid"

	"github.com/chaz8081/bleterm/internal/ble"
)

func TestFromAdvertisement(t *testing.T) {
	d := FromAdvertisement(ble.Advertisement{
		ID:               "8DAC7973-F026-A2C7-A4FA-2D1E6FEACBBE",
		LocalName:        "Thermo",
		RSSI:             -49,
		ManufacturerData: []byte{0x4C, 0x00, 0x02, 0x15},
	})

	if d.ID != "8DAC7973-F026-A2C7-A4FA-2D1E6FEACBBE" {
		t.Errorf("ID = %q", d.ID)
	}
	if d.Name != "Thermo" {
		t.Errorf("Name = %q, want %q", d.Name, "Thermo")
	}
	if d.RSSI != -49 {
		t.Errorf("RSSI = %d, want -49", d.RSSI)
	}
	if d.RadioGeneration != "BLE" {
		t.Errorf("RadioGeneration = %q, want %q", d.RadioGeneration, "BLE")
	}
	if d.Connected {
		t.Error("a new device should not be connected")
	}
	if d.RowID == uuid.Nil {
		t.Error("RowID should be generated")
	}
}

func TestFromAdvertisementRowIDsAreDistinct(t *testing.T) {
	adv := ble.Advertisement{ID: "X"}
	if FromAdvertisement(adv).RowID == FromAdvertisement(adv).RowID {
		t.Error("each discovery should get its own RowID")
	}
}

func TestFromAdvertisementDefaults(t *testing.T) {
	d := FromAdvertisement(ble.Advertisement{ID: "E281CA54", RSSI: -96})

	if d.Name != UnknownName {
		t.Errorf("Name = %q, want %q", d.Name, UnknownName)
	}
	if d.RadioGeneration != "Unknown" {
		t.Errorf("RadioGeneration = %q, want %q", d.RadioGeneration, "Unknown")
	}
}

func TestAddDeduplicatesByIDFirstSeenWins(t *testing.T) {
	r := New()

	seq := []ble.Advertisement{
		{ID: "A", LocalName: "first", RSSI: -40},
		{ID: "B", RSSI: -80},
		{ID: "A", LocalName: "second", RSSI: -90},
		{ID: "B", LocalName: "late name", RSSI: -10},
		{ID: "C", RSSI: -70},
		{ID: "A", RSSI: -1},
	}
	added := 0
	for _, adv := range seq {
		if r.Add(FromAdvertisement(adv)) {
			added++
		}
	}

	if added != 3 || r.Len() != 3 {
		t.Fatalf("added = %d, Len() = %d, want 3 and 3", added, r.Len())
	}

	tests := []struct {
		id   string
		name string
		rssi int
	}{
		{"A", "first", -40},
		{"B", UnknownName, -80},
		{"C", UnknownName, -70},
	}
	devices := r.Devices()
	for i, tt := range tests {
		d := devices[i]
		if d.ID != tt.id || d.Name != tt.name || d.RSSI != tt.rssi {
			t.Errorf("devices[%d] = {%s %q %d}, want {%s %q %d}", i, d.ID, d.Name, d.RSSI, tt.id, tt.name, tt.rssi)
		}
	}
}

func TestSetConnected(t *testing.T) {
	r := New()
	r.Add(Device{ID: "X"})

	if !r.SetConnected("X", true) {
		t.Fatal("SetConnected(X) = false, want true")
	}
	d, ok := r.Get("X")
	if !ok || !d.Connected {
		t.Errorf("Get(X) = %+v, %v, want connected", d, ok)
	}

	if r.SetConnected("missing", true) {
		t.Error("SetConnected(missing) = true, want false")
	}
}

func TestClear(t *testing.T) {
	r := New()
	r.Add(Device{ID: "X"})
	r.Add(Device{ID: "Y"})

	r.Clear()

	if r.Len() != 0 || len(r.Devices()) != 0 {
		t.Errorf("Len() = %d, len(Devices()) = %d after Clear", r.Len(), len(r.Devices()))
	}
	if _, ok := r.Get("X"); ok {
		t.Error("Get(X) found a device after Clear")
	}

	// Ids are accepted again after a clear.
	if !r.Add(Device{ID: "X"}) {
		t.Error("Add(X) after Clear = false, want true")
	}
}

func TestDevicesReturnsCopy(t *testing.T) {
	r := New()
	r.Add(Device{ID: "X"})

	devices := r.Devices()
	devices[0].Connected = true

	if d, _ := r.Get("X"); d.Connected {
		t.Error("mutating the returned slice must not touch the registry")
	}
}
