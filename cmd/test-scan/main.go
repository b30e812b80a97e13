// Command test-scan is a manual test for the radio gateway.
// It scans for a few seconds and prints every advertisement it sees.
//
// Usage:
//
//	go run ./cmd/test-scan [--seconds 10]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/bleterm/internal/ble"
	"github.com/chaz8081/bleterm/internal/registry"
)

func main() {
	seconds := flag.Int("seconds", 10, "how long to scan")
	flag.Parse()

	gw := ble.NewTinyGoGateway(ble.DefaultEventBuffer)
	defer gw.Close()

	if err := gw.Initialize(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := gw.StartScan(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Scanning for %ds...\n", *seconds)

	devices := registry.New()
	deadline := time.After(time.Duration(*seconds) * time.Second)
loop:
	for {
		select {
		case ev := <-gw.Events():
			switch ev := ev.(type) {
			case ble.AdapterStateChanged:
				fmt.Printf("Adapter: %s\n", ev.State)
			case ble.DeviceDiscovered:
				d := registry.FromAdvertisement(ev.Advertisement)
				if devices.Add(d) {
					fmt.Printf("  %-24s %s  RSSI: %d dBm  Version: %s\n", d.Name, d.ID, d.RSSI, d.RadioGeneration)
				}
			}
		case <-deadline:
			break loop
		}
	}

	if err := gw.StopScan(); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Printf("\nDone! %d devices found.\n", devices.Len())
}
