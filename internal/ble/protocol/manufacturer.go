// internal/ble/protocol/manufacturer.go
package protocol

import "encoding/binary"

// AppleCompanyID is the Bluetooth SIG company identifier assigned to Apple.
const AppleCompanyID uint16 = 0x004C

// Radio generation labels shown for a discovered peripheral.
const (
	GenerationBLE     = "BLE"
	GenerationUnknown = "Unknown"
)

// CompanyID reads the company identifier from raw manufacturer-specific
// advertisement data. The identifier is the first two bytes, little-endian.
func CompanyID(raw []byte) (uint16, bool) {
	if len(raw) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(raw[:2]), true
}

// RadioGeneration classifies a peripheral from its manufacturer data.
// Only Apple's identifier is recognised; everything else is "Unknown".
func RadioGeneration(raw []byte) string {
	if id, ok := CompanyID(raw); ok && id == AppleCompanyID {
		return GenerationBLE
	}
	return GenerationUnknown
}

// EncodeManufacturerData builds raw manufacturer data from an already parsed
// company identifier and payload, the inverse of CompanyID.
func EncodeManufacturerData(companyID uint16, data []byte) []byte {
	raw := make([]byte, 2, 2+len(data))
	binary.LittleEndian.PutUint16(raw, companyID)
	return append(raw, data...)
}
