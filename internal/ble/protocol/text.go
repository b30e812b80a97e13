// internal/ble/protocol/text.go
package protocol

import (
	"fmt"
	"unicode/utf8"
)

// NotUTF8Message replaces a notification payload that is not valid UTF-8.
const NotUTF8Message = "Received data is not UTF-8 encoded"

// DecodeText interprets a notification payload as UTF-8 text.
// ok is false when the payload contains invalid UTF-8.
func DecodeText(b []byte) (text string, ok bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// HexDump renders b as space separated upper-case hex pairs, e.g. "DE AD BE EF".
func HexDump(b []byte) string {
	return fmt.Sprintf("% X", b)
}
