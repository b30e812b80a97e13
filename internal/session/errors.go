package session

import "fmt"

// FailureKind classifies an asynchronous failure reported by the gateway.
type FailureKind int

const (
	ConnectFailed FailureKind = iota + 1
	ServiceDiscoveryFailed
	CharacteristicDiscoveryFailed
	NotifyUpdateFailed
	DisconnectedWithError
	AdapterUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case ConnectFailed:
		return "connect_failed"
	case ServiceDiscoveryFailed:
		return "service_discovery_failed"
	case CharacteristicDiscoveryFailed:
		return "characteristic_discovery_failed"
	case NotifyUpdateFailed:
		return "notify_update_failed"
	case DisconnectedWithError:
		return "disconnected_with_error"
	case AdapterUnavailable:
		return "adapter_unavailable"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure is a terminal failure of one operation against one peripheral.
// None are retried.
type Failure struct {
	Kind         FailureKind
	PeripheralID string
	Err          error
}

func (f *Failure) Error() string {
	if f.PeripheralID == "" {
		return fmt.Sprintf("session: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("session: %s on %s: %v", f.Kind, f.PeripheralID, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ErrorState is the user-facing error channel. Only connect failures and an
// unavailable adapter are surfaced here.
type ErrorState struct {
	Present bool
	Message string
}
