// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"fmt"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// ConnectPolicy decides what a second connect to a different device does
type ConnectPolicy string

const (
	// PolicyKeep ignores the new device and keeps the live connection
	PolicyKeep ConnectPolicy = "keep"
	// PolicyReplace disconnects the live device and connects the new one
	PolicyReplace ConnectPolicy = "replace"
)

// ParseConnectPolicy parses "keep" or "replace"; empty means keep
func ParseConnectPolicy(s string) (ConnectPolicy, error) {
	switch ConnectPolicy(s) {
	case "", PolicyKeep:
		return PolicyKeep, nil
	case PolicyReplace:
		return PolicyReplace, nil
	default:
		return "", fmt.Errorf("unknown connect policy: %q", s)
	}
}

// ErrTimeout marks a transfer that hit its deadline. Backends wrap it so
// endpoints can report the failure as retryable.
var ErrTimeout = errors.New("transfer timed out")

// Endpoint is a resolved write channel to a connected printer
type Endpoint interface {
	Write(ctx context.Context, data []byte) error
}

// Transport is the discover/connect/send lifecycle shared by every
// printer link
type Transport interface {
	discovery.DeviceScanner

	// Connect is a no-op for the device already connected
	Connect(ctx context.Context, device model.Device) (*model.Connection, error)
	// Disconnect is a no-op when nothing is connected
	Disconnect(ctx context.Context) error
	// OpenEndpoint resolves the write channel of the live connection
	OpenEndpoint(ctx context.Context) (Endpoint, error)
	Send(ctx context.Context, data []byte) error
	State() model.ConnectionState
	Connection() *model.Connection
	Close() error
}

// BackgroundScanner is implemented by transports that keep scanning
type BackgroundScanner interface {
	StartDiscovery(filter discovery.Filter) error
	StopDiscovery()
	IsScanning() bool
}

var (
	_ Transport         = (*USBTransport)(nil)
	_ Transport         = (*BLETransport)(nil)
	_ Transport         = (*BluetoothTransport)(nil)
	_ Transport         = (*TerminalTransport)(nil)
	_ BackgroundScanner = (*BLETransport)(nil)
)
