// internal/model/device.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionType represents how the printer is reached
type ConnectionType string

const (
	ConnectionTypeUSB       ConnectionType = "USB"
	ConnectionTypeBLE       ConnectionType = "BLE"
	ConnectionTypeBluetooth ConnectionType = "BLUETOOTH"
	ConnectionTypeTerminal  ConnectionType = "TERMINAL"
)

// ParseConnectionType accepts the lower or upper case transport name
func ParseConnectionType(s string) (ConnectionType, error) {
	switch ConnectionType(strings.ToUpper(strings.TrimSpace(s))) {
	case ConnectionTypeUSB:
		return ConnectionTypeUSB, nil
	case ConnectionTypeBLE:
		return ConnectionTypeBLE, nil
	case ConnectionTypeBluetooth, "CLASSIC", "RFCOMM":
		return ConnectionTypeBluetooth, nil
	case ConnectionTypeTerminal:
		return ConnectionTypeTerminal, nil
	default:
		return "", fmt.Errorf("unknown connection type: %q", s)
	}
}

// ConnectionState is the lifecycle state of a printer connection
type ConnectionState string

const (
	StateUnconnected ConnectionState = "UNCONNECTED"
	StateConnecting  ConnectionState = "CONNECTING"
	StateConnected   ConnectionState = "CONNECTED"
	StateFailed      ConnectionState = "FAILED"
)

// Device is a discovered printer. Handles are transient snapshots and only
// become live once a transport connects to them.
type Device struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	ConnectionType ConnectionType `json:"connection_type"`

	// USB
	VendorID     uint16 `json:"vendor_id,omitempty"`
	ProductID    uint16 `json:"product_id,omitempty"`
	Bus          int    `json:"bus,omitempty"`
	Address      int    `json:"address,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`

	// BLE
	MACAddress string   `json:"mac_address,omitempty"`
	Services   []string `json:"services,omitempty"`
	RSSI       int16    `json:"rssi,omitempty"`

	// Classic Bluetooth
	Port string `json:"port,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at"`
}

// Matches reports whether the device satisfies the given name substring,
// vendor id and service uuid. Zero values match anything.
func (d Device) Matches(name string, vendorID uint16, serviceUUID string) bool {
	if vendorID != 0 && d.VendorID != vendorID {
		return false
	}
	if name != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
		return false
	}
	if serviceUUID != "" {
		found := false
		for _, s := range d.Services {
			if strings.EqualFold(s, serviceUUID) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Connection is the live binding between a transport and one device
type Connection struct {
	ID          uuid.UUID       `json:"id"`
	Device      Device          `json:"device"`
	State       ConnectionState `json:"state"`
	ConnectedAt time.Time       `json:"connected_at"`
}

// NewConnection creates a connected record for the device
func NewConnection(device Device) *Connection {
	return &Connection{
		ID:          uuid.New(),
		Device:      device,
		State:       StateConnected,
		ConnectedAt: time.Now(),
	}
}
