// internal/transport/bluetooth.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// SerialPortInfo describes one serial port known to the OS
type SerialPortInfo struct {
	Name         string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// SerialPort is an open RFCOMM channel
type SerialPort interface {
	io.Writer
	Drain() error
	// CheckLine queries the modem lines; an error means the link is down
	CheckLine() error
	Close() error
}

// SerialBackend wraps OS serial port enumeration and access
type SerialBackend interface {
	ListPorts() ([]SerialPortInfo, error)
	Open(name string, baudRate int) (SerialPort, error)
}

// BluetoothConfig configures the classic Bluetooth transport
type BluetoothConfig struct {
	DeviceName   string
	PortPatterns []string
	BaudRate     int
	Policy       ConnectPolicy
}

// BluetoothTransport prints to classic Bluetooth printers bound to an
// RFCOMM serial port
type BluetoothTransport struct {
	*session
	backend SerialBackend
	config  BluetoothConfig
}

// NewBluetoothTransport creates a classic Bluetooth transport
func NewBluetoothTransport(backend SerialBackend, config BluetoothConfig, logger *zap.Logger) *BluetoothTransport {
	if config.BaudRate <= 0 {
		config.BaudRate = 9600
	}
	if len(config.PortPatterns) == 0 {
		config.PortPatterns = []string{"rfcomm", "bluetooth", "bthenum", "tty.BT"}
	}
	l := &serialLink{backend: backend, baudRate: config.BaudRate}
	return &BluetoothTransport{
		session: newSession(model.ConnectionTypeBluetooth, config.Policy, l, logger),
		backend: backend,
		config:  config,
	}
}

// IsAvailable reports whether a serial backend is configured
func (t *BluetoothTransport) IsAvailable() bool {
	return t.backend != nil
}

// Discover lists serial ports that look like Bluetooth links
func (t *BluetoothTransport) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	ports, err := t.backend.ListPorts()
	if err != nil {
		return nil, model.NewError(model.ErrScanFailure, model.ConnectionTypeBluetooth, "discover", err)
	}

	if filter.Name == "" {
		filter.Name = t.config.DeviceName
	}

	devices := make([]model.Device, 0, len(ports))
	for _, p := range ports {
		if !t.isBluetoothPort(p) {
			continue
		}
		d := p.device()
		rest := filter
		rest.Name = ""
		if !rest.Match(d) {
			continue
		}
		if filter.Name != "" && !containsFold(d.Name, filter.Name) && !containsFold(p.Name, filter.Name) {
			continue
		}
		devices = append(devices, d)
	}

	t.logger.Debug("Bluetooth serial discovery completed", zap.Int("devices_found", len(devices)))
	return devices, nil
}

func (t *BluetoothTransport) isBluetoothPort(p SerialPortInfo) bool {
	for _, pattern := range t.config.PortPatterns {
		if containsFold(p.Name, pattern) || containsFold(p.Product, pattern) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Close disconnects the port
func (t *BluetoothTransport) Close() error {
	return t.Disconnect(context.Background())
}

func (p SerialPortInfo) device() model.Device {
	name := p.Product
	if name == "" {
		name = p.Name
	}
	return model.Device{
		ID:             "bt:" + p.Name,
		Name:           name,
		ConnectionType: model.ConnectionTypeBluetooth,
		Port:           p.Name,
		SerialNumber:   p.SerialNumber,
		DiscoveredAt:   time.Now(),
	}
}

type serialLink struct {
	backend  SerialBackend
	baudRate int
	port     SerialPort
}

func (l *serialLink) open(ctx context.Context, device model.Device) error {
	name := device.Port
	if name == "" {
		name = strings.TrimPrefix(device.ID, "bt:")
	}
	if name == "" {
		return model.NewError(model.ErrDeviceNotFound, model.ConnectionTypeBluetooth, "connect",
			errors.New("device has no serial port"))
	}
	port, err := l.backend.Open(name, l.baudRate)
	if err != nil {
		return fmt.Errorf("failed to open port %s: %w", name, err)
	}
	l.port = port
	return nil
}

func (l *serialLink) verify(ctx context.Context) error {
	if l.port == nil {
		return errors.New("port not open")
	}
	return l.port.CheckLine()
}

func (l *serialLink) endpoint(ctx context.Context) (Endpoint, error) {
	if l.port == nil {
		return nil, errors.New("port not open")
	}
	return &serialEndpoint{port: l.port}, nil
}

func (l *serialLink) close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

type serialEndpoint struct {
	port SerialPort
}

func (e *serialEndpoint) Write(ctx context.Context, data []byte) error {
	for written := 0; written < len(data); {
		if err := ctx.Err(); err != nil {
			return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBluetooth, "write", err)
		}
		n, err := e.port.Write(data[written:])
		if err != nil {
			return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBluetooth, "write", err)
		}
		if n == 0 {
			return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBluetooth, "write",
				fmt.Errorf("port accepted 0 of %d remaining bytes", len(data)-written))
		}
		written += n
	}
	if err := e.port.Drain(); err != nil {
		return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBluetooth, "drain", err)
	}
	return nil
}
