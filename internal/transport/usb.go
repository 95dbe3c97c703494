// internal/transport/usb.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// USBDeviceInfo describes one attached USB device
type USBDeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	Bus          int
	Address      int
	Name         string
	Manufacturer string
	SerialNumber string
	IsPrinter    bool
}

// USBHandle is an opened device with a claimed printer interface
type USBHandle interface {
	Write(ctx context.Context, data []byte) (int, error)
	// Ping re-queries the device to confirm it is still attached
	Ping() error
	Close() error
}

// USBBackend wraps the OS USB stack
type USBBackend interface {
	Enumerate(ctx context.Context) ([]USBDeviceInfo, error)
	Open(ctx context.Context, device model.Device) (USBHandle, error)
	// Available reports whether the host USB stack initialised
	Available() bool
	Close() error
}

// USBConfig configures the USB transport
type USBConfig struct {
	VendorID uint16
	Timeout  time.Duration
	Policy   ConnectPolicy
}

var errNoUSBBackend = model.NewError(model.ErrAdapterUnavailable, model.ConnectionTypeUSB, "init", nil)

// USBTransport prints over a USB bulk OUT endpoint
type USBTransport struct {
	*session
	backend USBBackend
	config  USBConfig
}

// NewUSBTransport creates a USB transport over backend
func NewUSBTransport(backend USBBackend, config USBConfig, logger *zap.Logger) *USBTransport {
	if config.Timeout <= 0 {
		config.Timeout = time.Second
	}
	l := &usbLink{backend: backend, timeout: config.Timeout}
	return &USBTransport{
		session: newSession(model.ConnectionTypeUSB, config.Policy, l, logger),
		backend: backend,
		config:  config,
	}
}

// IsAvailable reports whether the USB stack can be used
func (t *USBTransport) IsAvailable() bool {
	return t.backend != nil && t.backend.Available()
}

// Discover enumerates attached printers once. A device is listed when it
// exposes the printer class or matches the requested vendor id.
func (t *USBTransport) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	if t.backend == nil {
		return nil, errNoUSBBackend
	}
	if filter.VendorID == 0 {
		filter.VendorID = t.config.VendorID
	}

	infos, err := t.backend.Enumerate(ctx)
	if err != nil {
		if model.KindOf(err) != "" {
			return nil, err
		}
		return nil, model.NewError(model.ErrScanFailure, model.ConnectionTypeUSB, "discover", err)
	}

	devices := make([]model.Device, 0, len(infos))
	for _, info := range infos {
		if !info.IsPrinter && (filter.VendorID == 0 || info.VendorID != filter.VendorID) {
			continue
		}
		d := info.device()
		if filter.Match(d) {
			devices = append(devices, d)
		}
	}

	t.logger.Debug("USB discovery completed", zap.Int("devices_found", len(devices)))
	return devices, nil
}

// Close disconnects and releases the USB context
func (t *USBTransport) Close() error {
	if err := t.Disconnect(context.Background()); err != nil {
		t.logger.Warn("Disconnect on close failed", zap.Error(err))
	}
	if t.backend == nil {
		return nil
	}
	return t.backend.Close()
}

func (info USBDeviceInfo) device() model.Device {
	return model.Device{
		ID:             USBDeviceID(info.Bus, info.Address, info.VendorID, info.ProductID),
		Name:           info.Name,
		ConnectionType: model.ConnectionTypeUSB,
		VendorID:       info.VendorID,
		ProductID:      info.ProductID,
		Bus:            info.Bus,
		Address:        info.Address,
		Manufacturer:   info.Manufacturer,
		SerialNumber:   info.SerialNumber,
		DiscoveredAt:   time.Now(),
	}
}

// USBDeviceID builds the stable id of a USB device
func USBDeviceID(bus, address int, vendorID, productID uint16) string {
	return fmt.Sprintf("usb:%d:%d:%04x:%04x", bus, address, vendorID, productID)
}

type usbLink struct {
	backend USBBackend
	timeout time.Duration
	handle  USBHandle
}

func (l *usbLink) open(ctx context.Context, device model.Device) error {
	if l.backend == nil {
		return errNoUSBBackend
	}
	handle, err := l.backend.Open(ctx, device)
	if err != nil {
		return err
	}
	l.handle = handle
	return nil
}

func (l *usbLink) verify(ctx context.Context) error {
	if l.handle == nil {
		return errors.New("no device handle")
	}
	return l.handle.Ping()
}

func (l *usbLink) endpoint(ctx context.Context) (Endpoint, error) {
	if l.handle == nil {
		return nil, errors.New("no device handle")
	}
	return &usbEndpoint{handle: l.handle, timeout: l.timeout}, nil
}

func (l *usbLink) close() error {
	if l.handle == nil {
		return nil
	}
	err := l.handle.Close()
	l.handle = nil
	return err
}

// usbEndpoint performs bulk writes bounded by timeout
type usbEndpoint struct {
	handle  USBHandle
	timeout time.Duration
}

func (e *usbEndpoint) Write(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	n, err := e.handle.Write(writeCtx, data)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(writeCtx.Err(), context.DeadlineExceeded) {
			return model.NewRetryableError(model.ErrWriteFailure, model.ConnectionTypeUSB, "bulk write", err)
		}
		return model.NewError(model.ErrWriteFailure, model.ConnectionTypeUSB, "bulk write", err)
	}
	if n != len(data) {
		return model.NewError(model.ErrWriteFailure, model.ConnectionTypeUSB, "bulk write",
			fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}
	return nil
}
