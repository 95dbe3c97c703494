// internal/transport/usb_gousb.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/config"
	usbdb "printer-service/internal/discovery/usb"
	"printer-service/internal/model"
)

// GousbBackend talks to libusb through gousb
type GousbBackend struct {
	logger    *zap.Logger
	known     *usbdb.DeviceDatabase
	iface     int
	debug     int
	mutex     sync.Mutex
	ctx       *gousb.Context
	initError error
}

// NewGousbBackend creates a backend. The libusb context is created on
// first use.
func NewGousbBackend(iface, debug int, products []config.USBProduct, logger *zap.Logger) *GousbBackend {
	known := usbdb.NewDeviceDatabase()
	for _, p := range products {
		known.Register(gousb.ID(p.VendorID), gousb.ID(p.ProductID), p.Vendor, p.Model)
	}
	return &GousbBackend{
		logger: logger.With(zap.String("backend", "gousb")),
		known:  known,
		iface:  iface,
		debug:  debug,
	}
}

func (b *GousbBackend) usbContext() (ctx *gousb.Context, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.ctx != nil {
		return b.ctx, nil
	}
	if b.initError != nil {
		return nil, b.initError
	}

	// gousb panics when libusb cannot initialise
	defer func() {
		if r := recover(); r != nil {
			b.initError = model.NewError(model.ErrAdapterUnavailable, model.ConnectionTypeUSB, "init",
				fmt.Errorf("libusb init: %v", r))
			ctx, err = nil, b.initError
		}
	}()

	b.ctx = gousb.NewContext()
	b.ctx.Debug(b.debug)
	return b.ctx, nil
}

// Enumerate lists attached devices without opening them
func (b *GousbBackend) Enumerate(ctx context.Context) ([]USBDeviceInfo, error) {
	usbCtx, err := b.usbContext()
	if err != nil {
		return nil, err
	}

	var infos []USBDeviceInfo
	_, err = usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		infos = append(infos, USBDeviceInfo{
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Bus:       desc.Bus,
			Address:   desc.Address,
			Name:      b.known.DisplayName(desc.Vendor, desc.Product),
			IsPrinter: isPrinterClass(desc) || b.known.IsKnownVendor(desc.Vendor),
		})
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	return infos, nil
}

func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// Open opens the device, claims the printer interface and finds its bulk
// OUT endpoint
func (b *GousbBackend) Open(ctx context.Context, device model.Device) (USBHandle, error) {
	usbCtx, err := b.usbContext()
	if err != nil {
		return nil, err
	}

	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) != device.VendorID {
			return false
		}
		if device.ProductID != 0 && uint16(desc.Product) != device.ProductID {
			return false
		}
		if device.Bus != 0 && (desc.Bus != device.Bus || desc.Address != device.Address) {
			return false
		}
		return true
	})
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("failed to open USB device: %w", err)
		}
		return nil, model.NewError(model.ErrDeviceNotFound, model.ConnectionTypeUSB, "connect",
			fmt.Errorf("no device %04x:%04x", device.VendorID, device.ProductID))
	}
	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}

	if err := dev.SetAutoDetach(true); err != nil {
		b.logger.Warn("Failed to enable kernel driver auto-detach", zap.Error(err))
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to read active config: %w", err)
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to claim config %d: %w", cfgNum, err)
	}
	intf, err := cfg.Interface(b.iface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, fmt.Errorf("failed to claim interface %d: %w", b.iface, err)
	}

	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			out, err = intf.OutEndpoint(ep.Number)
			break
		}
	}
	if out == nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		if err == nil {
			err = errors.New("interface has no bulk OUT endpoint")
		}
		return nil, fmt.Errorf("failed to get out endpoint: %w", err)
	}

	b.logger.Info("USB printer opened",
		zap.String("vendor_id", fmt.Sprintf("0x%04X", device.VendorID)),
		zap.String("product_id", fmt.Sprintf("0x%04X", device.ProductID)),
		zap.Int("interface", b.iface),
	)

	return &gousbHandle{device: dev, config: cfg, intf: intf, out: out}, nil
}

// Available initialises libusb if needed and reports whether it succeeded
func (b *GousbBackend) Available() bool {
	_, err := b.usbContext()
	return err == nil
}

// Close releases the libusb context
func (b *GousbBackend) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Close()
	b.ctx = nil
	return err
}

type gousbHandle struct {
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	out    *gousb.OutEndpoint
}

func (h *gousbHandle) Write(ctx context.Context, data []byte) (int, error) {
	n, err := h.out.WriteContext(ctx, data)
	if err != nil && (errors.Is(err, gousb.TransferTimedOut) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}

func (h *gousbHandle) Ping() error {
	_, err := h.device.ActiveConfigNum()
	return err
}

func (h *gousbHandle) Close() error {
	h.intf.Close()
	if err := h.config.Close(); err != nil {
		h.device.Close()
		return err
	}
	return h.device.Close()
}
