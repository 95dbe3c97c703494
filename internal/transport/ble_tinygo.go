// internal/transport/ble_tinygo.go
package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"printer-service/internal/model"
)

// TinygoBackend drives the host adapter through tinygo.org/x/bluetooth
type TinygoBackend struct {
	adapter *bluetooth.Adapter
	logger  *zap.Logger

	enableOnce sync.Once
	enableErr  error

	mutex     sync.Mutex
	addresses map[string]bluetooth.Address
}

// NewTinygoBackend uses the default host adapter
func NewTinygoBackend(logger *zap.Logger) *TinygoBackend {
	return &TinygoBackend{
		adapter:   bluetooth.DefaultAdapter,
		logger:    logger.With(zap.String("backend", "tinygo-bluetooth")),
		addresses: make(map[string]bluetooth.Address),
	}
}

// Enable powers the adapter once
func (b *TinygoBackend) Enable() error {
	b.enableOnce.Do(func() {
		b.enableErr = b.adapter.Enable()
	})
	return b.enableErr
}

// Scan reports advertisements until ctx is done
func (b *TinygoBackend) Scan(ctx context.Context, serviceUUIDs []string, onResult func(BLEAdvertisement)) error {
	probes := make([]bluetooth.UUID, 0, len(serviceUUIDs))
	for _, s := range serviceUUIDs {
		u, err := ParseBluetoothUUID(s)
		if err != nil {
			return err
		}
		probes = append(probes, u)
	}

	return runScan(ctx, b.adapter, b.logger, func(result bluetooth.ScanResult) {
		address := result.Address.String()

		b.mutex.Lock()
		b.addresses[strings.ToLower(address)] = result.Address
		b.mutex.Unlock()

		adv := BLEAdvertisement{
			Address: address,
			Name:    result.LocalName(),
			RSSI:    result.RSSI,
		}
		for i, u := range probes {
			if result.HasServiceUUID(u) {
				adv.Services = append(adv.Services, strings.ToLower(serviceUUIDs[i]))
			}
		}
		onResult(adv)
	})
}

const stopScanRetry = 50 * time.Millisecond

// adapterScanner is the scanning half of *bluetooth.Adapter
type adapterScanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// runScan blocks in adapter.Scan until ctx is done. StopScan fails when it
// lands before the scan has started, so it is retried until Scan returns.
func runScan(ctx context.Context, adapter adapterScanner, logger *zap.Logger, onResult func(bluetooth.ScanResult)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	returned := make(chan struct{})
	defer close(returned)
	go func() {
		select {
		case <-ctx.Done():
		case <-returned:
			return
		}
		for {
			err := adapter.StopScan()
			if err == nil {
				return
			}
			logger.Debug("Stop scan failed, retrying", zap.Error(err))
			select {
			case <-returned:
				return
			case <-time.After(stopScanRetry):
			}
		}
	}()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if ctx.Err() != nil {
			_ = adapter.StopScan()
			return
		}
		onResult(result)
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Connect connects to an address seen by an earlier scan
func (b *TinygoBackend) Connect(ctx context.Context, address string) (BLEPeripheral, error) {
	b.mutex.Lock()
	addr, ok := b.addresses[strings.ToLower(address)]
	b.mutex.Unlock()
	if !ok {
		return nil, model.NewError(model.ErrDeviceNotFound, model.ConnectionTypeBLE, "connect",
			fmt.Errorf("address %s has not been seen by a scan", address))
	}

	device, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	return &tinygoPeripheral{device: &device}, nil
}

type gattDevice interface {
	DiscoverServices(uuids []bluetooth.UUID) ([]bluetooth.DeviceService, error)
	Disconnect() error
}

type tinygoPeripheral struct {
	device gattDevice
}

func (p *tinygoPeripheral) FindWriter(serviceUUID, charUUID string) (BLEWriter, error) {
	svc, err := ParseBluetoothUUID(serviceUUID)
	if err != nil {
		return nil, err
	}
	chr, err := ParseBluetoothUUID(charUUID)
	if err != nil {
		return nil, err
	}

	services, err := p.device.DiscoverServices([]bluetooth.UUID{svc})
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("service %s not found", serviceUUID)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{chr})
	if err != nil {
		return nil, fmt.Errorf("failed to discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("write characteristic %s not found", charUUID)
	}
	return &chars[0], nil
}

func (p *tinygoPeripheral) Disconnect() error {
	return p.device.Disconnect()
}

// ParseBluetoothUUID accepts a full 128-bit UUID or a 16-bit short form
// such as "2af1" or "0x2af1"
func ParseBluetoothUUID(s string) (bluetooth.UUID, error) {
	short := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(short) <= 4 {
		v, err := strconv.ParseUint(short, 16, 16)
		if err != nil {
			return bluetooth.UUID{}, fmt.Errorf("invalid 16-bit uuid %q: %w", s, err)
		}
		return bluetooth.New16BitUUID(uint16(v)), nil
	}
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	return u, nil
}
