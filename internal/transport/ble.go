// internal/transport/ble.go
package transport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

const (
	// PrinterServiceUUID is advertised by most BLE receipt printers
	PrinterServiceUUID = "000018f0-0000-1000-8000-00805f9b34fb"
	// PrinterWriteCharUUID accepts ESC/POS data
	PrinterWriteCharUUID = "00002af1-0000-1000-8000-00805f9b34fb"
	// PrinterNotifyCharUUID reports printer status on some models
	PrinterNotifyCharUUID = "00002af0-0000-1000-8000-00805f9b34fb"
)

// BLEAdvertisement is one scan result
type BLEAdvertisement struct {
	Address  string
	Name     string
	RSSI     int16
	Services []string
}

// BLEWriter is a GATT characteristic written without response
type BLEWriter interface {
	WriteWithoutResponse(p []byte) (int, error)
}

// BLEPeripheral is a connected GATT server
type BLEPeripheral interface {
	// FindWriter discovers the service and returns its characteristic.
	// A missing service or characteristic is an error.
	FindWriter(serviceUUID, charUUID string) (BLEWriter, error)
	Disconnect() error
}

// BLEBackend wraps the OS Bluetooth stack
type BLEBackend interface {
	Enable() error
	// Scan blocks until ctx is done or the scan fails. serviceUUIDs are
	// probed in every advertisement.
	Scan(ctx context.Context, serviceUUIDs []string, onResult func(BLEAdvertisement)) error
	Connect(ctx context.Context, address string) (BLEPeripheral, error)
}

// BLEConfig configures the BLE transport
type BLEConfig struct {
	ServiceUUID   string
	WriteCharUUID string
	NameFilter    string
	ScanTimeout   time.Duration
	ChunkSize     int
	Policy        ConnectPolicy
}

// BLETransport prints through a GATT write characteristic. Discovery can
// run in the background; each advertisement rebuilds the shared device
// set in one step.
type BLETransport struct {
	*session
	backend BLEBackend
	config  BLEConfig
	devices *discovery.DeviceSet

	scanMutex  sync.Mutex
	scanCancel context.CancelFunc
	scanDone   chan struct{}
}

// NewBLETransport creates a BLE transport over backend
func NewBLETransport(backend BLEBackend, config BLEConfig, logger *zap.Logger) *BLETransport {
	if config.ServiceUUID == "" {
		config.ServiceUUID = PrinterServiceUUID
	}
	if config.WriteCharUUID == "" {
		config.WriteCharUUID = PrinterWriteCharUUID
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 5 * time.Second
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 20
	}

	l := &bleLink{backend: backend, config: config}
	return &BLETransport{
		session: newSession(model.ConnectionTypeBLE, config.Policy, l, logger),
		backend: backend,
		config:  config,
		devices: discovery.NewDeviceSet(),
	}
}

// IsAvailable reports whether a Bluetooth backend is configured
func (t *BLETransport) IsAvailable() bool {
	return t.backend != nil
}

// StartDiscovery starts the background scan. It is a no-op while a scan
// is already running.
func (t *BLETransport) StartDiscovery(filter discovery.Filter) error {
	t.scanMutex.Lock()
	defer t.scanMutex.Unlock()

	if t.scanCancel != nil {
		return nil
	}
	if err := t.backend.Enable(); err != nil {
		return model.NewError(model.ErrAdapterUnavailable, model.ConnectionTypeBLE, "enable adapter", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.scanCancel = cancel
	t.scanDone = done

	go func() {
		defer close(done)
		if err := t.scan(ctx, filter); err != nil {
			t.logger.Error("Background scan stopped", zap.Error(err))
		}
		t.scanMutex.Lock()
		if t.scanDone == done {
			t.scanCancel = nil
			t.scanDone = nil
		}
		t.scanMutex.Unlock()
	}()

	t.logger.Info("Background scan started", zap.String("name_filter", t.nameFilter(filter)))
	return nil
}

// StopDiscovery stops the background scan and waits for it to exit
func (t *BLETransport) StopDiscovery() {
	t.scanMutex.Lock()
	cancel, done := t.scanCancel, t.scanDone
	t.scanCancel, t.scanDone = nil, nil
	t.scanMutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Info("Background scan stopped")
}

// IsScanning reports whether the background scan is running
func (t *BLETransport) IsScanning() bool {
	t.scanMutex.Lock()
	defer t.scanMutex.Unlock()
	return t.scanCancel != nil
}

// Discover returns the current device set. Without a background scan it
// first scans for filter.Duration (or the configured scan timeout).
func (t *BLETransport) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	if !t.IsScanning() {
		if err := t.backend.Enable(); err != nil {
			return nil, model.NewError(model.ErrAdapterUnavailable, model.ConnectionTypeBLE, "enable adapter", err)
		}

		duration := filter.Duration
		if duration <= 0 {
			duration = t.config.ScanTimeout
		}
		scanCtx, cancel := context.WithTimeout(ctx, duration)
		err := t.scan(scanCtx, filter)
		cancel()
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	devices, err := t.devices.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(devices), nil
}

// scan runs one scan until ctx is done. Every matching advertisement
// replaces the device set with everything seen so far in this scan.
func (t *BLETransport) scan(ctx context.Context, filter discovery.Filter) error {
	services := []string{t.config.ServiceUUID}
	if filter.ServiceUUID != "" && !strings.EqualFold(filter.ServiceUUID, t.config.ServiceUUID) {
		services = append(services, filter.ServiceUUID)
	}
	nameFilter := t.nameFilter(filter)

	seen := make(map[string]model.Device)
	var order []string
	t.devices.Clear()

	err := t.backend.Scan(ctx, services, func(adv BLEAdvertisement) {
		d := adv.device()
		if !d.Matches(nameFilter, 0, filter.ServiceUUID) {
			return
		}
		if _, ok := seen[d.ID]; !ok {
			order = append(order, d.ID)
		}
		seen[d.ID] = d

		snapshot := make([]model.Device, 0, len(order))
		for _, id := range order {
			snapshot = append(snapshot, seen[id])
		}
		t.devices.Replace(snapshot)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.ErrScanFailure, model.ConnectionTypeBLE, "scan", err)
	}
	return nil
}

func (t *BLETransport) nameFilter(filter discovery.Filter) string {
	if filter.Name != "" {
		return filter.Name
	}
	return t.config.NameFilter
}

// Disconnect stops the background scan and drops the connection
func (t *BLETransport) Disconnect(ctx context.Context) error {
	t.StopDiscovery()
	return t.session.Disconnect(ctx)
}

// Close disconnects and stops the device set
func (t *BLETransport) Close() error {
	err := t.Disconnect(context.Background())
	t.devices.Close()
	return err
}

func (adv BLEAdvertisement) device() model.Device {
	name := adv.Name
	if name == "" {
		name = adv.Address
	}
	return model.Device{
		ID:             "ble:" + strings.ToLower(adv.Address),
		Name:           name,
		ConnectionType: model.ConnectionTypeBLE,
		MACAddress:     adv.Address,
		Services:       adv.Services,
		RSSI:           adv.RSSI,
		DiscoveredAt:   time.Now(),
	}
}

type bleLink struct {
	backend    BLEBackend
	config     BLEConfig
	peripheral BLEPeripheral
	writer     BLEWriter
}

func (l *bleLink) open(ctx context.Context, device model.Device) error {
	if err := l.backend.Enable(); err != nil {
		return model.NewError(model.ErrAdapterUnavailable, model.ConnectionTypeBLE, "enable adapter", err)
	}
	address := device.MACAddress
	if address == "" {
		address = strings.TrimPrefix(device.ID, "ble:")
	}
	peripheral, err := l.backend.Connect(ctx, address)
	if err != nil {
		return err
	}
	l.peripheral = peripheral
	l.writer = nil
	return nil
}

// verify runs GATT discovery; a peripheral that answers it is connected
func (l *bleLink) verify(ctx context.Context) error {
	if l.peripheral == nil {
		return errors.New("no peripheral")
	}
	writer, err := l.peripheral.FindWriter(l.config.ServiceUUID, l.config.WriteCharUUID)
	if err != nil {
		return err
	}
	l.writer = writer
	return nil
}

func (l *bleLink) endpoint(ctx context.Context) (Endpoint, error) {
	if l.writer == nil {
		if err := l.verify(ctx); err != nil {
			return nil, err
		}
	}
	return &bleEndpoint{writer: l.writer, chunkSize: l.config.ChunkSize}, nil
}

func (l *bleLink) close() error {
	if l.peripheral == nil {
		return nil
	}
	err := l.peripheral.Disconnect()
	l.peripheral = nil
	l.writer = nil
	return err
}

// bleEndpoint splits writes to fit the negotiated payload size. Writes
// are unacknowledged, so a nil error only means the stack accepted them.
type bleEndpoint struct {
	writer    BLEWriter
	chunkSize int
}

func (e *bleEndpoint) Write(ctx context.Context, data []byte) error {
	for start := 0; start < len(data); start += e.chunkSize {
		if err := ctx.Err(); err != nil {
			return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBLE, "write characteristic", err)
		}
		end := start + e.chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := e.writer.WriteWithoutResponse(data[start:end]); err != nil {
			return model.NewError(model.ErrWriteFailure, model.ConnectionTypeBLE, "write characteristic", err)
		}
	}
	return nil
}
