package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"printer-service/internal/model"
)

type fakeUSBHandle struct {
	mutex    sync.Mutex
	written  bytes.Buffer
	writeErr error
	short    bool
	pingErr  error
	closed   bool
}

func (h *fakeUSBHandle) Write(ctx context.Context, data []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.writeErr != nil {
		return 0, h.writeErr
	}
	if h.short {
		return len(data) / 2, nil
	}
	h.written.Write(data)
	return len(data), nil
}

func (h *fakeUSBHandle) Ping() error  { return h.pingErr }
func (h *fakeUSBHandle) Close() error { h.closed = true; return nil }

type fakeUSBBackend struct {
	devices []USBDeviceInfo
	enumErr error
	openErr error
	handles map[string]*fakeUSBHandle
	opens   int
	pingErr error
	closed  bool
	noStack bool
}

func newFakeUSBBackend(devices ...USBDeviceInfo) *fakeUSBBackend {
	return &fakeUSBBackend{devices: devices, handles: make(map[string]*fakeUSBHandle)}
}

func (b *fakeUSBBackend) Enumerate(ctx context.Context) ([]USBDeviceInfo, error) {
	return b.devices, b.enumErr
}

func (b *fakeUSBBackend) Open(ctx context.Context, device model.Device) (USBHandle, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	h := &fakeUSBHandle{pingErr: b.pingErr}
	b.handles[device.ID] = h
	return h, nil
}

func (b *fakeUSBBackend) Available() bool { return !b.noStack }
func (b *fakeUSBBackend) Close() error    { b.closed = true; return nil }

type fakeWriter struct {
	mutex  sync.Mutex
	chunks [][]byte
	err    error
}

func (w *fakeWriter) WriteWithoutResponse(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.chunks = append(w.chunks, append([]byte(nil), p...))
	return len(p), nil
}

func (w *fakeWriter) bytes() []byte {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return bytes.Join(w.chunks, nil)
}

type fakePeripheral struct {
	writer       *fakeWriter
	missing      bool
	finds        int
	disconnected bool
}

func (p *fakePeripheral) FindWriter(serviceUUID, charUUID string) (BLEWriter, error) {
	p.finds++
	if p.missing {
		return nil, errors.New("write characteristic not found")
	}
	return p.writer, nil
}

func (p *fakePeripheral) Disconnect() error { p.disconnected = true; return nil }

type fakeBLEBackend struct {
	mutex       sync.Mutex
	enableErr   error
	scanErr     error
	adverts     []BLEAdvertisement
	scanning    bool
	connects    int
	peripherals map[string]*fakePeripheral
	missingChar bool
}

func newFakeBLEBackend(adverts ...BLEAdvertisement) *fakeBLEBackend {
	return &fakeBLEBackend{adverts: adverts, peripherals: make(map[string]*fakePeripheral)}
}

func (b *fakeBLEBackend) Enable() error { return b.enableErr }

func (b *fakeBLEBackend) Scan(ctx context.Context, serviceUUIDs []string, onResult func(BLEAdvertisement)) error {
	if b.scanErr != nil {
		return b.scanErr
	}
	b.mutex.Lock()
	b.scanning = true
	adverts := append([]BLEAdvertisement(nil), b.adverts...)
	b.mutex.Unlock()

	for _, adv := range adverts {
		onResult(adv)
	}
	<-ctx.Done()

	b.mutex.Lock()
	b.scanning = false
	b.mutex.Unlock()
	return ctx.Err()
}

func (b *fakeBLEBackend) isScanning() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.scanning
}

func (b *fakeBLEBackend) Connect(ctx context.Context, address string) (BLEPeripheral, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.connects++
	p := &fakePeripheral{writer: &fakeWriter{}, missing: b.missingChar}
	b.peripherals[address] = p
	return p, nil
}

type fakeSerialPort struct {
	written  bytes.Buffer
	lineErr  error
	writeErr error
	drained  int
	closed   bool
}

func (p *fakeSerialPort) Write(data []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	// accept at most 4 bytes per call
	if len(data) > 4 {
		data = data[:4]
	}
	return p.written.Write(data)
}

func (p *fakeSerialPort) Drain() error     { p.drained++; return nil }
func (p *fakeSerialPort) CheckLine() error { return p.lineErr }
func (p *fakeSerialPort) Close() error     { p.closed = true; return nil }

type fakeSerialBackend struct {
	ports   []SerialPortInfo
	opened  map[string]*fakeSerialPort
	lineErr error
}

func (b *fakeSerialBackend) ListPorts() ([]SerialPortInfo, error) { return b.ports, nil }

func (b *fakeSerialBackend) Open(name string, baudRate int) (SerialPort, error) {
	if b.opened == nil {
		b.opened = make(map[string]*fakeSerialPort)
	}
	p := &fakeSerialPort{lineErr: b.lineErr}
	b.opened[name] = p
	return p, nil
}
