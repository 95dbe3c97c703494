package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

var (
	mpt2  = BLEAdvertisement{Address: "AA:BB:CC:00:11:22", Name: "MPT-II", RSSI: -48, Services: []string{PrinterServiceUUID}}
	pt210 = BLEAdvertisement{Address: "AA:BB:CC:00:11:33", Name: "PT-210", RSSI: -61, Services: []string{PrinterServiceUUID}}
)

func newBLE(t *testing.T, backend *fakeBLEBackend, cfg BLEConfig) *BLETransport {
	t.Helper()
	tr := NewBLETransport(backend, cfg, zap.NewNop())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestBLETimedDiscover(t *testing.T) {
	tr := newBLE(t, newFakeBLEBackend(mpt2, pt210), BLEConfig{})

	devices, err := tr.Discover(context.Background(), discovery.Filter{Duration: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "ble:aa:bb:cc:00:11:22", devices[0].ID)
	assert.Equal(t, "MPT-II", devices[0].Name)
	assert.Equal(t, int16(-48), devices[0].RSSI)
	assert.Equal(t, model.ConnectionTypeBLE, devices[0].ConnectionType)
	assert.False(t, tr.IsScanning())
}

func TestBLEDiscoverNameFilter(t *testing.T) {
	tr := newBLE(t, newFakeBLEBackend(mpt2, pt210), BLEConfig{NameFilter: "pt-2"})

	devices, err := tr.Discover(context.Background(), discovery.Filter{Duration: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "PT-210", devices[0].Name)
}

func TestBLEDiscoverNothingFound(t *testing.T) {
	tr := newBLE(t, newFakeBLEBackend(), BLEConfig{})

	devices, err := tr.Discover(context.Background(), discovery.Filter{Duration: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestBLEAdapterUnavailable(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	backend.enableErr = errors.New("bluetooth is powered off")
	tr := newBLE(t, backend, BLEConfig{})

	_, err := tr.Discover(context.Background(), discovery.Filter{Duration: 10 * time.Millisecond})
	assert.True(t, errors.Is(err, model.ErrAdapterUnavailable))

	assert.True(t, errors.Is(tr.StartDiscovery(discovery.Filter{}), model.ErrAdapterUnavailable))
	assert.False(t, tr.IsScanning())

	_, err = tr.Connect(context.Background(), mpt2.device())
	assert.True(t, errors.Is(err, model.ErrAdapterUnavailable))
}

func TestBLEScanFailure(t *testing.T) {
	backend := newFakeBLEBackend()
	backend.scanErr = errors.New("org.bluez.Error.InProgress")
	tr := newBLE(t, backend, BLEConfig{})

	_, err := tr.Discover(context.Background(), discovery.Filter{Duration: 10 * time.Millisecond})
	assert.True(t, errors.Is(err, model.ErrScanFailure))
}

func TestBLEBackgroundDiscovery(t *testing.T) {
	backend := newFakeBLEBackend(mpt2, pt210)
	tr := newBLE(t, backend, BLEConfig{})

	require.NoError(t, tr.StartDiscovery(discovery.Filter{}))
	require.NoError(t, tr.StartDiscovery(discovery.Filter{}))
	assert.True(t, tr.IsScanning())

	assert.Eventually(t, func() bool {
		devices, err := tr.Discover(context.Background(), discovery.Filter{})
		return err == nil && len(devices) == 2
	}, time.Second, 5*time.Millisecond)

	devices, err := tr.Discover(context.Background(), discovery.Filter{Name: "mpt"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "MPT-II", devices[0].Name)

	tr.StopDiscovery()
	assert.False(t, tr.IsScanning())
	assert.False(t, backend.isScanning())
	tr.StopDiscovery()
}

func TestBLEConnectAndChunkedWrite(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	tr := newBLE(t, backend, BLEConfig{ChunkSize: 4})

	conn, err := tr.Connect(context.Background(), mpt2.device())
	require.NoError(t, err)
	assert.Equal(t, model.StateConnected, conn.State)

	payload := []byte("0123456789")
	require.NoError(t, tr.Send(context.Background(), payload))

	writer := backend.peripherals[mpt2.Address].writer
	assert.Equal(t, [][]byte{[]byte("0123"), []byte("4567"), []byte("89")}, writer.chunks)
	assert.Equal(t, payload, writer.bytes())
	assert.Equal(t, 1, backend.peripherals[mpt2.Address].finds)
}

func TestBLEConnectIdempotent(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	tr := newBLE(t, backend, BLEConfig{})

	_, err := tr.Connect(context.Background(), mpt2.device())
	require.NoError(t, err)
	_, err = tr.Connect(context.Background(), mpt2.device())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.connects)
}

func TestBLEMissingCharacteristic(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	backend.missingChar = true
	tr := newBLE(t, backend, BLEConfig{})

	_, err := tr.Connect(context.Background(), mpt2.device())
	assert.True(t, errors.Is(err, model.ErrConnectFailure))
	assert.Equal(t, model.StateUnconnected, tr.State())
	assert.True(t, backend.peripherals[mpt2.Address].disconnected)
}

func TestBLEWriteFailureFailsConnection(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	tr := newBLE(t, backend, BLEConfig{})

	_, err := tr.Connect(context.Background(), mpt2.device())
	require.NoError(t, err)
	backend.peripherals[mpt2.Address].writer.err = errors.New("not connected")

	err = tr.Send(context.Background(), []byte("x"))
	assert.True(t, errors.Is(err, model.ErrWriteFailure))
	assert.Equal(t, model.StateFailed, tr.State())
}

func TestBLEDisconnectStopsScan(t *testing.T) {
	backend := newFakeBLEBackend(mpt2)
	tr := newBLE(t, backend, BLEConfig{})

	require.NoError(t, tr.StartDiscovery(discovery.Filter{}))
	_, err := tr.Connect(context.Background(), mpt2.device())
	require.NoError(t, err)

	require.NoError(t, tr.Disconnect(context.Background()))
	assert.False(t, tr.IsScanning())
	assert.False(t, backend.isScanning())
	assert.True(t, backend.peripherals[mpt2.Address].disconnected)
	assert.Equal(t, model.StateUnconnected, tr.State())
}

func TestParseBluetoothUUID(t *testing.T) {
	u, err := ParseBluetoothUUID("2af1")
	require.NoError(t, err)
	assert.Equal(t, PrinterWriteCharUUID, u.String())

	u, err = ParseBluetoothUUID("0x18F0")
	require.NoError(t, err)
	assert.Equal(t, PrinterServiceUUID, u.String())

	u, err = ParseBluetoothUUID(PrinterNotifyCharUUID)
	require.NoError(t, err)
	assert.Equal(t, PrinterNotifyCharUUID, u.String())

	_, err = ParseBluetoothUUID("zz")
	assert.Error(t, err)
}
