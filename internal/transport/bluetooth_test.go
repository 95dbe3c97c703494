package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

func newSerialBackend() *fakeSerialBackend {
	return &fakeSerialBackend{ports: []SerialPortInfo{
		{Name: "/dev/rfcomm0", Product: "InnerPrinter"},
		{Name: "/dev/ttyUSB0", Product: "CP2102 USB to UART", IsUSB: true},
		{Name: "COM5", Product: "Standard Serial over Bluetooth link"},
	}}
}

func TestBluetoothDiscoverByPortPattern(t *testing.T) {
	tr := NewBluetoothTransport(newSerialBackend(), BluetoothConfig{}, zap.NewNop())

	devices, err := tr.Discover(context.Background(), discovery.Filter{})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "bt:/dev/rfcomm0", devices[0].ID)
	assert.Equal(t, "InnerPrinter", devices[0].Name)
	assert.Equal(t, "/dev/rfcomm0", devices[0].Port)
	assert.Equal(t, "bt:COM5", devices[1].ID)
}

func TestBluetoothDiscoverByName(t *testing.T) {
	tr := NewBluetoothTransport(newSerialBackend(), BluetoothConfig{DeviceName: "innerprinter"}, zap.NewNop())

	devices, err := tr.Discover(context.Background(), discovery.Filter{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/rfcomm0", devices[0].Port)

	// the port name counts as a name match too
	devices, err = tr.Discover(context.Background(), discovery.Filter{Name: "com5"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "COM5", devices[0].Port)
}

func TestBluetoothWriteLoopDrains(t *testing.T) {
	backend := newSerialBackend()
	tr := NewBluetoothTransport(backend, BluetoothConfig{BaudRate: 115200}, zap.NewNop())

	devices, err := tr.Discover(context.Background(), discovery.Filter{})
	require.NoError(t, err)
	_, err = tr.Connect(context.Background(), devices[0])
	require.NoError(t, err)

	payload := []byte{0x1B, 0x40, 'H', 'E', 'L', 'L', 'O', 0x0A, 0x1D, 0x56, 0x00}
	require.NoError(t, tr.Send(context.Background(), payload))

	port := backend.opened["/dev/rfcomm0"]
	assert.Equal(t, payload, port.written.Bytes())
	assert.Equal(t, 1, port.drained)

	require.NoError(t, tr.Disconnect(context.Background()))
	assert.True(t, port.closed)
}

func TestBluetoothLineDown(t *testing.T) {
	backend := newSerialBackend()
	backend.lineErr = errors.New("input/output error")
	tr := NewBluetoothTransport(backend, BluetoothConfig{}, zap.NewNop())

	_, err := tr.Connect(context.Background(), model.Device{ID: "bt:/dev/rfcomm0", Port: "/dev/rfcomm0"})
	assert.True(t, errors.Is(err, model.ErrConnectFailure))
	assert.Equal(t, model.StateUnconnected, tr.State())
	assert.True(t, backend.opened["/dev/rfcomm0"].closed)
}

func TestBluetoothConnectWithoutPort(t *testing.T) {
	tr := NewBluetoothTransport(newSerialBackend(), BluetoothConfig{}, zap.NewNop())

	_, err := tr.Connect(context.Background(), model.Device{ID: "bt:"})
	assert.True(t, errors.Is(err, model.ErrDeviceNotFound))
}

func TestBluetoothWriteError(t *testing.T) {
	backend := newSerialBackend()
	tr := NewBluetoothTransport(backend, BluetoothConfig{}, zap.NewNop())

	_, err := tr.Connect(context.Background(), model.Device{ID: "bt:COM5", Port: "COM5"})
	require.NoError(t, err)
	backend.opened["COM5"].writeErr = errors.New("write: broken pipe")

	err = tr.Send(context.Background(), []byte("x"))
	assert.True(t, errors.Is(err, model.ErrWriteFailure))
	assert.Equal(t, model.StateFailed, tr.State())
}
