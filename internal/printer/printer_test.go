package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/escpos"
	"printer-service/internal/model"
	"printer-service/internal/transport"
)

type fakeEndpoint struct {
	t *fakeTransport
}

func (e *fakeEndpoint) Write(ctx context.Context, data []byte) error {
	e.t.mutex.Lock()
	defer e.t.mutex.Unlock()
	if e.t.writeErr != nil {
		return e.t.writeErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	e.t.written = append(e.t.written, data...)
	return nil
}

type fakeTransport struct {
	kind     model.ConnectionType
	devices  []model.Device
	mutex    sync.Mutex
	conn     *model.Connection
	opens    int
	writeErr error
	written  []byte
	closed   bool
}

func newFakeTransport(kind model.ConnectionType, devices ...model.Device) *fakeTransport {
	return &fakeTransport{kind: kind, devices: devices}
}

func (f *fakeTransport) Type() model.ConnectionType { return f.kind }
func (f *fakeTransport) IsAvailable() bool          { return true }

func (f *fakeTransport) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	return filter.Apply(f.devices), nil
}

func (f *fakeTransport) Connect(ctx context.Context, device model.Device) (*model.Connection, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("connect without deadline")
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.conn != nil && f.conn.Device.ID == device.ID && f.conn.State == model.StateConnected {
		c := *f.conn
		return &c, nil
	}
	f.conn = model.NewConnection(device)
	c := *f.conn
	return &c, nil
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.conn = nil
	return nil
}

func (f *fakeTransport) OpenEndpoint(ctx context.Context) (transport.Endpoint, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.conn == nil {
		return nil, model.NewError(model.ErrNotConnected, f.kind, "open endpoint", nil)
	}
	f.opens++
	return &fakeEndpoint{t: f}, nil
}

func (f *fakeTransport) Send(ctx context.Context, data []byte) error {
	ep, err := f.OpenEndpoint(ctx)
	if err != nil {
		return err
	}
	return ep.Write(ctx, data)
}

func (f *fakeTransport) State() model.ConnectionState {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.conn == nil {
		return model.StateUnconnected
	}
	return f.conn.State
}

func (f *fakeTransport) Connection() *model.Connection {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.conn == nil {
		return nil
	}
	c := *f.conn
	return &c
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return f.Disconnect(context.Background())
}

func (f *fakeTransport) setState(state model.ConnectionState) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.conn.State = state
}

var receipt = model.Device{ID: "usb:1:4:0416:5011", Name: "POS-58", ConnectionType: model.ConnectionTypeUSB}

func hiJob() *escpos.Job {
	return escpos.NewJob(
		escpos.Command(escpos.AlignCenter),
		escpos.Text("HI"),
		escpos.Command(escpos.LineFeed),
	)
}

func TestPrintHI(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop())

	_, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)

	n, err := p.Print(context.Background(), hiJob())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{0x1B, 0x61, 0x01, 0x48, 0x49, 0x0A}, ft.written)
}

func TestPrintNotConnected(t *testing.T) {
	p := New(newFakeTransport(model.ConnectionTypeUSB, receipt), zap.NewNop())

	_, err := p.Print(context.Background(), hiJob())
	assert.True(t, errors.Is(err, model.ErrNotConnected))
}

func TestPrintCachesEndpointPerConnection(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop())

	_, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := p.Print(context.Background(), hiJob())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ft.opens)

	require.NoError(t, p.Disconnect(context.Background()))
	_, err = p.Connect(context.Background(), receipt)
	require.NoError(t, err)
	_, err = p.Print(context.Background(), hiJob())
	require.NoError(t, err)
	assert.Equal(t, 2, ft.opens)
}

func TestPrintDropsEndpointOnFatalError(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop())

	_, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)
	_, err = p.Print(context.Background(), hiJob())
	require.NoError(t, err)

	ft.writeErr = model.NewRetryableError(model.ErrWriteFailure, model.ConnectionTypeUSB, "bulk write", transport.ErrTimeout)
	_, err = p.Print(context.Background(), hiJob())
	assert.True(t, model.IsRetryable(err))

	ft.writeErr = model.NewError(model.ErrWriteFailure, model.ConnectionTypeUSB, "bulk write", errors.New("pipe"))
	_, err = p.Print(context.Background(), hiJob())
	assert.True(t, errors.Is(err, model.ErrWriteFailure))
	assert.Equal(t, 1, ft.opens)

	ft.writeErr = nil
	_, err = p.Print(context.Background(), hiJob())
	require.NoError(t, err)
	assert.Equal(t, 2, ft.opens)
}

func TestPrintFailedConnection(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop())

	_, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)
	ft.setState(model.StateFailed)

	_, err = p.Print(context.Background(), hiJob())
	assert.True(t, errors.Is(err, model.ErrNotConnected))
}

func TestPrintQRCodeFailsBeforeWriting(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop())
	_, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)

	_, err = p.Print(context.Background(), escpos.NewJob(escpos.Text("A"), escpos.QRCode("https://example.com")))
	assert.True(t, errors.Is(err, model.ErrUnsupportedFeature))
	assert.Equal(t, model.ConnectionTypeUSB, err.(*model.PrinterError).Transport)
	assert.Empty(t, ft.written)
}

func TestPrintTerminalPreview(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeTerminal, transport.TerminalDevice())
	p := New(ft, zap.NewNop())
	_, err := p.Connect(context.Background(), transport.TerminalDevice())
	require.NoError(t, err)

	_, err = p.Print(context.Background(), hiJob())
	require.NoError(t, err)
	assert.Equal(t, "HI\n", string(ft.written))
}

func TestConnectByName(t *testing.T) {
	other := model.Device{ID: "usb:1:5:04b8:0202", Name: "TM-T88IV", ConnectionType: model.ConnectionTypeUSB}
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt, other)
	p := New(ft, zap.NewNop(), WithConnectTimeout(time.Second))

	conn, err := p.ConnectByName(context.Background(), discovery.Filter{Name: "tm-t88"})
	require.NoError(t, err)
	assert.Equal(t, other.ID, conn.Device.ID)

	_, err = p.ConnectByName(context.Background(), discovery.Filter{Name: "zebra"})
	assert.True(t, errors.Is(err, model.ErrDeviceNotFound))
}

func TestStatusAndClose(t *testing.T) {
	ft := newFakeTransport(model.ConnectionTypeUSB, receipt)
	p := New(ft, zap.NewNop(), WithSendTimeout(time.Second))

	s := p.Status()
	assert.Equal(t, model.ConnectionTypeUSB, s.Transport)
	assert.Equal(t, model.StateUnconnected, s.State)
	assert.Nil(t, s.Connection)

	conn, err := p.Connect(context.Background(), receipt)
	require.NoError(t, err)
	s = p.Status()
	assert.Equal(t, model.StateConnected, s.State)
	assert.Equal(t, conn.ID, s.Connection.ID)
	assert.NotEqual(t, uuid.Nil, s.Connection.ID)

	require.NoError(t, p.Close())
	assert.True(t, ft.closed)
}

func TestPrintOverTerminalTransport(t *testing.T) {
	out := &syncBuffer{}
	p := New(transport.NewTerminalTransport(out, zap.NewNop()), zap.NewNop())

	_, err := p.ConnectByName(context.Background(), discovery.Filter{})
	require.NoError(t, err)

	n, err := p.Print(context.Background(), escpos.NewJob(
		escpos.Command(escpos.FontBold),
		escpos.Text("TOTAL"),
		escpos.Command(escpos.LineFeed),
		escpos.Text(fmt.Sprintf("%d items", 3)),
		escpos.Command(escpos.LineFeed),
	))
	require.NoError(t, err)
	assert.Equal(t, "TOTAL\n3 items\n", out.String())
	assert.Equal(t, len("TOTAL\n3 items\n"), n)
}

type syncBuffer struct {
	mutex sync.Mutex
	buf   []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return string(b.buf)
}
