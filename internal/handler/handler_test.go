package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/service"
	"printer-service/internal/transport"
)

type usbHandle struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (h *usbHandle) Write(ctx context.Context, data []byte) (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.buf.Write(data)
}

func (h *usbHandle) Ping() error  { return nil }
func (h *usbHandle) Close() error { return nil }

func (h *usbHandle) bytes() []byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]byte(nil), h.buf.Bytes()...)
}

type usbBackend struct {
	mutex  sync.Mutex
	handle *usbHandle
}

func (b *usbBackend) Enumerate(ctx context.Context) ([]transport.USBDeviceInfo, error) {
	return []transport.USBDeviceInfo{{VendorID: 0x0416, ProductID: 0x5011, Bus: 1, Address: 4, Name: "POS-58", IsPrinter: true}}, nil
}

func (b *usbBackend) Open(ctx context.Context, device model.Device) (transport.USBHandle, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.handle = &usbHandle{}
	return b.handle, nil
}

func (b *usbBackend) Available() bool { return true }
func (b *usbBackend) Close() error    { return nil }

func (b *usbBackend) written() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.handle == nil {
		return nil
	}
	return b.handle.bytes()
}

type syncBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.buf.String()
}

type fixture struct {
	service  *service.PrintService
	backend  *usbBackend
	terminal *syncBuffer
	bus      *EventBus
	engine   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		backend:  &usbBackend{},
		terminal: &syncBuffer{},
		bus:      NewEventBus(zap.NewNop()),
	}
	go f.bus.Start()

	f.service = service.NewPrintService([]*printer.Printer{
		printer.New(transport.NewUSBTransport(f.backend, transport.USBConfig{}, zap.NewNop()), zap.NewNop()),
		printer.New(transport.NewTerminalTransport(f.terminal, zap.NewNop()), zap.NewNop()),
	}, 384, f.bus, zap.NewNop())

	cfg := &config.Config{App: config.AppConfig{Name: "printer-service", Version: "test"}}

	f.engine = gin.New()
	api := f.engine.Group("/api/v1")
	NewPrinterHandler(f.service, zap.NewNop()).RegisterRoutes(api)
	NewHealthHandler(f.service, cfg, zap.NewNop()).RegisterRoutes(api)

	t.Cleanup(func() {
		_ = f.service.Close()
		f.bus.Stop()
	})
	return f
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestListPrinters(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/printers", "")
	require.Equal(t, http.StatusOK, code)

	var statuses []printer.Status
	require.NoError(t, json.Unmarshal(env.Data, &statuses))
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.Equal(t, model.StateUnconnected, s.State)
		assert.True(t, s.Available)
	}
}

func TestDiscoverDevices(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/printers/usb/devices?vendor_id=0x0416", "")
	require.Equal(t, http.StatusOK, code)

	var body struct {
		Devices []model.Device `json:"devices"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "POS-58", body.Devices[0].Name)

	code, _ = f.do(t, http.MethodGet, "/api/v1/printers/usb/devices?vendor_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/printers/devices", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 2, body.Count)
}

func TestConnectAndPrint(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/printers/usb/connect", `{"name":"pos"}`)
	require.Equal(t, http.StatusOK, code, env.Message)

	var conn model.Connection
	require.NoError(t, json.Unmarshal(env.Data, &conn))
	assert.Equal(t, model.StateConnected, conn.State)

	job := `{"items":[
		{"type":"directive","directive":"align_center"},
		{"type":"text","text":"HI"},
		{"type":"directive","directive":"line_feed"}
	]}`
	code, env = f.do(t, http.MethodPost, "/api/v1/printers/usb/jobs", job)
	require.Equal(t, http.StatusOK, code, env.Message)

	var result model.JobResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, model.JobStatusSuccess, result.Status)
	assert.Equal(t, 6, result.BytesWritten)
	assert.Equal(t, []byte{0x1B, 0x61, 0x01, 0x48, 0x49, 0x0A}, f.backend.written())

	code, _ = f.do(t, http.MethodPost, "/api/v1/printers/usb/disconnect", "")
	assert.Equal(t, http.StatusOK, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/printers/usb/status", "")
	require.Equal(t, http.StatusOK, code)
	var status printer.Status
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, model.StateUnconnected, status.State)
	assert.Nil(t, status.Connection)
}

func TestConnectWithoutBody(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/printers/terminal/connect", "")
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = f.do(t, http.MethodPost, "/api/v1/printers/terminal/jobs", `{"items":[{"type":"text","text":"TOTAL"}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, f.terminal.String(), "TOTAL")
}

func TestPrintErrors(t *testing.T) {
	f := newFixture(t)

	// not connected
	code, env := f.do(t, http.MethodPost, "/api/v1/printers/usb/jobs", `{"items":[{"type":"text","text":"x"}]}`)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_CONNECTED", env.Error.Code)
	var result model.JobResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, model.JobStatusFailed, result.Status)

	// malformed body
	code, _ = f.do(t, http.MethodPost, "/api/v1/printers/usb/jobs", `{"items":`)
	assert.Equal(t, http.StatusBadRequest, code)

	// no items
	code, _ = f.do(t, http.MethodPost, "/api/v1/printers/usb/jobs", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	// transport not configured
	code, _ = f.do(t, http.MethodPost, "/api/v1/printers/ble/jobs", `{"items":[{"type":"text","text":"x"}]}`)
	assert.Equal(t, http.StatusNotFound, code)

	// unknown transport name
	code, _ = f.do(t, http.MethodGet, "/api/v1/printers/serial/status", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPrintUnsupportedItem(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodPost, "/api/v1/printers/usb/connect", "")
	require.Equal(t, http.StatusOK, code)

	code, env := f.do(t, http.MethodPost, "/api/v1/printers/usb/jobs", `{"items":[{"type":"qrcode","text":"https://example.com"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNSUPPORTED_FEATURE", env.Error.Code)
	assert.Empty(t, f.backend.written())
}

func TestConnectUnknownDevice(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/printers/usb/connect", `{"device_id":"usb:9:9:0000:0000"}`)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEVICE_NOT_FOUND", env.Error.Code)
}

func TestScanUnsupported(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/printers/usb/scan/start", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNSUPPORTED_FEATURE", env.Error.Code)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Contains(t, health.Checks, "transport_USB")
	assert.Contains(t, health.Checks, "transport_TERMINAL")

	for _, path := range []string{"/api/v1/ready", "/api/v1/live"} {
		rec := httptest.NewRecorder()
		f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	var ready struct {
		Transports []model.ConnectionType `json:"transports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, []model.ConnectionType{model.ConnectionTypeTerminal, model.ConnectionTypeUSB}, ready.Transports)
}

func TestHealthCheckUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ps := service.NewPrintService([]*printer.Printer{
		printer.New(transport.NewUSBTransport(nil, transport.USBConfig{}, zap.NewNop()), zap.NewNop()),
	}, 384, nil, zap.NewNop())
	t.Cleanup(func() { _ = ps.Close() })

	engine := gin.New()
	NewHealthHandler(ps, &config.Config{}, zap.NewNop()).RegisterRoutes(engine.Group(""))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "unavailable", health.Checks["transport_USB"].Status)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no transport available")
}
