package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "printer-service/docs"
	"printer-service/internal/config"
	"printer-service/internal/handler"
	"printer-service/internal/middleware"
	"printer-service/internal/printer"
	"printer-service/internal/service"
	"printer-service/internal/transport"
)

func newEngine(t *testing.T) (*gin.Engine, *Router) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := handler.NewEventBus(zap.NewNop())
	go bus.Start()

	var out bytes.Buffer
	ps := service.NewPrintService([]*printer.Printer{
		printer.New(transport.NewTerminalTransport(&out, zap.NewNop()), zap.NewNop()),
	}, 384, bus, zap.NewNop())

	cfg := &config.Config{
		App:      config.AppConfig{Name: "printer-service", Version: "test", Environment: "test"},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
	}
	r := NewRouter(cfg, zap.NewNop(), ps, bus)
	engine := r.SetupRouter()

	t.Cleanup(func() {
		if ws := r.WebSocketHandler(); ws != nil {
			ws.Close()
		}
		_ = ps.Close()
		bus.Stop()
	})
	return engine, r
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSetupRouter(t *testing.T) {
	engine, r := newEngine(t)
	require.NotNil(t, r.WebSocketHandler())

	for _, path := range []string{"/health", "/ready", "/live", "/api/v1/health", "/api/v1/printers", "/api/v1/printers/terminal/status"} {
		rec := get(engine, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader), path)
	}

	rec := get(engine, "/docs")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))

	rec = get(engine, "/swagger/doc.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/printers/{transport}/jobs")
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	engine, _ := newEngine(t)

	rec := get(engine, "/ws/printers/terminal")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
