// internal/transport/terminal.go
package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// TerminalDeviceID is the only device a terminal transport exposes
const TerminalDeviceID = "terminal"

// TerminalTransport "prints" a text rendering of each job to a writer.
// It needs no hardware and is used for diagnostics.
type TerminalTransport struct {
	*session
	out *lockedWriter
}

// NewTerminalTransport writes job previews to out
func NewTerminalTransport(out io.Writer, logger *zap.Logger) *TerminalTransport {
	w := &lockedWriter{w: out}
	return &TerminalTransport{
		session: newSession(model.ConnectionTypeTerminal, PolicyKeep, &terminalLink{out: w}, logger),
		out:     w,
	}
}

// IsAvailable is always true
func (t *TerminalTransport) IsAvailable() bool {
	return true
}

// Discover returns the single terminal device when it matches
func (t *TerminalTransport) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	return filter.Apply([]model.Device{TerminalDevice()}), nil
}

// Close disconnects and closes the writer when it is closable
func (t *TerminalTransport) Close() error {
	if err := t.Disconnect(context.Background()); err != nil {
		return err
	}
	return t.out.Close()
}

// TerminalDevice returns the terminal device handle
func TerminalDevice() model.Device {
	return model.Device{
		ID:             TerminalDeviceID,
		Name:           "Terminal",
		ConnectionType: model.ConnectionTypeTerminal,
		DiscoveredAt:   time.Now(),
	}
}

type terminalLink struct {
	out *lockedWriter
}

func (l *terminalLink) open(ctx context.Context, device model.Device) error {
	if device.ID != TerminalDeviceID {
		return model.NewError(model.ErrDeviceNotFound, model.ConnectionTypeTerminal, "connect", nil)
	}
	return nil
}

func (l *terminalLink) verify(ctx context.Context) error             { return nil }
func (l *terminalLink) endpoint(ctx context.Context) (Endpoint, error) { return l.out, nil }
func (l *terminalLink) close() error                                  { return nil }

type lockedWriter struct {
	mutex sync.Mutex
	w     io.Writer
}

func (lw *lockedWriter) Write(ctx context.Context, data []byte) error {
	lw.mutex.Lock()
	defer lw.mutex.Unlock()
	_, err := lw.w.Write(data)
	return err
}

func (lw *lockedWriter) Close() error {
	lw.mutex.Lock()
	defer lw.mutex.Unlock()
	if c, ok := lw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
