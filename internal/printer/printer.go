// internal/printer/printer.go
package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/escpos"
	"printer-service/internal/model"
	"printer-service/internal/transport"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultSendTimeout    = 30 * time.Second
)

// Option configures a Printer
type Option func(*Printer)

// WithConnectTimeout bounds Connect and ConnectByName
func WithConnectTimeout(d time.Duration) Option {
	return func(p *Printer) {
		if d > 0 {
			p.connectTimeout = d
		}
	}
}

// WithSendTimeout bounds each Print
func WithSendTimeout(d time.Duration) Option {
	return func(p *Printer) {
		if d > 0 {
			p.sendTimeout = d
		}
	}
}

// Status is a point-in-time view of a printer
type Status struct {
	Transport  model.ConnectionType  `json:"transport"`
	State      model.ConnectionState `json:"state"`
	Available  bool                  `json:"available"`
	Scanning   bool                  `json:"scanning"`
	Connection *model.Connection     `json:"connection,omitempty"`
}

// Printer drives one transport. Jobs are printed one at a time.
type Printer struct {
	transport      transport.Transport
	logger         *zap.Logger
	connectTimeout time.Duration
	sendTimeout    time.Duration

	// endpoint cache, keyed by connection id
	mutex    sync.Mutex
	cachedID uuid.UUID
	endpoint transport.Endpoint
}

// New creates a printer over t
func New(t transport.Transport, logger *zap.Logger, opts ...Option) *Printer {
	p := &Printer{
		transport:      t,
		logger:         logger.With(zap.String("transport", string(t.Type()))),
		connectTimeout: DefaultConnectTimeout,
		sendTimeout:    DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the transport type
func (p *Printer) Type() model.ConnectionType {
	return p.transport.Type()
}

// Transport returns the underlying transport
func (p *Printer) Transport() transport.Transport {
	return p.transport
}

// Discover lists reachable printers
func (p *Printer) Discover(ctx context.Context, filter discovery.Filter) ([]model.Device, error) {
	return p.transport.Discover(ctx, filter)
}

// Connect connects to device within the connect timeout
func (p *Printer) Connect(ctx context.Context, device model.Device) (*model.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	return p.transport.Connect(ctx, device)
}

// ConnectByName discovers with filter and connects to the first match
func (p *Printer) ConnectByName(ctx context.Context, filter discovery.Filter) (*model.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	devices, err := p.transport.Discover(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, model.NewError(model.ErrDeviceNotFound, p.Type(), "connect",
			fmt.Errorf("no device matches name %q", filter.Name))
	}

	p.logger.Info("Connecting to first matching device",
		zap.String("device_id", devices[0].ID),
		zap.String("device_name", devices[0].Name),
		zap.Int("matches", len(devices)),
	)
	return p.transport.Connect(ctx, devices[0])
}

// Disconnect drops the connection and the cached endpoint
func (p *Printer) Disconnect(ctx context.Context) error {
	p.dropEndpoint()
	return p.transport.Disconnect(ctx)
}

// Render produces the bytes Print would send for job
func (p *Printer) Render(job *escpos.Job) ([]byte, error) {
	if p.Type() == model.ConnectionTypeTerminal {
		text, err := job.Preview()
		if err != nil {
			return nil, withTransport(err, p.Type())
		}
		return []byte(text), nil
	}

	data, err := job.Serialize()
	if err != nil {
		return nil, withTransport(err, p.Type())
	}
	return data, nil
}

// Print renders job and writes it within the send timeout. It returns the
// number of bytes handed to the transport.
func (p *Printer) Print(ctx context.Context, job *escpos.Job) (int, error) {
	data, err := p.Render(job)
	if err != nil {
		return 0, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	ep, err := p.resolveEndpoint(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	if err := ep.Write(ctx, data); err != nil {
		if !model.IsRetryable(err) {
			p.cachedID, p.endpoint = uuid.Nil, nil
		}
		return 0, err
	}
	return len(data), nil
}

// resolveEndpoint returns the cached endpoint for the live connection or
// opens a new one; callers hold the mutex
func (p *Printer) resolveEndpoint(ctx context.Context) (transport.Endpoint, error) {
	conn := p.transport.Connection()
	if conn == nil || conn.State != model.StateConnected {
		p.cachedID, p.endpoint = uuid.Nil, nil
		return nil, model.NewError(model.ErrNotConnected, p.Type(), "print", nil)
	}

	if p.endpoint != nil && p.cachedID == conn.ID {
		return p.endpoint, nil
	}

	ep, err := p.transport.OpenEndpoint(ctx)
	if err != nil {
		return nil, err
	}
	p.cachedID, p.endpoint = conn.ID, ep
	return ep, nil
}

func (p *Printer) dropEndpoint() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cachedID, p.endpoint = uuid.Nil, nil
}

// Status reports the transport state
func (p *Printer) Status() Status {
	s := Status{
		Transport:  p.Type(),
		State:      p.transport.State(),
		Available:  p.transport.IsAvailable(),
		Connection: p.transport.Connection(),
	}
	if bs, ok := p.transport.(transport.BackgroundScanner); ok {
		s.Scanning = bs.IsScanning()
	}
	return s
}

// Close releases the transport
func (p *Printer) Close() error {
	p.dropEndpoint()
	return p.transport.Close()
}

// withTransport stamps the transport on encoder errors, which do not know it
func withTransport(err error, t model.ConnectionType) error {
	var pe *model.PrinterError
	if errors.As(err, &pe) && pe.Transport == "" {
		stamped := *pe
		stamped.Transport = t
		return &stamped
	}
	return err
}
