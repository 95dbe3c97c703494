// internal/transport/session.go
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
)

// link is the transport-specific half of a session
type link interface {
	open(ctx context.Context, device model.Device) error
	// verify re-queries the transport after open; a nil error means the
	// device really is reachable
	verify(ctx context.Context) error
	endpoint(ctx context.Context) (Endpoint, error)
	close() error
}

// session implements the connection state machine on top of a link.
// lifecycle serializes Connect and Disconnect; mutex guards state and conn
// and is released while the link does I/O, so readers see Connecting.
type session struct {
	kind   model.ConnectionType
	policy ConnectPolicy
	link   link
	logger *utils.TransportLogger

	lifecycle sync.Mutex

	mutex sync.RWMutex
	state model.ConnectionState
	conn  *model.Connection
}

func newSession(kind model.ConnectionType, policy ConnectPolicy, l link, logger *zap.Logger) *session {
	return &session{
		kind:   kind,
		policy: policy,
		link:   l,
		logger: utils.NewTransportLogger(logger, string(kind)),
		state:  model.StateUnconnected,
	}
}

// Type returns the transport type
func (s *session) Type() model.ConnectionType {
	return s.kind
}

// Connect opens device unless it is already the live connection
func (s *session) Connect(ctx context.Context, device model.Device) (*model.Connection, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mutex.Lock()
	switch s.state {
	case model.StateConnected:
		if s.conn.Device.ID == device.ID {
			defer s.mutex.Unlock()
			return s.snapshot(), nil
		}
		if s.policy == PolicyKeep {
			defer s.mutex.Unlock()
			s.logger.Warn("Already connected, ignoring new device",
				zap.String("connected_device", s.conn.Device.ID),
				zap.String("requested_device", device.ID),
			)
			return s.snapshot(), nil
		}
		s.logger.Info("Replacing connection",
			zap.String("old_device", s.conn.Device.ID),
			zap.String("new_device", device.ID),
		)
		s.releaseLogged("replace")
	case model.StateFailed:
		s.releaseLogged("reconnect")
	}
	s.state = model.StateConnecting
	s.mutex.Unlock()

	err := s.link.open(ctx, device)
	if err != nil {
		err = s.classify(model.ErrConnectFailure, "connect", err)
	} else if verr := s.link.verify(ctx); verr != nil {
		if cerr := s.link.close(); cerr != nil {
			s.logger.Warn("Failed to close unverified link", zap.String("device_id", device.ID), zap.Error(cerr))
		}
		err = s.classify(model.ErrConnectFailure, "connect", fmt.Errorf("connection not established: %w", verr))
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err != nil {
		s.state = model.StateUnconnected
		s.logger.LogConnection("connect", device.ID, err)
		return nil, err
	}

	s.conn = model.NewConnection(device)
	s.state = model.StateConnected
	s.logger.LogConnection("connect", device.ID, nil)
	return s.snapshot(), nil
}

// Disconnect closes the live connection; it succeeds when there is none
func (s *session) Disconnect(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == model.StateUnconnected && s.conn == nil {
		return nil
	}

	deviceID := ""
	if s.conn != nil {
		deviceID = s.conn.Device.ID
	}
	err := s.release()
	s.logger.LogConnection("disconnect", deviceID, err)
	if err != nil {
		return fmt.Errorf("failed to release %s link: %w", s.kind, err)
	}
	return nil
}

// release closes the link and resets the state; callers hold the lock
func (s *session) release() error {
	err := s.link.close()
	s.conn = nil
	s.state = model.StateUnconnected
	return err
}

// releaseLogged releases before a new connect; a close error does not
// block the connect
func (s *session) releaseLogged(reason string) {
	deviceID := ""
	if s.conn != nil {
		deviceID = s.conn.Device.ID
	}
	if err := s.release(); err != nil {
		s.logger.Warn("Failed to release previous link",
			zap.String("reason", reason),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

// State returns the current lifecycle state
func (s *session) State() model.ConnectionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// Connection returns a copy of the live connection, or nil
func (s *session) Connection() *model.Connection {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.snapshot()
}

func (s *session) snapshot() *model.Connection {
	if s.conn == nil {
		return nil
	}
	c := *s.conn
	c.State = s.state
	return &c
}

// OpenEndpoint resolves the write channel of the live connection. The
// endpoint stays bound to that connection and refuses writes once it is
// gone.
func (s *session) OpenEndpoint(ctx context.Context) (Endpoint, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.state != model.StateConnected {
		return nil, model.NewError(model.ErrNotConnected, s.kind, "open endpoint", nil)
	}

	ep, err := s.link.endpoint(ctx)
	if err != nil {
		return nil, s.classify(model.ErrConnectFailure, "open endpoint", err)
	}
	return &boundEndpoint{session: s, connID: s.conn.ID, inner: ep}, nil
}

// Send resolves the endpoint and writes data
func (s *session) Send(ctx context.Context, data []byte) error {
	ep, err := s.OpenEndpoint(ctx)
	if err != nil {
		return err
	}
	return ep.Write(ctx, data)
}

func (s *session) isLive(connID uuid.UUID) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state == model.StateConnected && s.conn != nil && s.conn.ID == connID
}

// fail moves a live connection to Failed
func (s *session) fail(connID uuid.UUID, cause error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.conn == nil || s.conn.ID != connID || s.state != model.StateConnected {
		return
	}
	s.state = model.StateFailed
	s.logger.Error("Connection failed", zap.String("device_id", s.conn.Device.ID), zap.Error(cause))
}

// classify wraps err as kind unless it already carries a kind
func (s *session) classify(kind model.ErrorKind, op string, err error) error {
	if model.KindOf(err) != "" {
		return err
	}
	return model.NewError(kind, s.kind, op, err)
}

// boundEndpoint ties a link endpoint to one connection ID
type boundEndpoint struct {
	session *session
	connID  uuid.UUID
	inner   Endpoint
}

func (b *boundEndpoint) Write(ctx context.Context, data []byte) error {
	if !b.session.isLive(b.connID) {
		return model.NewError(model.ErrNotConnected, b.session.kind, "send", nil)
	}

	start := time.Now()
	err := b.inner.Write(ctx, data)
	if err != nil {
		err = b.session.classify(model.ErrWriteFailure, "send", err)
		if !model.IsRetryable(err) {
			b.session.fail(b.connID, err)
		}
	}
	b.session.logger.LogWrite(len(data), time.Since(start), err)
	return err
}
