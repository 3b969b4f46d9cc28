package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bolt-protocol/bolt-go/pkg/log"
	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
	"github.com/bolt-protocol/bolt-go/pkg/wire"
)

// Connection states.
type State uint8

const (
	// StateUnconnected indicates the transport is not yet bound.
	StateUnconnected State = iota

	// StateHandshaking indicates version negotiation in progress.
	StateHandshaking

	// StateReady indicates the connection can exchange messages.
	StateReady

	// StateClosed is terminal; no further sends or receives are possible.
	StateClosed
)

// String returns the connection state name.
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "UNCONNECTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection errors.
var (
	// ErrClosed indicates an operation on a closed connection.
	ErrClosed = errors.New("connection closed")

	// ErrNotReady indicates an operation before the handshake completed.
	ErrNotReady = errors.New("connection not ready")

	// ErrNoPendingResponse indicates Receive with no outstanding Send.
	ErrNoPendingResponse = errors.New("no pending response")

	// ErrClosedByPeer indicates the server closed the stream while
	// responses were still pending.
	ErrClosedByPeer = errors.New("connection closed by peer")
)

// Config configures a Bolt connection.
type Config struct {
	// ProposedVersions are offered during the handshake, most preferred
	// first (default: version.DefaultProposed). At most four.
	ProposedVersions []version.ProtocolVersion

	// MaxChunkSize caps outgoing chunk payloads (default: transport.MaxChunkPayload).
	MaxChunkSize int

	// MaxMessageSize caps incoming message size (0 = unlimited).
	MaxMessageSize int

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger

	// Transport configures dial and I/O timeouts.
	Transport transport.Config
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		ProposedVersions: version.DefaultProposed(),
		Transport:        transport.DefaultConfig(),
	}
}

// Connection is a Bolt client connection over an exclusively owned
// Transport. All operations must be issued sequentially; see the package
// documentation.
type Connection struct {
	id      string
	cfg     Config
	t       transport.Transport
	chunker *transport.Chunker
	agreed  version.ProtocolVersion

	state     atomic.Int32
	closeOnce sync.Once

	// mu serializes Send/Receive and guards pending.
	mu      sync.Mutex
	pending int
}

// Dial opens a plain TCP connection and performs the handshake.
func Dial(ctx context.Context, address string, cfg Config) (*Connection, error) {
	t, err := transport.Dial(ctx, address, cfg.Transport)
	if err != nil {
		return nil, err
	}
	return New(t, cfg)
}

// DialTLS opens an encrypted connection and performs the handshake.
// Trust roots are supplied through tlsCfg.
func DialTLS(ctx context.Context, address string, tlsCfg *transport.TLSConfig, cfg Config) (*Connection, error) {
	t, err := transport.DialTLS(ctx, address, tlsCfg, cfg.Transport)
	if err != nil {
		return nil, err
	}
	return New(t, cfg)
}

// New binds a live Transport, performs the handshake, and returns a Ready
// connection. The Transport is owned by the connection from this point on
// and is closed if the handshake fails.
func New(t transport.Transport, cfg Config) (*Connection, error) {
	if len(cfg.ProposedVersions) == 0 {
		cfg.ProposedVersions = version.DefaultProposed()
	}

	c := &Connection{
		id:  uuid.NewString(),
		cfg: cfg,
		t:   t,
	}
	c.state.Store(int32(StateHandshaking))
	c.logStateChange(StateUnconnected, StateHandshaking, "")

	agreed, err := negotiate(t, cfg.ProposedVersions)
	if err != nil {
		c.logHandshake(version.Null)
		c.logError("handshake", err)
		c.state.Store(int32(StateClosed))
		c.logStateChange(StateHandshaking, StateClosed, err.Error())
		t.Close()
		return nil, err
	}
	c.agreed = agreed
	c.logHandshake(agreed)

	writer := transport.NewChunkWriter(t)
	if cfg.MaxChunkSize > 0 {
		writer, err = transport.NewChunkWriterWithChunkSize(t, cfg.MaxChunkSize)
		if err != nil {
			c.state.Store(int32(StateClosed))
			t.Close()
			return nil, err
		}
	}
	reader := transport.NewChunkReader(t)
	if cfg.MaxMessageSize > 0 {
		reader.SetMaxMessageSize(cfg.MaxMessageSize)
	}
	c.chunker = &transport.Chunker{ChunkReader: reader, ChunkWriter: writer}
	c.chunker.SetLogger(cfg.Logger, c.id)

	c.state.Store(int32(StateReady))
	c.logStateChange(StateHandshaking, StateReady, "")

	return c, nil
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current connection state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Version returns the negotiated protocol version. Valid once Ready.
func (c *Connection) Version() version.ProtocolVersion {
	return c.agreed
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() string {
	return c.t.RemoteAddr().String()
}

// PendingResponses returns the number of sent requests whose responses
// have not yet been received.
func (c *Connection) PendingResponses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Send encodes one message into chunks and writes it to the transport.
// The corresponding response is retrieved by a later Receive; responses
// arrive in send order. Any write failure closes the connection.
func (c *Connection) Send(msg []byte) error {
	if err := c.requireReady(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.chunker.WriteMessage(msg); err != nil {
		return c.fatal("send", err)
	}
	c.pending++
	c.logMessage(msg, log.DirectionOut)

	return nil
}

// Receive reads exactly one message from the transport and returns its
// bytes. It fails with ErrNoPendingResponse when no Send is outstanding.
// Any read failure or truncation closes the connection.
func (c *Connection) Receive() ([]byte, error) {
	if err := c.requireReady(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == 0 {
		return nil, ErrNoPendingResponse
	}

	msg, err := c.chunker.ReadMessage()
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("%w: %d responses outstanding", ErrClosedByPeer, c.pending)
		}
		return nil, c.fatal("receive", err)
	}
	c.pending--
	c.logMessage(msg, log.DirectionIn)

	return msg, nil
}

// Close transitions the connection to Closed and releases the transport.
// Pending responses are dropped. Close is idempotent and safe to call from
// any state, including concurrently with a blocked Send or Receive, which
// then fails with ErrClosed.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		old := c.State()
		c.state.Store(int32(StateClosed))
		if old != StateClosed {
			c.logStateChange(old, StateClosed, "")
		}
		err = c.t.Close()
	})
	return err
}

// requireReady checks that the connection can exchange messages.
func (c *Connection) requireReady() error {
	switch c.State() {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

// fatal closes the connection after an unrecoverable error. If the
// connection was already closed by a concurrent Close, the closed-state
// error takes precedence over the raw I/O error.
func (c *Connection) fatal(op string, err error) error {
	if c.State() == StateClosed {
		return ErrClosed
	}

	c.logError(op, err)
	c.closeOnce.Do(func() {
		old := c.State()
		c.state.Store(int32(StateClosed))
		c.logStateChange(old, StateClosed, err.Error())
		c.t.Close()
	})

	return err
}

// logStateChange emits a connection state event.
func (c *Connection) logStateChange(old, new State, reason string) {
	if c.cfg.Logger == nil {
		return
	}
	c.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerConnection,
		Category:     log.CategoryState,
		RemoteAddr:   c.t.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: new.String(),
			Reason:   reason,
		},
	})
}

// logHandshake emits a version negotiation event.
func (c *Connection) logHandshake(chosen version.ProtocolVersion) {
	if c.cfg.Logger == nil {
		return
	}
	proposed := make([]string, len(c.cfg.ProposedVersions))
	for i, v := range c.cfg.ProposedVersions {
		proposed[i] = v.String()
	}
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    log.DirectionIn,
		Layer:        log.LayerConnection,
		Category:     log.CategoryHandshake,
		RemoteAddr:   c.t.RemoteAddr().String(),
		Handshake:    &log.HandshakeEvent{Proposed: proposed},
	}
	if !chosen.IsNull() {
		event.Handshake.Chosen = chosen.String()
	}
	c.cfg.Logger.Log(event)
}

// logMessage emits a wire-layer event classifying the message.
func (c *Connection) logMessage(msg []byte, direction log.Direction) {
	if c.cfg.Logger == nil {
		return
	}
	info, err := wire.Peek(msg)
	if err != nil {
		// Unclassifiable payloads still went over the wire; the
		// transport layer has already logged the transfer.
		return
	}
	c.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    direction,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Kind:      info.Kind,
			Signature: info.Signature,
			Size:      len(msg),
		},
	})
}

// logError emits an error event.
func (c *Connection) logError(op string, err error) {
	if c.cfg.Logger == nil {
		return
	}
	c.cfg.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerConnection,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerConnection,
			Message: err.Error(),
			Context: op,
		},
	})
}
