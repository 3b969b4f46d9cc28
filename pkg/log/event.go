package log

import (
	"time"

	"github.com/bolt-protocol/bolt-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Chunked transfer at the transport layer
	Message     *MessageEvent     `cbor:"8,keyasint,omitempty"`  // Classified message at the wire layer
	Handshake   *HandshakeEvent   `cbor:"9,keyasint,omitempty"`  // Version negotiation
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // Connection state
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates the protocol layer where an event was captured.
type Layer uint8

const (
	// LayerTransport is the chunk framing and socket layer.
	LayerTransport Layer = 0
	// LayerWire is the message classification layer.
	LayerWire Layer = 1
	// LayerConnection is the connection lifecycle layer.
	LayerConnection Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message transfer.
	CategoryMessage Category = 0
	// CategoryHandshake indicates a version negotiation event.
	CategoryHandshake Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryHandshake:
		return "HANDSHAKE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one chunked message transfer at the transport layer.
type FrameEvent struct {
	// Size is the reassembled message size in bytes (without chunk headers).
	Size int `cbor:"1,keyasint"`

	// Chunks is the number of data chunks the message occupied on the wire.
	Chunks int `cbor:"2,keyasint"`

	// Data is the message bytes (may be truncated for large messages).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`
}

// MessageEvent captures a classified message at the wire layer.
type MessageEvent struct {
	// Kind is the classified message kind.
	Kind wire.Kind `cbor:"1,keyasint"`

	// Signature is the raw signature byte.
	Signature uint8 `cbor:"2,keyasint"`

	// Size is the message size in bytes.
	Size int `cbor:"3,keyasint"`
}

// HandshakeEvent captures the version negotiation exchange.
type HandshakeEvent struct {
	// Proposed versions, most preferred first, as "major.minor".
	Proposed []string `cbor:"1,keyasint"`

	// Chosen is the server's selected version, empty on failure.
	Chosen string `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
