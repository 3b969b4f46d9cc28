package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bolt-protocol/bolt-go/pkg/log"
)

// Chunking constants.
const (
	// ChunkHeaderSize is the size of the chunk length header in bytes.
	ChunkHeaderSize = 2

	// MaxChunkPayload is the maximum payload per chunk.
	MaxChunkPayload = 65535

	// MaxLogMessageDataSize is the maximum message size to include in logs (4 KB).
	// Larger messages are truncated in log events to avoid excessive memory usage.
	MaxLogMessageDataSize = 4096
)

// Chunking errors.
var (
	// ErrTruncatedMessage indicates the stream closed or errored mid-chunk
	// or mid-header.
	ErrTruncatedMessage = errors.New("truncated message")

	// ErrMessageTooLarge indicates the message exceeds the configured maximum.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrChunkSizeRange indicates an invalid maximum chunk size.
	ErrChunkSizeRange = errors.New("chunk size out of range")
)

// ChunkWriter encodes messages into length-prefixed chunks on an
// underlying writer. Each message becomes a sequence of maximal chunks
// followed by a zero-length terminator chunk; an empty message is the
// terminator alone.
type ChunkWriter struct {
	w            io.Writer
	maxChunkSize int
	header       [ChunkHeaderSize]byte

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewChunkWriter creates a chunk writer using the maximum chunk payload size.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{
		w:            w,
		maxChunkSize: MaxChunkPayload,
	}
}

// NewChunkWriterWithChunkSize creates a chunk writer that splits messages
// into chunks of at most size bytes. Size must be in [1, MaxChunkPayload].
func NewChunkWriterWithChunkSize(w io.Writer, size int) (*ChunkWriter, error) {
	if size < 1 || size > MaxChunkPayload {
		return nil, fmt.Errorf("%w: %d", ErrChunkSizeRange, size)
	}
	return &ChunkWriter{
		w:            w,
		maxChunkSize: size,
	}, nil
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (cw *ChunkWriter) SetLogger(logger log.Logger, connID string) {
	cw.logger = logger
	cw.connID = connID
}

// WriteMessage writes one message as chunks plus the terminator.
func (cw *ChunkWriter) WriteMessage(msg []byte) error {
	rest := msg
	chunks := 0

	for len(rest) > 0 {
		n := len(rest)
		if n > cw.maxChunkSize {
			n = cw.maxChunkSize
		}

		binary.BigEndian.PutUint16(cw.header[:], uint16(n))
		if _, err := cw.w.Write(cw.header[:]); err != nil {
			return fmt.Errorf("failed to write chunk header: %w", err)
		}
		if _, err := cw.w.Write(rest[:n]); err != nil {
			return fmt.Errorf("failed to write chunk payload: %w", err)
		}

		rest = rest[n:]
		chunks++
	}

	// Message terminator
	cw.header[0], cw.header[1] = 0, 0
	if _, err := cw.w.Write(cw.header[:]); err != nil {
		return fmt.Errorf("failed to write message terminator: %w", err)
	}

	if cw.logger != nil {
		cw.logger.Log(makeTransferEvent(cw.connID, log.DirectionOut, msg, chunks))
	}

	return nil
}

// ChunkReader decodes chunked messages from an underlying reader.
type ChunkReader struct {
	r              io.Reader
	maxMessageSize int
	header         [ChunkHeaderSize]byte

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewChunkReader creates a chunk reader with no message size limit.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: r}
}

// NewChunkReaderWithMaxSize creates a chunk reader that rejects messages
// larger than maxSize bytes.
func NewChunkReaderWithMaxSize(r io.Reader, maxSize int) *ChunkReader {
	return &ChunkReader{
		r:              r,
		maxMessageSize: maxSize,
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (cr *ChunkReader) SetLogger(logger log.Logger, connID string) {
	cr.logger = logger
	cr.connID = connID
}

// SetMaxMessageSize updates the maximum message size (0 = unlimited).
func (cr *ChunkReader) SetMaxMessageSize(size int) {
	cr.maxMessageSize = size
}

// ReadMessage reads chunks until a terminator and returns the reassembled
// message, which may be empty. A clean peer close exactly at a message
// boundary returns io.EOF; a close or error mid-header or mid-payload
// returns ErrTruncatedMessage.
func (cr *ChunkReader) ReadMessage() ([]byte, error) {
	var msg []byte
	chunks := 0

	for {
		if _, err := io.ReadFull(cr.r, cr.header[:]); err != nil {
			if err == io.EOF && chunks == 0 && msg == nil {
				// Clean close at a message boundary.
				return nil, io.EOF
			}
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedMessage
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		length := int(binary.BigEndian.Uint16(cr.header[:]))
		if length == 0 {
			// Terminator: the message in progress is complete.
			if msg == nil {
				msg = []byte{}
			}
			if cr.logger != nil {
				cr.logger.Log(makeTransferEvent(cr.connID, log.DirectionIn, msg, chunks))
			}
			return msg, nil
		}

		if cr.maxMessageSize > 0 && len(msg)+length > cr.maxMessageSize {
			return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(msg)+length, cr.maxMessageSize)
		}

		start := len(msg)
		msg = append(msg, make([]byte, length)...)
		if _, err := io.ReadFull(cr.r, msg[start:]); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedMessage
			}
			return nil, fmt.Errorf("failed to read chunk payload: %w", err)
		}
		chunks++
	}
}

// makeTransferEvent creates a log event for one message transfer.
func makeTransferEvent(connID string, direction log.Direction, msg []byte, chunks int) log.Event {
	data := msg
	truncated := false
	if len(msg) > MaxLogMessageDataSize {
		data = msg[:MaxLogMessageDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      len(msg),
			Chunks:    chunks,
			Data:      data,
			Truncated: truncated,
		},
	}
}

// Chunker combines chunk reading and writing over one stream.
type Chunker struct {
	*ChunkReader
	*ChunkWriter
}

// NewChunker creates a chunker for bidirectional communication.
func NewChunker(rw io.ReadWriter) *Chunker {
	return &Chunker{
		ChunkReader: NewChunkReader(rw),
		ChunkWriter: NewChunkWriter(rw),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (c *Chunker) SetLogger(logger log.Logger, connID string) {
	c.ChunkReader.SetLogger(logger, connID)
	c.ChunkWriter.SetLogger(logger, connID)
}

// MessageReadWriter provides chunked message I/O.
// Implemented by Chunker.
type MessageReadWriter interface {
	// ReadMessage reads one complete message.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one message as chunks plus the terminator.
	WriteMessage(msg []byte) error
}

// Compile-time interface satisfaction check.
var _ MessageReadWriter = (*Chunker)(nil)
