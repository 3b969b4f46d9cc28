package connection

import (
	"errors"
	"fmt"
	"io"

	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
)

// Preamble is the 4-byte magic identifying the Bolt protocol, sent before
// the proposed versions.
var Preamble = [4]byte{0x60, 0x60, 0xB0, 0x17}

// Handshake errors.
var (
	// ErrNoCompatibleVersion indicates the server supports none of the
	// proposed protocol versions.
	ErrNoCompatibleVersion = errors.New("no compatible protocol version")

	// ErrProtocolViolation indicates the server replied with a version
	// that was never proposed.
	ErrProtocolViolation = errors.New("protocol violation")
)

// negotiate performs the version handshake on a fresh transport: the
// preamble and up to four proposed versions go out, the server's 4-byte
// choice comes back. Runs exactly once per connection, before any chunked
// traffic.
func negotiate(t transport.Transport, proposed []version.ProtocolVersion) (version.ProtocolVersion, error) {
	block, err := version.EncodeProposal(proposed)
	if err != nil {
		return version.Null, fmt.Errorf("invalid proposal: %w", err)
	}

	req := make([]byte, 0, len(Preamble)+len(block))
	req = append(req, Preamble[:]...)
	req = append(req, block[:]...)
	if err := t.WriteAll(req); err != nil {
		return version.Null, fmt.Errorf("handshake write failed: %w", err)
	}

	var resp [version.EntrySize]byte
	if err := t.ReadFull(resp[:]); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return version.Null, fmt.Errorf("handshake read failed: server closed connection: %w", err)
		}
		return version.Null, fmt.Errorf("handshake read failed: %w", err)
	}

	chosen := version.EntryFromBytes(resp[:])
	if chosen.IsNull() {
		return version.Null, ErrNoCompatibleVersion
	}
	if !version.Contains(proposed, chosen) {
		return version.Null, fmt.Errorf("%w: server chose unproposed version %s", ErrProtocolViolation, chosen)
	}

	return chosen, nil
}
