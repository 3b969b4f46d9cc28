package connection

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
)

// scriptServer reads the full handshake request from conn, checks its shape,
// and answers with the given 4 bytes.
func scriptServer(t *testing.T, conn net.Conn, reply [4]byte) <-chan []byte {
	t.Helper()
	got := make(chan []byte, 1)
	go func() {
		defer conn.Close()
		buf := make([]byte, len(Preamble)+version.MaxProposed*version.EntrySize)
		if _, err := io.ReadFull(conn, buf); err != nil {
			close(got)
			return
		}
		got <- buf
		conn.Write(reply[:])
	}()
	return got
}

func TestNegotiateAgreesOnProposedVersion(t *testing.T) {
	client, server := net.Pipe()
	got := scriptServer(t, server, [4]byte{0x00, 0x00, 0x01, 0x04}) // 4.1

	tr := transport.NewNetTransport(client, transport.DefaultConfig())
	defer tr.Close()

	agreed, err := negotiate(tr, version.DefaultProposed())
	require.NoError(t, err)
	assert.Equal(t, version.ProtocolVersion{Major: 4, Minor: 1}, agreed)

	req := <-got
	assert.Equal(t, Preamble[:], req[:4])
	// Most preferred version occupies the first slot.
	assert.Equal(t, []byte{0x00, 0x00, 0x02, 0x04}, req[4:8])
}

func TestNegotiateNoCompatibleVersion(t *testing.T) {
	client, server := net.Pipe()
	scriptServer(t, server, [4]byte{0x00, 0x00, 0x00, 0x00})

	tr := transport.NewNetTransport(client, transport.DefaultConfig())
	defer tr.Close()

	_, err := negotiate(tr, version.DefaultProposed())
	assert.ErrorIs(t, err, ErrNoCompatibleVersion)
}

func TestNegotiateUnproposedVersionIsViolation(t *testing.T) {
	client, server := net.Pipe()
	scriptServer(t, server, [4]byte{0x00, 0x00, 0x08, 0x09}) // 9.8 was never offered

	tr := transport.NewNetTransport(client, transport.DefaultConfig())
	defer tr.Close()

	_, err := negotiate(tr, version.DefaultProposed())
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestNegotiateServerClosesEarly(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		buf := make([]byte, len(Preamble)+version.MaxProposed*version.EntrySize)
		io.ReadFull(server, buf)
		server.Close()
	}()

	tr := transport.NewNetTransport(client, transport.DefaultConfig())
	defer tr.Close()

	_, err := negotiate(tr, version.DefaultProposed())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCompatibleVersion)
}

func TestNegotiateRejectsEmptyProposal(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := transport.NewNetTransport(client, transport.DefaultConfig())
	_, err := negotiate(tr, nil)
	assert.Error(t, err)
}
