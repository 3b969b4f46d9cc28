// Package connection implements the Bolt client connection: version
// negotiation at connection start, chunked message exchange, and pipelined
// request/response sequencing.
//
// A Connection owns its Transport exclusively and moves through the states
// Unconnected, Handshaking, Ready, and Closed. The handshake runs exactly
// once, before any message is exchanged; once Ready, the negotiated
// protocol version is fixed for the connection's lifetime. Closed is
// terminal.
//
// Callers may pipeline: several Send calls can precede the matching
// Receive calls, and responses arrive in strict send order. All operations
// on one Connection must be issued sequentially; use one Connection per
// goroutine or synchronize externally.
//
// The Connection never retries. After any fatal error it transitions to
// Closed and releases the Transport; recovery is always a fresh
// Connection, which Redialer automates with exponential backoff.
package connection
