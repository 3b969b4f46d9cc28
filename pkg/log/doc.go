// Package log provides structured protocol event logging for Bolt
// connections.
//
// Events are captured at three layers: the transport layer (chunked
// message transfers), the wire layer (classified messages), and the
// connection layer (handshake and lifecycle). Applications receive events
// through the Logger interface; pass nil or NoopLogger to disable logging.
//
// Events can be persisted as a CBOR stream with FileLogger and read back
// with Reader, or forwarded to a standard library slog.Logger with
// SlogAdapter. MultiLogger fans events out to several sinks.
package log
