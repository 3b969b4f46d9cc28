// Package transport provides the Bolt transport layer implementation.
//
// The transport layer handles:
//   - TCP connections, optionally wrapped in TLS
//   - Chunked message framing with 2-byte length headers
//   - Exact-read/exact-write byte stream semantics
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│     PackStream Messages        │
//	├────────────────────────────────┤
//	│   Chunked Framing (2B + 0000)  │
//	├────────────────────────────────┤
//	│       TLS (optional)           │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Chunking
//
// A message is transmitted as a sequence of chunks, each prefixed with a
// 2-byte big-endian length (1-65535), followed by a zero-length terminator
// chunk. An empty message is a single terminator chunk.
//
// Both Transport variants guarantee that callers either receive exactly the
// bytes they asked for or an error; no partial results ever propagate above
// this layer.
package transport
