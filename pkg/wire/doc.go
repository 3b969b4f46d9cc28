// Package wire identifies Bolt messages without decoding them.
//
// Message payloads are opaque to this library; encoding and decoding of the
// PackStream values they carry belongs to an external serialization layer.
// Every Bolt message nevertheless starts with a structure marker and a
// signature byte, which together identify the message kind and its field
// count. Peek reads only that prefix, so the connection layer and tooling
// can classify traffic for logging and diagnostics.
//
// Several signatures are shared between protocol generations (INIT/HELLO,
// RUN/RUN with metadata, DISCARD_ALL/DISCARD, PULL_ALL/PULL) and are
// disambiguated by the structure's field count.
package wire
