// Package version provides Bolt protocol version parsing, comparison, and
// handshake wire encoding.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// EntrySize is the size of one encoded version entry in the handshake.
const EntrySize = 4

// MaxProposed is the number of version slots in a handshake proposal.
const MaxProposed = 4

// ProtocolVersion represents a Bolt "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// Null is the all-zero version. On the wire it pads unused proposal slots;
// a server that supports none of the proposed versions replies with it.
var Null = ProtocolVersion{}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint8(major), Minor: uint8(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsNull reports whether this is the all-zero version.
func (v ProtocolVersion) IsNull() bool {
	return v == Null
}

// Less reports whether v is ordered before other. Negotiation prefers
// higher versions.
func (v ProtocolVersion) Less(other ProtocolVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// PutEntry encodes the version into the first EntrySize bytes of buf.
// The wire layout is two reserved zero bytes, then minor, then major.
func (v ProtocolVersion) PutEntry(buf []byte) {
	_ = buf[EntrySize-1]
	buf[0] = 0
	buf[1] = 0
	buf[2] = v.Minor
	buf[3] = v.Major
}

// EntryFromBytes decodes a version from the first EntrySize bytes of buf.
func EntryFromBytes(buf []byte) ProtocolVersion {
	_ = buf[EntrySize-1]
	return ProtocolVersion{Major: buf[3], Minor: buf[2]}
}

// DefaultProposed returns the versions this library proposes during the
// handshake, most preferred first.
func DefaultProposed() []ProtocolVersion {
	return []ProtocolVersion{
		{Major: 4, Minor: 2},
		{Major: 4, Minor: 1},
		{Major: 4, Minor: 0},
		{Major: 3, Minor: 0},
	}
}

// EncodeProposal encodes up to MaxProposed versions into the fixed-size
// proposal block sent during the handshake. Unused slots are padded with
// the null version. Proposing more than MaxProposed versions or proposing
// the null version is an error.
func EncodeProposal(proposed []ProtocolVersion) ([MaxProposed * EntrySize]byte, error) {
	var block [MaxProposed * EntrySize]byte

	if len(proposed) == 0 {
		return block, fmt.Errorf("no versions proposed")
	}
	if len(proposed) > MaxProposed {
		return block, fmt.Errorf("too many proposed versions: %d > %d", len(proposed), MaxProposed)
	}

	for i, v := range proposed {
		if v.IsNull() {
			return block, fmt.Errorf("proposal slot %d is the null version", i)
		}
		v.PutEntry(block[i*EntrySize:])
	}
	return block, nil
}

// Contains reports whether vs contains v.
func Contains(vs []ProtocolVersion, v ProtocolVersion) bool {
	for _, candidate := range vs {
		if candidate == v {
			return true
		}
	}
	return false
}
