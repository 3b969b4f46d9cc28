package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PackStream structure markers.
const (
	// MarkerTinyStruct is the base marker for structures with 0-15 fields.
	// The low nibble holds the field count.
	MarkerTinyStruct = 0xB0

	// MarkerSmallStruct precedes an 8-bit field count.
	MarkerSmallStruct = 0xDC

	// MarkerMediumStruct precedes a 16-bit big-endian field count.
	MarkerMediumStruct = 0xDD
)

// Message signature bytes.
const (
	SigInit       = 0x01 // also HELLO
	SigGoodbye    = 0x02
	SigAckFailure = 0x0E
	SigReset      = 0x0F
	SigRun        = 0x10 // also RUN with metadata
	SigBegin      = 0x11
	SigCommit     = 0x12
	SigRollback   = 0x13
	SigDiscardAll = 0x2F // also DISCARD
	SigPullAll    = 0x3F // also PULL
	SigSuccess    = 0x70
	SigRecord     = 0x71
	SigIgnored    = 0x7E
	SigFailure    = 0x7F
)

// Peek errors.
var (
	// ErrEmptyMessage indicates a zero-length message.
	ErrEmptyMessage = errors.New("empty message")

	// ErrNotStructure indicates the message does not start with a
	// PackStream structure marker.
	ErrNotStructure = errors.New("message is not a structure")

	// ErrShortMessage indicates the message ends inside the structure header.
	ErrShortMessage = errors.New("message too short for structure header")
)

// Kind classifies a Bolt message.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInit
	KindHello
	KindGoodbye
	KindAckFailure
	KindReset
	KindRun
	KindRunWithMetadata
	KindBegin
	KindCommit
	KindRollback
	KindDiscardAll
	KindDiscard
	KindPullAll
	KindPull
	KindSuccess
	KindRecord
	KindIgnored
	KindFailure
)

// String returns the protocol name of the message kind.
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "INIT"
	case KindHello:
		return "HELLO"
	case KindGoodbye:
		return "GOODBYE"
	case KindAckFailure:
		return "ACK_FAILURE"
	case KindReset:
		return "RESET"
	case KindRun:
		return "RUN"
	case KindRunWithMetadata:
		return "RUN_WITH_METADATA"
	case KindBegin:
		return "BEGIN"
	case KindCommit:
		return "COMMIT"
	case KindRollback:
		return "ROLLBACK"
	case KindDiscardAll:
		return "DISCARD_ALL"
	case KindDiscard:
		return "DISCARD"
	case KindPullAll:
		return "PULL_ALL"
	case KindPull:
		return "PULL"
	case KindSuccess:
		return "SUCCESS"
	case KindRecord:
		return "RECORD"
	case KindIgnored:
		return "IGNORED"
	case KindFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// IsResponse reports whether the kind is a server-to-client message.
func (k Kind) IsResponse() bool {
	switch k {
	case KindSuccess, KindRecord, KindIgnored, KindFailure:
		return true
	default:
		return false
	}
}

// Info describes the head of a Bolt message.
type Info struct {
	// Kind is the classified message kind, KindUnknown for
	// unrecognized signatures.
	Kind Kind

	// Signature is the raw signature byte.
	Signature uint8

	// Fields is the structure's declared field count.
	Fields uint16
}

// String returns "KIND/fields".
func (i Info) String() string {
	return fmt.Sprintf("%s/%d", i.Kind, i.Fields)
}

// Peek classifies a message from its structure header without decoding the
// payload. The message bytes are not modified.
func Peek(msg []byte) (Info, error) {
	if len(msg) == 0 {
		return Info{}, ErrEmptyMessage
	}

	marker := msg[0]
	var fields uint16
	var sigIndex int

	switch {
	case marker >= MarkerTinyStruct && marker <= MarkerTinyStruct|0x0F:
		fields = uint16(marker & 0x0F)
		sigIndex = 1
	case marker == MarkerSmallStruct:
		if len(msg) < 3 {
			return Info{}, ErrShortMessage
		}
		fields = uint16(msg[1])
		sigIndex = 2
	case marker == MarkerMediumStruct:
		if len(msg) < 4 {
			return Info{}, ErrShortMessage
		}
		fields = binary.BigEndian.Uint16(msg[1:3])
		sigIndex = 3
	default:
		return Info{}, fmt.Errorf("%w: marker 0x%02X", ErrNotStructure, marker)
	}

	if len(msg) <= sigIndex {
		return Info{}, ErrShortMessage
	}
	sig := msg[sigIndex]

	return Info{
		Kind:      classify(sig, fields),
		Signature: sig,
		Fields:    fields,
	}, nil
}

// classify maps a signature byte to a message kind. Shared signatures are
// disambiguated by field count, following the official drivers.
func classify(sig uint8, fields uint16) Kind {
	switch sig {
	case SigInit:
		// INIT has 2 fields, HELLO has 1.
		if fields == 2 {
			return KindInit
		}
		return KindHello
	case SigGoodbye:
		return KindGoodbye
	case SigAckFailure:
		return KindAckFailure
	case SigReset:
		return KindReset
	case SigRun:
		// RUN has 2 fields, RUN with metadata has 3.
		if fields == 2 {
			return KindRun
		}
		return KindRunWithMetadata
	case SigBegin:
		return KindBegin
	case SigCommit:
		return KindCommit
	case SigRollback:
		return KindRollback
	case SigDiscardAll:
		// DISCARD_ALL has 0 fields, DISCARD has 1.
		if fields == 0 {
			return KindDiscardAll
		}
		return KindDiscard
	case SigPullAll:
		// PULL_ALL has 0 fields, PULL has 1.
		if fields == 0 {
			return KindPullAll
		}
		return KindPull
	case SigSuccess:
		return KindSuccess
	case SigRecord:
		return KindRecord
	case SigIgnored:
		return KindIgnored
	case SigFailure:
		return KindFailure
	default:
		return KindUnknown
	}
}
