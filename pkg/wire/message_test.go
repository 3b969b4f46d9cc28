package wire

import (
	"errors"
	"testing"
)

func TestPeek(t *testing.T) {
	tests := []struct {
		name   string
		msg    []byte
		kind   Kind
		fields uint16
	}{
		{
			name: "init",
			// From the official driver test vectors: INIT with client
			// name and auth token.
			msg: []byte{
				0xB2, 0x01, 0x8C, 0x4D, 0x79, 0x43, 0x6C, 0x69,
				0x65, 0x6E, 0x74, 0x2F, 0x31, 0x2E, 0x30, 0xA1,
				0x86, 0x73, 0x63, 0x68, 0x65, 0x6D, 0x65, 0x85,
				0x62, 0x61, 0x73, 0x69, 0x63,
			},
			kind:   KindInit,
			fields: 2,
		},
		{
			name:   "hello",
			msg:    []byte{0xB1, 0x01, 0xA0},
			kind:   KindHello,
			fields: 1,
		},
		{
			name:   "goodbye",
			msg:    []byte{0xB0, 0x02},
			kind:   KindGoodbye,
			fields: 0,
		},
		{
			name:   "ack failure",
			msg:    []byte{0xB0, 0x0E},
			kind:   KindAckFailure,
			fields: 0,
		},
		{
			name:   "reset",
			msg:    []byte{0xB0, 0x0F},
			kind:   KindReset,
			fields: 0,
		},
		{
			name:   "run",
			msg:    []byte{0xB2, 0x10, 0x81, 0x78, 0xA0},
			kind:   KindRun,
			fields: 2,
		},
		{
			name:   "run with metadata",
			msg:    []byte{0xB3, 0x10, 0x81, 0x78, 0xA0, 0xA0},
			kind:   KindRunWithMetadata,
			fields: 3,
		},
		{
			name:   "discard all",
			msg:    []byte{0xB0, 0x2F},
			kind:   KindDiscardAll,
			fields: 0,
		},
		{
			name:   "discard",
			msg:    []byte{0xB1, 0x2F, 0xA0},
			kind:   KindDiscard,
			fields: 1,
		},
		{
			name:   "pull all",
			msg:    []byte{0xB0, 0x3F},
			kind:   KindPullAll,
			fields: 0,
		},
		{
			name:   "pull",
			msg:    []byte{0xB1, 0x3F, 0xA0},
			kind:   KindPull,
			fields: 1,
		},
		{
			name:   "success",
			msg:    []byte{0xB1, 0x70, 0xA0},
			kind:   KindSuccess,
			fields: 1,
		},
		{
			name:   "record",
			msg:    []byte{0xB1, 0x71, 0x90},
			kind:   KindRecord,
			fields: 1,
		},
		{
			name:   "ignored",
			msg:    []byte{0xB0, 0x7E},
			kind:   KindIgnored,
			fields: 0,
		},
		{
			name:   "failure",
			msg:    []byte{0xB1, 0x7F, 0xA0},
			kind:   KindFailure,
			fields: 1,
		},
		{
			name:   "small struct marker",
			msg:    []byte{0xDC, 0x01, 0x70, 0xA0},
			kind:   KindSuccess,
			fields: 1,
		},
		{
			name:   "medium struct marker",
			msg:    []byte{0xDD, 0x00, 0x01, 0x71, 0x90},
			kind:   KindRecord,
			fields: 1,
		},
		{
			name:   "unknown signature",
			msg:    []byte{0xB0, 0x55},
			kind:   KindUnknown,
			fields: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Peek(tt.msg)
			if err != nil {
				t.Fatalf("Peek failed: %v", err)
			}
			if info.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", info.Kind, tt.kind)
			}
			if info.Fields != tt.fields {
				t.Errorf("Fields = %d, want %d", info.Fields, tt.fields)
			}
		})
	}
}

func TestPeek_Errors(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
		want error
	}{
		{"empty", nil, ErrEmptyMessage},
		{"not a structure", []byte{0xA0}, ErrNotStructure},
		{"tiny struct missing signature", []byte{0xB1}, ErrShortMessage},
		{"small struct missing count", []byte{0xDC}, ErrShortMessage},
		{"medium struct missing count", []byte{0xDD, 0x00}, ErrShortMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Peek(tt.msg)
			if !errors.Is(err, tt.want) {
				t.Errorf("Peek error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestKindIsResponse(t *testing.T) {
	responses := []Kind{KindSuccess, KindRecord, KindIgnored, KindFailure}
	for _, k := range responses {
		if !k.IsResponse() {
			t.Errorf("%v.IsResponse() = false, want true", k)
		}
	}

	requests := []Kind{KindInit, KindHello, KindRun, KindPull, KindReset}
	for _, k := range requests {
		if k.IsResponse() {
			t.Errorf("%v.IsResponse() = true, want false", k)
		}
	}
}
