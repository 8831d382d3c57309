package wasm_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/atra-lang/atra/wasm"
)

func TestLEB128UnsignedRoundTrip(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0x80, 0x02}, 256},
		{[]byte{0xff, 0x7f}, 16383},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		w := wasm.NewWriter()
		w.WriteU32(tt.value)
		if !bytes.Equal(w.Bytes, tt.encoded) {
			t.Errorf("encode %d: got %v, want %v", tt.value, w.Bytes, tt.encoded)
		}

		got, err := wasm.ReadLEB128u(bytes.NewReader(tt.encoded))
		if err != nil {
			t.Fatalf("decode %v: %v", tt.encoded, err)
		}
		if got != tt.value {
			t.Errorf("decode %v: got %d, want %d", tt.encoded, got, tt.value)
		}
	}
}

// TestLEB128UnsignedFuzzRoundTrip exercises spec property 1: for every
// unsigned integer in [0, 2^32), decoding its unsigned-LEB128 encoding
// yields the original value.
func TestLEB128UnsignedFuzzRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := []uint32{0, 1, 0xFFFFFFFF, 0x80000000, 0x7FFFFFFF}
	for i := 0; i < 2000; i++ {
		values = append(values, rng.Uint32())
	}

	for _, v := range values {
		w := wasm.NewWriter()
		w.WriteU32(v)
		got, err := wasm.ReadLEB128u(bytes.NewReader(w.Bytes))
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

// TestLEB128SignedFuzzRoundTrip exercises spec property 1 for the signed
// encoding: every integer in [-2^31, 2^31) round-trips.
func TestLEB128SignedFuzzRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	values := []int32{0, 1, -1, 2147483647, -2147483648, 63, 64, -64, -65}
	for i := 0; i < 2000; i++ {
		values = append(values, int32(rng.Uint32()))
	}

	for _, v := range values {
		w := wasm.NewWriter()
		w.WriteI32(v)
		got, err := wasm.ReadLEB128s(bytes.NewReader(w.Bytes))
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestWriterSectionFraming(t *testing.T) {
	w := wasm.NewWriter()
	w.Section(wasm.SectionType, func(s *wasm.Writer) {
		s.WriteU32(3)
	})
	want := []byte{wasm.SectionType, 0x01, 0x03}
	if !bytes.Equal(w.Bytes, want) {
		t.Errorf("got %v, want %v", w.Bytes, want)
	}
}

func TestWriterFloats(t *testing.T) {
	w := wasm.NewWriter()
	w.WriteF64(1.5)
	if len(w.Bytes) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(w.Bytes))
	}
}
