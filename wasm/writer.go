package wasm

import (
	"encoding/binary"
	"math"
)

// Writer is an append-only byte buffer with helpers for the encodings the
// WASM binary format requires: unsigned/signed LEB128, little-endian
// IEEE-754 floats, and length-prefixed UTF-8 strings.
type Writer struct {
	Bytes []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Byte appends a single byte.
func (w *Writer) Byte(b byte) {
	w.Bytes = append(w.Bytes, b)
}

// WriteBytes appends a raw byte slice.
func (w *Writer) WriteBytes(v []byte) {
	w.Bytes = append(w.Bytes, v...)
}

// WriteU32 writes v as unsigned LEB128.
func (w *Writer) WriteU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.Byte(b)
		if v == 0 {
			return
		}
	}
}

// WriteU64 writes v as unsigned LEB128.
func (w *Writer) WriteU64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.Byte(b)
		if v == 0 {
			return
		}
	}
}

// WriteI32 writes v as signed LEB128.
func (w *Writer) WriteI32(v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.Byte(b)
			return
		}
		w.Byte(b | 0x80)
	}
}

// WriteI64 writes v as signed LEB128.
func (w *Writer) WriteI64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.Byte(b)
			return
		}
		w.Byte(b | 0x80)
	}
}

// WriteF32 writes a little-endian IEEE-754 single.
func (w *Writer) WriteF32(v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	w.WriteBytes(buf[:])
}

// WriteF64 writes a little-endian IEEE-754 double.
func (w *Writer) WriteF64(v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.WriteBytes(buf[:])
}

// WriteName writes a length-prefixed UTF-8 string.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.Bytes = append(w.Bytes, s...)
}

// WriteLimits writes a resizable-limits descriptor (used by memory/table).
func (w *Writer) WriteLimits(min uint32, max *uint32) {
	if max != nil {
		w.Byte(0x01)
		w.WriteU32(min)
		w.WriteU32(*max)
		return
	}
	w.Byte(0x00)
	w.WriteU32(min)
}

// Section writes the section contents built by fn into a scratch buffer,
// then emits id, the content's unsigned-LEB128 length, and the content
// itself into w. The length has to be computed after the content is known
// because WASM sections are length-prefixed.
func (w *Writer) Section(id byte, fn func(*Writer)) {
	sec := NewWriter()
	fn(sec)
	w.Byte(id)
	w.WriteU32(uint32(len(sec.Bytes)))
	w.WriteBytes(sec.Bytes)
}
