// Package wasm provides the byte-level primitives Atra's code generator
// emits against: LEB128 and IEEE-754 encoding, section framing, and the
// binary format's opcode and type-code constants.
//
// It does not parse or validate WASM binaries — Atra only ever produces
// them. A Writer accumulates bytes and knows how to length-prefix a
// section once its contents are known:
//
//	w := wasm.NewWriter()
//	w.WriteBytes([]byte{0, 'a', 's', 'm', 1, 0, 0, 0})
//	w.Section(wasm.SectionType, func(s *wasm.Writer) {
//		s.WriteU32(uint32(len(types)))
//		...
//	})
package wasm
