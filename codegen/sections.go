package codegen

import "github.com/atra-lang/atra/wasm"

// emit is pass 5: write the magic number, version, and each non-empty
// section in the fixed order Type, Import, Function, Table, Global,
// Export, Element, Code. There is no Memory section: a module never owns
// its memory, so every non-empty memory use is satisfied by the Import
// section instead (see hasImportedMemory).
func (g *Generator) emit() ([]byte, error) {
	w := wasm.NewWriter()
	w.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6D})
	w.WriteBytes([]byte{0x01, 0x00, 0x00, 0x00})

	g.emitTypeSection(w)
	g.emitImportSection(w)
	g.emitFunctionSection(w)
	g.emitTableSection(w)
	if err := g.emitGlobalSection(w); err != nil {
		return nil, err
	}
	g.emitExportSection(w)
	g.emitElementSection(w)
	if err := g.emitCodeSection(w); err != nil {
		return nil, err
	}

	return w.Bytes, nil
}

func (g *Generator) emitTypeSection(w *wasm.Writer) {
	if len(g.sigs) == 0 {
		return
	}
	w.Section(wasm.SectionType, func(s *wasm.Writer) {
		s.WriteU32(uint32(len(g.sigs)))
		for _, sig := range g.sigs {
			s.Byte(0x60) // func type tag
			s.WriteU32(uint32(len(sig.Params)))
			for _, p := range sig.Params {
				s.Byte(byte(toWasmType(p)))
			}
			if sig.IsVoid {
				s.WriteU32(0)
			} else {
				s.WriteU32(1)
				s.Byte(byte(toWasmType(sig.Return)))
			}
		}
	})
}

// hasImportedMemory reports whether the module needs linear memory at all
// (array access, memory_* builtins). A module never owns its memory, only
// ever imports it from `env`: Compile never sees userImports, so it cannot
// know whether the embedder will hand it a shared buffer, and importing
// unconditionally lets `link` satisfy it either way (the caller's Memory
// option, or a default single-page memory when none is given). There is
// no own-memory code path to guard against — this is just needsMemory
// under the name that reads correctly at its call sites.
func (g *Generator) hasImportedMemory() bool {
	return g.needsMemory
}

func (g *Generator) emitImportSection(w *wasm.Writer) {
	if len(g.imports) == 0 && !g.hasImportedMemory() {
		return
	}
	w.Section(wasm.SectionImport, func(s *wasm.Writer) {
		n := len(g.imports)
		if g.hasImportedMemory() {
			n++
		}
		s.WriteU32(uint32(n))
		for _, imp := range g.imports {
			s.WriteName(imp.module)
			s.WriteName(imp.field)
			s.Byte(wasm.KindFunc)
			s.WriteU32(uint32(g.sigOf(imp.sig)))
		}
		if g.hasImportedMemory() {
			s.WriteName("env")
			s.WriteName("memory")
			s.Byte(wasm.KindMemory)
			s.WriteLimits(1, nil)
		}
	})
}

func (g *Generator) emitFunctionSection(w *wasm.Writer) {
	if len(g.localFuncs) == 0 {
		return
	}
	w.Section(wasm.SectionFunction, func(s *wasm.Writer) {
		s.WriteU32(uint32(len(g.localFuncs)))
		for _, fn := range g.localFuncs {
			s.WriteU32(uint32(g.sigOf(fn.Sig())))
		}
	})
}

func (g *Generator) emitTableSection(w *wasm.Writer) {
	if !g.needsTable {
		return
	}
	w.Section(wasm.SectionTable, func(s *wasm.Writer) {
		s.Byte(1)
		s.Byte(byte(wasm.ValFuncRef))
		s.WriteLimits(uint32(len(g.tableOrder)), nil)
	})
}

func (g *Generator) emitGlobalSection(w *wasm.Writer) error {
	if len(g.mod.Globals) == 0 {
		return nil
	}
	var firstErr error
	w.Section(wasm.SectionGlobal, func(s *wasm.Writer) {
		s.WriteU32(uint32(len(g.mod.Globals)))
		for _, gd := range g.mod.Globals {
			typ := gd.Type
			if gd.FuncSig != nil {
				typ = astI32()
			}
			s.Byte(byte(toWasmType(typ)))
			if gd.Mutable {
				s.Byte(1)
			} else {
				s.Byte(0)
			}
			if err := writeConstInit(s, typ, gd.Init); err != nil && firstErr == nil {
				firstErr = err
			}
			s.Byte(wasm.OpEnd)
		}
	})
	return firstErr
}

func (g *Generator) emitExportSection(w *wasm.Writer) {
	n := len(g.localFuncs)
	if n == 0 {
		return
	}
	w.Section(wasm.SectionExport, func(s *wasm.Writer) {
		s.WriteU32(uint32(n))
		for _, fn := range g.localFuncs {
			s.WriteName(fn.Name)
			s.Byte(wasm.KindFunc)
			s.WriteU32(uint32(g.funcIndex[fn.Name]))
		}
	})
}

func (g *Generator) emitElementSection(w *wasm.Writer) {
	if !g.needsTable {
		return
	}
	w.Section(wasm.SectionElement, func(s *wasm.Writer) {
		s.WriteU32(1)
		s.WriteU32(0) // table index 0
		s.Byte(wasm.OpI32Const)
		s.WriteI32(0)
		s.Byte(wasm.OpEnd)
		s.WriteU32(uint32(len(g.tableOrder)))
		for _, name := range g.tableOrder {
			s.WriteU32(uint32(g.funcIndex[name]))
		}
	})
}
