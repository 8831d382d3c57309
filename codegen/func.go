package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

// funcEmitter carries the per-function state the statement/expression
// emitters need: the local slot map, the body writer, and the break-target
// label stack for nested loops.
type funcEmitter struct {
	g          *Generator
	fn         *ast.FuncDecl
	w          *wasm.Writer
	localIdx    map[string]int
	localTypes  []ast.ValType
	localSig    map[string]*ast.FuncSig // function-typed params, for call_indirect
	returnSlot  int                     // -1 for a subroutine
	labelStack  []bool
	tempCount   int // anonymous locals allocated for multi-step lowerings
}

const returnLocalName = "$_return"

func (g *Generator) emitCodeSection(w *wasm.Writer) error {
	if len(g.localFuncs) == 0 {
		return nil
	}
	var firstErr error
	w.Section(wasm.SectionCode, func(s *wasm.Writer) {
		s.WriteU32(uint32(len(g.localFuncs)))
		for _, fn := range g.localFuncs {
			body, err := g.emitFuncBody(fn)
			if err != nil && firstErr == nil {
				firstErr = err
				continue
			}
			s.WriteU32(uint32(len(body)))
			s.WriteBytes(body)
		}
	})
	return firstErr
}

func (g *Generator) emitFuncBody(fn *ast.FuncDecl) ([]byte, error) {
	e := &funcEmitter{g: g, fn: fn, w: wasm.NewWriter(), localIdx: map[string]int{}, localSig: map[string]*ast.FuncSig{}, returnSlot: -1}

	for _, p := range fn.Params {
		e.declareLocal(p.Name, paramType(p))
		if p.FuncSig != nil {
			e.localSig[p.Name] = p.FuncSig
		}
	}
	for _, l := range fn.Locals {
		e.declareLocal(l.Name, localType(l))
	}
	if !fn.IsSub {
		e.returnSlot = len(e.localTypes)
		e.declareLocal(returnLocalName, fn.Return)
		e.localIdx[fn.Name] = e.returnSlot
	}

	for _, s := range fn.Body {
		if err := e.emitStmt(s); err != nil {
			return nil, err
		}
	}

	if !fn.IsSub {
		e.w.Byte(wasm.OpLocalGet)
		e.w.WriteU32(uint32(e.returnSlot))
	}
	e.w.Byte(wasm.OpEnd)

	// The locals vector is encoded only after the body is fully emitted,
	// since statement/expression emission can introduce its own temporary
	// locals (e.g. integer min/max lowering).
	declStart := len(fn.Params)
	groups := runLengthTypes(e.localTypes[declStart:])

	body := wasm.NewWriter()
	body.WriteU32(uint32(len(groups)))
	for _, grp := range groups {
		body.WriteU32(uint32(grp.count))
		body.Byte(byte(toWasmType(grp.typ)))
	}

	body.WriteBytes(e.w.Bytes)
	return body.Bytes, nil
}

func (e *funcEmitter) declareLocal(name string, typ ast.ValType) {
	e.localIdx[name] = len(e.localTypes)
	e.localTypes = append(e.localTypes, typ)
}

// tempSlot allocates an anonymous local of the given type for multi-step
// instruction lowerings (e.g. integer min/max via compare-and-select) and
// returns its index. The name is internal and never resolvable by source.
func (e *funcEmitter) tempSlot(typ ast.ValType) int {
	idx := len(e.localTypes)
	e.localTypes = append(e.localTypes, typ)
	e.tempCount++
	return idx
}

func paramType(p *ast.Param) ast.ValType {
	if p.IsArray {
		return ast.I32
	}
	return p.Type
}

func localType(l *ast.Local) ast.ValType {
	if l.IsArray {
		return ast.I32
	}
	return l.Type
}

type typeGroup struct {
	count int
	typ   ast.ValType
}

func runLengthTypes(types []ast.ValType) []typeGroup {
	var groups []typeGroup
	for _, t := range types {
		if len(groups) > 0 && groups[len(groups)-1].typ == t {
			groups[len(groups)-1].count++
			continue
		}
		groups = append(groups, typeGroup{count: 1, typ: t})
	}
	return groups
}

func (e *funcEmitter) pushLabel(isBreakTarget bool) {
	e.labelStack = append(e.labelStack, isBreakTarget)
}

func (e *funcEmitter) popLabel() {
	e.labelStack = e.labelStack[:len(e.labelStack)-1]
}

func (e *funcEmitter) breakDepth(pos ast.Pos) (int, error) {
	for i := len(e.labelStack) - 1; i >= 0; i-- {
		if e.labelStack[i] {
			return len(e.labelStack) - 1 - i, nil
		}
	}
	return 0, errors.Undefined(errors.PhaseGenerate, pos, "enclosing loop", "break")
}
