// Package codegen turns a parsed Atra module into a WebAssembly 1.0
// binary, following the five-pass pipeline: collection, call discovery,
// auto-import synthesis, reference discovery, and emission.
package codegen

import (
	"sort"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

// TableMap maps a function name to its slot in the module's funcref table.
// A table exists when a function-typed parameter or global is declared or
// any @name is used; it then holds every explicit import and every local
// function, plus each auto-import that an @name references.
type TableMap map[string]int

// LayoutField describes one field of a compiled layout for the embedder.
type LayoutField struct {
	Offset   int
	Count    int // element count for an array field, 0 otherwise
	ElemSize int
}

// LayoutMap mirrors every layout declaration's field offsets plus its
// __size/__align pseudo-fields, keyed first by layout name then by field.
type LayoutMap map[string]map[string]LayoutField

// importKind distinguishes the three import sources a call name can
// resolve to once it isn't a local function.
type importKind int

const (
	importExplicit importKind = iota // declared with `import module.field(...)`
	importMath                       // one of the fixed math builtin names
	importHost                       // everything else, resolved at link time
)

type importFunc struct {
	name   string // the Atra-visible call name
	module string
	field  string
	sig    ast.FuncSig
	kind   importKind
}

// Generator holds all of the bookkeeping the five passes build up before
// emission: the deduplicated signature table, the function index space
// (imports first, then locals), global slots, and the optional funcref
// table.
type Generator struct {
	mod *ast.Module

	sigs     []ast.FuncSig
	sigIndex map[string]int

	imports    []*importFunc
	importIdx  map[string]int // name -> function index
	localFuncs []*ast.FuncDecl
	funcIndex  map[string]int // name -> function index (imports + locals)

	globalIndex map[string]int

	calledNames map[string]bool
	needsMemory bool

	needsTable bool
	tableOrder []string
	tableSlot  map[string]int
}

// Generate runs the full pipeline and returns the encoded module, its
// table map (nil if no table was produced), and its layout map.
func Generate(mod *ast.Module) ([]byte, TableMap, LayoutMap, error) {
	g := &Generator{
		mod:         mod,
		sigIndex:    map[string]int{},
		importIdx:   map[string]int{},
		funcIndex:   map[string]int{},
		globalIndex: map[string]int{},
		calledNames: map[string]bool{},
		tableSlot:   map[string]int{},
	}

	if err := g.collect(); err != nil {
		return nil, nil, nil, err
	}
	g.discoverCalls()
	if err := g.synthesizeImports(); err != nil {
		return nil, nil, nil, err
	}
	if err := g.discoverReferences(); err != nil {
		return nil, nil, nil, err
	}

	out, err := g.emit()
	if err != nil {
		return nil, nil, nil, err
	}

	var tm TableMap
	if g.needsTable {
		tm = TableMap{}
		for name, slot := range g.tableSlot {
			tm[name] = slot
		}
	}
	return out, tm, buildLayoutMap(mod), nil
}

func buildLayoutMap(mod *ast.Module) LayoutMap {
	lm := LayoutMap{}
	for _, ld := range mod.Layouts {
		fields := map[string]LayoutField{
			"__size":  {Offset: ld.Size},
			"__align": {Offset: ld.Align},
		}
		for _, f := range ld.Fields {
			lf := LayoutField{Offset: f.Offset}
			if f.Type.IsArray {
				lf.Count = f.Type.ArrayCount
				if f.Type.IsLayout {
					lf.ElemSize = f.Size / f.Type.ArrayCount
				} else {
					lf.ElemSize = f.Type.Prim.Size()
				}
			}
			fields[f.Name] = lf
		}
		lm[ld.Name] = fields
	}
	return lm
}

// sigOf returns the type-section index for sig, registering it if new.
func (g *Generator) sigOf(sig ast.FuncSig) int {
	key := sig.Key()
	if idx, ok := g.sigIndex[key]; ok {
		return idx
	}
	idx := len(g.sigs)
	g.sigs = append(g.sigs, sig)
	g.sigIndex[key] = idx
	return idx
}

func toWasmType(t ast.ValType) wasm.ValType {
	switch t {
	case ast.I32:
		return wasm.ValI32
	case ast.I64:
		return wasm.ValI64
	case ast.F32:
		return wasm.ValF32
	case ast.F64:
		return wasm.ValF64
	case ast.F64x2, ast.F32x4, ast.I32x4, ast.I64x2:
		return wasm.ValV128
	}
	return wasm.ValI32
}

// sortedKeys returns m's keys in ascending order, for deterministic
// emission order when a pass needs one but map iteration doesn't provide it.
func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func undefined(phase errors.Phase, pos ast.Pos, kind, name string) error {
	return errors.Undefined(phase, pos, kind, name)
}

func blockTypeFor(t ast.ValType) int32 {
	switch t {
	case ast.I64:
		return wasm.BlockTypeI64
	case ast.F32:
		return wasm.BlockTypeF32
	case ast.F64:
		return wasm.BlockTypeF64
	case ast.F64x2, ast.F32x4, ast.I32x4, ast.I64x2:
		return wasm.BlockTypeV128
	default:
		return wasm.BlockTypeI32
	}
}
