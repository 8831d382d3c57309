package codegen

import (
	"testing"

	"github.com/atra-lang/atra/ast"
)

// numLit builds an untyped integer literal node.
func numLit(raw string) *ast.NumberLit {
	return &ast.NumberLit{Raw: raw}
}

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

// addModule builds the spec's canonical example: `function add(a, b: i32): i32 begin add := a + b end`.
func addModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name: "add",
		Params: []*ast.Param{
			{Name: "a", Type: ast.I32},
			{Name: "b", Type: ast.I32},
		},
		Return: ast.I32,
		Body: []ast.Stmt{
			&ast.Assign{Name: "add", Value: &ast.Binary{Op: "+", Left: ident("a"), Right: ident("b")}},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_Add(t *testing.T) {
	out, tm, lm, err := Generate(addModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) < 8 || string(out[:4]) != "\x00asm" {
		t.Fatalf("missing Wasm magic number, got % x", out[:4])
	}
	if tm != nil {
		t.Errorf("add needs no funcref table, got %v", tm)
	}
	if len(lm) != 0 {
		t.Errorf("add declares no layouts, got %v", lm)
	}
}

// factModule builds a recursive factorial function using a tail call:
// function fact(n: i32): i32
// begin
//
//	if (n <= 1) then call return(1) end if
//	tailcall fact(n - 1)
//
// end
//
// The tail call's i32 return matches fact's own, so generation succeeds;
// the real spec example multiplies by an accumulator, but the index-space
// and call-resolution behavior under test doesn't need that precision.
func factModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "fact",
		Params: []*ast.Param{{Name: "n", Type: ast.I32}},
		Return: ast.I32,
		Body: []ast.Stmt{
			&ast.If{
				Cond: &ast.Binary{Op: "<=", Left: ident("n"), Right: numLit("1")},
				Then: []ast.Stmt{&ast.Return{Value: numLit("1")}},
			},
			&ast.TailCall{Name: "fact", Args: []ast.Expr{&ast.Binary{Op: "-", Left: ident("n"), Right: numLit("1")}}},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_Fact_TailCall(t *testing.T) {
	out, _, _, err := Generate(factModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty module")
	}
}

func TestGenerate_TailCallReturnMismatch(t *testing.T) {
	mod := &ast.Module{Funcs: []*ast.FuncDecl{
		{
			Name:   "f",
			Return: ast.I32,
			Body: []ast.Stmt{
				&ast.TailCall{Name: "g"},
			},
		},
		{
			Name:   "g",
			Return: ast.F64,
			Body:   []ast.Stmt{&ast.Assign{Name: "g", Value: numLit("1")}},
		},
	}}
	if _, _, _, err := Generate(mod); err == nil {
		t.Fatal("expected a type-mismatch error for a tail call with a differing return type")
	}
}

// sumXModule exercises array parameters, a counted for loop and an
// automatically-imported host call inside the loop body, matching the
// named `sumX` scenario.
func sumXModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name: "sumX",
		Params: []*ast.Param{
			{Name: "xs", Type: ast.F64, IsArray: true, ArrayDims: []int{10}},
			{Name: "n", Type: ast.I32},
		},
		Return: ast.F64,
		Locals: []*ast.Local{{Name: "i", Type: ast.I32}},
		Body: []ast.Stmt{
			&ast.Assign{Name: "sumX", Value: numLit("0")},
			&ast.For{
				Var:   "i",
				Start: numLit("0"),
				End:   &ast.Binary{Op: "-", Left: ident("n"), Right: numLit("1")},
				Body: []ast.Stmt{
					&ast.Assign{
						Name: "sumX",
						Value: &ast.Binary{
							Op:   "+",
							Left: ident("sumX"),
							Right: &ast.Index{Name: "xs", Indices: []ast.Expr{ident("i")}},
						},
					},
					&ast.CallStmt{Name: "trace", Args: []ast.Expr{ident("i")}},
				},
			},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_SumX_ArrayAndHostImport(t *testing.T) {
	out, _, _, err := Generate(sumXModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty module")
	}
}

// sumXBarePointerModule is spec.md §8's literal sumX form: `arr` is a
// plain i32 parameter (not the array(dims) grammar) used as a raw
// linear-memory offset, with its element type inferred from the
// accumulator it feeds rather than from a declaration.
func sumXBarePointerModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "sumX",
		Params: []*ast.Param{{Name: "arr", Type: ast.I32}, {Name: "n", Type: ast.I32}},
		Return: ast.F64,
		Locals: []*ast.Local{{Name: "s", Type: ast.F64}, {Name: "i", Type: ast.I32}},
		Body: []ast.Stmt{
			&ast.Assign{Name: "s", Value: numLit("0")},
			&ast.For{
				Var:   "i",
				Start: numLit("0"),
				End:   ident("n"),
				Body: []ast.Stmt{
					&ast.Assign{
						Name: "s",
						Value: &ast.Binary{
							Op:    "+",
							Left:  ident("s"),
							Right: &ast.Index{Name: "arr", Indices: []ast.Expr{ident("i")}},
						},
					},
				},
			},
			&ast.Assign{Name: "sumX", Value: ident("s")},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_SumX_BarePointer(t *testing.T) {
	out, _, _, err := Generate(sumXBarePointerModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Indexing a bare i32 pointer must force an env.memory import just
	// like a declared array(dims) parameter does.
	if !containsSection(out, 0x02) {
		t.Error("sumX should import env.memory for its bare-pointer arr parameter")
	}
}

// TestGenerate_IndexingNonPointerFails checks that indexing a plain f64
// parameter (neither a declared array nor an i32 bare pointer) still
// fails, rather than silently treating every scalar as indexable.
func TestGenerate_IndexingNonPointerFails(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:   "f",
		Params: []*ast.Param{{Name: "x", Type: ast.F64}},
		Return: ast.F64,
		Body: []ast.Stmt{
			&ast.Assign{Name: "f", Value: &ast.Index{Name: "x", Indices: []ast.Expr{numLit("0")}}},
		},
	}
	if _, _, _, err := Generate(&ast.Module{Funcs: []*ast.FuncDecl{fn}}); err == nil {
		t.Fatal("expected an undefined-array error indexing an f64 parameter")
	}
}

// hypModule exercises the `**` power operator's sqrt special-case, since
// this is the one place `0.5`/`.5` lowers to an inline sqrt rather than a
// call to the auto-imported `pow`.
func hypModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "hyp",
		Params: []*ast.Param{{Name: "a", Type: ast.F64}, {Name: "b", Type: ast.F64}},
		Return: ast.F64,
		Body: []ast.Stmt{
			&ast.Assign{
				Name: "hyp",
				Value: &ast.Binary{
					Op: "**",
					Left: &ast.Binary{
						Op:   "+",
						Left: &ast.Binary{Op: "*", Left: ident("a"), Right: ident("a")},
						Right: &ast.Binary{Op: "*", Left: ident("b"), Right: ident("b")},
					},
					Right: numLit("0.5"),
				},
			},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_Hyp_SqrtSpecialCase(t *testing.T) {
	out, _, _, err := Generate(hypModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// No import section should appear: sqrt lowers inline, never through
	// the `pow` auto-import, so there is no import to synthesize at all.
	if containsSection(out, 0x02) {
		t.Error("hyp(a,b) ** 0.5 should not need any import")
	}
}

// add4Module exercises SIMD lane construction and vector arithmetic: the
// function builds two f64x2 vectors from scalar pairs and adds them.
func add4Module() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "add4",
		Params: []*ast.Param{{Name: "a1", Type: ast.F64}, {Name: "a2", Type: ast.F64}, {Name: "b1", Type: ast.F64}, {Name: "b2", Type: ast.F64}},
		Return: ast.F64x2,
		Body: []ast.Stmt{
			&ast.Assign{
				Name: "add4",
				Value: &ast.Binary{
					Op:   "+",
					Left: &ast.Convert{Type: ast.F64x2, Args: []ast.Expr{ident("a1"), ident("a2")}},
					Right: &ast.Convert{Type: ast.F64x2, Args: []ast.Expr{ident("b1"), ident("b2")}},
				},
			},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestGenerate_Add4_SIMD(t *testing.T) {
	out, _, _, err := Generate(add4Module())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty module")
	}
}

func TestGenerate_FuncRefAndTable(t *testing.T) {
	caller := &ast.FuncDecl{
		Name:   "apply",
		Params: []*ast.Param{{Name: "f", FuncSig: &ast.FuncSig{Params: []ast.ValType{ast.I32}, Return: ast.I32}}, {Name: "x", Type: ast.I32}},
		Return: ast.I32,
		Body:   []ast.Stmt{&ast.Assign{Name: "apply", Value: &ast.Call{Name: "f", Args: []ast.Expr{ident("x")}}}},
	}
	callee := &ast.FuncDecl{
		Name:   "inc",
		Params: []*ast.Param{{Name: "x", Type: ast.I32}},
		Return: ast.I32,
		Body:   []ast.Stmt{&ast.Assign{Name: "inc", Value: &ast.Binary{Op: "+", Left: ident("x"), Right: numLit("1")}}},
	}
	useRef := &ast.FuncDecl{
		Name:   "useRef",
		Return: ast.I32,
		Body: []ast.Stmt{
			&ast.Assign{Name: "useRef", Value: &ast.Call{Name: "apply", Args: []ast.Expr{&ast.FuncRef{Name: "inc"}, numLit("41")}}},
		},
	}
	mod := &ast.Module{Funcs: []*ast.FuncDecl{caller, callee, useRef}}

	_, tm, _, err := Generate(mod)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if tm == nil {
		t.Fatal("expected a funcref table when a function-typed param and @name are used")
	}
	if _, ok := tm["inc"]; !ok {
		t.Error("inc should have a table slot: it is referenced via @inc")
	}
}

// containsSection reports whether the encoded module has a section with
// the given id, scanning the (id, size, payload) records after the
// 8-byte header.
func containsSection(out []byte, id byte) bool {
	i := 8
	for i < len(out) {
		sid := out[i]
		i++
		size, n := readU32(out[i:])
		i += n
		if sid == id && size > 0 {
			return true
		}
		i += int(size)
	}
	return false
}

func readU32(b []byte) (uint32, int) {
	var result uint32
	var shift uint
	var n int
	for {
		byt := b[n]
		n++
		result |= uint32(byt&0x7f) << shift
		if byt&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, n
}

// recLayoutFields builds `layout Rec { id: i32; value: f64; end }`'s two
// fields before offsets are assigned, for both the packed and non-packed
// variant.
func recLayoutFields() []ast.LayoutField {
	return []ast.LayoutField{
		{Name: "id", Type: ast.LayoutFieldType{Prim: ast.I32}, Size: ast.I32.Size()},
		{Name: "value", Type: ast.LayoutFieldType{Prim: ast.F64}, Size: ast.F64.Size()},
	}
}

func TestComputeLayout_NonPacked(t *testing.T) {
	fields := recLayoutFields()
	size, align := ast.ComputeLayout(fields, false)
	if fields[0].Offset != 0 {
		t.Errorf("id offset = %d, want 0", fields[0].Offset)
	}
	if fields[1].Offset != 8 {
		t.Errorf("value offset = %d, want 8 (f64 aligns to 8, padding after the i32)", fields[1].Offset)
	}
	if size != 16 {
		t.Errorf("size = %d, want 16", size)
	}
	if align != 8 {
		t.Errorf("align = %d, want 8", align)
	}
}

func TestComputeLayout_Packed(t *testing.T) {
	fields := recLayoutFields()
	size, align := ast.ComputeLayout(fields, true)
	if fields[0].Offset != 0 {
		t.Errorf("id offset = %d, want 0", fields[0].Offset)
	}
	if fields[1].Offset != 4 {
		t.Errorf("value offset = %d, want 4 (packed: no alignment padding)", fields[1].Offset)
	}
	if size != 12 {
		t.Errorf("size = %d, want 12", size)
	}
	if align != 1 {
		t.Errorf("align = %d, want 1", align)
	}
}

// TestGenerate_LayoutMap checks that Generate's LayoutMap surfaces the
// same offsets under __size/__align/field-name keys for a module that
// declares Rec but never references it from a function body.
func TestGenerate_LayoutMap(t *testing.T) {
	fields := recLayoutFields()
	size, align := ast.ComputeLayout(fields, false)
	ld := &ast.LayoutDecl{Name: "Rec", Fields: fields, Size: size, Align: align}

	fn := &ast.FuncDecl{
		Name:   "f",
		Return: ast.I32,
		Body:   []ast.Stmt{&ast.Assign{Name: "f", Value: numLit("0")}},
	}
	mod := &ast.Module{Funcs: []*ast.FuncDecl{fn}, Layouts: []*ast.LayoutDecl{ld}}

	_, _, lm, err := Generate(mod)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, ok := lm["Rec"]
	if !ok {
		t.Fatal("expected a Rec entry in the layout map")
	}
	if rec["__size"].Offset != 16 {
		t.Errorf("Rec.__size = %d, want 16", rec["__size"].Offset)
	}
	if rec["__align"].Offset != 8 {
		t.Errorf("Rec.__align = %d, want 8", rec["__align"].Offset)
	}
	if rec["id"].Offset != 0 {
		t.Errorf("Rec.id = %d, want 0", rec["id"].Offset)
	}
	if rec["value"].Offset != 8 {
		t.Errorf("Rec.value = %d, want 8", rec["value"].Offset)
	}
}
