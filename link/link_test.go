package link

import (
	"context"
	"testing"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/codegen"
	"github.com/atra-lang/atra/engine"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }
func numLit(raw string) *ast.NumberLit { return &ast.NumberLit{Raw: raw} }

func compile(t *testing.T, mod *ast.Module) Module {
	t.Helper()
	bytes, tm, lm, err := codegen.Generate(mod)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return Module{Bytes: bytes, Table: tm, Layouts: lm}
}

func TestRun_Add(t *testing.T) {
	ctx := context.Background()
	fn := &ast.FuncDecl{
		Name:   "add",
		Params: []*ast.Param{{Name: "a", Type: ast.F64}, {Name: "b", Type: ast.F64}},
		Return: ast.F64,
		Body:   []ast.Stmt{&ast.Assign{Name: "add", Value: &ast.Binary{Op: "+", Left: ident("a"), Right: ident("b")}}},
	}
	mod := compile(t, &ast.Module{Funcs: []*ast.FuncDecl{fn}})

	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)

	inst, err := Run(ctx, eng, mod, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer inst.Close(ctx)

	got, err := inst.Call(ctx, "add", 2.0, 3.5)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != float64(5.5) {
		t.Errorf("add(2, 3.5) = %v, want 5.5", got)
	}
}

// hostCallModule builds a function that calls a free-floating name,
// forcing a synthesized `host` import.
func hostCallModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "doubled",
		Params: []*ast.Param{{Name: "x", Type: ast.F64}},
		Return: ast.F64,
		Body: []ast.Stmt{
			&ast.CallStmt{Name: "log", Args: []ast.Expr{ident("x")}},
			&ast.Assign{Name: "doubled", Value: &ast.Binary{Op: "*", Left: ident("x"), Right: numLit("2")}},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestRun_HostImport(t *testing.T) {
	ctx := context.Background()
	mod := compile(t, hostCallModule())

	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)

	var logged float64
	inst, err := Run(ctx, eng, mod, RunOptions{
		UserImports: map[string]any{"log": func(x float64) { logged = x }},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer inst.Close(ctx)

	got, err := inst.Call(ctx, "doubled", 21.0)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != float64(42.0) {
		t.Errorf("doubled(21) = %v, want 42", got)
	}
	if logged != 21.0 {
		t.Errorf("host import not invoked with the right argument: got %v, want 21", logged)
	}
}

func TestRun_MissingHostImport(t *testing.T) {
	ctx := context.Background()
	mod := compile(t, hostCallModule())

	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)

	if _, err := Run(ctx, eng, mod, RunOptions{}); err == nil {
		t.Fatal("expected an error when the host import has no matching userImports entry")
	}
}

// sumModule builds a function with an array parameter, forcing an
// env.memory import.
func sumModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name: "sum3",
		Params: []*ast.Param{
			{Name: "xs", Type: ast.F64, IsArray: true, ArrayDims: []int{3}},
		},
		Return: ast.F64,
		Body: []ast.Stmt{
			&ast.Assign{
				Name: "sum3",
				Value: &ast.Binary{
					Op:   "+",
					Left: &ast.Binary{Op: "+", Left: &ast.Index{Name: "xs", Indices: []ast.Expr{numLit("0")}}, Right: &ast.Index{Name: "xs", Indices: []ast.Expr{numLit("1")}}},
					Right: &ast.Index{Name: "xs", Indices: []ast.Expr{numLit("2")}},
				},
			},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestRun_ImportedMemory(t *testing.T) {
	ctx := context.Background()
	mod := compile(t, sumModule())

	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)

	inst, err := Run(ctx, eng, mod, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer inst.Close(ctx)

	mem := inst.Memory()
	if mem == nil {
		t.Fatal("expected sum3's array parameter to force an env.memory import")
	}
	for i, v := range []float64{1.0, 2.0, 3.0} {
		if !mem.WriteFloat64Le(uint32(i*8), v) {
			t.Fatalf("WriteFloat64Le(%d, %v) out of range", i*8, v)
		}
	}

	got, err := inst.Call(ctx, "sum3", int32(0))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != float64(6.0) {
		t.Errorf("sum3(0) = %v, want 6.0", got)
	}
}

func TestRun_CustomMemorySize(t *testing.T) {
	ctx := context.Background()
	mod := compile(t, sumModule())

	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close(ctx)

	inst, err := Run(ctx, eng, mod, RunOptions{
		UserImports: map[string]any{"memory": &Memory{MinPages: 2, MaxPages: 4, HasMax: true}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer inst.Close(ctx)

	if got := inst.Memory().Size(); got != 2*65536 {
		t.Errorf("Memory().Size() = %d, want %d (2 pages)", got, 2*65536)
	}
}

func TestLogger_DefaultsToNop(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger() should never return nil")
	}
}
