package engine

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/codegen"
)

// addModule is the spec's canonical `add` example, used to get real Wasm
// bytes without depending on the link package.
func addModule() *ast.Module {
	fn := &ast.FuncDecl{
		Name:   "add",
		Params: []*ast.Param{{Name: "a", Type: ast.F64}, {Name: "b", Type: ast.F64}},
		Return: ast.F64,
		Body: []ast.Stmt{
			&ast.Assign{Name: "add", Value: &ast.Binary{Op: "+", Left: &ast.Ident{Name: "a"}, Right: &ast.Ident{Name: "b"}}},
		},
	}
	return &ast.Module{Funcs: []*ast.FuncDecl{fn}}
}

func TestEngine_CompileAndInstantiate(t *testing.T) {
	ctx := context.Background()
	bytes, _, _, err := codegen.Generate(addModule())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	eng, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close(ctx)

	compiled, err := eng.Compile(ctx, bytes)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	mod, err := eng.Instantiate(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction("add")
	if fn == nil {
		t.Fatal("expected an add export")
	}
	results, err := fn.Call(ctx, api.EncodeF64(2), api.EncodeF64(3.5))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := api.DecodeF64(results[0]); got != 5.5 {
		t.Errorf("add(2, 3.5) = %v, want 5.5", got)
	}
}

func TestEngine_CompileInvalidBytes(t *testing.T) {
	ctx := context.Background()
	eng, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close(ctx)

	if _, err := eng.Compile(ctx, []byte("not wasm")); err == nil {
		t.Fatal("expected an error compiling non-wasm bytes")
	}
}

func TestEngine_NewHostModuleBuilder(t *testing.T) {
	ctx := context.Background()
	eng, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Close(ctx)

	b := eng.NewHostModuleBuilder("env")
	b.ExportMemory("memory", 1)
	mod, err := b.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer mod.Close(ctx)

	if mod.ExportedMemory("memory") == nil {
		t.Fatal("expected an exported memory named \"memory\"")
	}
}

func TestLogger_DefaultsToNop(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger() should never return nil")
	}
}
