package parser

import (
	"testing"

	"github.com/atra-lang/atra/ast"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return mod
}

func TestParseSimpleFunction(t *testing.T) {
	mod := mustParse(t, "function add(a,b:f64):f64 begin add := a+b end")
	if len(mod.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(mod.Funcs))
	}
	fn := mod.Funcs[0]
	if fn.Name != "add" || fn.IsSub {
		t.Fatalf("unexpected func: %+v", fn)
	}
	if len(fn.Params) != 2 || fn.Params[0].Type != ast.F64 || fn.Params[1].Type != ast.F64 {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
	if fn.Return != ast.F64 {
		t.Fatalf("Return = %v, want f64", fn.Return)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(fn.Body))
	}
	assign, ok := fn.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", fn.Body[0])
	}
	if assign.Name != "add" {
		t.Errorf("assign target = %q, want add", assign.Name)
	}
	bin, ok := assign.Value.(*ast.Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected a+b binary, got %#v", assign.Value)
	}
}

func TestParseForLoop(t *testing.T) {
	mod := mustParse(t, `
function fact(n:i32):i32 var i:i32
begin
  fact:=1
  for i:=1,n
    fact := fact * i
  end for
end`)
	fn := mod.Funcs[0]
	if len(fn.Locals) != 1 || fn.Locals[0].Name != "i" {
		t.Fatalf("unexpected locals: %+v", fn.Locals)
	}
	if len(fn.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(fn.Body), fn.Body)
	}
	forStmt, ok := fn.Body[1].(*ast.For)
	if !ok {
		t.Fatalf("expected *ast.For, got %T", fn.Body[1])
	}
	if forStmt.Var != "i" || forStmt.Step != nil {
		t.Fatalf("unexpected for header: %+v", forStmt)
	}
}

func TestParseArrayParamAndIndex(t *testing.T) {
	mod := mustParse(t, `
function sumX(arr:i32, n:i32):f64 var s:f64, i:i32
begin
  s:=0
  for i:=0,n
    s:=s+arr[i]
  end for
  sumX:=s
end`)
	fn := mod.Funcs[0]
	if len(fn.Locals) != 2 {
		t.Fatalf("expected 2 locals, got %d", len(fn.Locals))
	}
	forStmt := fn.Body[1].(*ast.For)
	assign := forStmt.Body[0].(*ast.Assign)
	bin := assign.Value.(*ast.Binary)
	if _, ok := bin.Right.(*ast.Index); !ok {
		t.Fatalf("expected array index on rhs, got %#v", bin.Right)
	}
}

func TestParseIfElseIfChain(t *testing.T) {
	mod := mustParse(t, `
function sign(x:i32):i32
begin
  if (x > 0) then
    sign := 1
  else if (x < 0) then
    sign := -1
  else
    sign := 0
  end if
end`)
	fn := mod.Funcs[0]
	ifStmt := fn.Body[0].(*ast.If)
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("unexpected if shape: %#v", ifStmt)
	}
	nested, ok := ifStmt.Else[0].(*ast.If)
	if !ok {
		t.Fatalf("expected nested *ast.If in else-if chain, got %T", ifStmt.Else[0])
	}
	if len(nested.Else) != 1 {
		t.Fatalf("expected nested else branch, got %#v", nested.Else)
	}
}

func TestParseWhileAndDoWhile(t *testing.T) {
	mod := mustParse(t, `
subroutine loop(n:i32) var i:i32
begin
  i := 0
  while (i < n)
    i := i + 1
  end while
  do
    i := i - 1
  while (i > 0)
end`)
	fn := mod.Funcs[0]
	if !fn.IsSub {
		t.Fatal("expected subroutine")
	}
	if _, ok := fn.Body[1].(*ast.While); !ok {
		t.Fatalf("expected *ast.While, got %T", fn.Body[1])
	}
	if _, ok := fn.Body[2].(*ast.DoWhile); !ok {
		t.Fatalf("expected *ast.DoWhile, got %T", fn.Body[2])
	}
}

func TestParseCallReturnAndTailcall(t *testing.T) {
	mod := mustParse(t, `
function f(n:i32):i32
begin
  if (n < 2) then
    call return(n)
  end if
  tailcall f(n-1)
end`)
	fn := mod.Funcs[0]
	ifStmt := fn.Body[0].(*ast.If)
	if _, ok := ifStmt.Then[0].(*ast.Return); !ok {
		t.Fatalf("expected *ast.Return, got %T", ifStmt.Then[0])
	}
	if _, ok := fn.Body[1].(*ast.TailCall); !ok {
		t.Fatalf("expected *ast.TailCall, got %T", fn.Body[1])
	}
}

func TestParseTernaryAndConversion(t *testing.T) {
	mod := mustParse(t, `
function f(x:i32):f64
begin
  f := f64(if (x > 0) then 1 else 0)
end`)
	fn := mod.Funcs[0]
	assign := fn.Body[0].(*ast.Assign)
	conv, ok := assign.Value.(*ast.Convert)
	if !ok || conv.Type != ast.F64 {
		t.Fatalf("expected f64(...) conversion, got %#v", assign.Value)
	}
	if _, ok := conv.Args[0].(*ast.Ternary); !ok {
		t.Fatalf("expected ternary argument, got %#v", conv.Args[0])
	}
}

func TestParsePrecedence(t *testing.T) {
	mod := mustParse(t, `
function f(a,b,c:i32):i32
begin
  f := a + b * c
end`)
	assign := mod.Funcs[0].Body[0].(*ast.Assign)
	top := assign.Value.(*ast.Binary)
	if top.Op != "+" {
		t.Fatalf("expected top-level +, got %q", top.Op)
	}
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Fatalf("expected b*c grouped on the right, got %#v", top.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	mod := mustParse(t, `
function f(x:f64):f64
begin
  f := x ** 2 ** 3
end`)
	assign := mod.Funcs[0].Body[0].(*ast.Assign)
	top := assign.Value.(*ast.Binary)
	if top.Op != "**" {
		t.Fatalf("expected **, got %q", top.Op)
	}
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Fatalf("expected 2**3 grouped on the right (right-assoc), got %#v", top.Right)
	}
	if _, ok := top.Left.(*ast.Ident); !ok {
		t.Fatalf("expected bare x on the left, got %#v", top.Left)
	}
}

func TestParseUnaryBindsTighterThanMulLooserThanPower(t *testing.T) {
	mod := mustParse(t, `
function f(x:f64):f64
begin
  f := -x ** 2
end`)
	assign := mod.Funcs[0].Body[0].(*ast.Assign)
	unary, ok := assign.Value.(*ast.Unary)
	if !ok || unary.Op != "-" {
		t.Fatalf("expected unary minus wrapping the whole power expr, got %#v", assign.Value)
	}
	if _, ok := unary.Operand.(*ast.Binary); !ok {
		t.Fatalf("expected x**2 as the unary operand, got %#v", unary.Operand)
	}
}

func TestParseLayoutOffsets(t *testing.T) {
	mod := mustParse(t, "layout Rec id: i32, value: f64 end")
	if len(mod.Layouts) != 1 {
		t.Fatalf("expected 1 layout, got %d", len(mod.Layouts))
	}
	rec := mod.Layouts[0]
	if rec.FieldOffset("id") != 0 || rec.FieldOffset("value") != 8 {
		t.Fatalf("unexpected offsets: id=%d value=%d", rec.FieldOffset("id"), rec.FieldOffset("value"))
	}
	if rec.Size != 16 || rec.Align != 8 {
		t.Fatalf("Size=%d Align=%d, want 16,8", rec.Size, rec.Align)
	}
}

func TestParsePackedLayoutOffsets(t *testing.T) {
	mod := mustParse(t, "packed layout Rec id: i32, value: f64 end")
	rec := mod.Layouts[0]
	if rec.FieldOffset("id") != 0 || rec.FieldOffset("value") != 4 {
		t.Fatalf("unexpected packed offsets: id=%d value=%d", rec.FieldOffset("id"), rec.FieldOffset("value"))
	}
	if rec.Size != 12 || rec.Align != 1 {
		t.Fatalf("Size=%d Align=%d, want 12,1", rec.Size, rec.Align)
	}
}

func TestParseLayoutFieldAsExpression(t *testing.T) {
	mod := mustParse(t, `
layout Rec id: i32, value: f64 end
function f():i32
begin
  f := Rec.value + Rec.__size
end`)
	fn := mod.Funcs[0]
	assign := fn.Body[0].(*ast.Assign)
	bin := assign.Value.(*ast.Binary)
	left := bin.Left.(*ast.NumberLit)
	right := bin.Right.(*ast.NumberLit)
	if left.Raw != "8" {
		t.Errorf("Rec.value should fold to 8, got %s", left.Raw)
	}
	if right.Raw != "16" {
		t.Errorf("Rec.__size should fold to 16, got %s", right.Raw)
	}
}

func TestParseImportAndGlobal(t *testing.T) {
	mod := mustParse(t, `
import host.log(x: i32): i32
global counter: i32 := 0
const limit: i32 := 100
`)
	if len(mod.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(mod.Imports))
	}
	imp := mod.Imports[0]
	if imp.Module != "host" || imp.Field != "log" {
		t.Fatalf("unexpected import: %+v", imp)
	}
	if len(mod.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d", len(mod.Globals))
	}
	if !mod.Globals[0].Mutable || mod.Globals[1].Mutable {
		t.Fatalf("expected global mutable, const immutable")
	}
}

func TestParseFuncRefAndSimd(t *testing.T) {
	mod := mustParse(t, `
function add4(a,b: f64x2): f64x2
begin
  add4 := a+b
end
function apply(f: func(f64x2,f64x2):f64x2): i32
begin
  apply := call_through(@add4)
end`)
	if len(mod.Funcs) != 2 {
		t.Fatalf("expected 2 funcs, got %d", len(mod.Funcs))
	}
	fn2 := mod.Funcs[1]
	if fn2.Params[0].FuncSig == nil {
		t.Fatalf("expected function-typed parameter")
	}
	assign := fn2.Body[0].(*ast.Assign)
	call := assign.Value.(*ast.Call)
	if _, ok := call.Args[0].(*ast.FuncRef); !ok {
		t.Fatalf("expected @add4 func ref argument, got %#v", call.Args[0])
	}
}
