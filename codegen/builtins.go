package codegen

import "github.com/atra-lang/atra/ast"

// mathNames are the fixed set of host-less math functions the auto-import
// pass recognizes; all take and return f64.
var mathNames = map[string]int{
	"sin": 1, "cos": 1, "ln": 1, "exp": 1, "pow": 2, "atan2": 2,
}

// nativeBuiltinArity names every builtin that expands inline to Wasm
// instructions rather than a call, with its argument count (-1 for
// variable/opcode-dependent arity handled specially).
var nativeBuiltinArity = map[string]int{
	"sqrt": 1, "abs": 1, "floor": 1, "ceil": 1, "trunc": 1, "nearest": 1,
	"copysign": 2, "min": 2, "max": 2, "select": 3,
	"clz": 1, "ctz": 1, "popcnt": 1, "rotl": 2, "rotr": 2,
	"memory_size": 0, "memory_grow": 1, "memory_copy": 3, "memory_fill": 3,
	"mod": 2, "extract_lane": 2,
}

// isNativeBuiltin reports whether name is one of the builtins that never
// needs an import: it always has an inline Wasm encoding.
func isNativeBuiltin(name string) bool {
	_, ok := nativeBuiltinArity[name]
	return ok
}

// isValTypeName reports whether name names one of Atra's eight value
// types, used both for TYPE(args) conversions and to exclude type names
// from call/import discovery.
func isValTypeName(name string) bool {
	switch name {
	case "i32", "i64", "f32", "f64", "f64x2", "f32x4", "i32x4", "i64x2":
		return true
	}
	return false
}

func isWasmEscape(name string) bool {
	return len(name) > 5 && name[:5] == "wasm."
}

// isSqrtExponent reports whether e is the literal constant 0.5 (written
// `.5` or `0.5`), the one exponent `**` lowers to `sqrt` instead of `pow`.
func isSqrtExponent(e ast.Expr) bool {
	lit, ok := e.(*ast.NumberLit)
	if !ok {
		return false
	}
	return lit.Raw == "0.5" || lit.Raw == ".5"
}
