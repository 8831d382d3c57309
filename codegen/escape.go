package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

type escapeOp struct {
	args   []ast.ValType
	result ast.ValType
	opcode byte
}

// escapeOps covers the `wasm.*` plain-opcode escape hatch: unsigned
// compares and divides, reinterpret casts, and sign extensions — the
// operations Wasm exposes but Atra's surface operators do not.
var escapeOps = map[string]escapeOp{
	"i32_div_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32DivU},
	"i32_rem_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32RemU},
	"i64_div_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I64, wasm.OpI64DivU},
	"i64_rem_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I64, wasm.OpI64RemU},

	"i32_lt_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32LtU},
	"i32_gt_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32GtU},
	"i32_le_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32LeU},
	"i32_ge_u": {[]ast.ValType{ast.I32, ast.I32}, ast.I32, wasm.OpI32GeU},
	"i64_lt_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I32, wasm.OpI64LtU},
	"i64_gt_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I32, wasm.OpI64GtU},
	"i64_le_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I32, wasm.OpI64LeU},
	"i64_ge_u": {[]ast.ValType{ast.I64, ast.I64}, ast.I32, wasm.OpI64GeU},

	"i32_reinterpret_f32": {[]ast.ValType{ast.F32}, ast.I32, wasm.OpI32ReinterpretF32},
	"i64_reinterpret_f64": {[]ast.ValType{ast.F64}, ast.I64, wasm.OpI64ReinterpretF64},
	"f32_reinterpret_i32": {[]ast.ValType{ast.I32}, ast.F32, wasm.OpF32ReinterpretI32},
	"f64_reinterpret_i64": {[]ast.ValType{ast.I64}, ast.F64, wasm.OpF64ReinterpretI64},

	"i32_extend8_s":  {[]ast.ValType{ast.I32}, ast.I32, wasm.OpI32Extend8S},
	"i32_extend16_s": {[]ast.ValType{ast.I32}, ast.I32, wasm.OpI32Extend16S},
	"i64_extend8_s":  {[]ast.ValType{ast.I64}, ast.I64, wasm.OpI64Extend8S},
	"i64_extend16_s": {[]ast.ValType{ast.I64}, ast.I64, wasm.OpI64Extend16S},
	"i64_extend32_s": {[]ast.ValType{ast.I64}, ast.I64, wasm.OpI64Extend32S},
}

type escapeMiscOp struct {
	args   []ast.ValType
	result ast.ValType
	code   uint32
}

// escapeMiscOps covers the saturating truncations, reached through the
// 0xFC misc-opcode prefix.
var escapeMiscOps = map[string]escapeMiscOp{
	"i32_trunc_sat_f32_s": {[]ast.ValType{ast.F32}, ast.I32, wasm.MiscI32TruncSatF32S},
	"i32_trunc_sat_f32_u": {[]ast.ValType{ast.F32}, ast.I32, wasm.MiscI32TruncSatF32U},
	"i32_trunc_sat_f64_s": {[]ast.ValType{ast.F64}, ast.I32, wasm.MiscI32TruncSatF64S},
	"i32_trunc_sat_f64_u": {[]ast.ValType{ast.F64}, ast.I32, wasm.MiscI32TruncSatF64U},
	"i64_trunc_sat_f32_s": {[]ast.ValType{ast.F32}, ast.I64, wasm.MiscI64TruncSatF32S},
	"i64_trunc_sat_f32_u": {[]ast.ValType{ast.F32}, ast.I64, wasm.MiscI64TruncSatF32U},
	"i64_trunc_sat_f64_s": {[]ast.ValType{ast.F64}, ast.I64, wasm.MiscI64TruncSatF64S},
	"i64_trunc_sat_f64_u": {[]ast.ValType{ast.F64}, ast.I64, wasm.MiscI64TruncSatF64U},
}

func (e *funcEmitter) emitWasmEscape(pos ast.Pos, name string, args []ast.Expr, expected ast.ValType) (ast.ValType, error) {
	if op, ok := escapeOps[name]; ok {
		if len(args) != len(op.args) {
			return ast.Void, errors.TypeMismatch(pos, "wasm.%s takes %d argument(s), got %d", name, len(op.args), len(args))
		}
		for i, a := range args {
			if _, err := e.emitExpr(a, op.args[i]); err != nil {
				return ast.Void, err
			}
		}
		e.w.Byte(op.opcode)
		return op.result, nil
	}
	if op, ok := escapeMiscOps[name]; ok {
		if len(args) != len(op.args) {
			return ast.Void, errors.TypeMismatch(pos, "wasm.%s takes %d argument(s), got %d", name, len(op.args), len(args))
		}
		for i, a := range args {
			if _, err := e.emitExpr(a, op.args[i]); err != nil {
				return ast.Void, err
			}
		}
		e.w.Byte(wasm.OpPrefixMisc)
		e.w.WriteU32(op.code)
		return op.result, nil
	}
	return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "unknown wasm.%s escape", name)
}

// simdBinaryOp returns the SIMD sub-opcode for a generalized arithmetic
// binary operator on a 128-bit vector type. Bitwise & | ^ operate on the
// whole register regardless of lane type; +, -, *, / follow the per-type
// tables spec.md's arithmetic opcodes expose.
func simdBinaryOp(t ast.ValType, op string) (uint32, error) {
	switch op {
	case "&":
		return wasm.SimdV128And, nil
	case "|":
		return wasm.SimdV128Or, nil
	case "^":
		return wasm.SimdV128Xor, nil
	}
	var table map[string]uint32
	switch t {
	case ast.F32x4:
		table = map[string]uint32{"+": wasm.SimdF32x4Add, "-": wasm.SimdF32x4Sub, "*": wasm.SimdF32x4Mul, "/": wasm.SimdF32x4Div}
	case ast.F64x2:
		table = map[string]uint32{"+": wasm.SimdF64x2Add, "-": wasm.SimdF64x2Sub, "*": wasm.SimdF64x2Mul, "/": wasm.SimdF64x2Div}
	case ast.I32x4:
		table = map[string]uint32{"+": wasm.SimdI32x4Add, "-": wasm.SimdI32x4Sub, "*": wasm.SimdI32x4Mul}
	case ast.I64x2:
		table = map[string]uint32{"+": wasm.SimdI64x2Add, "-": wasm.SimdI64x2Sub, "*": wasm.SimdI64x2Mul}
	}
	if table == nil {
		return 0, errors.Unsupported(errors.PhaseGenerate, ast.Pos{}, "no vector operator %q for %v", op, t)
	}
	if sub, ok := table[op]; ok {
		return sub, nil
	}
	return 0, errors.Unsupported(errors.PhaseGenerate, ast.Pos{}, "no vector operator %q for %v", op, t)
}

// simdCompareOp returns the SIMD sub-opcode for a lane-wise vector
// comparison: the signed variant for integer vectors, the un-suffixed
// variant for float vectors, per spec's comparison-emission rule.
func simdCompareOp(t ast.ValType, op string) (uint32, error) {
	var table map[string]uint32
	switch t {
	case ast.I32x4:
		table = map[string]uint32{"==": wasm.SimdI32x4Eq, "/=": wasm.SimdI32x4Ne, "<": wasm.SimdI32x4LtS, ">": wasm.SimdI32x4GtS, "<=": wasm.SimdI32x4LeS, ">=": wasm.SimdI32x4GeS}
	case ast.I64x2:
		table = map[string]uint32{"==": wasm.SimdI64x2Eq, "/=": wasm.SimdI64x2Ne, "<": wasm.SimdI64x2LtS, ">": wasm.SimdI64x2GtS, "<=": wasm.SimdI64x2LeS, ">=": wasm.SimdI64x2GeS}
	case ast.F32x4:
		table = map[string]uint32{"==": wasm.SimdF32x4Eq, "/=": wasm.SimdF32x4Ne, "<": wasm.SimdF32x4Lt, ">": wasm.SimdF32x4Gt, "<=": wasm.SimdF32x4Le, ">=": wasm.SimdF32x4Ge}
	case ast.F64x2:
		table = map[string]uint32{"==": wasm.SimdF64x2Eq, "/=": wasm.SimdF64x2Ne, "<": wasm.SimdF64x2Lt, ">": wasm.SimdF64x2Gt, "<=": wasm.SimdF64x2Le, ">=": wasm.SimdF64x2Ge}
	}
	if table == nil {
		return 0, errors.Unsupported(errors.PhaseGenerate, ast.Pos{}, "no vector comparison for %v", t)
	}
	if sub, ok := table[op]; ok {
		return sub, nil
	}
	return 0, errors.Unsupported(errors.PhaseGenerate, ast.Pos{}, "no vector comparison %q for %v", op, t)
}
