package codegen

import (
	"strconv"
	"strings"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

func astI32() ast.ValType { return ast.I32 }

// writeConstInit emits a global's const-init expression: a bare literal or
// a unary-minus of one, typed to typ. Anything more complex is rejected by
// the parser's caller before this point is ever reached in a well-formed
// program; codegen still checks, since a global's Init is a general Expr.
func writeConstInit(w *wasm.Writer, typ ast.ValType, init ast.Expr) error {
	neg := false
	lit, ok := init.(*ast.NumberLit)
	if !ok {
		if u, ok2 := init.(*ast.Unary); ok2 && u.Op == "-" {
			if l2, ok3 := u.Operand.(*ast.NumberLit); ok3 {
				lit, ok, neg = l2, true, true
			}
		}
	}
	if !ok {
		return errors.NotConstant(init.Position(), "global initializer must be a literal or -literal")
	}
	return writeTypedConst(w, typ, lit, neg)
}

func writeTypedConst(w *wasm.Writer, typ ast.ValType, lit *ast.NumberLit, neg bool) error {
	switch typ {
	case ast.I32:
		v, err := parseIntLit(lit.Raw)
		if err != nil {
			return errors.NotConstant(lit.Pos, "invalid i32 literal %q", lit.Raw)
		}
		w.Byte(wasm.OpI32Const)
		if neg {
			v = -v
		}
		w.WriteI32(int32(v))
	case ast.I64:
		v, err := parseIntLit(lit.Raw)
		if err != nil {
			return errors.NotConstant(lit.Pos, "invalid i64 literal %q", lit.Raw)
		}
		w.Byte(wasm.OpI64Const)
		if neg {
			v = -v
		}
		w.WriteI64(v)
	case ast.F32:
		f, err := strconv.ParseFloat(lit.Raw, 32)
		if err != nil {
			return errors.NotConstant(lit.Pos, "invalid f32 literal %q", lit.Raw)
		}
		if neg {
			f = -f
		}
		w.Byte(wasm.OpF32Const)
		w.WriteF32(float32(f))
	case ast.F64:
		f, err := strconv.ParseFloat(lit.Raw, 64)
		if err != nil {
			return errors.NotConstant(lit.Pos, "invalid f64 literal %q", lit.Raw)
		}
		if neg {
			f = -f
		}
		w.Byte(wasm.OpF64Const)
		w.WriteF64(f)
	default:
		return errors.NotConstant(lit.Pos, "unsupported global type %v", typ)
	}
	return nil
}

func parseIntLit(raw string) (int64, error) {
	raw = strings.TrimPrefix(raw, "+")
	return strconv.ParseInt(raw, 10, 64)
}

// literalType resolves a NumberLit's effective type: its explicit suffix,
// or f64/i32 inferred from isFloat, matching the "inferred type" fallback
// rule codegen uses whenever no expected type flows down from context.
func literalType(lit *ast.NumberLit) ast.ValType {
	if lit.Suffix != ast.Void {
		return lit.Suffix
	}
	if lit.IsFloat {
		return ast.F64
	}
	return ast.I32
}
