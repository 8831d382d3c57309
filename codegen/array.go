package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

// resolveArrayElemType finds name's declared element type and dimensions
// among the current function's parameters and locals.
func (e *funcEmitter) resolveArrayElemType(name string) (ast.ValType, []int, error) {
	for _, p := range e.fn.Params {
		if p.Name == name && p.IsArray {
			return p.Type, p.ArrayDims, nil
		}
	}
	for _, l := range e.fn.Locals {
		if l.Name == name && l.IsArray {
			return l.Type, l.ArrayDims, nil
		}
	}
	return ast.Void, nil, errors.Undefined(errors.PhaseGenerate, ast.Pos{}, "array", name)
}

// isBarePointer reports whether name is a plain i32 parameter or local
// (not declared with the `array(dims)` form) — the bare-pointer indexing
// form: a raw linear-memory offset whose element type isn't known until an
// access supplies one.
func (e *funcEmitter) isBarePointer(name string) bool {
	for _, p := range e.fn.Params {
		if p.Name == name && !p.IsArray && p.Type == ast.I32 {
			return true
		}
	}
	for _, l := range e.fn.Locals {
		if l.Name == name && !l.IsArray && l.Type == ast.I32 {
			return true
		}
	}
	return false
}

// emitArrayAddress emits the i32 linear-memory address of an array access
// and returns the element's value type. A single index is a direct
// element offset; two indices use the declared row stride (dims[1]); three
// indices are the explicit-stride form `a[row, stride, col]`. name may be
// a declared `array(dims)` parameter/local (element type and dims come
// from the declaration) or a bare i32 pointer (element type comes from
// expected, the access site's expected type, defaulting to f64 when
// unconstrained — the same default NumberLit/host-import typing falls
// back to elsewhere).
func (e *funcEmitter) emitArrayAddress(pos ast.Pos, name string, indices []ast.Expr, expected ast.ValType) (ast.ValType, error) {
	slot, ok := e.localIdx[name]
	if !ok {
		return ast.Void, errors.Undefined(errors.PhaseGenerate, pos, "array", name)
	}
	elemType, dims, err := e.resolveArrayElemType(name)
	if err != nil {
		if !e.isBarePointer(name) {
			return ast.Void, err
		}
		elemType = expected
		if elemType == ast.Void {
			elemType = ast.F64
		}
		dims = nil
	}

	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(slot))

	switch len(indices) {
	case 1:
		if _, err := e.emitExpr(indices[0], ast.I32); err != nil {
			return ast.Void, err
		}
	case 2:
		if len(dims) < 2 {
			return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "two-index access on %q needs declared dimensions, or use the three-index form", name)
		}
		if _, err := e.emitExpr(indices[0], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpI32Const)
		e.w.WriteI32(int32(dims[1]))
		e.w.Byte(wasm.OpI32Mul)
		if _, err := e.emitExpr(indices[1], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpI32Add)
	case 3:
		if _, err := e.emitExpr(indices[0], ast.I32); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(indices[1], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpI32Mul)
		if _, err := e.emitExpr(indices[2], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpI32Add)
	default:
		return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "array access on %q takes 1, 2 or 3 indices, got %d", name, len(indices))
	}

	e.w.Byte(wasm.OpI32Const)
	e.w.WriteI32(int32(elemType.Size()))
	e.w.Byte(wasm.OpI32Mul)
	e.w.Byte(wasm.OpI32Add)
	return elemType, nil
}

func alignLog2(size int) uint32 {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	case 16:
		return 4
	default:
		return 0
	}
}

func (e *funcEmitter) emitLoad(pos ast.Pos, t ast.ValType) error {
	var op byte
	switch t {
	case ast.I32:
		op = wasm.OpI32Load
	case ast.I64:
		op = wasm.OpI64Load
	case ast.F32:
		op = wasm.OpF32Load
	case ast.F64:
		op = wasm.OpF64Load
	case ast.F64x2, ast.F32x4, ast.I32x4, ast.I64x2:
		e.w.Byte(wasm.OpPrefixSIMD)
		e.w.WriteU32(wasm.SimdV128Load)
		e.w.WriteU32(alignLog2(16))
		e.w.WriteU32(0)
		return nil
	default:
		return errors.TypeMismatch(pos, "cannot load array element of type %v", t)
	}
	e.w.Byte(op)
	e.w.WriteU32(alignLog2(t.Size()))
	e.w.WriteU32(0)
	return nil
}

func (e *funcEmitter) emitStore(pos ast.Pos, t ast.ValType) error {
	var op byte
	switch t {
	case ast.I32:
		op = wasm.OpI32Store
	case ast.I64:
		op = wasm.OpI64Store
	case ast.F32:
		op = wasm.OpF32Store
	case ast.F64:
		op = wasm.OpF64Store
	case ast.F64x2, ast.F32x4, ast.I32x4, ast.I64x2:
		e.w.Byte(wasm.OpPrefixSIMD)
		e.w.WriteU32(wasm.SimdV128Store)
		e.w.WriteU32(alignLog2(16))
		e.w.WriteU32(0)
		return nil
	default:
		return errors.TypeMismatch(pos, "cannot store array element of type %v", t)
	}
	e.w.Byte(op)
	e.w.WriteU32(alignLog2(t.Size()))
	e.w.WriteU32(0)
	return nil
}
