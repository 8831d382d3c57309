package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

// scalarConvertOps maps (source, destination) scalar type pairs to the
// Wasm conversion opcode. A pair absent from the map but with src==dst is
// the identity conversion (no instruction emitted).
var scalarConvertOps = map[ast.ValType]map[ast.ValType]byte{
	ast.I32: {ast.I64: wasm.OpI64ExtendI32S, ast.F32: wasm.OpF32ConvertI32S, ast.F64: wasm.OpF64ConvertI32S},
	ast.I64: {ast.I32: wasm.OpI32WrapI64, ast.F32: wasm.OpF32ConvertI64S, ast.F64: wasm.OpF64ConvertI64S},
	ast.F32: {ast.I32: wasm.OpI32TruncF32S, ast.I64: wasm.OpI64TruncF32S, ast.F64: wasm.OpF64PromoteF32},
	ast.F64: {ast.I32: wasm.OpI32TruncF64S, ast.I64: wasm.OpI64TruncF64S, ast.F32: wasm.OpF32DemoteF64},
}

func splatOp(t ast.ValType) (uint32, bool) {
	switch t {
	case ast.I32x4:
		return wasm.SimdI32x4Splat, true
	case ast.I64x2:
		return wasm.SimdI64x2Splat, true
	case ast.F32x4:
		return wasm.SimdF32x4Splat, true
	case ast.F64x2:
		return wasm.SimdF64x2Splat, true
	}
	return 0, false
}

func replaceLaneOp(t ast.ValType) (uint32, bool) {
	switch t {
	case ast.I32x4:
		return wasm.SimdI32x4ReplaceLane, true
	case ast.I64x2:
		return wasm.SimdI64x2ReplaceLane, true
	case ast.F32x4:
		return wasm.SimdF32x4ReplaceLane, true
	case ast.F64x2:
		return wasm.SimdF64x2ReplaceLane, true
	}
	return 0, false
}

// emitConvert handles `TYPE(args)`: a scalar conversion when Type is a
// primitive and there's one argument, or a lane constructor when Type is a
// vector type and there are Lanes(Type) arguments.
func (e *funcEmitter) emitConvert(n *ast.Convert) (ast.ValType, error) {
	if n.Type.IsVector() {
		return e.emitLaneConstructor(n)
	}
	if len(n.Args) != 1 {
		return ast.Void, errors.TypeMismatch(n.Pos, "%v(...) conversion takes exactly one argument, got %d", n.Type, len(n.Args))
	}
	srcType := e.inferType(n.Args[0])
	if _, err := e.emitExpr(n.Args[0], srcType); err != nil {
		return ast.Void, err
	}
	if srcType == n.Type {
		return n.Type, nil
	}
	op, ok := scalarConvertOps[srcType][n.Type]
	if !ok {
		return ast.Void, errors.Unsupported(errors.PhaseGenerate, n.Pos, "no conversion from %v to %v", srcType, n.Type)
	}
	e.w.Byte(op)
	return n.Type, nil
}

func extractLaneOp(t ast.ValType) (uint32, bool) {
	switch t {
	case ast.I32x4:
		return wasm.SimdI32x4ExtractLane, true
	case ast.I64x2:
		return wasm.SimdI64x2ExtractLane, true
	case ast.F32x4:
		return wasm.SimdF32x4ExtractLane, true
	case ast.F64x2:
		return wasm.SimdF64x2ExtractLane, true
	}
	return 0, false
}

func (e *funcEmitter) emitLaneConstructor(n *ast.Convert) (ast.ValType, error) {
	lanes := n.Type.Lanes()
	if len(n.Args) != lanes {
		return ast.Void, errors.TypeMismatch(n.Pos, "%v(...) takes %d lane values, got %d", n.Type, lanes, len(n.Args))
	}
	elem := n.Type.Elem()
	splat, ok := splatOp(n.Type)
	if !ok {
		return ast.Void, errors.Unsupported(errors.PhaseGenerate, n.Pos, "no lane constructor for %v", n.Type)
	}
	if _, err := e.emitExpr(n.Args[0], elem); err != nil {
		return ast.Void, err
	}
	e.w.Byte(wasm.OpPrefixSIMD)
	e.w.WriteU32(splat)

	replace, _ := replaceLaneOp(n.Type)
	for i := 1; i < lanes; i++ {
		if _, err := e.emitExpr(n.Args[i], elem); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpPrefixSIMD)
		e.w.WriteU32(replace)
		e.w.Byte(byte(i))
	}
	return n.Type, nil
}
