package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

func (e *funcEmitter) arity(pos ast.Pos, name string, args []ast.Expr, n int) error {
	if len(args) != n {
		return errors.TypeMismatch(pos, "%s takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// emitBuiltin expands one of the native builtins listed in
// nativeBuiltinArity directly to Wasm instructions; none of these are
// ever calls.
func (e *funcEmitter) emitBuiltin(pos ast.Pos, name string, args []ast.Expr, expected ast.ValType, isStmt bool) (ast.ValType, error) {
	switch name {
	case "sqrt", "abs", "floor", "ceil", "trunc", "nearest":
		if err := e.arity(pos, name, args, 1); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[0])
		}
		if _, err := e.emitExpr(args[0], typ); err != nil {
			return ast.Void, err
		}
		op, err := floatUnaryOp(pos, name, typ)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(op)
		return typ, nil

	case "copysign", "min", "max":
		if err := e.arity(pos, name, args, 2); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[0])
		}
		if _, err := e.emitExpr(args[0], typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[1], typ); err != nil {
			return ast.Void, err
		}
		if typ == ast.I32 || typ == ast.I64 {
			return typ, e.emitIntMinMax(pos, name, typ)
		}
		op, err := floatBinaryOp(pos, name, typ)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(op)
		return typ, nil

	case "select":
		if err := e.arity(pos, name, args, 3); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[1])
		}
		if _, err := e.emitExpr(args[1], typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[2], typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[0], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpSelect)
		return typ, nil

	case "clz", "ctz", "popcnt":
		if err := e.arity(pos, name, args, 1); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[0])
		}
		if _, err := e.emitExpr(args[0], typ); err != nil {
			return ast.Void, err
		}
		op, err := intUnaryOp(pos, name, typ)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(op)
		return typ, nil

	case "rotl", "rotr":
		if err := e.arity(pos, name, args, 2); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[0])
		}
		if _, err := e.emitExpr(args[0], typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[1], typ); err != nil {
			return ast.Void, err
		}
		op, err := rotateOp(pos, name, typ)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(op)
		return typ, nil

	case "mod":
		if err := e.arity(pos, name, args, 2); err != nil {
			return ast.Void, err
		}
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(args[0])
		}
		if _, err := e.emitExpr(args[0], typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[1], typ); err != nil {
			return ast.Void, err
		}
		switch typ {
		case ast.I32:
			e.w.Byte(wasm.OpI32RemS)
		case ast.I64:
			e.w.Byte(wasm.OpI64RemS)
		default:
			return ast.Void, errors.TypeMismatch(pos, "mod requires an integer, got %v", typ)
		}
		return typ, nil

	case "extract_lane":
		if err := e.arity(pos, name, args, 2); err != nil {
			return ast.Void, err
		}
		vecType := e.inferType(args[0])
		if !vecType.IsVector() {
			return ast.Void, errors.TypeMismatch(pos, "extract_lane requires a vector argument, got %v", vecType)
		}
		lit, ok := args[1].(*ast.NumberLit)
		if !ok {
			return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "extract_lane's lane index must be a literal")
		}
		idx, err := parseIntLit(lit.Raw)
		if err != nil {
			return ast.Void, errors.TypeMismatch(pos, "extract_lane's lane index must be an integer: %v", err)
		}
		if idx < 0 || int(idx) >= vecType.Lanes() {
			return ast.Void, errors.TypeMismatch(pos, "extract_lane index %d out of range for %v (0..%d)", idx, vecType, vecType.Lanes()-1)
		}
		if _, err := e.emitExpr(args[0], vecType); err != nil {
			return ast.Void, err
		}
		op, ok := extractLaneOp(vecType)
		if !ok {
			return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "no lane extractor for %v", vecType)
		}
		e.w.Byte(wasm.OpPrefixSIMD)
		e.w.WriteU32(op)
		e.w.Byte(byte(idx))
		return vecType.Elem(), nil

	case "memory_size":
		if err := e.arity(pos, name, args, 0); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpMemorySize)
		e.w.Byte(0)
		return ast.I32, nil

	case "memory_grow":
		if err := e.arity(pos, name, args, 1); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(args[0], ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpMemoryGrow)
		e.w.Byte(0)
		return ast.I32, nil

	case "memory_copy":
		if err := e.arity(pos, name, args, 3); err != nil {
			return ast.Void, err
		}
		for _, a := range args {
			if _, err := e.emitExpr(a, ast.I32); err != nil {
				return ast.Void, err
			}
		}
		e.w.Byte(wasm.OpPrefixMisc)
		e.w.WriteU32(wasm.MiscMemoryCopy)
		e.w.Byte(0)
		e.w.Byte(0)
		if !isStmt {
			return ast.Void, errors.TypeMismatch(pos, "memory_copy returns nothing and cannot be used as a value")
		}
		return ast.Void, nil

	case "memory_fill":
		if err := e.arity(pos, name, args, 3); err != nil {
			return ast.Void, err
		}
		for _, a := range args {
			if _, err := e.emitExpr(a, ast.I32); err != nil {
				return ast.Void, err
			}
		}
		e.w.Byte(wasm.OpPrefixMisc)
		e.w.WriteU32(wasm.MiscMemoryFill)
		e.w.Byte(0)
		if !isStmt {
			return ast.Void, errors.TypeMismatch(pos, "memory_fill returns nothing and cannot be used as a value")
		}
		return ast.Void, nil
	}

	return ast.Void, errors.Unsupported(errors.PhaseGenerate, pos, "unknown builtin %q", name)
}

func floatUnaryOp(pos ast.Pos, name string, typ ast.ValType) (byte, error) {
	table := map[string]map[ast.ValType]byte{
		"sqrt":    {ast.F32: wasm.OpF32Sqrt, ast.F64: wasm.OpF64Sqrt},
		"abs":     {ast.F32: wasm.OpF32Abs, ast.F64: wasm.OpF64Abs},
		"floor":   {ast.F32: wasm.OpF32Floor, ast.F64: wasm.OpF64Floor},
		"ceil":    {ast.F32: wasm.OpF32Ceil, ast.F64: wasm.OpF64Ceil},
		"trunc":   {ast.F32: wasm.OpF32Trunc, ast.F64: wasm.OpF64Trunc},
		"nearest": {ast.F32: wasm.OpF32Nearest, ast.F64: wasm.OpF64Nearest},
	}
	if op, ok := table[name][typ]; ok {
		return op, nil
	}
	return 0, errors.TypeMismatch(pos, "%s requires a float argument, got %v", name, typ)
}

func floatBinaryOp(pos ast.Pos, name string, typ ast.ValType) (byte, error) {
	table := map[string]map[ast.ValType]byte{
		"copysign": {ast.F32: wasm.OpF32Copysign, ast.F64: wasm.OpF64Copysign},
		"min":      {ast.F32: wasm.OpF32Min, ast.F64: wasm.OpF64Min},
		"max":      {ast.F32: wasm.OpF32Max, ast.F64: wasm.OpF64Max},
	}
	if op, ok := table[name][typ]; ok {
		return op, nil
	}
	return 0, errors.TypeMismatch(pos, "%s requires a float argument, got %v", name, typ)
}

func intUnaryOp(pos ast.Pos, name string, typ ast.ValType) (byte, error) {
	table := map[string]map[ast.ValType]byte{
		"clz":    {ast.I32: wasm.OpI32Clz, ast.I64: wasm.OpI64Clz},
		"ctz":    {ast.I32: wasm.OpI32Ctz, ast.I64: wasm.OpI64Ctz},
		"popcnt": {ast.I32: wasm.OpI32Popcnt, ast.I64: wasm.OpI64Popcnt},
	}
	if op, ok := table[name][typ]; ok {
		return op, nil
	}
	return 0, errors.TypeMismatch(pos, "%s requires an integer argument, got %v", name, typ)
}

func rotateOp(pos ast.Pos, name string, typ ast.ValType) (byte, error) {
	table := map[string]map[ast.ValType]byte{
		"rotl": {ast.I32: wasm.OpI32Rotl, ast.I64: wasm.OpI64Rotl},
		"rotr": {ast.I32: wasm.OpI32Rotr, ast.I64: wasm.OpI64Rotr},
	}
	if op, ok := table[name][typ]; ok {
		return op, nil
	}
	return 0, errors.TypeMismatch(pos, "%s requires an integer argument, got %v", name, typ)
}

// emitIntMinMax lowers integer min/max to a compare-and-select sequence,
// since Wasm only defines min/max instructions for floats. Both operands
// are already on the stack; they're duplicated via locals so the
// comparison doesn't consume the values select needs.
func (e *funcEmitter) emitIntMinMax(pos ast.Pos, name string, typ ast.ValType) error {
	tmpA, tmpB := e.tempSlot(typ), e.tempSlot(typ)
	e.w.Byte(wasm.OpLocalSet)
	e.w.WriteU32(uint32(tmpB))
	e.w.Byte(wasm.OpLocalTee)
	e.w.WriteU32(uint32(tmpA))
	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(tmpB))
	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(tmpA))
	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(tmpB))

	var op byte
	switch typ {
	case ast.I32:
		if name == "min" {
			op = wasm.OpI32LtS
		} else {
			op = wasm.OpI32GtS
		}
	case ast.I64:
		if name == "min" {
			op = wasm.OpI64LtS
		} else {
			op = wasm.OpI64GtS
		}
	default:
		return errors.TypeMismatch(pos, "%s requires an integer argument, got %v", name, typ)
	}
	e.w.Byte(op)
	e.w.Byte(wasm.OpSelect)
	return nil
}
