package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

var addOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Add, ast.I64: wasm.OpI64Add, ast.F32: wasm.OpF32Add, ast.F64: wasm.OpF64Add, ast.F32x4: wasm.OpPrefixSIMD, ast.F64x2: wasm.OpPrefixSIMD, ast.I32x4: wasm.OpPrefixSIMD, ast.I64x2: wasm.OpPrefixSIMD}
var subOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Sub, ast.I64: wasm.OpI64Sub, ast.F32: wasm.OpF32Sub, ast.F64: wasm.OpF64Sub}
var mulOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Mul, ast.I64: wasm.OpI64Mul, ast.F32: wasm.OpF32Mul, ast.F64: wasm.OpF64Mul}
var divOps = map[ast.ValType]byte{ast.I32: wasm.OpI32DivS, ast.I64: wasm.OpI64DivS, ast.F32: wasm.OpF32Div, ast.F64: wasm.OpF64Div}
var andOps = map[ast.ValType]byte{ast.I32: wasm.OpI32And, ast.I64: wasm.OpI64And}
var orOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Or, ast.I64: wasm.OpI64Or}
var xorOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Xor, ast.I64: wasm.OpI64Xor}
var shlOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Shl, ast.I64: wasm.OpI64Shl}
var shrOps = map[ast.ValType]byte{ast.I32: wasm.OpI32ShrS, ast.I64: wasm.OpI64ShrS}
var eqOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Eq, ast.I64: wasm.OpI64Eq, ast.F32: wasm.OpF32Eq, ast.F64: wasm.OpF64Eq}
var neOps = map[ast.ValType]byte{ast.I32: wasm.OpI32Ne, ast.I64: wasm.OpI64Ne, ast.F32: wasm.OpF32Ne, ast.F64: wasm.OpF64Ne}
var ltOps = map[ast.ValType]byte{ast.I32: wasm.OpI32LtS, ast.I64: wasm.OpI64LtS, ast.F32: wasm.OpF32Lt, ast.F64: wasm.OpF64Lt}
var gtOps = map[ast.ValType]byte{ast.I32: wasm.OpI32GtS, ast.I64: wasm.OpI64GtS, ast.F32: wasm.OpF32Gt, ast.F64: wasm.OpF64Gt}
var leOps = map[ast.ValType]byte{ast.I32: wasm.OpI32LeS, ast.I64: wasm.OpI64LeS, ast.F32: wasm.OpF32Le, ast.F64: wasm.OpF64Le}
var geOps = map[ast.ValType]byte{ast.I32: wasm.OpI32GeS, ast.I64: wasm.OpI64GeS, ast.F32: wasm.OpF32Ge, ast.F64: wasm.OpF64Ge}

func typedOp(t ast.ValType, table map[ast.ValType]byte) (byte, error) {
	if op, ok := table[t]; ok {
		return op, nil
	}
	return 0, errors.TypeMismatch(ast.Pos{}, "operator is not defined for type %v", t)
}

// emitExpr emits e, coercing numeric literals to expected when given, and
// returns the type the expression actually produced.
func (e *funcEmitter) emitExpr(expr ast.Expr, expected ast.ValType) (ast.ValType, error) {
	switch n := expr.(type) {
	case *ast.NumberLit:
		typ := expected
		if typ == ast.Void {
			typ = literalType(n)
		}
		if err := writeTypedConst(e.w, typ, n, false); err != nil {
			return ast.Void, err
		}
		return typ, nil

	case *ast.Ident:
		if slot, ok := e.localIdx[n.Name]; ok {
			e.w.Byte(wasm.OpLocalGet)
			e.w.WriteU32(uint32(slot))
			return e.localTypes[slot], nil
		}
		if gidx, ok := e.g.globalIndex[n.Name]; ok {
			gd := e.g.mod.Globals[gidx]
			e.w.Byte(wasm.OpGlobalGet)
			e.w.WriteU32(uint32(gidx))
			if gd.FuncSig != nil {
				return ast.I32, nil
			}
			return gd.Type, nil
		}
		return ast.Void, errors.Undefined(errors.PhaseGenerate, n.Pos, "variable", n.Name)

	case *ast.FuncRef:
		slot, ok := e.g.tableSlot[n.Name]
		if !ok {
			return ast.Void, errors.Undefined(errors.PhaseGenerate, n.Pos, "function", n.Name)
		}
		e.w.Byte(wasm.OpI32Const)
		e.w.WriteI32(int32(slot))
		return ast.I32, nil

	case *ast.Call:
		return e.emitCall(n.Pos, n.Name, n.Args, expected, false)

	case *ast.Index:
		elemType, err := e.emitArrayAddress(n.Pos, n.Name, n.Indices, expected)
		if err != nil {
			return ast.Void, err
		}
		if err := e.emitLoad(n.Pos, elemType); err != nil {
			return ast.Void, err
		}
		return elemType, nil

	case *ast.Binary:
		return e.emitBinary(n, expected)

	case *ast.Unary:
		return e.emitUnary(n, expected)

	case *ast.Ternary:
		return e.emitTernary(n, expected)

	case *ast.Convert:
		return e.emitConvert(n)
	}
	return ast.Void, errors.Unsupported(errors.PhaseGenerate, expr.Position(), "unknown expression %T", expr)
}

func (e *funcEmitter) emitBinary(n *ast.Binary, expected ast.ValType) (ast.ValType, error) {
	switch n.Op {
	case "and", "or":
		if _, err := e.emitExpr(n.Left, ast.I32); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(n.Right, ast.I32); err != nil {
			return ast.Void, err
		}
		if n.Op == "and" {
			e.w.Byte(wasm.OpI32And)
		} else {
			e.w.Byte(wasm.OpI32Or)
		}
		return ast.I32, nil

	case "==", "/=", "<", ">", "<=", ">=":
		typ := e.inferType(n.Left)
		if _, err := e.emitExpr(n.Left, typ); err != nil {
			return ast.Void, err
		}
		if _, err := e.emitExpr(n.Right, typ); err != nil {
			return ast.Void, err
		}
		if typ.IsVector() {
			op, err := simdCompareOp(typ, n.Op)
			if err != nil {
				return ast.Void, err
			}
			e.w.Byte(wasm.OpPrefixSIMD)
			e.w.WriteU32(op)
			return typ, nil
		}
		var table map[ast.ValType]byte
		switch n.Op {
		case "==":
			table = eqOps
		case "/=":
			table = neOps
		case "<":
			table = ltOps
		case ">":
			table = gtOps
		case "<=":
			table = leOps
		case ">=":
			table = geOps
		}
		op, err := typedOp(typ, table)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(op)
		return ast.I32, nil

	case "**":
		return e.emitPower(n, expected)
	}

	typ := expected
	if typ == ast.Void {
		typ = e.inferType(n.Left)
	}
	if _, err := e.emitExpr(n.Left, typ); err != nil {
		return ast.Void, err
	}
	if _, err := e.emitExpr(n.Right, typ); err != nil {
		return ast.Void, err
	}
	if typ.IsVector() {
		op, err := simdBinaryOp(typ, n.Op)
		if err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpPrefixSIMD)
		e.w.WriteU32(op)
		return typ, nil
	}
	var table map[ast.ValType]byte
	switch n.Op {
	case "+":
		table = addOps
	case "-":
		table = subOps
	case "*":
		table = mulOps
	case "/":
		table = divOps
	case "&":
		table = andOps
	case "|":
		table = orOps
	case "^":
		table = xorOps
	case "<<":
		table = shlOps
	case ">>":
		table = shrOps
	default:
		return ast.Void, errors.Unsupported(errors.PhaseGenerate, n.Pos, "unknown operator %q", n.Op)
	}
	op, err := typedOp(typ, table)
	if err != nil {
		return ast.Void, err
	}
	e.w.Byte(op)
	return typ, nil
}

// emitPower special-cases exponent 0.5 as sqrt in the base's own type;
// anything else promotes to f64, calls the auto-imported `pow`, and demotes
// back to f32 if that was the expected type.
func (e *funcEmitter) emitPower(n *ast.Binary, expected ast.ValType) (ast.ValType, error) {
	typ := expected
	if typ == ast.Void {
		typ = e.inferType(n.Left)
	}
	if isSqrtExponent(n.Right) {
		if _, err := e.emitExpr(n.Left, typ); err != nil {
			return ast.Void, err
		}
		switch typ {
		case ast.F32:
			e.w.Byte(wasm.OpF32Sqrt)
		case ast.F64:
			e.w.Byte(wasm.OpF64Sqrt)
		default:
			return ast.Void, errors.TypeMismatch(n.Pos, "sqrt requires a float base, got %v", typ)
		}
		return typ, nil
	}

	if _, err := e.emitExpr(n.Left, ast.F64); err != nil {
		return ast.Void, err
	}
	if _, err := e.emitExpr(n.Right, ast.F64); err != nil {
		return ast.Void, err
	}
	idx, ok := e.g.funcIndex["pow"]
	if !ok {
		return ast.Void, errors.Undefined(errors.PhaseGenerate, n.Pos, "function", "pow")
	}
	e.w.Byte(wasm.OpCall)
	e.w.WriteU32(uint32(idx))
	if typ == ast.F32 {
		e.w.Byte(wasm.OpF32DemoteF64)
		return ast.F32, nil
	}
	return ast.F64, nil
}

func (e *funcEmitter) emitUnary(n *ast.Unary, expected ast.ValType) (ast.ValType, error) {
	switch n.Op {
	case "not":
		if _, err := e.emitExpr(n.Operand, ast.I32); err != nil {
			return ast.Void, err
		}
		e.w.Byte(wasm.OpI32Eqz)
		return ast.I32, nil

	case "~":
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(n.Operand)
		}
		if _, err := e.emitExpr(n.Operand, typ); err != nil {
			return ast.Void, err
		}
		switch typ {
		case ast.I32:
			e.w.Byte(wasm.OpI32Const)
			e.w.WriteI32(-1)
			e.w.Byte(wasm.OpI32Xor)
		case ast.I64:
			e.w.Byte(wasm.OpI64Const)
			e.w.WriteI64(-1)
			e.w.Byte(wasm.OpI64Xor)
		default:
			return ast.Void, errors.TypeMismatch(n.Pos, "bitwise not requires an integer, got %v", typ)
		}
		return typ, nil

	case "-":
		typ := expected
		if typ == ast.Void {
			typ = e.inferType(n.Operand)
		}
		switch typ {
		case ast.F32:
			if _, err := e.emitExpr(n.Operand, typ); err != nil {
				return ast.Void, err
			}
			e.w.Byte(wasm.OpF32Neg)
		case ast.F64:
			if _, err := e.emitExpr(n.Operand, typ); err != nil {
				return ast.Void, err
			}
			e.w.Byte(wasm.OpF64Neg)
		case ast.I32:
			e.w.Byte(wasm.OpI32Const)
			e.w.WriteI32(0)
			if _, err := e.emitExpr(n.Operand, typ); err != nil {
				return ast.Void, err
			}
			e.w.Byte(wasm.OpI32Sub)
		case ast.I64:
			e.w.Byte(wasm.OpI64Const)
			e.w.WriteI64(0)
			if _, err := e.emitExpr(n.Operand, typ); err != nil {
				return ast.Void, err
			}
			e.w.Byte(wasm.OpI64Sub)
		default:
			return ast.Void, errors.TypeMismatch(n.Pos, "unary minus is not defined for type %v", typ)
		}
		return typ, nil
	}
	return ast.Void, errors.Unsupported(errors.PhaseGenerate, n.Pos, "unknown unary operator %q", n.Op)
}

func (e *funcEmitter) emitTernary(n *ast.Ternary, expected ast.ValType) (ast.ValType, error) {
	typ := expected
	if typ == ast.Void {
		typ = e.inferType(n.Then)
	}
	if _, err := e.emitExpr(n.Cond, ast.I32); err != nil {
		return ast.Void, err
	}
	e.w.Byte(wasm.OpIf)
	e.w.WriteI32(blockTypeFor(typ))
	e.pushLabel(false)
	if _, err := e.emitExpr(n.Then, typ); err != nil {
		return ast.Void, err
	}
	e.w.Byte(wasm.OpElse)
	if _, err := e.emitExpr(n.Else, typ); err != nil {
		return ast.Void, err
	}
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	return typ, nil
}

// inferType infers an expression's type without emitting anything: a
// literal's suffix or floatness, a variable's declared type, a
// comparison's result (i32, or the operand's vector type for a vector
// comparison), a call's declared return type, the lane type of an
// extract_lane, or f64 by default.
func (e *funcEmitter) inferType(expr ast.Expr) ast.ValType {
	switch n := expr.(type) {
	case *ast.NumberLit:
		return literalType(n)
	case *ast.Ident:
		if slot, ok := e.localIdx[n.Name]; ok {
			return e.localTypes[slot]
		}
		if gidx, ok := e.g.globalIndex[n.Name]; ok {
			return e.g.mod.Globals[gidx].Type
		}
		return ast.F64
	case *ast.FuncRef:
		return ast.I32
	case *ast.Binary:
		switch n.Op {
		case "==", "/=", "<", ">", "<=", ">=":
			if t := e.inferType(n.Left); t.IsVector() {
				return t
			}
			return ast.I32
		case "and", "or":
			return ast.I32
		}
		return e.inferType(n.Left)
	case *ast.Unary:
		if n.Op == "not" {
			return ast.I32
		}
		return e.inferType(n.Operand)
	case *ast.Ternary:
		return e.inferType(n.Then)
	case *ast.Convert:
		return n.Type
	case *ast.Call:
		if fs, _, _, ok := e.indirectTarget(n.Name); ok {
			return fs.Return
		}
		if sig, ok := e.g.funcSigOf(n.Name); ok {
			return sig.Return
		}
		if n.Name == "extract_lane" && len(n.Args) == 2 {
			if vt := e.inferType(n.Args[0]); vt.IsVector() {
				return vt.Elem()
			}
		}
		return ast.F64
	case *ast.Index:
		if typ, _, err := e.resolveArrayElemType(n.Name); err == nil {
			return typ
		}
		return ast.F64
	}
	return ast.F64
}

// indirectTarget reports whether name is a function-typed parameter or
// global, returning its signature and how to fetch its table index.
func (e *funcEmitter) indirectTarget(name string) (*ast.FuncSig, byte, int, bool) {
	if fs, ok := e.localSig[name]; ok {
		return fs, wasm.OpLocalGet, e.localIdx[name], true
	}
	if gidx, ok := e.g.globalIndex[name]; ok {
		gd := e.g.mod.Globals[gidx]
		if gd.FuncSig != nil {
			return gd.FuncSig, wasm.OpGlobalGet, gidx, true
		}
	}
	return nil, 0, 0, false
}

func (e *funcEmitter) emitArgs(args []ast.Expr, params []ast.ValType) error {
	for i, a := range args {
		typ := ast.F64
		if i < len(params) {
			typ = params[i]
		}
		if _, err := e.emitExpr(a, typ); err != nil {
			return err
		}
	}
	return nil
}

// emitCall emits a call: through a function-typed variable (call_indirect),
// a native builtin (inline instructions), the `wasm.*` escape hatch, or a
// plain direct call. isStmt drops a non-void result, since a statement-form
// call discards it.
func (e *funcEmitter) emitCall(pos ast.Pos, name string, args []ast.Expr, expected ast.ValType, isStmt bool) (ast.ValType, error) {
	if fs, getOp, idx, ok := e.indirectTarget(name); ok {
		if err := e.emitArgs(args, fs.Params); err != nil {
			return ast.Void, err
		}
		e.w.Byte(getOp)
		e.w.WriteU32(uint32(idx))
		e.w.Byte(wasm.OpCallIndirect)
		e.w.WriteU32(uint32(e.g.sigOf(*fs)))
		e.w.WriteU32(0)
		if fs.IsVoid {
			if !isStmt {
				return ast.Void, errors.TypeMismatch(pos, "%q returns nothing and cannot be used as a value", name)
			}
			return ast.Void, nil
		}
		if isStmt {
			e.w.Byte(wasm.OpDrop)
		}
		return fs.Return, nil
	}

	if isNativeBuiltin(name) {
		return e.emitBuiltin(pos, name, args, expected, isStmt)
	}
	if isWasmEscape(name) {
		return e.emitWasmEscape(pos, name[len("wasm."):], args, expected)
	}

	sig, ok := e.g.funcSigOf(name)
	if !ok {
		return ast.Void, errors.Undefined(errors.PhaseGenerate, pos, "function", name)
	}
	if err := e.emitArgs(args, sig.Params); err != nil {
		return ast.Void, err
	}
	e.w.Byte(wasm.OpCall)
	e.w.WriteU32(uint32(e.g.funcIndex[name]))
	if sig.IsVoid {
		if !isStmt {
			return ast.Void, errors.TypeMismatch(pos, "%q returns nothing and cannot be used as a value", name)
		}
		return ast.Void, nil
	}
	if isStmt {
		e.w.Byte(wasm.OpDrop)
	}
	return sig.Return, nil
}
