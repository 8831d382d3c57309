package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/wasm"
)

func (e *funcEmitter) emitStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assign:
		return e.emitAssign(n)
	case *ast.ArrayStore:
		return e.emitArrayStore(n)
	case *ast.If:
		return e.emitIf(n)
	case *ast.For:
		return e.emitFor(n)
	case *ast.While:
		return e.emitWhile(n)
	case *ast.DoWhile:
		return e.emitDoWhile(n)
	case *ast.Break:
		depth, err := e.breakDepth(n.Pos)
		if err != nil {
			return err
		}
		e.w.Byte(wasm.OpBr)
		e.w.WriteU32(uint32(depth))
		return nil
	case *ast.CallStmt:
		_, err := e.emitCall(n.Pos, n.Name, n.Args, ast.Void, true)
		return err
	case *ast.Return:
		return e.emitReturn(n)
	case *ast.TailCall:
		return e.emitTailCall(n)
	}
	return errors.Unsupported(errors.PhaseGenerate, s.Position(), "unknown statement %T", s)
}

func (e *funcEmitter) emitAssign(n *ast.Assign) error {
	slot, ok := e.localIdx[n.Name]
	if ok {
		typ := e.localTypes[slot]
		if _, err := e.emitExpr(n.Value, typ); err != nil {
			return err
		}
		e.w.Byte(wasm.OpLocalSet)
		e.w.WriteU32(uint32(slot))
		return nil
	}
	if gidx, ok := e.g.globalIndex[n.Name]; ok {
		gd := e.g.mod.Globals[gidx]
		if _, err := e.emitExpr(n.Value, gd.Type); err != nil {
			return err
		}
		e.w.Byte(wasm.OpGlobalSet)
		e.w.WriteU32(uint32(gidx))
		return nil
	}
	return errors.Undefined(errors.PhaseGenerate, n.Pos, "variable", n.Name)
}

func (e *funcEmitter) emitArrayStore(n *ast.ArrayStore) error {
	// A declared array's element type comes from its own declaration;
	// a bare pointer has none, so the value being stored supplies it.
	elemType, err := e.emitArrayAddress(n.Pos, n.Name, n.Indices, e.inferType(n.Value))
	if err != nil {
		return err
	}
	if _, err := e.emitExpr(n.Value, elemType); err != nil {
		return err
	}
	return e.emitStore(n.Pos, elemType)
}

func (e *funcEmitter) emitIf(n *ast.If) error {
	if _, err := e.emitExpr(n.Cond, ast.I32); err != nil {
		return err
	}
	e.w.Byte(wasm.OpIf)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(false)
	for _, s := range n.Then {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}
	if len(n.Else) > 0 {
		e.w.Byte(wasm.OpElse)
		for _, s := range n.Else {
			if err := e.emitStmt(s); err != nil {
				return err
			}
		}
	}
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	return nil
}

// emitFor emits: init-store; outer block; inner loop; direction-dependent
// exit test; body; increment; branch to inner; end loop; end block.
//
// spec.md's prose names the exit-test comparison directly (`<=` for a
// negative-literal step, `>=` otherwise) but that reading terminates the
// loop one iteration early or late; this emits the continuation test
// instead (i<=end ascending, i>=end descending) and branches out on its
// negation, which is the off-by-one-free form of the same rule.
func (e *funcEmitter) emitFor(n *ast.For) error {
	slot, ok := e.localIdx[n.Var]
	if !ok {
		return errors.Undefined(errors.PhaseGenerate, n.Pos, "loop variable", n.Var)
	}
	varType := e.localTypes[slot]

	if _, err := e.emitExpr(n.Start, varType); err != nil {
		return err
	}
	e.w.Byte(wasm.OpLocalSet)
	e.w.WriteU32(uint32(slot))

	descending := isNegativeLiteralStep(n.Step)

	e.w.Byte(wasm.OpBlock)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(true)
	e.w.Byte(wasm.OpLoop)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(false)

	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(slot))
	if _, err := e.emitExpr(n.End, varType); err != nil {
		return err
	}
	op, err := exitTestOp(varType, descending)
	if err != nil {
		return err
	}
	e.w.Byte(op)
	e.w.Byte(wasm.OpI32Eqz)
	e.w.Byte(wasm.OpBrIf)
	e.w.WriteU32(1) // out of the loop, past the outer block

	for _, s := range n.Body {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}

	e.w.Byte(wasm.OpLocalGet)
	e.w.WriteU32(uint32(slot))
	if n.Step != nil {
		if _, err := e.emitExpr(n.Step, varType); err != nil {
			return err
		}
	} else {
		if err := e.emitOne(varType); err != nil {
			return err
		}
	}
	addOp, err := typedOp(varType, addOps)
	if err != nil {
		return err
	}
	e.w.Byte(addOp)
	e.w.Byte(wasm.OpLocalSet)
	e.w.WriteU32(uint32(slot))

	e.w.Byte(wasm.OpBr)
	e.w.WriteU32(0)
	e.popLabel()
	e.w.Byte(wasm.OpEnd) // loop
	e.popLabel()
	e.w.Byte(wasm.OpEnd) // block
	return nil
}

func isNegativeLiteralStep(step ast.Expr) bool {
	u, ok := step.(*ast.Unary)
	if !ok || u.Op != "-" {
		return false
	}
	_, ok = u.Operand.(*ast.NumberLit)
	return ok
}

// exitTestOp returns the comparison that is true while the loop should
// continue: i<=end ascending, i>=end descending.
func exitTestOp(t ast.ValType, descending bool) (byte, error) {
	if descending {
		return typedOp(t, geOps)
	}
	return typedOp(t, leOps)
}

func (e *funcEmitter) emitWhile(n *ast.While) error {
	e.w.Byte(wasm.OpBlock)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(true)
	e.w.Byte(wasm.OpLoop)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(false)

	if _, err := e.emitExpr(n.Cond, ast.I32); err != nil {
		return err
	}
	e.w.Byte(wasm.OpI32Eqz)
	e.w.Byte(wasm.OpBrIf)
	e.w.WriteU32(1)

	for _, s := range n.Body {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}

	e.w.Byte(wasm.OpBr)
	e.w.WriteU32(0)
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	return nil
}

func (e *funcEmitter) emitDoWhile(n *ast.DoWhile) error {
	e.w.Byte(wasm.OpBlock)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(true)
	e.w.Byte(wasm.OpLoop)
	e.w.WriteI32(wasm.BlockTypeVoid)
	e.pushLabel(false)

	for _, s := range n.Body {
		if err := e.emitStmt(s); err != nil {
			return err
		}
	}

	if _, err := e.emitExpr(n.Cond, ast.I32); err != nil {
		return err
	}
	e.w.Byte(wasm.OpBrIf)
	e.w.WriteU32(0)
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	e.popLabel()
	e.w.Byte(wasm.OpEnd)
	return nil
}

func (e *funcEmitter) emitReturn(n *ast.Return) error {
	if n.Value != nil {
		if e.returnSlot < 0 {
			return errors.TypeMismatch(n.Pos, "a subroutine cannot return a value")
		}
		if _, err := e.emitExpr(n.Value, e.localTypes[e.returnSlot]); err != nil {
			return err
		}
		e.w.Byte(wasm.OpLocalSet)
		e.w.WriteU32(uint32(e.returnSlot))
	}
	e.w.Byte(wasm.OpReturn)
	return nil
}

func (e *funcEmitter) emitTailCall(n *ast.TailCall) error {
	var sig ast.FuncSig
	indirect := false
	var getOp byte
	var idx int

	if fs, op, slot, ok := e.indirectTarget(n.Name); ok {
		sig, indirect, getOp, idx = *fs, true, op, slot
	} else if s, ok := e.g.funcSigOf(n.Name); ok {
		sig = s
	} else {
		return errors.Undefined(errors.PhaseGenerate, n.Pos, "function", n.Name)
	}

	if e.fn.IsSub {
		if !sig.IsVoid {
			return errors.TypeMismatch(n.Pos, "tail call to %q must return nothing, like %q", n.Name, e.fn.Name)
		}
	} else if sig.IsVoid || sig.Return != e.fn.Return {
		return errors.TypeMismatch(n.Pos, "tail call to %q must return %v, like %q", n.Name, e.fn.Return, e.fn.Name)
	}
	if err := e.emitArgs(n.Args, sig.Params); err != nil {
		return err
	}
	if indirect {
		e.w.Byte(getOp)
		e.w.WriteU32(uint32(idx))
		e.w.Byte(wasm.OpReturnCallIndirect)
		e.w.WriteU32(uint32(e.g.sigOf(sig)))
		e.w.WriteU32(0)
		return nil
	}
	e.w.Byte(wasm.OpReturnCall)
	e.w.WriteU32(uint32(e.g.funcIndex[n.Name]))
	return nil
}

func (e *funcEmitter) emitOne(t ast.ValType) error {
	switch t {
	case ast.I32:
		e.w.Byte(wasm.OpI32Const)
		e.w.WriteI32(1)
	case ast.I64:
		e.w.Byte(wasm.OpI64Const)
		e.w.WriteI64(1)
	case ast.F32:
		e.w.Byte(wasm.OpF32Const)
		e.w.WriteF32(1)
	case ast.F64:
		e.w.Byte(wasm.OpF64Const)
		e.w.WriteF64(1)
	default:
		return errors.TypeMismatch(ast.Pos{}, "loop variable type %v cannot be incremented", t)
	}
	return nil
}
