package codegen

import "github.com/atra-lang/atra/ast"

// discoverCalls is pass 2: walk every function body and record the name
// of each called identifier, so pass 3 knows what needs an auto-import.
// `**` is special-cased: it needs `pow` unless the exponent is the
// constant 0.5, in which case the code generator emits `sqrt` inline.
func (g *Generator) discoverCalls() {
	for _, fn := range g.mod.Funcs {
		for _, s := range fn.Body {
			g.walkStmtCalls(s)
		}
	}
	for _, gd := range g.mod.Globals {
		if gd.Init != nil {
			g.walkExprCalls(gd.Init)
		}
	}
}

func (g *Generator) walkStmtCalls(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Assign:
		g.walkExprCalls(n.Value)
	case *ast.ArrayStore:
		g.needsMemory = true
		for _, idx := range n.Indices {
			g.walkExprCalls(idx)
		}
		g.walkExprCalls(n.Value)
	case *ast.If:
		g.walkExprCalls(n.Cond)
		for _, s2 := range n.Then {
			g.walkStmtCalls(s2)
		}
		for _, s2 := range n.Else {
			g.walkStmtCalls(s2)
		}
	case *ast.For:
		g.walkExprCalls(n.Start)
		g.walkExprCalls(n.End)
		if n.Step != nil {
			g.walkExprCalls(n.Step)
		}
		for _, s2 := range n.Body {
			g.walkStmtCalls(s2)
		}
	case *ast.While:
		g.walkExprCalls(n.Cond)
		for _, s2 := range n.Body {
			g.walkStmtCalls(s2)
		}
	case *ast.DoWhile:
		for _, s2 := range n.Body {
			g.walkStmtCalls(s2)
		}
		g.walkExprCalls(n.Cond)
	case *ast.CallStmt:
		g.recordCall(n.Name)
		for _, a := range n.Args {
			g.walkExprCalls(a)
		}
	case *ast.TailCall:
		g.recordCall(n.Name)
		for _, a := range n.Args {
			g.walkExprCalls(a)
		}
	case *ast.Return:
		if n.Value != nil {
			g.walkExprCalls(n.Value)
		}
	}
}

func (g *Generator) walkExprCalls(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Binary:
		g.walkExprCalls(n.Left)
		g.walkExprCalls(n.Right)
		if n.Op == "**" && !isSqrtExponent(n.Right) {
			g.recordCall("pow")
		}
	case *ast.Unary:
		g.walkExprCalls(n.Operand)
	case *ast.Ternary:
		g.walkExprCalls(n.Cond)
		g.walkExprCalls(n.Then)
		g.walkExprCalls(n.Else)
	case *ast.Index:
		g.needsMemory = true
		for _, idx := range n.Indices {
			g.walkExprCalls(idx)
		}
	case *ast.Convert:
		for _, a := range n.Args {
			g.walkExprCalls(a)
		}
	case *ast.Call:
		// A call through a function-typed variable isn't a name that
		// needs resolving by import synthesis; only record free names.
		if _, isVar := g.funcTypedVar(n.Name); !isVar {
			g.recordCall(n.Name)
		}
		for _, a := range n.Args {
			g.walkExprCalls(a)
		}
	}
}

func (g *Generator) recordCall(name string) {
	switch name {
	case "memory_size", "memory_grow", "memory_copy", "memory_fill":
		g.needsMemory = true
	}
	if isNativeBuiltin(name) || isWasmEscape(name) || isValTypeName(name) {
		return
	}
	if _, isLocal := g.funcIndex[name]; isLocal {
		return
	}
	g.calledNames[name] = true
}

// funcTypedVar reports whether name is a function-typed parameter or
// global (locals cannot be function-typed), used to recognize `call f(...)` where f is a variable holding
// a function reference rather than a direct call.
func (g *Generator) funcTypedVar(name string) (*ast.FuncSig, bool) {
	for _, fn := range g.mod.Funcs {
		for _, p := range fn.Params {
			if p.Name == name && p.FuncSig != nil {
				return p.FuncSig, true
			}
		}
	}
	for _, gd := range g.mod.Globals {
		if gd.Name == name && gd.FuncSig != nil {
			return gd.FuncSig, true
		}
	}
	return nil, false
}
