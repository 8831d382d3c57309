package codegen

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
)

// discoverReferences is pass 4: a funcref table is needed if any
// function-typed parameter or global exists, or any `@name` is used
// anywhere in a function body. Locals cannot be function-typed. When needed, every explicit import
// and every local function gets a slot; auto-imports get one only if an
// `@name` actually references them. Slots are assigned in stable function
// index order.
func (g *Generator) discoverReferences() error {
	referenced := map[string]bool{}

	for _, gd := range g.mod.Globals {
		if gd.FuncSig != nil {
			g.needsTable = true
		}
	}
	for _, fn := range g.mod.Funcs {
		for _, p := range fn.Params {
			if p.FuncSig != nil {
				g.needsTable = true
			}
		}
		for _, s := range fn.Body {
			g.walkStmtRefs(s, referenced)
		}
	}
	for _, gd := range g.mod.Globals {
		if gd.Init != nil {
			g.walkExprRefs(gd.Init, referenced)
		}
	}

	if len(referenced) > 0 {
		g.needsTable = true
	}
	if !g.needsTable {
		return nil
	}

	for _, imp := range g.imports {
		if imp.kind == importExplicit || referenced[imp.name] {
			g.assignSlot(imp.name)
		}
	}
	for _, fn := range g.mod.Funcs {
		g.assignSlot(fn.Name)
	}
	for name := range referenced {
		if _, ok := g.funcIndex[name]; !ok {
			return errors.Undefined(errors.PhaseGenerate, ast.Pos{}, "function", name)
		}
	}
	return nil
}

func (g *Generator) assignSlot(name string) {
	if _, ok := g.tableSlot[name]; ok {
		return
	}
	g.tableSlot[name] = len(g.tableOrder)
	g.tableOrder = append(g.tableOrder, name)
}

func (g *Generator) walkStmtRefs(s ast.Stmt, out map[string]bool) {
	switch n := s.(type) {
	case *ast.Assign:
		g.walkExprRefs(n.Value, out)
	case *ast.ArrayStore:
		for _, idx := range n.Indices {
			g.walkExprRefs(idx, out)
		}
		g.walkExprRefs(n.Value, out)
	case *ast.If:
		g.walkExprRefs(n.Cond, out)
		for _, s2 := range n.Then {
			g.walkStmtRefs(s2, out)
		}
		for _, s2 := range n.Else {
			g.walkStmtRefs(s2, out)
		}
	case *ast.For:
		g.walkExprRefs(n.Start, out)
		g.walkExprRefs(n.End, out)
		if n.Step != nil {
			g.walkExprRefs(n.Step, out)
		}
		for _, s2 := range n.Body {
			g.walkStmtRefs(s2, out)
		}
	case *ast.While:
		g.walkExprRefs(n.Cond, out)
		for _, s2 := range n.Body {
			g.walkStmtRefs(s2, out)
		}
	case *ast.DoWhile:
		for _, s2 := range n.Body {
			g.walkStmtRefs(s2, out)
		}
		g.walkExprRefs(n.Cond, out)
	case *ast.CallStmt:
		for _, a := range n.Args {
			g.walkExprRefs(a, out)
		}
	case *ast.TailCall:
		for _, a := range n.Args {
			g.walkExprRefs(a, out)
		}
	case *ast.Return:
		if n.Value != nil {
			g.walkExprRefs(n.Value, out)
		}
	}
}

func (g *Generator) walkExprRefs(e ast.Expr, out map[string]bool) {
	switch n := e.(type) {
	case *ast.FuncRef:
		out[n.Name] = true
	case *ast.Binary:
		g.walkExprRefs(n.Left, out)
		g.walkExprRefs(n.Right, out)
	case *ast.Unary:
		g.walkExprRefs(n.Operand, out)
	case *ast.Ternary:
		g.walkExprRefs(n.Cond, out)
		g.walkExprRefs(n.Then, out)
		g.walkExprRefs(n.Else, out)
	case *ast.Index:
		for _, idx := range n.Indices {
			g.walkExprRefs(idx, out)
		}
	case *ast.Convert:
		for _, a := range n.Args {
			g.walkExprRefs(a, out)
		}
	case *ast.Call:
		for _, a := range n.Args {
			g.walkExprRefs(a, out)
		}
	}
}
