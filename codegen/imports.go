package codegen

import "github.com/atra-lang/atra/ast"

// synthesizeImports is pass 3. Every discovered call name that isn't a
// local function, a native builtin, a SIMD/escape builtin, or an explicit
// import becomes an import: the fixed math names resolve to module
// `math` with f64 params/return; everything else resolves to module
// `host`, with as many f64 parameters as the call site's widest use
// supplies. Atra's compiler has no access to the embedder's userImports
// map at compile time (only `Run` does), so unlike a dynamic host it
// cannot check whether the name will actually be supplied — that check is
// deferred to instantiation, which fails loudly if a host import is
// missing.
func (g *Generator) synthesizeImports() error {
	argCounts := map[string]int{}
	for _, fn := range g.mod.Funcs {
		for _, s := range fn.Body {
			collectCallArity(s, argCounts)
		}
	}

	for _, name := range sortedKeys(g.calledNames) {
		if _, isExplicit := g.importIdx[name]; isExplicit {
			continue
		}
		if arity, ok := mathNames[name]; ok {
			g.addImport(name, "math", name, ast.FuncSig{
				Params: constF64s(arity), Return: ast.F64,
			})
			continue
		}
		g.addImport(name, "host", name, ast.FuncSig{
			Params: constF64s(argCounts[name]), Return: ast.F64,
		})
	}
	return nil
}

func (g *Generator) addImport(name, module, field string, sig ast.FuncSig) {
	idx := len(g.imports)
	g.imports = append(g.imports, &importFunc{name: name, module: module, field: field, sig: sig, kind: importKindFor(module)})
	g.importIdx[name] = idx
	// Local function indices were assigned relative to len(g.imports) at
	// collection time; inserting an auto-import after that shifts every
	// local function index by one, so renumber.
	for fname := range g.funcIndex {
		if _, isImp := g.importIdx[fname]; !isImp {
			g.funcIndex[fname]++
		}
	}
	g.funcIndex[name] = idx
	g.sigOf(sig)
}

func importKindFor(module string) importKind {
	if module == "math" {
		return importMath
	}
	return importHost
}

func constF64s(n int) []ast.ValType {
	out := make([]ast.ValType, n)
	for i := range out {
		out[i] = ast.F64
	}
	return out
}

// collectCallArity records, for each free-call name, the largest argument
// count any call site used, so the synthesized host import's signature
// matches at least the widest call.
func collectCallArity(s ast.Stmt, out map[string]int) {
	switch n := s.(type) {
	case *ast.Assign:
		collectExprCallArity(n.Value, out)
	case *ast.ArrayStore:
		for _, idx := range n.Indices {
			collectExprCallArity(idx, out)
		}
		collectExprCallArity(n.Value, out)
	case *ast.If:
		collectExprCallArity(n.Cond, out)
		for _, s2 := range n.Then {
			collectCallArity(s2, out)
		}
		for _, s2 := range n.Else {
			collectCallArity(s2, out)
		}
	case *ast.For:
		collectExprCallArity(n.Start, out)
		collectExprCallArity(n.End, out)
		if n.Step != nil {
			collectExprCallArity(n.Step, out)
		}
		for _, s2 := range n.Body {
			collectCallArity(s2, out)
		}
	case *ast.While:
		collectExprCallArity(n.Cond, out)
		for _, s2 := range n.Body {
			collectCallArity(s2, out)
		}
	case *ast.DoWhile:
		for _, s2 := range n.Body {
			collectCallArity(s2, out)
		}
		collectExprCallArity(n.Cond, out)
	case *ast.CallStmt:
		if n.Name != "" {
			if len(n.Args) > out[n.Name] {
				out[n.Name] = len(n.Args)
			}
		}
		for _, a := range n.Args {
			collectExprCallArity(a, out)
		}
	case *ast.TailCall:
		if len(n.Args) > out[n.Name] {
			out[n.Name] = len(n.Args)
		}
		for _, a := range n.Args {
			collectExprCallArity(a, out)
		}
	case *ast.Return:
		if n.Value != nil {
			collectExprCallArity(n.Value, out)
		}
	}
}

func collectExprCallArity(e ast.Expr, out map[string]int) {
	switch n := e.(type) {
	case *ast.Binary:
		collectExprCallArity(n.Left, out)
		collectExprCallArity(n.Right, out)
	case *ast.Unary:
		collectExprCallArity(n.Operand, out)
	case *ast.Ternary:
		collectExprCallArity(n.Cond, out)
		collectExprCallArity(n.Then, out)
		collectExprCallArity(n.Else, out)
	case *ast.Index:
		for _, idx := range n.Indices {
			collectExprCallArity(idx, out)
		}
	case *ast.Convert:
		for _, a := range n.Args {
			collectExprCallArity(a, out)
		}
	case *ast.Call:
		if len(n.Args) > out[n.Name] {
			out[n.Name] = len(n.Args)
		}
		for _, a := range n.Args {
			collectExprCallArity(a, out)
		}
	}
}
