package codegen

import "github.com/atra-lang/atra/ast"

// collect is pass 1: partition top-level declarations, assign function
// index space for explicit imports and local functions (imports first, in
// source order, per the invariant), and register every function-typed
// global's signature so call sites that invoke through it type-check.
func (g *Generator) collect() error {
	for _, imp := range g.mod.Imports {
		idx := len(g.imports)
		name := imp.Module + "." + imp.Field
		g.imports = append(g.imports, &importFunc{
			name: name, module: imp.Module, field: imp.Field, sig: imp.Sig, kind: importExplicit,
		})
		g.importIdx[name] = idx
		g.funcIndex[name] = idx
		g.sigOf(imp.Sig)
	}

	for _, fn := range g.mod.Funcs {
		idx := len(g.imports) + len(g.localFuncs)
		g.localFuncs = append(g.localFuncs, fn)
		g.funcIndex[fn.Name] = idx
		g.sigOf(fn.Sig())
	}

	for i, gd := range g.mod.Globals {
		g.globalIndex[gd.Name] = i
		if gd.FuncSig != nil {
			g.sigOf(*gd.FuncSig)
		}
	}

	for _, fn := range g.mod.Funcs {
		for _, p := range fn.Params {
			if p.IsArray {
				g.needsMemory = true
			}
		}
	}

	return nil
}

// funcSigOf returns the call signature a name resolves to if it is a local
// function or an explicit/auto import, or ok=false otherwise.
func (g *Generator) funcSigOf(name string) (ast.FuncSig, bool) {
	if fn := g.mod.FuncByName(name); fn != nil {
		return fn.Sig(), true
	}
	for _, imp := range g.imports {
		if imp.name == name {
			return imp.sig, true
		}
	}
	return ast.FuncSig{}, false
}
