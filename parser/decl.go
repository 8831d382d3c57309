package parser

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
)

// parseFunc parses `function NAME(params): TYPE [var locals] begin
// stmts end` or, for a subroutine, the same without a return type.
func (p *Parser) parseFunc(isSub bool) error {
	kw := p.next() // 'function' or 'subroutine'

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}

	if _, err := p.expectPunct("("); err != nil {
		return err
	}
	var paramSpecs []fieldSpec
	if !p.atPunct(")") {
		paramSpecs, err = p.parseTypedGroups()
		if err != nil {
			return err
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return err
	}

	ret := ast.Void
	if !isSub {
		if _, err := p.expectPunct(":"); err != nil {
			return err
		}
		tname, err := p.expectIdent()
		if err != nil {
			return err
		}
		vt, ok := parseValTypeName(tname.Value)
		if !ok {
			return errors.Syntax(tname.Pos, "unknown return type %q", tname.Value)
		}
		ret = vt
	}

	var localSpecs []fieldSpec
	if p.atKeyword("var") {
		p.next()
		localSpecs, err = p.parseTypedGroups()
		if err != nil {
			return err
		}
	}

	if _, err := p.expectKeyword("begin"); err != nil {
		return err
	}
	body, err := p.parseStmtList("end")
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("end"); err != nil {
		return err
	}

	fn := &ast.FuncDecl{
		Name:   nameTok.Value,
		Params: toParams(paramSpecs),
		Locals: toLocals(localSpecs),
		Body:   body,
		Return: ret,
		IsSub:  isSub,
		Pos:    kw.Pos,
	}
	p.mod.Funcs = append(p.mod.Funcs, fn)
	return nil
}

func toParams(specs []fieldSpec) []*ast.Param {
	out := make([]*ast.Param, len(specs))
	for i, s := range specs {
		out[i] = &ast.Param{
			FuncSig:   s.FuncSig,
			Name:      s.Name,
			Layout:    s.Layout,
			Type:      s.Type,
			ArrayDims: s.ArrayDims,
			IsArray:   s.IsArray,
			Pos:       s.Pos,
		}
	}
	return out
}

func toLocals(specs []fieldSpec) []*ast.Local {
	out := make([]*ast.Local, len(specs))
	for i, s := range specs {
		out[i] = &ast.Local{
			Name:      s.Name,
			Type:      s.Type,
			ArrayDims: s.ArrayDims,
			IsArray:   s.IsArray,
		}
	}
	return out
}

func toValTypes(specs []fieldSpec) []ast.ValType {
	out := make([]ast.ValType, len(specs))
	for i, s := range specs {
		if s.IsArray {
			out[i] = ast.I32
		} else {
			out[i] = s.Type
		}
	}
	return out
}

// parseImport parses `import module.field(params)[: TYPE]`. The dotted
// name lexes as a single identifier; the module is everything before the
// first dot.
func (p *Parser) parseImport() error {
	kw := p.next() // 'import'

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	module, field, ok := splitDotted(nameTok.Value)
	if !ok {
		return errors.Syntax(nameTok.Pos, "import name must be module.field, got %q", nameTok.Value)
	}

	if _, err := p.expectPunct("("); err != nil {
		return err
	}
	var paramSpecs []fieldSpec
	if !p.atPunct(")") {
		paramSpecs, err = p.parseTypedGroups()
		if err != nil {
			return err
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return err
	}

	sig := ast.FuncSig{Params: toValTypes(paramSpecs), IsVoid: true}
	if p.atPunct(":") {
		p.next()
		tname, err := p.expectIdent()
		if err != nil {
			return err
		}
		vt, ok := parseValTypeName(tname.Value)
		if !ok {
			return errors.Syntax(tname.Pos, "unknown return type %q", tname.Value)
		}
		sig.Return = vt
		sig.IsVoid = false
	}

	p.mod.Imports = append(p.mod.Imports, &ast.ImportDecl{
		Sig: sig, Module: module, Field: field, Pos: kw.Pos,
	})
	return nil
}

func splitDotted(name string) (module, field string, ok bool) {
	for i, c := range name {
		if c == '.' {
			return name[:i], name[i+1:], i > 0 && i < len(name)-1
		}
	}
	return "", "", false
}

// parseLayoutBody parses a layout's name, field list, and closing `end`;
// the leading `layout`/`packed layout` keywords are already consumed.
func (p *Parser) parseLayoutBody(packed bool) error {
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}

	var fields []ast.LayoutField
	for !p.atKeyword("end") {
		names, err := p.parseNameGroup()
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return err
		}
		ft, size, err := p.parseLayoutFieldType()
		if err != nil {
			return err
		}
		for _, nm := range names {
			fields = append(fields, ast.LayoutField{Name: nm.Value, Type: ft, Size: size})
		}
		if p.atPunct(",") {
			p.next()
		}
	}
	if _, err := p.expectKeyword("end"); err != nil {
		return err
	}

	size, align := ast.ComputeLayout(fields, packed)
	ld := &ast.LayoutDecl{Name: nameTok.Value, Fields: fields, Size: size, Align: align, Packed: packed, Pos: nameTok.Pos}
	p.mod.Layouts = append(p.mod.Layouts, ld)
	p.layouts[nameTok.Value] = ld
	return nil
}

// parseLayoutFieldType parses a layout field's type: a primitive, a
// nested layout, or either followed by `[N]` for a fixed-size array.
func (p *Parser) parseLayoutFieldType() (ast.LayoutFieldType, int, error) {
	tname, err := p.expectIdent()
	if err != nil {
		return ast.LayoutFieldType{}, 0, err
	}

	var ft ast.LayoutFieldType
	var elemSize int
	if vt, ok := parseValTypeName(tname.Value); ok {
		ft.Prim = vt
		elemSize = vt.Size()
	} else if nested, ok := p.layouts[tname.Value]; ok {
		ft.IsLayout = true
		ft.LayoutName = tname.Value
		elemSize = nested.Size
	} else {
		return ast.LayoutFieldType{}, 0, errors.Syntax(tname.Pos, "unknown field type %q", tname.Value)
	}

	if p.atPunct("[") {
		p.next()
		count, err := p.parseIntLiteral()
		if err != nil {
			return ast.LayoutFieldType{}, 0, err
		}
		if _, err := p.expectPunct("]"); err != nil {
			return ast.LayoutFieldType{}, 0, err
		}
		ft.IsArray = true
		ft.ArrayCount = count
		return ft, elemSize * count, nil
	}
	return ft, elemSize, nil
}

// parseGlobal parses `global NAME: TYPE := expr` (mutable) or
// `const NAME: TYPE := expr` (immutable).
func (p *Parser) parseGlobal() error {
	kw := p.next() // 'global' or 'const'
	mutable := kw.Value == "global"

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return err
	}

	var typ ast.ValType
	var fsig *ast.FuncSig
	if p.atKeyword("func") {
		fsig, err = p.parseFuncSig()
		if err != nil {
			return err
		}
		typ = ast.I32
	} else {
		tname, err := p.expectIdent()
		if err != nil {
			return err
		}
		vt, ok := parseValTypeName(tname.Value)
		if !ok {
			return errors.Syntax(tname.Pos, "unknown type %q", tname.Value)
		}
		typ = vt
	}

	if _, err := p.expectOp(":="); err != nil {
		return err
	}
	init, err := p.parseExpr(0)
	if err != nil {
		return err
	}

	p.mod.Globals = append(p.mod.Globals, &ast.GlobalDecl{
		Init: init, FuncSig: fsig, Name: nameTok.Value, Type: typ, Mutable: mutable, Pos: nameTok.Pos,
	})
	return nil
}
