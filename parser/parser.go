// Package parser builds an *ast.Module from a lexer token stream: a
// hand-written recursive-descent parser for declarations and statements,
// and a Pratt (operator-precedence) parser for expressions.
package parser

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/lexer"
)

// Parser holds the token stream and the symbol tables needed to resolve
// layout names and fold layout-as-expression references while parsing.
type Parser struct {
	tokens  []lexer.Token
	pos     int
	mod     *ast.Module
	layouts map[string]*ast.LayoutDecl
}

// New creates a Parser over an already-lexed token stream.
func New(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens:  tokens,
		mod:     &ast.Module{},
		layouts: make(map[string]*ast.LayoutDecl),
	}
}

// Parse lexes source and parses it into a module in one call.
func Parse(source string) (*ast.Module, error) {
	return New(lexer.Tokenize(source)).Parse()
}

// Parse consumes the whole token stream and returns the module.
func (p *Parser) Parse() (*ast.Module, error) {
	for p.peek().Kind != lexer.EOF {
		if err := p.parseDecl(); err != nil {
			return nil, err
		}
	}
	return p.mod, nil
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

// peekAt returns the token n positions ahead of the cursor (0 is peek()).
func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *Parser) next() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atKeyword(word string) bool {
	t := p.peek()
	return t.Kind == lexer.Keyword && t.Value == word
}

func (p *Parser) atOp(op string) bool {
	t := p.peek()
	return t.Kind == lexer.Op && t.Value == op
}

func (p *Parser) atPunct(c string) bool {
	t := p.peek()
	return t.Kind == lexer.Punct && t.Value == c
}

func (p *Parser) expectKeyword(word string) (lexer.Token, error) {
	t := p.peek()
	if t.Kind != lexer.Keyword || t.Value != word {
		return t, errors.Syntax(t.Pos, "expected %q, got %q", word, t.Value)
	}
	return p.next(), nil
}

func (p *Parser) expectPunct(c string) (lexer.Token, error) {
	t := p.peek()
	if t.Kind != lexer.Punct || t.Value != c {
		return t, errors.Syntax(t.Pos, "expected %q, got %q", c, t.Value)
	}
	return p.next(), nil
}

func (p *Parser) expectOp(op string) (lexer.Token, error) {
	t := p.peek()
	if t.Kind != lexer.Op || t.Value != op {
		return t, errors.Syntax(t.Pos, "expected %q, got %q", op, t.Value)
	}
	return p.next(), nil
}

func (p *Parser) expectIdent() (lexer.Token, error) {
	t := p.peek()
	if t.Kind != lexer.Ident {
		return t, errors.Syntax(t.Pos, "expected identifier, got %q", t.Value)
	}
	return p.next(), nil
}

// parseValTypeName maps a bare identifier to a scalar or vector ValType.
func parseValTypeName(name string) (ast.ValType, bool) {
	switch name {
	case "i32":
		return ast.I32, true
	case "i64":
		return ast.I64, true
	case "f32":
		return ast.F32, true
	case "f64":
		return ast.F64, true
	case "f64x2":
		return ast.F64x2, true
	case "f32x4":
		return ast.F32x4, true
	case "i32x4":
		return ast.I32x4, true
	case "i64x2":
		return ast.I64x2, true
	}
	return ast.Void, false
}

func (p *Parser) parseDecl() error {
	t := p.peek()
	if t.Kind != lexer.Keyword {
		return errors.Syntax(t.Pos, "expected a declaration, got %q", t.Value)
	}
	switch t.Value {
	case "function":
		return p.parseFunc(false)
	case "subroutine":
		return p.parseFunc(true)
	case "import":
		return p.parseImport()
	case "layout":
		p.next()
		return p.parseLayoutBody(false)
	case "packed":
		p.next()
		if _, err := p.expectKeyword("layout"); err != nil {
			return err
		}
		return p.parseLayoutBody(true)
	case "global", "const":
		return p.parseGlobal()
	default:
		return errors.Syntax(t.Pos, "unexpected keyword %q at module level", t.Value)
	}
}

// fieldSpec is the parsed shape of one parameter, local, or import
// argument before it is lowered into the concrete ast type its context
// needs (ast.Param, ast.Local, or a bare ast.ValType for import sigs).
type fieldSpec struct {
	Name      string
	Pos       ast.Pos
	Type      ast.ValType
	Layout    string
	FuncSig   *ast.FuncSig
	ArrayDims []int
	IsArray   bool
}

// parseNameGroup collects one comma-shared name list, e.g. the `a, b, c`
// in `a, b, c: f64`. A comma continues the group only when it is
// followed by an identifier that is itself followed by another comma or
// a colon; any other comma belongs to the enclosing construct.
func (p *Parser) parseNameGroup() ([]lexer.Token, error) {
	first, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	names := []lexer.Token{first}
	for p.atPunct(",") {
		n1 := p.peekAt(1)
		n2 := p.peekAt(2)
		continues := n1.Kind == lexer.Ident &&
			((n2.Kind == lexer.Punct && n2.Value == ",") || (n2.Kind == lexer.Punct && n2.Value == ":"))
		if !continues {
			break
		}
		p.next() // consume ","
		nm, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, nm)
	}
	return names, nil
}

// parseDeclTypeSpec parses the type half of a parameter/local/import
// argument: a plain scalar/vector type, an array(dims) type, a function
// pointer type, or a previously declared layout's name.
func (p *Parser) parseDeclTypeSpec() (fieldSpec, error) {
	if p.atKeyword("array") {
		p.next()
		if _, err := p.expectPunct("("); err != nil {
			return fieldSpec{}, err
		}
		var dims []int
		for {
			n, err := p.parseIntLiteral()
			if err != nil {
				return fieldSpec{}, err
			}
			dims = append(dims, n)
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expectPunct(")"); err != nil {
			return fieldSpec{}, err
		}
		tname, err := p.expectIdent()
		if err != nil {
			return fieldSpec{}, err
		}
		vt, ok := parseValTypeName(tname.Value)
		if !ok {
			return fieldSpec{}, errors.Syntax(tname.Pos, "unknown element type %q", tname.Value)
		}
		return fieldSpec{IsArray: true, ArrayDims: dims, Type: vt}, nil
	}

	if p.atKeyword("func") {
		sig, err := p.parseFuncSig()
		if err != nil {
			return fieldSpec{}, err
		}
		return fieldSpec{FuncSig: sig, Type: ast.I32}, nil
	}

	tname, err := p.expectIdent()
	if err != nil {
		return fieldSpec{}, err
	}
	if vt, ok := parseValTypeName(tname.Value); ok {
		return fieldSpec{Type: vt}, nil
	}
	if _, ok := p.layouts[tname.Value]; ok {
		return fieldSpec{Layout: tname.Value, Type: ast.I32}, nil
	}
	return fieldSpec{}, errors.Syntax(tname.Pos, "unknown type %q", tname.Value)
}

// parseFuncSig parses `func(TYPE, TYPE, ...)[: TYPE]`, the function
// pointer type used for higher-order parameters and globals.
func (p *Parser) parseFuncSig() (*ast.FuncSig, error) {
	if _, err := p.expectKeyword("func"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []ast.ValType
	if !p.atPunct(")") {
		for {
			tname, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			vt, ok := parseValTypeName(tname.Value)
			if !ok {
				return nil, errors.Syntax(tname.Pos, "unknown type %q", tname.Value)
			}
			params = append(params, vt)
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	sig := &ast.FuncSig{Params: params, IsVoid: true}
	if p.atPunct(":") {
		p.next()
		tname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		vt, ok := parseValTypeName(tname.Value)
		if !ok {
			return nil, errors.Syntax(tname.Pos, "unknown type %q", tname.Value)
		}
		sig.Return = vt
		sig.IsVoid = false
	}
	return sig, nil
}

// parseTypedGroups parses a comma-separated sequence of name groups, each
// followed by `: typeSpec`, continuing while a group-ending comma is
// seen. Used for parameter lists, var sections, and import arguments.
func (p *Parser) parseTypedGroups() ([]fieldSpec, error) {
	var out []fieldSpec
	for {
		names, err := p.parseNameGroup()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		spec, err := p.parseDeclTypeSpec()
		if err != nil {
			return nil, err
		}
		for _, nm := range names {
			f := spec
			f.Name = nm.Value
			f.Pos = nm.Pos
			out = append(out, f)
		}
		if p.atPunct(",") {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseIntLiteral() (int, error) {
	t := p.peek()
	if t.Kind != lexer.Number || t.IsFloat {
		return 0, errors.Syntax(t.Pos, "expected integer literal, got %q", t.Value)
	}
	p.next()
	n := 0
	for _, c := range t.Value {
		if c == '_' {
			continue
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
