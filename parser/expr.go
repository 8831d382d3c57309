package parser

import (
	"strconv"
	"strings"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/lexer"
)

// infixBp returns the left binding power of tok as an infix operator, per
// the table: or(2) < and(4) < comparison(6) < |(8) < ^(10) < &(12) <
// shifts(14) < add/sub(16) < mul/div(18) < power(22, right-assoc).
func infixBp(tok lexer.Token) (bp int, rightAssoc bool, ok bool) {
	if tok.Kind == lexer.Keyword {
		switch tok.Value {
		case "or":
			return 2, false, true
		case "and":
			return 4, false, true
		}
		return 0, false, false
	}
	if tok.Kind != lexer.Op {
		return 0, false, false
	}
	switch tok.Value {
	case "==", "/=", "<", ">", "<=", ">=":
		return 6, false, true
	case "|":
		return 8, false, true
	case "^":
		return 10, false, true
	case "&":
		return 12, false, true
	case "<<", ">>":
		return 14, false, true
	case "+", "-":
		return 16, false, true
	case "*", "/":
		return 18, false, true
	case "**":
		return 22, true, true
	}
	return 0, false, false
}

// parseExpr is the Pratt parser entry point: it parses a prefix
// expression, then repeatedly extends it with infix operators whose
// binding power is at least minBp.
func (p *Parser) parseExpr(minBp int) (ast.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		bp, rightAssoc, ok := infixBp(p.peek())
		if !ok || bp < minBp {
			break
		}
		opTok := p.next()
		nextMin := bp + 1
		if rightAssoc {
			nextMin = bp
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: opTok.Pos, Op: opTok.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (ast.Expr, error) {
	t := p.peek()

	switch {
	case t.Kind == lexer.Op && (t.Value == "-" || t.Value == "~"):
		p.next()
		operand, err := p.parseExpr(21)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: t.Pos, Op: t.Value, Operand: operand}, nil

	case t.Kind == lexer.Keyword && t.Value == "not":
		p.next()
		operand, err := p.parseExpr(21)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: t.Pos, Op: "not", Operand: operand}, nil

	case t.Kind == lexer.Op && t.Value == "@":
		p.next()
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.FuncRef{Pos: t.Pos, Name: nameTok.Value}, nil

	case t.Kind == lexer.Punct && t.Value == "(":
		p.next()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil

	case t.Kind == lexer.Number:
		p.next()
		return &ast.NumberLit{Pos: t.Pos, Raw: t.Value, Suffix: t.Suffix, IsFloat: t.IsFloat}, nil

	case t.Kind == lexer.Keyword && t.Value == "if":
		return p.parseTernary()

	case t.Kind == lexer.Ident:
		return p.parseIdentExpr()
	}

	return nil, errors.Syntax(t.Pos, "unexpected token %q in expression", t.Value)
}

// parseTernary parses the expression-position `if (cond) then a else b`.
func (p *Parser) parseTernary() (ast.Expr, error) {
	kw, err := p.expectKeyword("if")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	thenE, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	elseE, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Pos: kw.Pos, Cond: cond, Then: thenE, Else: elseE}, nil
}

// parseIdentExpr parses whatever follows a bare identifier: a layout
// offset reference, a conversion/lane constructor, a call, an array
// access, or a plain variable reference.
func (p *Parser) parseIdentExpr() (ast.Expr, error) {
	t := p.next()
	name := t.Value

	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		if ld, ok := p.layouts[name[:dot]]; ok {
			val, err := resolveLayoutRef(ld, name[dot+1:], t.Pos)
			if err != nil {
				return nil, err
			}
			return &ast.NumberLit{Pos: t.Pos, Raw: strconv.Itoa(val), Suffix: ast.I32}, nil
		}
	}

	if vt, ok := parseValTypeName(name); ok && p.atPunct("(") {
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ast.Convert{Pos: t.Pos, Type: vt, Args: args}, nil
	}

	if p.atPunct("(") {
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ast.Call{Pos: t.Pos, Name: name, Args: args}, nil
	}

	if p.atPunct("[") {
		p.next()
		var indices []ast.Expr
		for {
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			indices = append(indices, idx)
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return &ast.Index{Pos: t.Pos, Name: name, Indices: indices}, nil
	}

	return &ast.Ident{Pos: t.Pos, Name: name}, nil
}

func resolveLayoutRef(ld *ast.LayoutDecl, rest string, pos ast.Pos) (int, error) {
	switch rest {
	case "__size":
		return ld.Size, nil
	case "__align":
		return ld.Align, nil
	default:
		if off := ld.FieldOffset(rest); off >= 0 {
			return off, nil
		}
		return 0, errors.Undefined(errors.PhaseParse, pos, "layout field", ld.Name+"."+rest)
	}
}
