package parser

import (
	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/errors"
	"github.com/atra-lang/atra/lexer"
)

// compoundOps maps the two-character compound-assign tokens to the
// binary operator they desugar to.
var compoundOps = map[string]string{
	":=": "", // plain assign, handled separately
	"+=": "+",
	"-=": "-",
	"*=": "*",
	"/=": "/",
}

// parseStmtList parses statements until the next token is one of the
// given keyword terminators, which are left unconsumed for the caller.
func (p *Parser) parseStmtList(terminators ...string) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for {
		t := p.peek()
		if t.Kind == lexer.EOF {
			return nil, errors.Syntax(t.Pos, "unexpected end of input, expected %v", terminators)
		}
		if t.Kind == lexer.Keyword {
			for _, term := range terminators {
				if t.Value == term {
					return out, nil
				}
			}
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	t := p.peek()
	if t.Kind == lexer.Keyword {
		switch t.Value {
		case "if":
			return p.parseIf(true)
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "break":
			p.next()
			return &ast.Break{Pos: t.Pos}, nil
		case "call":
			return p.parseCallOrReturn()
		case "tailcall":
			return p.parseTailCall()
		}
		return nil, errors.Syntax(t.Pos, "unexpected keyword %q in statement position", t.Value)
	}
	if t.Kind == lexer.Ident {
		return p.parseAssignLike()
	}
	return nil, errors.Syntax(t.Pos, "expected a statement, got %q", t.Value)
}

// parseAssignLike parses `name := expr`, a compound `name op= expr`, or
// the array forms `name[idx] := expr` / `name[idx] op= expr`.
func (p *Parser) parseAssignLike() (ast.Stmt, error) {
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var indices []ast.Expr
	if p.atPunct("[") {
		p.next()
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
	}

	opTok := p.peek()
	if opTok.Kind != lexer.Op {
		return nil, errors.Syntax(opTok.Pos, "expected assignment operator, got %q", opTok.Value)
	}
	base, known := compoundOps[opTok.Value]
	if !known {
		return nil, errors.Syntax(opTok.Pos, "expected assignment operator, got %q", opTok.Value)
	}
	p.next()

	rhs, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if base != "" {
		var lhs ast.Expr
		if indices != nil {
			lhs = &ast.Index{Pos: nameTok.Pos, Name: nameTok.Value, Indices: indices}
		} else {
			lhs = &ast.Ident{Pos: nameTok.Pos, Name: nameTok.Value}
		}
		rhs = &ast.Binary{Pos: opTok.Pos, Op: base, Left: lhs, Right: rhs}
	}

	if indices != nil {
		return &ast.ArrayStore{Pos: nameTok.Pos, Name: nameTok.Value, Indices: indices, Value: rhs}, nil
	}
	return &ast.Assign{Pos: nameTok.Pos, Name: nameTok.Value, Value: rhs}, nil
}

// parseIf parses `if (cond) then stmts [else [if ...] | stmts] end if`.
// consumeEnd is false for an `else if` link in a chain, which shares the
// outermost if's single `end if`.
func (p *Parser) parseIf(consumeEnd bool) (ast.Stmt, error) {
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

	thenStmts, err := p.parseStmtList("else", "end")
	if err != nil {
		return nil, err
	}

	var elseStmts []ast.Stmt
	if p.atKeyword("else") {
		p.next()
		if p.atKeyword("if") {
			nested, err := p.parseIf(false)
			if err != nil {
				return nil, err
			}
			elseStmts = []ast.Stmt{nested}
		} else {
			elseStmts, err = p.parseStmtList("end")
			if err != nil {
				return nil, err
			}
		}
	}

	if consumeEnd {
		if _, err := p.expectKeyword("end"); err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("if"); err != nil {
			return nil, err
		}
	}

	return &ast.If{Pos: kw.Pos, Cond: cond, Then: thenStmts, Else: elseStmts}, nil
}

// parseFor parses `for id := start, end [, step] stmts end for`.
func (p *Parser) parseFor() (ast.Stmt, error) {
	kw, err := p.expectKeyword("for")
	if err != nil {
		return nil, err
	}
	varTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(":="); err != nil {
		return nil, err
	}
	start, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	end, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var step ast.Expr
	if p.atPunct(",") {
		p.next()
		step, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseStmtList("end")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("for"); err != nil {
		return nil, err
	}
	return &ast.For{Pos: kw.Pos, Var: varTok.Value, Start: start, End: end, Step: step, Body: body}, nil
}

// parseWhile parses `while (cond) stmts end while`.
func (p *Parser) parseWhile() (ast.Stmt, error) {
	kw, err := p.expectKeyword("while")
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
	body, err := p.parseStmtList("end")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	return &ast.While{Pos: kw.Pos, Cond: cond, Body: body}, nil
}

// parseDoWhile parses `do stmts while (cond)`.
func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	kw, err := p.expectKeyword("do")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmtList("while")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("while"); err != nil {
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
	return &ast.DoWhile{Pos: kw.Pos, Body: body, Cond: cond}, nil
}

// parseCallOrReturn parses `call name(args)`, `call return(expr)`, or
// `call return()`.
func (p *Parser) parseCallOrReturn() (ast.Stmt, error) {
	kw, err := p.expectKeyword("call")
	if err != nil {
		return nil, err
	}
	var nameTok lexer.Token
	if p.atKeyword("return") {
		nameTok = p.next()
	} else {
		nameTok, err = p.expectIdent()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}

	if nameTok.Value == "return" {
		if p.atPunct(")") {
			p.next()
			return &ast.Return{Pos: kw.Pos}, nil
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Return{Pos: kw.Pos, Value: val}, nil
	}

	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &ast.CallStmt{Pos: kw.Pos, Name: nameTok.Value, Args: args}, nil
}

// parseTailCall parses `tailcall name(args)`.
func (p *Parser) parseTailCall() (ast.Stmt, error) {
	kw, err := p.expectKeyword("tailcall")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &ast.TailCall{Pos: kw.Pos, Name: nameTok.Value, Args: args}, nil
}

// parseArgs parses a comma-separated expression list up to and
// including the closing ")".
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	if !p.atPunct(")") {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
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
	return args, nil
}
