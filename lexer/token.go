// Package lexer turns Atra source text into a flat token stream. It never
// fails: malformed input becomes degenerate tokens and the parser is the
// one that rejects them with a positioned syntax error.
package lexer

import "github.com/atra-lang/atra/ast"

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Number
	Ident
	Keyword
	Op
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Number:
		return "number"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Op:
		return "operator"
	case Punct:
		return "punctuation"
	}
	return "unknown"
}

// Token is one lexical unit. IsFloat and Suffix are only meaningful for
// Number tokens. IsInterp flags an identifier of the form `__INTERP_N__`,
// a placeholder substituted by CompileTemplate.
type Token struct {
	Kind     Kind
	Value    string
	IsFloat  bool
	Suffix   ast.ValType
	IsInterp bool
	Pos      ast.Pos
}

// keywords is the fixed reserved-word set. Tokenize checks each scanned
// identifier against it (via IsKeyword) and emits a matching spelling as
// a Keyword token instead of an Ident.
var keywords = map[string]bool{
	"function":   true,
	"subroutine": true,
	"begin":      true,
	"end":        true,
	"var":        true,
	"array":      true,
	"layout":     true,
	"packed":     true,
	"global":     true,
	"const":      true,
	"import":     true,
	"if":         true,
	"then":       true,
	"else":       true,
	"for":        true,
	"while":      true,
	"do":         true,
	"break":      true,
	"call":       true,
	"return":     true,
	"tailcall":   true,
	"and":        true,
	"or":         true,
	"not":        true,
	"func":       true,
}

// IsKeyword reports whether word is a reserved word.
func IsKeyword(word string) bool {
	return keywords[word]
}

// typeSuffixes maps a numeric literal's trailing `_xxx` suffix to its type.
var typeSuffixes = map[string]ast.ValType{
	"i32": ast.I32,
	"i64": ast.I64,
	"f32": ast.F32,
	"f64": ast.F64,
}
