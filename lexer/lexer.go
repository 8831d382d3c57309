package lexer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/atra-lang/atra/ast"
)

var interpPattern = regexp.MustCompile(`^__INTERP_[0-9]+__$`)

// twoCharOps must be checked before single-character operators so that,
// for example, `:=` is not split into `:` and `=`.
var twoCharOps = map[string]bool{
	"**": true, ":=": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"==": true, "<=": true, ">=": true, "<<": true, ">>": true,
}

const singleCharOps = "+-*/<>=&|^~@"
const punct = "()[];,:"

// Tokenize lexes source into a token stream ending in an EOF token.
func Tokenize(source string) []Token {
	var tokens []Token
	runes := []rune(source)
	line, col := 1, 1

	advance := func(i int) int {
		if runes[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		return i + 1
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		pos := ast.Pos{Line: line, Col: col}

		if r == '!' {
			for i < len(runes) && runes[i] != '\n' {
				i = advance(i)
			}
			continue
		}
		if r == ';' || unicode.IsSpace(r) {
			i = advance(i)
			continue
		}

		if isDigit(r) || (r == '.' && i+1 < len(runes) && isDigit(runes[i+1])) {
			start := i
			isFloat := false
			for i < len(runes) && isDigit(runes[i]) {
				i = advance(i)
			}
			if i < len(runes) && runes[i] == '.' {
				isFloat = true
				i = advance(i)
				for i < len(runes) && isDigit(runes[i]) {
					i = advance(i)
				}
			}
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && isDigit(runes[j]) {
					isFloat = true
					i = advance(i) // 'e'/'E'
					if runes[i] == '+' || runes[i] == '-' {
						i = advance(i)
					}
					for i < len(runes) && isDigit(runes[i]) {
						i = advance(i)
					}
				}
			}
			raw := string(runes[start:i])

			var suffix ast.ValType
			if i < len(runes) && runes[i] == '_' {
				save := i
				j := i + 1
				for j < len(runes) && isIdentRune(runes[j]) {
					j++
				}
				if t, ok := typeSuffixes[string(runes[save+1:j])]; ok {
					suffix = t
					for i < j {
						i = advance(i)
					}
				}
			}

			tokens = append(tokens, Token{Kind: Number, Value: raw, IsFloat: isFloat, Suffix: suffix, Pos: pos})
			continue
		}

		if isIdentStart(r) {
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i = advance(i)
			}
			for i > start && runes[i-1] == '.' {
				i--
				col--
			}
			word := string(runes[start:i])
			if IsKeyword(word) {
				tokens = append(tokens, Token{Kind: Keyword, Value: word, Pos: pos})
			} else {
				tokens = append(tokens, Token{Kind: Ident, Value: word, IsInterp: interpPattern.MatchString(word), Pos: pos})
			}
			continue
		}

		if i+1 < len(runes) {
			two := string(runes[i : i+2])
			if twoCharOps[two] {
				tokens = append(tokens, Token{Kind: Op, Value: two, Pos: pos})
				i = advance(i)
				i = advance(i)
				continue
			}
		}

		if strings.ContainsRune(singleCharOps, r) {
			tokens = append(tokens, Token{Kind: Op, Value: string(r), Pos: pos})
			i = advance(i)
			continue
		}

		if strings.ContainsRune(punct, r) {
			tokens = append(tokens, Token{Kind: Punct, Value: string(r), Pos: pos})
			i = advance(i)
			continue
		}

		// Unknown character: silently skipped per spec.
		i = advance(i)
	}

	tokens = append(tokens, Token{Kind: EOF, Value: "", Pos: ast.Pos{Line: line, Col: col}})
	return tokens
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || isDigit(r) || r == '_' || r == '.'
}
