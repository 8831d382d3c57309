package errors

import (
	"fmt"
	"strings"

	"github.com/atra-lang/atra/ast"
)

// Phase indicates which stage of the pipeline raised the error.
type Phase string

const (
	PhaseLex         Phase = "lex"
	PhaseParse       Phase = "parse"
	PhaseGenerate    Phase = "generate"
	PhaseLink        Phase = "link"
	PhaseInstantiate Phase = "instantiate"
)

// Kind categorizes the error within its phase.
type Kind string

const (
	KindSyntax       Kind = "syntax"
	KindUndefined    Kind = "undefined"
	KindTypeMismatch Kind = "type_mismatch"
	KindUnsupported  Kind = "unsupported"
	KindNotConstant  Kind = "not_constant"
)

// Error is Atra's structured error type. Pos is the zero value when the
// failure has no single source location (e.g. a link-time missing host
// import).
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Name   string // the identifier involved, when there is one
	Pos    ast.Pos
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Pos.Line > 0 {
		fmt.Fprintf(&b, " at %d:%d", e.Pos.Line, e.Pos.Col)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides fluent structured error construction.
type Builder struct {
	err Error
}

// New starts building an error for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) At(pos ast.Pos) *Builder {
	b.err.Pos = pos
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Syntax builds a parse-time grammar violation, positioned at the
// offending token.
func Syntax(pos ast.Pos, detail string, args ...any) *Error {
	return New(PhaseParse, KindSyntax).At(pos).Detail(detail, args...).Build()
}

// Undefined builds a reference-to-unknown-name error.
func Undefined(phase Phase, pos ast.Pos, kindOfThing, name string) *Error {
	return New(phase, KindUndefined).At(pos).Name(name).
		Detail("undefined %s", kindOfThing).Build()
}

// TypeMismatch builds a static type error.
func TypeMismatch(pos ast.Pos, detail string, args ...any) *Error {
	return New(PhaseGenerate, KindTypeMismatch).At(pos).Detail(detail, args...).Build()
}

// Unsupported builds an error for a construct the generator recognizes
// but cannot lower (e.g. a comparison operator with no vector form for the
// operand type).
func Unsupported(phase Phase, pos ast.Pos, detail string, args ...any) *Error {
	return New(phase, KindUnsupported).At(pos).Detail(detail, args...).Build()
}

// NotConstant builds an error for a layout-offset or global-init
// expression that cannot be folded to a compile-time constant.
func NotConstant(pos ast.Pos, detail string, args ...any) *Error {
	return New(PhaseGenerate, KindNotConstant).At(pos).Detail(detail, args...).Build()
}
