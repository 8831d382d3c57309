// Package errors provides Atra's structured error type.
//
// Errors are categorized by Phase (lex, parse, generate, link, instantiate)
// and Kind (syntax, undefined, type_mismatch, unsupported, not_constant).
// Most errors carry the source position of the offending token.
//
// Use the Builder for custom construction:
//
//	err := errors.New(errors.PhaseGenerate, errors.KindTypeMismatch).
//		At(pos).
//		Detail("cannot add f64 to i32").
//		Build()
//
// Or the phase-specific convenience constructors:
//
//	err := errors.Syntax(pos, "expected ')', got %q", tok.Value)
//	err := errors.Undefined(errors.PhaseGenerate, pos, "function", name)
//
// All errors implement the standard error interface and support errors.Is.
package errors
