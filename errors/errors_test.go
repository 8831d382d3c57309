package errors

import (
	"errors"
	"testing"

	"github.com/atra-lang/atra/ast"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseGenerate,
				Kind:   KindTypeMismatch,
				Pos:    ast.Pos{Line: 3, Col: 7},
				Name:   "total",
				Detail: "cannot add f64 to i32",
			},
			contains: []string{"[generate]", "type_mismatch", "3:7", "total", "cannot add f64 to i32"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLex,
				Kind:  KindSyntax,
			},
			contains: []string{"[lex]", "syntax"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInstantiate,
				Kind:   KindUnsupported,
				Detail: "host function missing",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[instantiate]", "unsupported", "host function missing", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Phase: PhaseParse, Kind: KindSyntax, Cause: cause}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Phase: PhaseParse, Kind: KindTypeMismatch}

	if !err.Is(&Error{Phase: PhaseParse, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLex, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseParse, Kind: KindSyntax}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseParse, Kind: KindTypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	pos := ast.Pos{Line: 1, Col: 4}
	err := New(PhaseGenerate, KindTypeMismatch).
		At(pos).
		Name("x").
		Cause(cause).
		Detail("expected %s, got %s", "i32", "f64").
		Build()

	if err.Phase != PhaseGenerate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseGenerate)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.Pos != pos {
		t.Errorf("Pos = %v, want %v", err.Pos, pos)
	}
	if err.Name != "x" {
		t.Errorf("Name = %v, want 'x'", err.Name)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected i32, got f64" {
		t.Errorf("Detail = %v, want 'expected i32, got f64'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	pos := ast.Pos{Line: 2, Col: 1}

	t.Run("Syntax", func(t *testing.T) {
		err := Syntax(pos, "expected %q, got %q", ")", ";")
		if err.Kind != KindSyntax {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSyntax)
		}
		if err.Phase != PhaseParse {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
		}
	})

	t.Run("Undefined", func(t *testing.T) {
		err := Undefined(PhaseGenerate, pos, "function", "foo")
		if err.Kind != KindUndefined {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUndefined)
		}
		if err.Name != "foo" {
			t.Errorf("Name = %v, want 'foo'", err.Name)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(pos, "cannot convert %s to %s", "i64", "f32")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseGenerate, pos, "tailcall return type mismatch")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("NotConstant", func(t *testing.T) {
		err := NotConstant(pos, "global initializer is not a constant expression")
		if err.Kind != KindNotConstant {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotConstant)
		}
	})
}

func containsSubstring(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
