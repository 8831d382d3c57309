// Package ast defines Atra's abstract syntax tree: the tagged variant of
// declarations, statements and expressions the parser builds and the code
// generator walks. There are no cycles — the tree is strict, so callers
// can walk it with plain recursion.
package ast

// ValType is an Atra value type: one of the four scalars or one of the
// four 128-bit SIMD vectors.
type ValType int

const (
	Void ValType = iota
	I32
	I64
	F32
	F64
	F64x2
	F32x4
	I32x4
	I64x2
)

func (t ValType) String() string {
	switch t {
	case Void:
		return "void"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case F64x2:
		return "f64x2"
	case F32x4:
		return "f32x4"
	case I32x4:
		return "i32x4"
	case I64x2:
		return "i64x2"
	}
	return "?"
}

// IsVector reports whether t is one of the four SIMD vector types.
func (t ValType) IsVector() bool {
	switch t {
	case F64x2, F32x4, I32x4, I64x2:
		return true
	}
	return false
}

// IsFloat reports whether t's underlying representation is IEEE-754.
func (t ValType) IsFloat() bool {
	switch t {
	case F32, F64, F64x2, F32x4:
		return true
	}
	return false
}

// Elem returns the scalar lane type of a vector type. Calling it on a
// scalar type returns the type unchanged.
func (t ValType) Elem() ValType {
	switch t {
	case F64x2:
		return F64
	case F32x4:
		return F32
	case I32x4:
		return I32
	case I64x2:
		return I64
	default:
		return t
	}
}

// Lanes returns the lane count of a vector type, or 1 for scalars.
func (t ValType) Lanes() int {
	switch t {
	case F64x2, I64x2:
		return 2
	case F32x4, I32x4:
		return 4
	default:
		return 1
	}
}

// Size returns the type's size in bytes, as used for array element
// addressing and layout field sizing.
func (t ValType) Size() int {
	switch t {
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	case F64x2, F32x4, I32x4, I64x2:
		return 16
	default:
		return 0
	}
}

// Pos is a source position: 1-based line and column.
type Pos struct {
	Line int
	Col  int
}

// FuncSig is a function signature: ordered parameter types and a single
// result type (Void for a subroutine). It is also how function-typed
// parameters and globals describe the callee they must match; a Local
// carries no FuncSig, so locals cannot be function-typed.
type FuncSig struct {
	Params []ValType
	Return ValType
	IsVoid bool
}

// Key returns the de-duplication key the code generator's signature
// table uses: params joined by comma, then ':', then the return type.
func (s FuncSig) Key() string {
	key := ""
	for i, p := range s.Params {
		if i > 0 {
			key += ","
		}
		key += p.String()
	}
	key += ":"
	if !s.IsVoid {
		key += s.Return.String()
	}
	return key
}

// Param is a function or subroutine parameter.
type Param struct {
	FuncSig    *FuncSig // non-nil for a function-typed parameter
	Name       string
	Layout     string // non-empty for a layout-typed parameter
	Type       ValType
	ArrayDims  []int // declared dimensions, empty if undeclared
	IsArray    bool
	Pos        Pos
}

// Local is a declared local variable (function/subroutine `var` section).
type Local struct {
	Name      string
	Type      ValType
	ArrayDims []int
	IsArray   bool
}

// LayoutFieldType describes a layout field's type: a primitive scalar, a
// nested layout, or an array of either.
type LayoutFieldType struct {
	LayoutName string // non-empty when the field's type is another layout
	Prim       ValType
	IsLayout   bool
	IsArray    bool
	ArrayCount int
}

// LayoutField is one named, typed field of a layout.
type LayoutField struct {
	Name   string
	Type   LayoutFieldType
	Offset int // assigned by the layout algorithm
	Size   int
}

// LayoutDecl is a named record type with field offsets assigned by the
// layout algorithm (spec.md §3, "Layout").
type LayoutDecl struct {
	Name   string
	Fields []LayoutField
	Size   int
	Align  int
	Packed bool
	Pos    Pos
}

// FieldOffset returns the offset of a named field, or -1 if absent.
func (l *LayoutDecl) FieldOffset(name string) int {
	for _, f := range l.Fields {
		if f.Name == name {
			return f.Offset
		}
	}
	return -1
}

// Field returns the named field, or nil if absent.
func (l *LayoutDecl) Field(name string) *LayoutField {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i]
		}
	}
	return nil
}

// GlobalDecl is a module-level constant or variable declaration.
type GlobalDecl struct {
	Init    Expr
	FuncSig *FuncSig // non-nil when the global is function-typed
	Name    string
	Type    ValType
	Mutable bool
	Pos     Pos
}

// ImportDecl is an explicit host import: `import module.field(params): type`.
type ImportDecl struct {
	Sig    FuncSig
	Module string
	Field  string
	Pos    Pos
}

// FuncDecl is a function or subroutine declaration.
type FuncDecl struct {
	Name   string
	Params []*Param
	Locals []*Local
	Body   []Stmt
	Return ValType
	IsSub  bool
	Pos    Pos
}

// Sig returns the function's signature.
func (f *FuncDecl) Sig() FuncSig {
	params := make([]ValType, len(f.Params))
	for i, p := range f.Params {
		if p.IsArray {
			params[i] = I32 // arrays are passed as linear-memory pointers
		} else {
			params[i] = p.Type
		}
	}
	return FuncSig{Params: params, Return: f.Return, IsVoid: f.IsSub}
}

// Module is the root of a parsed Atra program.
type Module struct {
	Globals []*GlobalDecl
	Imports []*ImportDecl
	Funcs   []*FuncDecl
	Layouts []*LayoutDecl
}

// FuncByName returns the module's function/subroutine declaration with the
// given name, or nil.
func (m *Module) FuncByName(name string) *FuncDecl {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// LayoutByName returns the module's layout declaration with the given
// name, or nil.
func (m *Module) LayoutByName(name string) *LayoutDecl {
	for _, l := range m.Layouts {
		if l.Name == name {
			return l
		}
	}
	return nil
}
