package ast

// Expr is any expression node: number literal, identifier, function
// reference, call, array access, binary/unary op, or ternary.
type Expr interface {
	Position() Pos
	exprNode()
}

// NumberLit is a numeric literal. Raw preserves the source text (digits,
// optional fraction, optional exponent); Suffix is the explicit
// `_i32|_i64|_f32|_f64` type suffix, or Void if none was written.
type NumberLit struct {
	Pos     Pos
	Raw     string
	Suffix  ValType
	IsFloat bool
}

func (*NumberLit) exprNode()     {}
func (n *NumberLit) Position() Pos { return n.Pos }

// Ident is a bare identifier reference: a local, parameter, or global.
type Ident struct {
	Pos  Pos
	Name string
}

func (*Ident) exprNode()     {}
func (n *Ident) Position() Pos { return n.Pos }

// FuncRef is `@name`, a first-class reference to a function, producing its
// table index.
type FuncRef struct {
	Pos  Pos
	Name string
}

func (*FuncRef) exprNode()     {}
func (n *FuncRef) Position() Pos { return n.Pos }

// Call is a function call used in expression position (it must return a
// value). `call name(args)` as a statement wraps the same node.
type Call struct {
	Pos  Pos
	Name string
	Args []Expr
}

func (*Call) exprNode()     {}
func (n *Call) Position() Pos { return n.Pos }

// Index is an array access `name[i]` or the explicit-stride three-index
// form `name[row, stride, col]`.
type Index struct {
	Pos     Pos
	Name    string
	Indices []Expr
}

func (*Index) exprNode()     {}
func (n *Index) Position() Pos { return n.Pos }

// Binary is a binary operator expression. Op is the source operator
// spelling: + - * / ** & | ^ << >> == /= < > <= >= and or.
type Binary struct {
	Pos   Pos
	Op    string
	Left  Expr
	Right Expr
}

func (*Binary) exprNode()     {}
func (n *Binary) Position() Pos { return n.Pos }

// Unary is a unary operator expression. Op is one of - ~ not.
type Unary struct {
	Pos     Pos
	Op      string
	Operand Expr
}

func (*Unary) exprNode()     {}
func (n *Unary) Position() Pos { return n.Pos }

// Ternary is the `if (cond) then a else b` expression form.
type Ternary struct {
	Pos  Pos
	Cond Expr
	Then Expr
	Else Expr
}

func (*Ternary) exprNode()     {}
func (n *Ternary) Position() Pos { return n.Pos }

// Convert is `TYPE(args)`: a scalar type conversion when TYPE is a
// primitive and len(args)==1, or a SIMD lane constructor when TYPE is a
// vector type (`f64x2(a,b)`, `f32x4(a,b,c,d)`, ...).
type Convert struct {
	Pos  Pos
	Type ValType
	Args []Expr
}

func (*Convert) exprNode()     {}
func (n *Convert) Position() Pos { return n.Pos }
