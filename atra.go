package atra

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/atra-lang/atra/ast"
	"github.com/atra-lang/atra/codegen"
	"github.com/atra-lang/atra/engine"
	"github.com/atra-lang/atra/link"
	"github.com/atra-lang/atra/parser"
)

// TableMap maps a function name to its slot in the module's funcref table,
// exposed to the embedder at Instance.Table() / exports.__table.
type TableMap = codegen.TableMap

// LayoutMap mirrors every layout declaration's field offsets, exposed to
// the embedder at Instance.Layouts() / exports.__layouts.
type LayoutMap = codegen.LayoutMap

// Instance is a compiled-and-instantiated Atra module: callable exports,
// the table map, and layout metadata.
type Instance = link.Instance

// Memory describes the linear memory supplied as env.memory, which every
// module that uses memory imports (a module never owns one).
type Memory = link.Memory

// Parse parses source into an AST without generating code. Used directly
// by tests and by Compile.
func Parse(source string) (*ast.Module, error) {
	return parser.Parse(source)
}

// Compile parses and generates source into a wasm binary, its funcref
// table map (nil if the module needed no table), and its layout map. It
// never looks at userImports — a missing host function is only caught at
// Run time.
func Compile(source string) ([]byte, TableMap, LayoutMap, error) {
	mod, err := Parse(source)
	if err != nil {
		return nil, nil, nil, err
	}
	return codegen.Generate(mod)
}

// Dump compiles source and hex-formats the resulting bytes (16 bytes per
// line, offset-prefixed), mirroring encoding/hex.Dump.
func Dump(source string) (string, error) {
	b, _, _, err := Compile(source)
	if err != nil {
		return "", err
	}
	return hex.Dump(b), nil
}

// RunOptions is Run's optional configuration: user-supplied host
// functions, and a caller-owned memory to import as env.memory.
type RunOptions = link.RunOptions

// Run compiles source and instantiates it in one step. userImports is a
// nested mapping from string to func or nested map[string]any; its
// reserved keys ("memory", "__memory", "__table") are plumbing rather
// than Atra-visible import names. The caller must Close the returned
// Instance, which also tears down the wazero runtime Run created for it.
func Run(ctx context.Context, source string, userImports map[string]any) (*Instance, error) {
	bytes, table, layouts, err := Compile(source)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return nil, err
	}

	inst, err := link.Run(ctx, eng, link.Module{Bytes: bytes, Table: table, Layouts: layouts}, RunOptions{UserImports: userImports})
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	return inst, nil
}

// CompileTemplate is Atra's Go-idiomatic stand-in for spec.md §6's tagged
// template form (Go has no tagged-template literal syntax). parts is the
// literal source fragments; values is interleaved between them exactly as
// a tagged template would receive. Numbers and strings are concatenated
// into the source verbatim (textual inclusion, like #include); every
// other value is replaced by a placeholder identifier __INTERP_i__ and
// returned in hostImports under the key "__INTERP_i__"; passed to Run as
// (or merged into) userImports, it resolves the host.__INTERP_i__ import.
func CompileTemplate(parts []string, values []any) (source string, hostImports map[string]any, err error) {
	if len(parts) != len(values)+1 {
		return "", nil, fmt.Errorf("atra: CompileTemplate expects len(parts) == len(values)+1, got %d parts and %d values", len(parts), len(values))
	}

	var b strings.Builder
	hostImports = map[string]any{}
	for i, part := range parts {
		b.WriteString(part)
		if i >= len(values) {
			continue
		}
		v := values[i]
		switch val := v.(type) {
		case int:
			b.WriteString(strconv.Itoa(val))
		case int32:
			b.WriteString(strconv.FormatInt(int64(val), 10))
		case int64:
			b.WriteString(strconv.FormatInt(val, 10))
		case float32:
			b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 32))
		case float64:
			b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		case string:
			b.WriteString(val)
		default:
			name := fmt.Sprintf("__INTERP_%d__", i)
			b.WriteString(name)
			hostImports[name] = val
		}
	}
	return b.String(), hostImports, nil
}
