package link

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/atra-lang/atra/codegen"
	"github.com/atra-lang/atra/engine"
)

// Instance is an instantiated Atra module: callable exports, the optional
// funcref table map, and layout metadata, all produced by one Run call.
// Instance is not safe for concurrent use (matching the teacher's own
// WazeroInstance), and must be closed once the caller is done with it.
// It owns the Engine Run created for it, so Close also tears down the
// underlying wazero runtime rather than leaking it.
type Instance struct {
	mod      api.Module
	table    codegen.TableMap
	layouts  codegen.LayoutMap
	hostMods []api.Closer
	eng      *engine.Engine
	memory   api.Memory
}

// ExportFunc is one callable export, keeping its wazero function handle so
// Call can introspect param/result types for argument coercion.
type ExportFunc struct {
	fn   api.Function
	name string
}

// Call invokes the export. args are coerced to the function's declared
// wasm param types: int/int32/int64 become i32/i64, float32/float64 become
// f32/f64 depending on what the signature actually declares. v128-typed
// exports cannot be called this way — wazero's host-call ABI (like the
// rest of the ecosystem) only carries i32/i64/f32/f64 across the Go
// boundary; call a scalar-returning wrapper instead (extract_lane, a
// memory-backed accessor, ...).
func (f *ExportFunc) Call(ctx context.Context, args ...any) (any, error) {
	params := f.fn.Definition().ParamTypes()
	if len(args) != len(params) {
		return nil, fmt.Errorf("link: %s expects %d argument(s), got %d", f.name, len(params), len(args))
	}
	stack := make([]uint64, len(args))
	for i, a := range args {
		v, err := encodeArg(params[i], a)
		if err != nil {
			return nil, fmt.Errorf("link: %s argument %d: %w", f.name, i, err)
		}
		stack[i] = v
	}
	results, err := f.fn.Call(ctx, stack...)
	if err != nil {
		return nil, err
	}
	resultTypes := f.fn.Definition().ResultTypes()
	if len(results) == 0 || len(resultTypes) == 0 {
		return nil, nil
	}
	return decodeResult(resultTypes[0], results[0]), nil
}

func encodeArg(t api.ValueType, a any) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		switch v := a.(type) {
		case int32:
			return api.EncodeI32(v), nil
		case int:
			return api.EncodeI32(int32(v)), nil
		case uint32:
			return uint64(v), nil
		}
	case api.ValueTypeI64:
		switch v := a.(type) {
		case int64:
			return api.EncodeI64(v), nil
		case int:
			return api.EncodeI64(int64(v)), nil
		case uint64:
			return v, nil
		}
	case api.ValueTypeF32:
		switch v := a.(type) {
		case float32:
			return api.EncodeF32(v), nil
		case float64:
			return api.EncodeF32(float32(v)), nil
		}
	case api.ValueTypeF64:
		switch v := a.(type) {
		case float64:
			return api.EncodeF64(v), nil
		case float32:
			return api.EncodeF64(float64(v)), nil
		case int:
			return api.EncodeF64(float64(v)), nil
		}
	}
	return 0, fmt.Errorf("cannot encode %T as %s", a, api.ValueTypeName(t))
}

func decodeResult(t api.ValueType, v uint64) any {
	switch t {
	case api.ValueTypeI32:
		return int32(v)
	case api.ValueTypeI64:
		return int64(v)
	case api.ValueTypeF32:
		return api.DecodeF32(v)
	case api.ValueTypeF64:
		return api.DecodeF64(v)
	default:
		return v
	}
}

// Export looks up one export by its flat (possibly dotted) source name.
func (in *Instance) Export(name string) (*ExportFunc, error) {
	fn := in.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("link: no such export %q", name)
	}
	return &ExportFunc{fn: fn, name: name}, nil
}

// Call is shorthand for Export(name) followed by Call.
func (in *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	f, err := in.Export(name)
	if err != nil {
		return nil, err
	}
	return f.Call(ctx, args...)
}

// Exports builds the nested export tree spec.md §4.5 describes: a function
// exported as "physics.gravity" appears at both the flat key
// "physics.gravity" and nested under exports["physics"]["gravity"].
func (in *Instance) Exports() map[string]any {
	out := map[string]any{}
	for _, def := range in.mod.ExportedFunctions() {
		for _, name := range def.ExportNames() {
			fn := in.mod.ExportedFunction(name)
			if fn == nil {
				continue
			}
			ef := &ExportFunc{fn: fn, name: name}
			out[name] = ef
			insertNested(out, dotSplit(name), ef)
		}
	}
	if in.table != nil {
		out["__table"] = in.table
	}
	if in.layouts != nil {
		out["__layouts"] = in.layouts
	}
	return out
}

func insertNested(root map[string]any, path []string, leaf any) {
	if len(path) == 1 {
		root[path[0]] = leaf
		return
	}
	child, ok := root[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		root[path[0]] = child
	}
	insertNested(child, path[1:], leaf)
}

// Memory returns the env.memory every Instance imports when its module
// touches linear memory at all: the caller-supplied Memory option's
// backing memory, or a default single unbounded page when none was
// given. Reading/writing it before or after a Call is how a caller
// seeds or observes array data a function like sumX touches.
func (in *Instance) Memory() api.Memory {
	return in.memory
}

// Table returns the funcref table-slot map codegen produced, or nil if the
// module needed no table.
func (in *Instance) Table() codegen.TableMap {
	return in.table
}

// Layouts returns the layout field-offset map codegen produced; it is
// empty if the module declared no layouts.
func (in *Instance) Layouts() codegen.LayoutMap {
	return in.layouts
}

// Close releases the instantiated module, every host module Run built to
// satisfy its imports, and finally the Engine Run created to compile and
// instantiate them. Closing the Engine also closes its wazero.Runtime,
// which would independently tear down mod and hostMods; they are still
// closed explicitly first so their individual errors aren't swallowed.
func (in *Instance) Close(ctx context.Context) error {
	var firstErr error
	if err := in.mod.Close(ctx); err != nil {
		firstErr = err
	}
	for i := len(in.hostMods) - 1; i >= 0; i-- {
		if err := in.hostMods[i].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if in.eng != nil {
		if err := in.eng.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
