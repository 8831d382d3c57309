// Package link wires a compiled Atra module's generated import section to
// concrete implementations: the fixed `math` builtins, the caller's
// user-supplied `host` functions, and an optional `env.memory`. It is
// sized down from a Component Model linker to core-module instantiation —
// one host module per import namespace, no canonical ABI, no resource
// tables.
package link

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/atra-lang/atra/codegen"
	"github.com/atra-lang/atra/engine"
	"github.com/atra-lang/atra/errors"
)

// mathFuncs binds the fixed auto-import math names codegen may have
// synthesized. Every one of them takes and returns f64, per spec.md §4.4
// pass 3.
var mathFuncs = map[string]func(args []float64) float64{
	"sin":   func(a []float64) float64 { return math.Sin(a[0]) },
	"cos":   func(a []float64) float64 { return math.Cos(a[0]) },
	"ln":    func(a []float64) float64 { return math.Log(a[0]) },
	"exp":   func(a []float64) float64 { return math.Exp(a[0]) },
	"pow":   func(a []float64) float64 { return math.Pow(a[0], a[1]) },
	"atan2": func(a []float64) float64 { return math.Atan2(a[0], a[1]) },
}

// Module is a compiled Atra program: its wasm bytes plus the side tables
// codegen produced. It is the input to Run.
type Module struct {
	Bytes   []byte
	Table   codegen.TableMap
	Layouts codegen.LayoutMap
}

// Memory describes the linear memory Run supplies as `env.memory`, which
// every module that uses memory imports (a module never owns one).
// MinPages and MaxPages are in 64KiB wasm pages; MaxPages applies only
// when HasMax is set, and without HasMax the memory is unbounded.
type Memory struct {
	MinPages uint32
	MaxPages uint32
	HasMax   bool
}

// RunOptions configures Run beyond the bare source and
// userImports.
type RunOptions struct {
	// UserImports is a nested mapping from string to func or nested
	// map[string]any, flattened with dot-joined keys to resolve `host.*`
	// imports. The reserved keys "memory", "__memory", and "__table" are
	// plumbing, never Atra-visible import names.
	UserImports map[string]any
}

// flattenedHost walks UserImports, flattening nested maps with dot-joined
// keys, and separates out the reserved memory/table keys.
type flattenedHost struct {
	funcs  map[string]reflect.Value
	memory *Memory
}

func flattenHost(userImports map[string]any) (*flattenedHost, error) {
	fh := &flattenedHost{funcs: map[string]reflect.Value{}}
	var walk func(prefix string, m map[string]any) error
	walk = func(prefix string, m map[string]any) error {
		for k, v := range m {
			if prefix == "" && (k == "memory" || k == "__memory") {
				continue // plumbing key, handled by the caller's Memory option
			}
			if prefix == "" && k == "__table" {
				continue
			}
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			switch val := v.(type) {
			case map[string]any:
				if err := walk(key, val); err != nil {
					return err
				}
			default:
				rv := reflect.ValueOf(v)
				if rv.Kind() != reflect.Func {
					return fmt.Errorf("link: userImports[%q] is not a function or nested map", key)
				}
				fh.funcs[key] = rv
			}
		}
		return nil
	}
	if err := walk("", userImports); err != nil {
		return nil, err
	}
	return fh, nil
}

// Run compiles-and-instantiates in one step: Compile the module's bytes
// with the engine, wire math/host/env imports from opts, instantiate, and
// wrap the exports. The caller owns the returned Instance and must Close
// it (which also releases the Engine's side modules for this instance).
func Run(ctx context.Context, eng *engine.Engine, mod Module, opts RunOptions) (*Instance, error) {
	compiled, err := eng.Compile(ctx, mod.Bytes)
	if err != nil {
		return nil, errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
			Detail(err.Error()).Build()
	}

	fh, err := flattenHost(opts.UserImports)
	if err != nil {
		return nil, errors.New(errors.PhaseLink, errors.KindUndefined).Detail(err.Error()).Build()
	}

	imports := compiled.ImportedFunctions()
	byModule := map[string][]api.FunctionDefinition{}
	for _, def := range imports {
		modName, _, _ := def.Import()
		byModule[modName] = append(byModule[modName], def)
	}

	var hostModules []api.Closer
	closeHosts := func(c context.Context) {
		for i := len(hostModules) - 1; i >= 0; i-- {
			hostModules[i].Close(c)
		}
	}

	for _, modName := range sortedModuleNames(byModule) {
		switch modName {
		case "math":
			m, err := buildMathModule(ctx, eng, byModule[modName])
			if err != nil {
				closeHosts(ctx)
				return nil, err
			}
			hostModules = append(hostModules, m)
		case "host":
			m, err := buildHostModule(ctx, eng, byModule[modName], fh)
			if err != nil {
				closeHosts(ctx)
				return nil, err
			}
			hostModules = append(hostModules, m)
		default:
			closeHosts(ctx)
			return nil, errors.New(errors.PhaseLink, errors.KindUnsupported).
				Detail("unknown import module").Name(modName).Build()
		}
	}

	// env is built unconditionally rather than driven off byModule: a
	// memory import has no api.FunctionDefinition, so it never appears
	// among ImportedFunctions(). Registering an unused "env" host module
	// is harmless when the compiled module owns no memory import at all.
	envMod, err := buildEnvModule(ctx, eng, memoryOption(opts.UserImports))
	if err != nil {
		closeHosts(ctx)
		return nil, err
	}
	hostModules = append(hostModules, envMod)

	cfg := wazero.NewModuleConfig()
	wasmMod, err := eng.Instantiate(ctx, compiled, cfg)
	if err != nil {
		closeHosts(ctx)
		return nil, errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
			Detail(err.Error()).Build()
	}

	return &Instance{
		mod:      wasmMod,
		table:    mod.Table,
		layouts:  mod.Layouts,
		hostMods: hostModules,
		eng:      eng,
		memory:   envMod.ExportedMemory("memory"),
	}, nil
}

func sortedModuleNames(m map[string][]api.FunctionDefinition) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// memoryOption extracts a caller-supplied memory descriptor from
// userImports' reserved "memory"/"__memory" keys; "memory" is promoted
// over "__memory" when both are present, per spec.md §4.5.
func memoryOption(userImports map[string]any) *Memory {
	if userImports == nil {
		return nil
	}
	if v, ok := userImports["memory"]; ok {
		if m, ok := v.(*Memory); ok {
			return m
		}
	}
	if v, ok := userImports["__memory"]; ok {
		if m, ok := v.(*Memory); ok {
			return m
		}
	}
	return nil
}

func buildMathModule(ctx context.Context, eng *engine.Engine, defs []api.FunctionDefinition) (api.Module, error) {
	b := eng.NewHostModuleBuilder("math")
	for _, def := range defs {
		_, name, _ := def.Import()
		impl, ok := mathFuncs[name]
		if !ok {
			return nil, errors.New(errors.PhaseLink, errors.KindUndefined).
				Detail("no such math builtin").Name(name).Build()
		}
		params := def.ParamTypes()
		results := def.ResultTypes()
		fn := goModuleFuncFor(func(args []float64) ([]float64, error) {
			return []float64{impl(args)}, nil
		}, len(params))
		b.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}
	return b.Instantiate(ctx)
}

func buildHostModule(ctx context.Context, eng *engine.Engine, defs []api.FunctionDefinition, fh *flattenedHost) (api.Module, error) {
	b := eng.NewHostModuleBuilder("host")
	for _, def := range defs {
		_, name, _ := def.Import()
		rv, ok := fh.funcs[name]
		if !ok {
			return nil, errors.New(errors.PhaseLink, errors.KindUndefined).
				Detail("missing host import").Name(name).Build()
		}
		params := def.ParamTypes()
		results := def.ResultTypes()
		call := reflectCaller(rv)
		fn := goModuleFuncFor(call, len(params))
		b.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}
	return b.Instantiate(ctx)
}

// buildEnvModule always registers an "env" host module exporting a
// memory named "memory", whether or not the compiled module actually
// imports it: a bare memory import carries no api.FunctionDefinition, so
// Run can't tell from ImportedFunctions() alone whether one is needed,
// and an unreferenced host module costs nothing. mem is nil unless the
// caller passed a Memory option; the default is a single unbounded page.
func buildEnvModule(ctx context.Context, eng *engine.Engine, mem *Memory) (api.Module, error) {
	b := eng.NewHostModuleBuilder("env")
	min := uint32(1)
	if mem != nil {
		min = mem.MinPages
	}
	if mem != nil && mem.HasMax {
		b.ExportMemoryWithMax("memory", min, mem.MaxPages)
	} else {
		b.ExportMemory("memory", min)
	}
	return b.Instantiate(ctx)
}

// reflectCaller adapts an arbitrary user-supplied Go func(...float64...) (... )
// style callable into the []float64 in / []float64 out shape buildHostModule
// expects. Every host import is f64-typed end to end (spec.md §4.4's
// lowest-common-denominator rule for free-floating host calls), so the
// callable is expected to take and return float64-compatible values.
func reflectCaller(fn reflect.Value) func(args []float64) ([]float64, error) {
	t := fn.Type()
	return func(args []float64) ([]float64, error) {
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			if i < t.NumIn() {
				switch t.In(i).Kind() {
				case reflect.Float32:
					in[i] = reflect.ValueOf(float32(a))
				default:
					in[i] = reflect.ValueOf(a)
				}
			} else {
				in[i] = reflect.ValueOf(a)
			}
		}
		out := fn.Call(in)
		results := make([]float64, 0, len(out))
		for _, o := range out {
			switch v := o.Interface().(type) {
			case float64:
				results = append(results, v)
			case float32:
				results = append(results, float64(v))
			case int:
				results = append(results, float64(v))
			case int32:
				results = append(results, float64(v))
			case int64:
				results = append(results, float64(v))
			}
		}
		if len(results) == 0 {
			results = []float64{0}
		}
		return results, nil
	}
}

// goModuleFuncFor builds a wazero api.GoModuleFunc that decodes nParams f64
// stack values, invokes call, and encodes the first returned float64 back
// (or nothing, for void imports).
func goModuleFuncFor(call func(args []float64) ([]float64, error), nParams int) api.GoModuleFunc {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]float64, nParams)
		for i := 0; i < nParams; i++ {
			args[i] = api.DecodeF64(stack[i])
		}
		results, err := call(args)
		if err != nil {
			panic(err)
		}
		for i, r := range results {
			if i < len(stack) {
				stack[i] = api.EncodeF64(r)
			}
		}
	})
}

// dotSplit is a small helper used by Instance when reassembling exports
// with dotted names into a nested tree.
func dotSplit(name string) []string {
	return strings.Split(name, ".")
}
