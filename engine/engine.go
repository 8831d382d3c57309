// Package engine wraps wazero's core WebAssembly runtime: compiling the
// bytes codegen produces and instantiating them with whatever imports the
// link package has wired up. It carries no Component Model machinery —
// Atra emits and loads core WebAssembly 1.0 modules only.
package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Engine owns one wazero runtime. Create one per compilation (or share one
// across many short-lived instantiations); Close releases every module and
// compiled artifact it produced.
type Engine struct {
	runtime wazero.Runtime
}

// New creates an Engine. CoreFeaturesV2 is requested explicitly rather
// than left on NewRuntimeConfig's default so SIMD128 (v128 locals and
// instructions, not exported-function v128 params — wazero's host-call
// ABI only carries i32/i64/f32/f64) is a visible dependency, not an
// implicit one. The tail-call extension (return_call/return_call_indirect)
// has no corresponding api.CoreFeatures flag to request: wazero validates
// those opcodes as ordinary call/call_indirect variants rather than
// gating them behind a value-type-affecting feature the way SIMD is
// gated, so generated tail calls ride on the wazero compiler's opcode
// support rather than anything this package configures.
func New(ctx context.Context) (*Engine, error) {
	cfg := wazero.NewRuntimeConfig().WithCoreFeatures(api.CoreFeaturesV2)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	return &Engine{runtime: rt}, nil
}

// Runtime returns the underlying wazero runtime, for packages (link) that
// need to build host modules directly.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Close releases the runtime and every module it compiled or instantiated.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile validates and compiles raw wasm bytes, returning a reusable
// wazero.CompiledModule. Callers that only need one instantiation can skip
// straight to Instantiate.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	mod, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: compile module: %w", err)
	}
	return mod, nil
}

// Instantiate instantiates a compiled module under the given config
// (which carries its host module imports, name, and memory limits).
func (e *Engine) Instantiate(ctx context.Context, compiled wazero.CompiledModule, cfg wazero.ModuleConfig) (api.Module, error) {
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: instantiate module: %w", err)
	}
	return mod, nil
}

// NewHostModuleBuilder starts building a host module (e.g. "math", "host",
// "env") that generated imports resolve against.
func (e *Engine) NewHostModuleBuilder(name string) wazero.HostModuleBuilder {
	return e.runtime.NewHostModuleBuilder(name)
}
