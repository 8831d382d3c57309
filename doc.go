// Package atra compiles Atra source — a small statically-typed numeric
// language — to a WebAssembly 1.0 binary module with the SIMD128 and
// tail-call extensions, and optionally instantiates the result.
//
// # Pipeline
//
//	source text -> lexer -> parser (ast) -> codegen -> wasm bytes -> link/engine
//
//	atra/        Root package: Compile, Parse, Dump, Run, CompileTemplate
//	├── lexer/   Source -> token stream
//	├── ast/     Tagged AST the parser builds and codegen walks
//	├── parser/  Recursive-descent declarations/statements, Pratt expressions
//	├── codegen/ Five-pass AST -> wasm bytes + table map + layout map
//	├── wasm/    LEB128/IEEE-754 byte writer, section framing, opcode tables
//	├── engine/  wazero compile/instantiate wrapper
//	├── link/    math/host/env import wiring, export reshaping
//	├── errors/  Structured error type shared by every phase
//	└── cmd/atra CLI: compile/parse/dump/run subcommands, -i REPL
//
// # Quick start
//
//	bytes, _, _, err := atra.Compile(`
//	    function add(a, b: f64): f64
//	    begin
//	        add := a + b
//	    end`)
//
//	inst, err := atra.Run(ctx, source, nil)
//	defer inst.Close(ctx)
//	result, err := inst.Call(ctx, "add", 2.0, 3.5)
//
// # Compilation is stateless
//
// Compile is a pure function from source to bytes: every compilation owns
// its own byte writer, index tables and scan sets, and keeps nothing
// across calls. Concurrent compilations share no state.
//
// # Import modules
//
// A compiled module imports from at most three module names: math (the
// auto-detected math builtins), host (every user- or interpolation-
// supplied callable), and env (the imported linear memory, whenever the
// module uses memory). Run resolves all three; Compile alone never touches
// userImports and cannot fail on a missing host function — that surfaces
// only at instantiation.
package atra
