package wazeroengine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
)

// linker accumulates host function definitions under one host module
// builder, mirroring the teacher's RegisterHostFunctions shape: every
// shim synthesized for a plugin's sockets lands on the same builder
// before a single Instantiate call links it against that plugin's module.
type linker struct {
	engine  *Engine
	builder wazero.HostModuleBuilder
}

func exportName(packageName, functionName string) string {
	return packageName + "#" + functionName
}

// DefineHostFunc registers fn under packageName#functionName using the
// ptr+len convention: the guest passes (argsPtr, argsLen) pointing at a
// JSON-encoded list-kind wireformat.Val with one element per argument,
// and expects back a packed
// (resultPtr<<32 | resultLen) uint64 pointing at a JSON-encoded
// wireformat.Val, exactly as the teacher's exported functions return
// describe()/schema() results.
func (l *linker) DefineHostFunc(packageName, functionName string, fn pluginengine.HostFunc) {
	goFn := func(ctx context.Context, mod api.Module, stack []uint64) {
		argsPtr := uint32(stack[0])
		argsLen := uint32(stack[1])

		args, err := decodeArgs(mod, argsPtr, argsLen)
		if err != nil {
			stack[0] = 0
			return
		}

		result, callErr := fn(ctx, args)
		if callErr != nil {
			// A shim error becomes a guest-visible trap: the host function
			// panics, which wazero turns into a Func.Call error on the
			// guest's own invoking instance — the same "propagate as a
			// trap" policy the dispatcher applies to callee traps.
			panic(callErr)
		}

		packed, err := encodeResultIntoGuest(ctx, mod, result)
		if err != nil {
			panic(err)
		}
		stack[0] = packed
	}

	l.builder = l.builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(goFn), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export(exportName(packageName, functionName))
}

// Instantiate finalizes the accumulated host module, then instantiates
// component (a *wazero.CompiledModule) against store's module config,
// running WASI's _initialize bootstrap if the module exports it, matching
// the teacher's createInstance sequence.
func (l *linker) Instantiate(ctx context.Context, s pluginengine.Store, component pluginengine.Component) (pluginengine.Instance, error) {
	if _, err := l.builder.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("wazeroengine: instantiate host module: %w", err)
	}

	compiled, ok := component.(wazero.CompiledModule)
	if !ok {
		return nil, fmt.Errorf("wazeroengine: component is not a wazero.CompiledModule")
	}

	st, ok := s.(*store)
	if !ok {
		return nil, fmt.Errorf("wazeroengine: store is not a wazeroengine store")
	}

	mod, err := l.engine.runtime.InstantiateModule(ctx, compiled, st.cfg)
	if err != nil {
		return nil, fmt.Errorf("wazeroengine: instantiate module: %w", err)
	}

	if initFn := mod.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("wazeroengine: _initialize: %w", err)
		}
	}

	return &instance{module: mod}, nil
}

type instance struct {
	module api.Module
}

func (i *instance) GetExport(packageName, functionName string) (pluginengine.Func, bool) {
	fn := i.module.ExportedFunction(exportName(packageName, functionName))
	if fn == nil {
		return nil, false
	}
	return &exportedFunc{instance: i.module, functionName: exportName(packageName, functionName)}, true
}

func (i *instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
