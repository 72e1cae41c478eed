// Package wazeroengine implements the abstract internal/engine contract
// against github.com/tetratelabs/wazero, the same Component Model engine
// library the teacher repository drives in internal/wasm. Guest crossing
// uses the teacher's ptr+len calling convention (allocate/deallocate,
// writeToMemory/readString), carrying wire-encoded Vals instead of the
// teacher's ad hoc JSON payloads.
//
// Export and import names are namespaced as "packageName#functionName",
// the flattening a core-module adapter would apply to a true component's
// named interface exports, since wazero instantiates core modules rather
// than components.
package wazeroengine

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/resource"
)

// Engine wraps a wazero.Runtime shared across every plugin in a tree; one
// Engine is created per load.
type Engine struct {
	runtime wazero.Runtime
}

// New constructs an Engine with a fresh wazero runtime configured for
// WASI preview 1, matching the teacher's NewRuntimeWithCapabilities setup.
func New(ctx context.Context) (*Engine, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: instantiate WASI: %w", err)
	}
	return &Engine{runtime: rt}, nil
}

// Close tears down the underlying runtime, invalidating every Component,
// Store, and Instance the Engine produced.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile compiles raw wasm bytes into a cacheable wazero.CompiledModule.
func (e *Engine) Compile(ctx context.Context, raw []byte) (pluginengine.Component, error) {
	mod, err := e.runtime.CompileModule(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("wazeroengine: compile: %w", err)
	}
	return mod, nil
}

// NewStore creates a Store holding resources, the plugin's resource
// table. wazero has no first-class Store type of its own — module
// instantiation config plays that role — so Store here is this package's
// bookkeeping around a wazero.ModuleConfig template plus the table.
func (e *Engine) NewStore(ctx context.Context, resources *resource.Table) (pluginengine.Store, error) {
	return &store{resources: resources, cfg: moduleConfig()}, nil
}

// NewLinker returns a Linker that accumulates host function definitions
// under a single host module named "pluginlattice_host", mirroring the
// teacher's one-builder-per-runtime hostfuncs.RegisterHostFunctions shape,
// generalized to one export per imported interface function instead of
// one per capability kind.
func (e *Engine) NewLinker() pluginengine.Linker {
	return &linker{engine: e, builder: e.runtime.NewHostModuleBuilder(hostModuleName)}
}

const hostModuleName = "pluginlattice_host"

func moduleConfig() wazero.ModuleConfig {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	return wazero.NewModuleConfig().
		WithFSConfig(wazero.NewFSConfig().WithDirMount(cwd, "/")).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader).
		WithStderr(os.Stderr).
		WithStdout(os.Stderr)
}

type store struct {
	resources *resource.Table
	cfg       wazero.ModuleConfig
}

func (s *store) Resources() *resource.Table { return s.resources }

// exportedFunc adapts a wazero api.Module export, addressed through the
// ptr+len marshalling convention, to the engine.Func contract. Its Call
// method is defined in call.go alongside the shared marshalling helpers.
type exportedFunc struct {
	instance     api.Module
	functionName string
}
