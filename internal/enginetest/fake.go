// Package enginetest provides an in-memory fake of the internal/engine
// contract for tests that exercise the loader, shim synthesis, and
// dispatcher without a real wazero runtime or compiled .wasm bytes. It
// plays back scripted Go closures as if they were a component's exports,
// including letting those closures call back into whatever host shims a
// Linker registered for them — the same cross-plugin shape real
// Component Model imports produce, without requiring actual guest code.
package enginetest

import (
	"context"
	"fmt"

	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

// Imports lets a Program's export call back into whatever host functions
// its plugin's Linker registered — the fake's stand-in for a real
// guest's import calls.
type Imports interface {
	Call(ctx context.Context, packageName, functionName string, args []wireformat.Val) (wireformat.Val, error)
	// Resources returns the calling plugin's own resource table, the
	// fake's stand-in for the engine's canonical "resource.new" built-in
	// that a real guest constructor implicitly invokes when it creates a
	// resource owned by its own store.
	Resources() *resource.Table
}

// ExportFunc is a scripted implementation of one exported function.
type ExportFunc func(ctx context.Context, args []wireformat.Val, imports Imports) (wireformat.Val, error)

// Program is a fake compiled component: a fixed table of exports, keyed
// by ExportName(packageName, functionName).
type Program struct {
	Exports map[string]ExportFunc
}

// ExportName builds the key Program.Exports and a Linker's host function
// table are both indexed by.
func ExportName(packageName, functionName string) string {
	return packageName + "#" + functionName
}

// Engine is a fake pluginengine.Engine backed by an in-memory registry of
// Programs, looked up by the opaque "bytes" Register returns.
type Engine struct {
	registry map[string]*Program
}

// New creates an empty fake engine.
func New() *Engine {
	return &Engine{registry: make(map[string]*Program)}
}

// Register adds a Program under id and returns the opaque byte slice a
// PluginDescriptor.Factory should return to select it at load time.
func (e *Engine) Register(id string, p *Program) []byte {
	e.registry[id] = p
	return []byte(id)
}

func (e *Engine) Compile(ctx context.Context, raw []byte) (pluginengine.Component, error) {
	p, ok := e.registry[string(raw)]
	if !ok {
		return nil, fmt.Errorf("enginetest: no program registered for %q", raw)
	}
	return p, nil
}

func (e *Engine) NewStore(ctx context.Context, resources *resource.Table) (pluginengine.Store, error) {
	return &store{resources: resources}, nil
}

func (e *Engine) NewLinker() pluginengine.Linker {
	return &linker{hostFuncs: make(map[string]pluginengine.HostFunc)}
}

type store struct {
	resources *resource.Table
}

func (s *store) Resources() *resource.Table { return s.resources }

type linker struct {
	hostFuncs map[string]pluginengine.HostFunc
}

func (l *linker) DefineHostFunc(packageName, functionName string, fn pluginengine.HostFunc) {
	l.hostFuncs[ExportName(packageName, functionName)] = fn
}

func (l *linker) Instantiate(ctx context.Context, s pluginengine.Store, component pluginengine.Component) (pluginengine.Instance, error) {
	p, ok := component.(*Program)
	if !ok {
		return nil, fmt.Errorf("enginetest: component is not a *Program")
	}
	return &instance{program: p, hostFuncs: l.hostFuncs, store: s}, nil
}

type instance struct {
	program   *Program
	hostFuncs map[string]pluginengine.HostFunc
	store     pluginengine.Store
}

func (i *instance) GetExport(packageName, functionName string) (pluginengine.Func, bool) {
	ef, ok := i.program.Exports[ExportName(packageName, functionName)]
	if !ok {
		return nil, false
	}
	return &exportedFunc{fn: ef, imports: i}, true
}

func (i *instance) Close(ctx context.Context) error { return nil }

// Call implements Imports: it looks up a host function registered by this
// plugin's Linker, the fake's stand-in for a guest issuing an import call.
func (i *instance) Call(ctx context.Context, packageName, functionName string, args []wireformat.Val) (wireformat.Val, error) {
	h, ok := i.hostFuncs[ExportName(packageName, functionName)]
	if !ok {
		return wireformat.Val{}, fmt.Errorf("enginetest: no import bound for %s.%s", packageName, functionName)
	}
	return h(ctx, args)
}

// Resources implements Imports.
func (i *instance) Resources() *resource.Table {
	return i.store.Resources()
}

type exportedFunc struct {
	fn      ExportFunc
	imports Imports
}

func (f *exportedFunc) Call(ctx context.Context, args []wireformat.Val) (wireformat.Val, error) {
	return f.fn(ctx, args, f.imports)
}
