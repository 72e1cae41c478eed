// Package engine defines the abstract contract the graph builder's
// downstream stages (loader, shim synthesis, dispatch) compile against.
// Any conforming Component Model engine can back it; internal/wazeroengine
// is the one concrete implementation this repository ships.
package engine

import (
	"context"

	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

// Component is an opaque, compiled artifact produced by Engine.Compile.
// Callers never inspect it; they only ever hand it back to Linker.Instantiate.
type Component any

// HostFunc is the body of a host-synthesized shim, registered against a
// Linker under (packageName, functionName). args are already-lowered
// wire values; the returned Val is marshalled back across the boundary
// by the engine, and a non-nil error surfaces as a guest-visible trap.
type HostFunc func(ctx context.Context, args []wireformat.Val) (wireformat.Val, error)

// Func is a single exported function on an instantiated component,
// looked up by (packageName, functionName) via Instance.GetExport.
type Func interface {
	Call(ctx context.Context, args []wireformat.Val) (wireformat.Val, error)
}

// Instance is a linked, instantiated component, scoped to one Store.
type Instance interface {
	GetExport(packageName, functionName string) (Func, bool)
	// Close releases the instance's engine-side resources (guest memory,
	// any OS handles WASI opened). It does not touch the Store's
	// resource table, which the loader owns independently.
	Close(ctx context.Context) error
}

// Store is the per-plugin execution context: guest linear memory plus the
// resource table translating handles the plugin's calls carry.
type Store interface {
	Resources() *resource.Table
}

// Linker accumulates host function definitions before instantiating a
// component against a Store. A Linker is prepared once per plugin, with
// one host function registered per (interface, function) the plugin
// imports, then used for exactly one Instantiate call.
type Linker interface {
	DefineHostFunc(packageName, functionName string, fn HostFunc)
	Instantiate(ctx context.Context, store Store, component Component) (Instance, error)
}

// Engine compiles component bytes and creates the Stores and Linkers the
// loader drives per plugin.
type Engine interface {
	Compile(ctx context.Context, bytes []byte) (Component, error)
	NewStore(ctx context.Context, resources *resource.Table) (Store, error)
	NewLinker() Linker
}
