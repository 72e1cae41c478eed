package loader

import (
	"fmt"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
)

// LoadError is the error family produced while loading a PluginTree. Like
// BuildError, every variant is recoverable: it accumulates into the slice
// Load returns alongside a Head built from whatever plugins survived.
// Only FatalLoadError short-circuits the pipeline entirely.
type LoadError interface {
	error
	loadError()
}

// ComponentBuild reports that a plugin's factory failed to produce
// compilable component bytes.
type ComponentBuild struct {
	Plugin descriptor.PluginID
	Reason error
}

func (e ComponentBuild) Error() string {
	return fmt.Sprintf("loader: plugin %q: build component: %v", e.Plugin, e.Reason)
}
func (e ComponentBuild) Unwrap() error { return e.Reason }
func (ComponentBuild) loadError()      {}

// Instantiation reports that linking or instantiating a plugin's compiled
// component failed (missing export, type mismatch).
type Instantiation struct {
	Plugin descriptor.PluginID
	Reason error
}

func (e Instantiation) Error() string {
	return fmt.Sprintf("loader: plugin %q: instantiate: %v", e.Plugin, e.Reason)
}
func (e Instantiation) Unwrap() error { return e.Reason }
func (Instantiation) loadError()      {}

// UnsupportedType reports that a socket interface's function signature
// mentions a future, stream, or error-context type, refused at shim
// synthesis time.
type UnsupportedType struct {
	Plugin    descriptor.PluginID
	Interface descriptor.InterfaceID
	Function  string
}

func (e UnsupportedType) Error() string {
	return fmt.Sprintf("loader: plugin %q: %s.%s has an unsupported signature", e.Plugin, e.Interface, e.Function)
}
func (UnsupportedType) loadError() {}

// SocketUnsatisfiedPostLoad reports that, after instantiation failures
// removed some providers, a plugin's socket no longer satisfies its
// interface's cardinality; the plugin is removed from the loaded tree.
type SocketUnsatisfiedPostLoad struct {
	Plugin    descriptor.PluginID
	Interface descriptor.InterfaceID
}

func (e SocketUnsatisfiedPostLoad) Error() string {
	return fmt.Sprintf("loader: plugin %q: socket %q no longer satisfied after load", e.Plugin, e.Interface)
}
func (SocketUnsatisfiedPostLoad) loadError() {}

// FatalLoadError aborts the load pipeline: the root interface itself
// collapsed to zero loaded plugins, leaving nothing a dispatcher could
// ever call. Unlike the other LoadError variants, this short-circuits
// Load entirely — there is no partial Head to return.
type FatalLoadError struct {
	Root descriptor.InterfaceID
}

func (e FatalLoadError) Error() string {
	return fmt.Sprintf("loader: root interface %q has zero loaded plugins", e.Root)
}
