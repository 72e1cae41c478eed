// Package dispatch implements the top-level entry point: given a root
// interface, function name, and arguments, it fans the call out to every
// plugin plugged into the root and folds per-plugin results into the
// interface's cardinality shape.
package dispatch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
)

// DispatchError is the runtime error family a single fanned-out call can
// fail with. Unlike BuildError/LoadError, a DispatchError never aborts
// the fan-out: it is folded into that one plugin's slot in the envelope
// and every other target still runs.
type DispatchError interface {
	error
	dispatchError()
}

// UnknownFunction reports that the named function does not exist on the
// root interface.
type UnknownFunction struct {
	Package  string
	Function string
}

func (e UnknownFunction) Error() string {
	return fmt.Sprintf("dispatch: unknown function %s.%s", e.Package, e.Function)
}
func (UnknownFunction) dispatchError() {}

// Trap reports that a target plugin's call trapped or the engine
// otherwise failed to execute it. CorrelationID lets a host correlate
// this trap back to the specific dispatch call in its own logs.
type Trap struct {
	Plugin        descriptor.PluginID
	Detail        string
	CorrelationID uuid.UUID
}

func (e Trap) Error() string {
	return fmt.Sprintf("dispatch: plugin %q trapped: %s (correlation %s)", e.Plugin, e.Detail, e.CorrelationID)
}
func (Trap) dispatchError() {}

// UnsupportedType reports that a target call passed or returned a value
// mentioning an async type at runtime, refused mid-call.
type UnsupportedType struct {
	Plugin descriptor.PluginID
}

func (e UnsupportedType) Error() string {
	return fmt.Sprintf("dispatch: plugin %q: unsupported type at call site", e.Plugin)
}
func (UnsupportedType) dispatchError() {}

// SocketUnsatisfied reports that the root socket had no plugins bound
// for a cardinality requiring at least one.
type SocketUnsatisfied struct {
	Interface descriptor.InterfaceID
}

func (e SocketUnsatisfied) Error() string {
	return fmt.Sprintf("dispatch: socket %q has no bound plugin", e.Interface)
}
func (SocketUnsatisfied) dispatchError() {}

// ResourceTranslation reports a failure translating a resource handle
// across the host/target store boundary.
type ResourceTranslation struct {
	Plugin descriptor.PluginID
	Detail string
}

func (e ResourceTranslation) Error() string {
	return fmt.Sprintf("dispatch: plugin %q: resource translation: %s", e.Plugin, e.Detail)
}
func (ResourceTranslation) dispatchError() {}
