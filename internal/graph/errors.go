package graph

import (
	"fmt"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
)

// BuildError is the error family produced while assembling a PluginTree.
// Every variant is recoverable: it accumulates into the slice Build
// returns alongside a tree built from whatever plugins survived.
type BuildError interface {
	error
	buildError()
}

// DuplicatePluginID reports that a plugin id appeared more than once in
// the input set; only the first occurrence is kept.
type DuplicatePluginID struct {
	ID descriptor.PluginID
}

func (e DuplicatePluginID) Error() string {
	return fmt.Sprintf("graph: duplicate plugin id %q", e.ID)
}
func (DuplicatePluginID) buildError() {}

// DuplicateInterfaceID reports that an interface id appeared more than
// once in the input set; only the first occurrence is kept.
type DuplicateInterfaceID struct {
	ID descriptor.InterfaceID
}

func (e DuplicateInterfaceID) Error() string {
	return fmt.Sprintf("graph: duplicate interface id %q", e.ID)
}
func (DuplicateInterfaceID) buildError() {}

// UnknownInterface reports that a plugin's plug or one of its sockets
// names an interface id not present in the interface set.
type UnknownInterface struct {
	Plugin    descriptor.PluginID
	Interface descriptor.InterfaceID
}

func (e UnknownInterface) Error() string {
	return fmt.Sprintf("graph: plugin %q references unknown interface %q", e.Plugin, e.Interface)
}
func (UnknownInterface) buildError() {}

// UnsatisfiedCardinality reports that an interface's plugged-in plugin
// count does not match its cardinality class.
type UnsatisfiedCardinality struct {
	Interface descriptor.InterfaceID
	Required  descriptor.Cardinality
	Provided  int
}

func (e UnsatisfiedCardinality) Error() string {
	return fmt.Sprintf("graph: interface %q requires %s, got %d plugin(s)", e.Interface, e.Required, e.Provided)
}
func (UnsatisfiedCardinality) buildError() {}

// CycleDetected reports a set of plugins dropped together because their
// socket requirements formed a dependency cycle: none could be
// provisionally satisfied without another in the same set already being
// satisfied first.
type CycleDetected struct {
	Plugins []descriptor.PluginID
}

func (e CycleDetected) Error() string {
	return fmt.Sprintf("graph: cycle detected among plugins %v", e.Plugins)
}
func (CycleDetected) buildError() {}

// MissingPlugForRoot reports that the root interface id does not match
// any known interface descriptor.
type MissingPlugForRoot struct {
	Root descriptor.InterfaceID
}

func (e MissingPlugForRoot) Error() string {
	return fmt.Sprintf("graph: root interface %q is not a known interface", e.Root)
}
func (MissingPlugForRoot) buildError() {}
