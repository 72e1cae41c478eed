package graph

import "github.com/pluginlattice/pluginlattice/internal/descriptor"

// PluginTree is the unloaded, validated graph produced by Build: every
// plugin's plug and sockets are known to resolve to real interfaces, and
// every retained interface's plugged-in set satisfies its cardinality
// (anything that didn't was degraded away during the build).
type PluginTree struct {
	root       descriptor.InterfaceID
	interfaces map[descriptor.InterfaceID]descriptor.InterfaceDescriptor
	plugins    map[descriptor.PluginID]descriptor.PluginDescriptor
	plugged    map[descriptor.InterfaceID][]descriptor.PluginID
}

// Root returns the tree's designated root interface id.
func (t *PluginTree) Root() descriptor.InterfaceID {
	return t.root
}

// Interface looks up a retained interface descriptor by id.
func (t *PluginTree) Interface(id descriptor.InterfaceID) (descriptor.InterfaceDescriptor, bool) {
	d, ok := t.interfaces[id]
	return d, ok
}

// Plugin looks up a retained plugin descriptor by id.
func (t *PluginTree) Plugin(id descriptor.PluginID) (descriptor.PluginDescriptor, bool) {
	p, ok := t.plugins[id]
	return p, ok
}

// PluggedInto returns the sorted list of plugin ids plugged into
// interface id. The returned slice is the caller's to keep; it is
// re-sorted on every call from the tree's internal storage.
func (t *PluginTree) PluggedInto(id descriptor.InterfaceID) []descriptor.PluginID {
	return descriptor.SortPluginIDs(t.plugged[id])
}

// Plugins returns every retained plugin descriptor, in no particular
// order; callers that need determinism should sort by ID.
func (t *PluginTree) Plugins() []descriptor.PluginDescriptor {
	out := make([]descriptor.PluginDescriptor, 0, len(t.plugins))
	for _, p := range t.plugins {
		out = append(out, p)
	}
	return out
}

// InterfaceCount reports how many interfaces the tree retained.
func (t *PluginTree) InterfaceCount() int {
	return len(t.interfaces)
}
