package loader

import (
	"context"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/internal/shim"
)

// loadedPlugin is one successfully instantiated plugin: its descriptor,
// the live instance and store the loader created for it.
type loadedPlugin struct {
	descriptor descriptor.PluginDescriptor
	instance   pluginengine.Instance
	store      pluginengine.Store
}

// Head is the loaded counterpart of graph.PluginTree: every retained
// plugin has a live instance and store, and every socket resolves to a
// concrete sequence of target instances instead of plugin ids.
type Head struct {
	root       descriptor.InterfaceID
	interfaces map[descriptor.InterfaceID]descriptor.InterfaceDescriptor
	plugins    map[descriptor.PluginID]*loadedPlugin
	plugged    map[descriptor.InterfaceID][]descriptor.PluginID
	repCounter *resource.HostRep
}

// RepCounter returns the rep counter shared by every store in this tree,
// so a dispatcher's own host-side resource table mints reps from the same
// sequence and can never collide with a plugin's.
func (h *Head) RepCounter() *resource.HostRep {
	return h.repCounter
}

// Root returns the tree's root interface id.
func (h *Head) Root() descriptor.InterfaceID {
	return h.root
}

// Interface looks up a retained interface descriptor by id.
func (h *Head) Interface(id descriptor.InterfaceID) (descriptor.InterfaceDescriptor, bool) {
	d, ok := h.interfaces[id]
	return d, ok
}

// Targets resolves interfaceID's plugged-in plugins to shim.Target
// values, in the sorted-by-plugin-id order the spec requires for
// deterministic fan-out.
func (h *Head) Targets(interfaceID descriptor.InterfaceID) []shim.Target {
	ids := descriptor.SortPluginIDs(h.plugged[interfaceID])
	out := make([]shim.Target, 0, len(ids))
	for _, id := range ids {
		lp, ok := h.plugins[id]
		if !ok {
			continue
		}
		out = append(out, shim.Target{ID: id, Instance: lp.instance, Store: lp.store})
	}
	return out
}

// RootTable returns the resource table of the loaded plugin pluginID,
// reporting false if no such plugin is loaded. The dispatcher does not
// use it; it translates host-side arguments through its own table.
func (h *Head) RootTable(pluginID descriptor.PluginID) (*resource.Table, bool) {
	lp, ok := h.plugins[pluginID]
	if !ok {
		return nil, false
	}
	return lp.store.Resources(), true
}

// Close closes every loaded instance's engine-side resources. It does not
// need to touch resource tables; they are owned by the stores, which are
// reclaimed with the Engine.
func (h *Head) Close(ctx context.Context) error {
	var firstErr error
	for _, lp := range h.plugins {
		if err := lp.instance.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
