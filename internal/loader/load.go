package loader

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/graph"
	"github.com/pluginlattice/pluginlattice/internal/partial"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/internal/shim"
)

// loadedResult pairs a successfully loaded plugin with the id it was
// loaded under, the unit of success the per-layer partial.Partial
// accumulates; loadOne's LoadErrors are accumulated separately on the
// same Partial's error side.
type loadedResult struct {
	id descriptor.PluginID
	lp *loadedPlugin
}

// Load instantiates every plugin in tree in reverse topological order —
// providers before consumers — synthesizing each plugin's import shims
// from its already-loaded dependencies, then runs a post-load cardinality
// pass to drop any plugin whose sockets no longer hold enough live
// providers after instantiation failures. It returns a FatalLoadError,
// short-circuiting with no Head, only when the root interface ends up
// with zero loaded plugins.
func Load(ctx context.Context, tree *graph.PluginTree, eng pluginengine.Engine) (*Head, []LoadError, *FatalLoadError) {
	var errs []LoadError

	layers := loadOrder(tree)

	var repCounter resource.HostRep
	loaded := make(map[descriptor.PluginID]*loadedPlugin)

	for _, layer := range layers {
		layerPartial := partial.New[loadedResult](len(layer))
		for _, id := range layer {
			p, ok := tree.Plugin(id)
			if !ok {
				continue
			}
			lp, loadErrs := loadOne(ctx, eng, tree, p, loaded, &repCounter)
			for _, le := range loadErrs {
				layerPartial.AddErr(le)
			}
			if lp != nil {
				layerPartial.Add(loadedResult{id: id, lp: lp})
			}
		}
		for _, r := range layerPartial.Values {
			loaded[r.id] = r.lp
		}
		for _, err := range layerPartial.Errors {
			errs = append(errs, err.(LoadError))
		}
	}

	interfaces := make(map[descriptor.InterfaceID]descriptor.InterfaceDescriptor)
	plugged := make(map[descriptor.InterfaceID][]descriptor.PluginID)
	for id, iface := range allInterfaces(tree) {
		interfaces[id] = iface
	}

	alive := make(map[descriptor.PluginID]bool, len(loaded))
	for id := range loaded {
		alive[id] = true
	}

	for changed := true; changed; {
		changed = false
		for id := range alive {
			p, _ := tree.Plugin(id)
			for _, s := range p.Sockets {
				count := countAlive(tree.PluggedInto(s.ID), alive)
				if !s.Cardinality.Satisfied(count) {
					errs = append(errs, SocketUnsatisfiedPostLoad{Plugin: id, Interface: s.ID})
					delete(alive, id)
					if lp := loaded[id]; lp != nil {
						_ = lp.instance.Close(ctx)
						delete(loaded, id)
					}
					changed = true
					break
				}
			}
		}
	}

	for id := range loaded {
		p, _ := tree.Plugin(id)
		if p.HasPlug() {
			plugged[p.Plug.ID] = append(plugged[p.Plug.ID], id)
		}
	}

	rootCount := countAlive(tree.PluggedInto(tree.Root()), alive)
	if rootCount == 0 {
		for _, lp := range loaded {
			_ = lp.instance.Close(ctx)
		}
		return nil, errs, &FatalLoadError{Root: tree.Root()}
	}

	head := &Head{
		root:       tree.Root(),
		interfaces: interfaces,
		plugins:    loaded,
		plugged:    plugged,
		repCounter: &repCounter,
	}
	return head, errs, nil
}

func countAlive(ids []descriptor.PluginID, alive map[descriptor.PluginID]bool) int {
	n := 0
	for _, id := range ids {
		if alive[id] {
			n++
		}
	}
	return n
}

func allInterfaces(tree *graph.PluginTree) map[descriptor.InterfaceID]descriptor.InterfaceDescriptor {
	out := make(map[descriptor.InterfaceID]descriptor.InterfaceDescriptor)
	if iface, ok := tree.Interface(tree.Root()); ok {
		out[tree.Root()] = iface
	}
	for _, p := range tree.Plugins() {
		if p.HasPlug() {
			out[p.Plug.ID] = p.Plug
		}
		for _, s := range p.Sockets {
			out[s.ID] = s
		}
	}
	return out
}

// loadOrder computes reverse-topological load layers via Kahn's
// algorithm over the plugin-dependency graph (a plugin depends on every
// plugin plugged into one of its sockets), sorting each layer by plugin
// id for deterministic load order.
func loadOrder(tree *graph.PluginTree) [][]descriptor.PluginID {
	plugins := tree.Plugins()
	deps := make(map[descriptor.PluginID][]descriptor.PluginID, len(plugins))
	for _, p := range plugins {
		var d []descriptor.PluginID
		for _, s := range p.Sockets {
			d = append(d, tree.PluggedInto(s.ID)...)
		}
		deps[p.ID] = d
	}

	done := make(map[descriptor.PluginID]bool, len(deps))
	var layers [][]descriptor.PluginID
	for len(done) < len(deps) {
		var layer []descriptor.PluginID
		for id, ds := range deps {
			if done[id] {
				continue
			}
			ready := true
			for _, d := range ds {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			// graph.Build's structural-cycle pass guarantees this never
			// triggers on a real cycle; this is a backstop in case a
			// future caller constructs a PluginTree by hand. Load
			// whatever is left in id order rather than spin forever.
			for id := range deps {
				if !done[id] {
					layer = append(layer, id)
				}
			}
		}
		layer = descriptor.SortPluginIDs(layer)
		for _, id := range layer {
			done[id] = true
		}
		layers = append(layers, layer)
	}
	return layers
}

func loadOne(
	ctx context.Context,
	eng pluginengine.Engine,
	tree *graph.PluginTree,
	p descriptor.PluginDescriptor,
	loaded map[descriptor.PluginID]*loadedPlugin,
	repCounter *resource.HostRep,
) (*loadedPlugin, []LoadError) {
	raw, err := p.Factory(ctx)
	if err != nil {
		return nil, []LoadError{ComponentBuild{Plugin: p.ID, Reason: err}}
	}
	rawBytes, ok := raw.([]byte)
	if !ok {
		return nil, []LoadError{ComponentBuild{Plugin: p.ID, Reason: fmt.Errorf("factory did not return component bytes")}}
	}
	component, err := eng.Compile(ctx, rawBytes)
	if err != nil {
		return nil, []LoadError{ComponentBuild{Plugin: p.ID, Reason: err}}
	}

	var errs []LoadError
	table := resource.NewTable(repCounter)
	store, err := eng.NewStore(ctx, table)
	if err != nil {
		return nil, []LoadError{ComponentBuild{Plugin: p.ID, Reason: err}}
	}

	linker := eng.NewLinker()
	unsupported := false
	for _, socket := range p.Sockets {
		for _, vErr := range shim.Validate(socket) {
			ute, ok := vErr.(shim.UnsupportedTypeError)
			if !ok {
				continue
			}
			errs = append(errs, UnsupportedType{Plugin: p.ID, Interface: ute.Interface, Function: ute.Function})
			unsupported = true
		}
		shim.Register(linker, table, socket, targetsFor(tree, socket, loaded))
	}
	if unsupported {
		return nil, errs
	}

	correlationID := uuid.New()
	instance, err := linker.Instantiate(ctx, store, component)
	if err != nil {
		errs = append(errs, Instantiation{Plugin: p.ID, Reason: fmt.Errorf("%w (load attempt %s)", err, correlationID)})
		return nil, errs
	}

	return &loadedPlugin{descriptor: p, instance: instance, store: store}, errs
}

func targetsFor(
	tree *graph.PluginTree,
	socket descriptor.InterfaceDescriptor,
	loaded map[descriptor.PluginID]*loadedPlugin,
) []shim.Target {
	ids := descriptor.SortPluginIDs(tree.PluggedInto(socket.ID))
	out := make([]shim.Target, 0, len(ids))
	for _, id := range ids {
		lp, ok := loaded[id]
		if !ok {
			continue
		}
		out = append(out, shim.Target{ID: id, Instance: lp.instance, Store: lp.store})
	}
	return out
}
