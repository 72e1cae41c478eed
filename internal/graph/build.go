package graph

import (
	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	"github.com/pluginlattice/pluginlattice/internal/partial"
)

// Build assembles a PluginTree from a flat descriptor set, rejecting
// duplicates and dangling references into the returned error slice,
// grouping plugins by the interface they plug into, and running a
// fixed-point degradation cascade so that every interface retained in the
// tree (other than the root, which is exempt) has a plugged-in plugin set
// satisfying its cardinality. A second, independent pass detects genuine
// structural cycles — plugins whose sockets depend on each other's plug
// in a loop — that never make any single interface's cardinality
// unsatisfied and so would otherwise slip past the cardinality cascade.
//
// Build never fails outright: the tree it returns is always usable,
// built from whatever plugins and interfaces survived validation.
func Build(
	root descriptor.InterfaceID,
	interfaces []descriptor.InterfaceDescriptor,
	plugins []descriptor.PluginDescriptor,
) (*PluginTree, []BuildError) {
	var errs []BuildError

	ifaceByID := make(map[descriptor.InterfaceID]descriptor.InterfaceDescriptor, len(interfaces))
	for _, iface := range interfaces {
		if _, dup := ifaceByID[iface.ID]; dup {
			errs = append(errs, DuplicateInterfaceID{ID: iface.ID})
			continue
		}
		ifaceByID[iface.ID] = iface
	}

	if _, ok := ifaceByID[root]; !ok {
		errs = append(errs, MissingPlugForRoot{Root: root})
	}

	// Validating the flat plugin list is a textbook fallible pipeline: each
	// plugin either survives (added to Values) or is rejected (AddErr),
	// and later stages only ever need the survivors plus the full error
	// list, which is exactly the partial.Partial[T] shape.
	pluginPartial := partial.New[descriptor.PluginDescriptor](len(plugins))
	seenPluginID := make(map[descriptor.PluginID]bool, len(plugins))
	for _, p := range plugins {
		if seenPluginID[p.ID] {
			pluginPartial.AddErr(DuplicatePluginID{ID: p.ID})
			continue
		}
		seenPluginID[p.ID] = true
		unknown := false
		if p.HasPlug() {
			if _, ok := ifaceByID[p.Plug.ID]; !ok {
				pluginPartial.AddErr(UnknownInterface{Plugin: p.ID, Interface: p.Plug.ID})
				unknown = true
			}
		}
		for _, s := range p.Sockets {
			if _, ok := ifaceByID[s.ID]; !ok {
				pluginPartial.AddErr(UnknownInterface{Plugin: p.ID, Interface: s.ID})
				unknown = true
			}
		}
		if unknown {
			continue
		}
		pluginPartial.Add(p)
	}

	alive := make(map[descriptor.PluginID]descriptor.PluginDescriptor, len(pluginPartial.Values))
	for _, p := range pluginPartial.Values {
		alive[p.ID] = p
	}
	for _, err := range pluginPartial.Errors {
		errs = append(errs, err.(BuildError))
	}

	aliveIface := make(map[descriptor.InterfaceID]bool, len(ifaceByID))
	for id := range ifaceByID {
		aliveIface[id] = true
	}

	checkedOnce := make(map[descriptor.InterfaceID]bool)
	var cascadeCycles []descriptor.PluginID
	var structuralCycles []descriptor.PluginID

	// Outer fixed point: a cardinality cascade can free up an interface's
	// required count but never does the reverse; a structural-cycle
	// removal can, by deleting a cycle member that happened to be some
	// other interface's sole provider. Alternate the two passes until
	// neither makes further progress.
	for {
		newErrs, cascadePlugins := degradeCardinality(alive, ifaceByID, aliveIface, checkedOnce, root)
		errs = append(errs, newErrs...)
		cascadeCycles = append(cascadeCycles, cascadePlugins...)

		cyclePlugins := detectStructuralCycle(alive)
		if len(cyclePlugins) == 0 {
			break
		}
		structuralCycles = append(structuralCycles, cyclePlugins...)
		for _, id := range cyclePlugins {
			delete(alive, id)
		}
	}

	if len(cascadeCycles) > 0 {
		errs = append(errs, CycleDetected{Plugins: descriptor.SortPluginIDs(dedupePluginIDs(cascadeCycles))})
	}
	if len(structuralCycles) > 0 {
		errs = append(errs, CycleDetected{Plugins: descriptor.SortPluginIDs(dedupePluginIDs(structuralCycles))})
	}

	tree := &PluginTree{
		root:       root,
		interfaces: make(map[descriptor.InterfaceID]descriptor.InterfaceDescriptor),
		plugins:    alive,
		plugged:    make(map[descriptor.InterfaceID][]descriptor.PluginID),
	}
	for id, iface := range ifaceByID {
		if id == root || aliveIface[id] {
			tree.interfaces[id] = iface
		}
	}
	for id, p := range alive {
		if p.HasPlug() {
			tree.plugged[p.Plug.ID] = append(tree.plugged[p.Plug.ID], id)
		}
	}

	return tree, errs
}

// degradeCardinality runs the cardinality-satisfiability fixed point: any
// non-root interface whose plugged-in count stops matching its
// cardinality is marked dead, and any plugin depending on a dead
// interface through one of its sockets is removed, which can itself make
// other interfaces unsatisfied. An interface failing the check for the
// first time (checkedOnce false) is an original misconfiguration,
// reported as UnsatisfiedCardinality; one that only fails after
// previously passing is a cascade side effect of this round's removals,
// attributed to those removed plugins and returned separately so the
// caller can fold them into a single CycleDetected error.
func degradeCardinality(
	alive map[descriptor.PluginID]descriptor.PluginDescriptor,
	ifaceByID map[descriptor.InterfaceID]descriptor.InterfaceDescriptor,
	aliveIface map[descriptor.InterfaceID]bool,
	checkedOnce map[descriptor.InterfaceID]bool,
	root descriptor.InterfaceID,
) ([]BuildError, []descriptor.PluginID) {
	countProvided := func() map[descriptor.InterfaceID]int {
		counts := make(map[descriptor.InterfaceID]int)
		for _, p := range alive {
			if p.HasPlug() {
				counts[p.Plug.ID]++
			}
		}
		return counts
	}

	var errs []BuildError
	var cyclePlugins []descriptor.PluginID

	for {
		var removedThisRound []descriptor.PluginID
		for id, p := range alive {
			for _, s := range p.Sockets {
				if !aliveIface[s.ID] {
					removedThisRound = append(removedThisRound, id)
					break
				}
			}
		}
		for _, id := range removedThisRound {
			delete(alive, id)
		}

		counts := countProvided()
		newlyDead := false
		for id, iface := range ifaceByID {
			if id == root || !aliveIface[id] {
				continue
			}
			if !iface.Cardinality.Satisfied(counts[id]) {
				aliveIface[id] = false
				newlyDead = true
				if checkedOnce[id] {
					cyclePlugins = append(cyclePlugins, removedThisRound...)
				} else {
					errs = append(errs, UnsatisfiedCardinality{
						Interface: id,
						Required:  iface.Cardinality,
						Provided:  counts[id],
					})
				}
			}
			checkedOnce[id] = true
		}

		if len(removedThisRound) == 0 && !newlyDead {
			break
		}
	}

	return errs, cyclePlugins
}

// detectStructuralCycle finds plugins whose sockets depend on each
// other's plug in a loop, independent of whether any interface's
// cardinality is ever violated — a genuine "ExactlyOne plugged by a
// provider whose own socket loops back" is satisfiable at every single
// interface and so invisible to degradeCardinality. It runs Kahn's
// algorithm over the plugin-dependency graph (a plugin depends on every
// plugin currently plugged into one of its sockets); any plugin that
// never reaches zero outstanding dependencies is part of a cycle.
func detectStructuralCycle(alive map[descriptor.PluginID]descriptor.PluginDescriptor) []descriptor.PluginID {
	providersByIface := make(map[descriptor.InterfaceID][]descriptor.PluginID, len(alive))
	for id, p := range alive {
		if p.HasPlug() {
			providersByIface[p.Plug.ID] = append(providersByIface[p.Plug.ID], id)
		}
	}

	deps := make(map[descriptor.PluginID][]descriptor.PluginID, len(alive))
	for id, p := range alive {
		var d []descriptor.PluginID
		for _, s := range p.Sockets {
			d = append(d, providersByIface[s.ID]...)
		}
		deps[id] = d
	}

	done := make(map[descriptor.PluginID]bool, len(deps))
	for len(done) < len(deps) {
		progressed := false
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
				done[id] = true
				progressed = true
			}
		}
		if !progressed {
			var stuck []descriptor.PluginID
			for id := range deps {
				if !done[id] {
					stuck = append(stuck, id)
				}
			}
			return descriptor.SortPluginIDs(stuck)
		}
	}
	return nil
}

func dedupePluginIDs(ids []descriptor.PluginID) []descriptor.PluginID {
	seen := make(map[descriptor.PluginID]bool, len(ids))
	out := make([]descriptor.PluginID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
