package descriptor

import "context"

// PluginDescriptor is everything the graph builder and loader need to know
// about a plugin before it is instantiated: its identity, the one
// interface it plugs into the graph, the (possibly empty) sockets it needs
// filled, and the opaque permission grant it is loaded with.
type PluginDescriptor struct {
	// ID opaquely identifies the plugin.
	ID PluginID
	// Version is the plugin's own release version, independent of any
	// interface version it implements.
	Version Version
	// Plug is the interface this plugin provides to the rest of the
	// graph. A plugin with no Plug (zero value ID) is not plugged into any
	// interface, so neither a socket nor a root dispatch ever targets it.
	Plug InterfaceDescriptor
	// Sockets are the interfaces this plugin needs satisfied by other
	// plugins, in declaration order; that order is preserved through
	// binding so diagnostics can refer to "the plugin's second socket".
	Sockets []InterfaceDescriptor
	// Permissions is opaque to the graph, loader, and dispatcher; it is
	// threaded through to the concrete Engine's instantiation step, which
	// interprets it however the host binding's capability model requires.
	Permissions any
	// Factory produces the instantiable artifact (e.g. compiled module
	// bytes, or a pre-compiled Engine-specific handle) for this plugin.
	// It is a func(context.Context) (any, error) rather than a named
	// interface type so descriptor stays free of an Engine dependency;
	// the loader asserts the concrete type it expects.
	Factory func(context.Context) (any, error)
}

// SocketByInterfaceID finds the socket descriptor matching id, if any.
func (p PluginDescriptor) SocketByInterfaceID(id InterfaceID) (InterfaceDescriptor, bool) {
	for _, s := range p.Sockets {
		if s.ID == id {
			return s, true
		}
	}
	return InterfaceDescriptor{}, false
}

// HasPlug reports whether the plugin provides a plug interface.
func (p PluginDescriptor) HasPlug() bool {
	return p.Plug.ID != ""
}
