// Package socket holds the generic containers a socket resolves to once
// the graph is built: one value, an optional value, or a sequence of
// values, each tagged with the id of the plugin that provided it so
// diagnostics and dispatch results can attribute a value to its source.
package socket

import "github.com/pluginlattice/pluginlattice/internal/descriptor"

// Bound pairs a value with the plugin id that produced it.
type Bound[T any] struct {
	PluginID descriptor.PluginID
	Value    T
}

// One is the container for an ExactlyOne socket: exactly one bound value.
type One[T any] struct {
	Bound[T]
}

// Option is the container for an AtMostOne socket: zero or one bound
// value. Present reports which.
type Option[T any] struct {
	Bound[T]
	Present bool
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Some returns a present Option wrapping v.
func Some[T any](id descriptor.PluginID, v T) Option[T] {
	return Option[T]{Bound: Bound[T]{PluginID: id, Value: v}, Present: true}
}

// Seq is the container for AtLeastOne and Any sockets: zero or more bound
// values, in the deterministic plugin-id order the graph builder assigns.
type Seq[T any] struct {
	Items []Bound[T]
}

// Values extracts just the values, discarding provenance, in order.
func (s Seq[T]) Values() []T {
	out := make([]T, len(s.Items))
	for i, b := range s.Items {
		out[i] = b.Value
	}
	return out
}

// Len reports the number of bound values.
func (s Seq[T]) Len() int {
	return len(s.Items)
}
