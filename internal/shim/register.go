package shim

import (
	"context"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

// Register installs one host function per exported function of iface on
// linker, each fanning out to targets and returning the caller-observed
// cardinality envelope. callerTable is the importing plugin's resource
// table, used to translate borrow arguments out and own returns back in.
//
// Per the edge cases in shim synthesis: an empty targets with an
// AtMostOne/Any socket returns an empty envelope without invoking
// anything; an empty targets with ExactlyOne/AtLeastOne instead yields a
// single SocketUnsatisfied result, so the guest always observes a
// uniformly shaped envelope.
func Register(
	linker pluginengine.Linker,
	callerTable *resource.Table,
	iface descriptor.InterfaceDescriptor,
	targets []Target,
) {
	for name, fn := range iface.Functions {
		fn := fn
		linker.DefineHostFunc(iface.PackageName, name, func(ctx context.Context, args []wireformat.Val) (wireformat.Val, error) {
			results := fanOut(ctx, iface.PackageName, fn, iface.Cardinality, callerTable, args, targets)
			return EncodeEnvelope(results), nil
		})
	}
}

// fanOut runs Invoke across targets, substituting the SocketUnsatisfied
// edge case when targets is empty and the cardinality demands at least
// one result.
func fanOut(
	ctx context.Context,
	packageName string,
	fn descriptor.FunctionDescriptor,
	cardinality descriptor.Cardinality,
	callerTable *resource.Table,
	args []wireformat.Val,
	targets []Target,
) []Result {
	if len(targets) == 0 {
		switch cardinality {
		case descriptor.ExactlyOne, descriptor.AtLeastOne:
			return []Result{{Err: &wireformat.ErrorDetail{Type: "socket_unsatisfied", Message: "no plugin bound to this socket"}}}
		default:
			return nil
		}
	}
	return Invoke(ctx, packageName, fn, callerTable, args, targets)
}

// EncodeEnvelope wire-encodes a fan-out result set as a list of
// (plugin_id, result) tuples: the result arm is a KindResult Val whose OK
// holds the return value or whose Err holds the error's message as a
// string Val. Every cardinality shape is carried as this same
// list; the caller already knows its declared cardinality and interprets
// length accordingly (0 => none/empty, 1 => the One/Option value, N =>
// the sequence).
func EncodeEnvelope(results []Result) wireformat.Val {
	items := make([]wireformat.Val, 0, len(results))
	for _, r := range results {
		items = append(items, encodeResult(r))
	}
	return wireformat.List(items...)
}

func encodeResult(r Result) wireformat.Val {
	tag := wireformat.String(string(r.PluginID))
	if r.Err != nil {
		errVal := wireformat.String(r.Err.Error())
		return wireformat.Tuple(tag, wireformat.Val{Kind: wireformat.KindResult, Err: &errVal})
	}
	ok := r.Value
	return wireformat.Tuple(tag, wireformat.Val{Kind: wireformat.KindResult, OK: &ok})
}
