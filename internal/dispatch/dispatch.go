package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	"github.com/pluginlattice/pluginlattice/internal/loader"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/internal/shim"
	"github.com/pluginlattice/pluginlattice/internal/socket"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

// CallResult is one target plugin's outcome from a dispatched call.
type CallResult struct {
	PluginID descriptor.PluginID
	Value    wireformat.Val
	Err      DispatchError
}

// Envelope is the cardinality-shaped result of a dispatched call: the
// root interface's declared cardinality plus the ordered per-plugin
// results, in the same deterministic sorted-by-plugin-id order the
// shim's fan-out uses.
type Envelope struct {
	Cardinality descriptor.Cardinality
	Results     []CallResult
}

// Dispatcher drives calls against a loaded tree's root interface. It is
// single-threaded: Dispatch must not be called concurrently on the same
// Dispatcher, matching the "exclusively within the single host thread"
// invariant the whole core maintains.
type Dispatcher struct {
	head *loader.Head
}

// New creates a Dispatcher over a loaded tree.
func New(head *loader.Head) *Dispatcher {
	return &Dispatcher{head: head}
}

// Dispatch resolves the root socket's interface, looks up functionName,
// and fans the call out to every plugin plugged into the root, folding
// results into the interface's cardinality shape. Any resource own
// handles the results carry are moved into a host-side table local to
// this call and released from it before Dispatch returns, so the handle
// numbers in the returned Envelope no longer refer to a live table entry;
// the Envelope does not keep those resources alive.
func (d *Dispatcher) Dispatch(ctx context.Context, packageName, functionName string, args []wireformat.Val) Envelope {
	iface, ok := d.head.Interface(d.head.Root())
	if !ok {
		return Envelope{Results: []CallResult{{Err: UnknownFunction{Package: packageName, Function: functionName}}}}
	}
	fn, ok := iface.Function(functionName)
	if !ok {
		return Envelope{
			Cardinality: iface.Cardinality,
			Results:     []CallResult{{Err: UnknownFunction{Package: packageName, Function: functionName}}},
		}
	}

	targets := d.head.Targets(d.head.Root())
	if len(targets) == 0 {
		switch iface.Cardinality {
		case descriptor.ExactlyOne, descriptor.AtLeastOne:
			return Envelope{
				Cardinality: iface.Cardinality,
				Results:     []CallResult{{Err: SocketUnsatisfied{Interface: d.head.Root()}}},
			}
		default:
			return Envelope{Cardinality: iface.Cardinality}
		}
	}

	hostTable := resource.NewTable(d.head.RepCounter())
	shimResults := shim.Invoke(ctx, packageName, fn, hostTable, args, targets)

	results := make([]CallResult, 0, len(shimResults))
	var ownedHandles []uint32
	for _, r := range shimResults {
		cr := CallResult{PluginID: r.PluginID}
		if r.Err != nil {
			cr.Err = toDispatchError(r.PluginID, r.Err)
		} else {
			cr.Value = r.Value
			wireformat.Walk(r.Value, func(v wireformat.Val) wireformat.Val {
				if v.Kind == wireformat.KindOwn {
					ownedHandles = append(ownedHandles, v.Handle)
				}
				return v
			})
		}
		results = append(results, cr)
	}
	defer hostTable.ReleaseScope(ownedHandles)

	return Envelope{Cardinality: iface.Cardinality, Results: results}
}

// One interprets the envelope as an ExactlyOne socket's container,
// reporting false if it does not hold exactly one result.
func (e Envelope) One() (socket.Bound[CallResult], bool) {
	if len(e.Results) != 1 {
		return socket.Bound[CallResult]{}, false
	}
	return socket.Bound[CallResult]{PluginID: e.Results[0].PluginID, Value: e.Results[0]}, true
}

// AsOption interprets the envelope as an AtMostOne socket's container.
func (e Envelope) AsOption() socket.Option[CallResult] {
	if len(e.Results) == 0 {
		return socket.None[CallResult]()
	}
	return socket.Some(e.Results[0].PluginID, e.Results[0])
}

// AsSeq interprets the envelope as an AtLeastOne/Any socket's container.
func (e Envelope) AsSeq() socket.Seq[CallResult] {
	items := make([]socket.Bound[CallResult], len(e.Results))
	for i, r := range e.Results {
		items[i] = socket.Bound[CallResult]{PluginID: r.PluginID, Value: r}
	}
	return socket.Seq[CallResult]{Items: items}
}

func toDispatchError(plugin descriptor.PluginID, err error) DispatchError {
	detail, ok := err.(*wireformat.ErrorDetail)
	if !ok {
		return Trap{Plugin: plugin, Detail: err.Error(), CorrelationID: uuid.New()}
	}
	switch detail.Type {
	case "socket_unsatisfied":
		return SocketUnsatisfied{}
	case "unsupported_type":
		return UnsupportedType{Plugin: plugin}
	case "resource":
		return ResourceTranslation{Plugin: plugin, Detail: detail.Message}
	default:
		return Trap{Plugin: plugin, Detail: detail.Message, CorrelationID: uuid.New()}
	}
}
