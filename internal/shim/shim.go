// Package shim synthesizes the host functions a plugin imports for each
// socket interface it declares: one host function per exported function
// of the interface, fanning out to every plugin bound to that socket and
// folding per-target results into the caller-observed cardinality shape.
package shim

import (
	"context"
	"fmt"

	pluginengine "github.com/pluginlattice/pluginlattice/internal/engine"
	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	"github.com/pluginlattice/pluginlattice/internal/resource"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

// Target is one plugin bound to a socket: the instantiated component the
// shim dispatches into, and the store whose resource table owns its
// handles.
type Target struct {
	ID       descriptor.PluginID
	Instance pluginengine.Instance
	Store    pluginengine.Store
}

// UnsupportedTypeError reports that a function's signature mentions a
// future, stream, or error-context type, which shim synthesis refuses to
// lower. The loader wraps this into LoadError.UnsupportedType.
type UnsupportedTypeError struct {
	Interface descriptor.InterfaceID
	Function  string
}

func (e UnsupportedTypeError) Error() string {
	return fmt.Sprintf("shim: %s.%s has an unsupported signature (future/stream/error-context)", e.Interface, e.Function)
}

// Result is one target's outcome from a fanned-out call: either a
// successfully returned value or a DispatchError-shaped failure. It is
// kept wire-agnostic so both the guest-facing HostFunc built by Register
// and the dispatcher's Go-side aggregation can consume the same fan-out.
type Result struct {
	PluginID descriptor.PluginID
	Value    wireformat.Val
	Err      error
}

// Validate runs the type-support gate for every function of iface,
// returning one UnsupportedTypeError per offending function.
func Validate(iface descriptor.InterfaceDescriptor) []error {
	var errs []error
	for name, fn := range iface.Functions {
		if fn.Unsupported {
			errs = append(errs, UnsupportedTypeError{Interface: iface.ID, Function: name})
		}
	}
	return errs
}

// Invoke fans a single call out across targets, translating borrow
// arguments into each target's resource table, invoking the function,
// and translating any own handles the return value carries back into
// callerTable. It is the shared core behind both the guest-importable
// HostFunc (Register) and the dispatcher's top-level call.
func Invoke(
	ctx context.Context,
	packageName string,
	fn descriptor.FunctionDescriptor,
	callerTable *resource.Table,
	args []wireformat.Val,
	targets []Target,
) []Result {
	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		results = append(results, invokeOne(ctx, packageName, fn, callerTable, args, t))
	}
	return results
}

func invokeOne(
	ctx context.Context,
	packageName string,
	fn descriptor.FunctionDescriptor,
	callerTable *resource.Table,
	args []wireformat.Val,
	t Target,
) Result {
	targetTable := t.Store.Resources()

	lowered := make([]wireformat.Val, len(args))
	var borrowedHandles []uint32
	var translationErr *wireformat.ErrorDetail
	for i, a := range args {
		lowered[i] = wireformat.Walk(a, func(v wireformat.Val) wireformat.Val {
			if v.Kind != wireformat.KindBorrow {
				return v
			}
			rep, ok := callerTable.Rep(v.Handle)
			if !ok {
				if translationErr == nil {
					translationErr = &wireformat.ErrorDetail{
						Type:    "resource",
						Message: fmt.Sprintf("borrow handle %d not found in caller's resource table", v.Handle),
					}
				}
				return v
			}
			newHandle := targetTable.NewBorrow(v.ResourceName, rep)
			borrowedHandles = append(borrowedHandles, newHandle)
			return wireformat.Borrow(v.ResourceName, newHandle)
		})
	}
	defer targetTable.ReleaseScope(borrowedHandles)

	if translationErr != nil {
		return Result{PluginID: t.ID, Err: translationErr}
	}

	f, ok := t.Instance.GetExport(packageName, fn.Name)
	if !ok {
		return Result{PluginID: t.ID, Err: &wireformat.ErrorDetail{
			Type:    "trap",
			Message: fmt.Sprintf("plugin %s does not export %s.%s", t.ID, packageName, fn.Name),
		}}
	}

	retVal, callErr := f.Call(ctx, lowered)
	if callErr != nil {
		return Result{PluginID: t.ID, Err: &wireformat.ErrorDetail{Type: "trap", Message: callErr.Error()}}
	}

	if fn.ReturnKind == descriptor.MayContainResources {
		var returnErr *wireformat.ErrorDetail
		retVal = wireformat.Walk(retVal, func(v wireformat.Val) wireformat.Val {
			if v.Kind != wireformat.KindOwn {
				return v
			}
			if _, ok := targetTable.Rep(v.Handle); !ok {
				if returnErr == nil {
					returnErr = &wireformat.ErrorDetail{
						Type:    "resource",
						Message: fmt.Sprintf("own handle %d not found in plugin %s's resource table", v.Handle, t.ID),
					}
				}
				return v
			}
			newHandle := targetTable.TransferOwn(callerTable, v.Handle)
			return wireformat.Own(v.ResourceName, newHandle)
		})
		if returnErr != nil {
			return Result{PluginID: t.ID, Err: returnErr}
		}
	}

	return Result{PluginID: t.ID, Value: retVal}
}
