package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	"github.com/pluginlattice/pluginlattice/internal/dispatch"
	"github.com/pluginlattice/pluginlattice/internal/enginetest"
	"github.com/pluginlattice/pluginlattice/internal/graph"
	"github.com/pluginlattice/pluginlattice/internal/loader"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

func u32Fn(v uint32) enginetest.ExportFunc {
	return func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
		return wireformat.U32(v), nil
	}
}

func firstOK(env wireformat.Val) wireformat.Val {
	return *env.List[0].Tuple[1].OK
}

func Test_Dispatch_SingleRootPlugin_PrimitiveReturn(t *testing.T) {
	eng := enginetest.New()
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "fuel",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"burn": {Name: "burn", ReturnKind: descriptor.NoResources}},
	}
	foo := descriptor.PluginDescriptor{
		ID:   "foo",
		Plug: root,
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("foo", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("fuel", "burn"): u32Fn(42),
				},
			}), nil
		},
	}

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root}, []descriptor.PluginDescriptor{foo})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)

	env := dispatch.New(head).Dispatch(context.Background(), "fuel", "burn", nil)

	require.Equal(t, descriptor.ExactlyOne, env.Cardinality)
	require.Len(t, env.Results, 1)
	assert.Equal(t, descriptor.PluginID("foo"), env.Results[0].PluginID)
	assert.Equal(t, wireformat.U32(42), env.Results[0].Value)
}

func Test_Dispatch_DependentPluginPassesPrimitiveUp(t *testing.T) {
	eng := enginetest.New()

	child := descriptor.InterfaceDescriptor{
		ID:          "child-iface",
		PackageName: "child",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"get-value": {Name: "get-value", ReturnKind: descriptor.NoResources}},
	}
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "rootpkg",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"get": {Name: "get", ReturnKind: descriptor.NoResources}},
	}

	childPlugin := descriptor.PluginDescriptor{
		ID:   "child",
		Plug: child,
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("child", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("child", "get-value"): u32Fn(42),
				},
			}), nil
		},
	}
	rootPlugin := descriptor.PluginDescriptor{
		ID:      "root-plugin",
		Plug:    root,
		Sockets: []descriptor.InterfaceDescriptor{child},
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("root-plugin", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("rootpkg", "get"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						env, err := imports.Call(ctx, "child", "get-value", nil)
						if err != nil {
							return wireformat.Val{}, err
						}
						return firstOK(env), nil
					},
				},
			}), nil
		},
	}

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root, child}, []descriptor.PluginDescriptor{childPlugin, rootPlugin})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)

	env := dispatch.New(head).Dispatch(context.Background(), "rootpkg", "get", nil)

	require.Len(t, env.Results, 1)
	assert.Equal(t, wireformat.U32(42), env.Results[0].Value)
}

// Test_Dispatch_MultipleSockets_FanInSummed exercises scenario 3: a root
// plugin imports three independent dependencies, one per socket
// interface, and sums their returned values.
func Test_Dispatch_MultipleSockets_FanInSummed(t *testing.T) {
	eng := enginetest.New()

	depIface := func(id string) descriptor.InterfaceDescriptor {
		return descriptor.InterfaceDescriptor{
			ID:          descriptor.InterfaceID(id),
			PackageName: id,
			Cardinality: descriptor.ExactlyOne,
			Functions:   map[string]descriptor.FunctionDescriptor{"value": {Name: "value", ReturnKind: descriptor.NoResources}},
		}
	}
	dep1, dep2, dep3 := depIface("dep1"), depIface("dep2"), depIface("dep3")

	depPlugin := func(iface descriptor.InterfaceDescriptor, v uint32) descriptor.PluginDescriptor {
		id := string(iface.ID) + "-impl"
		return descriptor.PluginDescriptor{
			ID:   descriptor.PluginID(id),
			Plug: iface,
			Factory: func(ctx context.Context) (any, error) {
				return eng.Register(id, &enginetest.Program{
					Exports: map[string]enginetest.ExportFunc{enginetest.ExportName(string(iface.ID), "value"): u32Fn(v)},
				}), nil
			},
		}
	}

	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "rootpkg",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"sum": {Name: "sum", ReturnKind: descriptor.NoResources}},
	}
	rootPlugin := descriptor.PluginDescriptor{
		ID:      "root-plugin",
		Plug:    root,
		Sockets: []descriptor.InterfaceDescriptor{dep1, dep2, dep3},
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("root-plugin", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("rootpkg", "sum"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						total := uint32(0)
						for _, dep := range []string{"dep1", "dep2", "dep3"} {
							env, err := imports.Call(ctx, dep, "value", nil)
							if err != nil {
								return wireformat.Val{}, err
							}
							total += uint32(firstOK(env).UintVal)
						}
						return wireformat.U32(total), nil
					},
				},
			}), nil
		},
	}

	interfaces := []descriptor.InterfaceDescriptor{root, dep1, dep2, dep3}
	plugins := []descriptor.PluginDescriptor{depPlugin(dep1, 1), depPlugin(dep2, 2), depPlugin(dep3, 3), rootPlugin}
	tree, buildErrs := graph.Build("root", interfaces, plugins)
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)

	env := dispatch.New(head).Dispatch(context.Background(), "rootpkg", "sum", nil)

	require.Len(t, env.Results, 1)
	require.Nil(t, env.Results[0].Err)
	assert.Equal(t, wireformat.U32(6), env.Results[0].Value)
}

func Test_Dispatch_PartialFailure_AtLeastOneWithOneBadInstance(t *testing.T) {
	eng := enginetest.New()
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "checks",
		Cardinality: descriptor.AtLeastOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"run": {Name: "run", ReturnKind: descriptor.NoResources}},
	}

	good := func(id string, v uint32) descriptor.PluginDescriptor {
		return descriptor.PluginDescriptor{
			ID:   descriptor.PluginID(id),
			Plug: root,
			Factory: func(ctx context.Context) (any, error) {
				return eng.Register(id, &enginetest.Program{
					Exports: map[string]enginetest.ExportFunc{enginetest.ExportName("checks", "run"): u32Fn(v)},
				}), nil
			},
		}
	}
	broken := descriptor.PluginDescriptor{
		ID:   "b",
		Plug: root,
		Factory: func(ctx context.Context) (any, error) {
			// Registers a program missing the expected export, so
			// instantiation's shape check (simulated: GetExport miss
			// inside shim.invokeOne) surfaces as a trap instead of a
			// hard instantiation failure in this fake engine.
			return eng.Register("b", &enginetest.Program{Exports: map[string]enginetest.ExportFunc{}}), nil
		},
	}

	plugins := []descriptor.PluginDescriptor{good("a", 1), broken, good("c", 3)}
	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root}, plugins)
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)

	env := dispatch.New(head).Dispatch(context.Background(), "checks", "run", nil)

	require.Len(t, env.Results, 3)
	okCount := 0
	for _, r := range env.Results {
		if r.Err == nil {
			okCount++
		}
	}
	assert.Equal(t, 2, okCount)
}

// Test_Dispatch_DiamondTopology_LeafInstantiatedOnce exercises scenario 4
// from the testable-properties list: two plugins both import one shared
// leaf; the leaf must be instantiated exactly once and shared by both.
func Test_Dispatch_DiamondTopology_LeafInstantiatedOnce(t *testing.T) {
	eng := enginetest.New()
	instantiations := 0

	leaf := descriptor.InterfaceDescriptor{
		ID:          "leaf",
		PackageName: "leaf",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"value": {Name: "value", ReturnKind: descriptor.NoResources}},
	}
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "rootpkg",
		Cardinality: descriptor.Any,
		Functions:   map[string]descriptor.FunctionDescriptor{"sum": {Name: "sum", ReturnKind: descriptor.NoResources}},
	}

	leafPlugin := descriptor.PluginDescriptor{
		ID:   "leaf-impl",
		Plug: leaf,
		Factory: func(ctx context.Context) (any, error) {
			instantiations++
			return eng.Register("leaf-impl", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("leaf", "value"): u32Fn(10),
				},
			}), nil
		},
	}
	sumVia := func(id string) descriptor.PluginDescriptor {
		return descriptor.PluginDescriptor{
			ID:      descriptor.PluginID(id),
			Plug:    root,
			Sockets: []descriptor.InterfaceDescriptor{leaf},
			Factory: func(ctx context.Context) (any, error) {
				return eng.Register(id, &enginetest.Program{
					Exports: map[string]enginetest.ExportFunc{
						enginetest.ExportName("rootpkg", "sum"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
							env, err := imports.Call(ctx, "leaf", "value", nil)
							if err != nil {
								return wireformat.Val{}, err
							}
							return firstOK(env), nil
						},
					},
				}), nil
			},
		}
	}

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root, leaf}, []descriptor.PluginDescriptor{leafPlugin, sumVia("a"), sumVia("b")})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)
	assert.Equal(t, 1, instantiations, "leaf factory must run exactly once regardless of how many plugins import it")

	env := dispatch.New(head).Dispatch(context.Background(), "rootpkg", "sum", nil)

	require.Len(t, env.Results, 2)
	for _, r := range env.Results {
		require.Nil(t, r.Err)
		assert.Equal(t, wireformat.U32(10), r.Value)
	}
}

// Test_Dispatch_ResourceHandleAcrossPlugins exercises scenario 5: a
// consumer plugin constructs a resource owned by a producer plugin, then
// calls a method on it via a borrowed handle.
func Test_Dispatch_ResourceHandleAcrossPlugins(t *testing.T) {
	eng := enginetest.New()

	counter := descriptor.InterfaceDescriptor{
		ID:            "counter-iface",
		PackageName:   "counter",
		Cardinality:   descriptor.ExactlyOne,
		ResourceNames: []string{"counter"},
		Functions: map[string]descriptor.FunctionDescriptor{
			"make-counter": {Name: "make-counter", ReturnKind: descriptor.MayContainResources},
			"get-value":    {Name: "get-value", ReturnKind: descriptor.NoResources, IsMethod: true, AcceptsBorrow: true},
		},
	}
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "consumerpkg",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"run": {Name: "run", ReturnKind: descriptor.NoResources}},
	}

	var producerHandle uint32
	producer := descriptor.PluginDescriptor{
		ID:   "producer",
		Plug: counter,
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("producer", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("counter", "make-counter"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						handle, _ := imports.Resources().NewOwn("counter")
						return wireformat.Own("counter", handle), nil
					},
					enginetest.ExportName("counter", "get-value"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						require.Len(t, args, 1)
						producerHandle = args[0].Handle
						return wireformat.U32(42), nil
					},
				},
			}), nil
		},
	}
	consumer := descriptor.PluginDescriptor{
		ID:      "consumer",
		Plug:    root,
		Sockets: []descriptor.InterfaceDescriptor{counter},
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("consumer", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("consumerpkg", "run"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						madeEnv, err := imports.Call(ctx, "counter", "make-counter", nil)
						if err != nil {
							return wireformat.Val{}, err
						}
						handle := firstOK(madeEnv)
						valEnv, err := imports.Call(ctx, "counter", "get-value", []wireformat.Val{wireformat.Borrow("counter", handle.Handle)})
						if err != nil {
							return wireformat.Val{}, err
						}
						return firstOK(valEnv), nil
					},
				},
			}), nil
		},
	}

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root, counter}, []descriptor.PluginDescriptor{producer, consumer})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Empty(t, loadErrs)

	env := dispatch.New(head).Dispatch(context.Background(), "consumerpkg", "run", nil)

	require.Len(t, env.Results, 1)
	require.Nil(t, env.Results[0].Err)
	assert.Equal(t, wireformat.U32(42), env.Results[0].Value)
	assert.NotZero(t, producerHandle, "consumer's borrow must reach the producer's get-value as a translated handle")
}
