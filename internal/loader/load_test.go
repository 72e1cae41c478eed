package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
	"github.com/pluginlattice/pluginlattice/internal/enginetest"
	"github.com/pluginlattice/pluginlattice/internal/graph"
	"github.com/pluginlattice/pluginlattice/internal/loader"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

func badFactory(id string) descriptor.PluginDescriptor {
	return descriptor.PluginDescriptor{
		ID: descriptor.PluginID(id),
		Factory: func(ctx context.Context) (any, error) {
			return nil, assertErr{}
		},
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "factory refused to build a component" }

func Test_Load_ComponentBuildFailure_RecordedAndSkipped(t *testing.T) {
	eng := enginetest.New()
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "checks",
		Cardinality: descriptor.AtLeastOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"run": {Name: "run", ReturnKind: descriptor.NoResources}},
	}
	good := descriptor.PluginDescriptor{
		ID:   "good",
		Plug: root,
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("good", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("checks", "run"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						return wireformat.U32(1), nil
					},
				},
			}), nil
		},
	}
	bad := badFactory("bad")
	bad.Plug = root

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root}, []descriptor.PluginDescriptor{good, bad})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, fatal)
	require.Len(t, loadErrs, 1)
	assert.IsType(t, loader.ComponentBuild{}, loadErrs[0])

	require.Len(t, head.Targets("root"), 1)
	assert.Equal(t, descriptor.PluginID("good"), head.Targets("root")[0].ID)
}

func Test_Load_DependencyComponentBuildFailure_PostLoadCascadeDropsDependent(t *testing.T) {
	eng := enginetest.New()

	leaf := descriptor.InterfaceDescriptor{
		ID:          "leaf",
		PackageName: "leafpkg",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"value": {Name: "value", ReturnKind: descriptor.NoResources}},
	}
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "rootpkg",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"get": {Name: "get", ReturnKind: descriptor.NoResources}},
	}

	// The leaf's factory fails outright (the fake engine never rejects a
	// program at Instantiate time), so the dependent plugin's socket
	// collapses to zero providers after load.
	leafPlugin := badFactory("leaf-impl")
	leafPlugin.Plug = leaf

	rootPlugin := descriptor.PluginDescriptor{
		ID:      "root-plugin",
		Plug:    root,
		Sockets: []descriptor.InterfaceDescriptor{leaf},
		Factory: func(ctx context.Context) (any, error) {
			return eng.Register("root-plugin", &enginetest.Program{
				Exports: map[string]enginetest.ExportFunc{
					enginetest.ExportName("rootpkg", "get"): func(ctx context.Context, args []wireformat.Val, imports enginetest.Imports) (wireformat.Val, error) {
						return wireformat.U32(0), nil
					},
				},
			}), nil
		},
	}

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root, leaf}, []descriptor.PluginDescriptor{leafPlugin, rootPlugin})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.NotNil(t, fatal, "root's only provider depends on the failed leaf, so root itself collapses")
	assert.Nil(t, head)

	foundComponentBuild := false
	foundPostLoad := false
	for _, e := range loadErrs {
		if _, ok := e.(loader.ComponentBuild); ok {
			foundComponentBuild = true
		}
		if _, ok := e.(loader.SocketUnsatisfiedPostLoad); ok {
			foundPostLoad = true
		}
	}
	assert.True(t, foundComponentBuild, "leaf's factory failure must be recorded")
	assert.True(t, foundPostLoad, "root-plugin's now-unsatisfied leaf socket must be recorded")
}

func Test_Load_RootUnsatisfied_FatalNoPartialHead(t *testing.T) {
	eng := enginetest.New()
	root := descriptor.InterfaceDescriptor{
		ID:          "root",
		PackageName: "checks",
		Cardinality: descriptor.ExactlyOne,
		Functions:   map[string]descriptor.FunctionDescriptor{"run": {Name: "run", ReturnKind: descriptor.NoResources}},
	}
	bad := badFactory("bad")
	bad.Plug = root

	tree, buildErrs := graph.Build("root", []descriptor.InterfaceDescriptor{root}, []descriptor.PluginDescriptor{bad})
	require.Empty(t, buildErrs)

	head, loadErrs, fatal := loader.Load(context.Background(), tree, eng)
	require.Nil(t, head)
	require.NotEmpty(t, loadErrs)
	require.NotNil(t, fatal)
	assert.Equal(t, descriptor.InterfaceID("root"), fatal.Root)
}
