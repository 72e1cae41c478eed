package latticefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/sync/errgroup"

	"github.com/pluginlattice/pluginlattice/internal/descriptor"
)

// Load reads the lattice file at path (YAML or JSON, chosen by extension),
// validates it against the bundled schema, and resolves it into the
// descriptor types graph.Build consumes. Each plugin's component_path is
// resolved relative to the lattice file's own directory and read
// concurrently (one errgroup goroutine per plugin, with no limit) since
// those reads are pure I/O, not
// part of the core's single-threaded dispatch path.
func Load(ctx context.Context, path string) (root descriptor.InterfaceID, interfaces []descriptor.InterfaceDescriptor, plugins []descriptor.PluginDescriptor, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("latticefile: read %s: %w", path, err)
	}

	var generic any
	if err := unmarshal(path, raw, &generic); err != nil {
		return "", nil, nil, fmt.Errorf("latticefile: parse %s: %w", path, err)
	}
	if err := ValidateSchema(generic); err != nil {
		return "", nil, nil, err
	}

	var doc Document
	if err := unmarshal(path, raw, &doc); err != nil {
		return "", nil, nil, fmt.Errorf("latticefile: decode %s: %w", path, err)
	}

	ifaceByID := make(map[string]descriptor.InterfaceDescriptor, len(doc.Interfaces))
	for _, id := range doc.Interfaces {
		d, err := toInterfaceDescriptor(id)
		if err != nil {
			return "", nil, nil, err
		}
		ifaceByID[id.ID] = d
		interfaces = append(interfaces, d)
	}

	baseDir := filepath.Dir(path)
	plugins = make([]descriptor.PluginDescriptor, len(doc.Plugins))
	g, gctx := errgroup.WithContext(ctx)
	for i, pd := range doc.Plugins {
		i, pd := i, pd
		g.Go(func() error {
			p, err := toPluginDescriptor(gctx, baseDir, pd, ifaceByID)
			if err != nil {
				return err
			}
			plugins[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, nil, err
	}

	return descriptor.InterfaceID(doc.Root), interfaces, plugins, nil
}

func unmarshal(path string, raw []byte, out any) error {
	if strings.HasSuffix(path, ".json") {
		return json.Unmarshal(raw, out)
	}
	return yaml.Unmarshal(raw, out)
}

func toInterfaceDescriptor(id InterfaceDocument) (descriptor.InterfaceDescriptor, error) {
	version, err := parseVersion(id.Version)
	if err != nil {
		return descriptor.InterfaceDescriptor{}, fmt.Errorf("latticefile: interface %s: %w", id.ID, err)
	}
	fns := make(map[string]descriptor.FunctionDescriptor, len(id.Functions))
	for name, fd := range id.Functions {
		fns[name] = descriptor.FunctionDescriptor{
			Name:          name,
			ReturnKind:    descriptor.ReturnKind(fd.ReturnKind),
			IsMethod:      fd.IsMethod,
			AcceptsBorrow: fd.AcceptsBorrow,
			Unsupported:   fd.Unsupported,
		}
	}
	return descriptor.InterfaceDescriptor{
		ID:                descriptor.InterfaceID(id.ID),
		PackageName:       id.PackageName,
		Version:           version,
		Cardinality:       descriptor.Cardinality(id.Cardinality),
		VersionConstraint: id.VersionConstraint,
		Functions:         fns,
		ResourceNames:     id.ResourceNames,
	}, nil
}

func toPluginDescriptor(
	ctx context.Context,
	baseDir string,
	pd PluginDocument,
	ifaceByID map[string]descriptor.InterfaceDescriptor,
) (descriptor.PluginDescriptor, error) {
	version, err := parseVersion(pd.Version)
	if err != nil {
		return descriptor.PluginDescriptor{}, fmt.Errorf("latticefile: plugin %s: %w", pd.ID, err)
	}

	var plug descriptor.InterfaceDescriptor
	if pd.Plug != "" {
		iface, ok := ifaceByID[pd.Plug]
		if !ok {
			return descriptor.PluginDescriptor{}, fmt.Errorf("latticefile: plugin %s: plug %q is not a declared interface", pd.ID, pd.Plug)
		}
		plug = iface
	}

	sockets := make([]descriptor.InterfaceDescriptor, 0, len(pd.Sockets))
	for _, socketID := range pd.Sockets {
		iface, ok := ifaceByID[socketID]
		if !ok {
			return descriptor.PluginDescriptor{}, fmt.Errorf("latticefile: plugin %s: socket %q is not a declared interface", pd.ID, socketID)
		}
		sockets = append(sockets, iface)
	}

	componentPath, err := resolveComponentPath(baseDir, pd.ComponentPath)
	if err != nil {
		return descriptor.PluginDescriptor{}, fmt.Errorf("latticefile: plugin %s: %w", pd.ID, err)
	}

	// The wasm bytes are read once, eagerly, here — not lazily inside
	// Factory — so the concurrent errgroup fan-out above is what pays the
	// I/O cost; Factory just hands back the already-read bytes.
	raw, err := os.ReadFile(componentPath)
	if err != nil {
		return descriptor.PluginDescriptor{}, fmt.Errorf("latticefile: plugin %s: read component: %w", pd.ID, err)
	}

	return descriptor.PluginDescriptor{
		ID:          descriptor.PluginID(pd.ID),
		Version:     version,
		Plug:        plug,
		Sockets:     sockets,
		Permissions: pd.Permissions,
		Factory: func(context.Context) (any, error) {
			return raw, nil
		},
	}, nil
}

// resolveComponentPath joins baseDir and rel, rejecting any result that
// escapes baseDir — component_path comes from a lattice file a host may
// not fully trust, the same path-traversal concern the teacher's profile
// loader guards against with os.OpenRoot.
func resolveComponentPath(baseDir, rel string) (string, error) {
	joined := filepath.Join(baseDir, rel)
	relToBase, err := filepath.Rel(filepath.Clean(baseDir), joined)
	if err != nil || relToBase == ".." || strings.HasPrefix(relToBase, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("component_path %q escapes lattice file directory", rel)
	}
	return joined, nil
}

func parseVersion(s string) (descriptor.Version, error) {
	if s == "" {
		return descriptor.Version{}, nil
	}
	return descriptor.ParseVersion(s)
}
