// Package latticefile is the host binding's toy discovery collaborator:
// it decodes a single on-disk "lattice file" (JSON or YAML) into the
// core's descriptor types and resolves each plugin's component_path to
// compiled wasm bytes. It is explicitly not a manifest/WIT parser — per
// the core's scope, real discovery from disk is a host concern the core
// never implements — this is just enough to drive cmd/pluginlattice.
package latticefile

// Document is the decoded shape of a lattice file.
type Document struct {
	Root       string              `json:"root" yaml:"root"`
	Interfaces []InterfaceDocument `json:"interfaces" yaml:"interfaces"`
	Plugins    []PluginDocument    `json:"plugins" yaml:"plugins"`
}

// InterfaceDocument is one entry of Document.Interfaces.
type InterfaceDocument struct {
	ID                string                       `json:"id" yaml:"id"`
	PackageName       string                       `json:"package_name" yaml:"package_name"`
	Version           string                       `json:"version" yaml:"version"`
	Cardinality       string                       `json:"cardinality" yaml:"cardinality"`
	VersionConstraint string                       `json:"version_constraint,omitempty" yaml:"version_constraint,omitempty"`
	ResourceNames     []string                    `json:"resource_names,omitempty" yaml:"resource_names,omitempty"`
	Functions         map[string]FunctionDocument `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// FunctionDocument is one entry of InterfaceDocument.Functions.
type FunctionDocument struct {
	ReturnKind    string `json:"return_kind" yaml:"return_kind"`
	IsMethod      bool   `json:"is_method,omitempty" yaml:"is_method,omitempty"`
	AcceptsBorrow bool   `json:"accepts_borrow,omitempty" yaml:"accepts_borrow,omitempty"`
	Unsupported   bool   `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`
}

// PluginDocument is one entry of Document.Plugins.
type PluginDocument struct {
	ID            string         `json:"id" yaml:"id"`
	Version       string         `json:"version" yaml:"version"`
	Plug          string         `json:"plug,omitempty" yaml:"plug,omitempty"`
	Sockets       []string       `json:"sockets,omitempty" yaml:"sockets,omitempty"`
	Permissions   map[string]any `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	ComponentPath string         `json:"component_path" yaml:"component_path"`
}
