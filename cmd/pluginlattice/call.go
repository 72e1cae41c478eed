package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pluginlattice/pluginlattice/internal/dispatch"
	"github.com/pluginlattice/pluginlattice/internal/graph"
	"github.com/pluginlattice/pluginlattice/internal/latticefile"
	"github.com/pluginlattice/pluginlattice/internal/loader"
	"github.com/pluginlattice/pluginlattice/internal/wazeroengine"
	"github.com/pluginlattice/pluginlattice/wireformat"
)

type callOptions struct {
	argsJSON string
}

func init() {
	rootCmd.AddCommand(newCallCmd())
}

func newCallCmd() *cobra.Command {
	opts := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call <lattice-file> <package> <function>",
		Short: "Build, load, and dispatch a single function call against a lattice file",
		Long: `Read a lattice file (JSON or YAML), assemble its plugins into a
cardinality-bound dependency graph, instantiate every plugin, and dispatch
one call to <function> on the package the lattice file's root interface
exports, printing the resulting cardinality envelope as JSON.`,
		Example: `  # Call burn() on the root interface with no arguments
  pluginlattice call lattice.yaml fuel burn

  # Call get(name: string) with one string argument
  pluginlattice call lattice.yaml rootpkg get --args '[{"kind":"string","string_val":"widget"}]'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), args[0], args[1], args[2], opts)
		},
	}

	cmd.Flags().StringVar(&opts.argsJSON, "args", "[]", `call arguments as a JSON array of wireformat Vals, e.g. '[{"kind":"u32","uint_val":3}]'`)
	return cmd
}

func runCall(ctx context.Context, latticePath, packageName, functionName string, opts *callOptions) error {
	var args []wireformat.Val
	if err := json.Unmarshal([]byte(opts.argsJSON), &args); err != nil {
		return fmt.Errorf("--args: invalid JSON: %w", err)
	}

	rootID, interfaces, plugins, err := latticefile.Load(ctx, latticePath)
	if err != nil {
		return err
	}

	tree, buildErrs := graph.Build(rootID, interfaces, plugins)
	for _, e := range buildErrs {
		slog.Warn("plugin dropped during build", "error", e)
	}

	eng, err := wazeroengine.New(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer func() { _ = eng.Close(ctx) }()

	head, loadErrs, fatal := loader.Load(ctx, tree, eng)
	for _, e := range loadErrs {
		slog.Warn("plugin dropped during load", "error", e)
	}
	if fatal != nil {
		return fatal
	}
	defer func() { _ = head.Close(ctx) }()

	dispatchCtx := ctx
	if dispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()
	}

	envelope := dispatch.New(head).Dispatch(dispatchCtx, packageName, functionName, args)

	return printEnvelope(envelope)
}

// envelopeResult mirrors dispatch.CallResult for JSON output; the error
// side is rendered as a string rather than the typed DispatchError so the
// CLI's output has no dependency on the core's internal error types.
type envelopeResult struct {
	PluginID string          `json:"plugin_id"`
	Value    *wireformat.Val `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func printEnvelope(env dispatch.Envelope) error {
	out := struct {
		Cardinality string           `json:"cardinality"`
		Results     []envelopeResult `json:"results"`
	}{
		Cardinality: string(env.Cardinality),
	}
	for _, r := range env.Results {
		er := envelopeResult{PluginID: string(r.PluginID)}
		if r.Err != nil {
			er.Error = r.Err.Error()
		} else {
			v := r.Value
			er.Value = &v
		}
		out.Results = append(out.Results, er)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
