package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pluginlattice/pluginlattice/internal/graph"
	"github.com/pluginlattice/pluginlattice/internal/latticefile"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <lattice-file>",
		Short: "Parse a lattice file and report every graph assembly error without loading any plugin",
		Long: `Decode and schema-validate a lattice file, then run it through the
graph builder only — duplicate ids, dangling interface references,
unsatisfied cardinalities, and cycles are all reported, but no wasm
component is compiled or instantiated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootID, interfaces, plugins, err := latticefile.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tree, errs := graph.Build(rootID, interfaces, plugins)
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "error: %v\n", e)
			}
			fmt.Printf("retained %d interface(s), %d plugin(s); %d error(s)\n", tree.InterfaceCount(), len(tree.Plugins()), len(errs))
			if len(errs) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}
