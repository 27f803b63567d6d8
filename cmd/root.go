// Package cmd wires the packer and its collaborators into a command-line
// tool, following the teacher's spf13/cobra command tree layout.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCommand is the base CLI command that every subcommand is added to.
var RootCommand = &cobra.Command{
	Use:   "wasm-packer",
	Short: "Pack a deployer module's constructor with a runtime module",
	Long: `wasm-packer rewrites a deployer module so that its _call export
runs the original constructor, embeds a runtime module's bytes as a data
segment, and writes the resulting (pointer, length) pair into the
descriptor the host reads back to install the contract's code.`,
}

func init() {
	RootCommand.AddCommand(packCommand)
}
