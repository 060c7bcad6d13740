// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the streamprov CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streamprov",
		Short: "Provision a Linux host to run the mediaserver streaming service",
	}

	cmd.AddCommand(Provision())
	cmd.AddCommand(Rollback())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
