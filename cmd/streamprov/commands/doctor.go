package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/streamprov/streamprov/cmd/streamprov/handlers"
	"github.com/streamprov/streamprov/internal/config"
)

// Doctor returns the command that diagnoses the host without changing
// anything.
func Doctor() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the host and the deployed service",
		Long: `Inspect the host read-only: detected platform capabilities, config
file presence, unit and log-rotation state, port reachability and the
service's liveness endpoint.

Examples:
  # Human-readable report
  streamprov doctor

  # Machine-readable output for automation
  streamprov doctor --output json
  streamprov doctor --output yaml`,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), os.Args[1:], output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("config", "c", config.DefaultConfigPath, "path to the configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	return cmd
}
