package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/streamprov/streamprov/cmd/streamprov/handlers"
)

// Rollback returns the command that removes the service registration.
func Rollback() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Stop the service and remove its registration",
		Long: `Stop and disable the mediaserver unit and remove the unit file and
log-rotation policy. The service account, installed packages and
downloaded artifacts are left in place for inspection.

Examples:
  # Remove the service registration
  streamprov rollback

  # Preview what would be removed
  streamprov rollback --dry-run`,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Rollback(cmd.Context(), os.Args[1:])
		},
	}

	addRunFlags(cmd)
	return cmd
}
