package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/streamprov/streamprov/cmd/streamprov/handlers"
	"github.com/streamprov/streamprov/internal/config"
)

// Provision returns the command that provisions the host.
//
// Configuration merges three sources, later winning: compiled-in
// defaults, the key=value file at --config, then invocation flags.
// Unrecognized flags are ignored rather than rejected so wrapper
// scripts can pass extra arguments through.
func Provision() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision this host to run the mediaserver service",
		Long: `Provision this host end to end: install base packages, create the
service account, deploy the Node.js runtime and the mediaserver
application, register the systemd unit with log rotation and firewall
rules, then start and health-check the service.

Every phase is idempotent; re-running after a partial failure resumes
safely. A fatal failure rolls the service registration back unless
--no-rollback is set.

Examples:
  # Provision with /etc/streamprov.conf (created on first run)
  streamprov provision

  # Preview every action without changing the host
  streamprov provision --dry-run

  # Unattended run for automation
  streamprov provision --quiet --force`,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), os.Args[1:])
		},
	}

	addRunFlags(cmd)
	return cmd
}

// addRunFlags declares the flags shared by provision and rollback. The
// handlers re-parse the raw argv through the config layer, which also
// tolerates flags this binary does not know.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", config.DefaultConfigPath, "path to the configuration file")
	cmd.Flags().Bool("dry-run", false, "log every action without executing it")
	cmd.Flags().Bool("quiet", false, "suppress console output and interactive prompts")
	cmd.Flags().Bool("force", false, "skip interactive cleanup confirmation")
	cmd.Flags().Bool("no-rollback", false, "leave artifacts in place after a fatal failure")
}
