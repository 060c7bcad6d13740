// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of
// the CLI layer. Dependencies are held in package-level factory
// variables so tests can inject fakes.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/logging"
	"github.com/streamprov/streamprov/internal/platform"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/provisioning/identity"
	"github.com/streamprov/streamprov/internal/provisioning/phases"
	"github.com/streamprov/streamprov/internal/provisioning/rollback"
	"github.com/streamprov/streamprov/internal/ui"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// geteuid reports the effective uid for the root requirement.
	geteuid = os.Geteuid

	// openTranscript opens the run transcript logger.
	openTranscript = logging.Open

	// newRunner builds the command runner for the run mode.
	newRunner = func(dryRun bool) command.Runner {
		if dryRun {
			return command.NewDryRunner()
		}
		return command.NewExecRunner()
	}

	// detectPlatform probes the host capabilities.
	detectPlatform = func(ctx context.Context, r command.Runner) *platform.Profile {
		return platform.NewDetector(r).Detect(ctx)
	}

	// newComponents builds the phase collaborators.
	newComponents = phases.NewComponents

	// newRollbackController builds the rollback controller.
	newRollbackController = func() *rollback.Controller {
		return rollback.NewController()
	}

	// stdout is the summary sink.
	stdout io.Writer = os.Stdout
)

// Provision runs the full provisioning pipeline.
//
// The raw argv is re-parsed by the config layer: defaults, then the
// persisted key=value file, then flags, later sources winning. The
// resolved service user is validated and the root requirement enforced
// before any phase can touch the host. A dry run needs no privilege.
func Provision(ctx context.Context, argv []string) error {
	path := config.ConfigFilePath(argv)
	res, err := config.Resolve(config.Defaults(), path, argv)
	if err != nil {
		return err
	}
	cfg := res.Config

	if err := identity.Validate(cfg.ServiceUser); err != nil {
		return err
	}
	if !cfg.DryRun && geteuid() != 0 {
		return fmt.Errorf("provisioning must run as root; use --dry-run to preview without privilege")
	}

	transcript, err := openTranscript(cfg.LogFile, cfg.Quiet)
	if err != nil {
		return err
	}
	defer transcript.Close() //nolint:errcheck

	runner := newRunner(cfg.DryRun)
	rc := provisioning.NewRunContext(ctx, cfg, nil, runner, transcript.Logger)
	rc.State.Stage = provisioning.StageConfigResolved

	if res.FileCreated {
		rc.Observer.Printf("Created default configuration at %s", path)
	}
	for _, w := range res.Warnings {
		rc.Errors.RecordWarning("config", w.Message)
	}

	rc.Profile = detectPlatform(ctx, runner)
	rc.State.Stage = provisioning.StagePlatformDetected
	rc.Observer.Printf("Detected %s (%s family), package manager %s, firewall %s",
		rc.Profile.DistroID, rc.Profile.Family, rc.Profile.PackageManager.Name(), rc.Profile.Firewall.Name())

	catalog := phases.Build(rc, newComponents())
	controller := newRollbackController()

	start := time.Now()
	out := provisioning.RunPhases(rc, catalog, func(rc *provisioning.RunContext) {
		controller.Run(rc) //nolint:errcheck
	})
	rc.State.Stage = finalStage(rc, out)

	if cfg.Quiet {
		// The transcript is the sole sink in quiet mode; the final
		// error summary is never suppressed.
		transcript.Logger.Info(rc.Errors.Summary())
	} else {
		fmt.Fprintln(stdout, ui.RenderSummary(rc, out, time.Since(start)))
	}

	if out.ExitCode != 0 {
		return fmt.Errorf("provisioning failed in phase %s, transcript at %s", out.FailedPhase, cfg.LogFile)
	}
	return nil
}

// finalStage preserves the furthest milestone on success and leaves the
// failure point visible otherwise.
func finalStage(rc *provisioning.RunContext, out provisioning.Outcome) provisioning.Stage {
	if out.Terminal == provisioning.TerminalSuccess && !rc.Config.DryRun && rc.State.Stage == provisioning.StagePhasesRunning {
		return provisioning.StageDeployed
	}
	return rc.State.Stage
}
