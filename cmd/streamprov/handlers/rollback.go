package handlers

import (
	"context"
	"fmt"

	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// Rollback removes the service registration outside of a failed run:
// stop, disable, unit file and log-rotation policy. It deliberately
// leaves the account, packages and downloads alone.
func Rollback(ctx context.Context, argv []string) error {
	path := config.ConfigFilePath(argv)
	res, err := config.Resolve(config.Defaults(), path, argv)
	if err != nil {
		return err
	}
	cfg := res.Config

	if !cfg.DryRun && geteuid() != 0 {
		return fmt.Errorf("rollback must run as root; use --dry-run to preview without privilege")
	}

	transcript, err := openTranscript(cfg.LogFile, cfg.Quiet)
	if err != nil {
		return err
	}
	defer transcript.Close() //nolint:errcheck

	runner := newRunner(cfg.DryRun)
	rc := provisioning.NewRunContext(ctx, cfg, nil, runner, transcript.Logger)
	rc.Profile = detectPlatform(ctx, runner)

	if err := newRollbackController().Run(rc); err != nil {
		return err
	}

	if cfg.Quiet {
		transcript.Logger.Info(rc.Errors.Summary())
	} else {
		fmt.Fprintln(stdout, rc.Errors.Summary())
	}
	return nil
}
