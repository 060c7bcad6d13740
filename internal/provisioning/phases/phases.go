// Package phases declares the static provisioning phase catalog. The
// catalog is built once per run from the resolved configuration and the
// detected platform profile and executed strictly in declaration order.
package phases

import (
	"fmt"

	"github.com/streamprov/streamprov/internal/platform"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/provisioning/deploy"
	"github.com/streamprov/streamprov/internal/provisioning/health"
	"github.com/streamprov/streamprov/internal/provisioning/identity"
)

// Components are the collaborators the catalog wires phases to.
type Components struct {
	Deployer  *deploy.Deployer
	Identity  *identity.Manager
	Validator *health.Validator
}

// NewComponents creates the default collaborators for a real run.
func NewComponents() Components {
	return Components{
		Deployer:  deploy.NewDeployer(),
		Identity:  identity.NewManager(),
		Validator: health.NewValidator(),
	}
}

// Build assembles the phase catalog for one run. Conditional phases
// (previous-install cleanup, service start, health validation) are
// included or omitted here, never skipped silently at execution time.
func Build(ctx *provisioning.RunContext, c Components) []provisioning.Phase {
	cfg := ctx.Config
	profile := ctx.Profile

	catalog := []provisioning.Phase{
		{
			Name:        "disk-space",
			Criticality: provisioning.Fatal,
			Run: func(ctx *provisioning.RunContext) error {
				free := c.Deployer.FreeSpace
				if err := deploy.CheckDiskSpace("/", ctx.Config.MinDiskSpaceMB, free); err != nil {
					return err
				}
				ctx.Observer.Printf("Disk space check passed (minimum %d MB)", ctx.Config.MinDiskSpaceMB)
				return nil
			},
		},
		{
			Name:        "package-index",
			Criticality: provisioning.Fatal,
			Retryable:   true,
			Run: func(ctx *provisioning.RunContext) error {
				return profile.PackageManager.Refresh(ctx)
			},
		},
		{
			Name:        "system-upgrade",
			Criticality: provisioning.Warn,
			Retryable:   true,
			Run: func(ctx *provisioning.RunContext) error {
				return profile.PackageManager.Upgrade(ctx)
			},
		},
		{
			Name:        "base-packages",
			Criticality: provisioning.Fatal,
			Retryable:   true,
			Check: func(ctx *provisioning.RunContext) (bool, error) {
				if !profile.PackageManager.Available() {
					return false, nil
				}
				for _, pkg := range platform.BasePackages(profile.Family) {
					if !profile.PackageManager.Installed(ctx, pkg) {
						return false, nil
					}
				}
				return true, nil
			},
			Run: func(ctx *provisioning.RunContext) error {
				return profile.PackageManager.Install(ctx, platform.BasePackages(profile.Family))
			},
		},
		{
			Name:        "service-user",
			Criticality: provisioning.Fatal,
			Check:       c.Identity.Exists,
			Run:         c.Identity.Ensure,
		},
	}

	if cfg.CleanupPrevious {
		catalog = append(catalog, provisioning.Phase{
			Name:        "previous-install-cleanup",
			Criticality: provisioning.Fatal,
			Check:       c.Identity.CleanupSatisfied,
			Run:         c.Identity.CleanupPrevious,
		})
	}

	catalog = append(catalog,
		provisioning.Phase{
			Name:        "journald-limits",
			Criticality: provisioning.Warn,
			Check: func(*provisioning.RunContext) (bool, error) {
				return deploy.JournaldSatisfied(c.Deployer.JournaldPath)
			},
			Run:   c.Deployer.EnsureJournaldLimits,
		},
		provisioning.Phase{
			Name:        "deploy",
			Criticality: provisioning.Fatal,
			Retryable:   true,
			Check:       c.Deployer.Satisfied,
			Run:         c.Deployer.Deploy,
			Milestone:   provisioning.StageDeployed,
		},
		firewallPhase(profile),
	)

	if profile.SELinuxEnforcing {
		catalog = append(catalog, provisioning.Phase{
			Name:        "mac-labels",
			Criticality: provisioning.Warn,
			Run:         c.Deployer.ApplyLabels,
		})
	}

	if cfg.StartService {
		catalog = append(catalog,
			provisioning.Phase{
				Name:        "service-start",
				Criticality: provisioning.Fatal,
				Check:       c.Deployer.ServiceActive,
				Run:         c.Deployer.StartService,
			},
			provisioning.Phase{
				Name:        "health-check",
				Criticality: provisioning.Fatal,
				Run:         c.Validator.Validate,
				Milestone:   provisioning.StageValidated,
			},
		)
	}

	catalog = append(catalog, provisioning.Phase{
		Name:        "package-cleanup",
		Criticality: provisioning.Warn,
		Run: func(ctx *provisioning.RunContext) error {
			return profile.PackageManager.Clean(ctx)
		},
	})

	return catalog
}

// firewallPhase opens the configured ports on the detected backend. A
// backend that is installed but inactive is left untouched; changing
// firewall state behind the operator's back is out of bounds.
func firewallPhase(profile *platform.Profile) provisioning.Phase {
	return provisioning.Phase{
		Name:        "firewall",
		Criticality: provisioning.Warn,
		Check: func(ctx *provisioning.RunContext) (bool, error) {
			if !profile.Firewall.Available() || !profile.Firewall.Active(ctx) {
				return false, nil
			}
			for _, port := range ctx.Config.Ports {
				if !profile.Firewall.RuleExists(ctx, port) {
					return false, nil
				}
			}
			return true, nil
		},
		Run: func(ctx *provisioning.RunContext) error {
			fw := profile.Firewall
			if !fw.Available() {
				return &platform.CapabilityMissing{Capability: "firewall"}
			}
			if !ctx.Config.DryRun && !fw.Active(ctx) {
				ctx.Observer.Printf("Firewall %s is installed but inactive; leaving it untouched", fw.Name())
				return nil
			}
			for _, port := range ctx.Config.Ports {
				if !ctx.Config.DryRun && fw.RuleExists(ctx, port) {
					continue
				}
				if err := fw.AllowPort(ctx, port); err != nil {
					return fmt.Errorf("allowing port %d on %s: %w", port, fw.Name(), err)
				}
			}
			return fw.Reload(ctx)
		},
	}
}
