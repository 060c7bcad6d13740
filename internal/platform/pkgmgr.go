package platform

import (
	"context"
	"strings"

	"github.com/streamprov/streamprov/internal/command"
)

// PackageManager is the uniform surface over the host's package tool.
// Only exit status and combined output of the underlying tool are
// consumed; its install mechanics are out of scope.
type PackageManager interface {
	// Name identifies the underlying tool ("apt", "dnf", ...).
	Name() string

	// Available reports whether a real tool backs this manager.
	Available() bool

	// Refresh updates the package index.
	Refresh(ctx context.Context) error

	// Upgrade upgrades all installed packages.
	Upgrade(ctx context.Context) error

	// Install installs the named packages.
	Install(ctx context.Context, pkgs []string) error

	// Installed reports whether a package is already present. Used as
	// the idempotency predicate for install phases.
	Installed(ctx context.Context, pkg string) bool

	// Clean removes orphans and drops cached package data.
	Clean(ctx context.Context) error
}

// pkgTool implements PackageManager over a static command set.
type pkgTool struct {
	name    string
	runner  command.Runner
	refresh command.Command
	upgrade command.Command
	install command.Command // package names appended to Argv
	query   command.Command // package name appended to Argv
	clean   []command.Command
}

// NewApt returns the package manager for Debian-family hosts.
func NewApt(r command.Runner) PackageManager {
	return &pkgTool{
		name:    "apt",
		runner:  r,
		refresh: command.Command{Name: "apt-get", Argv: []string{"update"}},
		upgrade: command.Command{Name: "apt-get", Argv: []string{"upgrade", "-y"}},
		install: command.Command{Name: "apt-get", Argv: []string{"install", "-y"}},
		query:   command.Command{Name: "dpkg", Argv: []string{"-s"}},
		clean: []command.Command{
			{Name: "apt-get", Argv: []string{"autoremove", "-y"}},
			{Name: "apt-get", Argv: []string{"clean"}},
		},
	}
}

// NewDnf returns the package manager for RHEL-family hosts.
func NewDnf(r command.Runner) PackageManager {
	return &pkgTool{
		name:    "dnf",
		runner:  r,
		refresh: command.Command{Name: "dnf", Argv: []string{"makecache"}},
		upgrade: command.Command{Name: "dnf", Argv: []string{"upgrade", "-y"}},
		install: command.Command{Name: "dnf", Argv: []string{"install", "-y"}},
		query:   command.Command{Name: "rpm", Argv: []string{"-q"}},
		clean: []command.Command{
			{Name: "dnf", Argv: []string{"autoremove", "-y"}},
			{Name: "dnf", Argv: []string{"clean", "all"}},
		},
	}
}

// NewZypper returns the package manager for SUSE-family hosts.
func NewZypper(r command.Runner) PackageManager {
	return &pkgTool{
		name:    "zypper",
		runner:  r,
		refresh: command.Command{Name: "zypper", Argv: []string{"--non-interactive", "refresh"}},
		upgrade: command.Command{Name: "zypper", Argv: []string{"--non-interactive", "update"}},
		install: command.Command{Name: "zypper", Argv: []string{"--non-interactive", "install"}},
		query:   command.Command{Name: "rpm", Argv: []string{"-q"}},
		clean: []command.Command{
			{Name: "zypper", Argv: []string{"--non-interactive", "clean"}},
		},
	}
}

// NewPacman returns the package manager for Arch-family hosts.
func NewPacman(r command.Runner) PackageManager {
	return &pkgTool{
		name:    "pacman",
		runner:  r,
		refresh: command.Command{Name: "pacman", Argv: []string{"-Sy", "--noconfirm"}},
		upgrade: command.Command{Name: "pacman", Argv: []string{"-Su", "--noconfirm"}},
		install: command.Command{Name: "pacman", Argv: []string{"-S", "--noconfirm", "--needed"}},
		query:   command.Command{Name: "pacman", Argv: []string{"-Qi"}},
		clean: []command.Command{
			{Name: "pacman", Argv: []string{"-Sc", "--noconfirm"}},
		},
	}
}

func (p *pkgTool) Name() string    { return p.name }
func (p *pkgTool) Available() bool { return true }

func (p *pkgTool) Refresh(ctx context.Context) error {
	return p.run(ctx, p.refresh)
}

func (p *pkgTool) Upgrade(ctx context.Context) error {
	return p.run(ctx, p.upgrade)
}

func (p *pkgTool) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	cmd := p.install
	cmd.Argv = append(append([]string{}, cmd.Argv...), pkgs...)
	return p.run(ctx, cmd)
}

func (p *pkgTool) Installed(ctx context.Context, pkg string) bool {
	cmd := p.query
	cmd.Argv = append(append([]string{}, cmd.Argv...), pkg)
	res := p.runner.Run(ctx, cmd)
	return !res.Skipped && res.ExitCode == 0
}

func (p *pkgTool) Clean(ctx context.Context) error {
	for _, cmd := range p.clean {
		if err := p.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (p *pkgTool) run(ctx context.Context, cmd command.Command) error {
	res := p.runner.Run(ctx, cmd)
	if !res.OK() {
		return command.NewFailure(res)
	}
	return nil
}

// NoopPackageManager is the degraded manager for hosts whose package
// tooling could not be identified.
type NoopPackageManager struct{}

func (NoopPackageManager) Name() string    { return "none" }
func (NoopPackageManager) Available() bool { return false }

func (NoopPackageManager) Refresh(context.Context) error {
	return &CapabilityMissing{Capability: "package manager"}
}

func (NoopPackageManager) Upgrade(context.Context) error {
	return &CapabilityMissing{Capability: "package manager"}
}

func (NoopPackageManager) Install(_ context.Context, pkgs []string) error {
	return &CapabilityMissing{Capability: "package manager (wanted: " + strings.Join(pkgs, ", ") + ")"}
}

func (NoopPackageManager) Installed(context.Context, string) bool { return false }

func (NoopPackageManager) Clean(context.Context) error {
	return &CapabilityMissing{Capability: "package manager"}
}
