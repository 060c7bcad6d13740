package deploy

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/util/retry"
)

// Deployer materializes the service artifacts. Paths and lookups are
// fields so tests can point it at a scratch tree.
type Deployer struct {
	UnitPath      string
	LogrotatePath string
	JournaldPath  string

	// FreeSpace measures free megabytes; defaults to statfs.
	FreeSpace func(path string) (int, error)

	// LookupHome resolves the service account's home directory. The
	// account may not exist yet in dry-run mode, in which case the
	// conventional location is assumed.
	LookupHome func(name string) (string, error)

	// RuntimeURL builds the Node.js runtime download URL for a version.
	RuntimeURL func(version string) string
}

// NewDeployer creates a deployer wired to the real host layout.
func NewDeployer() *Deployer {
	return &Deployer{
		UnitPath:      provisioning.UnitPath,
		LogrotatePath: provisioning.LogrotatePath,
		JournaldPath:  JournaldDropInPath,
		FreeSpace:     FreeSpaceMB,
		LookupHome:    homeOf,
		RuntimeURL: func(version string) string {
			return fmt.Sprintf("https://nodejs.org/dist/v%s/node-v%s-linux-x64.tar.xz", version, version)
		},
	}
}

func homeOf(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}

// Describe builds the descriptor for the configured service user.
func (d *Deployer) Describe(cfg config.Configuration) *provisioning.Descriptor {
	home, err := d.LookupHome(cfg.ServiceUser)
	if err != nil || home == "" {
		home = filepath.Join("/home", cfg.ServiceUser)
	}
	return provisioning.NewDescriptor(cfg.ServiceUser, home, cfg.LogFile, cfg.Ports)
}

// Satisfied is the deploy phase's idempotency predicate: the runtime,
// the entrypoint and the unit for the right user are all in place.
func (d *Deployer) Satisfied(ctx *provisioning.RunContext) (bool, error) {
	desc := d.Describe(ctx.Config)

	for _, path := range []string{desc.NodeBinary, desc.Entrypoint, d.LogrotatePath} {
		if _, err := os.Stat(path); err != nil {
			return false, nil
		}
	}

	owner, err := unitUser(d.UnitPath)
	if err != nil || owner != desc.User {
		return false, nil
	}

	// Keep later steps working when the deploy phase is skipped.
	ctx.State.Descriptor = desc
	return true, nil
}

// Deploy materializes all service artifacts and stores the descriptor
// on the run state.
func (d *Deployer) Deploy(ctx *provisioning.RunContext) error {
	cfg := ctx.Config
	desc := d.Describe(cfg)
	ctx.State.Descriptor = desc

	// Second free-space checkpoint, immediately before the primary
	// artifact fetch.
	if err := CheckDiskSpace(filepath.Dir(desc.Home), cfg.MinDiskSpaceMB, d.FreeSpace); err != nil {
		// Exhausted disk does not recover between attempts; abort
		// instead of burning retries on the runtime fetch.
		return retry.Fatal(err)
	}

	if err := d.stopForeignUnit(ctx, desc); err != nil {
		ctx.Errors.RecordWarning("deploy", fmt.Sprintf("could not stop previous unit: %v", err))
	}

	if err := d.makeDirs(ctx, desc); err != nil {
		return err
	}

	if err := d.fetchRuntime(ctx, desc, cfg.RuntimeVersion); err != nil {
		return err
	}

	if err := d.fetchApp(ctx, desc, cfg.AppSource); err != nil {
		return err
	}

	unit, err := RenderUnit(desc)
	if err != nil {
		return fmt.Errorf("rendering unit: %w", err)
	}
	if err := d.writeFile(ctx, d.UnitPath, unit, 0o644); err != nil {
		return err
	}

	policy, err := RenderLogrotate(desc)
	if err != nil {
		return fmt.Errorf("rendering logrotate policy: %w", err)
	}
	if err := d.writeFile(ctx, d.LogrotatePath, policy, 0o644); err != nil {
		return err
	}
	// Dry-run verification of the freshly written policy; a verifier
	// complaint is a degradation, not a deployment failure.
	if err := ctx.RunCommand("deploy", command.Command{
		Name: "logrotate",
		Argv: []string{"-d", d.LogrotatePath},
	}); err != nil {
		ctx.Errors.RecordWarning("deploy", fmt.Sprintf("logrotate policy verification failed: %v", err))
	}

	return d.applyOwnership(ctx, desc)
}

// stopForeignUnit stops a previously deployed unit before overwriting
// it when its recorded user differs from the target identity.
func (d *Deployer) stopForeignUnit(ctx *provisioning.RunContext, desc *provisioning.Descriptor) error {
	owner, err := unitUser(d.UnitPath)
	if err != nil || owner == "" || owner == desc.User {
		return nil
	}
	ctx.Observer.Printf("Existing unit owned by %q, stopping before overwrite", owner)
	return ctx.RunCommand("deploy", command.Command{
		Name: "systemctl",
		Argv: []string{"stop", desc.ServiceName},
	})
}

// unitUser extracts the User= line from an existing unit file.
func unitUser(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "User="); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

func (d *Deployer) makeDirs(ctx *provisioning.RunContext, desc *provisioning.Descriptor) error {
	for _, dir := range []string{desc.InstallDir, desc.RuntimeDir} {
		if ctx.Config.DryRun {
			ctx.Observer.Event(provisioning.Event{
				Type: provisioning.EventCommandPlanned, Phase: "deploy", Message: "mkdir -p " + dir,
			})
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// fetchRuntime downloads and unpacks the Node.js runtime at the
// configured version into the runtime directory.
func (d *Deployer) fetchRuntime(ctx *provisioning.RunContext, desc *provisioning.Descriptor, version string) error {
	url := d.RuntimeURL(version)
	tarball := filepath.Join(os.TempDir(), fmt.Sprintf("node-v%s-linux-x64.tar.xz", version))

	if err := ctx.RunCommand("deploy", command.Command{
		Name: "curl",
		Argv: []string{"-fsSL", "--retry", "2", "-o", tarball, url},
	}); err != nil {
		return fmt.Errorf("fetching runtime %s: %w", version, err)
	}

	if err := ctx.RunCommand("deploy", command.Command{
		Name: "tar",
		Argv: []string{"-xJf", tarball, "-C", desc.RuntimeDir, "--strip-components=1"},
	}); err != nil {
		return fmt.Errorf("unpacking runtime: %w", err)
	}

	if err := ctx.RunCommand("deploy", command.Command{Name: "rm", Argv: []string{"-f", tarball}}); err != nil {
		ctx.Errors.RecordWarning("deploy", fmt.Sprintf("could not remove %s: %v", tarball, err))
	}
	return nil
}

// fetchApp retrieves the application entrypoint, by network fetch or
// local copy depending on the source's shape.
func (d *Deployer) fetchApp(ctx *provisioning.RunContext, desc *provisioning.Descriptor, source string) error {
	if config.AppSourceIsURL(source) {
		if err := ctx.RunCommand("deploy", command.Command{
			Name: "curl",
			Argv: []string{"-fsSL", "--retry", "2", "-o", desc.Entrypoint, source},
		}); err != nil {
			return fmt.Errorf("fetching application from %s: %w", source, err)
		}
		return nil
	}

	if err := ctx.RunCommand("deploy", command.Command{
		Name: "cp",
		Argv: []string{"-f", source, desc.Entrypoint},
	}); err != nil {
		return fmt.Errorf("copying application from %s: %w", source, err)
	}
	return nil
}

// applyOwnership hands every created artifact to the target identity.
func (d *Deployer) applyOwnership(ctx *provisioning.RunContext, desc *provisioning.Descriptor) error {
	owner := desc.User + ":" + desc.User

	for _, dir := range []string{desc.InstallDir, desc.RuntimeDir} {
		if err := ctx.RunCommand("deploy", command.Command{
			Name: "chown",
			Argv: []string{"-R", owner, dir},
		}); err != nil {
			return fmt.Errorf("applying ownership to %s: %w", dir, err)
		}
	}

	// The unit appends to the log path as the service account.
	if err := ctx.RunCommand("deploy", command.Command{
		Name: "chown",
		Argv: []string{owner, desc.LogPath},
	}); err != nil {
		ctx.Errors.RecordWarning("deploy", fmt.Sprintf("could not chown log file: %v", err))
	}
	return nil
}

// ApplyLabels restores mandatory-access-control labels on every created
// artifact. Per-artifact failures are warnings; the run continues.
func (d *Deployer) ApplyLabels(ctx *provisioning.RunContext) error {
	desc := ctx.State.Descriptor
	if desc == nil {
		desc = d.Describe(ctx.Config)
	}

	for _, path := range []string{desc.InstallDir, desc.RuntimeDir, d.UnitPath, d.LogrotatePath, desc.LogPath} {
		if err := ctx.Profile.Labeler.Restore(ctx, path); err != nil {
			ctx.Errors.RecordWarning("mac-labels", fmt.Sprintf("label restore failed for %s: %v", path, err))
		}
	}
	return nil
}

// writeFile renders an artifact to disk, or records the write in
// dry-run mode.
func (d *Deployer) writeFile(ctx *provisioning.RunContext, path, content string, mode os.FileMode) error {
	if ctx.Config.DryRun {
		ctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventCommandPlanned, Phase: "deploy", Message: "write " + path,
		})
		return nil
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
