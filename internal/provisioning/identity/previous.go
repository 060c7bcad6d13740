package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// DetectPrevious finds the account of a previous installation, if any.
// The unit file is authoritative; when it is gone, orphaned install
// directories under the home root are attributed by ownership. At most
// one previous installation is ever reported.
func (m *Manager) DetectPrevious() (string, bool) {
	if owner, err := unitOwner(m.UnitPath); err == nil && owner != "" {
		return owner, true
	}

	entries, err := os.ReadDir(m.HomeRoot)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		install := filepath.Join(m.HomeRoot, e.Name(), provisioning.InstallDirName)
		info, err := os.Stat(install)
		if err != nil || !info.IsDir() {
			continue
		}
		st, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			continue
		}
		u, err := m.LookupID(fmt.Sprint(st.Uid))
		if err != nil {
			continue
		}
		return u.Username, true
	}
	return "", false
}

// unitOwner extracts the User= line from a unit file.
func unitOwner(path string) (string, error) {
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

// CleanupSatisfied backs the cleanup phase's idempotency predicate:
// nothing to do when no previous installation exists.
func (m *Manager) CleanupSatisfied(ctx *provisioning.RunContext) (bool, error) {
	_, found := m.DetectPrevious()
	return !found, nil
}

// CleanupPrevious removes a previous installation's artifacts and, when
// the account differs from the target identity, the account itself.
// Cleaning up root is refused unconditionally, confirmation or not.
func (m *Manager) CleanupPrevious(ctx *provisioning.RunContext) error {
	prev, found := m.DetectPrevious()
	if !found {
		return nil
	}
	if prev == "root" {
		return &IdentityError{User: prev, Reason: "refusing to clean up an installation owned by root"}
	}

	home := filepath.Join(m.HomeRoot, prev)
	if u, err := m.Lookup(prev); err == nil && u.HomeDir != "" {
		home = u.HomeDir
	}
	installDir := filepath.Join(home, provisioning.InstallDirName)
	runtimeDir := filepath.Join(home, provisioning.RuntimeDirName)

	removeAccount := prev != ctx.Config.ServiceUser
	targets := []string{m.UnitPath, m.LogrotatePath, installDir, runtimeDir}
	ctx.Observer.Printf("Previous installation owned by %q found; will remove: %s",
		prev, strings.Join(targets, ", "))
	if removeAccount {
		ctx.Observer.Printf("The account %q and its home directory will be deleted", prev)
	}

	ok, err := m.confirmCleanup(ctx, prev)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cleanup of previous installation owned by %q was not confirmed", prev)
	}

	// Best-effort stop; the unit may already be gone or inactive.
	for _, argv := range [][]string{
		{"stop", provisioning.ServiceName},
		{"disable", provisioning.ServiceName},
	} {
		if err := ctx.RunCommand("previous-install-cleanup", command.Command{Name: "systemctl", Argv: argv}); err != nil {
			ctx.Errors.RecordWarning("previous-install-cleanup",
				fmt.Sprintf("systemctl %s failed: %v", strings.Join(argv, " "), err))
		}
	}

	removals := [][]string{
		{"-f", m.UnitPath},
		{"-f", m.LogrotatePath},
		{"-rf", installDir},
		{"-rf", runtimeDir},
	}
	for _, argv := range removals {
		if err := ctx.RunCommand("previous-install-cleanup", command.Command{Name: "rm", Argv: argv}); err != nil {
			return err
		}
	}

	if removeAccount {
		if err := ctx.RunCommand("previous-install-cleanup", command.Command{
			Name: "userdel",
			Argv: []string{"-r", prev},
		}); err != nil {
			return err
		}
	}

	return ctx.RunCommand("previous-install-cleanup", command.Command{
		Name: "systemctl",
		Argv: []string{"daemon-reload"},
	})
}

// confirmCleanup decides whether the enumerated deletions may proceed.
// Force answers yes; quiet without force answers no, since deleting an
// account unprompted is never acceptable.
func (m *Manager) confirmCleanup(ctx *provisioning.RunContext, prev string) (bool, error) {
	if ctx.Config.DryRun || ctx.Config.ForceCleanup {
		// Dry runs only record the deletions, nothing is executed.
		return true, nil
	}
	if ctx.Config.Quiet || !m.Interactive() {
		return false, nil
	}
	return m.Confirm.Confirm(ctx,
		fmt.Sprintf("Remove previous installation owned by %q?", prev),
		"All listed artifacts will be deleted. This cannot be undone.")
}
