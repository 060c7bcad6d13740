// Package identity manages the service account: validation, creation,
// and detection and cleanup of accounts left behind by previous
// installations.
package identity

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"regexp"

	"github.com/mattn/go-isatty"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// usernamePattern is the POSIX portable username grammar. Anything
// outside it is rejected before a single mutating command runs.
var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// IdentityError reports an invalid or forbidden service account.
type IdentityError struct {
	User   string
	Reason string
}

// Error implements the error interface.
func (e *IdentityError) Error() string {
	return fmt.Sprintf("invalid service user %q: %s", e.User, e.Reason)
}

// Manager owns the service-account lifecycle. Lookups and the
// interactive password prompt are injectable for tests.
type Manager struct {
	UnitPath      string
	LogrotatePath string

	// HomeRoot is scanned for orphaned install directories when the
	// unit file no longer names the previous account.
	HomeRoot string

	Lookup   func(name string) (*user.User, error)
	LookupID func(uid string) (*user.User, error)

	// Interactive reports whether a human is attached to stdin.
	Interactive func() bool

	// SetPassword runs an interactive password prompt for the account.
	SetPassword func(ctx context.Context, name string) error

	Confirm Confirmer
}

// NewManager creates a manager wired to the real host.
func NewManager() *Manager {
	return &Manager{
		UnitPath:      provisioning.UnitPath,
		LogrotatePath: provisioning.LogrotatePath,
		HomeRoot:      "/home",
		Lookup:        user.Lookup,
		LookupID:      user.LookupId,
		Interactive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd())
		},
		SetPassword: runPasswd,
		Confirm:     &PromptConfirmer{},
	}
}

// runPasswd hands the terminal to passwd(1). This is the one command
// that cannot go through the runner: it needs the attached terminal.
func runPasswd(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "passwd", name) // #nosec G204 -- name is validated
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Validate rejects malformed or forbidden usernames. It runs before
// any phase mutates the host.
func Validate(name string) error {
	if name == "root" {
		return &IdentityError{User: name, Reason: "the service must not run as root"}
	}
	if !usernamePattern.MatchString(name) {
		return &IdentityError{User: name, Reason: "does not match " + usernamePattern.String()}
	}
	return nil
}

// Exists reports whether the target account already exists, backing
// the service-user phase's idempotency predicate.
func (m *Manager) Exists(ctx *provisioning.RunContext) (bool, error) {
	_, err := m.Lookup(ctx.Config.ServiceUser)
	return err == nil, nil
}

// Ensure creates the service account if missing. An optional password
// prompt is offered only when a terminal is attached and the run is
// neither quiet nor a dry run; a declined or failed prompt degrades to
// a warning since the unit does not need one.
func (m *Manager) Ensure(ctx *provisioning.RunContext) error {
	name := ctx.Config.ServiceUser
	if err := Validate(name); err != nil {
		return err
	}

	if _, err := m.Lookup(name); err == nil {
		ctx.Observer.Printf("Service user %q already exists", name)
		return nil
	}

	if err := ctx.RunCommand("service-user", command.Command{
		Name: "useradd",
		Argv: []string{"-m", "-s", "/usr/sbin/nologin", name},
	}); err != nil {
		return err
	}

	if ctx.Config.DryRun || ctx.Config.Quiet || !m.Interactive() {
		return nil
	}
	ctx.Observer.Printf("Set a password for %q (Ctrl-C to skip)", name)
	if err := m.SetPassword(ctx, name); err != nil {
		ctx.Errors.RecordWarning("service-user", fmt.Sprintf("password not set for %q: %v", name, err))
	}
	return nil
}
