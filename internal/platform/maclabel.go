package platform

import (
	"context"

	"github.com/streamprov/streamprov/internal/command"
)

// MacLabeler applies mandatory-access-control labels to artifacts the
// deployer creates. Label failures are tolerated as warnings.
type MacLabeler interface {
	// Enabled reports whether label enforcement is active on the host.
	Enabled() bool

	// Restore re-applies the default label to a path, recursively.
	Restore(ctx context.Context, path string) error
}

type selinuxLabeler struct{ runner command.Runner }

// NewSELinuxLabeler returns the labeler for SELinux-enforcing hosts.
func NewSELinuxLabeler(r command.Runner) MacLabeler { return &selinuxLabeler{runner: r} }

func (l *selinuxLabeler) Enabled() bool { return true }

func (l *selinuxLabeler) Restore(ctx context.Context, path string) error {
	return run(ctx, l.runner, command.Command{Name: "restorecon", Argv: []string{"-R", path}})
}

// NoopLabeler is used when no label enforcement is active.
type NoopLabeler struct{}

func (NoopLabeler) Enabled() bool { return false }

func (NoopLabeler) Restore(context.Context, string) error {
	return &CapabilityMissing{Capability: "mandatory access control"}
}
