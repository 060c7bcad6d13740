package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/streamprov/streamprov/internal/command"
)

// FirewallBackend is the uniform surface over the host firewall.
// Installed-but-inactive backends are deliberately left untouched.
type FirewallBackend interface {
	// Name identifies the backend ("ufw", "firewalld", "iptables").
	Name() string

	// Available reports whether a real backend backs this interface.
	Available() bool

	// Active reports whether the backend is actually enforcing rules.
	Active(ctx context.Context) bool

	// RuleExists reports whether the port is already allowed. Used as
	// the idempotency predicate for the firewall phase.
	RuleExists(ctx context.Context, port int) bool

	// AllowPort permanently allows inbound TCP traffic on the port.
	AllowPort(ctx context.Context, port int) error

	// Reload applies pending permanent rules.
	Reload(ctx context.Context) error
}

type ufw struct{ runner command.Runner }

// NewUfw returns the ufw firewall backend.
func NewUfw(r command.Runner) FirewallBackend { return &ufw{runner: r} }

func (f *ufw) Name() string    { return "ufw" }
func (f *ufw) Available() bool { return true }

func (f *ufw) Active(ctx context.Context) bool {
	res := f.runner.Run(ctx, command.Command{Name: "ufw", Argv: []string{"status"}})
	return res.ExitCode == 0 && strings.Contains(res.Output, "Status: active")
}

func (f *ufw) RuleExists(ctx context.Context, port int) bool {
	res := f.runner.Run(ctx, command.Command{Name: "ufw", Argv: []string{"status"}})
	return res.ExitCode == 0 && strings.Contains(res.Output, fmt.Sprintf("%d/tcp", port))
}

func (f *ufw) AllowPort(ctx context.Context, port int) error {
	return run(ctx, f.runner, command.Command{Name: "ufw", Argv: []string{"allow", fmt.Sprintf("%d/tcp", port)}})
}

func (f *ufw) Reload(ctx context.Context) error {
	return run(ctx, f.runner, command.Command{Name: "ufw", Argv: []string{"reload"}})
}

type firewalld struct{ runner command.Runner }

// NewFirewalld returns the firewalld firewall backend.
func NewFirewalld(r command.Runner) FirewallBackend { return &firewalld{runner: r} }

func (f *firewalld) Name() string    { return "firewalld" }
func (f *firewalld) Available() bool { return true }

func (f *firewalld) Active(ctx context.Context) bool {
	res := f.runner.Run(ctx, command.Command{Name: "firewall-cmd", Argv: []string{"--state"}})
	return res.ExitCode == 0 && strings.Contains(res.Output, "running")
}

func (f *firewalld) RuleExists(ctx context.Context, port int) bool {
	res := f.runner.Run(ctx, command.Command{
		Name: "firewall-cmd",
		Argv: []string{"--query-port", fmt.Sprintf("%d/tcp", port), "--permanent"},
	})
	return res.ExitCode == 0
}

func (f *firewalld) AllowPort(ctx context.Context, port int) error {
	return run(ctx, f.runner, command.Command{
		Name: "firewall-cmd",
		Argv: []string{"--add-port", fmt.Sprintf("%d/tcp", port), "--permanent"},
	})
}

func (f *firewalld) Reload(ctx context.Context) error {
	return run(ctx, f.runner, command.Command{Name: "firewall-cmd", Argv: []string{"--reload"}})
}

type iptables struct{ runner command.Runner }

// NewIptables returns the raw iptables firewall backend.
func NewIptables(r command.Runner) FirewallBackend { return &iptables{runner: r} }

func (f *iptables) Name() string    { return "iptables" }
func (f *iptables) Available() bool { return true }

// Active reports whether iptables carries any rules at all. A host with
// an empty ruleset gets its policy from elsewhere and is left alone.
func (f *iptables) Active(ctx context.Context) bool {
	res := f.runner.Run(ctx, command.Command{Name: "iptables", Argv: []string{"-L", "INPUT", "-n"}})
	if res.ExitCode != 0 {
		return false
	}
	// Header lines only means no rules are defined.
	return len(strings.Split(strings.TrimSpace(res.Output), "\n")) > 2
}

func (f *iptables) RuleExists(ctx context.Context, port int) bool {
	res := f.runner.Run(ctx, command.Command{
		Name: "iptables",
		Argv: []string{"-C", "INPUT", "-p", "tcp", "--dport", fmt.Sprintf("%d", port), "-j", "ACCEPT"},
	})
	return res.ExitCode == 0
}

func (f *iptables) AllowPort(ctx context.Context, port int) error {
	return run(ctx, f.runner, command.Command{
		Name: "iptables",
		Argv: []string{"-A", "INPUT", "-p", "tcp", "--dport", fmt.Sprintf("%d", port), "-j", "ACCEPT"},
	})
}

// Reload is a no-op: iptables rules take effect as they are appended.
func (f *iptables) Reload(context.Context) error { return nil }

// NoopFirewall is the degraded backend for hosts without a firewall.
type NoopFirewall struct{}

func (NoopFirewall) Name() string                            { return "none" }
func (NoopFirewall) Available() bool                         { return false }
func (NoopFirewall) Active(context.Context) bool             { return false }
func (NoopFirewall) RuleExists(context.Context, int) bool    { return false }
func (NoopFirewall) AllowPort(context.Context, int) error {
	return &CapabilityMissing{Capability: "firewall backend"}
}
func (NoopFirewall) Reload(context.Context) error {
	return &CapabilityMissing{Capability: "firewall backend"}
}

func run(ctx context.Context, r command.Runner, cmd command.Command) error {
	res := r.Run(ctx, cmd)
	if !res.OK() {
		return command.NewFailure(res)
	}
	return nil
}
