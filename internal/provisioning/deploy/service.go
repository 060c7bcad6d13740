package deploy

import (
	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// StartService reloads systemd, enables the unit for boot and starts
// it. On success the run state is marked so a failure afterwards knows
// the service was brought up.
func (d *Deployer) StartService(ctx *provisioning.RunContext) error {
	desc := ctx.State.Descriptor
	if desc == nil {
		desc = d.Describe(ctx.Config)
		ctx.State.Descriptor = desc
	}

	steps := [][]string{
		{"daemon-reload"},
		{"enable", desc.ServiceName},
		{"start", desc.ServiceName},
	}
	for _, argv := range steps {
		if err := ctx.RunCommand("service-start", command.Command{Name: "systemctl", Argv: argv}); err != nil {
			return err
		}
	}

	if !ctx.Config.DryRun {
		ctx.State.ServiceStarted = true
	}
	return nil
}

// ServiceActive reports whether the unit is already running, backing
// the start phase's idempotency predicate.
func (d *Deployer) ServiceActive(ctx *provisioning.RunContext) (bool, error) {
	desc := ctx.State.Descriptor
	if desc == nil {
		return false, nil
	}
	res := ctx.Runner.Run(ctx, command.Command{
		Name: "systemctl",
		Argv: []string{"is-active", "--quiet", desc.ServiceName},
	})
	if res.OK() {
		ctx.State.ServiceStarted = true
	}
	return res.OK(), nil
}
