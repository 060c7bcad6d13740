// Package rollback undoes a failed run's service registration: it
// stops and disables the unit and removes the unit file and the
// log-rotation policy. Accounts, packages and downloaded artifacts are
// left in place for inspection.
package rollback

import (
	"fmt"
	"os"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// Controller reverses the service registration steps. Every step is
// best-effort and idempotent so a rollback can itself be retried.
type Controller struct {
	UnitPath      string
	LogrotatePath string
}

// NewController creates a controller for the real host layout.
func NewController() *Controller {
	return &Controller{
		UnitPath:      provisioning.UnitPath,
		LogrotatePath: provisioning.LogrotatePath,
	}
}

// Run executes the rollback. It never aborts on a failing step: later
// steps still undo what they can, and every failure is recorded as a
// warning. A dry run only records the commands it would have run.
func (c *Controller) Run(ctx *provisioning.RunContext) error {
	ctx.Observer.Event(provisioning.Event{Type: provisioning.EventRollbackStarted, Message: "rolling back service registration"})

	for _, argv := range [][]string{
		{"stop", provisioning.ServiceName},
		{"disable", provisioning.ServiceName},
	} {
		if err := ctx.RunCommand("rollback", command.Command{Name: "systemctl", Argv: argv}); err != nil {
			ctx.Errors.RecordWarning("rollback", fmt.Sprintf("systemctl %s failed: %v", argv[0], err))
		}
	}

	c.removeFile(ctx, c.UnitPath)
	c.removeFile(ctx, c.LogrotatePath)

	if err := ctx.RunCommand("rollback", command.Command{
		Name: "systemctl",
		Argv: []string{"daemon-reload"},
	}); err != nil {
		ctx.Errors.RecordWarning("rollback", fmt.Sprintf("daemon-reload failed: %v", err))
	}

	ctx.State.ServiceStarted = false
	ctx.Observer.Event(provisioning.Event{Type: provisioning.EventRollbackCompleted, Message: "rollback finished"})
	return nil
}

// removeFile deletes an artifact if it exists. A missing file is the
// desired state, not an error.
func (c *Controller) removeFile(ctx *provisioning.RunContext, path string) {
	if ctx.Config.DryRun {
		ctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventCommandPlanned, Phase: "rollback", Message: "rm -f " + path,
		})
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ctx.Errors.RecordWarning("rollback", fmt.Sprintf("could not remove %s: %v", path, err))
	}
}
