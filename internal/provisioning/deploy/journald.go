package deploy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// JournaldDropInPath is where the journal size cap is installed.
const JournaldDropInPath = "/etc/systemd/journald.conf.d/99-mediaserver.conf"

const journaldDropIn = `[Journal]
SystemMaxUse=200M
RuntimeMaxUse=100M
`

// JournaldSatisfied reports whether the drop-in is already in place
// with the expected content.
func JournaldSatisfied(path string) (bool, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return false, nil
	}
	return string(data) == journaldDropIn, nil
}

// EnsureJournaldLimits installs the journal size cap and restarts the
// journal daemon to apply it.
func (d *Deployer) EnsureJournaldLimits(ctx *provisioning.RunContext) error {
	path := d.JournaldPath
	if ctx.Config.DryRun {
		ctx.Observer.Event(provisioning.Event{
			Type: provisioning.EventCommandPlanned, Phase: "journald-limits", Message: "write " + path,
		})
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating journald drop-in directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(journaldDropIn), 0o644); err != nil {
			return fmt.Errorf("writing journald drop-in: %w", err)
		}
	}

	return ctx.RunCommand("journald-limits", command.Command{
		Name: "systemctl",
		Argv: []string{"restart", "systemd-journald"},
	})
}
