package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
)

// RenderSummary produces the end-of-run report. It is printed on every
// terminal run, success or failure, and always includes the error log.
func RenderSummary(ctx *provisioning.RunContext, out provisioning.Outcome, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Provisioning summary"))
	b.WriteString("\n")

	switch out.Terminal {
	case provisioning.TerminalSuccess:
		if ctx.Config.DryRun {
			b.WriteString(okStyle.Render(checkMark+" Dry run completed") + dimStyle.Render(" (no changes were made)"))
		} else {
			b.WriteString(okStyle.Render(checkMark + " Provisioning succeeded"))
		}
	case provisioning.TerminalFailedRolledBack:
		b.WriteString(failedStyle.Render(crossMark+" Provisioning failed in phase "+out.FailedPhase) +
			dimStyle.Render(" (service registration rolled back)"))
	case provisioning.TerminalFailedNoRollback:
		b.WriteString(failedStyle.Render(crossMark+" Provisioning failed in phase "+out.FailedPhase) +
			dimStyle.Render(" (rollback suppressed, artifacts left in place)"))
	}
	b.WriteString("\n")

	b.WriteString(dimStyle.Render(fmt.Sprintf("%d/%d phases, %s",
		ctx.State.PhasesCompleted, ctx.State.PhasesTotal, elapsed.Round(time.Millisecond))))
	b.WriteString("\n")

	if desc := ctx.State.Descriptor; desc != nil && out.Terminal == provisioning.TerminalSuccess && !ctx.Config.DryRun {
		b.WriteString(sectionStyle.Render("Service"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  unit       %s\n", desc.ServiceName+".service")
		fmt.Fprintf(&b, "  user       %s\n", desc.User)
		fmt.Fprintf(&b, "  directory  %s\n", desc.InstallDir)
		fmt.Fprintf(&b, "  ports      %s\n", joinPorts(desc.Ports))
		fmt.Fprintf(&b, "  log        %s\n", desc.LogPath)
	}

	b.WriteString(sectionStyle.Render("Issues"))
	b.WriteString("\n")
	if ctx.Errors.Empty() {
		b.WriteString(dimStyle.Render("  none recorded") + "\n")
	} else {
		for _, entry := range ctx.Errors.Entries() {
			mark := warningStyle.Render(warnMark)
			if entry.Severity == command.SeverityFatal {
				mark = failedStyle.Render(crossMark)
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", mark, entry.Phase, entry.Message)
		}
	}

	b.WriteString(dimStyle.Render("Full transcript: " + ctx.Config.LogFile))
	b.WriteString("\n")

	return b.String()
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}
