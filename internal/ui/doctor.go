package ui

import (
	"fmt"
	"strings"

	"github.com/streamprov/streamprov/internal/doctor"
)

// RenderDoctor produces the human-readable doctor report.
func RenderDoctor(r doctor.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Host diagnosis"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(r.Timestamp.Format("2006-01-02 15:04:05 MST")))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Configuration"))
	b.WriteString("\n")
	b.WriteString(statusLine(r.ConfigOK, r.ConfigPath, "missing, defaults apply"))

	b.WriteString(sectionStyle.Render("Platform"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  distro           %s (%s)\n", r.Platform.DistroID, r.Platform.Family)
	fmt.Fprintf(&b, "  package manager  %s\n", r.Platform.PackageManager)
	firewall := r.Platform.Firewall
	if firewall != "none" && !r.Platform.FirewallActive {
		firewall += dimStyle.Render(" (inactive)")
	}
	fmt.Fprintf(&b, "  firewall         %s\n", firewall)
	fmt.Fprintf(&b, "  selinux          %s\n", enforcing(r.Platform.SELinuxEnforcing))

	b.WriteString(sectionStyle.Render("Service"))
	b.WriteString("\n")
	b.WriteString(statusLine(r.Unit.Present, unitLabel(r), "unit not installed"))
	if r.Unit.Present {
		b.WriteString(statusLine(r.Unit.Active, "unit active", "unit not active"))
		b.WriteString(statusLine(r.Unit.Logrotate, "logrotate policy installed", "logrotate policy missing"))
	}
	for _, p := range r.Ports {
		b.WriteString(statusLine(p.Listening,
			fmt.Sprintf("port %d listening", p.Port),
			fmt.Sprintf("port %d not listening", p.Port)))
	}
	detail := r.Health.URL
	if r.Health.Detail != "" {
		detail += " (" + r.Health.Detail + ")"
	}
	b.WriteString(statusLine(r.Health.Healthy, detail, detail))

	return b.String()
}

func statusLine(ok bool, okText, failText string) string {
	if ok {
		return "  " + okStyle.Render(checkMark) + " " + okText + "\n"
	}
	return "  " + warningStyle.Render(warnMark) + " " + failText + "\n"
}

func unitLabel(r doctor.Report) string {
	if r.Unit.User != "" {
		return fmt.Sprintf("%s (user %s)", r.Unit.Path, r.Unit.User)
	}
	return r.Unit.Path
}

func enforcing(on bool) string {
	if on {
		return "enforcing"
	}
	return "not enforcing"
}
