package platform

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/streamprov/streamprov/internal/command"
)

// Detector probes the host and builds a Profile. The zero value is not
// usable; construct with NewDetector. Paths and lookup functions are
// fields so tests can point detection at fixtures.
type Detector struct {
	// Runner executes the read-only probe commands (firewall state,
	// getenforce). Probes never mutate the host.
	Runner command.Runner

	// OSReleasePath is the host identification file, normally
	// /etc/os-release.
	OSReleasePath string

	// SELinuxEnforcePath is the generic enforcement indicator, normally
	// /sys/fs/selinux/enforce.
	SELinuxEnforcePath string

	// LookPath resolves a binary in PATH, normally exec.LookPath.
	LookPath func(file string) (string, error)
}

// NewDetector creates a detector wired to the real host.
func NewDetector(r command.Runner) *Detector {
	return &Detector{
		Runner:             r,
		OSReleasePath:      "/etc/os-release",
		SELinuxEnforcePath: "/sys/fs/selinux/enforce",
		LookPath:           exec.LookPath,
	}
}

// Detect builds the capability profile for this host. It never fails:
// anything it cannot identify degrades to a no-op capability.
func (d *Detector) Detect(ctx context.Context) *Profile {
	distroID, family := d.detectFamily()

	profile := &Profile{
		DistroID: distroID,
		Family:   family,
	}

	profile.PackageManager = d.packageManagerFor(family)
	profile.Firewall = d.detectFirewall()
	profile.SELinuxEnforcing = d.detectSELinux(ctx, family)
	if profile.SELinuxEnforcing {
		profile.Labeler = NewSELinuxLabeler(d.Runner)
	} else {
		profile.Labeler = NoopLabeler{}
	}

	return profile
}

// detectFamily parses os-release into a distro ID and family. A missing
// or unreadable file yields the unknown family.
func (d *Detector) detectFamily() (string, Family) {
	data, err := os.ReadFile(d.OSReleasePath) // #nosec G304
	if err != nil {
		return "", FamilyUnknown
	}

	var id, idLike string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "ID="); ok {
			id = strings.Trim(v, `"`)
		}
		if v, ok := strings.CutPrefix(line, "ID_LIKE="); ok {
			idLike = strings.Trim(v, `"`)
		}
	}

	if f := familyOf(id); f != FamilyUnknown {
		return id, f
	}
	// Fall back to the declared lineage for derivatives.
	for _, like := range strings.Fields(idLike) {
		if f := familyOf(like); f != FamilyUnknown {
			return id, f
		}
	}
	return id, FamilyUnknown
}

func familyOf(id string) Family {
	switch id {
	case "debian", "ubuntu", "raspbian", "linuxmint", "pop":
		return FamilyDebian
	case "fedora", "rhel", "centos", "rocky", "almalinux", "amzn":
		return FamilyRHEL
	case "opensuse", "opensuse-leap", "opensuse-tumbleweed", "sles":
		return FamilySUSE
	case "arch", "manjaro", "endeavouros":
		return FamilyArch
	default:
		return FamilyUnknown
	}
}

func (d *Detector) packageManagerFor(family Family) PackageManager {
	switch family {
	case FamilyDebian:
		return NewApt(d.Runner)
	case FamilyRHEL:
		return NewDnf(d.Runner)
	case FamilySUSE:
		return NewZypper(d.Runner)
	case FamilyArch:
		return NewPacman(d.Runner)
	default:
		return NoopPackageManager{}
	}
}

// detectFirewall returns the first backend found in the fixed priority
// order: ufw, firewalld, iptables.
func (d *Detector) detectFirewall() FirewallBackend {
	if _, err := d.LookPath("ufw"); err == nil {
		return NewUfw(d.Runner)
	}
	if _, err := d.LookPath("firewall-cmd"); err == nil {
		return NewFirewalld(d.Runner)
	}
	if _, err := d.LookPath("iptables"); err == nil {
		return NewIptables(d.Runner)
	}
	return NoopFirewall{}
}

// detectSELinux checks label enforcement for families known to use it,
// with a generic sysfs fallback for everything else.
func (d *Detector) detectSELinux(ctx context.Context, family Family) bool {
	if family == FamilyRHEL {
		if _, err := d.LookPath("getenforce"); err == nil {
			res := d.Runner.Run(ctx, command.Command{Name: "getenforce"})
			return res.ExitCode == 0 && strings.Contains(res.Output, "Enforcing")
		}
	}

	data, err := os.ReadFile(d.SELinuxEnforcePath) // #nosec G304
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}
