package platform

import "fmt"

// Family groups distributions by their package tooling lineage.
type Family string

const (
	FamilyDebian  Family = "debian"
	FamilyRHEL    Family = "rhel"
	FamilySUSE    Family = "suse"
	FamilyArch    Family = "arch"
	FamilyUnknown Family = "unknown"
)

// Profile is the detected capability set for the current host. It is
// created once after detection and shared read-only for the run.
type Profile struct {
	// DistroID is the raw ID from os-release (e.g. "ubuntu", "fedora").
	DistroID string

	// Family is the mapped distribution family.
	Family Family

	// PackageManager drives package operations; a no-op when the family
	// is unknown.
	PackageManager PackageManager

	// Firewall is the first backend found in priority order
	// (ufw, firewalld, iptables); a no-op when none is present.
	Firewall FirewallBackend

	// Labeler applies mandatory-access-control labels; a no-op unless
	// SELinux is enforcing.
	Labeler MacLabeler

	// SELinuxEnforcing reports whether label enforcement is active.
	SELinuxEnforcing bool
}

// CapabilityMissing reports an operation attempted against a subsystem
// the host does not have. The pipeline records it as a warning and
// skips the phase; it is never fatal.
type CapabilityMissing struct {
	Capability string
}

// Error implements the error interface.
func (e *CapabilityMissing) Error() string {
	return fmt.Sprintf("capability %q not available on this host", e.Capability)
}
