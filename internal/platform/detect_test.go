package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamprov/streamprov/internal/command"
)

func writeOSRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// lookPathFor returns a LookPath that only finds the given binaries.
func lookPathFor(found ...string) func(string) (string, error) {
	set := make(map[string]bool, len(found))
	for _, f := range found {
		set[f] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/sbin/" + file, nil
		}
		return "", errors.New("not found")
	}
}

func newTestDetector(t *testing.T, osRelease string, binaries ...string) (*Detector, *command.FakeRunner) {
	t.Helper()
	fake := command.NewFakeRunner()
	return &Detector{
		Runner:             fake,
		OSReleasePath:      writeOSRelease(t, osRelease),
		SELinuxEnforcePath: filepath.Join(t.TempDir(), "enforce"),
		LookPath:           lookPathFor(binaries...),
	}, fake
}

func TestDetectFamilies(t *testing.T) {
	tests := []struct {
		name      string
		osRelease string
		distroID  string
		family    Family
		pkgName   string
	}{
		{
			name:      "ubuntu",
			osRelease: "ID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"24.04\"\n",
			distroID:  "ubuntu",
			family:    FamilyDebian,
			pkgName:   "apt",
		},
		{
			name:      "fedora",
			osRelease: "ID=fedora\nVERSION_ID=41\n",
			distroID:  "fedora",
			family:    FamilyRHEL,
			pkgName:   "dnf",
		},
		{
			name:      "rocky quoted",
			osRelease: "ID=\"rocky\"\nID_LIKE=\"rhel centos fedora\"\n",
			distroID:  "rocky",
			family:    FamilyRHEL,
			pkgName:   "dnf",
		},
		{
			name:      "opensuse leap",
			osRelease: "ID=opensuse-leap\n",
			distroID:  "opensuse-leap",
			family:    FamilySUSE,
			pkgName:   "zypper",
		},
		{
			name:      "arch",
			osRelease: "ID=arch\n",
			distroID:  "arch",
			family:    FamilyArch,
			pkgName:   "pacman",
		},
		{
			name:      "derivative via id_like",
			osRelease: "ID=weirdix\nID_LIKE=\"sidux debian\"\n",
			distroID:  "weirdix",
			family:    FamilyDebian,
			pkgName:   "apt",
		},
		{
			name:      "unknown",
			osRelease: "ID=plan9ish\n",
			distroID:  "plan9ish",
			family:    FamilyUnknown,
			pkgName:   "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDetector(t, tt.osRelease)

			profile := d.Detect(context.Background())

			assert.Equal(t, tt.distroID, profile.DistroID)
			assert.Equal(t, tt.family, profile.Family)
			assert.Equal(t, tt.pkgName, profile.PackageManager.Name())
			assert.Equal(t, tt.family != FamilyUnknown, profile.PackageManager.Available())
		})
	}
}

func TestDetectNeverFails(t *testing.T) {
	d := &Detector{
		Runner:             command.NewFakeRunner(),
		OSReleasePath:      "/does/not/exist",
		SELinuxEnforcePath: "/does/not/exist/either",
		LookPath:           lookPathFor(),
	}

	profile := d.Detect(context.Background())

	require.NotNil(t, profile)
	assert.Equal(t, FamilyUnknown, profile.Family)
	assert.False(t, profile.PackageManager.Available())
	assert.False(t, profile.Firewall.Available())
	assert.False(t, profile.SELinuxEnforcing)
	assert.False(t, profile.Labeler.Enabled())
}

func TestFirewallPriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		binaries []string
		expected string
	}{
		{"ufw wins over all", []string{"ufw", "firewall-cmd", "iptables"}, "ufw"},
		{"firewalld wins over iptables", []string{"firewall-cmd", "iptables"}, "firewalld"},
		{"iptables last", []string{"iptables"}, "iptables"},
		{"none present", nil, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDetector(t, "ID=ubuntu\n", tt.binaries...)

			profile := d.Detect(context.Background())

			assert.Equal(t, tt.expected, profile.Firewall.Name())
		})
	}
}

func TestDetectSELinuxEnforcingViaGetenforce(t *testing.T) {
	d, fake := newTestDetector(t, "ID=fedora\n", "getenforce")
	fake.Respond("getenforce", 0, "Enforcing\n")

	profile := d.Detect(context.Background())

	assert.True(t, profile.SELinuxEnforcing)
	assert.True(t, profile.Labeler.Enabled())
}

func TestDetectSELinuxPermissive(t *testing.T) {
	d, fake := newTestDetector(t, "ID=fedora\n", "getenforce")
	fake.Respond("getenforce", 0, "Permissive\n")

	profile := d.Detect(context.Background())

	assert.False(t, profile.SELinuxEnforcing)
	assert.False(t, profile.Labeler.Enabled())
}

func TestDetectSELinuxGenericFallback(t *testing.T) {
	d, _ := newTestDetector(t, "ID=ubuntu\n")
	enforcePath := filepath.Join(t.TempDir(), "enforce")
	require.NoError(t, os.WriteFile(enforcePath, []byte("1\n"), 0o644))
	d.SELinuxEnforcePath = enforcePath

	profile := d.Detect(context.Background())

	assert.True(t, profile.SELinuxEnforcing)
}
