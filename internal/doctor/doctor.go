// Package doctor inspects a host and reports the state of the managed
// service: platform capabilities, artifact presence, unit activity and
// endpoint health. It never mutates anything.
package doctor

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/platform"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/util/netutil"
)

// Report is the full diagnosis. Field tags serve the json and yaml
// output modes.
type Report struct {
	Timestamp  time.Time      `json:"timestamp" yaml:"timestamp"`
	ConfigPath string         `json:"configPath" yaml:"configPath"`
	ConfigOK   bool           `json:"configPresent" yaml:"configPresent"`
	Platform   PlatformReport `json:"platform" yaml:"platform"`
	Unit       UnitReport     `json:"unit" yaml:"unit"`
	Ports      []PortReport   `json:"ports" yaml:"ports"`
	Health     HealthReport   `json:"health" yaml:"health"`
}

// PlatformReport describes the detected host capabilities.
type PlatformReport struct {
	DistroID         string `json:"distro" yaml:"distro"`
	Family           string `json:"family" yaml:"family"`
	PackageManager   string `json:"packageManager" yaml:"packageManager"`
	Firewall         string `json:"firewall" yaml:"firewall"`
	FirewallActive   bool   `json:"firewallActive" yaml:"firewallActive"`
	SELinuxEnforcing bool   `json:"selinuxEnforcing" yaml:"selinuxEnforcing"`
}

// UnitReport describes the installed service unit, if any.
type UnitReport struct {
	Path      string `json:"path" yaml:"path"`
	Present   bool   `json:"present" yaml:"present"`
	User      string `json:"user,omitempty" yaml:"user,omitempty"`
	Active    bool   `json:"active" yaml:"active"`
	Logrotate bool   `json:"logrotatePolicy" yaml:"logrotatePolicy"`
}

// PortReport is one configured port's listening state.
type PortReport struct {
	Port      int  `json:"port" yaml:"port"`
	Listening bool `json:"listening" yaml:"listening"`
}

// HealthReport is the liveness endpoint's state.
type HealthReport struct {
	URL     string `json:"url" yaml:"url"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Doctor gathers a Report. All probes are injectable for tests.
type Doctor struct {
	UnitPath      string
	LogrotatePath string
	Runner        command.Runner
	Client        *http.Client

	Listening func(host string, port int, timeout time.Duration) bool
}

// New creates a doctor probing the real host.
func New(runner command.Runner) *Doctor {
	return &Doctor{
		UnitPath:      provisioning.UnitPath,
		LogrotatePath: provisioning.LogrotatePath,
		Runner:        runner,
		Client:        &http.Client{Timeout: 5 * time.Second},
		Listening:     netutil.Listening,
	}
}

// Diagnose inspects the host against the resolved configuration.
func (d *Doctor) Diagnose(ctx context.Context, cfg config.Configuration, profile *platform.Profile, configPath string) Report {
	report := Report{
		Timestamp:  time.Now().UTC(),
		ConfigPath: configPath,
		Platform: PlatformReport{
			DistroID:         profile.DistroID,
			Family:           string(profile.Family),
			PackageManager:   profile.PackageManager.Name(),
			Firewall:         profile.Firewall.Name(),
			FirewallActive:   profile.Firewall.Available() && profile.Firewall.Active(ctx),
			SELinuxEnforcing: profile.SELinuxEnforcing,
		},
	}

	if _, err := os.Stat(configPath); err == nil {
		report.ConfigOK = true
	}

	report.Unit = d.inspectUnit(ctx)

	for _, port := range cfg.Ports {
		report.Ports = append(report.Ports, PortReport{
			Port:      port,
			Listening: d.Listening("localhost", port, 2*time.Second),
		})
	}

	report.Health = d.probeHealth(ctx, cfg.HealthCheckURL)
	return report
}

func (d *Doctor) inspectUnit(ctx context.Context) UnitReport {
	unit := UnitReport{Path: d.UnitPath}

	data, err := os.ReadFile(d.UnitPath) // #nosec G304
	if err != nil {
		return unit
	}
	unit.Present = true
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "User="); ok {
			unit.User = strings.TrimSpace(v)
			break
		}
	}

	res := d.Runner.Run(ctx, command.Command{
		Name: "systemctl",
		Argv: []string{"is-active", "--quiet", provisioning.ServiceName},
	})
	unit.Active = res.OK()

	if _, err := os.Stat(d.LogrotatePath); err == nil {
		unit.Logrotate = true
	}
	return unit
}

func (d *Doctor) probeHealth(ctx context.Context, url string) HealthReport {
	health := HealthReport{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		health.Detail = err.Error()
		return health
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		health.Detail = err.Error()
		return health
	}
	defer resp.Body.Close()

	health.Detail = resp.Status
	health.Healthy = resp.StatusCode >= 200 && resp.StatusCode <= 299
	return health
}
