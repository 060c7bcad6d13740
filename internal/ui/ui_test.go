package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/doctor"
	"github.com/streamprov/streamprov/internal/provisioning"
)

func summaryContext(cfg config.Configuration) *provisioning.RunContext {
	return &provisioning.RunContext{
		Context:  context.Background(),
		Config:   cfg,
		Errors:   command.NewErrorLog(),
		Observer: &provisioning.RecordingObserver{},
		State: &provisioning.State{
			PhasesCompleted: 11,
			PhasesTotal:     11,
			Descriptor:      provisioning.NewDescriptor("svc1", "/home/svc1", "/var/log/streamprov.log", []int{1935, 8000}),
		},
	}
}

func TestRenderSummarySuccess(t *testing.T) {
	ctx := summaryContext(config.Defaults())

	out := RenderSummary(ctx, provisioning.Outcome{Terminal: provisioning.TerminalSuccess}, 42*time.Second)

	assert.Contains(t, out, "Provisioning succeeded")
	assert.Contains(t, out, "11/11 phases")
	assert.Contains(t, out, "mediaserver.service")
	assert.Contains(t, out, "1935, 8000")
	assert.Contains(t, out, "none recorded")
	assert.Contains(t, out, "/var/log/streamprov.log")
}

func TestRenderSummaryDryRun(t *testing.T) {
	cfg := config.Defaults()
	cfg.DryRun = true
	ctx := summaryContext(cfg)

	out := RenderSummary(ctx, provisioning.Outcome{Terminal: provisioning.TerminalSuccess}, time.Second)

	assert.Contains(t, out, "Dry run completed")
	assert.NotContains(t, out, "Provisioning succeeded")
}

func TestRenderSummaryFailure(t *testing.T) {
	ctx := summaryContext(config.Defaults())
	ctx.Errors.RecordWarning("system-upgrade", "mirror unreachable")
	ctx.Errors.RecordFatal("deploy", "runtime fetch failed")

	out := RenderSummary(ctx, provisioning.Outcome{
		Terminal:    provisioning.TerminalFailedRolledBack,
		ExitCode:    1,
		FailedPhase: "deploy",
	}, time.Minute)

	assert.Contains(t, out, "failed in phase deploy")
	assert.Contains(t, out, "rolled back")
	assert.Contains(t, out, "mirror unreachable")
	assert.Contains(t, out, "runtime fetch failed")
}

func TestRenderSummaryNoRollback(t *testing.T) {
	ctx := summaryContext(config.Defaults())

	out := RenderSummary(ctx, provisioning.Outcome{
		Terminal:    provisioning.TerminalFailedNoRollback,
		FailedPhase: "health-check",
	}, time.Minute)

	assert.Contains(t, out, "rollback suppressed")
}

func TestRenderDoctor(t *testing.T) {
	report := doctor.Report{
		ConfigPath: config.DefaultConfigPath,
		ConfigOK:   true,
		Platform: doctor.PlatformReport{
			DistroID:       "ubuntu",
			Family:         "debian",
			PackageManager: "apt",
			Firewall:       "ufw",
			FirewallActive: true,
		},
		Unit: doctor.UnitReport{
			Path:      provisioning.UnitPath,
			Present:   true,
			User:      "svc1",
			Active:    true,
			Logrotate: true,
		},
		Ports: []doctor.PortReport{
			{Port: 1935, Listening: true},
			{Port: 8000, Listening: false},
		},
		Health: doctor.HealthReport{URL: "http://localhost:8000/api/server", Healthy: true, Detail: "200 OK"},
	}

	out := RenderDoctor(report)

	assert.Contains(t, out, "ubuntu (debian)")
	assert.Contains(t, out, "apt")
	assert.Contains(t, out, "user svc1")
	assert.Contains(t, out, "unit active")
	assert.Contains(t, out, "port 1935 listening")
	assert.Contains(t, out, "port 8000 not listening")
	assert.Contains(t, out, "200 OK")
}
