package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/user"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/platform"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/provisioning/deploy"
	"github.com/streamprov/streamprov/internal/provisioning/health"
	"github.com/streamprov/streamprov/internal/provisioning/identity"
	"github.com/streamprov/streamprov/internal/provisioning/phases"
	"github.com/streamprov/streamprov/internal/provisioning/rollback"
)

// harness assembles a complete hermetic run: scripted runner, scratch
// artifact paths and a stub health endpoint.
type harness struct {
	runner     *command.FakeRunner
	observer   *provisioning.RecordingObserver
	ctx        *provisioning.RunContext
	components phases.Components
	controller *rollback.Controller
	server     *httptest.Server

	unitPath      string
	logrotatePath string
	home          string
	healthCode    int
}

func newHarness(cfg config.Configuration) *harness {
	h := &harness{
		runner:        command.NewFakeRunner(),
		observer:      &provisioning.RecordingObserver{},
		unitPath:      filepath.Join(GinkgoT().TempDir(), "mediaserver.service"),
		logrotatePath: filepath.Join(GinkgoT().TempDir(), "mediaserver"),
		home:          GinkgoT().TempDir(),
		healthCode:    http.StatusOK,
	}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(h.healthCode)
	}))
	DeferCleanup(h.server.Close)
	cfg.HealthCheckURL = h.server.URL + "/api/server"

	h.runner.Respond("ufw status", 0, "Status: active")
	h.runner.Respond("systemctl is-active --quiet", 3, "inactive")

	d := deploy.NewDeployer()
	d.UnitPath = h.unitPath
	d.LogrotatePath = h.logrotatePath
	d.JournaldPath = filepath.Join(GinkgoT().TempDir(), "99-mediaserver.conf")
	d.FreeSpace = func(string) (int, error) { return 1 << 20, nil }
	d.LookupHome = func(string) (string, error) { return h.home, nil }

	m := identity.NewManager()
	m.UnitPath = h.unitPath
	m.LogrotatePath = h.logrotatePath
	m.HomeRoot = GinkgoT().TempDir()
	m.Lookup = func(name string) (*user.User, error) { return nil, user.UnknownUserError(name) }
	m.Interactive = func() bool { return false }

	v := health.NewValidator()
	v.Sleep = func(time.Duration) {}
	v.Listening = func(string, int, time.Duration) bool { return true }

	h.components = phases.Components{Deployer: d, Identity: m, Validator: v}
	h.controller = &rollback.Controller{UnitPath: h.unitPath, LogrotatePath: h.logrotatePath}

	var runner command.Runner = h.runner
	if cfg.DryRun {
		runner = command.NewDryRunner()
	}

	h.ctx = &provisioning.RunContext{
		Context:  context.Background(),
		Config:   cfg,
		Profile:  profileFor(runner),
		Runner:   runner,
		Errors:   command.NewErrorLog(),
		Observer: h.observer,
		Timeouts: &config.Timeouts{
			RetryMaxAttempts:  3,
			RetryInitialDelay: time.Millisecond,
			ServiceSettle:     time.Millisecond,
			HealthProbe:       time.Second,
			PortProbe:         time.Millisecond,
		},
		State: &provisioning.State{Stage: provisioning.StagePlatformDetected},
	}
	return h
}

func profileFor(r command.Runner) *platform.Profile {
	return &platform.Profile{
		DistroID:       "ubuntu",
		Family:         platform.FamilyDebian,
		PackageManager: platform.NewApt(r),
		Firewall:       platform.NewUfw(r),
		Labeler:        platform.NoopLabeler{},
	}
}

func (h *harness) run() provisioning.Outcome {
	catalog := phases.Build(h.ctx, h.components)
	return provisioning.RunPhases(h.ctx, catalog, func(rc *provisioning.RunContext) {
		h.controller.Run(rc) //nolint:errcheck
	})
}

var _ = Describe("Provisioning a fresh host", func() {
	It("reaches a validated service with an empty error log", func() {
		h := newHarness(config.Defaults())

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalSuccess))
		Expect(out.ExitCode).To(BeZero())
		Expect(h.ctx.Errors.Empty()).To(BeTrue())
		Expect(h.ctx.State.Stage).To(Equal(provisioning.StageValidated))
		Expect(h.unitPath).To(BeAnExistingFile())
		Expect(h.logrotatePath).To(BeAnExistingFile())

		lines := h.runner.CallLines()
		Expect(lines).To(ContainElement("apt-get update"))
		Expect(lines).To(ContainElement("useradd -m -s /usr/sbin/nologin mediaserver"))
		Expect(lines).To(ContainElement("ufw allow 1935/tcp"))
		Expect(lines).To(ContainElement("ufw allow 8000/tcp"))
		Expect(lines).To(ContainElement("systemctl start mediaserver"))
	})

	It("is idempotent on an immediate second run", func() {
		h := newHarness(config.Defaults())
		Expect(h.run().Terminal).To(Equal(provisioning.TerminalSuccess))

		// The artifacts are in place; fake the bits the scripted runner
		// could not materialize and mark the unit active.
		desc := h.ctx.State.Descriptor
		Expect(os.MkdirAll(filepath.Dir(desc.NodeBinary), 0o755)).To(Succeed())
		Expect(os.WriteFile(desc.NodeBinary, []byte("#!node"), 0o755)).To(Succeed())
		Expect(os.WriteFile(desc.Entrypoint, []byte("// app"), 0o644)).To(Succeed())
		h.runner.Respond("systemctl is-active --quiet", 0, "active")
		h.runner.Respond("ufw status", 0, "Status: active\n1935/tcp ALLOW\n8000/tcp ALLOW")
		h.components.Identity.Lookup = func(name string) (*user.User, error) {
			return &user.User{Username: name, HomeDir: h.home}, nil
		}

		before := len(h.runner.Calls)
		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalSuccess))
		satisfied := h.observer.EventsOfType(provisioning.EventPhaseSatisfied)
		names := make([]string, 0, len(satisfied))
		for _, e := range satisfied {
			names = append(names, e.Phase)
		}
		Expect(names).To(ContainElements("base-packages", "service-user", "journald-limits", "deploy", "firewall", "service-start"))

		// No mutating commands beyond probes and the unconditional
		// refresh/upgrade/clean steps.
		for _, line := range h.runner.CallLines()[before:] {
			Expect(line).NotTo(HavePrefix("useradd"))
			Expect(line).NotTo(HavePrefix("curl"))
			Expect(line).NotTo(HavePrefix("ufw allow"))
		}
	})
})

var _ = Describe("Dry-run mode", func() {
	It("records every action and mutates nothing", func() {
		cfg := config.Defaults()
		cfg.DryRun = true
		h := newHarness(cfg)

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalSuccess))
		Expect(h.ctx.Errors.Empty()).To(BeTrue())
		Expect(h.unitPath).NotTo(BeAnExistingFile())
		Expect(h.logrotatePath).NotTo(BeAnExistingFile())
		Expect(h.runner.Calls).To(BeEmpty(), "the real runner must never execute")

		dry := h.ctx.Runner.(*command.DryRunner)
		Expect(dry.Recorded).NotTo(BeEmpty())
		Expect(h.ctx.State.Stage).To(Equal(provisioning.StagePhasesRunning), "milestones never advance in a dry run")
	})
})

var _ = Describe("Fatal failure handling", func() {
	It("rolls back the service registration when the deploy fetch fails", func() {
		h := newHarness(config.Defaults())
		h.runner.Respond("curl", 22, "curl: (22) The requested URL returned error: 500")

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalFailedRolledBack))
		Expect(out.ExitCode).To(Equal(1))
		Expect(out.FailedPhase).To(Equal("deploy"))
		Expect(h.unitPath).NotTo(BeAnExistingFile())
		Expect(h.ctx.Errors.HasFatal()).To(BeTrue())
		Expect(h.observer.EventsOfType(provisioning.EventPhaseRetrying)).To(HaveLen(2), "network phases retry before failing")
	})

	It("rolls back the service registration when the liveness endpoint reports failure", func() {
		h := newHarness(config.Defaults())
		h.healthCode = http.StatusInternalServerError

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalFailedRolledBack))
		Expect(out.ExitCode).To(Equal(1))
		Expect(out.FailedPhase).To(Equal("health-check"))
		Expect(h.unitPath).NotTo(BeAnExistingFile(), "rollback removes the unit the deploy wrote")
		Expect(h.logrotatePath).NotTo(BeAnExistingFile())
		Expect(h.ctx.Errors.HasFatal()).To(BeTrue())
	})

	It("leaves artifacts in place when rollback is suppressed", func() {
		cfg := config.Defaults()
		cfg.NoRollback = true
		h := newHarness(cfg)
		h.runner.Respond("systemctl start", 1, "Job for mediaserver.service failed.")

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalFailedNoRollback))
		Expect(h.unitPath).To(BeAnExistingFile())
	})

	It("continues past warn-critical failures", func() {
		h := newHarness(config.Defaults())
		h.runner.Respond("apt-get upgrade", 100, "E: Some index files failed to download")

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalSuccess))
		Expect(h.ctx.Errors.Empty()).To(BeFalse())
		Expect(h.ctx.Errors.HasFatal()).To(BeFalse())
	})
})

var _ = Describe("Previous installation cleanup", func() {
	It("removes the old identity's installation before deploying the new one", func() {
		cfg := config.Defaults()
		cfg.ServiceUser = "svc2"
		cfg.CleanupPrevious = true
		cfg.ForceCleanup = true
		h := newHarness(cfg)

		Expect(os.WriteFile(h.unitPath, []byte("[Service]\nUser=svc1\n"), 0o644)).To(Succeed())

		out := h.run()

		Expect(out.Terminal).To(Equal(provisioning.TerminalSuccess))
		lines := h.runner.CallLines()
		Expect(lines).To(ContainElement("userdel -r svc1"))
		Expect(lines).To(ContainElement("useradd -m -s /usr/sbin/nologin svc2"))

		data, err := os.ReadFile(h.unitPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("User=svc2"))
	})
})
