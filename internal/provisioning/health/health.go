// Package health validates the deployed service after startup: unit
// activity, port reachability, and the application liveness endpoint.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/provisioning"
	"github.com/streamprov/streamprov/internal/util/netutil"
)

// ValidationError reports a failed post-deployment check.
type ValidationError struct {
	Check  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("health validation failed: %s: %s", e.Check, e.Reason)
}

// Validator runs the post-deployment checks. The HTTP client and the
// port prober are injectable for tests.
type Validator struct {
	Client *http.Client

	// Listening probes a local TCP port.
	Listening func(host string, port int, timeout time.Duration) bool

	// Sleep is the settle delay before the first check, giving the
	// service a moment to bind its sockets.
	Sleep func(d time.Duration)
}

// NewValidator creates a validator using real probes.
func NewValidator() *Validator {
	return &Validator{
		Client:    &http.Client{},
		Listening: netutil.Listening,
		Sleep:     time.Sleep,
	}
}

// Validate runs all checks in order: unit active (fatal), configured
// ports listening (warnings only), liveness endpoint responding 2xx
// (fatal, authoritative). A dry run validates nothing since nothing
// was started.
func (v *Validator) Validate(ctx *provisioning.RunContext) error {
	if ctx.Config.DryRun {
		ctx.Observer.Printf("Dry run: skipping health validation")
		return nil
	}

	desc := ctx.State.Descriptor
	if desc == nil {
		return &ValidationError{Check: "unit", Reason: "no deployment descriptor on run state"}
	}

	v.Sleep(ctx.Timeouts.ServiceSettle)

	if err := v.checkUnitActive(ctx, desc.ServiceName); err != nil {
		return err
	}
	v.checkPorts(ctx, desc.Ports)
	return v.checkLiveness(ctx)
}

func (v *Validator) checkUnitActive(ctx *provisioning.RunContext, unit string) error {
	res := ctx.Runner.Run(ctx, command.Command{
		Name: "systemctl",
		Argv: []string{"is-active", unit},
	})
	if !res.OK() {
		return &ValidationError{
			Check:  "unit",
			Reason: fmt.Sprintf("unit %q is not active: %s", unit, res.Output),
		}
	}
	return nil
}

// checkPorts probes each configured port. A port not listening is a
// recorded warning, not a failure: the liveness endpoint is the
// authoritative signal, and some services bind lazily.
func (v *Validator) checkPorts(ctx *provisioning.RunContext, ports []int) {
	for _, port := range ports {
		if v.Listening("localhost", port, ctx.Timeouts.PortProbe) {
			ctx.Observer.Printf("Port %d is listening", port)
			continue
		}
		ctx.Errors.RecordWarning("health-check", fmt.Sprintf("port %d is not listening", port))
		ctx.Observer.Event(provisioning.Event{
			Type:    provisioning.EventWarning,
			Phase:   "health-check",
			Message: fmt.Sprintf("port %d not listening", port),
		})
	}
}

func (v *Validator) checkLiveness(ctx *provisioning.RunContext) error {
	url := ctx.Config.HealthCheckURL

	probe, cancel := context.WithTimeout(ctx, ctx.Timeouts.HealthProbe)
	defer cancel()

	req, err := http.NewRequestWithContext(probe, http.MethodGet, url, nil)
	if err != nil {
		return &ValidationError{Check: "liveness", Reason: err.Error()}
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return &ValidationError{
			Check:  "liveness",
			Reason: fmt.Sprintf("GET %s: %v", url, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ValidationError{
			Check:  "liveness",
			Reason: fmt.Sprintf("GET %s returned %s", url, resp.Status),
		}
	}
	ctx.Observer.Printf("Liveness endpoint %s responded %s", url, resp.Status)
	return nil
}
