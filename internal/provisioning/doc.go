// Package provisioning drives the fixed, ordered pipeline that turns a
// bare host into one running the managed media service.
//
// The provisioning domain is organized into focused subpackages:
//   - identity/ handles service account validation and prior-install cleanup
//   - deploy/ manages runtime and application artifacts, unit and logrotate rendering
//   - health/ performs post-start process, port and liveness validation
//   - rollback/ reverses service artifacts on failure
//
// This root package contains the phase executor, the shared run context
// and the observer used for structured progress reporting.
package provisioning
