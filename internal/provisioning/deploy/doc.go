// Package deploy materializes the managed service's runtime artifacts:
// the install directory under the service account's home, the Node.js
// runtime at the configured version, the application entrypoint, the
// systemd unit and the log-rotation policy.
//
// Unit and policy files are rendered through typed templates from the
// service descriptor; no shell interpolation is involved anywhere.
package deploy
