// Package config resolves the provisioning configuration for a run.
//
// A Configuration is built exactly once per invocation by merging three
// sources, later sources winning: compiled-in defaults, the persisted
// key=value file at /etc/streamprov.conf, and command-line flags. The
// resulting snapshot is validated and never mutated afterwards; every
// other component receives it read-only.
//
// When the persisted file is absent and the process runs with elevated
// privilege, Resolve writes a fresh file populated with the defaults so
// subsequent runs are reproducible. That write is part of the contract.
package config
