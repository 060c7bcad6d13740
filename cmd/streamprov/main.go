// Package main is the entry point for the streamprov CLI.
//
// streamprov provisions a single Linux host to run the mediaserver
// streaming service unattended: packages, service account, Node.js
// runtime, systemd unit, firewall rules and log rotation, ending with a
// health validation of the running service.
//
// Commands: provision, rollback, doctor, version, completion.
//
// For detailed usage information, run:
//
//	streamprov --help
package main

import (
	"fmt"
	"os"

	"github.com/streamprov/streamprov/cmd/streamprov/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
