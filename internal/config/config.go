package config

import "fmt"

// Default file locations. The config file and log file paths are fixed
// interfaces of the tool; everything else is configurable through them.
const (
	DefaultConfigPath = "/etc/streamprov.conf"
	DefaultLogPath    = "/var/log/streamprov.log"
)

// Configuration is the immutable snapshot driving one provisioning run.
type Configuration struct {
	DryRun          bool
	MinDiskSpaceMB  int
	RuntimeVersion  string
	ServiceUser     string
	CleanupPrevious bool
	LogFile         string
	StartService    bool
	HealthCheckURL  string
	Ports           []int
	AppSource       string
	PackageVersion  string
	Quiet           bool
	ForceCleanup    bool
	NoRollback      bool
}

// Defaults returns the compiled-in configuration, the lowest-precedence
// merge source and the content written to a freshly created config file.
func Defaults() Configuration {
	return Configuration{
		DryRun:          false,
		MinDiskSpaceMB:  2048,
		RuntimeVersion:  "20.11.1",
		ServiceUser:     "mediaserver",
		CleanupPrevious: false,
		LogFile:         DefaultLogPath,
		StartService:    true,
		HealthCheckURL:  "http://localhost:8000/api/server",
		Ports:           []int{1935, 8000},
		AppSource:       "https://get.streamprov.dev/mediaserver/latest/server.js",
		PackageVersion:  "latest",
		Quiet:           false,
		ForceCleanup:    false,
		NoRollback:      false,
	}
}

// ConfigError reports a configuration field that failed validation.
// Runs abort on it before any mutating phase executes.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
