package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// usernamePattern is the POSIX portable username grammar enforced for
// the service account.
var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// Validate checks the snapshot for errors that must abort the run before
// any mutating phase executes.
func (c Configuration) Validate() error {
	if c.ServiceUser == "" {
		return &ConfigError{Field: "service_user", Reason: "required"}
	}
	if !usernamePattern.MatchString(c.ServiceUser) {
		return &ConfigError{
			Field:  "service_user",
			Reason: fmt.Sprintf("%q does not match %s", c.ServiceUser, usernamePattern.String()),
		}
	}
	if c.ServiceUser == "root" {
		return &ConfigError{Field: "service_user", Reason: "the service must not run as root"}
	}

	if c.MinDiskSpaceMB < 0 {
		return &ConfigError{Field: "min_disk_space_mb", Reason: "must not be negative"}
	}

	if len(c.Ports) == 0 {
		return &ConfigError{Field: "ports", Reason: "at least one port is required"}
	}
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			return &ConfigError{Field: "ports", Reason: fmt.Sprintf("port %d out of range 1-65535", p)}
		}
	}

	if err := validateHTTPURL(c.HealthCheckURL); err != nil {
		return &ConfigError{Field: "health_check_url", Reason: err.Error()}
	}

	if c.AppSource == "" {
		return &ConfigError{Field: "app_source", Reason: "required"}
	}
	if AppSourceIsURL(c.AppSource) {
		if err := validateHTTPURL(c.AppSource); err != nil {
			return &ConfigError{Field: "app_source", Reason: err.Error()}
		}
	} else if !strings.HasPrefix(c.AppSource, "/") {
		return &ConfigError{Field: "app_source", Reason: "must be an http(s) URL or an absolute path"}
	}

	if c.RuntimeVersion == "" {
		return &ConfigError{Field: "runtime_version", Reason: "required"}
	}
	if c.LogFile == "" {
		return &ConfigError{Field: "log_file", Reason: "required"}
	}

	return nil
}

// AppSourceIsURL reports whether the application source is fetched over
// the network rather than copied from a local path.
func AppSourceIsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
