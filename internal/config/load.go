package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Warning is a non-fatal observation made while resolving configuration,
// such as an unrecognized key in the persisted file.
type Warning struct {
	Message string
}

// Result bundles the resolved snapshot with resolution warnings and
// whether the persisted file was created by this run.
type Result struct {
	Config      Configuration
	Warnings    []Warning
	FileCreated bool
}

// Resolve builds the configuration snapshot for a run.
//
// Merge order, later winning: defaults, the key=value file at path, then
// flags parsed from argv. A missing file is created from the defaults
// when running with elevated privilege. The snapshot is validated before
// being returned; a validation failure aborts the run pre-mutation.
func Resolve(defaults Configuration, path string, argv []string) (*Result, error) {
	res := &Result{Config: defaults}

	data, err := os.ReadFile(path) // #nosec G304
	switch {
	case err == nil:
		warnings, perr := applyFile(&res.Config, string(data))
		if perr != nil {
			return nil, perr
		}
		res.Warnings = append(res.Warnings, warnings...)
	case os.IsNotExist(err):
		if os.Geteuid() == 0 {
			if werr := WriteFile(path, defaults); werr != nil {
				return nil, fmt.Errorf("failed to create config file: %w", werr)
			}
			res.FileCreated = true
		} else {
			res.Warnings = append(res.Warnings, Warning{
				Message: fmt.Sprintf("config file %s absent and not running as root, using defaults", path),
			})
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyFlags(&res.Config, argv); err != nil {
		return nil, err
	}

	if err := res.Config.Validate(); err != nil {
		return nil, err
	}

	return res, nil
}

// applyFile merges key=value lines into cfg. Unknown keys are reported
// as warnings, not errors, so newer files keep working with older
// binaries.
func applyFile(cfg *Configuration, data string) ([]Warning, error) {
	var warnings []Warning

	for lineNo, raw := range strings.Split(data, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("line %d: not a key=value pair, ignored", lineNo+1),
			})
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := applyKey(cfg, key, value); err != nil {
			if _, unknown := err.(*unknownKeyError); unknown {
				warnings = append(warnings, Warning{
					Message: fmt.Sprintf("line %d: unrecognized key %q, ignored", lineNo+1, key),
				})
				continue
			}
			return warnings, &ConfigError{Field: key, Reason: err.Error()}
		}
	}

	return warnings, nil
}

type unknownKeyError struct{ key string }

func (e *unknownKeyError) Error() string { return fmt.Sprintf("unknown key %q", e.key) }

func applyKey(cfg *Configuration, key, value string) error {
	switch key {
	case "dry_run":
		return setBool(&cfg.DryRun, value)
	case "min_disk_space_mb":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		cfg.MinDiskSpaceMB = n
		return nil
	case "runtime_version":
		cfg.RuntimeVersion = value
		return nil
	case "service_user":
		cfg.ServiceUser = value
		return nil
	case "cleanup_previous":
		return setBool(&cfg.CleanupPrevious, value)
	case "log_file":
		cfg.LogFile = value
		return nil
	case "start_service":
		return setBool(&cfg.StartService, value)
	case "health_check_url":
		cfg.HealthCheckURL = value
		return nil
	case "ports":
		ports, err := parsePorts(value)
		if err != nil {
			return err
		}
		cfg.Ports = ports
		return nil
	case "app_source":
		cfg.AppSource = value
		return nil
	case "package_version":
		cfg.PackageVersion = value
		return nil
	case "quiet":
		return setBool(&cfg.Quiet, value)
	case "force_cleanup":
		return setBool(&cfg.ForceCleanup, value)
	case "no_rollback":
		return setBool(&cfg.NoRollback, value)
	default:
		return &unknownKeyError{key: key}
	}
}

func setBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", value)
	}
	*dst = b
	return nil
}

// parsePorts parses a comma-separated port list, preserving order and
// dropping duplicates.
func parsePorts(value string) ([]int, error) {
	var ports []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("not a port number: %q", part)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		ports = append(ports, p)
	}
	return ports, nil
}

// applyFlags merges recognized invocation flags into cfg. Unrecognized
// flags are ignored by contract.
func applyFlags(cfg *Configuration, argv []string) error {
	fs := pflag.NewFlagSet("streamprov", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}

	force := fs.Bool("force", false, "skip interactive cleanup confirmation")
	quiet := fs.Bool("quiet", false, "suppress interactive prompts and non-essential output")
	noRollback := fs.Bool("no-rollback", false, "disable automatic rollback on failure")
	dryRun := fs.Bool("dry-run", false, "log actions without executing them")
	fs.StringP("config", "c", "", "path to the configuration file")

	if err := fs.Parse(argv); err != nil {
		// Unknown flags are whitelisted; anything else (e.g. a flag
		// missing its value) still parses best-effort and is ignored.
		return nil
	}

	if fs.Changed("force") {
		cfg.ForceCleanup = *force
	}
	if fs.Changed("quiet") {
		cfg.Quiet = *quiet
	}
	if fs.Changed("no-rollback") {
		cfg.NoRollback = *noRollback
	}
	if fs.Changed("dry-run") {
		cfg.DryRun = *dryRun
	}
	return nil
}

// ConfigFilePath extracts --config from argv, falling back to the
// default path. Used before Resolve so the flag can point at the file
// the rest of resolution reads.
func ConfigFilePath(argv []string) string {
	fs := pflag.NewFlagSet("streamprov-config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.StringP("config", "c", DefaultConfigPath, "")
	fs.Bool("force", false, "")
	fs.Bool("quiet", false, "")
	fs.Bool("no-rollback", false, "")
	fs.Bool("dry-run", false, "")
	if err := fs.Parse(argv); err != nil {
		return DefaultConfigPath
	}
	return *path
}

// WriteFile serializes the configuration to the persisted key=value
// format, documenting every recognized key.
func WriteFile(path string, cfg Configuration) error {
	var b strings.Builder
	b.WriteString("# streamprov configuration\n")
	b.WriteString("# key=value, one per line; '#' starts a comment\n")
	for _, kv := range serialize(cfg) {
		b.WriteString(kv)
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func serialize(cfg Configuration) []string {
	portStrs := make([]string, len(cfg.Ports))
	for i, p := range cfg.Ports {
		portStrs[i] = strconv.Itoa(p)
	}

	lines := []string{
		fmt.Sprintf("dry_run=%t", cfg.DryRun),
		fmt.Sprintf("min_disk_space_mb=%d", cfg.MinDiskSpaceMB),
		fmt.Sprintf("runtime_version=%s", cfg.RuntimeVersion),
		fmt.Sprintf("service_user=%s", cfg.ServiceUser),
		fmt.Sprintf("cleanup_previous=%t", cfg.CleanupPrevious),
		fmt.Sprintf("log_file=%s", cfg.LogFile),
		fmt.Sprintf("start_service=%t", cfg.StartService),
		fmt.Sprintf("health_check_url=%s", cfg.HealthCheckURL),
		fmt.Sprintf("ports=%s", strings.Join(portStrs, ",")),
		fmt.Sprintf("app_source=%s", cfg.AppSource),
		fmt.Sprintf("package_version=%s", cfg.PackageVersion),
		fmt.Sprintf("quiet=%t", cfg.Quiet),
		fmt.Sprintf("force_cleanup=%t", cfg.ForceCleanup),
		fmt.Sprintf("no_rollback=%t", cfg.NoRollback),
	}
	sort.Strings(lines)
	return lines
}
