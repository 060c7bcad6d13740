package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/doctor"
	"github.com/streamprov/streamprov/internal/ui"
)

// newDoctor builds the host inspector (injectable for tests).
var newDoctor = func(r command.Runner) *doctor.Doctor {
	return doctor.New(r)
}

// Doctor diagnoses the host read-only and writes the report in the
// requested format. It needs no privilege.
func Doctor(ctx context.Context, argv []string, output string, out io.Writer) error {
	path := config.ConfigFilePath(argv)
	res, err := config.Resolve(config.Defaults(), path, argv)
	if err != nil {
		return err
	}
	cfg := res.Config

	runner := newRunner(false)
	profile := detectPlatform(ctx, runner)
	report := newDoctor(runner).Diagnose(ctx, cfg, profile, path)

	switch output {
	case "", "text":
		fmt.Fprintln(out, ui.RenderDoctor(report))
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		return yaml.NewEncoder(out).Encode(report)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
	}
}
