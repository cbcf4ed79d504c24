// Package render serializes health reports to JSON, YAML, or human-readable
// text, and writes them to timestamped report files.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Render serializes a report in the requested format.
func Render(report *engine.HealthReport, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(report, "", "  ")
	case "yaml":
		return yaml.Marshal(report)
	case "text":
		return []byte(renderText(report)), nil
	default:
		return nil, fmt.Errorf("unknown format %q: must be json, yaml or text", format)
	}
}

// WriteFile renders the report and writes it to
// <dir>/<hostname>_health_<yyyymmdd_HHMMSS>.<ext>, creating the directory
// as needed. Returns the written path.
func WriteFile(report *engine.HealthReport, format, dir string) (string, error) {
	data, err := Render(report, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %q: %w", dir, err)
	}

	name := report.Device.Hostname
	if name == "" {
		name = report.Device.Host
	}
	ext := format
	if format == "text" {
		ext = "txt"
	}
	filename := fmt.Sprintf("%s_health_%s.%s",
		sanitize(name),
		report.ExecutionTime.Format("20060102_150405"),
		ext,
	)

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %q: %w", path, err)
	}
	return path, nil
}

// renderText produces the human-readable report.
func renderText(report *engine.HealthReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Health Report: %s (%s)\n", deviceLabel(report.Device), report.Device.Host)
	fmt.Fprintf(&b, "Run:     %s\n", report.RunID)
	fmt.Fprintf(&b, "Started: %s\n", report.ExecutionTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "Overall: %s\n", strings.ToUpper(report.OverallStatus.String()))
	b.WriteString(strings.Repeat("=", 64) + "\n")

	for _, name := range report.Checks.Names() {
		result, _ := report.Checks.Get(name)
		fmt.Fprintf(&b, "\n[%s] %s\n", strings.ToUpper(result.Status.String()), name)
		for _, cmd := range result.Commands {
			fmt.Fprintf(&b, "  %-40s %s", cmd.Command, cmd.Status)
			if cmd.Error != "" {
				fmt.Fprintf(&b, " (%s)", cmd.Error)
			}
			b.WriteByte('\n')
			for metric, value := range cmd.Fields {
				fmt.Fprintf(&b, "      %s = %v\n", metric, value)
			}
			if cmd.ParseError != "" {
				fmt.Fprintf(&b, "      parse error: %s\n", cmd.ParseError)
			}
		}
	}

	if len(report.Alerts) > 0 {
		b.WriteString("\nAlerts:\n")
		for _, alert := range report.Alerts {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", strings.ToUpper(string(alert.Severity)), alert.Check, alert.Message)
		}
	} else {
		b.WriteString("\nNo alerts.\n")
	}
	return b.String()
}

func deviceLabel(d engine.DeviceInfo) string {
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.Host
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
