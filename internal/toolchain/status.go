package toolchain

import (
	"context"
	"os/exec"
	"regexp"
	"time"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// probeTimeout bounds a single --version run.
const probeTimeout = 5 * time.Second

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// Status describes one recorded path for diagnostics.
type Status struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"`
	Valid       bool   `json:"valid" yaml:"valid"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Inspect reports every requirement against doc. With probe set, valid
// executables are asked for their version.
func Inspect(ctx context.Context, doc *document.Document, probe bool) []Status {
	statuses := make([]Status, 0, len(Requirements))
	for _, req := range Requirements {
		value, ok := doc.String(req.Key)
		st := Status{
			Key:         req.Key,
			Description: req.Description,
			Path:        value,
			Optional:    req.Optional,
			Valid:       (ok || req.Optional) && req.Satisfied(value),
		}
		if probe && st.Valid && req.Executable && value != "" {
			if v, err := ToolVersion(ctx, value); err == nil {
				st.Version = v
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// ToolVersion runs "path --version" and returns the first version number in
// its output.
func ToolVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", errors.NewProcessError("query version", path, string(out), err)
	}
	version := ExtractVersion(string(out))
	if version == "" {
		return "", errors.NewParseError("version", path, "no version number in output", nil)
	}
	return version, nil
}

// ExtractVersion returns the first dotted version number in output.
func ExtractVersion(output string) string {
	m := versionPattern.FindStringSubmatch(output)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
