package stm32ide

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhonToni/VS-Code-STM32-IDE/internal/store"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/differ"
)

// Result describes a completed sync.
type Result struct {
	StorePath    string        `json:"storePath" yaml:"storePath"`
	StoreOutcome store.Outcome `json:"storeOutcome" yaml:"storeOutcome"`

	// ReplacedPaths lists the toolchain keys that were re-resolved
	ReplacedPaths []string `json:"replacedPaths,omitempty" yaml:"replacedPaths,omitempty"`

	ProjectName          string `json:"projectName" yaml:"projectName"`
	BuildDir             string `json:"buildDir" yaml:"buildDir"`
	TargetExecutablePath string `json:"targetExecutablePath" yaml:"targetExecutablePath"`
	CubeMxProjectPath    string `json:"cubeMxProjectPath,omitempty" yaml:"cubeMxProjectPath,omitempty"`

	// Summary counts
	CSourceCount   int `json:"cSources" yaml:"cSources"`
	AsmSourceCount int `json:"asmSources" yaml:"asmSources"`
	IncludeCount   int `json:"includes" yaml:"includes"`
	DefineCount    int `json:"defines" yaml:"defines"`

	Changeset *differ.Changeset `json:"changeset" yaml:"changeset"`

	Version         string    `json:"version" yaml:"version"`
	LastRun         time.Time `json:"lastRun" yaml:"lastRun"`
	DryRun          bool      `json:"dryRun" yaml:"dryRun"`
	BuildDirCreated bool      `json:"buildDirCreated,omitempty" yaml:"buildDirCreated,omitempty"`
}

// HasChanges returns true if the sync changed any key besides the stamps.
func (r *Result) HasChanges() bool {
	return r.Changeset.HasChanges()
}

// Summary returns a human-readable summary of the sync.
func (r *Result) Summary() string {
	var parts []string
	if r.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if r.StoreOutcome != store.OutcomeExisting {
		parts = append(parts, "(store "+r.StoreOutcome.String()+")")
	}
	if n := len(r.ReplacedPaths); n > 0 {
		parts = append(parts, fmt.Sprintf("(%d toolchain paths replaced)", n))
	}

	summary := fmt.Sprintf("%s: %d C sources, %d asm sources, %s",
		r.ProjectName, r.CSourceCount, r.AsmSourceCount, r.Changeset.String())
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}
