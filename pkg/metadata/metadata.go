// Package metadata describes the build inputs extracted from a project's
// Makefile and the collaborator interface that produces them.
package metadata

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// BuildMetadata holds the compiler inputs of one project. All slices are
// ordered; source order is link order.
type BuildMetadata struct {
	CSources    []string `json:"cSources" validate:"dive,required"`
	AsmSources  []string `json:"asmSources" validate:"dive,required"`
	CIncludes   []string `json:"cIncludes" validate:"dive,required"`
	AsmIncludes []string `json:"asmIncludes" validate:"dive,required"`
	CDefines    []string `json:"cDefines" validate:"dive,required"`
	AsmDefines  []string `json:"asmDefines" validate:"dive,required"`
	CFlags      []string `json:"cFlags" validate:"dive,required"`
	AsmFlags    []string `json:"asmFlags" validate:"dive,required"`
	BuildDir    string   `json:"buildDir" validate:"required"`
	ProjectName string   `json:"projectName" validate:"required,excludesall=/\\"`
}

// Extractor produces BuildMetadata for the project's Makefile using the
// given make and compiler executables.
type Extractor interface {
	Extract(ctx context.Context, makeToolPath, compilerToolPath string) (*BuildMetadata, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, makeToolPath, compilerToolPath string) (*BuildMetadata, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, makeToolPath, compilerToolPath string) (*BuildMetadata, error) {
	return f(ctx, makeToolPath, compilerToolPath)
}

var validate = validator.New()

// Validate checks required fields and that BuildDir stays inside workspace.
func (m *BuildMetadata) Validate(workspace string) error {
	if m == nil {
		return errors.NewValidationError("", nil, "no build metadata")
	}
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.NewValidationError(first.Namespace(), first.Value(), "failed on the '"+first.Tag()+"' rule")
		}
		return errors.WrapValidation("", err)
	}
	if !insideWorkspace(workspace, m.BuildDir) {
		return errors.NewValidationError("BuildDir", m.BuildDir, "must be inside the workspace "+workspace)
	}
	return nil
}

// TargetExecutablePath derives the path of the linked executable from the
// build directory and project name, using forward slashes.
func (m *BuildMetadata) TargetExecutablePath() string {
	return TargetExecutablePath(m.BuildDir, m.ProjectName)
}

// TargetExecutablePath returns buildDir/projectName.elf.
func TargetExecutablePath(buildDir, projectName string) string {
	return path.Join(filepath.ToSlash(buildDir), projectName+constants.ExecutableExt)
}

func insideWorkspace(workspace, dir string) bool {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	rel, err := filepath.Rel(workspace, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
