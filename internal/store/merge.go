package store

import (
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/metadata"
)

// OwnedKeys are overwritten on every sync. Every other key belongs to the
// user, the path verifier or another tool and is left untouched by Merge.
var OwnedKeys = []string{
	constants.KeyCSources,
	constants.KeyAsmSources,
	constants.KeyCIncludes,
	constants.KeyAsmIncludes,
	constants.KeyCDefines,
	constants.KeyAsmDefines,
	constants.KeyCFlags,
	constants.KeyAsmFlags,
	constants.KeyBuildDir,
	constants.KeyTargetExecutablePath,
}

// Derived holds values computed by the engine rather than read from the Makefile.
type Derived struct {
	TargetExecutablePath string
	// CubeMxProjectPath is written only when non-empty.
	CubeMxProjectPath string
}

// DeriveFrom computes the derived fields for meta.
func DeriveFrom(meta *metadata.BuildMetadata, cubeMxProjectPath string) Derived {
	return Derived{
		TargetExecutablePath: meta.TargetExecutablePath(),
		CubeMxProjectPath:    cubeMxProjectPath,
	}
}

// Merge returns a copy of current with the owned keys replaced by meta and
// derived. current is not modified.
func Merge(current *document.Document, meta *metadata.BuildMetadata, derived Derived) (*document.Document, error) {
	out := current.Clone()

	values := map[string]any{
		constants.KeyCSources:             listOrEmpty(meta.CSources),
		constants.KeyAsmSources:           listOrEmpty(meta.AsmSources),
		constants.KeyCIncludes:            listOrEmpty(meta.CIncludes),
		constants.KeyAsmIncludes:          listOrEmpty(meta.AsmIncludes),
		constants.KeyCDefines:             listOrEmpty(meta.CDefines),
		constants.KeyAsmDefines:           listOrEmpty(meta.AsmDefines),
		constants.KeyCFlags:               listOrEmpty(meta.CFlags),
		constants.KeyAsmFlags:             listOrEmpty(meta.AsmFlags),
		constants.KeyBuildDir:             meta.BuildDir,
		constants.KeyTargetExecutablePath: derived.TargetExecutablePath,
	}
	for _, key := range OwnedKeys {
		if err := out.Set(key, values[key]); err != nil {
			return nil, err
		}
	}

	if derived.CubeMxProjectPath != "" {
		if err := out.Set(constants.KeyCubeMxProjectPath, derived.CubeMxProjectPath); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func listOrEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
