// Package toolchain checks the toolchain and debug-resource paths recorded in
// buildData.json and resolves replacements for the ones that went stale.
package toolchain

import (
	"os"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
)

// Kind is the filesystem entry a recorded path must point at.
type Kind int

const (
	// KindFile requires a regular file (executables, OpenOCD configs, SVD).
	KindFile Kind = iota
	// KindDir requires a directory.
	KindDir
)

// Requirement describes one recorded path.
type Requirement struct {
	Key         string
	Description string
	Kind        Kind
	Optional    bool // empty or absent value is accepted
	Executable  bool // answers --version
}

// Requirements lists the paths owned by the verifier, in prompt order.
var Requirements = []Requirement{
	{Key: constants.KeyBuildToolsPath, Description: "make executable", Kind: KindFile, Executable: true},
	{Key: constants.KeyGccExePath, Description: "arm-none-eabi-gcc executable", Kind: KindFile, Executable: true},
	{Key: constants.KeyGccIncludePath, Description: "arm-none-eabi include folder", Kind: KindDir},
	{Key: constants.KeyOpenOCDPath, Description: "OpenOCD executable", Kind: KindFile, Executable: true},
	{Key: constants.KeyOpenOCDTargetPath, Description: "OpenOCD target configuration file", Kind: KindFile},
	{Key: constants.KeyOpenOCDInterfacePath, Description: "OpenOCD interface configuration file", Kind: KindFile},
	{Key: constants.KeyStm32SvdPath, Description: "STM32 SVD file", Kind: KindFile, Optional: true},
}

// Report is the outcome of Verify.
type Report struct {
	// Stale lists keys whose value is missing, not a string, or does not resolve.
	Stale []string
}

// AllValid reports whether every recorded path resolves.
func (r Report) AllValid() bool {
	return len(r.Stale) == 0
}

// Verify checks every requirement against the document.
func Verify(doc *document.Document) Report {
	var report Report
	for _, req := range Requirements {
		value, ok := doc.String(req.Key)
		if !ok && req.Optional {
			continue
		}
		if !ok || !req.Satisfied(value) {
			report.Stale = append(report.Stale, req.Key)
		}
	}
	return report
}

// Lookup returns the requirement for key.
func Lookup(key string) (Requirement, bool) {
	for _, req := range Requirements {
		if req.Key == key {
			return req, true
		}
	}
	return Requirement{}, false
}

// Satisfied reports whether value resolves to an entry of the required kind.
func (r Requirement) Satisfied(value string) bool {
	if value == "" {
		return r.Optional
	}
	info, err := os.Stat(value)
	if err != nil {
		return false
	}
	if r.Kind == KindDir {
		return info.IsDir()
	}
	return info.Mode().IsRegular()
}
