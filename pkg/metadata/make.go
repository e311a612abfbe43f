package metadata

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
)

// printRule is evaluated by make before reading the targets on the command
// line; print-VAR writes "VAR=<expanded value>" to stdout.
const printRule = `print-%: ; @:$(info $*=$($*))`

// printedVariables are queried from the Makefile in this order.
var printedVariables = []string{
	constants.MakeVarCSources,
	constants.MakeVarAsmSources,
	constants.MakeVarCIncludes,
	constants.MakeVarAsmIncludes,
	constants.MakeVarCDefines,
	constants.MakeVarAsmDefines,
	constants.MakeVarCFlags,
	constants.MakeVarAsmFlags,
	constants.MakeVarBuildDir,
	constants.MakeVarTarget,
}

// MakeExtractor queries a Makefile through GNU make.
type MakeExtractor struct {
	// Dir is the project root; make runs there.
	Dir string
	// Makefile is the Makefile path, relative to Dir or absolute.
	Makefile string
}

// NewMakeExtractor returns an extractor for root/Makefile.
func NewMakeExtractor(root string) *MakeExtractor {
	return &MakeExtractor{Dir: root, Makefile: constants.MakefileName}
}

// Extract implements Extractor.
func (e *MakeExtractor) Extract(ctx context.Context, makeToolPath, compilerToolPath string) (*BuildMetadata, error) {
	if makeToolPath == "" {
		makeToolPath = constants.DefaultMakeExecutable
	}

	args := e.args(compilerToolPath)
	logging.FromContext(ctx).Debug().
		Str("make", makeToolPath).
		Strs("args", args).
		Msg("Printing Makefile variables")

	cmd := exec.CommandContext(ctx, makeToolPath, args...)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewProcessError("print Makefile variables", makeToolPath, stderr.String(), errors.ErrCanceled)
		}
		return nil, errors.NewProcessError("print Makefile variables", makeToolPath, stderr.String(), err)
	}

	vars, err := ParseVariables(stdout.String())
	if err != nil {
		return nil, errors.WrapParse("make", e.Makefile, err)
	}
	return FromVariables(vars), nil
}

func (e *MakeExtractor) args(compilerToolPath string) []string {
	makefile := e.Makefile
	if makefile == "" {
		makefile = constants.MakefileName
	}

	args := []string{
		"-f", makefile,
		"--no-print-directory",
		"--eval", printRule,
	}
	if compilerToolPath != "" {
		args = append(args, constants.MakeVarGccPath+"="+filepath.ToSlash(filepath.Dir(compilerToolPath)))
	}
	for _, name := range printedVariables {
		args = append(args, "print-"+name)
	}
	return args
}

// FromVariables builds metadata from printed Makefile variables.
func FromVariables(vars map[string]string) *BuildMetadata {
	cDefines := stripPrefix(strings.Fields(vars[constants.MakeVarCDefines]), "-D")
	asmDefines := stripPrefix(strings.Fields(vars[constants.MakeVarAsmDefines]), "-D")
	cIncludes := stripPrefix(strings.Fields(vars[constants.MakeVarCIncludes]), "-I")
	asmIncludes := stripPrefix(strings.Fields(vars[constants.MakeVarAsmIncludes]), "-I")

	return &BuildMetadata{
		CSources:    nonNil(strings.Fields(vars[constants.MakeVarCSources])),
		AsmSources:  nonNil(strings.Fields(vars[constants.MakeVarAsmSources])),
		CIncludes:   cIncludes,
		AsmIncludes: asmIncludes,
		CDefines:    cDefines,
		AsmDefines:  asmDefines,
		CFlags:      compilerFlags(vars[constants.MakeVarCFlags]),
		AsmFlags:    compilerFlags(vars[constants.MakeVarAsmFlags]),
		BuildDir:    strings.TrimSpace(vars[constants.MakeVarBuildDir]),
		ProjectName: strings.TrimSpace(vars[constants.MakeVarTarget]),
	}
}
