package metadata_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/metadata"
)

func validMetadata() *metadata.BuildMetadata {
	return &metadata.BuildMetadata{
		CSources:    []string{"Src/main.c"},
		AsmSources:  []string{"startup_stm32f407xx.s"},
		CIncludes:   []string{"Inc"},
		AsmIncludes: []string{},
		CDefines:    []string{"USE_HAL_DRIVER", "STM32F407xx"},
		AsmDefines:  []string{},
		CFlags:      []string{"-mcpu=cortex-m4", "-Og"},
		AsmFlags:    []string{"-mcpu=cortex-m4"},
		BuildDir:    "build",
		ProjectName: "Demo",
	}
}

func TestTargetExecutablePath(t *testing.T) {
	tests := []struct {
		buildDir, project, want string
	}{
		{"build", "Demo", "build/Demo.elf"},
		{"build/", "Demo", "build/Demo.elf"},
		{"out/debug", "blinky", "out/debug/blinky.elf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metadata.TargetExecutablePath(tt.buildDir, tt.project))
	}

	assert.Equal(t, "build/Demo.elf", validMetadata().TargetExecutablePath())
}

func TestValidate(t *testing.T) {
	workspace := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validMetadata().Validate(workspace))
	})

	tests := []struct {
		name   string
		mutate func(m *metadata.BuildMetadata)
	}{
		{"missing build dir", func(m *metadata.BuildMetadata) { m.BuildDir = "" }},
		{"missing project", func(m *metadata.BuildMetadata) { m.ProjectName = "" }},
		{"project with separator", func(m *metadata.BuildMetadata) { m.ProjectName = "a/b" }},
		{"empty source entry", func(m *metadata.BuildMetadata) { m.CSources = []string{"a.c", ""} }},
		{"build dir escapes workspace", func(m *metadata.BuildMetadata) { m.BuildDir = "../build" }},
		{"absolute build dir elsewhere", func(m *metadata.BuildMetadata) { m.BuildDir = filepath.Dir(workspace) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMetadata()
			tt.mutate(m)
			err := m.Validate(workspace)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}

	t.Run("absolute build dir inside workspace", func(t *testing.T) {
		m := validMetadata()
		m.BuildDir = filepath.Join(workspace, "build")
		assert.NoError(t, m.Validate(workspace))
	})

	t.Run("nil", func(t *testing.T) {
		var m *metadata.BuildMetadata
		assert.Error(t, m.Validate(workspace))
	})
}

func TestParseVariables(t *testing.T) {
	output := "make: Entering something\n" +
		"C_SOURCES=Src/main.c  Src/gpio.c\r\n" +
		"TARGET=Demo\n" +
		"C_DEFS=-DUSE_HAL_DRIVER -DSTM32F407xx -DHSE_VALUE=8000000\n" +
		"EMPTY=\n"

	vars, err := metadata.ParseVariables(output)
	require.NoError(t, err)
	assert.Equal(t, "Src/main.c  Src/gpio.c", vars["C_SOURCES"])
	assert.Equal(t, "Demo", vars["TARGET"])
	assert.Equal(t, "", vars["EMPTY"])
	assert.NotContains(t, vars, "make: Entering something")

	_, err = metadata.ParseVariables("nothing useful here\n")
	assert.Error(t, err)
}

func TestFromVariables(t *testing.T) {
	vars := map[string]string{
		"C_SOURCES":   "Src/main.c Src/gpio.c Drivers/hal.c",
		"ASM_SOURCES": "startup_stm32f407xx.s",
		"C_INCLUDES":  "-IInc -IDrivers/CMSIS/Include",
		"AS_INCLUDES": "",
		"C_DEFS":      "-DUSE_HAL_DRIVER -DHSE_VALUE=8000000",
		"AS_DEFS":     "",
		"CFLAGS":      "-mcpu=cortex-m4 -mthumb -DUSE_HAL_DRIVER -IInc -Og -Wall -g -gdwarf-2 -MMD -MP -MF\"\"",
		"ASFLAGS":     "-mcpu=cortex-m4 -mthumb -Og -Wall",
		"BUILD_DIR":   "build",
		"TARGET":      "Demo",
	}

	m := metadata.FromVariables(vars)
	assert.Equal(t, []string{"Src/main.c", "Src/gpio.c", "Drivers/hal.c"}, m.CSources)
	assert.Equal(t, []string{"startup_stm32f407xx.s"}, m.AsmSources)
	assert.Equal(t, []string{"Inc", "Drivers/CMSIS/Include"}, m.CIncludes)
	assert.Equal(t, []string{}, m.AsmIncludes)
	assert.Equal(t, []string{"USE_HAL_DRIVER", "HSE_VALUE=8000000"}, m.CDefines)
	assert.Equal(t, []string{}, m.AsmDefines)
	assert.Equal(t, []string{"-mcpu=cortex-m4", "-mthumb", "-Og", "-Wall", "-g", "-gdwarf-2"}, m.CFlags)
	assert.Equal(t, []string{"-mcpu=cortex-m4", "-mthumb", "-Og", "-Wall"}, m.AsmFlags)
	assert.Equal(t, "build", m.BuildDir)
	assert.Equal(t, "Demo", m.ProjectName)
}

func TestMakeExtractor(t *testing.T) {
	makePath, err := exec.LookPath("make")
	if err != nil {
		t.Skip("make not available")
	}

	dir := t.TempDir()
	makefile := "TARGET = Demo\n" +
		"BUILD_DIR = build\n" +
		"C_SOURCES = \\\n" +
		"Src/main.c \\\n" +
		"Src/gpio.c\n" +
		"ASM_SOURCES = startup.s\n" +
		"C_DEFS = -DUSE_HAL_DRIVER\n" +
		"C_INCLUDES = -IInc\n" +
		"CFLAGS = -mthumb $(C_DEFS) $(C_INCLUDES) -Og\n" +
		"ifdef GCC_PATH\n" +
		"CC = $(GCC_PATH)/arm-none-eabi-gcc\n" +
		"endif\n" +
		"all:\n" +
		"\t@echo building\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte(makefile), 0o644))

	m, err := metadata.NewMakeExtractor(dir).Extract(context.Background(), makePath, "/opt/gcc/bin/arm-none-eabi-gcc")
	require.NoError(t, err)

	assert.Equal(t, []string{"Src/main.c", "Src/gpio.c"}, m.CSources)
	assert.Equal(t, []string{"startup.s"}, m.AsmSources)
	assert.Equal(t, []string{"USE_HAL_DRIVER"}, m.CDefines)
	assert.Equal(t, []string{"Inc"}, m.CIncludes)
	assert.Equal(t, []string{"-mthumb", "-Og"}, m.CFlags)
	assert.Equal(t, []string{}, m.AsmFlags)
	assert.Equal(t, "build", m.BuildDir)
	assert.Equal(t, "Demo", m.ProjectName)
	assert.NoError(t, m.Validate(dir))
}

func TestMakeExtractorFailure(t *testing.T) {
	makePath, err := exec.LookPath("make")
	if err != nil {
		t.Skip("make not available")
	}

	_, err = metadata.NewMakeExtractor(t.TempDir()).Extract(context.Background(), makePath, "")
	require.Error(t, err)

	var procErr *errors.ProcessError
	assert.True(t, errors.As(err, &procErr))
}

func TestExtractorFunc(t *testing.T) {
	var gotMake, gotGcc string
	ex := metadata.ExtractorFunc(func(_ context.Context, makeTool, gcc string) (*metadata.BuildMetadata, error) {
		gotMake, gotGcc = makeTool, gcc
		return validMetadata(), nil
	})

	m, err := ex.Extract(context.Background(), "/usr/bin/make", "/usr/bin/gcc")
	require.NoError(t, err)
	assert.Equal(t, "Demo", m.ProjectName)
	assert.Equal(t, "/usr/bin/make", gotMake)
	assert.Equal(t, "/usr/bin/gcc", gotGcc)
}
