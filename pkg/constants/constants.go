// Package constants provides shared constants used throughout the reconciler.
// This includes file locations, permissions, and the JSON key names of the
// buildData.json document.
package constants

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Path constants, relative to the project root.
const (
	// MakefileName is the generated Makefile the store is reconciled against
	MakefileName = "Makefile"

	// VSCodeDir holds the IDE-facing configuration files
	VSCodeDir = ".vscode"

	// BuildDataFileName is the configuration store file name
	BuildDataFileName = "buildData.json"

	// CubeMxProjectExt is the extension of STM32CubeMX project files
	CubeMxProjectExt = ".ioc"

	// ExecutableExt is appended to the project name to form the target executable
	ExecutableExt = ".elf"
)

// Document formatting.
const (
	// DocumentIndent is the indentation used when writing buildData.json
	DocumentIndent = "    "

	// LastRunFormat matches the timestamp layout historically written to LAST_RUN
	LastRunFormat = "2006-01-02 15:04:05.000000"
)

// Default toolchain executables looked up on PATH.
const (
	DefaultMakeExecutable    = "make"
	DefaultGccExecutable     = "arm-none-eabi-gcc"
	DefaultOpenOCDExecutable = "openocd"

	// GccTargetTriple is the directory holding the newlib headers next to the compiler
	GccTargetTriple = "arm-none-eabi"
)

// Makefile variable names printed by the metadata extractor.
const (
	MakeVarCSources    = "C_SOURCES"
	MakeVarAsmSources  = "ASM_SOURCES"
	MakeVarCIncludes   = "C_INCLUDES"
	MakeVarAsmIncludes = "AS_INCLUDES"
	MakeVarCDefines    = "C_DEFS"
	MakeVarAsmDefines  = "AS_DEFS"
	MakeVarCFlags      = "CFLAGS"
	MakeVarAsmFlags    = "ASFLAGS"
	MakeVarBuildDir    = "BUILD_DIR"
	MakeVarTarget      = "TARGET"
	MakeVarGccPath     = "GCC_PATH"
)

// buildData.json keys.
const (
	KeyCSources             = "cSources"
	KeyAsmSources           = "asmSources"
	KeyCIncludes            = "cIncludes"
	KeyAsmIncludes          = "asmIncludes"
	KeyCDefines             = "cDefines"
	KeyAsmDefines           = "asmDefines"
	KeyCFlags               = "cFlags"
	KeyAsmFlags             = "asmFlags"
	KeyBuildDir             = "buildDir"
	KeyTargetExecutablePath = "targetExecutablePath"

	KeyBuildToolsPath       = "buildToolsPath"
	KeyGccExePath           = "gccExePath"
	KeyGccIncludePath       = "gccInludePath" // historical spelling, read by other tools
	KeyOpenOCDPath          = "openOCDPath"
	KeyOpenOCDTargetPath    = "openOCDTargetPath"
	KeyOpenOCDInterfacePath = "openOCDInterfacePath"
	KeyStm32SvdPath         = "stm32svdPath"

	KeyCubeMxProjectPath = "cubeMxProjectPath"

	KeyVersion = "VERSION"
	KeyLastRun = "LAST_RUN"
)
