package stm32ide_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stm32ide "github.com/jhonToni/VS-Code-STM32-IDE"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cubemx"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/store"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/toolchain"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/differ"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/metadata"
)

// project is a workspace with a Makefile and a fake toolchain install.
type project struct {
	root      string
	storePath string
	paths     map[string]string // toolchain key -> existing path
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, constants.MakefileName), []byte("all:\n"), 0o644))

	tools := t.TempDir()
	touch := func(rel string) string {
		p := filepath.Join(tools, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o755))
		return filepath.ToSlash(p)
	}
	include := filepath.Join(tools, "gcc", "arm-none-eabi", "include")
	require.NoError(t, os.MkdirAll(include, 0o755))

	return &project{
		root:      root,
		storePath: store.Path(root),
		paths: map[string]string{
			constants.KeyBuildToolsPath:       touch("bin/make"),
			constants.KeyGccExePath:           touch("gcc/bin/arm-none-eabi-gcc"),
			constants.KeyGccIncludePath:       filepath.ToSlash(include),
			constants.KeyOpenOCDPath:          touch("openocd/bin/openocd"),
			constants.KeyOpenOCDTargetPath:    touch("openocd/scripts/target/stm32f4x.cfg"),
			constants.KeyOpenOCDInterfacePath: touch("openocd/scripts/interface/stlink.cfg"),
			constants.KeyStm32SvdPath:         "",
		},
	}
}

// writeStore writes a valid document with the toolchain paths plus extra keys.
func (p *project) writeStore(t *testing.T, extra map[string]any) {
	t.Helper()
	doc := document.New()
	for _, req := range toolchain.Requirements {
		require.NoError(t, doc.Set(req.Key, p.paths[req.Key]))
	}
	for k, v := range extra {
		require.NoError(t, doc.Set(k, v))
	}
	data, err := doc.MarshalIndent(constants.DocumentIndent)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.storePath), 0o755))
	require.NoError(t, os.WriteFile(p.storePath, data, 0o644))
}

func (p *project) load(t *testing.T) *document.Document {
	t.Helper()
	data, err := os.ReadFile(p.storePath)
	require.NoError(t, err)
	doc, err := document.Parse(data)
	require.NoError(t, err)
	return doc
}

// fixAll resolves every stale key from the fake install.
func (p *project) fixAll() toolchain.Resolver {
	return toolchain.ResolverFunc(func(_ context.Context, doc *document.Document, stale []string) (*document.Document, error) {
		out := doc.Clone()
		for _, key := range stale {
			if err := out.Set(key, p.paths[key]); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

func demoMetadata() *metadata.BuildMetadata {
	return &metadata.BuildMetadata{
		CSources:    []string{"a.c", "b.c"},
		AsmSources:  []string{"startup_stm32f407xx.s"},
		CIncludes:   []string{"Inc"},
		AsmIncludes: []string{},
		CDefines:    []string{"USE_HAL_DRIVER", "STM32F407xx"},
		AsmDefines:  []string{},
		CFlags:      []string{"-mcpu=cortex-m4", "-mthumb"},
		AsmFlags:    []string{"-mcpu=cortex-m4"},
		BuildDir:    "build",
		ProjectName: "Demo",
	}
}

func staticExtractor(meta *metadata.BuildMetadata) metadata.Extractor {
	return metadata.ExtractorFunc(func(context.Context, string, string) (*metadata.BuildMetadata, error) {
		return meta, nil
	})
}

var noCubeMx = cubemx.LocatorFunc(func(string) (string, bool, error) { return "", false, nil })

func newEngine(t *testing.T, p *project, opts ...stm32ide.Option) stm32ide.Engine {
	t.Helper()
	base := []stm32ide.Option{
		stm32ide.WithRoot(p.root),
		stm32ide.WithVersion("1.2.3"),
		stm32ide.WithExtractor(staticExtractor(demoMetadata())),
		stm32ide.WithResolver(nil),
		stm32ide.WithLocator(noCubeMx),
		stm32ide.WithLogger(logging.NewNopLogger()),
	}
	e, err := stm32ide.New(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func TestSyncOverlaysMetadata(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, map[string]any{"userNote": "keep me"})

	clock := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.Local)
	result, err := newEngine(t, p, stm32ide.WithClock(func() time.Time { return clock })).Sync(context.Background())
	require.NoError(t, err)

	doc := p.load(t)
	var sources []string
	require.NoError(t, doc.Decode(constants.KeyCSources, &sources))
	assert.Equal(t, []string{"a.c", "b.c"}, sources)

	target, _ := doc.String(constants.KeyTargetExecutablePath)
	assert.Equal(t, "build/Demo.elf", target)
	buildDir, _ := doc.String(constants.KeyBuildDir)
	assert.Equal(t, "build", buildDir)

	note, _ := doc.String("userNote")
	assert.Equal(t, "keep me", note)

	version, _ := doc.String(constants.KeyVersion)
	lastRun, _ := doc.String(constants.KeyLastRun)
	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "2024-03-01 12:30:45.123456", lastRun)

	assert.Equal(t, store.OutcomeExisting, result.StoreOutcome)
	assert.Equal(t, "build/Demo.elf", result.TargetExecutablePath)
	assert.Equal(t, 2, result.CSourceCount)
	assert.True(t, result.HasChanges())
	assert.NotContains(t, result.Changeset.Keys(), "userNote")
}

func TestSyncIsIdempotent(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, map[string]any{"userNote": "keep me"})

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	clock := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	e := newEngine(t, p, stm32ide.WithClock(clock))

	_, err := e.Sync(context.Background())
	require.NoError(t, err)
	first := p.load(t)

	second, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, second.HasChanges())
	assert.Contains(t, second.Summary(), "no changes")
	after := p.load(t)

	firstRun, _ := first.String(constants.KeyLastRun)
	secondRun, _ := after.String(constants.KeyLastRun)
	assert.NotEqual(t, firstRun, secondRun)

	first.Delete(constants.KeyLastRun)
	after.Delete(constants.KeyLastRun)
	a, err := first.MarshalIndent(constants.DocumentIndent)
	require.NoError(t, err)
	b, err := after.MarshalIndent(constants.DocumentIndent)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSyncWithoutMakefileWritesNothing(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(p.root, constants.MakefileName)))

	_, err := newEngine(t, p).Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, errors.ClassFatal, errors.Classify(err))

	_, statErr := os.Stat(filepath.Join(p.root, constants.VSCodeDir))
	assert.True(t, os.IsNotExist(statErr), ".vscode must not be created")
}

func TestSyncRecoversCorruptStore(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.storePath), 0o755))
	require.NoError(t, os.WriteFile(p.storePath, []byte(`{"a":`), 0o644))

	var recovered string
	e := newEngine(t, p, stm32ide.WithResolver(p.fixAll()))
	e.OnStoreRecovered(func(path string) { recovered = path })

	var replaced []string
	e.OnPathsReplaced(func(keys []string) { replaced = keys })

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeRecovered, result.StoreOutcome)
	assert.Equal(t, p.storePath, recovered)
	assert.Contains(t, replaced, constants.KeyGccExePath)
	assert.NotContains(t, replaced, constants.KeyStm32SvdPath)

	doc := p.load(t)
	assert.False(t, doc.Has("a"))
	gcc, _ := doc.String(constants.KeyGccExePath)
	assert.Equal(t, p.paths[constants.KeyGccExePath], gcc)
}

func TestSyncCreatesMissingStore(t *testing.T) {
	p := newProject(t)

	result, err := newEngine(t, p, stm32ide.WithResolver(p.fixAll())).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeCreated, result.StoreOutcome)

	doc := p.load(t)
	assert.Equal(t, constants.KeyCSources, doc.Keys()[0], "template key order is kept")
	assert.Equal(t, constants.KeyLastRun, doc.Keys()[doc.Len()-1])
}

func TestSyncStalePathsWithoutResolverAreFatal(t *testing.T) {
	p := newProject(t)
	p.paths[constants.KeyOpenOCDPath] = "/nonexistent/openocd"
	p.writeStore(t, nil)
	before, err := os.ReadFile(p.storePath)
	require.NoError(t, err)

	_, err = newEngine(t, p).Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ClassStale, errors.Classify(err))

	after, err := os.ReadFile(p.storePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncExtractorFailureLeavesStore(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, nil)
	before, err := os.ReadFile(p.storePath)
	require.NoError(t, err)

	failing := metadata.ExtractorFunc(func(context.Context, string, string) (*metadata.BuildMetadata, error) {
		return nil, errors.NewProcessError("print Makefile variables", "make", "", errors.New("exit status 2"))
	})
	_, err = newEngine(t, p, stm32ide.WithExtractor(failing)).Sync(context.Background())
	require.Error(t, err)

	after, err := os.ReadFile(p.storePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncPassesVerifiedToolchainToExtractor(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, nil)

	var gotMake, gotGcc string
	spy := metadata.ExtractorFunc(func(_ context.Context, makeTool, gcc string) (*metadata.BuildMetadata, error) {
		gotMake, gotGcc = makeTool, gcc
		return demoMetadata(), nil
	})
	_, err := newEngine(t, p, stm32ide.WithExtractor(spy)).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.paths[constants.KeyBuildToolsPath], gotMake)
	assert.Equal(t, p.paths[constants.KeyGccExePath], gotGcc)
}

func TestSyncRejectsBuildDirOutsideWorkspace(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, nil)
	meta := demoMetadata()
	meta.BuildDir = "../elsewhere"

	_, err := newEngine(t, p, stm32ide.WithExtractor(staticExtractor(meta))).Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestSyncCubeMxProjectPath(t *testing.T) {
	t.Run("recorded when found", func(t *testing.T) {
		p := newProject(t)
		p.writeStore(t, nil)
		require.NoError(t, os.WriteFile(filepath.Join(p.root, "Demo.ioc"), nil, 0o644))

		result, err := newEngine(t, p, stm32ide.WithLocator(cubemx.Default)).Sync(context.Background())
		require.NoError(t, err)

		got, ok := p.load(t).String(constants.KeyCubeMxProjectPath)
		require.True(t, ok)
		assert.Equal(t, filepath.ToSlash(filepath.Join(p.root, "Demo.ioc")), got)
		assert.Equal(t, got, result.CubeMxProjectPath)
	})

	t.Run("previous value kept when not found", func(t *testing.T) {
		p := newProject(t)
		p.writeStore(t, map[string]any{constants.KeyCubeMxProjectPath: "X"})

		_, err := newEngine(t, p).Sync(context.Background())
		require.NoError(t, err)

		got, _ := p.load(t).String(constants.KeyCubeMxProjectPath)
		assert.Equal(t, "X", got)
	})

	t.Run("locator error is not fatal", func(t *testing.T) {
		p := newProject(t)
		p.writeStore(t, nil)
		broken := cubemx.LocatorFunc(func(string) (string, bool, error) {
			return "", false, errors.New("permission denied")
		})

		_, err := newEngine(t, p, stm32ide.WithLocator(broken)).Sync(context.Background())
		require.NoError(t, err)
		assert.False(t, p.load(t).Has(constants.KeyCubeMxProjectPath))
	})
}

func TestSyncDryRun(t *testing.T) {
	p := newProject(t)

	result, err := newEngine(t, p, stm32ide.WithDryRun(true), stm32ide.WithResolver(p.fixAll())).Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, store.OutcomeCreated, result.StoreOutcome)
	assert.True(t, result.HasChanges())

	_, statErr := os.Stat(p.storePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSyncDryRunLeavesCorruptStore(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.storePath), 0o755))
	require.NoError(t, os.WriteFile(p.storePath, []byte(`{"a":`), 0o644))

	e := newEngine(t, p, stm32ide.WithDryRun(true), stm32ide.WithResolver(p.fixAll()))
	fired := false
	e.OnStoreRecovered(func(string) { fired = true })

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeRecovered, result.StoreOutcome)
	assert.False(t, fired, "nothing was replaced on disk")

	data, err := os.ReadFile(p.storePath)
	require.NoError(t, err)
	assert.Equal(t, `{"a":`, string(data))
}

func TestSyncCreateBuildDir(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, nil)
	e := newEngine(t, p, stm32ide.WithCreateBuildDir(true))

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.BuildDirCreated)
	assert.DirExists(t, filepath.Join(p.root, "build"))

	result, err = e.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, result.BuildDirCreated)
}

func TestSyncKeyChangedHook(t *testing.T) {
	p := newProject(t)
	p.writeStore(t, map[string]any{constants.KeyCSources: []string{"old.c"}})

	var changes []differ.KeyChange
	e := newEngine(t, p)
	e.OnKeyChanged(func(c differ.KeyChange) { changes = append(changes, c) })

	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, changes)
	var sawSources bool
	for _, c := range changes {
		assert.NotEqual(t, constants.KeyLastRun, c.Key)
		assert.NotEqual(t, constants.KeyVersion, c.Key)
		if c.Key == constants.KeyCSources {
			sawSources = true
			assert.Equal(t, differ.ChangeTypeUpdate, c.Type)
			assert.Equal(t, `["old.c"]`, c.OldValue)
		}
	}
	assert.True(t, sawSources)
}

func TestSyncWithMake(t *testing.T) {
	makePath, err := exec.LookPath("make")
	if err != nil {
		t.Skip("make not available")
	}

	p := newProject(t)
	p.paths[constants.KeyBuildToolsPath] = filepath.ToSlash(makePath)
	makefile := "TARGET = Blinky\n" +
		"BUILD_DIR = out\n" +
		"C_SOURCES = Src/main.c Src/gpio.c\n" +
		"C_DEFS = -DUSE_HAL_DRIVER -DSTM32F407xx\n" +
		"C_INCLUDES = -IInc -IDrivers/CMSIS/Include\n" +
		"CFLAGS = -mthumb $(C_DEFS) $(C_INCLUDES) -Og -MMD -MP -MF\"$(@:%.o=%.d)\"\n" +
		"all:\n" +
		"\t@echo building\n"
	require.NoError(t, os.WriteFile(filepath.Join(p.root, constants.MakefileName), []byte(makefile), 0o644))
	p.writeStore(t, nil)

	e, err := stm32ide.New(
		stm32ide.WithRoot(p.root),
		stm32ide.WithResolver(nil),
		stm32ide.WithLocator(noCubeMx),
		stm32ide.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "out/Blinky.elf", result.TargetExecutablePath)

	doc := p.load(t)
	var defines, flags []string
	require.NoError(t, doc.Decode(constants.KeyCDefines, &defines))
	require.NoError(t, doc.Decode(constants.KeyCFlags, &flags))
	assert.Equal(t, []string{"USE_HAL_DRIVER", "STM32F407xx"}, defines)
	assert.Equal(t, []string{"-mthumb", "-Og"}, flags)

	version, _ := doc.String(constants.KeyVersion)
	assert.Equal(t, stm32ide.DefaultVersion, version)
}
