package stm32ide

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jhonToni/VS-Code-STM32-IDE/internal/store"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/toolchain"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/differ"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
)

// Sync reconciles buildData.json with the Makefile and the toolchain.
// Every step runs in order and the first fatal error aborts the pass; the
// store is only rewritten once all inputs are known.
func (e *engine) Sync(ctx context.Context) (*Result, error) {
	cfg := e.config

	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	ctx = logging.WithLogger(ctx, cfg.logger)
	ctx = logging.WithProject(logging.WithOperation(ctx, "sync"), cfg.root)
	logger := logging.FromContext(ctx)

	// Step 1: Nothing is written for a workspace without a Makefile
	if err := requireFile(cfg.makefile); err != nil {
		return nil, err
	}

	// Step 2: Make sure a readable store exists and load it
	st := e.newStore(logger)
	existing, outcome, err := e.loadStore(st)
	if err != nil {
		return nil, err
	}
	// A dry run leaves the corrupt file in place; only the outcome is reported.
	if outcome == store.OutcomeRecovered && !cfg.dryRun {
		e.triggerStoreRecovered(st.Path())
	}

	// Step 3: Verify recorded toolchain paths, resolving stale ones
	doc, replaced, err := toolchain.Reconcile(ctx, existing, cfg.resolver)
	if err != nil {
		return nil, err
	}
	if len(replaced) > 0 {
		e.triggerPathsReplaced(replaced)
	}

	// Step 4: Extract build metadata with the verified toolchain
	makePath, _ := doc.String(constants.KeyBuildToolsPath)
	gccPath, _ := doc.String(constants.KeyGccExePath)
	meta, err := cfg.extractor.Extract(ctx, makePath, gccPath)
	if err != nil {
		return nil, err
	}
	if err := meta.Validate(cfg.root); err != nil {
		return nil, err
	}

	// Step 5: Find the CubeMX project, if there is exactly one
	cubeMx := e.locateCubeMx(logger)

	// Step 6: Overlay the owned keys
	merged, err := store.Merge(doc, meta, store.DeriveFrom(meta, cubeMx))
	if err != nil {
		return nil, err
	}
	changes := differ.New(differ.WithIgnoredKeys(constants.KeyVersion, constants.KeyLastRun)).
		Documents(existing, merged)

	// Step 7: Stamp and persist
	stamp := store.Stamp{Version: cfg.version, LastRun: cfg.clock()}
	if cfg.dryRun {
		logger.Info().Str("changes", changes.String()).Msg("Dry run, buildData.json not written")
	} else if err := st.Persist(merged, stamp); err != nil {
		return nil, err
	}
	e.triggerChangeset(changes)

	result := &Result{
		StorePath:            st.Path(),
		StoreOutcome:         outcome,
		ReplacedPaths:        replaced,
		ProjectName:          meta.ProjectName,
		BuildDir:             meta.BuildDir,
		TargetExecutablePath: meta.TargetExecutablePath(),
		CubeMxProjectPath:    cubeMx,
		CSourceCount:         len(meta.CSources),
		AsmSourceCount:       len(meta.AsmSources),
		IncludeCount:         len(meta.CIncludes) + len(meta.AsmIncludes),
		DefineCount:          len(meta.CDefines) + len(meta.AsmDefines),
		Changeset:            changes,
		Version:              stamp.Version,
		LastRun:              stamp.LastRun,
		DryRun:               cfg.dryRun,
	}

	// Step 8: Optionally create the build directory
	if cfg.createBuildDir && !cfg.dryRun {
		created, err := e.ensureBuildDir(meta.BuildDir)
		if err != nil {
			return nil, err
		}
		result.BuildDirCreated = created
	}

	logger.Info().
		Str("outcome", outcome.String()).
		Int("added", changes.Summary.Added).
		Int("updated", changes.Summary.Updated).
		Int("removed", changes.Summary.Removed).
		Msg("Build data synchronized")

	return result, nil
}

func (e *engine) newStore(logger *zerolog.Logger) *store.Store {
	opts := []store.Option{store.WithLogger(logger)}
	if e.config.template != nil {
		opts = append(opts, store.WithTemplate(e.config.template))
	}
	return store.New(e.config.storePath, opts...)
}

func (e *engine) loadStore(st *store.Store) (*document.Document, store.Outcome, error) {
	if e.config.dryRun {
		return st.Peek()
	}
	outcome, err := st.EnsureExists()
	if err != nil {
		return nil, outcome, err
	}
	doc, err := st.Load()
	return doc, outcome, err
}

// locateCubeMx returns the project file path, or "" when there is none.
// Locator failures only cost the optional key.
func (e *engine) locateCubeMx(logger *zerolog.Logger) string {
	path, found, err := e.config.locator.Find(e.config.root)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot search for a CubeMX project file")
		return ""
	}
	if !found {
		logger.Debug().Msg("No unique CubeMX project file found")
		return ""
	}
	return path
}

func (e *engine) ensureBuildDir(buildDir string) (bool, error) {
	dir := filepath.FromSlash(buildDir)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.config.root, dir)
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return false, nil
	}
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return false, errors.WrapIO("create", dir, err)
	}
	return true, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return errors.NewNotFoundError("Makefile", path)
	case err != nil:
		return errors.WrapIO("stat", path, err)
	case info.IsDir():
		return errors.NewValidationError("makefile", path, "is a directory")
	}
	return nil
}
