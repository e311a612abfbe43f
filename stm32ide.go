// Package stm32ide keeps a project's .vscode/buildData.json in sync with its
// generated Makefile and the locally installed ARM toolchain.
//
// A sync validates or recovers the stored document, verifies the recorded
// toolchain paths, extracts build metadata from the Makefile and rewrites the
// document atomically, leaving keys owned by other tools untouched.
package stm32ide

import (
	"context"
	"fmt"
)

// Engine reconciles the build configuration of one project.
type Engine interface {
	// Sync runs one reconciliation pass.
	Sync(ctx context.Context) (*Result, error)

	// OnStoreRecovered registers a callback for when an unreadable store is replaced
	OnStoreRecovered(StoreRecoveredHook)

	// OnPathsReplaced registers a callback for when stale toolchain paths are resolved
	OnPathsReplaced(PathsReplacedHook)

	// OnKeyChanged registers a callback for every key a sync adds, updates or removes
	OnKeyChanged(KeyChangedHook)
}

// engine is the internal implementation of the Engine interface
type engine struct {
	config *config

	// Event hooks
	*hooks
}

// New creates an Engine with the given options.
func New(opts ...Option) (Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if err := cfg.complete(); err != nil {
		return nil, err
	}

	return &engine{
		config: cfg,
		hooks:  newHooks(),
	}, nil
}
