package stm32ide

import (
	"sync"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/differ"
)

// Hook function types for sync events
type (
	// StoreRecoveredHook is called when an unreadable store was replaced by the template
	StoreRecoveredHook func(path string)

	// PathsReplacedHook is called with the toolchain keys that were re-resolved
	PathsReplacedHook func(keys []string)

	// KeyChangedHook is called for each key a sync changed
	KeyChangedHook func(change differ.KeyChange)
)

// hooks manages event callbacks for sync events
type hooks struct {
	mu               sync.RWMutex
	onStoreRecovered []StoreRecoveredHook
	onPathsReplaced  []PathsReplacedHook
	onKeyChanged     []KeyChangedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStoreRecovered registers a callback for when the store is recovered
func (h *hooks) OnStoreRecovered(fn StoreRecoveredHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStoreRecovered = append(h.onStoreRecovered, fn)
}

// OnPathsReplaced registers a callback for when toolchain paths are replaced
func (h *hooks) OnPathsReplaced(fn PathsReplacedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPathsReplaced = append(h.onPathsReplaced, fn)
}

// OnKeyChanged registers a callback for changed keys
func (h *hooks) OnKeyChanged(fn KeyChangedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onKeyChanged = append(h.onKeyChanged, fn)
}

func (h *hooks) triggerStoreRecovered(path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStoreRecovered {
		hook(path)
	}
}

func (h *hooks) triggerPathsReplaced(keys []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPathsReplaced {
		hook(keys)
	}
}

// triggerChangeset calls the key hooks once per change, in changeset order
func (h *hooks) triggerChangeset(cs *differ.Changeset) {
	if !cs.HasChanges() {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, change := range cs.Changes {
		for _, hook := range h.onKeyChanged {
			hook(change)
		}
	}
}
