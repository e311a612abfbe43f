package differ

import (
	"bytes"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
)

// Differ handles change detection between documents.
type Differ interface {
	// Documents compares two documents. A nil existing document counts as empty.
	Documents(existing, updated *document.Document) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreKeys map[string]bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreKeys: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Documents compares two documents by their compacted raw values.
func (diff *differ) Documents(existing, updated *document.Document) *Changeset {
	if existing == nil {
		existing = document.New()
	}
	if updated == nil {
		updated = document.New()
	}

	var changes []KeyChange
	for _, key := range updated.Keys() {
		if diff.ignoreKeys[key] {
			continue
		}
		newRaw, _ := updated.Get(key)
		oldRaw, ok := existing.Get(key)
		switch {
		case !ok:
			changes = append(changes, KeyChange{Key: key, NewValue: string(newRaw), Type: ChangeTypeAdd})
		case !bytes.Equal(oldRaw, newRaw):
			changes = append(changes, KeyChange{Key: key, OldValue: string(oldRaw), NewValue: string(newRaw), Type: ChangeTypeUpdate})
		}
	}

	for _, key := range existing.Keys() {
		if diff.ignoreKeys[key] || updated.Has(key) {
			continue
		}
		oldRaw, _ := existing.Get(key)
		changes = append(changes, KeyChange{Key: key, OldValue: string(oldRaw), Type: ChangeTypeRemove})
	}

	return &Changeset{
		Changes: changes,
		Summary: calculateSummary(changes),
	}
}
