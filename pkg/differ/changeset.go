// Package differ compares two configuration documents key by key.
package differ

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a key was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a key's value changed.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a key was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// KeyChange represents a change to one top-level key.
type KeyChange struct {
	Key      string     `json:"key" yaml:"key"`
	OldValue string     `json:"old,omitempty" yaml:"old,omitempty"` // compact JSON
	NewValue string     `json:"new,omitempty" yaml:"new,omitempty"` // compact JSON
	Type     ChangeType `json:"type" yaml:"type"`
}

// Changeset represents all changes between two documents, in the key order
// of the updated document followed by removed keys.
type Changeset struct {
	Changes []KeyChange      `json:"changes" yaml:"changes"`
	Summary ChangesetSummary `json:"summary" yaml:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Added        int `json:"added" yaml:"added"`
	Updated      int `json:"updated" yaml:"updated"`
	Removed      int `json:"removed" yaml:"removed"`
	TotalChanges int `json:"total" yaml:"total"`
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c != nil && c.Summary.TotalChanges > 0
}

// Keys returns the changed keys in changeset order.
func (c *Changeset) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		keys = append(keys, ch.Key)
	}
	return keys
}

// String returns a one-line human readable summary.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "no changes"
	}
	var parts []string
	if c.Summary.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", c.Summary.Added))
	}
	if c.Summary.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", c.Summary.Updated))
	}
	if c.Summary.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", c.Summary.Removed))
	}
	return strings.Join(parts, ", ")
}

func calculateSummary(changes []KeyChange) ChangesetSummary {
	var s ChangesetSummary
	for _, ch := range changes {
		switch ch.Type {
		case ChangeTypeAdd:
			s.Added++
		case ChangeTypeUpdate:
			s.Updated++
		case ChangeTypeRemove:
			s.Removed++
		}
	}
	s.TotalChanges = s.Added + s.Updated + s.Removed
	return s
}
