// Package catalog maps subchapter labels to content units.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/contentstore"
)

// SubchapterName is a unit base name split as <main>_<topic>_<label>.
type SubchapterName struct {
	MainChapter string `json:"main_chapter"`
	Topic       string `json:"topic"`
	Label       string `json:"label"`
}

type Entry struct {
	Name SubchapterName       `json:"name"`
	Unit contentstore.UnitID `json:"unit"`
}

// Skipped records a listed unit whose name does not follow the convention.
type Skipped struct {
	Unit   contentstore.UnitID `json:"unit"`
	Reason string              `json:"reason"`
}

// Catalog is an immutable label -> entry snapshot. It is safe for
// concurrent readers.
type Catalog struct {
	identity string
	labels   []string
	entries  map[string]Entry
}

// ParseName splits the unit's base name into its three fields. Any prefix up
// to the last separator and the .txt suffix are ignored.
func ParseName(id contentstore.UnitID) (SubchapterName, error) {
	base := string(id)
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, contentstore.TextSuffix)

	parts := strings.Split(base, "_")
	if len(parts) != 3 {
		return SubchapterName{}, fmt.Errorf("expected 3 fields separated by '_', got %d", len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return SubchapterName{}, fmt.Errorf("field %d is empty", i+1)
		}
	}
	return SubchapterName{MainChapter: parts[0], Topic: parts[1], Label: parts[2]}, nil
}

// Build scans the store once. Units are folded in listing order, so on a
// label collision the later unit wins. A listing error fails the build.
func Build(ctx context.Context, store contentstore.Store, log logger.ILogger) (*Catalog, []Skipped, error) {
	entries := make(map[string]Entry)
	var skipped []Skipped

	for id, err := range store.List(ctx) {
		if err != nil {
			return nil, skipped, err
		}

		name, perr := ParseName(id)
		if perr != nil {
			skipped = append(skipped, Skipped{Unit: id, Reason: perr.Error()})
			log.Info("CATALOG", "Skipping unit with unexpected name format", map[string]interface{}{
				"unit":   string(id),
				"reason": perr.Error(),
			})
			continue
		}

		if prev, exists := entries[name.Label]; exists {
			log.Warn("CATALOG", "Duplicate subchapter label, later unit wins", map[string]interface{}{
				"label":    name.Label,
				"replaced": string(prev.Unit),
				"unit":     string(id),
			})
		}
		entries[name.Label] = Entry{Name: name, Unit: id}
	}

	return newCatalog(store.Identity(), entries), skipped, nil
}

func newCatalog(identity string, entries map[string]Entry) *Catalog {
	labels := make([]string, 0, len(entries))
	for label := range entries {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return &Catalog{identity: identity, labels: labels, entries: entries}
}

// Identity is the store identity this snapshot was built from.
func (c *Catalog) Identity() string { return c.identity }

// Labels returns the labels in ascending order. The slice is a copy.
func (c *Catalog) Labels() []string {
	return slices.Clone(c.labels)
}

func (c *Catalog) Lookup(label string) (Entry, bool) {
	e, ok := c.entries[label]
	return e, ok
}

func (c *Catalog) Len() int { return len(c.labels) }

// Entries returns all entries ordered by label.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.labels))
	for _, label := range c.labels {
		out = append(out, c.entries[label])
	}
	return out
}
