// Package seed holds the sample journal used for demos and manual testing.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

//go:embed entries.yaml
var entriesYAML []byte

type file struct {
	Clusters []Cluster `yaml:"clusters"`
}

// Cluster is a themed group of sample entries.
type Cluster struct {
	Name    string      `yaml:"name"`
	Entries []seedEntry `yaml:"entries"`
}

type seedEntry struct {
	DaysAgo int    `yaml:"days_ago"`
	Content string `yaml:"content"`
}

// Clusters parses the embedded sample journal.
func Clusters() ([]Cluster, error) {
	var f file
	if err := yaml.Unmarshal(entriesYAML, &f); err != nil {
		return nil, fmt.Errorf("seed: parse entries: %w", err)
	}
	return f.Clusters, nil
}

// Entries returns every sample entry dated relative to now, oldest first.
func Entries(now time.Time) ([]store.NewEntry, error) {
	clusters, err := Clusters()
	if err != nil {
		return nil, err
	}

	var out []store.NewEntry
	for _, c := range clusters {
		for _, e := range c.Entries {
			out = append(out, store.NewEntry{
				Content:   e.Content,
				Timestamp: now.Add(-time.Duration(e.DaysAgo) * 24 * time.Hour),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Replacer is the bulk-reset side of the store.
type Replacer interface {
	ReplaceEntries(ctx context.Context, entries []store.NewEntry) error
}

// Load wipes the journal and the loop registry and writes the sample
// entries in their place. It returns how many entries were written.
func Load(ctx context.Context, r Replacer, now time.Time) (int, error) {
	entries, err := Entries(now)
	if err != nil {
		return 0, err
	}
	if err := r.ReplaceEntries(ctx, entries); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return len(entries), nil
}
