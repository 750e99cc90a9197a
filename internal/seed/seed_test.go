package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

var now = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func TestClusters(t *testing.T) {
	clusters, err := Clusters()
	require.NoError(t, err)

	var names []string
	total := 0
	for _, c := range clusters {
		names = append(names, c.Name)
		total += len(c.Entries)
		for _, e := range c.Entries {
			assert.NotEmpty(t, e.Content, c.Name)
			assert.Positive(t, e.DaysAgo, c.Name)
		}
	}
	assert.Equal(t, []string{"work stress", "gardening", "relationship", "health", "standalone"}, names)
	assert.Equal(t, 21, total)
}

func TestEntriesAreDatedAndOrdered(t *testing.T) {
	entries, err := Entries(now)
	require.NoError(t, err)
	require.Len(t, entries, 21)

	assert.True(t, entries[0].Timestamp.Equal(now.Add(-25*24*time.Hour)))
	assert.Contains(t, entries[0].Content, "My sleep was terrible")
	assert.True(t, entries[20].Timestamp.Equal(now.Add(-2*24*time.Hour)))

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestLoadReplacesJournal(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := store.New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.InsertEntry(ctx, "my real entry", now)
	require.NoError(t, err)
	_, err = s.CreateLoop(ctx, "work", now)
	require.NoError(t, err)

	n, err := Load(ctx, s, now)
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, stats.TotalEntries)
	assert.Zero(t, stats.ActiveLoops)
	assert.Zero(t, stats.ResolvedLoops)
}
