package insight

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

func TestScanTieBreaksOnID(t *testing.T) {
	s := newTestStore(t)
	first := addLoop(t, s, "zebra", 9*day)
	addLoop(t, s, "aardvark", 9*day)

	sc := NewScanner(s, s, 7*day, nil)
	got, err := sc.Scan(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, store.LoopResolved, got.Status)
}

func TestScanNothingToResolve(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Still thinking about the garden beds", day)
	addLoop(t, s, "garden", 30*day)
	addLoop(t, s, "sleep", day)

	got, err := NewScanner(s, s, 7*day, nil).Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, got)

	active, err := s.ListActiveLoops(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestScanMatchesTopicCaseInsensitively(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Talked to ALEX about the move", day)
	addLoop(t, s, "alex", 10*day)

	got, err := NewScanner(s, s, 7*day, nil).Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScanEmptyRegistry(t *testing.T) {
	s := newTestStore(t)
	got, err := NewScanner(s, s, 7*day, nil).Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScanKeepsLongNonASCIITopicStillMentioned(t *testing.T) {
	s := newTestStore(t)
	topic := strings.Repeat("é", 70)
	addEntry(t, s, "Again: "+topic, day)
	l := addLoop(t, s, topic, 10*day)

	got, err := NewScanner(s, s, 7*day, nil).Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, store.LoopActive, loopByTopic(t, s, l.Topic).Status)
}
