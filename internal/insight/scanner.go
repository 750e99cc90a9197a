package insight

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// Scanner resolves active loops whose topic has not come up in the journal
// for a whole staleness window.
type Scanner struct {
	loops   Registry
	entries Entries
	window  time.Duration
	logger  *zap.Logger
}

func NewScanner(loops Registry, entries Entries, window time.Duration, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{loops: loops, entries: entries, window: window, logger: logger.Named("scanner")}
}

// Scan resolves at most one loop and returns it, or nil when every active
// loop is either fresh or still mentioned. Loops are visited by start date,
// then id, so the same registry always yields the same result.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (*store.ThoughtLoop, error) {
	active, err := s.loops.ListActiveLoops(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: list active loops: %w", err)
	}
	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].StartDate.Equal(active[j].StartDate) {
			return active[i].StartDate.Before(active[j].StartDate)
		}
		return active[i].ID < active[j].ID
	})

	cutoff := now.Add(-s.window)
	for i := range active {
		loop := &active[i]
		if !loop.LastSeenDate.Before(cutoff) {
			continue
		}

		mentioned, err := s.entries.EntryMentions(ctx, cutoff, loop.Topic)
		if err != nil {
			return nil, fmt.Errorf("scan: mentions of %q: %w", loop.Topic, err)
		}
		if mentioned {
			s.logger.Debug("stale loop still mentioned", zap.Int64("loop_id", loop.ID))
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.loops.MarkLoopResolved(ctx, loop.ID); err != nil {
			return nil, fmt.Errorf("scan: resolve %q: %w", loop.Topic, err)
		}
		loop.Status = store.LoopResolved
		s.logger.Info("loop resolved", zap.Int64("loop_id", loop.ID), zap.String("topic", loop.Topic))
		return loop, nil
	}
	return nil, nil
}
