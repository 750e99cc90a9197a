package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ─── Bulk Reset / Seed ───────────────────────────────────────────────────────

// Reset wipes entries and loops in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return s.ReplaceEntries(ctx, nil)
}

// ReplaceEntries wipes entries and loops and inserts entries in their place,
// all in one transaction. It is the seeding path for demo data.
func (s *Store) ReplaceEntries(ctx context.Context, entries []NewEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := clearLoops(ctx, tx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("reset: clear entries: %w", err)
	}

	for i, e := range entries {
		content, err := s.cleanContent(e.Content)
		if err != nil {
			return fmt.Errorf("reset: entry %d: %w", i, err)
		}
		ts := formatTime(e.Timestamp)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (content, created_at, updated_at) VALUES (?, ?, ?)`,
			content, ts, ts,
		); err != nil {
			return fmt.Errorf("reset: insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: commit: %w", err)
	}

	s.logger.Info("journal reset", zap.Int("entries", len(entries)))
	return nil
}

// ─── Export / Import ─────────────────────────────────────────────────────────

// ExportData is the full serializable dump of the journal database.
type ExportData struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Entries    []Entry       `json:"entries"`
	Loops      []ThoughtLoop `json:"loops"`
}

type ImportResult struct {
	EntriesImported int `json:"entries_imported"`
	LoopsImported   int `json:"loops_imported"`
	LoopsSkipped    int `json:"loops_skipped"`
}

const exportVersion = "1"

func (s *Store) Export(ctx context.Context) (*ExportData, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	loops, err := s.ListLoops(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("export loops: %w", err)
	}
	return &ExportData{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Entries:    entries,
		Loops:      loops,
	}, nil
}

// Import appends the dump to the current database. Entries get new ids;
// loops whose topic is already registered are skipped so the registry stays
// unique.
func (s *Store) Import(ctx context.Context, data *ExportData) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback()

	result := &ImportResult{}

	for _, e := range data.Entries {
		content, err := s.cleanContent(e.Content)
		if err != nil {
			return nil, fmt.Errorf("import entry %d: %w", e.ID, err)
		}
		updated := e.UpdatedAt
		if updated.IsZero() {
			updated = e.Timestamp
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (content, created_at, updated_at) VALUES (?, ?, ?)`,
			content, formatTime(e.Timestamp), formatTime(updated),
		); err != nil {
			return nil, fmt.Errorf("import entry %d: %w", e.ID, err)
		}
		result.EntriesImported++
	}

	for _, l := range data.Loops {
		topic := NormalizeTopic(l.Topic)
		if topic == "" {
			return nil, fmt.Errorf("import loop %d: %w", l.ID, ErrEmptyTopic)
		}
		status := l.Status
		if !status.Valid() {
			return nil, fmt.Errorf("import loop %d: %w: %q", l.ID, ErrInvalidStatus, status)
		}
		lastSeen := l.LastSeenDate
		if lastSeen.Before(l.StartDate) {
			lastSeen = l.StartDate
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO thought_loops (topic, start_date, last_seen_date, status) VALUES (?, ?, ?, ?)`,
			topic, formatTime(l.StartDate), formatTime(lastSeen), string(status),
		)
		if err != nil {
			return nil, fmt.Errorf("import loop %d: %w", l.ID, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			result.LoopsSkipped++
			continue
		}
		result.LoopsImported++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("import: commit: %w", err)
	}
	return result, nil
}
