package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
)

var entryColumns = []string{"id", "content", "created_at", "updated_at"}

// ─── Entries ─────────────────────────────────────────────────────────────────

// InsertEntry stores a new entry created at ts and returns its id.
func (s *Store) InsertEntry(ctx context.Context, content string, ts time.Time) (int64, error) {
	content, err := s.cleanContent(content)
	if err != nil {
		return 0, err
	}

	query, args, err := s.sb.Insert("entries").
		Columns("content", "created_at", "updated_at").
		Values(content, formatTime(ts), formatTime(ts)).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return res.LastInsertId()
}

// UpdateEntry replaces the content of an entry in place. The creation
// timestamp is left untouched.
func (s *Store) UpdateEntry(ctx context.Context, id int64, content string, now time.Time) error {
	content, err := s.cleanContent(content)
	if err != nil {
		return err
	}

	query, args, err := s.sb.Update("entries").
		Set("content", content).
		Set("updated_at", formatTime(now)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execAffectingOne(ctx, fmt.Sprintf("update entry #%d", id), query, args...)
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	query, args, err := s.sb.Delete("entries").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return s.execAffectingOne(ctx, fmt.Sprintf("delete entry #%d", id), query, args...)
}

func (s *Store) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	query, args, err := s.sb.Select(entryColumns...).
		From("entries").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var e Entry
	var created, updated string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Content, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry #%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if e.Timestamp, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns every entry ordered oldest first.
func (s *Store) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, s.sb.Select(entryColumns...).
		From("entries").
		OrderBy("created_at ASC", "id ASC"))
}

// ListEntriesSince returns entries created at or after since, oldest first.
func (s *Store) ListEntriesSince(ctx context.Context, since time.Time) ([]Entry, error) {
	return s.queryEntries(ctx, s.sb.Select(entryColumns...).
		From("entries").
		Where(sq.GtOrEq{"created_at": formatTime(since)}).
		OrderBy("created_at ASC", "id ASC"))
}

// RecentEntries returns up to limit entries, newest first.
func (s *Store) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryEntries(ctx, s.sb.Select(entryColumns...).
		From("entries").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)))
}

func (s *Store) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// EntryMentions reports whether any entry created strictly after since
// contains needle as a case-insensitive substring. Matching happens in Go so
// that case folding covers non-ASCII text, which SQLite's lower() does not.
func (s *Store) EntryMentions(ctx context.Context, since time.Time, needle string) (bool, error) {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false, nil
	}

	query, args, err := s.sb.Select("content").
		From("entries").
		Where(sq.Gt{"created_at": formatTime(since)}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return false, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("entry mentions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return false, err
		}
		if strings.Contains(strings.ToLower(content), needle) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ─── Search (FTS5) ───────────────────────────────────────────────────────────

type SearchResult struct {
	Entry
	Rank float64 `json:"rank"`
}

func (s *Store) SearchEntries(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.content, e.created_at, e.updated_at, fts.rank
		FROM entries_fts fts
		JOIN entries e ON e.id = fts.rowid
		WHERE entries_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var sr SearchResult
		var created, updated string
		if err := rows.Scan(&sr.ID, &sr.Content, &created, &updated, &sr.Rank); err != nil {
			return nil, err
		}
		if sr.Timestamp, err = parseTime(created); err != nil {
			return nil, err
		}
		if sr.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) cleanContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	if s.cfg.MaxEntryLength > 0 {
		if n := utf8.RuneCountInString(content); n > s.cfg.MaxEntryLength {
			return "", fmt.Errorf("%w: %d characters, limit %d", ErrContentTooLong, n, s.cfg.MaxEntryLength)
		}
	}
	return content, nil
}

func (s *Store) queryEntries(ctx context.Context, b sq.SelectBuilder) ([]Entry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		var created, updated string
		if err := rows.Scan(&e.ID, &e.Content, &created, &updated); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(created); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) execAffectingOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
