// Package store implements the local persistence engine for AIPJC.
//
// It uses SQLite (pure Go driver) with FTS5 to hold two collections: the
// journal entries the user writes, and the thought-loop registry that the
// insight engine maintains on top of them. Everything else (CLI, TUI, HTTP
// API, MCP server) talks to this package.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when a referenced entry or loop does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTopic is returned by CreateLoop when a loop with the same
	// normalized topic is already registered, whatever its status.
	ErrDuplicateTopic = errors.New("duplicate thought loop topic")
	// ErrEmptyContent is returned when an entry would be saved without text.
	ErrEmptyContent = errors.New("entry content is empty")
	// ErrContentTooLong is returned when an entry exceeds MaxEntryLength.
	ErrContentTooLong = errors.New("entry content is too long")
	// ErrEmptyTopic is returned when a loop topic normalizes to nothing.
	ErrEmptyTopic = errors.New("loop topic is empty")
	// ErrInvalidStatus is returned for a status outside active/resolved.
	ErrInvalidStatus = errors.New("invalid loop status")
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Entry is a single journal entry. Timestamp is the creation time and never
// changes; UpdatedAt moves on every edit.
type Entry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry is the input for bulk inserts (seeding, import).
type NewEntry struct {
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"-"`
}

type LoopStatus string

const (
	LoopActive   LoopStatus = "active"
	LoopResolved LoopStatus = "resolved"
)

// Valid reports whether st is one of the known statuses.
func (st LoopStatus) Valid() bool {
	return st == LoopActive || st == LoopResolved
}

// ThoughtLoop is a recurring topic tracked across entries.
type ThoughtLoop struct {
	ID           int64      `json:"id"`
	Topic        string     `json:"topic"`
	StartDate    time.Time  `json:"start_date"`
	LastSeenDate time.Time  `json:"last_seen_date"`
	Status       LoopStatus `json:"status"`
}

type Stats struct {
	TotalEntries  int        `json:"total_entries"`
	ActiveLoops   int        `json:"active_loops"`
	ResolvedLoops int        `json:"resolved_loops"`
	FirstEntry    *time.Time `json:"first_entry,omitempty"`
	LastEntry     *time.Time `json:"last_entry,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

type Config struct {
	DataDir string
	// MaxEntryLength caps entry content in characters; 0 means unlimited.
	// Longer content is rejected, never cut.
	MaxEntryLength int
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".aipjc"),
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

const dbFileName = "aipjc.db"

type Store struct {
	db     *sql.DB
	cfg    Config
	logger *zap.Logger
	sb     sq.StatementBuilderType
}

func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("aipjc: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("aipjc: open database: %w", err)
	}
	// One writer, one reader: the app is single-user and every cycle runs
	// sequentially, so a single connection keeps pragmas consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("aipjc: pragma %q: %w", p, err)
		}
	}

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("aipjc: migration: %w", err)
	}

	logger.Debug("store opened", zap.String("data_dir", cfg.DataDir))

	return &Store{
		db:     db,
		cfg:    cfg,
		logger: logger.Named("store"),
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir is the directory holding the database file.
func (s *Store) DataDir() string {
	return s.cfg.DataDir
}

// DBPath is the absolute path of the SQLite database file.
func (s *Store) DBPath() string {
	return filepath.Join(s.cfg.DataDir, dbFileName)
}

// ─── Stats ───────────────────────────────────────────────────────────────────

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var first, last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM entries`,
	).Scan(&stats.TotalEntries, &first, &last); err != nil {
		return nil, fmt.Errorf("stats: entries: %w", err)
	}
	if first.Valid {
		t, err := parseTime(first.String)
		if err != nil {
			return nil, err
		}
		stats.FirstEntry = &t
	}
	if last.Valid {
		t, err := parseTime(last.String)
		if err != nil {
			return nil, err
		}
		stats.LastEntry = &t
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM thought_loops GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats: loops: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch LoopStatus(status) {
		case LoopActive:
			stats.ActiveLoops = n
		case LoopResolved:
			stats.ResolvedLoops = n
		}
	}
	return stats, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// timeLayout is fixed-width so that lexicographic order in SQLite matches
// chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}

const maxTopicBytes = 120

// NormalizeTopic case-folds a topic and collapses inner whitespace. Two
// topics are the same loop iff their normalized forms are equal. Long
// topics are cut to maxTopicBytes on a rune boundary.
func NormalizeTopic(topic string) string {
	v := strings.ToLower(strings.TrimSpace(topic))
	v = strings.Join(strings.Fields(v), " ")
	if len(v) > maxTopicBytes {
		n := maxTopicBytes
		for n > 0 && !utf8.RuneStart(v[n]) {
			n--
		}
		v = strings.TrimRight(v[:n], " ")
	}
	return v
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// sanitizeFTS wraps each word in quotes so FTS5 doesn't choke on special chars.
// "bad sleep again" → `"bad" "sleep" "again"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}
