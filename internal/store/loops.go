package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

// ─── Loop Registry ───────────────────────────────────────────────────────────
//
// The registry is the only owner of thought-loop records. Callers read it
// fresh on every analysis cycle; nothing above this layer caches loops.
// Uniqueness of the normalized topic is enforced twice: CreateLoop checks
// inside its transaction, and the UNIQUE index backs that up.

var loopColumns = []string{"id", "topic", "start_date", "last_seen_date", "status"}

// ListActiveLoops returns active loops ordered by start date, then id, so a
// scan over them is reproducible.
func (s *Store) ListActiveLoops(ctx context.Context) ([]ThoughtLoop, error) {
	return s.ListLoops(ctx, LoopActive)
}

// ListLoops returns loops with the given status, or all loops when status is
// empty.
func (s *Store) ListLoops(ctx context.Context, status LoopStatus) ([]ThoughtLoop, error) {
	b := s.sb.Select(loopColumns...).
		From("thought_loops").
		OrderBy("start_date ASC", "id ASC")
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		b = b.Where(sq.Eq{"status": string(status)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loops: %w", err)
	}
	defer rows.Close()

	var loops []ThoughtLoop
	for rows.Next() {
		l, err := scanLoop(rows)
		if err != nil {
			return nil, err
		}
		loops = append(loops, *l)
	}
	return loops, rows.Err()
}

// FindLoopByTopic looks a loop up by its normalized topic. It returns
// ErrNotFound when no loop carries that topic.
func (s *Store) FindLoopByTopic(ctx context.Context, topic string) (*ThoughtLoop, error) {
	norm := NormalizeTopic(topic)
	if norm == "" {
		return nil, ErrEmptyTopic
	}
	return s.getLoop(ctx, s.db, sq.Eq{"topic": norm}, fmt.Sprintf("loop %q", norm))
}

func (s *Store) GetLoop(ctx context.Context, id int64) (*ThoughtLoop, error) {
	return s.getLoop(ctx, s.db, sq.Eq{"id": id}, fmt.Sprintf("loop #%d", id))
}

// CreateLoop registers a new active loop first seen at now. It fails with
// ErrDuplicateTopic if the normalized topic already exists in any status.
func (s *Store) CreateLoop(ctx context.Context, topic string, now time.Time) (*ThoughtLoop, error) {
	norm := NormalizeTopic(topic)
	if norm == "" {
		return nil, ErrEmptyTopic
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create loop: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = s.getLoop(ctx, tx, sq.Eq{"topic": norm}, "")
	switch {
	case err == nil:
		return nil, fmt.Errorf("create loop %q: %w", norm, ErrDuplicateTopic)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	ts := formatTime(now)
	query, args, err := s.sb.Insert("thought_loops").
		Columns("topic", "start_date", "last_seen_date", "status").
		Values(norm, ts, ts, string(LoopActive)).
		ToSql()
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create loop %q: %w", norm, ErrDuplicateTopic)
		}
		return nil, fmt.Errorf("create loop %q: %w", norm, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create loop: commit: %w", err)
	}

	s.logger.Debug("loop created", zap.Int64("loop_id", id), zap.String("topic", norm))

	start, _ := parseTime(ts)
	return &ThoughtLoop{
		ID:           id,
		Topic:        norm,
		StartDate:    start,
		LastSeenDate: start,
		Status:       LoopActive,
	}, nil
}

// MarkLoopResolved flips a loop to resolved. lastSeenDate is left alone.
func (s *Store) MarkLoopResolved(ctx context.Context, id int64) error {
	query, args, err := s.sb.Update("thought_loops").
		Set("status", string(LoopResolved)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if err := s.execAffectingOne(ctx, fmt.Sprintf("resolve loop #%d", id), query, args...); err != nil {
		return err
	}
	s.logger.Debug("loop resolved", zap.Int64("loop_id", id))
	return nil
}

// TouchLoop records a new sighting of a loop at now and sets its status.
// lastSeenDate never moves backwards: an older now leaves it unchanged.
func (s *Store) TouchLoop(ctx context.Context, id int64, now time.Time, status LoopStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query, args, err := s.sb.Update("thought_loops").
		Set("last_seen_date", sq.Expr("MAX(last_seen_date, ?)", formatTime(now))).
		Set("status", string(status)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if err := s.execAffectingOne(ctx, fmt.Sprintf("touch loop #%d", id), query, args...); err != nil {
		return err
	}
	s.logger.Debug("loop touched", zap.Int64("loop_id", id), zap.String("status", string(status)))
	return nil
}

// ClearLoops wipes the registry and leaves entries alone. ReplaceEntries
// does the same inside its own transaction.
func (s *Store) ClearLoops(ctx context.Context) error {
	if err := clearLoops(ctx, s.db); err != nil {
		return err
	}
	s.logger.Info("loop registry cleared")
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func clearLoops(ctx context.Context, x execer) error {
	if _, err := x.ExecContext(ctx, `DELETE FROM thought_loops`); err != nil {
		return fmt.Errorf("clear loops: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) getLoop(ctx context.Context, q queryer, where sq.Eq, label string) (*ThoughtLoop, error) {
	query, args, err := s.sb.Select(loopColumns...).
		From("thought_loops").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	l, err := scanLoop(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if label == "" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", label, ErrNotFound)
	}
	return l, err
}

func scanLoop(row scanner) (*ThoughtLoop, error) {
	var l ThoughtLoop
	var start, lastSeen, status string
	if err := row.Scan(&l.ID, &l.Topic, &start, &lastSeen, &status); err != nil {
		return nil, err
	}
	var err error
	if l.StartDate, err = parseTime(start); err != nil {
		return nil, err
	}
	if l.LastSeenDate, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	l.Status = LoopStatus(status)
	return &l, nil
}
