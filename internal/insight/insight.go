// Package insight runs analysis cycles over the journal.
//
// A cycle first looks for an active thought loop that has gone quiet and, if
// it finds one, celebrates it. Otherwise it asks the classifier for a
// recurring topic in the most recent entries and reconciles the answer with
// the loop registry. Every cycle ends in exactly one Event.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrInsufficientData means fewer entries than Config.MinEntries were
	// available, draft included.
	ErrInsufficientData = errors.New("insufficient data for analysis")
	// ErrCycleInFlight is returned by Run when another cycle has not yet
	// emitted its event.
	ErrCycleInFlight = errors.New("analysis cycle already in flight")
	// ErrClassificationUnavailable is the classifier's single failure mode.
	ErrClassificationUnavailable = classifier.ErrUnavailable
)

// ─── Collaborators ───────────────────────────────────────────────────────────

// Entries is the read side of the entry store a cycle needs.
type Entries interface {
	RecentEntries(ctx context.Context, limit int) ([]store.Entry, error)
	EntryMentions(ctx context.Context, since time.Time, needle string) (bool, error)
}

// Registry is the loop registry. *store.Store implements it.
type Registry interface {
	ListActiveLoops(ctx context.Context) ([]store.ThoughtLoop, error)
	FindLoopByTopic(ctx context.Context, topic string) (*store.ThoughtLoop, error)
	CreateLoop(ctx context.Context, topic string, now time.Time) (*store.ThoughtLoop, error)
	MarkLoopResolved(ctx context.Context, id int64) error
	TouchLoop(ctx context.Context, id int64, now time.Time, status store.LoopStatus) error
}

// ─── Events ──────────────────────────────────────────────────────────────────

type EventKind string

const (
	EventCelebration EventKind = "celebration"
	EventSuggestion  EventKind = "suggestion"
	EventInfo        EventKind = "info"
	EventError       EventKind = "error"
)

// Event is the single outcome of a cycle. Message is ready to show to the
// user; Err is set only for EventError.
type Event struct {
	CycleID      string    `json:"cycle_id"`
	Kind         EventKind `json:"kind"`
	Message      string    `json:"message"`
	Topic        string    `json:"topic,omitempty"`
	GuidanceText string    `json:"guidance_text,omitempty"`
	At           time.Time `json:"at"`
	Err          error     `json:"-"`
}

// ─── Policy ──────────────────────────────────────────────────────────────────

// ResurfacePolicy decides what happens when the classifier detects a topic
// whose loop is already resolved.
type ResurfacePolicy string

const (
	// KeepResolved leaves the loop untouched and only changes the message.
	KeepResolved ResurfacePolicy = "keep_resolved"
	// Reactivate flips the loop back to active and bumps its last-seen date.
	Reactivate ResurfacePolicy = "reactivate"
)

func ParseResurfacePolicy(s string) (ResurfacePolicy, error) {
	switch p := ResurfacePolicy(s); p {
	case KeepResolved, Reactivate:
		return p, nil
	case "":
		return KeepResolved, nil
	default:
		return "", fmt.Errorf("unknown resurface policy %q", s)
	}
}

// ─── Messages ────────────────────────────────────────────────────────────────

const (
	msgNoPattern   = "No specific patterns were detected in your recent entries. Keep writing!"
	msgUnavailable = "The classification service is unavailable. Is the backend server running?"
	msgInternal    = "Something went wrong while analyzing your entries. Please try again."
)

func celebrationMessage(topic string) string {
	return fmt.Sprintf("It's been a while since you've written about %q. That's a huge step. "+
		"Take a moment to recognize your own progress and growth.", topic)
}

func resurfacingMessage(topic string) string {
	return fmt.Sprintf("%q seems to be on your mind again. That's okay. "+
		"You've moved through it before, and noticing it is already a step.", topic)
}

func insufficientMessage(n int) string {
	return fmt.Sprintf("You need at least %d entries (including current text) for an analysis.", n)
}
