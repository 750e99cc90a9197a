// Package classifier talks to the topic classifier that looks for recurring
// thought loops in a window of journal entries.
//
// Two backends exist: Service posts to an external analysis endpoint, and
// LLM prompts a language model directly through a Completer. Both return at
// most one Detection per call and collapse every failure into ErrUnavailable.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable is the single failure condition of a classification call:
// transport errors, non-success responses and unparseable replies all map
// to it.
var ErrUnavailable = errors.New("classification service unavailable")

// Mode selects the style of guidance the classifier writes.
type Mode string

const (
	ModeAuto                 Mode = "auto"
	ModeReframing            Mode = "reframing"
	ModeEmotionalExploration Mode = "emotional_exploration"
	ModeActionOriented       Mode = "action_oriented"
)

var modes = []Mode{ModeAuto, ModeReframing, ModeEmotionalExploration, ModeActionOriented}

// Modes lists every known mode in display order.
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ParseMode accepts a mode name, case-insensitively. Empty means auto.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeAuto, nil
	}
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Sample is one text handed to the classifier.
type Sample struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"date"`
}

// Options are the per-call knobs chosen by the caller.
type Options struct {
	UseRemote bool
	Mode      Mode
}

// Request is a classification call. Entries are ordered newest first.
type Request struct {
	Entries []Sample
	Options Options
}

// Detection is a recurring topic plus the guidance text shown to the user.
type Detection struct {
	Topic        string `json:"topic"`
	GuidanceText string `json:"guidance_text"`
}

// Classifier inspects a window of entries. A nil Detection with a nil error
// means nothing recurring was found.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Detection, error)
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds while
// the cause stays in the message for logs.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// normalize trims a detection and drops it when the topic is blank.
func normalize(d *Detection) *Detection {
	if d == nil {
		return nil
	}
	topic := strings.TrimSpace(d.Topic)
	if topic == "" {
		return nil
	}
	return &Detection{Topic: topic, GuidanceText: strings.TrimSpace(d.GuidanceText)}
}
