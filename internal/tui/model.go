// Package tui implements the Bubbletea terminal UI for AIPJC.
//
// Layout:
// - Screen constants as iota
// - Single Model struct holds ALL state
// - Update() with type switch
// - Per-screen key handlers returning (tea.Model, tea.Cmd)
// - Vim keys (j/k) for navigation
// - PrevScreen for back navigation
//
// Views never cache journal data across screens: every screen reloads from
// the store when entered, after its own writes, and when the store reports
// a change on disk.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// ─── Screens ─────────────────────────────────────────────────────────────────

type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenWrite
	ScreenEntries
	ScreenEntryDetail
	ScreenSearch
	ScreenSearchResults
	ScreenLoops
	ScreenInsight
	ScreenSettings
)

// Analyzer runs one analysis cycle. *insight.Orchestrator implements it.
type Analyzer interface {
	Run(ctx context.Context, req insight.Request) (*insight.Event, error)
}

// Config carries the collaborators and defaults the UI needs besides the
// store. Analyzer, SaveSettings and Changes are optional.
type Config struct {
	Version  string
	Analyzer Analyzer
	Options  classifier.Options

	// SaveSettings persists the options chosen on the settings screen.
	SaveSettings func(classifier.Options) error

	// Changes fires when the database changes on disk.
	Changes <-chan struct{}

	Now func() time.Time
}

// ─── Custom Messages ─────────────────────────────────────────────────────────

type statsLoadedMsg struct {
	stats *store.Stats
	err   error
}

type entriesLoadedMsg struct {
	entries []store.Entry
	err     error
}

type entryDetailMsg struct {
	entry *store.Entry
	err   error
}

type searchResultsMsg struct {
	results []store.SearchResult
	query   string
	err     error
}

type loopsLoadedMsg struct {
	loops []store.ThoughtLoop
	err   error
}

type entrySavedMsg struct {
	id  int64
	err error
}

type entryDeletedMsg struct {
	err error
}

type analysisDoneMsg struct {
	event *insight.Event
	err   error
}

type settingsSavedMsg struct {
	err error
}

type storeChangedMsg struct{}

// ─── Model ───────────────────────────────────────────────────────────────────

type Model struct {
	store        *store.Store
	analyzer     Analyzer
	saveSettings func(classifier.Options) error
	changes      <-chan struct{}
	now          func() time.Time

	Version    string
	Screen     Screen
	PrevScreen Screen
	Width      int
	Height     int
	Cursor     int
	Scroll     int

	// Error display
	ErrorMsg  string
	StatusMsg string

	// Dashboard
	Stats *store.Stats

	// Entries, newest first
	Entries []store.Entry

	// Entry detail
	SelectedEntry *store.Entry
	DetailScroll  int
	ConfirmDelete bool

	// Write / edit. EditingID is 0 for a new entry.
	Editor     textarea.Model
	EditingID  int64
	EditorBack Screen

	// Search
	SearchInput   textinput.Model
	SearchQuery   string
	SearchResults []store.SearchResult

	// Loops
	Loops []store.ThoughtLoop

	// Analysis
	Options   classifier.Options
	Analyzing bool
	Spinner   spinner.Model
	Insight   *insight.Event
}

// New creates a new TUI model connected to the given store.
func New(s *store.Store, cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Search your journal..."
	ti.CharLimit = 256
	ti.Width = 60

	ed := textarea.New()
	ed.Placeholder = "What's on your mind?"
	ed.ShowLineNumbers = false
	ed.CharLimit = 0
	ed.SetWidth(72)
	ed.SetHeight(12)
	ed.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(colorSurface)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorLavender)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	opts := cfg.Options
	if opts.Mode == "" {
		opts.Mode = classifier.ModeAuto
	}

	return Model{
		store:        s,
		analyzer:     cfg.Analyzer,
		saveSettings: cfg.SaveSettings,
		changes:      cfg.Changes,
		now:          now,
		Version:      cfg.Version,
		Screen:       ScreenDashboard,
		SearchInput:  ti,
		Editor:       ed,
		Options:      opts,
		Spinner:      sp,
	}
}

// Init loads initial data (stats for the dashboard) and starts listening
// for changes on disk.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadStats(m.store),
		waitForChange(m.changes),
		tea.EnterAltScreen,
	)
}

// ─── Commands (data loading) ─────────────────────────────────────────────────

func loadStats(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		stats, err := s.Stats(context.Background())
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func loadEntries(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		entries, err := s.ListEntries(context.Background())
		if err != nil {
			return entriesLoadedMsg{err: err}
		}
		// newest first
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		return entriesLoadedMsg{entries: entries}
	}
}

func loadEntryDetail(s *store.Store, id int64) tea.Cmd {
	return func() tea.Msg {
		e, err := s.GetEntry(context.Background(), id)
		return entryDetailMsg{entry: e, err: err}
	}
}

func searchEntries(s *store.Store, query string) tea.Cmd {
	return func() tea.Msg {
		results, err := s.SearchEntries(context.Background(), query, 50)
		return searchResultsMsg{results: results, query: query, err: err}
	}
}

func loadLoops(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		loops, err := s.ListLoops(context.Background(), "")
		return loopsLoadedMsg{loops: loops, err: err}
	}
}

func saveEntry(s *store.Store, id int64, content string, now time.Time) tea.Cmd {
	return func() tea.Msg {
		if id == 0 {
			newID, err := s.InsertEntry(context.Background(), content, now)
			return entrySavedMsg{id: newID, err: err}
		}
		err := s.UpdateEntry(context.Background(), id, content, now)
		return entrySavedMsg{id: id, err: err}
	}
}

func deleteEntry(s *store.Store, id int64) tea.Cmd {
	return func() tea.Msg {
		return entryDeletedMsg{err: s.DeleteEntry(context.Background(), id)}
	}
}

func runAnalysis(a Analyzer, req insight.Request) tea.Cmd {
	return func() tea.Msg {
		ev, err := a.Run(context.Background(), req)
		return analysisDoneMsg{event: ev, err: err}
	}
}

func persistSettings(save func(classifier.Options) error, opts classifier.Options) tea.Cmd {
	if save == nil {
		return nil
	}
	return func() tea.Msg {
		return settingsSavedMsg{err: save(opts)}
	}
}

// waitForChange blocks on the change feed. A closed or nil feed ends the
// subscription.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}
