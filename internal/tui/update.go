package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
)

// ─── Update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Editor.SetWidth(min(max(msg.Width-8, 20), 100))
		m.Editor.SetHeight(max(msg.Height-14, 5))
		return m, nil

	case tea.KeyMsg:
		// Global quit, works on every screen
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.Screen == ScreenWrite {
			return m.handleWriteKeys(msg)
		}
		// If search input is focused, let it handle most keys
		if m.Screen == ScreenSearch && m.SearchInput.Focused() {
			return m.handleSearchInputKeys(msg)
		}
		return m.handleKeyPress(msg.String())

	// ─── Data loaded messages ────────────────────────────────────────────
	case statsLoadedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.Stats = msg.stats
		return m, nil

	case entriesLoadedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.Entries = msg.entries
		m.clampCursor(len(m.Entries))
		return m, nil

	case entryDetailMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.SelectedEntry = msg.entry
		m.Screen = ScreenEntryDetail
		return m, nil

	case searchResultsMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.SearchResults = msg.results
		m.SearchQuery = msg.query
		m.Screen = ScreenSearchResults
		m.Cursor = 0
		m.Scroll = 0
		return m, nil

	case loopsLoadedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.Loops = msg.loops
		m.clampCursor(len(m.Loops))
		return m, nil

	// ─── Write results ───────────────────────────────────────────────────
	case entrySavedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		editing := m.EditingID != 0
		m.Editor.Reset()
		m.Editor.Blur()
		m.EditingID = 0
		m.StatusMsg = "Entry saved."
		if editing {
			m.Screen = ScreenEntryDetail
			return m, loadEntryDetail(m.store, msg.id)
		}
		m.Screen = ScreenEntries
		m.PrevScreen = ScreenDashboard
		m.Cursor = 0
		m.Scroll = 0
		return m, loadEntries(m.store)

	case entryDeletedMsg:
		m.ConfirmDelete = false
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
			return m, nil
		}
		m.SelectedEntry = nil
		m.StatusMsg = "Entry deleted."
		m.Screen = ScreenEntries
		return m, loadEntries(m.store)

	case analysisDoneMsg:
		m.Analyzing = false
		switch {
		case errors.Is(msg.err, insight.ErrCycleInFlight):
			m.ErrorMsg = "An analysis is already running."
		case msg.err != nil:
			m.ErrorMsg = msg.err.Error()
		default:
			m.Insight = msg.event
		}
		return m, loadStats(m.store)

	case settingsSavedMsg:
		if msg.err != nil {
			m.ErrorMsg = msg.err.Error()
		}
		return m, nil

	case storeChangedMsg:
		return m, tea.Batch(m.refreshScreen(m.Screen), waitForChange(m.changes))

	case spinner.TickMsg:
		// Only forward spinner ticks while a cycle is running
		if m.Analyzing {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// ─── Key Press Router ────────────────────────────────────────────────────────

func (m Model) handleKeyPress(key string) (tea.Model, tea.Cmd) {
	// Clear messages on any keypress
	m.ErrorMsg = ""
	m.StatusMsg = ""

	switch m.Screen {
	case ScreenDashboard:
		return m.handleDashboardKeys(key)
	case ScreenEntries:
		return m.handleEntriesKeys(key)
	case ScreenEntryDetail:
		return m.handleEntryDetailKeys(key)
	case ScreenSearch:
		return m.handleSearchKeys(key)
	case ScreenSearchResults:
		return m.handleSearchResultsKeys(key)
	case ScreenLoops:
		return m.handleLoopsKeys(key)
	case ScreenInsight:
		return m.handleInsightKeys(key)
	case ScreenSettings:
		return m.handleSettingsKeys(key)
	}
	return m, nil
}

// ─── Dashboard ───────────────────────────────────────────────────────────────

var dashboardMenuItems = []string{
	"Write an entry",
	"Browse entries",
	"Search",
	"Thought loops",
	"Analyze recent entries",
	"Settings",
	"Quit",
}

func (m Model) handleDashboardKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(dashboardMenuItems)-1 {
			m.Cursor++
		}
	case "enter", " ":
		return m.openDashboardItem(m.Cursor)
	case "w":
		return m.openDashboardItem(0)
	case "e":
		return m.openDashboardItem(1)
	case "s", "/":
		return m.openDashboardItem(2)
	case "l":
		return m.openDashboardItem(3)
	case "a":
		return m.openDashboardItem(4)
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) openDashboardItem(item int) (tea.Model, tea.Cmd) {
	m.PrevScreen = ScreenDashboard
	switch item {
	case 0: // Write
		return m.openEditor(0, "")
	case 1: // Entries
		m.Screen = ScreenEntries
		m.Cursor = 0
		m.Scroll = 0
		return m, loadEntries(m.store)
	case 2: // Search
		m.Screen = ScreenSearch
		m.Cursor = 0
		m.SearchInput.SetValue("")
		m.SearchInput.Focus()
		return m, nil
	case 3: // Loops
		m.Screen = ScreenLoops
		m.Cursor = 0
		m.Scroll = 0
		return m, loadLoops(m.store)
	case 4: // Analyze
		return m.startAnalysis("")
	case 5: // Settings
		m.Screen = ScreenSettings
		m.Cursor = 0
		return m, nil
	case 6: // Quit
		return m, tea.Quit
	}
	return m, nil
}

// ─── Write / Edit ────────────────────────────────────────────────────────────

// openEditor switches to the write screen. id is 0 for a new entry.
func (m Model) openEditor(id int64, content string) (tea.Model, tea.Cmd) {
	m.EditorBack = m.PrevScreen
	m.Screen = ScreenWrite
	m.EditingID = id
	m.Editor.Reset()
	m.Editor.SetValue(content)
	cmd := m.Editor.Focus()
	return m, cmd
}

func (m Model) handleWriteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.ErrorMsg = ""
	m.StatusMsg = ""

	switch msg.String() {
	case "esc":
		m.Editor.Blur()
		m.Screen = m.EditorBack
		m.EditingID = 0
		return m, m.refreshScreen(m.EditorBack)
	case "ctrl+s":
		content := m.Editor.Value()
		if strings.TrimSpace(content) == "" {
			m.ErrorMsg = "Write something before saving."
			return m, nil
		}
		return m, saveEntry(m.store, m.EditingID, content, m.now())
	case "ctrl+r":
		if m.EditingID != 0 {
			// The draft of an existing entry would be counted twice.
			m.ErrorMsg = "Save your changes, then analyze from the dashboard."
			return m, nil
		}
		return m.startAnalysis(m.Editor.Value())
	}

	var cmd tea.Cmd
	m.Editor, cmd = m.Editor.Update(msg)
	return m, cmd
}

// ─── Entries ─────────────────────────────────────────────────────────────────

func (m Model) handleEntriesKeys(key string) (tea.Model, tea.Cmd) {
	visibleItems := m.entryCapacity(8)

	switch key {
	case "up", "k":
		m.cursorUp()
	case "down", "j":
		m.cursorDown(len(m.Entries), visibleItems)
	case "enter":
		if m.Cursor < len(m.Entries) {
			m.PrevScreen = ScreenEntries
			m.DetailScroll = 0
			return m, loadEntryDetail(m.store, m.Entries[m.Cursor].ID)
		}
	case "w":
		m.PrevScreen = ScreenEntries
		return m.openEditor(0, "")
	case "esc", "q":
		m.Screen = ScreenDashboard
		m.Cursor = 0
		m.Scroll = 0
		return m, loadStats(m.store)
	}
	return m, nil
}

// ─── Entry Detail ────────────────────────────────────────────────────────────

func (m Model) handleEntryDetailKeys(key string) (tea.Model, tea.Cmd) {
	if m.SelectedEntry == nil {
		if key == "esc" || key == "q" {
			m.Screen = m.PrevScreen
			return m, m.refreshScreen(m.PrevScreen)
		}
		return m, nil
	}

	if m.ConfirmDelete {
		switch key {
		case "y", "Y":
			return m, deleteEntry(m.store, m.SelectedEntry.ID)
		default:
			m.ConfirmDelete = false
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.DetailScroll > 0 {
			m.DetailScroll--
		}
	case "down", "j":
		m.DetailScroll++
	case "e":
		m.PrevScreen = ScreenEntryDetail
		return m.openEditor(m.SelectedEntry.ID, m.SelectedEntry.Content)
	case "d":
		m.ConfirmDelete = true
	case "esc", "q":
		m.Screen = ScreenEntries
		m.DetailScroll = 0
		return m, loadEntries(m.store)
	}
	return m, nil
}

// ─── Search Input ────────────────────────────────────────────────────────────

func (m Model) handleSearchInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := m.SearchInput.Value()
		if query != "" {
			m.SearchInput.Blur()
			return m, searchEntries(m.store, query)
		}
		return m, nil
	case "esc":
		m.SearchInput.Blur()
		m.Screen = m.PrevScreen
		m.Cursor = 0
		return m, m.refreshScreen(m.PrevScreen)
	}

	// Let the text input component handle everything else
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "q":
		m.Screen = m.PrevScreen
		m.Cursor = 0
		return m, m.refreshScreen(m.PrevScreen)
	case "i", "/":
		m.SearchInput.Focus()
		return m, nil
	}
	return m, nil
}

// ─── Search Results ──────────────────────────────────────────────────────────

func (m Model) handleSearchResultsKeys(key string) (tea.Model, tea.Cmd) {
	visibleItems := m.entryCapacity(10)

	switch key {
	case "up", "k":
		m.cursorUp()
	case "down", "j":
		m.cursorDown(len(m.SearchResults), visibleItems)
	case "enter":
		if m.Cursor < len(m.SearchResults) {
			m.PrevScreen = ScreenSearchResults
			m.DetailScroll = 0
			return m, loadEntryDetail(m.store, m.SearchResults[m.Cursor].ID)
		}
	case "/", "s", "esc", "q":
		m.PrevScreen = ScreenDashboard
		m.Screen = ScreenSearch
		m.Cursor = 0
		m.Scroll = 0
		m.SearchInput.Focus()
		return m, nil
	}
	return m, nil
}

// ─── Loops ───────────────────────────────────────────────────────────────────

func (m Model) handleLoopsKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.cursorUp()
	case "down", "j":
		m.cursorDown(len(m.Loops), m.listCapacity(8))
	case "a":
		m.PrevScreen = ScreenLoops
		return m.startAnalysis("")
	case "esc", "q":
		m.Screen = ScreenDashboard
		m.Cursor = 0
		m.Scroll = 0
		return m, loadStats(m.store)
	}
	return m, nil
}

// ─── Insight ─────────────────────────────────────────────────────────────────

func (m Model) startAnalysis(draft string) (tea.Model, tea.Cmd) {
	if m.analyzer == nil {
		m.ErrorMsg = "Analysis is not configured."
		return m, nil
	}
	if m.Analyzing {
		return m, nil
	}
	if m.Screen != ScreenInsight {
		m.PrevScreen = m.Screen
	}
	m.Screen = ScreenInsight
	m.Analyzing = true
	m.Insight = nil
	req := insight.Request{Draft: draft, Options: m.Options}
	return m, tea.Batch(m.Spinner.Tick, runAnalysis(m.analyzer, req))
}

func (m Model) handleInsightKeys(key string) (tea.Model, tea.Cmd) {
	// While a cycle runs, block all keys
	if m.Analyzing {
		return m, nil
	}

	switch key {
	case "l":
		m.Screen = ScreenLoops
		m.PrevScreen = ScreenDashboard
		m.Cursor = 0
		m.Scroll = 0
		return m, loadLoops(m.store)
	case "esc", "q", "enter":
		m.Screen = m.PrevScreen
		if m.Screen == ScreenWrite {
			cmd := m.Editor.Focus()
			return m, cmd
		}
		return m, m.refreshScreen(m.Screen)
	}
	return m, nil
}

// ─── Settings ────────────────────────────────────────────────────────────────

const settingsItems = 2

func (m Model) handleSettingsKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < settingsItems-1 {
			m.Cursor++
		}
	case "enter", " ", "right", "l":
		return m.changeSetting(1)
	case "left", "h":
		return m.changeSetting(-1)
	case "esc", "q":
		m.Screen = ScreenDashboard
		m.Cursor = 0
		return m, loadStats(m.store)
	}
	return m, nil
}

func (m Model) changeSetting(step int) (tea.Model, tea.Cmd) {
	switch m.Cursor {
	case 0:
		m.Options.Mode = cycleMode(m.Options.Mode, step)
	case 1:
		m.Options.UseRemote = !m.Options.UseRemote
	}
	return m, persistSettings(m.saveSettings, m.Options)
}

func cycleMode(current classifier.Mode, step int) classifier.Mode {
	modes := classifier.Modes()
	idx := 0
	for i, mode := range modes {
		if mode == current {
			idx = i
			break
		}
	}
	idx = (idx + step + len(modes)) % len(modes)
	return modes[idx]
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// refreshScreen returns the appropriate data-loading Cmd for a given screen.
// Used when navigating back so lists show fresh data from the DB.
func (m Model) refreshScreen(screen Screen) tea.Cmd {
	switch screen {
	case ScreenDashboard:
		return loadStats(m.store)
	case ScreenEntries:
		return loadEntries(m.store)
	case ScreenEntryDetail:
		if m.SelectedEntry != nil {
			return loadEntryDetail(m.store, m.SelectedEntry.ID)
		}
	case ScreenSearchResults:
		if m.SearchQuery != "" {
			return searchEntries(m.store, m.SearchQuery)
		}
	case ScreenLoops:
		return loadLoops(m.store)
	}
	return nil
}

// listCapacity is how many one-line items fit below chrome lines of header
// and footer.
func (m Model) listCapacity(chrome int) int {
	return max(m.Height-chrome, 5)
}

func (m Model) previewWidth() int {
	return max(m.Width-10, 40)
}

// entryCapacity is how many entries fit, each a header line plus a preview
// wrapped to previewWidth.
func (m Model) entryCapacity(chrome int) int {
	lines := 1 + (previewLength+m.previewWidth()-1)/m.previewWidth()
	return max((m.Height-chrome)/lines, 2)
}

func (m *Model) cursorUp() {
	if m.Cursor > 0 {
		m.Cursor--
		if m.Cursor < m.Scroll {
			m.Scroll = m.Cursor
		}
	}
}

func (m *Model) cursorDown(n, visible int) {
	if m.Cursor < n-1 {
		m.Cursor++
		if m.Cursor >= m.Scroll+visible {
			m.Scroll = m.Cursor - visible + 1
		}
	}
}

func (m *Model) clampCursor(n int) {
	if m.Cursor >= n {
		m.Cursor = max(n-1, 0)
	}
	if m.Scroll > m.Cursor {
		m.Scroll = m.Cursor
	}
}
