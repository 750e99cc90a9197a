package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// previewLength is how much of an entry the list shows.
const previewLength = 300

// ─── Logo ────────────────────────────────────────────────────────────────────

func renderLogo() string {
	logoText := []string{
		`    ___    ____  ____       __  ______ `,
		`   /   |  /  _/ / __ \     / / / ____/ `,
		`  / /| |  / /  / /_/ /__  / / / /      `,
		` / ___ |_/ /  / ____/ /_/ / / /___     `,
		`/_/  |_/___/ /_/    \____/  \____/     `,
	}

	frameStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorOverlay).
		Padding(0, 1).
		MarginBottom(1)

	textStyle := lipgloss.NewStyle().Foreground(colorText).Bold(true)
	taglineStyle := lipgloss.NewStyle().Foreground(colorSubtext).Italic(true)

	var b strings.Builder
	for _, line := range logoText {
		b.WriteString(" " + textStyle.Render(line) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render(" > a private journal that notices when you go in circles"))

	return frameStyle.Render(b.String()) + "\n"
}

// ─── View (main router) ─────────────────────────────────────────────────────

func (m Model) View() string {
	var content string

	switch m.Screen {
	case ScreenDashboard:
		content = m.viewDashboard()
	case ScreenWrite:
		content = m.viewWrite()
	case ScreenEntries:
		content = m.viewEntries()
	case ScreenEntryDetail:
		content = m.viewEntryDetail()
	case ScreenSearch:
		content = m.viewSearch()
	case ScreenSearchResults:
		content = m.viewSearchResults()
	case ScreenLoops:
		content = m.viewLoops()
	case ScreenInsight:
		content = m.viewInsight()
	case ScreenSettings:
		content = m.viewSettings()
	default:
		content = "Unknown screen"
	}

	if m.StatusMsg != "" {
		content += "\n" + statusStyle.Render(m.StatusMsg)
	}
	if m.ErrorMsg != "" {
		content += "\n" + errorStyle.Render("Error: "+m.ErrorMsg)
	}

	return appStyle.Render(content)
}

// ─── Dashboard ───────────────────────────────────────────────────────────────

func (m Model) viewDashboard() string {
	var b strings.Builder

	b.WriteString(renderLogo())
	b.WriteString("\n")

	if m.Stats != nil {
		span := "no entries yet"
		if m.Stats.FirstEntry != nil && m.Stats.LastEntry != nil {
			span = fmt.Sprintf("%s → %s",
				m.Stats.FirstEntry.Local().Format("Jan 2, 2006"),
				m.Stats.LastEntry.Local().Format("Jan 2, 2006"))
		}
		statsContent := fmt.Sprintf(
			"%s %s\n%s %s\n%s %s\n\n  %s",
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.TotalEntries)),
			statLabelStyle.Render("entries"),
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.ActiveLoops)),
			statLabelStyle.Render("active loops"),
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.ResolvedLoops)),
			statLabelStyle.Render("resolved loops"),
			timestampStyle.Render(span),
		)
		b.WriteString(statCardStyle.Render(statsContent))
		b.WriteString("\n")
	} else {
		b.WriteString(statCardStyle.Render("Loading stats..."))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("  Actions"))
	b.WriteString("\n")

	for i, item := range dashboardMenuItems {
		if i == m.Cursor {
			b.WriteString(menuSelectedStyle.Render("▸ " + item))
		} else {
			b.WriteString(menuItemStyle.Render("  " + item))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter select • w write • e entries • s search • l loops • a analyze • q quit"))

	return b.String()
}

// ─── Write ───────────────────────────────────────────────────────────────────

func (m Model) viewWrite() string {
	var b strings.Builder

	header := "  New Entry"
	if m.EditingID != 0 {
		header = fmt.Sprintf("  Editing Entry #%d", m.EditingID)
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(editorStyle.Render(m.Editor.View()))
	b.WriteString("\n")

	help := "\n  ctrl+s save • ctrl+r analyze with this text • esc cancel"
	if m.EditingID != 0 {
		help = "\n  ctrl+s save changes • esc cancel"
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// ─── Entries ─────────────────────────────────────────────────────────────────

func (m Model) viewEntries() string {
	var b strings.Builder

	count := len(m.Entries)
	b.WriteString(headerStyle.Render(fmt.Sprintf("  Entries — %d total", count)))
	b.WriteString("\n")

	if count == 0 {
		b.WriteString(noResultsStyle.Render("No entries yet. Press w to write your first one."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  w write • esc back"))
		return b.String()
	}

	visibleItems := m.entryCapacity(8)
	end := min(m.Scroll+visibleItems, count)

	for i := m.Scroll; i < end; i++ {
		b.WriteString(m.renderEntryListItem(i, m.Entries[i]))
	}

	if count > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, count))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter read • w write • esc back"))

	return b.String()
}

// ─── Entry Detail ────────────────────────────────────────────────────────────

func (m Model) viewEntryDetail() string {
	var b strings.Builder

	if m.SelectedEntry == nil {
		b.WriteString(headerStyle.Render("  Entry"))
		b.WriteString("\n")
		b.WriteString(noResultsStyle.Render("Loading..."))
		return b.String()
	}

	e := m.SelectedEntry
	b.WriteString(headerStyle.Render(fmt.Sprintf("  Entry #%d", e.ID)))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		detailLabelStyle.Render("Written:"),
		timestampStyle.Render(e.Timestamp.Local().Format("Monday, Jan 2 2006 at 15:04"))))
	if e.UpdatedAt.After(e.Timestamp) {
		b.WriteString(fmt.Sprintf("%s %s\n",
			detailLabelStyle.Render("Edited:"),
			timestampStyle.Render(e.UpdatedAt.Local().Format("Monday, Jan 2 2006 at 15:04"))))
	}
	b.WriteString("\n")

	contentLines := strings.Split(e.Content, "\n")
	maxLines := max(m.Height-14, 5)
	scroll := min(m.DetailScroll, max(len(contentLines)-maxLines, 0))
	end := min(scroll+maxLines, len(contentLines))

	for i := scroll; i < end; i++ {
		b.WriteString(detailContentStyle.Render(contentLines[i]))
		b.WriteString("\n")
	}

	if len(contentLines) > maxLines {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("line %d-%d of %d", scroll+1, end, len(contentLines)))))
	}

	if m.ConfirmDelete {
		b.WriteString("\n")
		b.WriteString(confirmStyle.Render("Delete this entry? This cannot be undone. (y/n)"))
		return b.String()
	}

	b.WriteString(helpStyle.Render("\n  j/k scroll • e edit • d delete • esc back"))

	return b.String()
}

// ─── Search ──────────────────────────────────────────────────────────────────

func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  Search Journal"))
	b.WriteString("\n\n")

	b.WriteString(searchInputStyle.Render(m.SearchInput.View()))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render("  Type a query and press enter • esc go back"))

	return b.String()
}

func (m Model) viewSearchResults() string {
	var b strings.Builder

	resultCount := len(m.SearchResults)
	header := fmt.Sprintf("  Search: %q — %d result", m.SearchQuery, resultCount)
	if resultCount != 1 {
		header += "s"
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if resultCount == 0 {
		b.WriteString(noResultsStyle.Render("Nothing matched. Try different words."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  / new search • esc back"))
		return b.String()
	}

	visibleItems := m.entryCapacity(10)
	end := min(m.Scroll+visibleItems, resultCount)

	for i := m.Scroll; i < end; i++ {
		b.WriteString(m.renderEntryListItem(i, m.SearchResults[i].Entry))
	}

	if resultCount > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, resultCount))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter read • / search • esc back"))

	return b.String()
}

// ─── Loops ───────────────────────────────────────────────────────────────────

func (m Model) viewLoops() string {
	var b strings.Builder

	count := len(m.Loops)
	b.WriteString(headerStyle.Render(fmt.Sprintf("  Thought Loops — %d tracked", count)))
	b.WriteString("\n")

	if count == 0 {
		b.WriteString(noResultsStyle.Render("No loops yet. Run an analysis once you have a few entries."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  a analyze • esc back"))
		return b.String()
	}

	visibleItems := m.listCapacity(8)
	end := min(m.Scroll+visibleItems, count)

	for i := m.Scroll; i < end; i++ {
		l := m.Loops[i]
		cursor := "  "
		style := listItemStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}

		badge := activeBadgeStyle.Render(fmt.Sprintf("[%-8s]", l.Status))
		if l.Status == store.LoopResolved {
			badge = resolvedBadgeStyle.Render(fmt.Sprintf("[%-8s]", l.Status))
		}

		b.WriteString(fmt.Sprintf("%s%s %s  %s\n",
			cursor,
			badge,
			style.Render(fmt.Sprintf("%-28s", truncateStr(l.Topic, 28))),
			timestampStyle.Render(fmt.Sprintf("since %s · last seen %s",
				l.StartDate.Local().Format("Jan 2"),
				l.LastSeenDate.Local().Format("Jan 2")))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • a analyze • esc back"))

	return b.String()
}

// ─── Insight ─────────────────────────────────────────────────────────────────

func (m Model) viewInsight() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  Insight"))
	b.WriteString("\n")

	if m.Analyzing {
		b.WriteString(fmt.Sprintf("\n  %s Reading your recent entries...\n",
			m.Spinner.View()))
		b.WriteString(timestampStyle.Render(fmt.Sprintf("  style: %s • model: %s",
			modeLabel(m.Options.Mode), remoteLabel(m.Options.UseRemote))))
		b.WriteString("\n")
		return b.String()
	}

	if m.Insight == nil {
		b.WriteString(noResultsStyle.Render("No insight to show."))
		b.WriteString(helpStyle.Render("\n  esc back"))
		return b.String()
	}

	b.WriteString(m.renderInsightCard(m.Insight))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("\n  enter/esc back • l loops"))

	return b.String()
}

func (m Model) renderInsightCard(ev *insight.Event) string {
	accent := insightColor(ev.Kind)

	title := "Insight"
	switch ev.Kind {
	case insight.EventCelebration:
		title = "✓ Progress"
	case insight.EventSuggestion:
		title = fmt.Sprintf("↻ You keep coming back to %q", ev.Topic)
	case insight.EventError:
		title = "✗ Something went wrong"
	}

	width := min(max(m.Width-10, 40), 90)
	body := ev.Message
	if ev.Kind == insight.EventSuggestion && ev.GuidanceText != "" {
		body = renderMarkdown(ev.GuidanceText, width-6)
	}

	var b strings.Builder
	b.WriteString(insightTitleStyle.Foreground(accent).Render(title))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(body, "\n"))

	return insightCardStyle.
		BorderForeground(accent).
		Width(width).
		Render(b.String())
}

func insightColor(kind insight.EventKind) lipgloss.Color {
	switch kind {
	case insight.EventCelebration:
		return colorGreen
	case insight.EventSuggestion:
		return colorPeach
	case insight.EventError:
		return colorRed
	default:
		return colorLavender
	}
}

// renderMarkdown renders guidance text, which models often return as
// Markdown. It falls back to the raw text if rendering fails.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// ─── Settings ────────────────────────────────────────────────────────────────

func (m Model) viewSettings() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  Settings"))
	b.WriteString("\n")

	rows := []struct{ label, value string }{
		{"Guidance style", modeLabel(m.Options.Mode)},
		{"Model", remoteLabel(m.Options.UseRemote)},
	}
	for i, row := range rows {
		line := fmt.Sprintf("%s %s", detailLabelStyle.Render(row.label+":"), detailValueStyle.Render("‹ "+row.value+" ›"))
		if i == m.Cursor {
			b.WriteString(menuSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(menuItemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(timestampStyle.Render("  Auto lets the model pick the style that fits what you wrote."))
	b.WriteString(helpStyle.Render("\n  j/k navigate • enter/←/→ change • esc back"))

	return b.String()
}

func modeLabel(mode classifier.Mode) string {
	switch mode {
	case classifier.ModeReframing:
		return "Reframing"
	case classifier.ModeEmotionalExploration:
		return "Emotional exploration"
	case classifier.ModeActionOriented:
		return "Action oriented"
	default:
		return "Auto"
	}
}

func remoteLabel(remote bool) string {
	if remote {
		return "Remote (more capable)"
	}
	return "Local (private)"
}

// ─── Shared Renderers ────────────────────────────────────────────────────────

func (m Model) renderEntryListItem(index int, e store.Entry) string {
	cursor := "  "
	style := listItemStyle
	if index == m.Cursor {
		cursor = "▸ "
		style = listSelectedStyle
	}

	line := fmt.Sprintf("%s%s %s\n",
		cursor,
		idStyle.Render(fmt.Sprintf("#%-5d", e.ID)),
		style.Render(e.Timestamp.Local().Format("Mon, Jan 2 2006 · 15:04")))

	if preview := truncateStr(e.Content, previewLength); preview != "" {
		line += contentPreviewStyle.Width(m.previewWidth()).Render(preview) + "\n"
	}

	return line
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func truncateStr(s string, n int) string {
	// Remove newlines for single-line display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
