package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/IsraelGboluwaga/phosphora/internal/coordinator"
	"github.com/IsraelGboluwaga/phosphora/internal/theme"
)

type styles struct {
	header    lipgloss.Style
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	match     lipgloss.Style
	selected  lipgloss.Style
	verseNum  lipgloss.Style
	text      lipgloss.Style
	highlight lipgloss.Style
	muted     lipgloss.Style
	help      lipgloss.Style
	error     lipgloss.Style
}

func newStyles(t theme.Theme) styles {
	return styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Accent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Border),
		title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		tab:       lipgloss.NewStyle().Foreground(t.Muted).Padding(0, 1),
		activeTab: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Background(t.Highlight).Padding(0, 1),
		match:     lipgloss.NewStyle().Foreground(t.Secondary),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Background(t.HighlightHover),
		verseNum:  lipgloss.NewStyle().Foreground(t.VerseNumber),
		text:      lipgloss.NewStyle().Foreground(t.Primary),
		highlight: lipgloss.NewStyle().Foreground(t.Primary).Background(t.Highlight),
		muted:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		help:      lipgloss.NewStyle().Foreground(t.Muted),
		error:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var header string
	switch m.mode {
	case modeInput:
		header = m.styles.header.Render("Scan text for references") + "\n" + m.textInput.View()
	case modeTranslationSelect:
		header = m.styles.header.Render(m.translationPicker())
	default:
		header = m.styles.header.Render(m.tabBar()) + "\n" + m.matchList()
	}

	help := m.styles.help.Render("/: scan | j/k: select | enter: look up | p: prefetch | t: translation | n: new tab | tab: switch | x: close | q: quit")
	if m.status != "" {
		help = m.styles.help.Render(m.status) + "\n" + help
	}

	var errorMsg string
	if m.err != nil {
		errorMsg = "\n" + m.styles.error.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return fmt.Sprintf("%s\n%s\n%s%s", header, m.viewport.View(), help, errorMsg)
}

func (m Model) tabBar() string {
	parts := make([]string, 0, len(m.tabs)+1)
	for i, t := range m.tabs {
		label := fmt.Sprintf("Tab %d", t.id)
		if t.state.Kind() != coordinator.KindIdle {
			label += " •"
		}
		if i == m.active {
			parts = append(parts, m.styles.activeTab.Render(label))
		} else {
			parts = append(parts, m.styles.tab.Render(label))
		}
	}
	parts = append(parts, m.styles.title.Render(m.coord.Translation()))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) matchList() string {
	t := m.tabs[m.active]
	if len(t.matches) == 0 {
		return m.styles.muted.Render("No references. Press / to scan text.")
	}
	parts := make([]string, 0, len(t.matches))
	for i, ref := range t.matches {
		label := ref.Key().String()
		if i == t.selected {
			parts = append(parts, m.styles.selected.Render(label))
		} else {
			parts = append(parts, m.styles.match.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) translationPicker() string {
	var sb strings.Builder
	sb.WriteString("Translation: ")
	for i, name := range m.choices {
		if i > 0 {
			sb.WriteString(" ")
		}
		if i == m.choice {
			sb.WriteString(m.styles.selected.Render(name))
		} else {
			sb.WriteString(m.styles.match.Render(name))
		}
	}
	return sb.String()
}

func (m Model) textWidth() int {
	if m.width <= 0 {
		return 80
	}
	return min(80, max(m.width-6, 20))
}

// renderState renders a display state and returns the line to scroll to.
func (m Model) renderState(state coordinator.DisplayState) (string, int) {
	switch st := state.(type) {
	case coordinator.Loading:
		return m.styles.muted.Render(fmt.Sprintf("Loading %s...", st.Reference.Key())), 0

	case coordinator.ShowingVerse:
		title := m.styles.title.Render(fmt.Sprintf("%s (%s)", st.Content.Reference, st.Content.Translation))
		text := m.styles.text.Width(m.textWidth()).Render(st.Content.Text)
		return title + "\n\n" + text, 0

	case coordinator.ShowingChapter:
		return m.formatChapter(st)

	case coordinator.Error:
		return m.styles.error.Render(fmt.Sprintf("%s: %s", st.Reference.Key(), st.Message)), 0

	default:
		return m.styles.muted.Render("Select a reference and press enter."), 0
	}
}

func (m Model) formatChapter(st coordinator.ShowingChapter) (string, int) {
	var sb strings.Builder
	sb.WriteString(m.styles.title.Render(fmt.Sprintf("%s %d (%s)", st.Content.Book, st.Content.Chapter, st.Content.Translation)))
	sb.WriteString("\n\n")

	offset := 0
	for _, v := range st.Content.Verses {
		textStyle := m.styles.text
		if st.Highlighted(v.Verse) {
			textStyle = m.styles.highlight
			if v.Verse == st.HighlightStart {
				offset = lipgloss.Height(sb.String()) - 1
			}
		}
		verseNum := m.styles.verseNum.Render(fmt.Sprintf("%3d", v.Verse))
		verseText := textStyle.Width(m.textWidth()).Render(v.Text)
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, verseNum, "  ", verseText))
		sb.WriteString("\n\n")
	}

	return sb.String(), offset
}
