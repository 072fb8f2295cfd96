package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/IsraelGboluwaga/phosphora/internal/api"
	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/coordinator"
	"github.com/IsraelGboluwaga/phosphora/internal/detector"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
	"github.com/IsraelGboluwaga/phosphora/internal/session"
	"github.com/IsraelGboluwaga/phosphora/internal/theme"
)

type viewMode int

const (
	modeBrowse viewMode = iota
	modeInput
	modeTranslationSelect
)

// fallbackTranslations is offered when the translation list cannot be loaded.
var fallbackTranslations = []string{"NKJV", "KJV", "ESV", "NIV", "NLT", "WEB", "YLT"}

// TranslationSource lists the translations offered in the picker.
type TranslationSource interface {
	GetTranslations(ctx context.Context) ([]api.Translation, error)
}

// Config wires a Model.
type Config struct {
	Coordinator  *coordinator.Coordinator
	Detector     *detector.Detector
	Translations TranslationSource
	Theme        theme.Theme
	// Text is scanned into the first tab.
	Text   string
	Logger *slog.Logger
}

// tab is one scanned text with its own display surface.
type tab struct {
	id       coordinator.TabID
	source   string
	matches  []bible.Reference
	selected int
	state    coordinator.DisplayState
}

// Model is the Bubble Tea model of the tabbed reader. Each tab holds scanned
// text and its matches, and renders the display state the coordinator keeps
// for it.
type Model struct {
	coord        *coordinator.Coordinator
	detector     *detector.Detector
	translations TranslationSource
	logger       *slog.Logger
	styles       styles

	viewport  viewport.Model
	textInput textinput.Model
	changes   *session.Subscription

	tabs    []tab
	active  int
	nextID  coordinator.TabID
	choices []string
	choice  int
	mode    viewMode
	width   int
	height  int
	ready   bool
	err     error
	status  string
}

type errMsg struct{ err error }
type translationsLoadedMsg struct{ translations []api.Translation }
type displayChangedMsg struct{ change coordinator.DisplayStateChanged }
type prefetchedMsg struct{ count int }

func (e errMsg) Error() string { return e.err.Error() }

// NewModel creates the terminal surface. Cfg.Coordinator is required.
func NewModel(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Paste text containing references (e.g. Read John 3:16 and Rom 8:28)"
	ti.CharLimit = 4096
	ti.Width = 60

	det := cfg.Detector
	if det == nil {
		det = detector.New()
	}
	if cfg.Theme.Name == "" {
		cfg.Theme = theme.GetTheme(theme.DefaultName)
	}

	m := Model{
		coord:        cfg.Coordinator,
		detector:     det,
		translations: cfg.Translations,
		logger:       logger.OrDiscard(cfg.Logger),
		styles:       newStyles(cfg.Theme),
		textInput:    ti,
		changes:      cfg.Coordinator.Store().Subscribe(session.HasPrefix(session.DisplayPrefix)),
		choices:      fallbackTranslations,
		nextID:       1,
		mode:         modeBrowse,
	}
	m.openTab()
	if strings.TrimSpace(cfg.Text) != "" {
		m.scan(cfg.Text)
	} else {
		m.mode = modeInput
		m.textInput.Focus()
	}
	return m
}

// Close releases the display subscription.
func (m Model) Close() {
	m.changes.Close()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForChange(), textinput.Blink}
	if m.translations != nil {
		cmds = append(cmds, loadTranslations(m.translations))
	}
	if t := m.current(); len(t.matches) > 0 {
		cmds = append(cmds, m.prefetch(t.matches))
	}
	return tea.Batch(cmds...)
}

// waitForChange delivers the next display state change of any tab.
func (m Model) waitForChange() tea.Cmd {
	ch := m.changes.C
	return func() tea.Msg {
		for c := range ch {
			if ev, ok := coordinator.StateChange(c); ok {
				return displayChangedMsg{ev}
			}
		}
		return nil
	}
}

func loadTranslations(source TranslationSource) tea.Cmd {
	return func() tea.Msg {
		translations, err := source.GetTranslations(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return translationsLoadedMsg{translations}
	}
}

// prefetch warms the caches for refs in the background.
func (m Model) prefetch(refs []bible.Reference) tea.Cmd {
	fields := make([]coordinator.ReferenceFields, len(refs))
	for i, r := range refs {
		fields[i] = coordinator.ReferenceFields{Book: r.Book, Chapter: r.Chapter, VerseStart: r.VerseStart, VerseEnd: r.VerseEnd}
	}
	coord := m.coord
	return func() tea.Msg {
		if _, err := coord.Handle(context.Background(), coordinator.PrefetchRequest{Requests: fields}); err != nil {
			return errMsg{err}
		}
		return prefetchedMsg{count: len(fields)}
	}
}

func (m *Model) current() *tab {
	return &m.tabs[m.active]
}

func (m *Model) openTab() {
	m.tabs = append(m.tabs, tab{id: m.nextID, state: coordinator.Idle{}})
	m.nextID++
	m.switchTab(len(m.tabs) - 1)
}

func (m *Model) switchTab(i int) {
	m.active = i
	t := m.current()
	if _, err := m.coord.Handle(context.Background(), coordinator.TabActivatedRequest{TabID: t.id}); err != nil {
		m.err = err
	}
	m.refresh()
}

func (m *Model) closeTab() {
	t := m.current()
	if _, err := m.coord.Handle(context.Background(), coordinator.TabClosedRequest{TabID: t.id}); err != nil {
		m.err = err
	}
	m.tabs = append(m.tabs[:m.active], m.tabs[m.active+1:]...)
	if len(m.tabs) == 0 {
		m.openTab()
		return
	}
	m.switchTab(min(m.active, len(m.tabs)-1))
}

// scan runs the detector over text and stores the matches in the current tab.
func (m *Model) scan(text string) {
	t := m.current()
	t.source = text
	t.matches = m.detector.Detect(text)
	t.selected = 0
	m.mode = modeBrowse
	if len(t.matches) == 0 {
		m.status = "No references found"
	} else {
		m.status = fmt.Sprintf("Found %d reference(s)", len(t.matches))
	}
	m.refresh()
}

func (m *Model) lookup() {
	t := m.current()
	if len(t.matches) == 0 {
		return
	}
	ref := t.matches[t.selected]
	req := coordinator.LookupRequest{
		TabID:     t.id,
		Reference: ref.Raw,
		ReferenceFields: coordinator.ReferenceFields{
			Book: ref.Book, Chapter: ref.Chapter, VerseStart: ref.VerseStart, VerseEnd: ref.VerseEnd,
		},
	}
	if _, err := m.coord.Handle(context.Background(), req); err != nil {
		m.err = err
		return
	}
	t.state = m.coord.DisplayState(t.id)
	m.refresh()
}

// refresh renders the current tab into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	content, offset := m.renderState(m.current().state)
	m.viewport.SetContent(content)
	m.viewport.SetYOffset(offset)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				text := m.textInput.Value()
				m.textInput.SetValue("")
				m.textInput.Blur()
				m.scan(text)
				if t := m.current(); len(t.matches) > 0 {
					return m, m.prefetch(t.matches)
				}
				return m, nil
			case "esc":
				m.textInput.Blur()
				m.mode = modeBrowse
				return m, nil
			}

		case modeTranslationSelect:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				m.choice = (m.choice - 1 + len(m.choices)) % len(m.choices)
				return m, nil
			case "down", "j", "t":
				m.choice = (m.choice + 1) % len(m.choices)
				return m, nil
			case "enter":
				m.coord.SetTranslation(m.choices[m.choice])
				m.status = "Translation: " + m.choices[m.choice]
				m.mode = modeBrowse
				return m, nil
			case "esc":
				m.mode = modeBrowse
				return m, nil
			}
			return m, nil

		default:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "/", "i":
				m.mode = modeInput
				m.textInput.SetValue(m.current().source)
				m.textInput.Focus()
				return m, textinput.Blink
			case "up", "k":
				if t := m.current(); t.selected > 0 {
					t.selected--
				}
				return m, nil
			case "down", "j":
				if t := m.current(); t.selected < len(t.matches)-1 {
					t.selected++
				}
				return m, nil
			case "enter", "l":
				m.lookup()
				return m, nil
			case "p":
				if t := m.current(); len(t.matches) > 0 {
					m.status = "Prefetching..."
					return m, m.prefetch(t.matches)
				}
				return m, nil
			case "t":
				m.mode = modeTranslationSelect
				m.choice = indexOf(m.choices, m.coord.Translation())
				return m, nil
			case "ctrl+t", "n":
				m.openTab()
				m.mode = modeInput
				m.textInput.Focus()
				return m, textinput.Blink
			case "tab":
				m.switchTab((m.active + 1) % len(m.tabs))
				return m, nil
			case "shift+tab":
				m.switchTab((m.active - 1 + len(m.tabs)) % len(m.tabs))
				return m, nil
			case "ctrl+w", "x":
				m.closeTab()
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.viewport.YPosition = 4
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.textInput.Width = max(msg.Width-4, 10)
		m.refresh()

	case displayChangedMsg:
		for i := range m.tabs {
			if m.tabs[i].id == msg.change.TabID {
				// The coordinator is the source of truth; queued changes may be stale.
				m.tabs[i].state = m.coord.DisplayState(m.tabs[i].id)
			}
		}
		m.refresh()
		return m, m.waitForChange()

	case translationsLoadedMsg:
		if len(msg.translations) > 0 {
			m.choices = make([]string, 0, len(msg.translations))
			for _, tr := range msg.translations {
				m.choices = append(m.choices, tr.ShortName)
			}
		}

	case prefetchedMsg:
		m.status = fmt.Sprintf("Prefetching %d reference(s)", msg.count)

	case errMsg:
		m.err = msg.err
		m.logger.Warn("ui error", "error", msg.err)
	}

	if m.mode == modeInput {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}
