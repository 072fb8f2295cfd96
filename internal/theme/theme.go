package theme

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultName is the theme used when none, or an unknown one, is configured.
const DefaultName = "sage"

// Theme defines the color scheme for the application.
// Every color adapts to light and dark terminals.
type Theme struct {
	Name string

	// Text colors
	Primary     lipgloss.AdaptiveColor
	Secondary   lipgloss.AdaptiveColor
	Accent      lipgloss.AdaptiveColor
	Muted       lipgloss.AdaptiveColor
	VerseNumber lipgloss.AdaptiveColor
	Error       lipgloss.AdaptiveColor

	// UI element colors
	Border         lipgloss.AdaptiveColor
	BorderActive   lipgloss.AdaptiveColor
	Surface        lipgloss.AdaptiveColor
	Highlight      lipgloss.AdaptiveColor
	HighlightHover lipgloss.AdaptiveColor
}

// palette is the raw color set of one theme.
type palette struct {
	highlightBg, highlightHover, accent                       string
	textPrimary, textSecondary, textMuted                     string
	surface, verseNum                                         string
	darkHighlightBg, darkHighlightHover, darkAccent, darkText string
}

var errorColor = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}

func (p palette) theme(name string) Theme {
	return Theme{
		Name:           name,
		Primary:        lipgloss.AdaptiveColor{Light: p.textPrimary, Dark: p.darkText},
		Secondary:      lipgloss.AdaptiveColor{Light: p.textSecondary, Dark: p.highlightHover},
		Accent:         lipgloss.AdaptiveColor{Light: p.accent, Dark: p.accent},
		Muted:          lipgloss.AdaptiveColor{Light: p.textMuted, Dark: p.textMuted},
		VerseNumber:    lipgloss.AdaptiveColor{Light: p.verseNum, Dark: p.verseNum},
		Error:          errorColor,
		Border:         lipgloss.AdaptiveColor{Light: p.highlightHover, Dark: p.darkHighlightHover},
		BorderActive:   lipgloss.AdaptiveColor{Light: p.textSecondary, Dark: p.accent},
		Surface:        lipgloss.AdaptiveColor{Light: p.surface, Dark: p.darkHighlightBg},
		Highlight:      lipgloss.AdaptiveColor{Light: p.highlightBg, Dark: p.darkHighlightBg},
		HighlightHover: lipgloss.AdaptiveColor{Light: p.highlightHover, Dark: p.darkAccent},
	}
}

var palettes = map[string]palette{
	"sage": {
		highlightBg: "#e8f5d6", highlightHover: "#d2edaf", accent: "#a8d86e",
		textPrimary: "#2d3a2e", textSecondary: "#4a6b4d", textMuted: "#6b7c6c",
		surface: "#f8faf5", verseNum: "#7a9b7d",
		darkHighlightBg: "#3d5a3e", darkHighlightHover: "#4a6b4d", darkAccent: "#4a6b4d", darkText: "#e8f5d6",
	},
	"ocean": {
		highlightBg: "#dbeafe", highlightHover: "#bfdbfe", accent: "#60a5fa",
		textPrimary: "#1e3a5f", textSecondary: "#3b6ea5", textMuted: "#6b8cac",
		surface: "#f0f7ff", verseNum: "#7ba3c9",
		darkHighlightBg: "#1e3a5f", darkHighlightHover: "#2a4d7a", darkAccent: "#3b6ea5", darkText: "#dbeafe",
	},
	"lavender": {
		highlightBg: "#ede9fe", highlightHover: "#ddd6fe", accent: "#a78bfa",
		textPrimary: "#3b1f6e", textSecondary: "#6d4aaa", textMuted: "#8b7aac",
		surface: "#f5f3ff", verseNum: "#9b8cbe",
		darkHighlightBg: "#3b1f6e", darkHighlightHover: "#4c2d8a", darkAccent: "#6d4aaa", darkText: "#ede9fe",
	},
	"amber": {
		highlightBg: "#fef3c7", highlightHover: "#fde68a", accent: "#f59e0b",
		textPrimary: "#451a03", textSecondary: "#92400e", textMuted: "#a17c4c",
		surface: "#fffbeb", verseNum: "#b5913c",
		darkHighlightBg: "#5c3a0e", darkHighlightHover: "#6d4a1a", darkAccent: "#92400e", darkText: "#fef3c7",
	},
	"rose": {
		highlightBg: "#ffe4e6", highlightHover: "#fecdd3", accent: "#fb7185",
		textPrimary: "#4c1d2e", textSecondary: "#9d3858", textMuted: "#a67080",
		surface: "#fff1f2", verseNum: "#b5657e",
		darkHighlightBg: "#4c1d2e", darkHighlightHover: "#5e2a3d", darkAccent: "#9d3858", darkText: "#ffe4e6",
	},
	"teal": {
		highlightBg: "#ccfbf1", highlightHover: "#99f6e4", accent: "#2dd4bf",
		textPrimary: "#134e4a", textSecondary: "#0f766e", textMuted: "#5a8a86",
		surface: "#f0fdfa", verseNum: "#6db0a8",
		darkHighlightBg: "#134e4a", darkHighlightHover: "#1a6b65", darkAccent: "#0f766e", darkText: "#ccfbf1",
	},
	"slate": {
		highlightBg: "#e2e8f0", highlightHover: "#cbd5e1", accent: "#94a3b8",
		textPrimary: "#1e293b", textSecondary: "#475569", textMuted: "#64748b",
		surface: "#f1f5f9", verseNum: "#7a8a9c",
		darkHighlightBg: "#1e293b", darkHighlightHover: "#334155", darkAccent: "#475569", darkText: "#e2e8f0",
	},
	"sunset": {
		highlightBg: "#ffedd5", highlightHover: "#fed7aa", accent: "#fb923c",
		textPrimary: "#431407", textSecondary: "#9a3412", textMuted: "#a67050",
		surface: "#fff7ed", verseNum: "#b8845c",
		darkHighlightBg: "#5a2a0e", darkHighlightHover: "#6b3a1a", darkAccent: "#9a3412", darkText: "#ffedd5",
	},
}

// Names returns the available theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllThemes returns a list of all available themes
func AllThemes() []Theme {
	names := Names()
	out := make([]Theme, 0, len(names))
	for _, name := range names {
		out = append(out, palettes[name].theme(name))
	}
	return out
}

// Exists reports whether name is a known theme.
func Exists(name string) bool {
	_, ok := palettes[name]
	return ok
}

// GetTheme returns a theme by name, defaulting to sage if not found
func GetTheme(name string) Theme {
	if p, ok := palettes[name]; ok {
		return p.theme(name)
	}
	return palettes[DefaultName].theme(DefaultName)
}
