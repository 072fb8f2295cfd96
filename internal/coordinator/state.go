package coordinator

import (
	"strconv"
	"strings"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/session"
)

// TabID identifies one browsing context with its own display surface.
type TabID int

// Kind names a DisplayState variant.
type Kind string

const (
	KindIdle           Kind = "idle"
	KindLoading        Kind = "loading"
	KindShowingVerse   Kind = "showingVerse"
	KindShowingChapter Kind = "showingChapter"
	KindError          Kind = "error"
)

// DisplayState is what a tab currently shows. The variants are Idle, Loading,
// ShowingVerse, ShowingChapter and Error.
type DisplayState interface {
	Kind() Kind
	displayState()
}

// Idle is the state of a tab that has no lookup.
type Idle struct{}

// Loading waits on a fetch for Reference in Translation.
type Loading struct {
	Reference   bible.Reference `json:"reference"`
	Translation string          `json:"translation"`
}

// ShowingVerse shows the text of a single verse or a verse range.
type ShowingVerse struct {
	Content bible.VerseContent `json:"content"`
}

// ShowingChapter shows a whole chapter. HighlightStart and HighlightEnd mark
// the requested verses and are zero when the whole chapter was requested.
type ShowingChapter struct {
	Content        bible.ChapterContent `json:"content"`
	HighlightStart int                  `json:"highlightStart,omitempty"`
	HighlightEnd   int                  `json:"highlightEnd,omitempty"`
}

// Error reports a failed fetch. It stays until a new lookup replaces it.
type Error struct {
	Reference bible.Reference `json:"reference"`
	Message   string          `json:"message"`
}

func (Idle) Kind() Kind           { return KindIdle }
func (Loading) Kind() Kind        { return KindLoading }
func (ShowingVerse) Kind() Kind   { return KindShowingVerse }
func (ShowingChapter) Kind() Kind { return KindShowingChapter }
func (Error) Kind() Kind          { return KindError }

func (Idle) displayState()           {}
func (Loading) displayState()        {}
func (ShowingVerse) displayState()   {}
func (ShowingChapter) displayState() {}
func (Error) displayState()          {}

// Highlighted reports whether verse falls inside the highlighted range.
func (s ShowingChapter) Highlighted(verse int) bool {
	if s.HighlightStart == 0 {
		return false
	}
	end := s.HighlightEnd
	if end < s.HighlightStart {
		end = s.HighlightStart
	}
	return verse >= s.HighlightStart && verse <= end
}

// DisplayStateChanged is pushed to subscribers whenever a tab's state changes.
type DisplayStateChanged struct {
	TabID TabID
	State DisplayState
}

// StateChange converts a session change on a display key. ok is false for
// keys outside the display layout. A deleted key reads as Idle.
func StateChange(c session.Change) (DisplayStateChanged, bool) {
	raw, found := strings.CutPrefix(c.Key, session.DisplayPrefix)
	if !found {
		return DisplayStateChanged{}, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return DisplayStateChanged{}, false
	}

	ev := DisplayStateChanged{TabID: TabID(id), State: Idle{}}
	if st, isState := c.Value.(DisplayState); isState && !c.Deleted {
		ev.State = st
	}
	return ev, true
}
