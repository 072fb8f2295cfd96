package bible

import (
	"strconv"
	"strings"
)

// VerseContent is the text delivered for a single verse, a verse range or a chapter.
type VerseContent struct {
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// ChapterVerse is one numbered verse of a chapter.
type ChapterVerse struct {
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

// ChapterContent is a full chapter in one translation, verses ordered by number.
type ChapterContent struct {
	Book        string         `json:"book"`
	Chapter     int            `json:"chapter"`
	Verses      []ChapterVerse `json:"verses"`
	Translation string         `json:"translation"`
}

// Slice returns the verses numbered start through end inclusive.
// An end of zero selects the single verse start.
func (c ChapterContent) Slice(start, end int) []ChapterVerse {
	if end < start {
		end = start
	}
	var out []ChapterVerse
	for _, v := range c.Verses {
		if v.Verse >= start && v.Verse <= end {
			out = append(out, v)
		}
	}
	return out
}

// Content builds the VerseContent for r out of the chapter. Ranges and whole
// chapters carry verse numbers in the text; a single verse does not.
// ok is false when the chapter holds none of the requested verses.
func (c ChapterContent) Content(r Reference) (VerseContent, bool) {
	verses := c.Verses
	if !r.IsChapter() {
		verses = c.Slice(r.VerseStart, r.VerseEnd)
	}
	if len(verses) == 0 {
		return VerseContent{}, false
	}
	return VerseContent{
		Reference:   string(Format(r)),
		Text:        JoinVerses(verses, r.IsChapter() || r.IsRange()),
		Translation: c.Translation,
	}, true
}

// JoinVerses joins verse texts with spaces, prefixing each with its number when numbered is set.
func JoinVerses(verses []ChapterVerse, numbered bool) string {
	parts := make([]string, 0, len(verses))
	for _, v := range verses {
		if numbered {
			parts = append(parts, strconv.Itoa(v.Verse)+" "+v.Text)
		} else {
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Text renders the whole chapter with verse numbers.
func (c ChapterContent) Text() string {
	return JoinVerses(c.Verses, true)
}
