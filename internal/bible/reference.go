// Package bible holds the canonical book table, the reference model and the
// formatter that turns references into cache keys.
package bible

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Error kinds for reference handling.
var (
	ErrUnknownBook      = errors.New("unknown book")
	ErrMalformedRange   = errors.New("malformed verse range")
	ErrInvalidReference = errors.New("invalid reference")
)

// Key is the canonical string form of a reference: "<Book> <Chapter>[:<VerseStart>[-<VerseEnd>]]".
// It doubles as the display label and the cache key.
type Key string

func (k Key) String() string { return string(k) }

// Reference is a structured pointer into the canonical text.
// VerseStart and VerseEnd are zero when absent; a reference without a
// VerseStart denotes an entire chapter.
type Reference struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	VerseStart int    `json:"verseStart,omitempty"`
	VerseEnd   int    `json:"verseEnd,omitempty"`
	Raw        string `json:"raw,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// IsChapter reports whether r denotes a whole chapter.
func (r Reference) IsChapter() bool {
	return r.VerseStart == 0
}

// IsRange reports whether r spans more than one verse.
func (r Reference) IsRange() bool {
	return r.VerseStart > 0 && r.VerseEnd > r.VerseStart
}

// LastVerse returns the final verse covered by r, or zero for a chapter.
func (r Reference) LastVerse() int {
	if r.IsRange() {
		return r.VerseEnd
	}
	return r.VerseStart
}

// Key returns the canonical cache key of r.
func (r Reference) Key() Key {
	return Format(r)
}

func (r Reference) String() string {
	return string(Format(r))
}

// Format renders r as "Book Chapter", extended with ":VerseStart" and, when
// the range spans more than one verse, "-VerseEnd".
func Format(r Reference) Key {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(r.Chapter))
	if r.VerseStart > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(r.VerseStart))
		if r.VerseEnd > 0 && r.VerseEnd != r.VerseStart {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(r.VerseEnd))
		}
	}
	return Key(sb.String())
}

// CheckRange reports ErrMalformedRange when VerseEnd precedes VerseStart.
func (r Reference) CheckRange() error {
	if r.VerseEnd > 0 && r.VerseEnd < r.VerseStart {
		return fmt.Errorf("%w: %d-%d", ErrMalformedRange, r.VerseStart, r.VerseEnd)
	}
	return nil
}

// Normalize applies the range fallback policy: an end verse that precedes
// the start, or equals it, is dropped and the reference becomes a
// single-verse lookup at VerseStart.
func (r Reference) Normalize() Reference {
	if r.VerseEnd > 0 && r.VerseEnd <= r.VerseStart {
		r.VerseEnd = 0
	}
	return r
}

// Canonicalize rewrites r.Book to its canonical spelling and validates the result.
func (r Reference) Canonicalize() (Reference, error) {
	if name, ok := Lookup(r.Book); ok {
		r.Book = name
	}
	return r, r.Validate()
}

// Validate checks that r names a canonical book and holds sane numbers.
func (r Reference) Validate() error {
	if !IsCanonical(r.Book) {
		return fmt.Errorf("%w: %q", ErrUnknownBook, r.Book)
	}
	switch {
	case r.Chapter < 1:
		return fmt.Errorf("%w: chapter %d", ErrInvalidReference, r.Chapter)
	case r.VerseStart < 0 || r.VerseEnd < 0:
		return fmt.Errorf("%w: negative verse", ErrInvalidReference)
	case r.VerseEnd > 0 && r.VerseStart == 0:
		return fmt.Errorf("%w: verse end without verse start", ErrInvalidReference)
	}
	return nil
}

var keyPattern = regexp.MustCompile(`^(.+?)\s+(\d+)(?::(\d+)(?:-(\d+))?)?$`)

// ParseKey parses a key produced by Format back into a Reference. Any accepted
// book spelling is resolved to its canonical name, so ParseKey(Format(r))
// yields a reference that formats to the same key.
func ParseKey(s string) (Reference, error) {
	m := keyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, s)
	}

	book, ok := Lookup(m[1])
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownBook, m[1])
	}

	r := Reference{Book: book, Raw: s}
	r.Chapter, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		r.VerseStart, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		r.VerseEnd, _ = strconv.Atoi(m[4])
	}
	return r, r.Validate()
}
