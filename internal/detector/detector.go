// Package detector finds structured references to the canonical text inside
// free-form text in a single pass.
package detector

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
)

// verseSeparator matches ":", "v", "vs", "verse" with an optional period and
// flexible spacing: "3:16", "3 v 16", "3v16", "3 vs. 16", "3 verse 16".
const verseSeparator = `(?::|\s*(?:vs?\.?|verse)\s*)`

// Detector scans text for references using an alias alternation built
// longest-spelling-first, so "1 John" wins over the "John" it contains.
type Detector struct {
	spellings map[string]string
	lookup    map[string]string
	policy    Policy
	pattern   *regexp.Regexp
	reject    *regexp.Regexp
}

// New builds a Detector from the bible alias table unless WithSpellings is given.
func New(opts ...Option) *Detector {
	d := &Detector{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(d)
	}

	if d.spellings == nil {
		d.spellings = make(map[string]string)
		for _, b := range bible.Books {
			for _, a := range b.Aliases() {
				d.spellings[a] = b.Name
			}
		}
	}

	d.lookup = make(map[string]string, len(d.spellings))
	names := make([]string, 0, len(d.spellings))
	for spelling, book := range d.spellings {
		d.lookup[bible.NormalizeSpelling(spelling)] = book
		names = append(names, spelling)
	}

	d.pattern = buildPattern(names)
	d.reject = buildReject(d.policy.FalsePositiveWords)
	return d
}

// buildPattern joins all spellings into one alternation ordered by descending
// length. Ties are broken alphabetically so the pattern is deterministic.
func buildPattern(names []string) *regexp.Regexp {
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	alts := make([]string, 0, len(names))
	for _, name := range names {
		words := strings.Fields(name)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}

	return regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\.?\s*(\d{1,3})` +
		`(?:` + verseSeparator + `(\d{1,3})(?:\s*[-–—]\s*(\d{1,3}))?)?\b`)
}

func buildReject(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)^\s+(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Detect returns the references found in text, ordered by offset, without
// overlaps. Offsets are byte positions into text. Candidates that fail the
// policy or whose book cannot be resolved are skipped.
func (d *Detector) Detect(text string) []bible.Reference {
	var refs []bible.Reference

	for _, loc := range d.pattern.FindAllStringSubmatchIndex(text, -1) {
		book, ok := d.resolve(text[loc[2]:loc[3]])
		if !ok {
			continue
		}

		hasVerse := loc[6] >= 0
		if !hasVerse && d.reject != nil && d.reject.MatchString(text[loc[1]:]) {
			continue
		}

		ref := bible.Reference{
			Book:    book,
			Chapter: atoi(text[loc[4]:loc[5]]),
			Raw:     text[loc[0]:loc[1]],
			Offset:  loc[0],
		}
		if hasVerse {
			ref.VerseStart = atoi(text[loc[6]:loc[7]])
		}
		if loc[8] >= 0 {
			ref.VerseEnd = atoi(text[loc[8]:loc[9]])
		}
		refs = append(refs, ref)
	}

	return refs
}

// resolve maps a captured spelling to its canonical book.
func (d *Detector) resolve(spelling string) (string, bool) {
	book, ok := d.lookup[bible.NormalizeSpelling(spelling)]
	if !ok || !bible.IsCanonical(book) {
		return "", false
	}
	return book, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var defaultDetector = sync.OnceValue(func() *Detector { return New() })

// Detect scans text with the default alias table and policy.
func Detect(text string) []bible.Reference {
	return defaultDetector().Detect(text)
}
