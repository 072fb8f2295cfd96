package bible

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBooksTable(t *testing.T) {
	assert.Len(t, Books, 66)
	for i, b := range Books {
		assert.Equal(t, i+1, b.Number, b.Name)
		assert.Positive(t, b.Chapters, b.Name)
	}
}

func TestAliasesAreUnambiguous(t *testing.T) {
	seen := make(map[string]string)
	for _, b := range Books {
		for _, a := range b.Aliases() {
			key := NormalizeSpelling(a)
			if owner, ok := seen[key]; ok && owner != b.Name {
				t.Errorf("spelling %q claimed by both %s and %s", a, owner, b.Name)
			}
			seen[key] = b.Name
		}
	}
}

func TestLookup(t *testing.T) {
	tests := map[string]string{
		"John":            "John",
		"jn":              "John",
		"1 John":          "1 John",
		"1john":           "1 John",
		"First  John":     "1 John",
		"III John":        "3 John",
		"song of   songs": "Song of Solomon",
		"PSALM":           "Psalms",
		"2nd Kgs":         "2 Kings",
	}
	for in, want := range tests {
		got, ok := Lookup(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := Lookup("Hezekiah")
	assert.False(t, ok)

	// The pronoun reading wins for a bare "I".
	_, ok = Lookup("I John")
	assert.False(t, ok)
	_, ok = Lookup("I Samuel")
	assert.False(t, ok)
}

func TestNumber(t *testing.T) {
	n, ok := Number("Revelation")
	assert.True(t, ok)
	assert.Equal(t, 66, n)

	_, ok = Number("Rev")
	assert.False(t, ok)
}

func TestChapterCount(t *testing.T) {
	assert.Equal(t, 150, ChapterCount("Psalms"))
	assert.Equal(t, 1, ChapterCount("Jude"))
	assert.Zero(t, ChapterCount("Hezekiah"))
}
