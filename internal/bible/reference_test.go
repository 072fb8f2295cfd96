package bible

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		ref  Reference
		want Key
	}{
		{"chapter", Reference{Book: "John", Chapter: 3}, "John 3"},
		{"verse", Reference{Book: "John", Chapter: 3, VerseStart: 16}, "John 3:16"},
		{"range", Reference{Book: "1 John", Chapter: 2, VerseStart: 1, VerseEnd: 3}, "1 John 2:1-3"},
		{"same start and end", Reference{Book: "Romans", Chapter: 8, VerseStart: 28, VerseEnd: 28}, "Romans 8:28"},
		{"multi word book", Reference{Book: "Song of Solomon", Chapter: 2, VerseStart: 4}, "Song of Solomon 2:4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.ref))
			assert.Equal(t, string(tt.want), tt.ref.String())
		})
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	refs := []Reference{
		{Book: "Genesis", Chapter: 1},
		{Book: "Psalms", Chapter: 119, VerseStart: 105},
		{Book: "3 John", Chapter: 1, VerseStart: 2, VerseEnd: 4},
		{Book: "Song of Solomon", Chapter: 8, VerseStart: 6, VerseEnd: 7},
	}

	for _, r := range refs {
		key := Format(r)
		parsed, err := ParseKey(string(key))
		require.NoError(t, err, key)
		assert.Equal(t, key, Format(parsed))
		assert.Equal(t, key, Format(mustParse(t, string(Format(parsed)))))
	}
}

func mustParse(t *testing.T, s string) Reference {
	t.Helper()
	r, err := ParseKey(s)
	require.NoError(t, err)
	return r
}

func TestParseKeyAcceptsAliases(t *testing.T) {
	r, err := ParseKey("1 jn 4:8")
	require.NoError(t, err)
	assert.Equal(t, Key("1 John 4:8"), r.Key())
}

func TestParseKeyErrors(t *testing.T) {
	_, err := ParseKey("Hezekiah 1:1")
	assert.ErrorIs(t, err, ErrUnknownBook)

	_, err = ParseKey("John")
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = ParseKey("John 0")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestNormalizeRangeFallback(t *testing.T) {
	r := Reference{Book: "John", Chapter: 3, VerseStart: 16, VerseEnd: 10}
	assert.ErrorIs(t, r.CheckRange(), ErrMalformedRange)

	n := r.Normalize()
	assert.Equal(t, 16, n.VerseStart)
	assert.Zero(t, n.VerseEnd)
	assert.Equal(t, Key("John 3:16"), n.Key())
	assert.NoError(t, n.CheckRange())

	ok := Reference{Book: "John", Chapter: 3, VerseStart: 16, VerseEnd: 18}
	assert.Equal(t, ok, ok.Normalize())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Reference{Book: "Jude", Chapter: 1, VerseStart: 3}.Validate())
	assert.ErrorIs(t, Reference{Book: "Jn", Chapter: 1}.Validate(), ErrUnknownBook)
	assert.ErrorIs(t, Reference{Book: "John", Chapter: 1, VerseEnd: 4}.Validate(), ErrInvalidReference)

	r, err := Reference{Book: "rev", Chapter: 22, VerseStart: 21}.Canonicalize()
	require.NoError(t, err)
	assert.Equal(t, "Revelation", r.Book)
}

func TestChapterContent(t *testing.T) {
	c := ChapterContent{
		Book:        "John",
		Chapter:     3,
		Translation: "KJV",
		Verses: []ChapterVerse{
			{Verse: 15, Text: "That whosoever believeth"},
			{Verse: 16, Text: "For God so loved"},
			{Verse: 17, Text: "For God sent not"},
		},
	}

	single, ok := c.Content(Reference{Book: "John", Chapter: 3, VerseStart: 16})
	require.True(t, ok)
	assert.Equal(t, VerseContent{Reference: "John 3:16", Text: "For God so loved", Translation: "KJV"}, single)

	rng, ok := c.Content(Reference{Book: "John", Chapter: 3, VerseStart: 16, VerseEnd: 17})
	require.True(t, ok)
	assert.Equal(t, "16 For God so loved 17 For God sent not", rng.Text)

	_, ok = c.Content(Reference{Book: "John", Chapter: 3, VerseStart: 40})
	assert.False(t, ok)

	whole, ok := c.Content(Reference{Book: "John", Chapter: 3})
	require.True(t, ok)
	assert.Equal(t, "John 3", whole.Reference)
}
