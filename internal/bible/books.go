package bible

import (
	"fmt"
	"strings"
)

// Book holds metadata for a single canonical book.
type Book struct {
	Name     string
	Number   int // bolls.life book id
	Chapters int
	aliases  []string
}

// Aliases returns every accepted spelling of the book, including its canonical name.
func (b Book) Aliases() []string {
	out := make([]string, 0, len(b.aliases)+1)
	out = append(out, b.Name)
	for _, a := range b.aliases {
		if a != b.Name {
			out = append(out, a)
		}
	}
	return out
}

// Books contains the 66 canonical books in canonical order.
var Books = []Book{
	// ── Old Testament ──────────────────────────────────────────────────────────
	{"Genesis", 1, 50, []string{"Gen", "Gn"}},
	{"Exodus", 2, 40, []string{"Exod", "Exo"}},
	{"Leviticus", 3, 27, []string{"Lev", "Lv"}},
	{"Numbers", 4, 36, []string{"Num", "Nm"}},
	{"Deuteronomy", 5, 34, []string{"Deut", "Dt"}},
	{"Joshua", 6, 24, []string{"Josh", "Jsh"}},
	{"Judges", 7, 21, []string{"Judg", "Jdg", "Jdgs"}},
	{"Ruth", 8, 4, []string{"Rth"}},
	{"1 Samuel", 9, 31, numbered(1, "Samuel", "Sam", "Sm")},
	{"2 Samuel", 10, 24, numbered(2, "Samuel", "Sam", "Sm")},
	{"1 Kings", 11, 22, numbered(1, "Kings", "Kgs")},
	{"2 Kings", 12, 25, numbered(2, "Kings", "Kgs")},
	{"1 Chronicles", 13, 29, numbered(1, "Chronicles", "Chron", "Chr")},
	{"2 Chronicles", 14, 36, numbered(2, "Chronicles", "Chron", "Chr")},
	{"Ezra", 15, 10, []string{"Ezr"}},
	{"Nehemiah", 16, 13, []string{"Neh"}},
	{"Esther", 17, 10, []string{"Esth", "Est"}},
	{"Job", 18, 42, []string{"Jb"}},
	{"Psalms", 19, 150, []string{"Psalm", "Ps", "Psa", "Pss", "Psm"}},
	{"Proverbs", 20, 31, []string{"Prov", "Prv"}},
	{"Ecclesiastes", 21, 12, []string{"Eccl", "Eccles", "Ecc", "Qoh", "Qoheleth"}},
	{"Song of Solomon", 22, 8, []string{"Song of Songs", "Song", "Canticles", "Cant"}},
	{"Isaiah", 23, 66, []string{"Isa"}},
	{"Jeremiah", 24, 52, []string{"Jer"}},
	{"Lamentations", 25, 5, []string{"Lam"}},
	{"Ezekiel", 26, 48, []string{"Ezek", "Eze", "Ezk"}},
	{"Daniel", 27, 12, []string{"Dan", "Dn"}},
	{"Hosea", 28, 14, []string{"Hos"}},
	{"Joel", 29, 3, []string{"Jl"}},
	{"Amos", 30, 9, nil},
	{"Obadiah", 31, 1, []string{"Obad", "Oba"}},
	{"Jonah", 32, 4, []string{"Jnh"}},
	{"Micah", 33, 7, []string{"Mic"}},
	{"Nahum", 34, 3, []string{"Nah"}},
	{"Habakkuk", 35, 3, []string{"Hab"}},
	{"Zephaniah", 36, 3, []string{"Zeph", "Zep"}},
	{"Haggai", 37, 2, []string{"Hag", "Hg"}},
	{"Zechariah", 38, 14, []string{"Zech", "Zec"}},
	{"Malachi", 39, 4, []string{"Mal"}},
	// ── New Testament ─────────────────────────────────────────────────────────
	{"Matthew", 40, 28, []string{"Matt", "Mat", "Mt"}},
	{"Mark", 41, 16, []string{"Mrk", "Mk"}},
	{"Luke", 42, 24, []string{"Luk", "Lk"}},
	{"John", 43, 21, []string{"Jhn", "Jn"}},
	{"Acts", 44, 28, []string{"Acts of the Apostles"}},
	{"Romans", 45, 16, []string{"Rom", "Rm"}},
	{"1 Corinthians", 46, 16, numbered(1, "Corinthians", "Cor")},
	{"2 Corinthians", 47, 13, numbered(2, "Corinthians", "Cor")},
	{"Galatians", 48, 6, []string{"Gal"}},
	{"Ephesians", 49, 6, []string{"Ephes", "Eph"}},
	{"Philippians", 50, 4, []string{"Phil", "Php"}},
	{"Colossians", 51, 4, []string{"Col"}},
	{"1 Thessalonians", 52, 5, numbered(1, "Thessalonians", "Thess", "Thes", "Th")},
	{"2 Thessalonians", 53, 3, numbered(2, "Thessalonians", "Thess", "Thes", "Th")},
	{"1 Timothy", 54, 6, numbered(1, "Timothy", "Tim")},
	{"2 Timothy", 55, 4, numbered(2, "Timothy", "Tim")},
	{"Titus", 56, 3, []string{"Tit"}},
	{"Philemon", 57, 1, []string{"Philem", "Phlm", "Phm"}},
	{"Hebrews", 58, 13, []string{"Heb"}},
	{"James", 59, 5, []string{"Jas", "Jm"}},
	{"1 Peter", 60, 5, numbered(1, "Peter", "Pet", "Pt")},
	{"2 Peter", 61, 3, numbered(2, "Peter", "Pet", "Pt")},
	{"1 John", 62, 5, numbered(1, "John", "Jhn", "Jn")},
	{"2 John", 63, 1, numbered(2, "John", "Jhn", "Jn")},
	{"3 John", 64, 1, numbered(3, "John", "Jhn", "Jn")},
	{"Jude", 65, 1, []string{"Jde"}},
	{"Revelation", 66, 22, []string{"Revelations", "Rev"}},
}

var (
	ordinals = [...]string{"", "1st", "2nd", "3rd"}
	words    = [...]string{"", "First", "Second", "Third"}
	// A bare "I" reads as the pronoun in prose ("it was I John saw"), so the
	// first books have no Roman form.
	roman = [...]string{"", "", "II", "III"}
)

// numbered expands the usual prefixes of a numbered book ("2 John", "2John",
// "2nd John", "Second John", "II John") for every given base spelling.
func numbered(n int, bases ...string) []string {
	var out []string
	for _, base := range bases {
		out = append(out,
			fmt.Sprintf("%d %s", n, base),
			fmt.Sprintf("%d%s", n, base),
			ordinals[n]+" "+base,
			words[n]+" "+base,
		)
		if roman[n] != "" {
			out = append(out, roman[n]+" "+base)
		}
	}
	return out
}

var (
	byName  = make(map[string]Book, len(Books))
	byAlias = make(map[string]string)
)

func init() {
	for _, b := range Books {
		byName[b.Name] = b
		for _, a := range b.Aliases() {
			byAlias[NormalizeSpelling(a)] = b.Name
		}
	}
}

// NormalizeSpelling lowercases s and collapses runs of whitespace into a single space.
func NormalizeSpelling(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Lookup resolves any accepted spelling to its canonical book name.
// The lookup is case-insensitive and whitespace-normalized.
func Lookup(spelling string) (string, bool) {
	name, ok := byAlias[NormalizeSpelling(spelling)]
	return name, ok
}

// IsCanonical reports whether name is one of the canonical book names.
func IsCanonical(name string) bool {
	_, ok := byName[name]
	return ok
}

// Number returns the bolls.life book id for a canonical book name.
func Number(name string) (int, bool) {
	b, ok := byName[name]
	return b.Number, ok
}

// ChapterCount returns the number of chapters in a canonical book, or zero.
func ChapterCount(name string) int {
	return byName[name].Chapters
}
