package detector

// DefaultFalsePositiveWords are the words that, when they directly follow a
// chapter-only candidate, mark it as an ordinary number ("Romans 8 people
// died"). The list trades recall for precision; it is not a grammar.
var DefaultFalsePositiveWords = []string{"times", "people", "years", "days", "men", "women"}

// Policy holds the disambiguation rules applied on top of the alias pattern.
type Policy struct {
	// FalsePositiveWords rejects chapter-only matches that are immediately
	// followed by one of these words. Matching is case-insensitive.
	FalsePositiveWords []string
}

// DefaultPolicy returns the policy used by Detect.
func DefaultPolicy() Policy {
	words := make([]string, len(DefaultFalsePositiveWords))
	copy(words, DefaultFalsePositiveWords)
	return Policy{FalsePositiveWords: words}
}

// Option configures a Detector.
type Option func(*Detector)

// WithPolicy replaces the default disambiguation policy.
func WithPolicy(p Policy) Option {
	return func(d *Detector) {
		d.policy = p
	}
}

// WithSpellings restricts the alias table to the given spelling → canonical
// book mapping instead of the full bible table.
func WithSpellings(spellings map[string]string) Option {
	return func(d *Detector) {
		d.spellings = spellings
	}
}
