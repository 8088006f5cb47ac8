// Package keywords turns free text into normalised keyword sets for scoring.
package keywords

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	model "github.com/okian/trialmatch/internal/domain/model"
)

const (
	defaultMinTokenLen    = 4
	defaultMaxPhraseWords = 4
)

// Extractor derives keywords from free text.
type Extractor interface {
	Extract(text string) model.KeywordSet
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(text string) model.KeywordSet

// Extract calls f(text).
func (f ExtractorFunc) Extract(text string) model.KeywordSet { return f(text) }

// LexiconExtractor is a rule-based extractor. It emits every multi-word run of
// content words (1 to maxPhraseWords long, split at stopwords and punctuation)
// and every single content word of at least minTokenLen runes.
type LexiconExtractor struct {
	stopwords      map[string]struct{}
	minTokenLen    int
	maxPhraseWords int
}

// Option configures a LexiconExtractor.
type Option func(*LexiconExtractor)

// WithStopwords replaces the stopword list.
func WithStopwords(words ...string) Option {
	return func(e *LexiconExtractor) {
		e.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			e.stopwords[Normalize(w)] = struct{}{}
		}
	}
}

// WithMinTokenLen sets the minimum rune length of single-word keywords.
func WithMinTokenLen(n int) Option {
	return func(e *LexiconExtractor) {
		if n > 0 {
			e.minTokenLen = n
		}
	}
}

// WithMaxPhraseWords sets the longest phrase kept as a keyword.
func WithMaxPhraseWords(n int) Option {
	return func(e *LexiconExtractor) {
		if n > 0 {
			e.maxPhraseWords = n
		}
	}
}

// NewLexiconExtractor creates an extractor with the default English stopwords.
func NewLexiconExtractor(opts ...Option) *LexiconExtractor {
	e := &LexiconExtractor{
		minTokenLen:    defaultMinTokenLen,
		maxPhraseWords: defaultMaxPhraseWords,
	}
	WithStopwords(defaultStopwords...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the keyword set for text. Empty text yields an empty set.
func (e *LexiconExtractor) Extract(text string) model.KeywordSet {
	out := model.KeywordSet{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, chunk := range e.chunks(Normalize(text)) {
		if len(chunk) <= e.maxPhraseWords && anyHasLetter(chunk) {
			out[strings.Join(chunk, " ")] = struct{}{}
		}
		for _, tok := range chunk {
			if len([]rune(tok)) >= e.minTokenLen && hasLetter(tok) {
				out[tok] = struct{}{}
			}
		}
	}
	return out
}

// chunks splits normalised text into runs of content words. A run ends at a
// stopword or at punctuation other than a hyphen or apostrophe inside a word.
func (e *LexiconExtractor) chunks(text string) [][]string {
	var (
		out     [][]string
		current []string
		word    strings.Builder
	)
	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		w := strings.Trim(word.String(), "-'")
		word.Reset()
		if _, stop := e.stopwords[w]; stop {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			return
		}
		current = append(current, w)
	}
	flushChunk := func() {
		flushWord()
		if len(current) > 0 {
			out = append(out, current)
			current = nil
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		case (r == '-' || r == '\'') && word.Len() > 0:
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flushWord()
		default:
			flushChunk()
		}
	}
	flushChunk()

	return out
}

// Normalize applies NFKC normalisation, Unicode case folding and whitespace
// trimming so that keyword comparison is insensitive to case and width.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSet returns a copy of set with every member normalised.
func NormalizeSet(set model.KeywordSet) model.KeywordSet {
	out := make(model.KeywordSet, len(set))
	for w := range set {
		if n := Normalize(w); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// FromConditions builds a patient's keyword set from all of its conditions.
func FromConditions(e Extractor, conditions []string) model.KeywordSet {
	return e.Extract(strings.Join(conditions, ". "))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func anyHasLetter(words []string) bool {
	for _, w := range words {
		if hasLetter(w) {
			return true
		}
	}
	return false
}
