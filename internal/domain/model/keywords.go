package model

import (
	"encoding/json"
	"sort"
)

// KeywordSet is a set of normalised keyword strings.
// It serialises as a sorted JSON array; null decodes to an empty set.
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from the given words, skipping empty strings.
func NewKeywordSet(words ...string) KeywordSet {
	s := make(KeywordSet, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		s[w] = struct{}{}
	}
	return s
}

// Has reports whether w is in the set.
func (s KeywordSet) Has(w string) bool {
	_, ok := s[w]
	return ok
}

// Sorted returns the members in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the members shared by s and other in lexical order.
func (s KeywordSet) Intersect(other KeywordSet) []string {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	var out []string
	for w := range small {
		if large.Has(w) {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s KeywordSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of strings into the set.
func (s *KeywordSet) UnmarshalJSON(data []byte) error {
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}
	*s = NewKeywordSet(words...)
	return nil
}
