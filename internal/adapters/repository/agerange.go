package repository

import (
	"regexp"
	"strconv"
	"strings"
)

// Age bounds assumed when the eligibility text names none.
const (
	DefaultAgeMin = 18
	DefaultAgeMax = 100
)

var (
	agePairPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:to|-|through)\s*(\d+)\s*(?:years|yrs)`),
		regexp.MustCompile(`ages?\s*(\d+)\s*(?:to|-)\s*(\d+)`),
		regexp.MustCompile(`between\s*(\d+)\s*and\s*(\d+)\s*years`),
	}
	ageMinPattern = regexp.MustCompile(`(?:minimum|at least)\s*(\d+)\s*years`)
	ageMaxPattern = regexp.MustCompile(`(?:maximum|up to)\s*(\d+)\s*years`)
)

// ParseAgeRange finds the age range stated in eligibility text. A lone
// minimum keeps the default maximum and vice versa; no match yields 18-100.
func ParseAgeRange(text string) (lo, hi int) {
	lower := strings.ToLower(text)
	for _, re := range agePairPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			a, errA := strconv.Atoi(m[1])
			b, errB := strconv.Atoi(m[2])
			if errA == nil && errB == nil {
				return a, b
			}
		}
	}
	if m := ageMinPattern.FindStringSubmatch(lower); m != nil {
		if a, err := strconv.Atoi(m[1]); err == nil {
			return a, DefaultAgeMax
		}
	}
	if m := ageMaxPattern.FindStringSubmatch(lower); m != nil {
		if b, err := strconv.Atoi(m[1]); err == nil {
			return DefaultAgeMin, b
		}
	}
	return DefaultAgeMin, DefaultAgeMax
}
