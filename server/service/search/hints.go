package search

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// queryHints is derived once per request from the raw query text.
type queryHints struct {
	keywords []string
	years    []int
	months   []time.Month
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// extractHints lowercases the query, splits it into alphanumeric runs of
// length >= 2 as keywords, and scans tokens for year and month hints.
// Years and months are deduplicated, order preserved.
func extractHints(text string) queryHints {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	h := queryHints{}
	seenYears := map[int]bool{}
	seenMonths := map[time.Month]bool{}
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		h.keywords = append(h.keywords, tok)

		if len(tok) == 4 {
			if year, err := strconv.Atoi(tok); err == nil && year >= 1900 && year <= 2100 {
				if !seenYears[year] {
					seenYears[year] = true
					h.years = append(h.years, year)
				}
				continue
			}
		}
		if month, ok := monthNames[tok]; ok && !seenMonths[month] {
			seenMonths[month] = true
			h.months = append(h.months, month)
		}
	}
	return h
}
