package search

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/TAURAAI/taura-recall/store"
)

// Heuristic rerank weights. Fixed tunables rather than derived values.
const (
	keywordBonus    = float32(0.03)
	keywordBonusCap = float32(0.15)
	yearBonus       = float32(0.06)
	monthBonus      = float32(0.04)
	albumYearBonus  = float32(0.02)
)

// rerank applies keyword and temporal bonuses to a candidate set, sorts by
// final score descending with newer items breaking ties, and trims to topK.
// It is a pure function of the candidate set, keywords and hints; the input
// slice is not modified.
func rerank(candidates []*store.MediaResult, hints queryHints, topK int) []*store.MediaResult {
	// Pass-through when there is nothing to bias and nothing to trim.
	if len(hints.keywords) == 0 && len(candidates) <= topK {
		return candidates
	}

	ranked := make([]*store.MediaResult, len(candidates))
	for i, c := range candidates {
		item := *c
		item.Score = finalScore(c, hints)
		ranked[i] = &item
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Ts > ranked[j].Ts
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func finalScore(c *store.MediaResult, hints queryHints) float32 {
	bonus := keywordBonusFor(c, hints.keywords) + temporalBonusFor(c, hints)
	score := c.Score + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// keywordBonusFor grants a fixed bonus per keyword found as a substring of
// the item's textual fields, capped.
func keywordBonusFor(c *store.MediaResult, keywords []string) float32 {
	if len(keywords) == 0 {
		return 0
	}
	haystack := strings.ToLower(c.URI + " " + c.Modality + " " + c.Album + " " + c.Source)
	var bonus float32
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			bonus += keywordBonus
		}
	}
	if bonus > keywordBonusCap {
		bonus = keywordBonusCap
	}
	return bonus
}

// temporalBonusFor grants bonuses for year and month hints matching the
// item's timestamp, plus a small one when the album names a hint year.
func temporalBonusFor(c *store.MediaResult, hints queryHints) float32 {
	if len(hints.years) == 0 && len(hints.months) == 0 {
		return 0
	}
	ts := time.Unix(c.Ts, 0).UTC()
	var bonus float32
	for _, year := range hints.years {
		if ts.Year() == year {
			bonus += yearBonus
			break
		}
	}
	for _, month := range hints.months {
		if ts.Month() == month {
			bonus += monthBonus
			break
		}
	}
	if c.Album != "" {
		for _, year := range hints.years {
			if strings.Contains(c.Album, strconv.Itoa(year)) {
				bonus += albumYearBonus
				break
			}
		}
	}
	return bonus
}
