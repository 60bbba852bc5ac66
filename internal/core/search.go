package core

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// RankCategoriesByName returns the categories whose name is close to query,
// closest first. Substring matches rank ahead of pure edit-distance matches.
// An empty query returns the input sorted by name.
func RankCategoriesByName(query string, cats []Category) []Category {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Category, 0, len(cats))
	if q == "" {
		out = append(out, cats...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}

	type scored struct {
		cat   Category
		score int
	}
	maxDist := len(q)/3 + 1
	var matches []scored
	for _, c := range cats {
		name := strings.ToLower(c.Name)
		switch {
		case name == q:
			matches = append(matches, scored{c, -2})
		case strings.Contains(name, q):
			matches = append(matches, scored{c, -1})
		default:
			if d := levenshtein.ComputeDistance(q, name); d <= maxDist {
				matches = append(matches, scored{c, d})
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].cat.Name < matches[j].cat.Name
	})
	for _, m := range matches {
		out = append(out, m.cat)
	}
	return out
}
