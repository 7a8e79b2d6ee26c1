package engine

import (
	"slices"
	"strings"
)

// editDistance is the Levenshtein distance between two names, computed
// with two rows of the usual table
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// FindSimilar returns up to maxSuggestions names within a small edit
// distance of name, closest first
func FindSimilar(name string, available []string, maxSuggestions int) []string {
	const maxDistance = 3
	type scored struct {
		name     string
		distance int
	}
	var near []scored
	for _, candidate := range available {
		if d := editDistance(name, candidate); d > 0 && d <= maxDistance {
			near = append(near, scored{candidate, d})
		}
	}
	slices.SortFunc(near, func(a, b scored) int {
		if a.distance != b.distance {
			return a.distance - b.distance
		}
		return strings.Compare(a.name, b.name)
	})
	result := make([]string, 0, min(len(near), maxSuggestions))
	for _, s := range near[:min(len(near), maxSuggestions)] {
		result = append(result, s.name)
	}
	return result
}
