package utils

import "strings"

// StringSimilarity is the canonical text similarity used for matching:
// 1 - editDistance(lower(a), lower(b)) / max(len(a), len(b)), in [0,1].
// Two empty strings are identical (1.0). O(n*m); description lengths
// are bounded to a few hundred characters.
func StringSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(editDistance(ra, rb))/float64(maxLen)
}

// ContainsSimilarity is a cheap APPROXIMATION of StringSimilarity for
// very large candidate sets: 0.8 when one lowercased string contains
// the other, else 0.0. It is not the canonical definition; callers opt
// in explicitly (see workflow.MatchConfig.UseContainsApproximation).
func ContainsSimilarity(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.8
	}
	return 0.0
}

// editDistance is the classic single-character insert/delete/substitute
// distance, two-row DP.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
