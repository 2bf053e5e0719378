package common

import (
	"sort"
)

// Median returns the median of the input values without modifying the slice.
// For an even number of values it returns the mean of the two middle ones,
// rounded towards zero. It returns 0 for an empty slice.
func Median(input []int64) int64 {
	l := len(input)
	if l == 0 {
		return 0
	}

	s := make([]int64, l)
	copy(s, input)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })

	if l%2 == 1 {
		return s[l/2]
	}

	lo, hi := s[l/2-1], s[l/2]

	// avoid overflowing on large timestamps
	return lo + (hi-lo)/2
}
