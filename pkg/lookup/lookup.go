// Package lookup implements ppm tolerance matching over sorted mass arrays.
package lookup

import "sort"

// Window returns the absolute half width of a tolerance window around needle.
func Window(needle, tolerance float64) float64 {
	return needle * tolerance * 1e-6
}

// Match reports whether value lies within tolerance ppm of needle.
func Match(value, needle, tolerance float64) bool {
	d := value - needle
	if d < 0 {
		d = -d
	}
	return d <= Window(needle, tolerance)
}

// Find returns the index of the element of the ascending haystack closest
// to needle among those within tolerance ppm. Ties go to the lower index.
func Find(haystack []float64, needle, tolerance float64) (int, bool) {
	best, found := -1, false
	bestDiff := 0.0
	for _, i := range FindAll(haystack, needle, tolerance) {
		d := haystack[i] - needle
		if d < 0 {
			d = -d
		}
		if !found || d < bestDiff {
			best, bestDiff, found = i, d, true
		}
	}
	return best, found
}

// FindAll returns the ascending indices of every element of the ascending
// haystack within tolerance ppm of needle.
func FindAll(haystack []float64, needle, tolerance float64) []int {
	if len(haystack) == 0 {
		return nil
	}
	i := sort.SearchFloat64s(haystack, needle)

	lo := i
	for lo > 0 && Match(haystack[lo-1], needle, tolerance) {
		lo--
	}
	hi := i
	for hi < len(haystack) && Match(haystack[hi], needle, tolerance) {
		hi++
	}
	if lo == hi {
		return nil
	}
	out := make([]int, 0, hi-lo)
	for j := lo; j < hi; j++ {
		out = append(out, j)
	}
	return out
}
