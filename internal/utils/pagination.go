// Package utils holds small generic helpers shared by the repo, service and
// HTTP layers. Nothing here knows about messages or detections.
package utils

import (
	"math"
	"strconv"
)

// IntInRange parses s as a decimal int bounded to [lo, hi]. Empty or
// unparsable input yields def, which is bounded as well.
func IntInRange(s string, def, lo, hi int) int {
	n := def
	if v, err := strconv.Atoi(s); err == nil {
		n = v
	}
	return min(max(n, lo), hi)
}

// Offset returns the index of the first element of page (1-based) when pages
// hold pageSize elements. ok is false when the offset does not fit in an int.
func Offset(page, pageSize int) (offset int, ok bool) {
	if page < 1 || pageSize < 1 {
		return 0, true
	}
	if page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}

// Page returns the window [offset, offset+limit) of s, clamped to its bounds.
func Page[T any](s []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) || limit <= 0 {
		return s[:0:0]
	}
	end := min(offset+limit, len(s))
	return s[offset:end]
}
