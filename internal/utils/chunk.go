package utils

// Chunk splits s into consecutive slices of at most size elements. The
// chunks share s's backing array. A non-positive size yields one chunk.
// An empty input yields no chunks.
//
// Example:
//
//	utils.Chunk([]int{1, 2, 3}, 2) // [[1 2] [3]]
func Chunk[T any](s []T, size int) [][]T {
	if len(s) == 0 {
		return nil
	}
	if size <= 0 || size >= len(s) {
		return [][]T{s}
	}
	out := make([][]T, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[start:end:end])
	}
	return out
}
