package utils

import (
	"reflect"
	"testing"
)

func TestChunk(t *testing.T) {
	cases := []struct {
		in   []int
		size int
		want [][]int
	}{
		{nil, 3, nil},
		{[]int{1, 2, 3}, 0, [][]int{{1, 2, 3}}},
		{[]int{1, 2, 3}, 3, [][]int{{1, 2, 3}}},
		{[]int{1, 2, 3}, 2, [][]int{{1, 2}, {3}}},
		{[]int{1, 2, 3, 4}, 1, [][]int{{1}, {2}, {3}, {4}}},
	}
	for _, tc := range cases {
		if got := Chunk(tc.in, tc.size); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Chunk(%v, %d) = %v; want %v", tc.in, tc.size, got, tc.want)
		}
	}
}

func TestChunk_AppendDoesNotClobberNeighbour(t *testing.T) {
	s := []int{1, 2, 3, 4}
	parts := Chunk(s, 2)
	_ = append(parts[0], 99)
	if s[2] != 3 {
		t.Fatalf("append to first chunk overwrote the second: %v", s)
	}
}

func TestPage(t *testing.T) {
	s := []string{"a", "b", "c", "d", "e"}
	cases := []struct {
		offset, limit int
		want          []string
	}{
		{0, 2, []string{"a", "b"}},
		{3, 10, []string{"d", "e"}},
		{-1, 1, []string{"a"}},
		{5, 1, []string{}},
		{0, 0, []string{}},
	}
	for _, tc := range cases {
		if got := Page(s, tc.offset, tc.limit); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Page(%d, %d) = %v; want %v", tc.offset, tc.limit, got, tc.want)
		}
	}
}
