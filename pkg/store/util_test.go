package store

import (
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := ChunkRange(10, 4, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 4}, {4, 8}, {8, 10}}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("unexpected windows: %v", windows)
	}

	if err := ChunkRange(0, 4, func(int, int) error { t.Fatal("must not be called"); return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
