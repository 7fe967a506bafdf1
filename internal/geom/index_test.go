package geom

import (
	"fmt"
	"testing"
)

func TestIndexSearch(t *testing.T) {
	var rows []Feature
	for i := 0; i < 100; i++ {
		x := float64(i * 10)
		rows = append(rows, Feature{
			ID:       int64(i + 1),
			Geometry: mustWKT(t, fmt.Sprintf("POLYGON ((%[1]g 0, %[2]g 0, %[2]g 5, %[1]g 5, %[1]g 0))", x, x+5)),
		})
	}
	rows = append(rows, Feature{ID: 101, Geometry: mustWKT(t, "POLYGON EMPTY")})

	idx := NewIndex(rows)
	if idx.Len() != 101 {
		t.Fatalf("Len = %d, want 101", idx.Len())
	}

	got := idx.Search(Bounds{MinX: 12, MinY: 1, MaxX: 33, MaxY: 2})
	want := []int{1, 2, 3}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Search = %v, want %v", got, want)
	}

	if got := idx.Search(Bounds{MinX: 6, MinY: 1, MaxX: 8, MaxY: 2}); len(got) != 0 {
		t.Errorf("expected no candidates in gap, got %v", got)
	}
}

// TestIndexPointOnEdge checks a degenerate query touching a bounding box edge
func TestIndexPointOnEdge(t *testing.T) {
	rows := []Feature{{ID: 1, Geometry: mustWKT(t, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))")}}
	idx := NewIndex(rows)

	got := idx.Search(GeometryBounds(mustWKT(t, "POINT (10 5)")))
	if len(got) != 1 {
		t.Errorf("expected edge point to find polygon, got %v", got)
	}
	if idx.Row(0).ID != 1 {
		t.Errorf("Row(0).ID = %d", idx.Row(0).ID)
	}
}
