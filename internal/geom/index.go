package geom

import (
	"sort"

	"github.com/dhconnelly/rtreego"
)

// epsilon is the minimum rectangle extent. rtreego treats touching
// rectangles as disjoint, so queries are also widened by it.
const epsilon = 1e-9

// Index provides O(log n) bounding box queries over a set of features
// using an R-tree.
type Index struct {
	rtree *rtreego.Rtree
	rows  []Feature
}

// indexedFeature wraps a feature position for R-tree storage.
type indexedFeature struct {
	index  int
	bounds Bounds
}

// Bounds implements rtreego.Spatial interface.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return toRect(f.bounds)
}

// toRect converts bounds to an R-tree rectangle.
// R-tree requires non-zero dimensions, so points and axis-parallel lines
// are given a small extent.
func toRect(b Bounds) rtreego.Rect {
	width := b.MaxX - b.MinX
	height := b.MaxY - b.MinY
	if width < epsilon {
		width = epsilon
	}
	if height < epsilon {
		height = epsilon
	}

	rect, _ := rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{width, height})
	return rect
}

// NewIndex builds an R-tree over the given rows.
// Features with empty geometry are not indexed.
func NewIndex(rows []Feature) *Index {
	// 2D, min=25 children, max=50 children
	rtree := rtreego.NewTree(2, 25, 50)

	for i, f := range rows {
		if f.Geometry == nil || f.Geometry.IsEmpty() {
			continue
		}
		rtree.Insert(&indexedFeature{
			index:  i,
			bounds: GeometryBounds(f.Geometry),
		})
	}

	return &Index{rtree: rtree, rows: rows}
}

// Len returns the number of rows the index was built over.
func (idx *Index) Len() int {
	return len(idx.rows)
}

// Row returns the feature at position i.
func (idx *Index) Row(i int) Feature {
	return idx.rows[i]
}

// Search returns the positions of rows whose bounds intersect b,
// in ascending order so results do not depend on tree layout.
func (idx *Index) Search(b Bounds) []int {
	spatials := idx.rtree.SearchIntersect(toRect(b.Expand(epsilon)))

	result := make([]int, 0, len(spatials))
	for _, spatial := range spatials {
		result = append(result, spatial.(*indexedFeature).index)
	}
	sort.Ints(result)

	return result
}
