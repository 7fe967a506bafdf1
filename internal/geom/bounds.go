package geom

// Bounds represents a planar bounding box in dataset coordinates.
type Bounds struct {
	MinX float64 // Western edge
	MinY float64 // Southern edge
	MaxX float64 // Eastern edge
	MaxY float64 // Northern edge
}

// IsZero reports whether b is the zero bounding box.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Contains returns true if the point (x, y) is within the bounds.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX &&
		y >= b.MinY && y <= b.MaxY
}

// Intersects returns true if the given bounds intersects with this bounds.
func (b Bounds) Intersects(other Bounds) bool {
	return !(other.MaxX < b.MinX ||
		other.MinX > b.MaxX ||
		other.MaxY < b.MinY ||
		other.MinY > b.MaxY)
}

// Expand returns a new Bounds expanded by the given margin in all directions.
func (b Bounds) Expand(margin float64) Bounds {
	return Bounds{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

// Union returns the smallest bounds covering both b and other.
// A zero bounds is treated as empty.
func (b Bounds) Union(other Bounds) Bounds {
	if b.IsZero() {
		return other
	}
	if other.IsZero() {
		return b
	}
	if other.MinX < b.MinX {
		b.MinX = other.MinX
	}
	if other.MinY < b.MinY {
		b.MinY = other.MinY
	}
	if other.MaxX > b.MaxX {
		b.MaxX = other.MaxX
	}
	if other.MaxY > b.MaxY {
		b.MaxY = other.MaxY
	}
	return b
}
