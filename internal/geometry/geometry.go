// Package geometry provides the pure coordinate-set functions the map and
// probe behaviors build on: filled squares, rings, and the deterministic
// spiral ("vortex") enumeration used for attack-target search.
package geometry

import "math"

// Coord is an integer grid position.
type Coord struct {
	X, Y int
}

// AsPoint widens a coordinate to a real-valued point.
func (c Coord) AsPoint() Point {
	return Point{X: float64(c.X), Y: float64(c.Y)}
}

// IsPositive reports whether both components are non-negative, the cheap
// pre-check the map uses before indexing its tile grid.
func (c Coord) IsPositive() bool {
	return c.X >= 0 && c.Y >= 0
}

// Point is a real-valued 2-D vector.
type Point struct {
	X, Y float64
}

// AsCoord truncates a point to its integer coordinate.
func (p Point) AsCoord() Coord {
	return Coord{X: int(p.X), Y: int(p.Y)}
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns p scaled component-wise by factor.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Normalize returns the unit vector in the direction of p. If p is the zero
// vector, it is returned unchanged (norm 0 is not an error case here).
func (p Point) Normalize() Point {
	n := p.Norm()
	if n == 0 {
		return p
	}
	return Point{X: p.X / n, Y: p.Y / n}
}

// Square returns the filled diamond (Manhattan radius d) around origin,
// including the origin itself. Square(origin, 0) = {origin}.
func Square(origin Coord, d int) []Coord {
	coords := make([]Coord, 0, 2*d*d+2*d+1)
	for y := 0; y < d; y++ {
		for x := 0; x < 2*y+1; x++ {
			coords = append(coords,
				Coord{X: origin.X + x - y, Y: origin.Y - d + y},
				Coord{X: origin.X + x - y, Y: origin.Y + d - y},
			)
		}
	}
	for x := 0; x < 2*d+1; x++ {
		coords = append(coords, Coord{X: origin.X - d + x, Y: origin.Y})
	}
	return coords
}

// SquareWithoutOrigin is Square minus the origin.
// SquareWithoutOrigin(origin, 0) = {} (empty).
func SquareWithoutOrigin(origin Coord, d int) []Coord {
	coords := make([]Coord, 0, 2*d*d+2*d)
	for y := 0; y < d; y++ {
		for x := 0; x < 2*y+1; x++ {
			coords = append(coords,
				Coord{X: origin.X + x - y, Y: origin.Y - d + y},
				Coord{X: origin.X + x - y, Y: origin.Y + d - y},
			)
		}
	}
	for x := 0; x < d; x++ {
		coords = append(coords, Coord{X: origin.X - d + x, Y: origin.Y})
	}
	for x := 0; x < d; x++ {
		coords = append(coords, Coord{X: origin.X + x + 1, Y: origin.Y})
	}
	return coords
}

// Ring returns the coordinates at Manhattan distance exactly d from origin.
// Ring(origin, 0) = {origin}. The order is deterministic: for d>0, the four
// diagonal sides come first, interleaved one point per side for each
// y=1..d-1, then the four cardinal
// points (+y, -y, +x, -x) last. Attack-target selection depends on this
// exact order being reproducible.
func Ring(origin Coord, d int) []Coord {
	if d == 0 {
		return []Coord{origin}
	}
	coords := make([]Coord, 0, 4*d)
	for y := 1; y < d; y++ {
		coords = append(coords,
			Coord{X: origin.X - y, Y: origin.Y - d + y},
			Coord{X: origin.X - y, Y: origin.Y + d - y},
			Coord{X: origin.X + y, Y: origin.Y - d + y},
			Coord{X: origin.X + y, Y: origin.Y + d - y},
		)
	}
	coords = append(coords,
		Coord{X: origin.X, Y: origin.Y + d},
		Coord{X: origin.X, Y: origin.Y - d},
		Coord{X: origin.X + d, Y: origin.Y},
		Coord{X: origin.X - d, Y: origin.Y},
	)
	return coords
}

// Vortex yields the deterministic spiral enumeration around origin: the
// origin itself, then Ring(1), Ring(2), ... in order, never terminating on
// its own. Callers bound the number of steps they take (see attack-target
// search, capped at 1000 iterations).
type Vortex struct {
	origin   Coord
	distance int
	ring     []Coord
	idx      int
}

// NewVortex creates a spiral iterator around origin.
func NewVortex(origin Coord) *Vortex {
	return &Vortex{origin: origin, ring: []Coord{origin}, idx: 0}
}

// Next returns the next coordinate in the spiral.
func (v *Vortex) Next() Coord {
	if v.idx < len(v.ring) {
		c := v.ring[v.idx]
		v.idx++
		return c
	}
	v.distance++
	v.ring = Ring(v.origin, v.distance)
	v.idx = 1
	return v.ring[0]
}
