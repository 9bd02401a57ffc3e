package vmath

import "math"

// Box is an axis-aligned bounding box. A zero Box with Valid=false is empty.
type Box struct {
	Min, Max Vec3
	Valid    bool
}

// NewBox builds a valid box from two corners in any order.
func NewBox(a, b Vec3) Box {
	return Box{Min: a.ComponentMin(b), Max: a.ComponentMax(b), Valid: true}
}

// BoxAround builds a box centered on c with the given half extent.
func BoxAround(c, extent Vec3) Box {
	return Box{Min: c.Sub(extent), Max: c.Add(extent), Valid: true}
}

// Include grows the box to contain p.
func (b Box) Include(p Vec3) Box {
	if !b.Valid {
		return Box{Min: p, Max: p, Valid: true}
	}
	b.Min = b.Min.ComponentMin(p)
	b.Max = b.Max.ComponentMax(p)
	return b
}

// IncludeBox grows the box to contain o.
func (b Box) IncludeBox(o Box) Box {
	if !o.Valid {
		return b
	}
	return b.Include(o.Min).Include(o.Max)
}

// ExpandBy pushes every face outward by v.
func (b Box) ExpandBy(v float64) Box {
	if !b.Valid {
		return b
	}
	d := Splat(v)
	b.Min = b.Min.Sub(d)
	b.Max = b.Max.Add(d)
	return b
}

// IsInside reports whether p lies strictly inside the box.
func (b Box) IsInside(p Vec3) bool {
	return b.Valid &&
		p.X > b.Min.X && p.X < b.Max.X &&
		p.Y > b.Min.Y && p.Y < b.Max.Y &&
		p.Z > b.Min.Z && p.Z < b.Max.Z
}

func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Box) Extent() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// TransformBy returns the world-space box enclosing all eight transformed corners.
func (b Box) TransformBy(t Transform) Box {
	if !b.Valid {
		return b
	}
	out := Box{}
	for i := 0; i < 8; i++ {
		c := Vec3{
			X: pick(i&1 != 0, b.Max.X, b.Min.X),
			Y: pick(i&2 != 0, b.Max.Y, b.Min.Y),
			Z: pick(i&4 != 0, b.Max.Z, b.Min.Z),
		}
		out = out.Include(t.TransformPosition(c))
	}
	return out
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// HalfWorldMax bounds positions used to seed min/max accumulation.
const HalfWorldMax = math.MaxFloat32 / 2
