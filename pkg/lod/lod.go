// Package lod decides when collision work can be skipped because nobody is
// close enough to see it.
package lod

import "github.com/gonewx/particlesim/pkg/vmath"

const (
	// BoundsExpansion pads the emitter bounds check so observers near the
	// edge do not flicker in and out of range.
	BoundsExpansion = 1.075
	// BoundsCheckInterval is how many ticks a bounds check result is reused.
	BoundsCheckInterval = 30
)

// Observer is a viewpoint. LODFactor scales its distances; values above 1
// make everything look farther away.
type Observer struct {
	Position  vmath.Vec3 `yaml:"position"`
	LODFactor float64    `yaml:"lodFactor"`
}

func (o Observer) factor() float64 {
	if o.LODFactor <= 0 {
		return 1
	}
	return o.LODFactor
}

// AnyInExpandedBounds reports whether some observer lies inside bounds grown
// by maxDistance/LODFactor·BoundsExpansion.
func AnyInExpandedBounds(observers []Observer, bounds vmath.Box, maxDistance float64) bool {
	for _, o := range observers {
		if bounds.ExpandBy(maxDistance / o.factor() * BoundsExpansion).IsInside(o.Position) {
			return true
		}
	}
	return false
}

// NearestWithinDistance reports whether the observer closest to p has
// |p-o|²·LODFactor² < maxDistance². Farther observers are not consulted,
// even when their own LODFactor would bring p into range.
func NearestWithinDistance(observers []Observer, p vmath.Vec3, maxDistance float64) bool {
	i := Nearest(observers, p)
	if i < 0 {
		return false
	}
	f := observers[i].factor()
	return vmath.DistSquared(observers[i].Position, p)*f*f < maxDistance*maxDistance
}

// Nearest returns the index of the closest observer, or -1 when there are none.
func Nearest(observers []Observer, p vmath.Vec3) int {
	best, bestSq := -1, 0.0
	for i, o := range observers {
		d := vmath.DistSquared(o.Position, p)
		if best < 0 || d < bestSq {
			best, bestSq = i, d
		}
	}
	return best
}

// NextBoundsCheckCount advances the cadence counter; the check runs when it is 0.
func NextBoundsCheckCount(count uint8) uint8 {
	count++
	if count >= BoundsCheckInterval {
		return 0
	}
	return count
}
