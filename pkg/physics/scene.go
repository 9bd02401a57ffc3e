package physics

import (
	"math"
	"sync"

	"github.com/gonewx/particlesim/pkg/vmath"
)

// Plane is an infinite half space. Points with Normal·p < Distance are behind it.
type Plane struct {
	ID       ActorID
	Category Category
	Normal   vmath.Vec3
	Distance float64
}

// Body is an axis-aligned box. Bodies with Category Dynamic and positive Mass
// respond to impulses and move in Step.
type Body struct {
	ID              ActorID
	Category        Category
	Center          vmath.Vec3
	Extent          vmath.Vec3
	Mass            float64
	Velocity        vmath.Vec3
	AngularVelocity vmath.Vec3
}

func (b *Body) isDynamic() bool {
	return b.Category == CategoryDynamic && b.Mass > 0
}

// inertia of a solid box about its center, averaged over the three axes
func (b *Body) inertia() float64 {
	e := b.Extent.Scale(2)
	return b.Mass * (e.X*e.X + e.Y*e.Y + e.Z*e.Z) / 18
}

// Scene is a reference SweepQuerier and ImpulseReceiver.
type Scene struct {
	mu     sync.RWMutex
	nextID ActorID
	planes []Plane
	bodies []*Body
}

func NewScene() *Scene {
	return &Scene{nextID: 1}
}

// AddPlane adds a plane through point with the given normal and returns its id.
func (s *Scene) AddPlane(normal, point vmath.Vec3, category Category) ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := normal.SafeNormal()
	id := s.nextID
	s.nextID++
	s.planes = append(s.planes, Plane{ID: id, Category: category, Normal: n, Distance: n.Dot(point)})
	return id
}

// AddBody adds b, assigning an id when b.ID is zero.
func (s *Scene) AddBody(b Body) ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.nextID
		s.nextID++
	} else if b.ID >= s.nextID {
		s.nextID = b.ID + 1
	}
	s.bodies = append(s.bodies, &b)
	return b.ID
}

// Body returns a copy of the body with the given id.
func (s *Scene) Body(id ActorID) (Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bodies {
		if b.ID == id {
			return *b, true
		}
	}
	return Body{}, false
}

// Bodies returns copies of all bodies.
func (s *Scene) Bodies() []Body {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Body, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = *b
	}
	return out
}

func (s *Scene) Planes() []Plane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Plane(nil), s.planes...)
}

// Sweep returns the earliest hit. Equal times keep the object added first.
// Shapes the sweep starts inside of are not reported.
func (s *Scene) Sweep(req SweepRequest) (Hit, bool) {
	delta := req.End.Sub(req.Start)
	if delta.IsNearlyZero() {
		return Hit{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := Hit{Time: math.Inf(1)}
	found := false
	consider := func(id ActorID, cat Category, t float64, n vmath.Vec3) {
		if id == req.IgnoreActor && id != 0 {
			return
		}
		if req.IgnoreTriggers && cat == CategoryTrigger {
			return
		}
		if t < best.Time {
			best = Hit{Time: t, Normal: n, Actor: id, Category: cat}
			found = true
		}
	}

	for _, p := range s.planes {
		if t, ok := sweepPlane(p, req.Start, delta, req.Extent); ok {
			consider(p.ID, p.Category, t, p.Normal)
		}
	}
	for _, b := range s.bodies {
		if t, n, ok := sweepBox(b.Center, b.Extent.Add(req.Extent), req.Start, delta); ok {
			consider(b.ID, b.Category, t, n)
		}
	}

	if !found {
		return Hit{}, false
	}
	best.Location = req.Start.Add(delta.Scale(best.Time))
	return best, true
}

// sweepPlane pushes the plane out by the box's projected radius and finds
// where the center crosses it.
func sweepPlane(p Plane, start, delta, extent vmath.Vec3) (float64, bool) {
	r := math.Abs(p.Normal.X)*extent.X + math.Abs(p.Normal.Y)*extent.Y + math.Abs(p.Normal.Z)*extent.Z
	d0 := p.Normal.Dot(start) - p.Distance - r
	d1 := p.Normal.Dot(start.Add(delta)) - p.Distance - r
	if d0 < 0 || d1 >= 0 {
		return 0, false
	}
	return d0 / (d0 - d1), true
}

// sweepBox is a slab test of the segment start→start+delta against the box
// center±extent. The normal is the face of the last slab entered.
func sweepBox(center, extent, start, delta vmath.Vec3) (float64, vmath.Vec3, bool) {
	tEnter, tExit := math.Inf(-1), math.Inf(1)
	axis := -1
	var sign float64

	for i := 0; i < 3; i++ {
		lo := center.Get(i) - extent.Get(i)
		hi := center.Get(i) + extent.Get(i)
		o := start.Get(i)
		d := delta.Get(i)

		if math.Abs(d) < vmath.SmallNumber {
			if o <= lo || o >= hi {
				return 0, vmath.Zero, false
			}
			continue
		}

		t0 := (lo - o) / d
		t1 := (hi - o) / d
		faceSign := -1.0
		if t0 > t1 {
			t0, t1 = t1, t0
			faceSign = 1
		}
		if t0 > tEnter {
			tEnter = t0
			axis = i
			sign = faceSign
		}
		if t1 < tExit {
			tExit = t1
		}
		if tEnter > tExit {
			return 0, vmath.Zero, false
		}
	}

	if axis < 0 || tEnter < 0 || tEnter > 1 {
		return 0, vmath.Zero, false
	}
	return tEnter, vmath.Zero.With(axis, sign), true
}

// AddImpulseAtLocation changes a dynamic body's linear and angular velocity.
// It returns false for unknown or non-dynamic actors.
func (s *Scene) AddImpulseAtLocation(actor ActorID, impulse, location vmath.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		if b.ID != actor {
			continue
		}
		if !b.isDynamic() {
			return false
		}
		b.Velocity = b.Velocity.Add(impulse.Scale(1 / b.Mass))
		if inertia := b.inertia(); inertia > 0 {
			r := location.Sub(b.Center)
			b.AngularVelocity = b.AngularVelocity.Add(r.Cross(impulse).Scale(1 / inertia))
		}
		return true
	}
	return false
}

// Step moves dynamic bodies by their velocity.
func (s *Scene) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bodies {
		if b.isDynamic() {
			b.Center = b.Center.Add(b.Velocity.Scale(dt))
		}
	}
}
