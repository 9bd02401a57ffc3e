// Package modules holds the per-particle behaviours an emitter instance runs:
// collision, orbit, size and a few kinematic helpers.
//
// Modules are built once from an emitter template and are read-only after
// that. All mutable state lives in the instance's ParticleStore.
package modules

import (
	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/ecs"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// Instance is the emitter instance a module runs against.
type Instance interface {
	Name() string
	Store() *ecs.ParticleStore

	// EmitterTime is the normalized time within the current loop.
	EmitterTime() float64
	ComponentToWorld() vmath.Transform
	UseLocalSpace() bool

	// Bounds is the world space bounding box of the last tick.
	Bounds() vmath.Box
	Observers() []lod.Observer
	// TimeSinceRender is the number of seconds since the instance was last drawn.
	TimeSinceRender() float64

	Owner() physics.ActorID
	Querier() physics.SweepQuerier
	Impulses() physics.ImpulseReceiver
	Events() events.Sink
	Rand() particle.Rand

	// MeshExtent is the half size of the particle mesh, zero for sprites.
	MeshExtent() vmath.Vec3
	CollisionState() *components.CollisionInstancePayload
}

// Module is one step of particle behaviour.
type Module interface {
	Name() string
	SpawnEnabled() bool
	UpdateEnabled() bool
	// Spawn initializes the particle in slot. spawnTime is how far into the
	// current tick the particle was born.
	Spawn(inst Instance, slot int, spawnTime float64)
	Update(inst Instance, dt float64)
	// MainThreadOnly modules must not run on a worker goroutine.
	MainThreadOnly() bool
}

// base carries the parts every module shares.
type base struct {
	name   string
	spawn  bool
	update bool
}

// base 的默认实现, 模块按需覆盖 Spawn/Update
func (b base) Name() string         { return b.name }
func (b base) SpawnEnabled() bool   { return b.spawn }
func (b base) UpdateEnabled() bool  { return b.update }
func (b base) MainThreadOnly() bool { return false }

func (b base) Spawn(Instance, int, float64) {}
func (b base) Update(Instance, float64)      {}

// forEachLive calls fn for every particle not frozen, newest first.
func forEachLive(s *ecs.ParticleStore, fn func(slot int, p *components.Particle)) {
	for i := s.Len() - 1; i >= 0; i-- {
		p := s.At(i)
		if p.Flags.Has(components.FlagFreeze) {
			continue
		}
		fn(s.SlotAt(i), p)
	}
}
