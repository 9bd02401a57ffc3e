package modules

import (
	"math"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// Collision sweeps every particle along its next step and reacts to hits by
// bouncing, or by applying the completion option once the particle runs out
// of collisions.
type Collision struct {
	base
	cfg particle.CollisionConfig
}

// NewCollision builds the collision module from cfg.
func NewCollision(cfg particle.CollisionConfig) *Collision {
	return &Collision{base: base{name: "collision", spawn: true, update: true}, cfg: cfg}
}

// MainThreadOnly is true when hits push dynamic bodies.
func (m *Collision) MainThreadOnly() bool {
	return m.cfg.ApplyPhysics
}

// Spawn samples the damping, count and delay values into the collision payload.
func (m *Collision) Spawn(inst Instance, slot int, spawnTime float64) {
	s := inst.Store()
	p := s.Particle(slot)
	payload := s.Collision(slot)

	t, rng := inst.EmitterTime(), inst.Rand()
	payload.UsedDampingFactor = m.cfg.DampingFactor.Value(t, rng)
	payload.UsedDampingFactorRotation = m.cfg.DampingFactorRotation.Value(t, rng)
	payload.UsedCollisions = particle.RoundToInt(m.cfg.MaxCollisions.Value(t, rng))
	payload.Delay = m.cfg.DelayAmount.Value(t, rng)
	if payload.Delay > spawnTime {
		p.Flags.Set(components.FlagDelayCollisions)
		p.Flags.Clear(components.FlagCollisionHasOccurred)
	}
}

// ignoreAll decides once per Update whether collision is skipped for the
// whole instance. The bounds check result is cached in the instance payload
// and recomputed every lod.BoundsCheckInterval calls.
func (m *Collision) ignoreAll(inst Instance) bool {
	if m.cfg.CollideOnlyIfVisible && inst.TimeSinceRender() > m.cfg.InvisibleThreshold {
		return true
	}
	if math.IsInf(m.cfg.MaxCollisionDistance, 1) {
		return false
	}
	state := inst.CollisionState()
	if state.LODBoundsCheckCount == 0 {
		state.ObserverInRange = lod.AnyInExpandedBounds(inst.Observers(), inst.Bounds(), m.cfg.MaxCollisionDistance)
	}
	state.LODBoundsCheckCount = lod.NextBoundsCheckCount(state.LODBoundsCheckCount)
	return !state.ObserverInRange
}

// Update sweeps every live particle and handles its hits.
func (m *Collision) Update(inst Instance, dt float64) {
	s := inst.Store()
	skipAll := m.ignoreAll(inst)
	checkDistance := !math.IsInf(m.cfg.MaxCollisionDistance, 1)

	toWorld := inst.ComponentToWorld()
	local := inst.UseLocalSpace()
	scale := toWorld.Scale3D
	if !local {
		scale = vmath.One
	}

	var ignoreActor physics.ActorID
	if m.cfg.IgnoreSourceActor {
		ignoreActor = inst.Owner()
	}

	for i := s.Len() - 1; i >= 0; i-- {
		slot := s.SlotAt(i)
		p := s.At(i)
		if p.Flags.Has(components.CollisionIgnoreCheck) {
			continue
		}
		if skipAll {
			// 已经在几何体内部的粒子不再恢复碰撞
			p.Flags.Set(components.FlagIgnoreCollisions)
			continue
		}

		payload := s.Collision(slot)
		if p.Flags.Has(components.FlagDelayCollisions) {
			if payload.Delay > p.RelativeTime {
				continue
			}
			p.Flags.Clear(components.FlagDelayCollisions)
		}

		location := p.Location.Add(p.Velocity.Scale(dt))
		oldLocation := p.OldLocation
		if local {
			location = toWorld.TransformPosition(location)
			oldLocation = toWorld.TransformPosition(oldLocation)
		}
		travel := location.Sub(oldLocation)
		direction := travel.SafeNormal()

		extent := inst.MeshExtent()
		if m.cfg.ConsiderParticleSize {
			extent = extent.Mul(p.Size).Mul(scale)
		}

		if checkDistance && !lod.NearestWithinDistance(inst.Observers(), location, m.cfg.MaxCollisionDistance) {
			p.Flags.Set(components.FlagIgnoreCollisions)
			continue
		}

		hit, ok := inst.Querier().Sweep(physics.SweepRequest{
			Start:          oldLocation,
			End:            location,
			Extent:         extent,
			IgnoreActor:    ignoreActor,
			IgnoreTriggers: m.cfg.IgnoreTriggerVolumes,
		})
		if !ok {
			continue
		}

		if m.decrements(hit) {
			payload.UsedCollisions--
		}

		if payload.UsedCollisions > 0 {
			m.bounce(inst, slot, p, payload, hit, direction, travel.Size())
		} else {
			snapped := hit.Location
			if local {
				snapped = toWorld.InverseTransformPosition(snapped)
			}
			p.Location = snapped
			if m.complete(inst, i, p, payload, hit, direction) {
				continue
			}
		}

		p.Flags.Set(components.FlagCollisionHasOccurred)
		inst.Events().ParticleCollided(events.CollisionEvent{
			Emitter:   inst.Name(),
			Particle:  *p,
			Payload:   *payload,
			Hit:       hit,
			Direction: direction,
		})
	}
}

// decrements reports whether hit uses up one of the particle's collisions.
// Either suppression alone keeps the count.
func (m *Collision) decrements(hit physics.Hit) bool {
	if m.cfg.PawnsDoNotDecrementCount && hit.Category == physics.CategoryPawn {
		return false
	}
	if m.cfg.OnlyVerticalNormalsDecrementCount && !hit.Normal.IsNearlyZero() &&
		math.Abs(hit.Normal.Z)+m.cfg.VerticalFudgeFactor < 1 {
		return false
	}
	return true
}

func (m *Collision) bounce(inst Instance, slot int, p *components.Particle, payload *components.CollisionPayload,
	hit physics.Hit, direction vmath.Vec3, distance float64) {
	toWorld := inst.ComponentToWorld()
	local := inst.UseLocalSpace()

	baseVelocity := p.BaseVelocity
	oldVelocity := p.Velocity
	if local {
		baseVelocity = toWorld.TransformVector(baseVelocity)
		oldVelocity = toWorld.TransformVector(oldVelocity)
	}
	baseVelocity = baseVelocity.MirrorByVector(hit.Normal).Mul(payload.UsedDampingFactor)

	newVelocity := direction.MirrorByVector(hit.Normal).Scale(distance).Mul(payload.UsedDampingFactor)
	advance := newVelocity.Scale(1 - hit.Time)
	if local {
		baseVelocity = toWorld.InverseTransformVector(baseVelocity)
		advance = toWorld.InverseTransformVector(advance)
	}

	p.BaseVelocity = baseVelocity
	p.BaseRotationRate *= payload.UsedDampingFactorRotation.X
	if s := inst.Store(); s.HasMeshRotation() {
		rot := s.MeshRotation(slot)
		rot.RotationRate = rot.RotationRate.Mul(payload.UsedDampingFactorRotation)
	}
	p.Velocity = vmath.Zero
	p.Location = p.Location.Add(advance)

	if m.cfg.ApplyPhysics && hit.Category == physics.CategoryDynamic && hit.Actor != 0 {
		mass := m.cfg.ParticleMass.Value(p.RelativeTime, inst.Rand())
		impulse := newVelocity.Sub(oldVelocity).Scale(-mass)
		inst.Impulses().AddImpulseAtLocation(hit.Actor, impulse, hit.Location)
	}
}

// complete applies the completion option to the particle at active index i.
// It returns true when the particle was killed; the collided event has then
// already been sent.
func (m *Collision) complete(inst Instance, i int, p *components.Particle, payload *components.CollisionPayload,
	hit physics.Hit, direction vmath.Vec3) bool {
	switch m.cfg.Completion {
	case particle.CompletionKill:
		p.Flags.Set(components.FlagCollisionHasOccurred)
		snapshot, payloadSnapshot := *p, *payload
		inst.Store().KillAt(i)

		sink := inst.Events()
		sink.ParticleKilled(events.KillEvent{
			Emitter:  inst.Name(),
			Particle: snapshot,
			Reason:   events.KilledByCollision,
		})
		sink.ParticleCollided(events.CollisionEvent{
			Emitter:   inst.Name(),
			Particle:  snapshot,
			Payload:   payloadSnapshot,
			Hit:       hit,
			Direction: direction,
		})
		return true
	case particle.CompletionFreeze:
		p.Flags.Set(components.FlagFreeze)
	case particle.CompletionHaltCollisions:
		p.Flags.Set(components.FlagIgnoreCollisions)
	case particle.CompletionFreezeTranslation:
		p.Flags.Set(components.FlagFreezeTranslation)
	case particle.CompletionFreezeRotation:
		p.Flags.Set(components.FlagFreezeRotation)
	case particle.CompletionFreezeMovement:
		p.Flags.Set(components.FlagFreezeTranslation | components.FlagFreezeRotation)
	}
	return false
}
