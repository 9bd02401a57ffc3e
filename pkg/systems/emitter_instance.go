package systems

import (
	"math"
	"math/rand"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/ecs"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/modules"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

const defaultInitialCapacity = 32

// InstanceOptions places an emitter instance in the world.
type InstanceOptions struct {
	// Name defaults to the template name.
	Name      string
	Transform vmath.Transform
	Owner     physics.ActorID
	Querier   physics.SweepQuerier
	Impulses  physics.ImpulseReceiver
	Seed      int64
}

// EmitterInstance runs one emitter template: it spawns particles, runs the
// template's modules and integrates motion.
//
// An instance is not safe for concurrent use. Different instances share no
// mutable state and may tick on different goroutines.
type EmitterInstance struct {
	name    string
	tpl     *particle.EmitterTemplate
	modules *modules.Set
	store   *ecs.ParticleStore

	toWorld   vmath.Transform
	owner     physics.ActorID
	querier   physics.SweepQuerier
	impulses  physics.ImpulseReceiver
	observers []lod.Observer

	rng    *rand.Rand
	buffer events.Buffer

	collisionState components.CollisionInstancePayload
	bounds         vmath.Box

	// 时间（秒）
	secondsSinceCreation float64
	emitterTime          float64 // 当前循环内的秒数
	loopCount            int
	lastRenderTime       float64

	spawnFraction float64
	burstFired    []bool
}

// NewEmitterInstance builds the modules of tpl and an empty particle store.
func NewEmitterInstance(tpl *particle.EmitterTemplate, opts InstanceOptions) (*EmitterInstance, error) {
	set, err := modules.Build(tpl)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = tpl.Name
	}
	toWorld := opts.Transform
	if toWorld == (vmath.Transform{}) {
		toWorld = vmath.IdentityTransform
	}
	querier := opts.Querier
	if querier == nil {
		querier = physics.NoHits{}
	}

	capacity := defaultInitialCapacity
	if tpl.MaxActive > 0 && tpl.MaxActive < capacity {
		capacity = tpl.MaxActive
	}

	e := &EmitterInstance{
		name:       name,
		tpl:        tpl,
		modules:    set,
		store:      ecs.NewParticleStore(set.Layout, capacity, tpl.MaxActive),
		toWorld:    toWorld,
		owner:      opts.Owner,
		querier:    querier,
		impulses:   opts.Impulses,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		burstFired: make([]bool, len(tpl.Bursts)),
	}
	e.bounds = vmath.BoxAround(toWorld.Translation, vmath.Zero)
	return e, nil
}

// Instance interface

func (e *EmitterInstance) Name() string                      { return e.name }
func (e *EmitterInstance) Store() *ecs.ParticleStore         { return e.store }
func (e *EmitterInstance) ComponentToWorld() vmath.Transform { return e.toWorld }
func (e *EmitterInstance) UseLocalSpace() bool               { return e.tpl.LocalSpace }
func (e *EmitterInstance) Bounds() vmath.Box                 { return e.bounds }
func (e *EmitterInstance) Observers() []lod.Observer         { return e.observers }
func (e *EmitterInstance) Owner() physics.ActorID            { return e.owner }
func (e *EmitterInstance) Querier() physics.SweepQuerier     { return e.querier }
func (e *EmitterInstance) Events() events.Sink               { return &e.buffer }
func (e *EmitterInstance) Rand() particle.Rand               { return e.rng }
func (e *EmitterInstance) MeshExtent() vmath.Vec3            { return e.tpl.MeshExtent }

func (e *EmitterInstance) Impulses() physics.ImpulseReceiver {
	if e.impulses == nil {
		return discardImpulses{}
	}
	return e.impulses
}

func (e *EmitterInstance) CollisionState() *components.CollisionInstancePayload {
	return &e.collisionState
}

// EmitterTime returns the normalized time within the current loop.
func (e *EmitterInstance) EmitterTime() float64 {
	if e.tpl.Duration <= 0 {
		return 0
	}
	return e.emitterTime / e.tpl.Duration
}

// TimeSinceRender is measured from the last MarkRendered call, or from
// creation if the instance was never drawn.
func (e *EmitterInstance) TimeSinceRender() float64 {
	return e.secondsSinceCreation - e.lastRenderTime
}

type discardImpulses struct{}

func (discardImpulses) AddImpulseAtLocation(physics.ActorID, vmath.Vec3, vmath.Vec3) bool { return false }

// MarkRendered records that the instance was drawn this tick.
func (e *EmitterInstance) MarkRendered() {
	e.lastRenderTime = e.secondsSinceCreation
}

// SetObservers replaces the observers used by the collision LOD checks.
// The slice is read, never modified.
func (e *EmitterInstance) SetObservers(observers []lod.Observer) {
	e.observers = observers
}

// SetTransform moves the instance. Local space particles move with it.
func (e *EmitterInstance) SetTransform(t vmath.Transform) {
	e.toWorld = t
}

func (e *EmitterInstance) Template() *particle.EmitterTemplate {
	return e.tpl
}

// MainThreadOnly reports whether the instance has a module that must run on
// the scheduler's own goroutine.
func (e *EmitterInstance) MainThreadOnly() bool {
	return e.modules.MainThreadOnly()
}

func (e *EmitterInstance) ActiveParticles() int {
	return e.store.Len()
}

func (e *EmitterInstance) SecondsSinceCreation() float64 {
	return e.secondsSinceCreation
}

// FlushEvents sends the events buffered since the last flush to sink.
func (e *EmitterInstance) FlushEvents(sink events.Sink) int {
	n := e.buffer.Len()
	e.buffer.Flush(sink)
	return n
}

// Tick advances the instance by dt seconds.
func (e *EmitterInstance) Tick(dt float64) {
	e.advanceTime(dt)
	e.killParticles()
	e.resetParticleParameters(dt)

	for _, m := range e.modules.Modules {
		if m.UpdateEnabled() {
			m.Update(e, dt)
		}
	}

	e.spawn(dt)

	if e.modules.Chain != nil {
		e.modules.Chain.Resolve(e, dt)
	}
	e.integrate(dt)
}

func (e *EmitterInstance) advanceTime(dt float64) {
	e.secondsSinceCreation += dt
	e.emitterTime += dt

	d := e.tpl.Duration
	if d <= 0 {
		return
	}
	for e.emitterTime >= d {
		e.emitterTime -= d
		e.loopCount++
		clear(e.burstFired)
	}
}

// spawning reports whether the emitter still produces particles.
func (e *EmitterInstance) spawning() bool {
	return e.tpl.Loops == 0 || e.loopCount < e.tpl.Loops
}

// HasCompleted is true once every loop has run and all particles are gone.
// Emitters that loop forever never complete.
func (e *EmitterInstance) HasCompleted() bool {
	if e.tpl.Loops == 0 || e.secondsSinceCreation < e.tpl.Duration*float64(e.tpl.Loops) {
		return false
	}
	return e.store.Len() == 0
}

func (e *EmitterInstance) killParticles() {
	for i := e.store.Len() - 1; i >= 0; i-- {
		p := e.store.At(i)
		if p.RelativeTime > 1 {
			e.kill(i)
		}
	}
}

func (e *EmitterInstance) kill(i int) {
	snapshot := *e.store.At(i)
	e.store.KillAt(i)
	e.buffer.ParticleKilled(events.KillEvent{
		Emitter:  e.name,
		Particle: snapshot,
		Reason:   events.KilledByLifetime,
	})
}

// resetParticleParameters restores the per-tick values from their bases and
// ages every particle.
func (e *EmitterInstance) resetParticleParameters(dt float64) {
	layers := e.store.OrbitLayers()
	for i := e.store.Len() - 1; i >= 0; i-- {
		p := e.store.At(i)
		p.Velocity = p.BaseVelocity
		p.Size = p.BaseSize
		p.RotationRate = p.BaseRotationRate
		p.RelativeTime += p.OneOverMaxLifetime * dt

		slot := e.store.SlotAt(i)
		for l := 0; l < layers; l++ {
			o := e.store.Orbit(l, slot)
			o.PreviousOffset = o.Offset
			o.Offset = o.BaseOffset
			o.RotationRate = o.BaseRotationRate
		}
	}
}

func (e *EmitterInstance) spawn(dt float64) {
	if !e.spawning() {
		return
	}
	t := e.EmitterTime()

	if burst := e.burstCount(t); burst > 0 {
		inc := 1 / float64(burst)
		e.spawnParticles(burst, dt*inc, dt*inc)
	}

	rate := math.Max(0, e.tpl.SpawnRate.Value(t, e.rng))
	if rate <= 0 {
		return
	}
	old := e.spawnFraction
	leftover := old + dt*rate
	number := int(math.Floor(leftover))
	inc := 1 / rate
	start := dt + old*inc - inc
	e.spawnFraction = leftover - float64(number)
	e.spawnParticles(number, start, inc)
}

// burstCount fires the bursts whose time has been reached in this loop.
func (e *EmitterInstance) burstCount(t float64) int {
	n := 0
	for i, b := range e.tpl.Bursts {
		if e.burstFired[i] || b.Time > t {
			continue
		}
		e.burstFired[i] = true
		count := b.Count
		if b.CountLow > 0 && b.CountLow < b.Count {
			count = b.CountLow + e.rng.Intn(b.Count-b.CountLow+1)
		}
		n += count
	}
	return n
}

// spawnParticles creates count particles. The first was born start seconds
// before the end of the tick, each following one inc seconds later.
func (e *EmitterInstance) spawnParticles(count int, start, inc float64) {
	first := e.store.Len()
	spawnTime := start
	for n := 0; n < count; n++ {
		slot, ok := e.store.Spawn()
		if !ok {
			return
		}
		e.preSpawn(slot, spawnTime)
		for _, m := range e.modules.Modules {
			if m.SpawnEnabled() {
				m.Spawn(e, slot, spawnTime)
			}
		}
		e.postSpawn(slot, spawnTime)
		spawnTime -= inc
	}
	// 出生即死亡的粒子（寿命短于出生偏移）
	for i := e.store.Len() - 1; i >= first; i-- {
		if e.store.At(i).RelativeTime > 1 {
			e.kill(i)
		}
	}
}

func (e *EmitterInstance) preSpawn(slot int, spawnTime float64) {
	p := e.store.Particle(slot)
	t := e.EmitterTime()
	local := e.tpl.LocalSpace

	location := e.tpl.Location.Value(t, e.rng)
	velocity := e.tpl.Velocity.Value(t, e.rng)
	if !local {
		location = e.toWorld.TransformPosition(location)
		velocity = e.toWorld.TransformVector(velocity)
	}
	p.Location = location
	p.BaseVelocity = velocity
	p.Velocity = velocity

	p.Rotation = e.tpl.Rotation.Value(t, e.rng)
	rate := e.tpl.RotationRate.Value(t, e.rng)
	p.BaseRotationRate = rate
	p.RotationRate = rate

	// lifetime 为 0 表示永不过期
	if lifetime := e.tpl.Lifetime.Value(t, e.rng); lifetime > 0 {
		p.OneOverMaxLifetime = 1 / lifetime
	}
	p.RelativeTime = spawnTime * p.OneOverMaxLifetime
}

func (e *EmitterInstance) postSpawn(slot int, spawnTime float64) {
	p := e.store.Particle(slot)
	p.OldLocation = p.Location
	p.Location = p.Location.Add(p.Velocity.Scale(spawnTime))
}

// integrate moves particles by their velocity and recomputes the world
// space bounds.
func (e *EmitterInstance) integrate(dt float64) {
	s := e.store
	mesh := s.HasMeshRotation()
	last := s.OrbitLayers() - 1

	bounds := vmath.BoxAround(e.toWorld.Translation, vmath.Zero)
	for i := s.Len() - 1; i >= 0; i-- {
		p := s.At(i)
		slot := s.SlotAt(i)

		p.OldLocation = p.Location
		if !p.Flags.Has(components.FlagFreeze | components.FlagFreezeTranslation) {
			p.Location = p.Location.Add(p.Velocity.Scale(dt))
		}
		if !p.Flags.Has(components.FlagFreeze | components.FlagFreezeRotation) {
			p.Rotation = wrapAngle(p.Rotation + p.RotationRate*dt)
			if mesh {
				rot := s.MeshRotation(slot)
				rot.Rotation = rot.Rotation.Add(rot.RotationRate.Scale(dt))
			}
		}

		pos := p.Location
		pad := p.Size.AbsMax()
		if last >= 0 {
			offset := s.Orbit(last, slot).Offset
			pos = pos.Add(offset)
		}
		if e.tpl.LocalSpace {
			pos = e.toWorld.TransformPosition(pos)
			pad *= e.toWorld.Scale3D.AbsMax()
		}
		bounds = bounds.IncludeBox(vmath.BoxAround(pos, vmath.Splat(pad)))
	}
	e.bounds = bounds
}

// wrapAngle keeps a rotation within (-2π, 2π).
func wrapAngle(r float64) float64 {
	return math.Mod(r, 2*math.Pi)
}

// WorldLocation returns where the particle at active index i is drawn:
// its location plus the resolved orbit offset, in world space.
func (e *EmitterInstance) WorldLocation(i int) vmath.Vec3 {
	s := e.store
	pos := s.At(i).Location
	if layers := s.OrbitLayers(); layers > 0 {
		pos = pos.Add(s.Orbit(layers-1, s.SlotAt(i)).Offset)
	}
	if e.tpl.LocalSpace {
		pos = e.toWorld.TransformPosition(pos)
	}
	return pos
}
