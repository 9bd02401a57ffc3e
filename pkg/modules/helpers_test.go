package modules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/ecs"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// testInstance is a hand-driven Instance for module tests.
type testInstance struct {
	store       *ecs.ParticleStore
	emitterTime float64
	toWorld     vmath.Transform
	local       bool
	bounds      vmath.Box
	observers   []lod.Observer
	sinceRender float64
	owner       physics.ActorID
	script      *physics.Script
	recorder    *events.Recorder
	rng         *rand.Rand
	meshExtent  vmath.Vec3
	state       components.CollisionInstancePayload
}

func newTestInstance(layout ecs.Layout) *testInstance {
	return &testInstance{
		store:    ecs.NewParticleStore(layout, 8, 0),
		toWorld:  vmath.IdentityTransform,
		owner:    1,
		script:   &physics.Script{},
		recorder: &events.Recorder{},
		rng:      rand.New(rand.NewSource(7)),
	}
}

func (f *testInstance) Name() string                      { return "test" }
func (f *testInstance) Store() *ecs.ParticleStore         { return f.store }
func (f *testInstance) EmitterTime() float64              { return f.emitterTime }
func (f *testInstance) ComponentToWorld() vmath.Transform { return f.toWorld }
func (f *testInstance) UseLocalSpace() bool               { return f.local }
func (f *testInstance) Bounds() vmath.Box                 { return f.bounds }
func (f *testInstance) Observers() []lod.Observer         { return f.observers }
func (f *testInstance) TimeSinceRender() float64          { return f.sinceRender }
func (f *testInstance) Owner() physics.ActorID            { return f.owner }
func (f *testInstance) Querier() physics.SweepQuerier     { return f.script }
func (f *testInstance) Impulses() physics.ImpulseReceiver { return f.script }
func (f *testInstance) Events() events.Sink               { return f.recorder }
func (f *testInstance) Rand() particle.Rand               { return f.rng }
func (f *testInstance) MeshExtent() vmath.Vec3            { return f.meshExtent }
func (f *testInstance) CollisionState() *components.CollisionInstancePayload {
	return &f.state
}

// spawn adds a particle and lets init fill it in.
func (f *testInstance) spawn(t *testing.T, init func(p *components.Particle)) int {
	t.Helper()
	slot, ok := f.store.Spawn()
	require.True(t, ok)
	p := f.store.Particle(slot)
	p.Size = vmath.One
	p.BaseSize = vmath.One
	if init != nil {
		init(p)
	}
	return slot
}

// falling is a particle at z=10 moving down at 100 units/s.
func falling(p *components.Particle) {
	p.OldLocation = vmath.Vec3{Z: 10}
	p.Location = vmath.Vec3{Z: 10}
	p.Velocity = vmath.Vec3{Z: -100}
	p.BaseVelocity = vmath.Vec3{Z: -100}
}

func assertVec(t *testing.T, want, got vmath.Vec3, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-9, msgAndArgs...)
}
