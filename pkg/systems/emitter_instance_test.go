package systems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

const fountainPath = "../../data/templates/fountain.yaml"

// baseTemplate 不发射任何粒子，寿命 10 秒
func baseTemplate(name string) *particle.EmitterTemplate {
	return &particle.EmitterTemplate{
		Name:         name,
		SpawnRate:    particle.ConstantFloat(0),
		Lifetime:     particle.ConstantFloat(10),
		Location:     particle.ConstantVector(vmath.Zero),
		Velocity:     particle.ConstantVector(vmath.Zero),
		Rotation:     particle.ConstantFloat(0),
		RotationRate: particle.ConstantFloat(0),
	}
}

func initialSize(v float64) particle.ModuleConfig {
	cfg := particle.InitialSizeConfig{Size: particle.ConstantVector(vmath.Splat(v))}
	return particle.ModuleConfig{Type: particle.ModuleInitialSize, InitialSize: &cfg}
}

func newInstance(t *testing.T, tpl *particle.EmitterTemplate, opts InstanceOptions) *EmitterInstance {
	t.Helper()
	inst, err := NewEmitterInstance(tpl, opts)
	require.NoError(t, err)
	return inst
}

func tickN(inst *EmitterInstance, n int, dt float64) {
	for i := 0; i < n; i++ {
		inst.Tick(dt)
	}
}

func loadFountain(t *testing.T, name string) *particle.EmitterTemplate {
	t.Helper()
	set, err := particle.LoadTemplateSet(fountainPath)
	require.NoError(t, err)
	tpl, ok := set.Find(name)
	require.True(t, ok, "template %s", name)
	return tpl
}

func TestNewEmitterInstance_Defaults(t *testing.T) {
	inst := newInstance(t, baseTemplate("plain"), InstanceOptions{})
	assert.Equal(t, "plain", inst.Name())
	assert.Equal(t, vmath.IdentityTransform, inst.ComponentToWorld())
	assert.IsType(t, physics.NoHits{}, inst.Querier())
	assert.False(t, inst.MainThreadOnly())
	assert.Equal(t, 0, inst.ActiveParticles())
	assert.False(t, inst.Impulses().AddImpulseAtLocation(1, vmath.One, vmath.Zero))

	named := newInstance(t, baseTemplate("plain"), InstanceOptions{Name: "left"})
	assert.Equal(t, "left", named.Name())
}

func TestNewEmitterInstance_RejectsBadModules(t *testing.T) {
	tpl := baseTemplate("double")
	for i := 0; i < 2; i++ {
		cfg := particle.DefaultCollisionConfig()
		tpl.Modules = append(tpl.Modules, particle.ModuleConfig{Type: particle.ModuleCollision, Collision: &cfg})
	}
	_, err := NewEmitterInstance(tpl, InstanceOptions{})
	assert.ErrorIs(t, err, particle.ErrInvalidTemplate)
}

func TestEmitterInstance_SpawnRate(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		dt    float64
		ticks []int // 每帧之后的粒子数
	}{
		{"One per tick", 4, 0.25, []int{1, 2, 3, 4}},
		{"Fraction carries over", 3, 0.25, []int{0, 1, 2, 3}},
		{"Several per tick", 8, 0.5, []int{4, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := baseTemplate("rate")
			tpl.SpawnRate = particle.ConstantFloat(tt.rate)
			inst := newInstance(t, tpl, InstanceOptions{})
			for i, want := range tt.ticks {
				inst.Tick(tt.dt)
				assert.Equal(t, want, inst.ActiveParticles(), "tick %d", i+1)
			}
		})
	}
}

func TestEmitterInstance_SpawnTimeOffsets(t *testing.T) {
	tpl := baseTemplate("offsets")
	tpl.SpawnRate = particle.ConstantFloat(2)
	tpl.Velocity = particle.ConstantVector(vmath.Vec3{X: 10})
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(1)
	require.Equal(t, 2, inst.ActiveParticles())

	// 第一个粒子在帧内提前 0.5 秒出生
	first := inst.Store().At(0)
	assert.InDelta(t, 0.05, first.RelativeTime, 1e-12)
	assert.InDelta(t, 5, first.OldLocation.X, 1e-9)
	assert.InDelta(t, 15, first.Location.X, 1e-9)

	second := inst.Store().At(1)
	assert.Zero(t, second.RelativeTime)
	assert.InDelta(t, 0, second.OldLocation.X, 1e-9)
	assert.InDelta(t, 10, second.Location.X, 1e-9)
}

func TestEmitterInstance_MaxActive(t *testing.T) {
	tpl := baseTemplate("capped")
	tpl.SpawnRate = particle.ConstantFloat(100)
	tpl.MaxActive = 3
	inst := newInstance(t, tpl, InstanceOptions{})

	tickN(inst, 3, 1)
	assert.Equal(t, 3, inst.ActiveParticles())
}

func TestEmitterInstance_Bursts(t *testing.T) {
	t.Run("Fires once per loop", func(t *testing.T) {
		tpl := baseTemplate("burst")
		tpl.Duration = 1
		tpl.Bursts = []particle.Burst{{Time: 0, Count: 5}}
		inst := newInstance(t, tpl, InstanceOptions{})

		inst.Tick(0.25)
		assert.Equal(t, 5, inst.ActiveParticles())
		tickN(inst, 2, 0.25)
		assert.Equal(t, 5, inst.ActiveParticles())

		// 第四帧进入下一次循环
		inst.Tick(0.25)
		assert.Equal(t, 10, inst.ActiveParticles())
	})

	t.Run("Waits for its time", func(t *testing.T) {
		tpl := baseTemplate("late")
		tpl.Duration = 1
		tpl.Bursts = []particle.Burst{{Time: 0.5, Count: 3}}
		inst := newInstance(t, tpl, InstanceOptions{})

		inst.Tick(0.25)
		assert.Equal(t, 0, inst.ActiveParticles())
		inst.Tick(0.25)
		assert.Equal(t, 3, inst.ActiveParticles())
	})

	t.Run("Random count in range", func(t *testing.T) {
		tpl := baseTemplate("ranged")
		tpl.Duration = 1
		tpl.Bursts = []particle.Burst{{Time: 0, Count: 4, CountLow: 2}}
		inst := newInstance(t, tpl, InstanceOptions{Seed: 3})

		inst.Tick(0.25)
		assert.GreaterOrEqual(t, inst.ActiveParticles(), 2)
		assert.LessOrEqual(t, inst.ActiveParticles(), 4)
	})
}

func TestEmitterInstance_LifetimeKill(t *testing.T) {
	tpl := baseTemplate("short")
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.Lifetime = particle.ConstantFloat(0.5)
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	inst := newInstance(t, tpl, InstanceOptions{})
	rec := &events.Recorder{}

	// 出生时已经过了 0.25 秒
	inst.Tick(0.25)
	require.Equal(t, 1, inst.ActiveParticles())
	assert.InDelta(t, 0.5, inst.Store().At(0).RelativeTime, 1e-12)

	tickN(inst, 2, 0.25)
	assert.Equal(t, 1, inst.ActiveParticles(), "relative time 1 is still alive")
	assert.False(t, inst.HasCompleted())

	inst.Tick(0.25)
	assert.Equal(t, 0, inst.ActiveParticles())
	assert.Equal(t, 1, inst.FlushEvents(rec))

	kills := rec.Kills()
	require.Len(t, kills, 1)
	assert.Equal(t, "short", kills[0].Emitter)
	assert.Equal(t, events.KilledByLifetime, kills[0].Reason)
	assert.InDelta(t, 1.5, kills[0].Particle.RelativeTime, 1e-12)

	assert.True(t, inst.HasCompleted())
	assert.Equal(t, 0, inst.FlushEvents(rec), "flush empties the buffer")
}

func TestEmitterInstance_NewbornsPastLifetimeDie(t *testing.T) {
	tpl := baseTemplate("newborn")
	tpl.SpawnRate = particle.ConstantFloat(2)
	tpl.Lifetime = particle.ConstantFloat(0.25)
	inst := newInstance(t, tpl, InstanceOptions{})
	rec := &events.Recorder{}

	inst.Tick(1)
	assert.Equal(t, 1, inst.ActiveParticles())
	inst.FlushEvents(rec)
	require.Len(t, rec.Kills(), 1)
	assert.InDelta(t, 2, rec.Kills()[0].Particle.RelativeTime, 1e-12)
}

func TestEmitterInstance_ZeroLifetimeNeverExpires(t *testing.T) {
	tpl := baseTemplate("forever")
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.Lifetime = particle.ConstantFloat(0)
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	inst := newInstance(t, tpl, InstanceOptions{})

	tickN(inst, 40, 0.25)
	require.Equal(t, 1, inst.ActiveParticles())
	assert.Zero(t, inst.Store().At(0).RelativeTime)
	assert.False(t, inst.HasCompleted())
}

func TestEmitterInstance_Loops(t *testing.T) {
	tpl := baseTemplate("twice")
	tpl.Duration = 0.5
	tpl.Loops = 2
	inst := newInstance(t, tpl, InstanceOptions{})

	tickN(inst, 3, 0.25)
	assert.False(t, inst.HasCompleted())
	assert.InDelta(t, 0.5, inst.EmitterTime(), 1e-12)

	inst.Tick(0.25)
	assert.True(t, inst.HasCompleted())
	assert.InDelta(t, 1, inst.SecondsSinceCreation(), 1e-12)

	endless := newInstance(t, baseTemplate("endless"), InstanceOptions{})
	tickN(endless, 100, 0.25)
	assert.False(t, endless.HasCompleted())
	assert.Zero(t, endless.EmitterTime())
}

func TestEmitterInstance_ResetParameters(t *testing.T) {
	tpl := baseTemplate("reset")
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.Velocity = particle.ConstantVector(vmath.Vec3{Z: 1})
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	tpl.Modules = []particle.ModuleConfig{initialSize(2)}
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(0.25)
	p := inst.Store().At(0)
	assert.Equal(t, vmath.Splat(2), p.Size)

	p.Velocity = vmath.Splat(99)
	p.Size = vmath.Splat(7)
	p.RotationRate = 5
	inst.Tick(0.25)

	p = inst.Store().At(0)
	assert.Equal(t, vmath.Vec3{Z: 1}, p.Velocity)
	assert.Equal(t, vmath.Splat(2), p.Size)
	assert.Zero(t, p.RotationRate)
}

func TestEmitterInstance_SizeDefaultsToZero(t *testing.T) {
	tpl := baseTemplate("nosize")
	tpl.SpawnRate = particle.ConstantFloat(1)
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(1)
	require.Equal(t, 1, inst.ActiveParticles())
	assert.Equal(t, vmath.Zero, inst.Store().At(0).Size)
}

func TestEmitterInstance_FreezeFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    components.Flags
		location float64
		rotation float64
	}{
		{"Free", 0, 7.5, 0.5},
		{"Freeze translation", components.FlagFreezeTranslation, 5, 0.5},
		{"Freeze rotation", components.FlagFreezeRotation, 7.5, 0.25},
		{"Freeze", components.FlagFreeze, 5, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := baseTemplate("frozen")
			tpl.Duration = 1
			tpl.Loops = 1
			tpl.Velocity = particle.ConstantVector(vmath.Vec3{X: 10})
			tpl.RotationRate = particle.ConstantFloat(1)
			tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
			inst := newInstance(t, tpl, InstanceOptions{})

			inst.Tick(0.25)
			p := inst.Store().At(0)
			require.InDelta(t, 5, p.Location.X, 1e-9)
			require.InDelta(t, 0.25, p.Rotation, 1e-12)

			p.Flags.Set(tt.flags)
			inst.Tick(0.25)

			p = inst.Store().At(0)
			assert.InDelta(t, tt.location, p.Location.X, 1e-9)
			assert.InDelta(t, tt.rotation, p.Rotation, 1e-12)
			assert.InDelta(t, 5, p.OldLocation.X, 1e-9)
		})
	}
}

func TestEmitterInstance_RotationWraps(t *testing.T) {
	tpl := baseTemplate("spin")
	tpl.Duration = 2
	tpl.Loops = 1
	tpl.RotationRate = particle.ConstantFloat(10)
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(1)
	require.Equal(t, 1, inst.ActiveParticles())
	assert.InDelta(t, 10-2*math.Pi, inst.Store().At(0).Rotation, 1e-9)
}

func TestEmitterInstance_MeshRotationIntegrates(t *testing.T) {
	tpl := baseTemplate("mesh")
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.MeshExtent = vmath.One
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(0.25)
	require.True(t, inst.Store().HasMeshRotation())
	slot := inst.Store().SlotAt(0)
	inst.Store().MeshRotation(slot).RotationRate = vmath.Vec3{Y: 2}

	inst.Tick(0.5)
	assert.Equal(t, vmath.Vec3{Y: 1}, inst.Store().MeshRotation(slot).Rotation)
}

func TestEmitterInstance_WorldSpaceSpawn(t *testing.T) {
	move := vmath.NewTransform(vmath.Vec3{X: 100}, vmath.Zero, vmath.One)

	for _, local := range []bool{false, true} {
		tpl := baseTemplate("placed")
		tpl.LocalSpace = local
		tpl.Duration = 1
		tpl.Loops = 1
		tpl.Location = particle.ConstantVector(vmath.Vec3{X: 1})
		tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
		inst := newInstance(t, tpl, InstanceOptions{Transform: move})

		inst.Tick(0.25)
		require.Equal(t, 1, inst.ActiveParticles())

		stored := vmath.Vec3{X: 101}
		if local {
			stored = vmath.Vec3{X: 1}
		}
		assert.Equal(t, stored, inst.Store().At(0).Location, "local=%v", local)
		assert.Equal(t, vmath.Vec3{X: 101}, inst.WorldLocation(0), "local=%v", local)

		b := inst.Bounds()
		assert.Equal(t, vmath.Vec3{X: 100}, b.Min, "local=%v", local)
		assert.Equal(t, vmath.Vec3{X: 101}, b.Max, "local=%v", local)
	}
}

func TestEmitterInstance_LocalSpaceFollowsTransform(t *testing.T) {
	tpl := baseTemplate("follow")
	tpl.LocalSpace = true
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(0.25)
	assert.Equal(t, vmath.Zero, inst.WorldLocation(0))

	inst.SetTransform(vmath.NewTransform(vmath.Vec3{Y: 50}, vmath.Zero, vmath.One))
	inst.Tick(0.25)
	assert.Equal(t, vmath.Vec3{Y: 50}, inst.WorldLocation(0))
	assert.Equal(t, vmath.Vec3{Y: 50}, inst.Bounds().Max)
}

func TestEmitterInstance_BoundsPadBySize(t *testing.T) {
	tpl := baseTemplate("padded")
	tpl.Duration = 1
	tpl.Loops = 1
	tpl.Location = particle.ConstantVector(vmath.Vec3{X: 10})
	tpl.Bursts = []particle.Burst{{Time: 0, Count: 1}}
	tpl.Modules = []particle.ModuleConfig{initialSize(2)}
	inst := newInstance(t, tpl, InstanceOptions{})

	inst.Tick(0.25)
	b := inst.Bounds()
	assert.Equal(t, vmath.Vec3{X: 0, Y: -2, Z: -2}, b.Min)
	assert.Equal(t, vmath.Vec3{X: 12, Y: 2, Z: 2}, b.Max)
}

func TestEmitterInstance_TimeSinceRender(t *testing.T) {
	inst := newInstance(t, baseTemplate("render"), InstanceOptions{})
	tickN(inst, 2, 0.25)
	assert.InDelta(t, 0.5, inst.TimeSinceRender(), 1e-12)

	inst.MarkRendered()
	assert.Zero(t, inst.TimeSinceRender())
	inst.Tick(0.25)
	assert.InDelta(t, 0.25, inst.TimeSinceRender(), 1e-12)
}

func TestEmitterInstance_FountainDeterministic(t *testing.T) {
	tpl := loadFountain(t, "sparks")
	scene := physics.NewScene()
	scene.AddPlane(vmath.Vec3{Z: 1}, vmath.Zero, physics.CategoryStatic)
	observers := []lod.Observer{{Position: vmath.Zero, LODFactor: 1}}

	run := func() (*EmitterInstance, *events.Recorder) {
		inst := newInstance(t, tpl, InstanceOptions{Querier: scene, Seed: 42})
		inst.SetObservers(observers)
		rec := &events.Recorder{}
		for i := 0; i < 120; i++ {
			inst.Tick(1.0 / 60)
			inst.FlushEvents(rec)
		}
		return inst, rec
	}

	a, recA := run()
	b, recB := run()

	require.Equal(t, a.ActiveParticles(), b.ActiveParticles())
	for i := 0; i < a.ActiveParticles(); i++ {
		assert.Equal(t, *a.Store().At(i), *b.Store().At(i), "particle %d", i)
	}
	assert.Equal(t, recA.Entries(), recB.Entries())

	// 两秒内所有向上抛出的火花都已落地
	assert.NotEmpty(t, recA.Collisions())
	for _, c := range recA.Collisions() {
		assert.Equal(t, "sparks", c.Emitter)
		assert.Equal(t, vmath.Vec3{Z: 1}, c.Hit.Normal)
	}
}
