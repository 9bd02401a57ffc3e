package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/ecs"
	"github.com/gonewx/particlesim/pkg/vmath"
)

func constVec(x, y, z float64) particle.VectorDistribution {
	return particle.ConstantVector(vmath.Vec3{X: x, Y: y, Z: z})
}

func TestOrbit_SpawnAccumulates(t *testing.T) {
	cfg := particle.DefaultOrbitConfig()
	cfg.Offset = constVec(1, 2, 3)
	cfg.Rotation = constVec(0.25, 0, 0)
	cfg.RotationRate = constVec(0, 0, 0.5)
	m := NewOrbit(cfg, 0)
	assert.True(t, m.SpawnEnabled())
	assert.False(t, m.UpdateEnabled())

	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, nil)
	m.Spawn(inst, slot, 0)
	m.Spawn(inst, slot, 0)

	o := inst.store.Orbit(0, slot)
	assertVec(t, vmath.Vec3{X: 2, Y: 4, Z: 6}, o.BaseOffset)
	assertVec(t, vmath.Vec3{X: 2, Y: 4, Z: 6}, o.Offset)
	assertVec(t, vmath.Vec3{X: 0.5}, o.Rotation)
	assertVec(t, vmath.Vec3{Z: 1}, o.BaseRotationRate)
	assertVec(t, vmath.Vec3{Z: 1}, o.RotationRate)
}

func TestOrbit_UpdateDisabledIsNoop(t *testing.T) {
	cfg := particle.DefaultOrbitConfig()
	cfg.Offset = constVec(1, 1, 1)
	cfg.Rotation = constVec(1, 1, 1)
	cfg.RotationRate = constVec(1, 1, 1)
	m := NewOrbit(cfg, 0)

	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, nil)
	m.Spawn(inst, slot, 0)
	before := *inst.store.Orbit(0, slot)

	m.Update(inst, 0.1)
	assert.Equal(t, before, *inst.store.Orbit(0, slot))

	// spawn 不受 update 开关影响
	m.Spawn(inst, slot, 0)
	assertVec(t, vmath.Splat(2), inst.store.Orbit(0, slot).Offset)
}

func TestOrbit_UpdateAddsPerComponent(t *testing.T) {
	tests := []struct {
		name     string
		offset   bool
		rotation bool
		rate     bool
	}{
		{"Offset only", true, false, false},
		{"Rotation only", false, true, false},
		{"Rate only", false, false, true},
		{"All", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := particle.DefaultOrbitConfig()
			cfg.Offset = constVec(1, 0, 0)
			cfg.Rotation = constVec(0, 1, 0)
			cfg.RotationRate = constVec(0, 0, 1)
			cfg.OffsetOptions.ProcessDuringUpdate = tt.offset
			cfg.RotationOptions.ProcessDuringUpdate = tt.rotation
			cfg.RotationRateOptions.ProcessDuringUpdate = tt.rate
			m := NewOrbit(cfg, 0)
			assert.True(t, m.UpdateEnabled())

			inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
			slot := inst.spawn(t, nil)
			m.Spawn(inst, slot, 0)
			before := *inst.store.Orbit(0, slot)

			m.Update(inst, 0.1)
			o := inst.store.Orbit(0, slot)

			if tt.offset {
				assertVec(t, before.Offset, o.PreviousOffset)
				assertVec(t, vmath.Vec3{X: 2}, o.Offset)
			} else {
				assert.Equal(t, before.Offset, o.Offset)
				assert.Equal(t, before.PreviousOffset, o.PreviousOffset)
			}
			if tt.rotation {
				assertVec(t, vmath.Vec3{Y: 2}, o.Rotation)
			} else {
				assert.Equal(t, before.Rotation, o.Rotation)
			}
			if tt.rate {
				assertVec(t, vmath.Vec3{Z: 2}, o.RotationRate)
			} else {
				assert.Equal(t, before.RotationRate, o.RotationRate)
			}
			// base 字段只在 spawn 时写入
			assert.Equal(t, before.BaseOffset, o.BaseOffset)
			assert.Equal(t, before.BaseRotationRate, o.BaseRotationRate)
		})
	}
}

func TestOrbit_TimeBase(t *testing.T) {
	ramp := particle.VectorDistribution{
		X: particle.CurveFloat(particle.InterpLinear, particle.Keyframe{Time: 0, Value: 0}, particle.Keyframe{Time: 1, Value: 10}),
		Y: particle.ConstantFloat(0),
		Z: particle.ConstantFloat(0),
	}

	for _, emitterTime := range []bool{false, true} {
		cfg := particle.DefaultOrbitConfig()
		cfg.Offset = ramp
		cfg.OffsetOptions.UseEmitterTime = emitterTime
		m := NewOrbit(cfg, 0)

		inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
		inst.emitterTime = 0.5
		slot := inst.spawn(t, func(p *components.Particle) { p.RelativeTime = 0.1 })
		m.Spawn(inst, slot, 0)

		want := 1.0
		if emitterTime {
			want = 5.0
		}
		assert.InDelta(t, want, inst.store.Orbit(0, slot).Offset.X, 1e-9, "emitterTime=%v", emitterTime)
	}
}

func TestOrbit_UpdateSkipsFrozen(t *testing.T) {
	cfg := particle.DefaultOrbitConfig()
	cfg.Offset = constVec(1, 0, 0)
	cfg.OffsetOptions.ProcessDuringUpdate = true
	m := NewOrbit(cfg, 0)

	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, func(p *components.Particle) { p.Flags.Set(components.FlagFreeze) })
	m.Update(inst, 0.1)
	assert.Equal(t, components.OrbitPayload{}, *inst.store.Orbit(0, slot))
}

func TestOrbitChain_Resolve(t *testing.T) {
	type layer struct {
		mode   particle.OrbitChainMode
		offset vmath.Vec3
		rate   vmath.Vec3
	}
	tests := []struct {
		name   string
		layers []layer
		dt     float64
		want   vmath.Vec3
	}{
		{
			name:   "Single add layer",
			layers: []layer{{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Zero}},
			dt:     1,
			want:   vmath.Vec3{X: 10},
		},
		{
			name:   "Quarter turn around Z",
			layers: []layer{{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Vec3{Z: 0.25}}},
			dt:     1,
			want:   vmath.Vec3{Y: 10},
		},
		{
			name: "Adds sum",
			layers: []layer{
				{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Zero},
				{particle.ChainAdd, vmath.Vec3{Y: 3}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{X: 10, Y: 3},
		},
		{
			name: "Scale multiplies",
			layers: []layer{
				{particle.ChainAdd, vmath.Vec3{X: 10, Y: 4}, vmath.Zero},
				{particle.ChainScale, vmath.Vec3{X: 0.5, Y: 2}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{X: 5, Y: 8},
		},
		{
			name: "Link replaces an add segment",
			layers: []layer{
				{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Zero},
				{particle.ChainLink, vmath.Vec3{Z: 5}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{Z: 5},
		},
		{
			name: "Rotated add segment before a link is dropped",
			layers: []layer{
				{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Vec3{Z: 0.25}},
				{particle.ChainLink, vmath.Vec3{X: 2}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{X: 2},
		},
		{
			name: "Link after link keeps both segments",
			layers: []layer{
				{particle.ChainLink, vmath.Vec3{X: 10}, vmath.Zero},
				{particle.ChainLink, vmath.Vec3{Z: 5}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{X: 10, Z: 5},
		},
		{
			name: "Unrotated link after a rotated link",
			layers: []layer{
				{particle.ChainLink, vmath.Vec3{X: 10}, vmath.Vec3{Z: 0.25}},
				{particle.ChainLink, vmath.Vec3{X: 2}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{X: 2, Y: 10},
		},
		{
			name: "Add then two links",
			layers: []layer{
				{particle.ChainAdd, vmath.Vec3{X: 7}, vmath.Zero},
				{particle.ChainLink, vmath.Vec3{Y: 3}, vmath.Zero},
				{particle.ChainLink, vmath.Vec3{Z: 5}, vmath.Zero},
			},
			dt:   1,
			want: vmath.Vec3{Y: 3, Z: 5},
		},
		{
			name:   "Zero dt keeps rotation",
			layers: []layer{{particle.ChainAdd, vmath.Vec3{X: 10}, vmath.Vec3{Z: 0.25}}},
			dt:     0,
			want:   vmath.Vec3{X: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modes := make([]particle.OrbitChainMode, len(tt.layers))
			for i, l := range tt.layers {
				modes[i] = l.mode
			}
			chain := NewOrbitChain(modes...)
			require.Equal(t, len(tt.layers), chain.Layers())

			inst := newTestInstance(ecs.Layout{OrbitLayers: len(tt.layers)})
			slot := inst.spawn(t, nil)
			for i, l := range tt.layers {
				o := inst.store.Orbit(i, slot)
				o.Offset = l.offset
				o.RotationRate = l.rate
			}

			chain.Resolve(inst, tt.dt)

			last := len(tt.layers) - 1
			assertVec(t, tt.want, inst.store.Orbit(last, slot).Offset)
		})
	}
}

func TestOrbitChain_WritesRotation(t *testing.T) {
	chain := NewOrbitChain(particle.ChainAdd)
	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, nil)
	o := inst.store.Orbit(0, slot)
	o.Rotation = vmath.Vec3{Z: 0.1}
	o.RotationRate = vmath.Vec3{Z: 0.5}

	chain.Resolve(inst, 0.2)
	assertVec(t, vmath.Vec3{Z: 0.2}, inst.store.Orbit(0, slot).Rotation)
}

func TestOrbitChain_SkipsFrozen(t *testing.T) {
	chain := NewOrbitChain(particle.ChainAdd)
	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, func(p *components.Particle) { p.Flags.Set(components.FlagFreeze) })
	inst.store.Orbit(0, slot).Offset = vmath.Vec3{X: 1}
	inst.store.Orbit(0, slot).RotationRate = vmath.Vec3{Z: 1}

	chain.Resolve(inst, 1)
	assert.Equal(t, vmath.Vec3{}, inst.store.Orbit(0, slot).Rotation)
}

func TestOrbit_ZeroDeltaIdempotent(t *testing.T) {
	cfg := particle.DefaultOrbitConfig()
	cfg.Offset = constVec(3, 0, 0)
	cfg.OffsetOptions.ProcessDuringUpdate = false
	m := NewOrbit(cfg, 0)

	inst := newTestInstance(ecs.Layout{OrbitLayers: 1})
	slot := inst.spawn(t, nil)
	m.Spawn(inst, slot, 0)
	before := *inst.store.Orbit(0, slot)

	m.Update(inst, 0)
	assert.Equal(t, before, *inst.store.Orbit(0, slot))
}
