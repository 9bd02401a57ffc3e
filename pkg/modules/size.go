package modules

import (
	"math"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// InitialSize adds a sampled size to Size and BaseSize at spawn.
type InitialSize struct {
	base
	size particle.VectorDistribution
}

// NewInitialSize builds the initial size module.
func NewInitialSize(cfg particle.InitialSizeConfig) *InitialSize {
	return &InitialSize{base: base{name: "initialSize", spawn: true}, size: cfg.Size}
}

// Spawn samples the base size and copies it to the current size.
func (m *InitialSize) Spawn(inst Instance, slot int, _ float64) {
	p := inst.Store().Particle(slot)
	s := m.size.Value(inst.EmitterTime(), inst.Rand())
	p.Size = p.Size.Add(s)
	p.BaseSize = p.BaseSize.Add(s)
}

// SizeMultiplyLife multiplies Size by a curve over the particle's life, per
// enabled axis.
type SizeMultiplyLife struct {
	base
	multiplier particle.VectorDistribution
	x, y, z    bool
}

// NewSizeMultiplyLife builds the size-over-life module.
func NewSizeMultiplyLife(cfg particle.SizeMultiplyLifeConfig) *SizeMultiplyLife {
	return &SizeMultiplyLife{
		base:       base{name: "sizeMultiplyLife", spawn: true, update: true},
		multiplier: cfg.LifeMultiplier,
		x:          cfg.MultiplyX,
		y:          cfg.MultiplyY,
		z:          cfg.MultiplyZ,
	}
}

// Spawn applies the curve at the particle's starting relative time.
func (m *SizeMultiplyLife) Spawn(inst Instance, slot int, _ float64) {
	p := inst.Store().Particle(slot)
	m.apply(p, m.multiplier.Value(p.RelativeTime, inst.Rand()))
}

// Update multiplies each size by the curve at its relative time.
func (m *SizeMultiplyLife) Update(inst Instance, _ float64) {
	rng := inst.Rand()
	if m.x && m.y && m.z {
		// 三个轴都启用时直接分量相乘
		forEachLive(inst.Store(), func(_ int, p *components.Particle) {
			p.Size = p.Size.Mul(m.multiplier.Value(p.RelativeTime, rng))
		})
		return
	}
	forEachLive(inst.Store(), func(_ int, p *components.Particle) {
		m.apply(p, m.multiplier.Value(p.RelativeTime, rng))
	})
}

func (m *SizeMultiplyLife) apply(p *components.Particle, scale vmath.Vec3) {
	if m.x {
		p.Size.X *= scale.X
	}
	if m.y {
		p.Size.Y *= scale.Y
	}
	if m.z {
		p.Size.Z *= scale.Z
	}
}

// SizeScale sets Size to BaseSize times a curve over the particle's life.
type SizeScale struct {
	base
	scale particle.VectorDistribution
}

// NewSizeScale builds the size scale module.
func NewSizeScale(cfg particle.SizeScaleConfig) *SizeScale {
	return &SizeScale{base: base{name: "sizeScale", update: true}, scale: cfg.SizeScale}
}

// Update sets each size to base size times the curve value.
func (m *SizeScale) Update(inst Instance, _ float64) {
	rng := inst.Rand()
	forEachLive(inst.Store(), func(_ int, p *components.Particle) {
		p.Size = p.BaseSize.Mul(m.scale.Value(p.RelativeTime, rng))
	})
}

// SizeScaleBySpeed stretches X and Y with speed, between 1 and MaxScale.
type SizeScaleBySpeed struct {
	base
	speedScale vmath.Vec3
	maxScale   vmath.Vec3
}

// NewSizeScaleBySpeed builds the speed based size scale module.
func NewSizeScaleBySpeed(cfg particle.SizeScaleBySpeedConfig) *SizeScaleBySpeed {
	return &SizeScaleBySpeed{
		base:       base{name: "sizeScaleBySpeed", update: true},
		speedScale: cfg.SpeedScale,
		maxScale:   cfg.MaxScale,
	}
}

// Update scales each size by its speed, clamped to the max scale.
func (m *SizeScaleBySpeed) Update(inst Instance, _ float64) {
	forEachLive(inst.Store(), func(_ int, p *components.Particle) {
		speed := p.Velocity.Size()
		factor := vmath.Vec3{
			X: clamp(speed*m.speedScale.X, 1, m.maxScale.X),
			Y: clamp(speed*m.speedScale.Y, 1, m.maxScale.Y),
			Z: 1,
		}
		p.Size = p.BaseSize.Mul(factor)
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
