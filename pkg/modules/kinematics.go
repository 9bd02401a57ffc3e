package modules

import (
	"math"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// Acceleration adds a constant acceleration to Velocity and BaseVelocity.
type Acceleration struct {
	base
	accel vmath.Vec3
}

// NewAcceleration builds the constant acceleration module.
func NewAcceleration(cfg particle.AccelerationConfig) *Acceleration {
	return &Acceleration{base: base{name: "acceleration", spawn: true, update: true}, accel: cfg.Acceleration}
}

// Spawn applies the acceleration over the spawn time offset.
func (m *Acceleration) Spawn(inst Instance, slot int, spawnTime float64) {
	p := inst.Store().Particle(slot)
	dv := m.accel.Scale(spawnTime)
	p.Velocity = p.Velocity.Add(dv)
	p.BaseVelocity = p.BaseVelocity.Add(dv)
}

// Update adds acceleration·dt to every live particle velocity.
func (m *Acceleration) Update(inst Instance, dt float64) {
	dv := m.accel.Scale(dt)
	forEachLive(inst.Store(), func(_ int, p *components.Particle) {
		p.Velocity = p.Velocity.Add(dv)
		p.BaseVelocity = p.BaseVelocity.Add(dv)
	})
}

// MeshRotationRate seeds the mesh rotation rate, given in turns per second.
type MeshRotationRate struct {
	base
	rate particle.VectorDistribution
}

// NewMeshRotationRate builds the initial mesh rotation rate module.
func NewMeshRotationRate(cfg particle.MeshRotationRateConfig) *MeshRotationRate {
	return &MeshRotationRate{base: base{name: "meshRotationRate", spawn: true}, rate: cfg.StartRotationRate}
}

// Spawn samples the mesh rotation rate of a new particle.
func (m *MeshRotationRate) Spawn(inst Instance, slot int, _ float64) {
	s := inst.Store()
	if !s.HasMeshRotation() {
		return
	}
	payload := s.MeshRotation(slot)
	r := m.rate.Value(inst.EmitterTime(), inst.Rand()).Scale(2 * math.Pi)
	payload.RotationRate = payload.RotationRate.Add(r)
}
