package modules

import (
	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// Orbit accumulates offset, rotation and rotation rate into one orbit layer
// of the particle store. The chain resolves the layers into a final offset.
type Orbit struct {
	base
	layer int
	cfg   particle.OrbitConfig
}

// NewOrbit builds the module writing to the given orbit layer.
func NewOrbit(cfg particle.OrbitConfig, layer int) *Orbit {
	spawn := cfg.OffsetOptions.ProcessDuringSpawn || cfg.RotationOptions.ProcessDuringSpawn ||
		cfg.RotationRateOptions.ProcessDuringSpawn
	update := cfg.OffsetOptions.ProcessDuringUpdate || cfg.RotationOptions.ProcessDuringUpdate ||
		cfg.RotationRateOptions.ProcessDuringUpdate
	return &Orbit{base: base{name: "orbit", spawn: spawn, update: update}, layer: layer, cfg: cfg}
}

// Layer returns the orbit layer index.
func (m *Orbit) Layer() int {
	return m.layer
}

// ChainMode returns how this layer composes with the one before it.
func (m *Orbit) ChainMode() particle.OrbitChainMode {
	return m.cfg.ChainMode
}

func sampleTime(opts particle.OrbitOptions, inst Instance, p *components.Particle) float64 {
	if opts.UseEmitterTime {
		return inst.EmitterTime()
	}
	return p.RelativeTime
}

func (m *Orbit) sample(d particle.VectorDistribution, opts particle.OrbitOptions, inst Instance, p *components.Particle) vmath.Vec3 {
	return d.Value(sampleTime(opts, inst, p), inst.Rand())
}

// Spawn samples this layer's offset, rotation and rotation rate.
func (m *Orbit) Spawn(inst Instance, slot int, _ float64) {
	s := inst.Store()
	p := s.Particle(slot)
	payload := s.Orbit(m.layer, slot)

	if m.cfg.OffsetOptions.ProcessDuringSpawn {
		v := m.sample(m.cfg.Offset, m.cfg.OffsetOptions, inst, p)
		payload.BaseOffset = payload.BaseOffset.Add(v)
		payload.Offset = payload.Offset.Add(v)
	}
	if m.cfg.RotationOptions.ProcessDuringSpawn {
		// rotation 没有 base 字段
		payload.Rotation = payload.Rotation.Add(m.sample(m.cfg.Rotation, m.cfg.RotationOptions, inst, p))
	}
	if m.cfg.RotationRateOptions.ProcessDuringSpawn {
		v := m.sample(m.cfg.RotationRate, m.cfg.RotationRateOptions, inst, p)
		payload.BaseRotationRate = payload.BaseRotationRate.Add(v)
		payload.RotationRate = payload.RotationRate.Add(v)
	}
}

// Update advances this layer's offset and rotation; OrbitChain composes the layers.
func (m *Orbit) Update(inst Instance, _ float64) {
	s := inst.Store()
	forEachLive(s, func(slot int, p *components.Particle) {
		payload := s.Orbit(m.layer, slot)
		if m.cfg.OffsetOptions.ProcessDuringUpdate {
			v := m.sample(m.cfg.Offset, m.cfg.OffsetOptions, inst, p)
			payload.PreviousOffset = payload.Offset
			payload.Offset = payload.Offset.Add(v)
		}
		if m.cfg.RotationOptions.ProcessDuringUpdate {
			payload.Rotation = payload.Rotation.Add(m.sample(m.cfg.Rotation, m.cfg.RotationOptions, inst, p))
		}
		if m.cfg.RotationRateOptions.ProcessDuringUpdate {
			payload.RotationRate = payload.RotationRate.Add(m.sample(m.cfg.RotationRate, m.cfg.RotationRateOptions, inst, p))
		}
	})
}

// OrbitChain composes the orbit layers of every particle into the final
// offset, stored in the last layer's Offset.
//
// Add layers sum into the running segment and Scale layers multiply it.
// A Link layer starts a new segment from its own values. When the layer
// before it was also a Link, that segment is closed first: its offset is
// rotated by the accumulated rotation and kept. An Add or Scale segment
// followed by a Link is replaced and never reaches the final offset.
type OrbitChain struct {
	modes []particle.OrbitChainMode
}

// NewOrbitChain returns a chain over layers with the given modes, in order.
func NewOrbitChain(modes ...particle.OrbitChainMode) *OrbitChain {
	return &OrbitChain{modes: modes}
}

// Layers returns how many orbit layers the chain composes.
func (c *OrbitChain) Layers() int {
	return len(c.modes)
}

type orbitSegment struct {
	offset, rotation, rate vmath.Vec3
}

// Resolve writes the composed offset of every live particle.
func (c *OrbitChain) Resolve(inst Instance, dt float64) {
	if len(c.modes) == 0 {
		return
	}
	s := inst.Store()
	last := len(c.modes) - 1
	forEachLive(s, func(slot int, _ *components.Particle) {
		var seg orbitSegment
		var total vmath.Vec3
		rot := vmath.Identity3

		for l, mode := range c.modes {
			o := s.Orbit(l, slot)
			switch mode {
			case particle.ChainScale:
				seg.offset = seg.offset.Mul(o.Offset)
				seg.rotation = seg.rotation.Mul(o.Rotation)
				seg.rate = seg.rate.Mul(o.RotationRate)
			case particle.ChainLink:
				if l > 0 && c.modes[l-1] == particle.ChainLink {
					total = total.Add(closeSegment(s.Orbit(l-1, slot), &seg, &rot, dt))
				}
				seg = orbitSegment{offset: o.Offset, rotation: o.Rotation, rate: o.RotationRate}
			default:
				seg.offset = seg.offset.Add(o.Offset)
				seg.rotation = seg.rotation.Add(o.Rotation)
				seg.rate = seg.rate.Add(o.RotationRate)
			}
		}

		out := s.Orbit(last, slot)
		total = total.Add(closeSegment(out, &seg, &rot, dt))
		out.Offset = total
	})
}

// closeSegment advances the segment rotation, writes it to payload and
// returns the segment offset rotated by the accumulated rotation. rot is
// updated in place for the segments that follow.
func closeSegment(payload *components.OrbitPayload, seg *orbitSegment, rot *vmath.Matrix3, dt float64) vmath.Vec3 {
	seg.rotation = seg.rotation.Add(seg.rate.Scale(dt))
	payload.Rotation = seg.rotation

	result := seg.offset
	if !seg.rotation.IsNearlyZero() {
		turned := rot.Apply(seg.rotation).Scale(360)
		*rot = vmath.RotationFromEuler(turned).Mul(*rot)
		result = rot.Apply(seg.offset)
	}
	*seg = orbitSegment{}
	return result
}
