// Package gpu builds the parameter block a GPU particle simulation consumes
// and encodes it to a fixed binary layout.
//
// Build is a pure function of EmitterParams. Nothing here touches the CPU
// simulation state; EmitterParams is derived from a template, not from a
// running instance.
package gpu

import (
	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// CollisionResponse is what a GPU particle does on contact.
type CollisionResponse uint8

const (
	ResponseNone CollisionResponse = iota
	ResponseBounce
	ResponseStop
	ResponseKill
)

func (r CollisionResponse) String() string {
	switch r {
	case ResponseBounce:
		return "bounce"
	case ResponseStop:
		return "stop"
	case ResponseKill:
		return "kill"
	default:
		return "none"
	}
}

// EmitterParams 是 GPU 模拟需要的发射器参数
type EmitterParams struct {
	Name string

	// MaxSize is the largest initial size; the size curve is stored relative to it.
	MaxSize vmath.Vec3
	// SizeScale multiplies size over the particle's life.
	SizeScale particle.VectorDistribution
	// Only X and Y are used.
	SizeScaleBySpeed    vmath.Vec3
	MaxSizeScaleBySpeed vmath.Vec3

	ConstantAcceleration vmath.Vec3

	CollisionResponse       CollisionResponse
	Resilience              particle.FloatDistribution
	ResilienceScaleOverLife particle.FloatDistribution
	Friction                float64
	CollisionRadiusScale    float64
	CollisionRadiusBias     float64

	// Orbit 只取第一个 orbit 层
	OrbitOffset          particle.VectorDistribution
	OrbitRotationRate    particle.VectorDistribution
	OrbitInitialRotation particle.VectorDistribution
}

// DefaultParams has no size change, no collision and no orbit.
func DefaultParams(name string) EmitterParams {
	return EmitterParams{
		Name:                    name,
		MaxSize:                 vmath.One,
		SizeScale:               particle.ConstantVector(vmath.One),
		ConstantAcceleration:    vmath.Zero,
		Resilience:              particle.ConstantFloat(0),
		ResilienceScaleOverLife: particle.ConstantFloat(1),
		CollisionRadiusScale:    1,
		OrbitOffset:             particle.ConstantVector(vmath.Zero),
		OrbitRotationRate:       particle.ConstantVector(vmath.Zero),
		OrbitInitialRotation:    particle.ConstantVector(vmath.Zero),
	}
}

// FromTemplate collects the GPU parameters of an emitter template. Disabled
// modules are ignored. When a module kind appears twice the later one wins,
// except orbit where only the first layer is kept.
func FromTemplate(tpl *particle.EmitterTemplate) EmitterParams {
	p := DefaultParams(tpl.Name)
	orbit := false

	for _, m := range tpl.Modules {
		if m.Disabled {
			continue
		}
		switch m.Type {
		case particle.ModuleInitialSize:
			_, hi := m.InitialSize.Size.Range()
			p.MaxSize = hi
		case particle.ModuleSizeMultiplyLife:
			cfg := m.SizeMultiplyLife
			scale := cfg.LifeMultiplier
			one := particle.ConstantFloat(1)
			if !cfg.MultiplyX {
				scale.X = one
			}
			if !cfg.MultiplyY {
				scale.Y = one
			}
			if !cfg.MultiplyZ {
				scale.Z = one
			}
			p.SizeScale = scale
		case particle.ModuleSizeScale:
			p.SizeScale = m.SizeScale.SizeScale
		case particle.ModuleSizeScaleBySpeed:
			p.SizeScaleBySpeed = m.SizeScaleBySpeed.SpeedScale
			p.MaxSizeScaleBySpeed = m.SizeScaleBySpeed.MaxScale
		case particle.ModuleAcceleration:
			p.ConstantAcceleration = p.ConstantAcceleration.Add(m.Acceleration.Acceleration)
		case particle.ModuleCollision:
			cfg := m.Collision
			p.CollisionResponse = responseFor(cfg)
			p.Resilience = cfg.DampingFactor.Z
			if !cfg.ConsiderParticleSize {
				p.CollisionRadiusScale = 0
			}
		case particle.ModuleOrbit:
			if orbit {
				continue
			}
			orbit = true
			p.OrbitOffset = m.Orbit.Offset
			p.OrbitRotationRate = m.Orbit.RotationRate
			p.OrbitInitialRotation = m.Orbit.Rotation
		}
	}
	return p
}

func responseFor(cfg *particle.CollisionConfig) CollisionResponse {
	if cfg.Completion == particle.CompletionKill {
		_, hi := cfg.MaxCollisions.Range()
		if particle.RoundToInt(hi) <= 1 {
			return ResponseKill
		}
		return ResponseBounce
	}
	if cfg.Completion == particle.CompletionHaltCollisions {
		return ResponseBounce
	}
	return ResponseStop
}
