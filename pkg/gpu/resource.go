package gpu

import (
	"math"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/vmath"
)

const (
	// CurveSamples is how many times a curve is sampled over a particle's life.
	CurveSamples = 16

	// collisionKillBias pushes relative time past 1 so the particle dies on contact.
	collisionKillBias = 1.1

	kindaSmall = 1e-4
)

// Color is one quantized RGBA curve sample.
type Color struct {
	R, G, B, A uint8
}

// Curve is a four channel curve quantized to 8 bits per channel.
// A sample decodes as value = byte/255·Scale + Bias. A constant curve has no
// samples and decodes to Bias.
type Curve struct {
	Samples []Color
	Scale   [4]float32
	Bias    [4]float32
}

// At decodes sample i.
func (c Curve) At(i int) [4]float32 {
	if len(c.Samples) == 0 {
		return c.Bias
	}
	s := c.Samples[i]
	raw := [4]uint8{s.R, s.G, s.B, s.A}
	var out [4]float32
	for ch := range out {
		out[ch] = float32(raw[ch])/255*c.Scale[ch] + c.Bias[ch]
	}
	return out
}

// ResourceData is the parameter block uploaded for a GPU emitter.
type ResourceData struct {
	InvMaxSize [2]float32

	// R: size X, G: size Y, B: sub image index, A: unused
	SizeCurve Curve
	// R: drag scale, G: velocity field scale, B: resilience, A: orbit random
	SimulationAttrCurve Curve

	ResilienceScale      float32
	ResilienceBias       float32
	OneMinusFriction     float32
	CollisionTimeBias    float32
	CollisionRadiusScale float32
	CollisionRadiusBias  float32

	// X, Y: speed scale, Z, W: max scale
	SizeBySpeed          [4]float32
	ConstantAcceleration [3]float32

	OrbitOffsetBase     [3]float32
	OrbitOffsetRange    [3]float32
	OrbitFrequencyBase  [3]float32
	OrbitFrequencyRange [3]float32
	OrbitPhaseBase      [3]float32
	OrbitPhaseRange     [3]float32
}

// Build computes the GPU parameter block for p.
func Build(p EmitterParams) ResourceData {
	var r ResourceData

	r.InvMaxSize[0] = invOrOne(p.MaxSize.X)
	r.InvMaxSize[1] = invOrOne(p.MaxSize.Y)

	// 初始尺寸以 1/MaxSize 存储，尺寸曲线乘回 MaxSize
	sizes := p.SizeScale.Resample(CurveSamples, 0)
	size := make([][4]float64, len(sizes))
	for i, s := range sizes {
		size[i] = [4]float64{s.X * p.MaxSize.X, s.Y * p.MaxSize.Y, 0, 0}
	}
	r.SizeCurve = Quantize(size)

	bounce := p.CollisionResponse == ResponseBounce
	resilience := particle.ConstantFloat(0)
	if bounce {
		resilience = p.Resilience
	}
	lo, hi := resilience.Range()
	r.ResilienceScale = float32(hi - lo)
	r.ResilienceBias = float32(lo)

	overLife := p.ResilienceScaleOverLife.Resample(CurveSamples, 0)
	attrs := make([][4]float64, len(overLife))
	for i, v := range overLife {
		attrs[i] = [4]float64{1, 1, v, 1}
	}
	r.SimulationAttrCurve = Quantize(attrs)

	if bounce {
		r.OneMinusFriction = float32(1 - p.Friction)
	}
	if p.CollisionResponse == ResponseKill {
		r.CollisionTimeBias = collisionKillBias
	}
	// sprite 尺寸是直径，半径要乘 0.5
	r.CollisionRadiusScale = float32(p.CollisionRadiusScale * 0.5)
	r.CollisionRadiusBias = float32(p.CollisionRadiusBias)

	r.SizeBySpeed = [4]float32{
		float32(math.Max(p.SizeScaleBySpeed.X, 0)),
		float32(math.Max(p.SizeScaleBySpeed.Y, 0)),
		float32(math.Max(p.MaxSizeScaleBySpeed.X, 0)),
		float32(math.Max(p.MaxSizeScaleBySpeed.Y, 0)),
	}
	r.ConstantAcceleration = vec3f(p.ConstantAcceleration)

	// shader 里积分两次，偏移取一半
	lo3, hi3 := p.OrbitOffset.Range()
	lo3, hi3 = lo3.Scale(0.5), hi3.Scale(0.5)
	r.OrbitOffsetBase = vec3f(lo3)
	r.OrbitOffsetRange = vec3f(hi3.Sub(lo3))

	lo3, hi3 = orbitRadians(p.OrbitRotationRate)
	r.OrbitFrequencyBase = vec3f(lo3)
	r.OrbitFrequencyRange = vec3f(hi3.Sub(lo3))

	lo3, hi3 = orbitRadians(p.OrbitInitialRotation)
	r.OrbitPhaseBase = vec3f(lo3)
	r.OrbitPhaseRange = vec3f(hi3.Sub(lo3))

	// 与 CPU orbit 的起始相位对齐
	if r.orbitsAround(0) {
		r.OrbitPhaseBase[0] += math.Pi / 2
	}
	if r.orbitsAround(2) {
		r.OrbitPhaseBase[2] += math.Pi / 2
	}
	return r
}

// orbitsAround reports whether any orbit frequency or phase is set on axis.
func (r *ResourceData) orbitsAround(axis int) bool {
	return r.OrbitFrequencyBase[axis] != 0 || r.OrbitFrequencyRange[axis] != 0 ||
		r.OrbitPhaseBase[axis] != 0 || r.OrbitPhaseRange[axis] != 0
}

// orbitRadians converts turns to radians with Z flipped.
func orbitRadians(d particle.VectorDistribution) (vmath.Vec3, vmath.Vec3) {
	lo, hi := d.Range()
	flip := vmath.Vec3{X: 2 * math.Pi, Y: 2 * math.Pi, Z: -2 * math.Pi}
	return lo.Mul(flip), hi.Mul(flip)
}

// Quantize packs samples into 8 bits per channel. When no channel varies
// the curve carries no samples.
func Quantize(samples [][4]float64) Curve {
	var c Curve
	if len(samples) == 0 {
		return c
	}

	mins := samples[0]
	maxs := samples[0]
	for _, s := range samples[1:] {
		for ch := 0; ch < 4; ch++ {
			mins[ch] = math.Min(mins[ch], s[ch])
			maxs[ch] = math.Max(maxs[ch], s[ch])
		}
	}

	var inv [4]float64
	varies := false
	for ch := 0; ch < 4; ch++ {
		scale := maxs[ch] - mins[ch]
		c.Scale[ch] = float32(scale)
		c.Bias[ch] = float32(mins[ch])
		if scale > kindaSmall {
			inv[ch] = 255 / scale
			varies = true
		}
	}
	if !varies {
		return c
	}

	c.Samples = make([]Color, len(samples))
	for i, s := range samples {
		c.Samples[i] = Color{
			R: quantizeChannel(s[0], mins[0], inv[0]),
			G: quantizeChannel(s[1], mins[1], inv[1]),
			B: quantizeChannel(s[2], mins[2], inv[2]),
			A: quantizeChannel(s[3], mins[3], inv[3]),
		}
	}
	return c
}

func quantizeChannel(v, bias, inv float64) uint8 {
	q := math.Trunc((v - bias) * inv)
	return uint8(math.Max(0, math.Min(255, q)))
}

func invOrOne(v float64) float32 {
	if v > kindaSmall {
		return float32(1 / v)
	}
	return 1
}

func vec3f(v vmath.Vec3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
