package particle

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gonewx/particlesim/pkg/vmath"
)

// DistributionKind is the shape of a FloatDistribution.
type DistributionKind int

const (
	KindConstant DistributionKind = iota
	KindUniform
	KindCurve
	KindUniformCurve
)

func (k DistributionKind) String() string {
	switch k {
	case KindUniform:
		return "Uniform"
	case KindCurve:
		return "Curve"
	case KindUniformCurve:
		return "UniformCurve"
	default:
		return "Constant"
	}
}

// FloatDistribution is a scalar sampled by time and a random fraction.
//
// Constant and Uniform ignore time. Curve ignores the random fraction.
// UniformCurve interpolates between the Keyframes and MaxKeyframes curves.
type FloatDistribution struct {
	Kind         DistributionKind
	Min, Max     float64
	Keyframes    []Keyframe
	MaxKeyframes []Keyframe
	Interp       Interp

	source string
	set    bool
}

// ConstantFloat returns a distribution that always yields v.
func ConstantFloat(v float64) FloatDistribution {
	return FloatDistribution{Kind: KindConstant, Min: v, Max: v, set: true}
}

// UniformFloat returns a distribution uniform on [min, max].
func UniformFloat(min, max float64) FloatDistribution {
	if min == max {
		return ConstantFloat(min)
	}
	return FloatDistribution{Kind: KindUniform, Min: min, Max: max, set: true}
}

// CurveFloat returns a curve through the given keyframes.
func CurveFloat(interp Interp, keys ...Keyframe) FloatDistribution {
	return FloatDistribution{Kind: KindCurve, Keyframes: keys, Interp: interp, set: true}
}

// ParseFloatDistribution builds a distribution from a value string.
func ParseFloatDistribution(s string) (FloatDistribution, error) {
	pv, err := ParseValue(s)
	if err != nil {
		return FloatDistribution{}, err
	}
	d := FloatDistribution{
		Min:          pv.Min,
		Max:          pv.Max,
		Keyframes:    pv.Keyframes,
		MaxKeyframes: pv.MaxKeyframes,
		Interp:       pv.Interp,
		source:       s,
		set:          true,
	}
	switch {
	case len(pv.MaxKeyframes) > 0:
		d.Kind = KindUniformCurve
	case len(pv.Keyframes) > 0:
		d.Kind = KindCurve
	case pv.Min != pv.Max:
		d.Kind = KindUniform
	default:
		d.Kind = KindConstant
	}
	return d, nil
}

// MustParseFloat is ParseFloatDistribution for literals in code and tests.
func MustParseFloat(s string) FloatDistribution {
	d, err := ParseFloatDistribution(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsSet reports whether the distribution was configured.
func (d FloatDistribution) IsSet() bool {
	return d.set
}

// Value samples the distribution at time t. A nil rng samples the lower bound.
func (d FloatDistribution) Value(t float64, rng Rand) float64 {
	var f float64
	if rng != nil && (d.Kind == KindUniform || d.Kind == KindUniformCurve) {
		f = rng.Float64()
	}
	return d.ValueWithFraction(t, f)
}

// ValueWithFraction samples with an explicit random fraction in [0,1].
func (d FloatDistribution) ValueWithFraction(t, f float64) float64 {
	switch d.Kind {
	case KindUniform:
		return d.Min + f*(d.Max-d.Min)
	case KindCurve:
		return EvaluateKeyframes(d.Keyframes, t, d.Interp)
	case KindUniformCurve:
		lo := EvaluateKeyframes(d.Keyframes, t, d.Interp)
		hi := EvaluateKeyframes(d.MaxKeyframes, t, d.Interp)
		return lo + f*(hi-lo)
	default:
		return d.Min
	}
}

// Range returns the smallest and largest value the distribution can produce.
func (d FloatDistribution) Range() (float64, float64) {
	switch d.Kind {
	case KindCurve, KindUniformCurve:
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, curve := range [][]Keyframe{d.Keyframes, d.MaxKeyframes} {
			for _, k := range curve {
				lo = math.Min(lo, k.Value)
				hi = math.Max(hi, k.Value)
			}
		}
		return lo, hi
	default:
		return math.Min(d.Min, d.Max), math.Max(d.Min, d.Max)
	}
}

// Resample evaluates the curve at n evenly spaced times in [0,1].
func (d FloatDistribution) Resample(n int, f float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = d.ValueWithFraction(t, f)
	}
	return out
}

func (d FloatDistribution) String() string {
	if d.source != "" {
		return d.source
	}
	switch d.Kind {
	case KindUniform:
		return fmt.Sprintf("[%s %s]", formatFloat(d.Min), formatFloat(d.Max))
	case KindCurve, KindUniformCurve:
		return fmt.Sprintf("%s curve(%d keys)", d.Kind, len(d.Keyframes))
	default:
		return formatFloat(d.Min)
	}
}

// UnmarshalYAML accepts a number or a value string.
func (d *FloatDistribution) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: distribution must be a scalar", node.Line)
	}
	parsed, err := ParseFloatDistribution(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the original value string back.
func (d FloatDistribution) MarshalYAML() (interface{}, error) {
	if d.Kind == KindCurve || d.Kind == KindUniformCurve {
		if d.source == "" {
			return nil, fmt.Errorf("curve distribution has no source text")
		}
	}
	return d.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// VectorDistribution samples three axes. Locked axes share one random fraction.
type VectorDistribution struct {
	X, Y, Z FloatDistribution
	Locked  bool
}

// ConstantVector returns a distribution that always yields v.
func ConstantVector(v vmath.Vec3) VectorDistribution {
	return VectorDistribution{X: ConstantFloat(v.X), Y: ConstantFloat(v.Y), Z: ConstantFloat(v.Z)}
}

// UniformVector returns independent uniform axes between min and max.
func UniformVector(min, max vmath.Vec3) VectorDistribution {
	return VectorDistribution{
		X: UniformFloat(min.X, max.X),
		Y: UniformFloat(min.Y, max.Y),
		Z: UniformFloat(min.Z, max.Z),
	}
}

// LockedVector uses d on every axis with a single shared fraction.
func LockedVector(d FloatDistribution) VectorDistribution {
	return VectorDistribution{X: d, Y: d, Z: d, Locked: true}
}

// IsSet reports whether any axis was configured.
func (v VectorDistribution) IsSet() bool {
	return v.X.IsSet() || v.Y.IsSet() || v.Z.IsSet()
}

// Value samples all three axes at time t.
func (v VectorDistribution) Value(t float64, rng Rand) vmath.Vec3 {
	var f vmath.Vec3
	if rng != nil {
		if v.Locked {
			f = vmath.Splat(rng.Float64())
		} else {
			f = vmath.Vec3{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		}
	}
	return v.ValueWithFraction(t, f)
}

// ValueWithFraction samples each axis with its own fraction.
func (v VectorDistribution) ValueWithFraction(t float64, f vmath.Vec3) vmath.Vec3 {
	return vmath.Vec3{
		X: v.X.ValueWithFraction(t, f.X),
		Y: v.Y.ValueWithFraction(t, f.Y),
		Z: v.Z.ValueWithFraction(t, f.Z),
	}
}

// Range returns the per-axis bounds.
func (v VectorDistribution) Range() (vmath.Vec3, vmath.Vec3) {
	var lo, hi vmath.Vec3
	lo.X, hi.X = v.X.Range()
	lo.Y, hi.Y = v.Y.Range()
	lo.Z, hi.Z = v.Z.Range()
	return lo, hi
}

// IsCurve reports whether any axis varies over time.
func (v VectorDistribution) IsCurve() bool {
	for _, d := range []FloatDistribution{v.X, v.Y, v.Z} {
		if d.Kind == KindCurve || d.Kind == KindUniformCurve {
			return true
		}
	}
	return false
}

// Resample evaluates all three axes at n evenly spaced times.
func (v VectorDistribution) Resample(n int, f float64) []vmath.Vec3 {
	xs, ys, zs := v.X.Resample(n, f), v.Y.Resample(n, f), v.Z.Resample(n, f)
	out := make([]vmath.Vec3, len(xs))
	for i := range out {
		out[i] = vmath.Vec3{X: xs[i], Y: ys[i], Z: zs[i]}
	}
	return out
}

type vectorDistributionYAML struct {
	X      FloatDistribution `yaml:"x"`
	Y      FloatDistribution `yaml:"y"`
	Z      FloatDistribution `yaml:"z"`
	Locked bool              `yaml:"locked"`
}

// UnmarshalYAML accepts a scalar (locked on all axes), a [x, y, z] sequence,
// or a {x, y, z, locked} mapping.
func (v *VectorDistribution) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var d FloatDistribution
		if err := d.UnmarshalYAML(node); err != nil {
			return err
		}
		*v = LockedVector(d)
		return nil
	case yaml.SequenceNode:
		if len(node.Content) != 3 {
			return fmt.Errorf("line %d: vector needs 3 components, got %d", node.Line, len(node.Content))
		}
		var axes [3]FloatDistribution
		for i, n := range node.Content {
			if err := axes[i].UnmarshalYAML(n); err != nil {
				return err
			}
		}
		*v = VectorDistribution{X: axes[0], Y: axes[1], Z: axes[2]}
		return nil
	case yaml.MappingNode:
		var raw vectorDistributionYAML
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*v = VectorDistribution{X: raw.X, Y: raw.Y, Z: raw.Z, Locked: raw.Locked}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported vector distribution", node.Line)
	}
}

// MarshalYAML writes a {x, y, z} mapping.
func (v VectorDistribution) MarshalYAML() (interface{}, error) {
	return vectorDistributionYAML{X: v.X, Y: v.Y, Z: v.Z, Locked: v.Locked}, nil
}
