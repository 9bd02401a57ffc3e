package particle

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gonewx/particlesim/pkg/vmath"
)

// TestLoadTemplateSet_Fountain tests loading the bundled fountain template
func TestLoadTemplateSet_Fountain(t *testing.T) {
	set, err := LoadTemplateSet("../../data/templates/fountain.yaml")
	require.NoError(t, err)
	require.Len(t, set.Emitters, 3)

	sparks, ok := set.Find("sparks")
	require.True(t, ok)
	assert.Equal(t, 2.0, sparks.Duration)
	assert.Equal(t, 400, sparks.MaxActive)
	require.Len(t, sparks.Bursts, 1)
	assert.Equal(t, 20, sparks.Bursts[0].Count)
	assert.Equal(t, KindUniform, sparks.Lifetime.Kind)

	require.Len(t, sparks.Modules, 4)
	col := sparks.Modules[3]
	assert.Equal(t, ModuleCollision, col.Type)
	require.NotNil(t, col.Collision)
	assert.Equal(t, CompletionKill, col.Collision.Completion)
	assert.Equal(t, 5000.0, col.Collision.MaxCollisionDistance)
	// omitted keys keep their defaults
	assert.Equal(t, 0.1, col.Collision.InvisibleThreshold)
	assert.True(t, col.Collision.ConsiderParticleSize)

	motes, ok := set.Find("motes")
	require.True(t, ok)
	assert.True(t, motes.LocalSpace)
	require.Len(t, motes.Modules, 4)
	assert.Equal(t, ChainLink, motes.Modules[1].Orbit.ChainMode)
	assert.Equal(t, ChainLink, motes.Modules[2].Orbit.ChainMode)
	assert.True(t, motes.Modules[2].Orbit.OffsetOptions.ProcessDuringSpawn)
	assert.False(t, motes.Modules[2].Orbit.OffsetOptions.ProcessDuringUpdate)

	debris, ok := set.Find("debris")
	require.True(t, ok)
	assert.True(t, debris.IsMesh())
	assert.Equal(t, CompletionFreezeMovement, debris.Modules[3].Collision.Completion)
}

func TestParseTemplateSet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"No emitters", "emitters: []", ErrNoEmitters},
		{"Missing name", "emitters:\n  - spawnRate: \"1\"", ErrInvalidTemplate},
		{"Negative duration", "emitters:\n  - name: a\n    duration: -1", ErrInvalidTemplate},
		{"Burst time out of range", "emitters:\n  - name: a\n    bursts: [{time: 2, count: 1}]", ErrInvalidTemplate},
		{"First orbit cannot scale", "emitters:\n  - name: a\n    modules:\n      - type: orbit\n        chainMode: scale", ErrInvalidTemplate},
		{"Two collision modules", "emitters:\n  - name: a\n    modules:\n      - type: collision\n      - type: collision", ErrInvalidTemplate},
		{"Zero collision distance", "emitters:\n  - name: a\n    modules:\n      - type: collision\n        maxCollisionDistance: 0", ErrInvalidTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplateSet([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseTemplateSet_SyntaxErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"Unknown module":     "emitters:\n  - name: a\n    modules:\n      - type: teleport",
		"Bad distribution":   "emitters:\n  - name: a\n    lifetime: \"[1\"",
		"Bad completion":     "emitters:\n  - name: a\n    modules:\n      - type: collision\n        completion: explode",
		"Short vector":       "emitters:\n  - name: a\n    velocity: [\"1\", \"2\"]",
		"Mapping as a float": "emitters:\n  - name: a\n    lifetime: {x: 1}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTemplateSet([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplateSet_MissingFile(t *testing.T) {
	_, err := LoadTemplateSet(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVectorDistribution_YAMLForms(t *testing.T) {
	var doc struct {
		Scalar   VectorDistribution `yaml:"scalar"`
		Sequence VectorDistribution `yaml:"sequence"`
		Mapping  VectorDistribution `yaml:"mapping"`
	}
	src := `
scalar: "[1 3]"
sequence: ["1", "2", "3"]
mapping: {x: "[0 10]", z: "4", locked: true}
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	assert.True(t, doc.Scalar.Locked)
	v := doc.Scalar.Value(0, rand.New(rand.NewSource(3)))
	assert.Equal(t, v.X, v.Y)
	assert.Equal(t, v.Y, v.Z)

	assert.Equal(t, vmath.Vec3{X: 1, Y: 2, Z: 3}, doc.Sequence.Value(0, nil))

	assert.True(t, doc.Mapping.Locked)
	assert.False(t, doc.Mapping.Y.IsSet())
	assert.Equal(t, vmath.Vec3{X: 5, Y: 0, Z: 4}, doc.Mapping.ValueWithFraction(0, vmath.Splat(0.5)))
}

func TestFloatDistribution_Kinds(t *testing.T) {
	tests := []struct {
		input string
		kind  DistributionKind
		lo    float64
		hi    float64
	}{
		{"3", KindConstant, 3, 3},
		{"[1 4]", KindUniform, 1, 4},
		{"0,1 1,0", KindCurve, 0, 1},
		{"[.4 .6] [.8 1.2]", KindUniformCurve, 0.4, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d := MustParseFloat(tt.input)
			assert.Equal(t, tt.kind, d.Kind)
			lo, hi := d.Range()
			assert.InDelta(t, tt.lo, lo, 1e-12)
			assert.InDelta(t, tt.hi, hi, 1e-12)
			assert.Equal(t, tt.input, d.String())
		})
	}
}

func TestFloatDistribution_Value(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	u := UniformFloat(10, 20)
	for i := 0; i < 50; i++ {
		v := u.Value(0.3, rng)
		assert.True(t, v >= 10 && v <= 20, "value %v out of range", v)
	}

	curve := CurveFloat(InterpLinear, Keyframe{0, 0}, Keyframe{1, 10})
	assert.InDelta(t, 2.5, curve.Value(0.25, rng), 1e-12)

	ranged := MustParseFloat("[.4 .6] [.8 1.2]")
	assert.InDelta(t, 0.6, ranged.ValueWithFraction(0.5, 0), 1e-12)
	assert.InDelta(t, 0.9, ranged.ValueWithFraction(0.5, 1), 1e-12)

	assert.Equal(t, 7.0, ConstantFloat(7).Value(0.9, rng))
	assert.Equal(t, 10.0, u.Value(0, nil))
}

func TestFloatDistribution_Resample(t *testing.T) {
	d := CurveFloat(InterpLinear, Keyframe{0, 0}, Keyframe{1, 4})
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, d.Resample(5, 0))
	assert.Equal(t, []float64{0}, d.Resample(1, 0))
	assert.Nil(t, d.Resample(0, 0))
}

func TestFloatDistribution_YAMLRoundTrip(t *testing.T) {
	var doc struct {
		D FloatDistribution `yaml:"d"`
		N FloatDistribution `yaml:"n"`
		I FloatDistribution `yaml:"i"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: \"[0.5 2]\"\nn: 12.5\ni: .inf\n"), &doc))
	assert.Equal(t, KindUniform, doc.D.Kind)
	assert.Equal(t, 12.5, doc.N.Min)
	assert.True(t, math.IsInf(doc.I.Min, 1))

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)

	var back struct {
		D FloatDistribution `yaml:"d"`
		I FloatDistribution `yaml:"i"`
	}
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, KindUniform, back.D.Kind)
	assert.Equal(t, 2.0, back.D.Max)
	assert.True(t, math.IsInf(back.I.Min, 1))
}
