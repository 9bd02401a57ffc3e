package particle

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gonewx/particlesim/pkg/vmath"
)

// TemplateSet is the root of a template file. One effect may hold several
// emitters that are placed together.
type TemplateSet struct {
	Emitters []EmitterTemplate `yaml:"emitters"`
}

// EmitterTemplate is the author-time description of one emitter.
//
// Distributions use the value string format understood by ParseValue:
//   - Fixed values: "1500"
//   - Ranges: "[0.7 0.9]"
//   - Keyframes: "0,2 1,2 4,21"
//   - Interpolation keywords: "Linear", "FastInOutWeak", etc.
type EmitterTemplate struct {
	// Name is the unique identifier for this emitter
	Name string `yaml:"name"`

	// LocalSpace keeps particles in component space (粒子跟随发射器移动)
	LocalSpace bool `yaml:"localSpace"`

	// Duration of one loop in seconds; 0 runs forever
	Duration float64 `yaml:"duration"`
	// Loops is the number of loops before the emitter completes; 0 loops forever
	Loops int `yaml:"loops"`

	// Spawn properties (控制粒子发射)
	SpawnRate FloatDistribution `yaml:"spawnRate"` // particles per second, sampled by emitter time
	Bursts    []Burst           `yaml:"bursts"`
	MaxActive int               `yaml:"maxActive"`

	// Particle properties (粒子初始属性)
	Lifetime     FloatDistribution  `yaml:"lifetime"` // seconds
	Location     VectorDistribution `yaml:"location"`
	Velocity     VectorDistribution `yaml:"velocity"`
	Rotation     FloatDistribution  `yaml:"rotation"`     // radians
	RotationRate FloatDistribution  `yaml:"rotationRate"` // radians per second

	// MeshExtent is the half extent of the particle mesh. Zero means sprite particles.
	MeshExtent vmath.Vec3 `yaml:"meshExtent"`

	Modules []ModuleConfig `yaml:"modules"`
}

// Burst spawns Count particles (or a random count in [CountLow, Count]) once
// per loop when the loop fraction passes Time.
type Burst struct {
	Time     float64 `yaml:"time"`
	Count    int     `yaml:"count"`
	CountLow int     `yaml:"countLow"`
}

// IsMesh reports whether particles are mesh typed.
func (t *EmitterTemplate) IsMesh() bool {
	return t.MeshExtent != vmath.Zero
}

// ModuleType names a module kind in a template.
type ModuleType string

const (
	ModuleCollision        ModuleType = "collision"
	ModuleOrbit            ModuleType = "orbit"
	ModuleInitialSize      ModuleType = "initialSize"
	ModuleSizeMultiplyLife ModuleType = "sizeMultiplyLife"
	ModuleSizeScale        ModuleType = "sizeScale"
	ModuleSizeScaleBySpeed ModuleType = "sizeScaleBySpeed"
	ModuleAcceleration     ModuleType = "acceleration"
	ModuleMeshRotationRate ModuleType = "meshRotationRate"
)

// ModuleConfig is one entry of a template's module list. Exactly one of the
// typed pointers is set, matching Type.
type ModuleConfig struct {
	Type     ModuleType
	Disabled bool

	Collision        *CollisionConfig
	Orbit            *OrbitConfig
	InitialSize      *InitialSizeConfig
	SizeMultiplyLife *SizeMultiplyLifeConfig
	SizeScale        *SizeScaleConfig
	SizeScaleBySpeed *SizeScaleBySpeedConfig
	Acceleration     *AccelerationConfig
	MeshRotationRate *MeshRotationRateConfig
}

type moduleHeader struct {
	Type     ModuleType `yaml:"type"`
	Disabled bool       `yaml:"disabled"`
}

// UnmarshalYAML decodes the module body selected by its "type" key on top of
// that module's defaults.
func (m *ModuleConfig) UnmarshalYAML(node *yaml.Node) error {
	var head moduleHeader
	if err := node.Decode(&head); err != nil {
		return err
	}
	out := ModuleConfig{Type: head.Type, Disabled: head.Disabled}

	var target interface{}
	switch head.Type {
	case ModuleCollision:
		cfg := DefaultCollisionConfig()
		out.Collision, target = &cfg, &cfg
	case ModuleOrbit:
		cfg := DefaultOrbitConfig()
		out.Orbit, target = &cfg, &cfg
	case ModuleInitialSize:
		cfg := DefaultInitialSizeConfig()
		out.InitialSize, target = &cfg, &cfg
	case ModuleSizeMultiplyLife:
		cfg := DefaultSizeMultiplyLifeConfig()
		out.SizeMultiplyLife, target = &cfg, &cfg
	case ModuleSizeScale:
		cfg := DefaultSizeScaleConfig()
		out.SizeScale, target = &cfg, &cfg
	case ModuleSizeScaleBySpeed:
		cfg := DefaultSizeScaleBySpeedConfig()
		out.SizeScaleBySpeed, target = &cfg, &cfg
	case ModuleAcceleration:
		cfg := AccelerationConfig{}
		out.Acceleration, target = &cfg, &cfg
	case ModuleMeshRotationRate:
		cfg := MeshRotationRateConfig{}
		out.MeshRotationRate, target = &cfg, &cfg
	default:
		return fmt.Errorf("line %d: unknown module type %q", node.Line, head.Type)
	}

	if err := node.Decode(target); err != nil {
		return fmt.Errorf("module %s: %w", head.Type, err)
	}
	*m = out
	return nil
}

// CompletionOption is what happens to a particle whose collision count runs out.
type CompletionOption int

const (
	CompletionKill CompletionOption = iota
	CompletionFreeze
	CompletionHaltCollisions
	CompletionFreezeTranslation
	CompletionFreezeRotation
	CompletionFreezeMovement
)

var completionNames = []string{"kill", "freeze", "haltCollisions", "freezeTranslation", "freezeRotation", "freezeMovement"}

func (c CompletionOption) String() string {
	if int(c) >= 0 && int(c) < len(completionNames) {
		return completionNames[c]
	}
	return fmt.Sprintf("CompletionOption(%d)", int(c))
}

// ParseCompletionOption accepts the names written by String, case-insensitively.
func ParseCompletionOption(s string) (CompletionOption, error) {
	for i, name := range completionNames {
		if strings.EqualFold(name, s) {
			return CompletionOption(i), nil
		}
	}
	return 0, fmt.Errorf("unknown completion option %q", s)
}

func (c *CompletionOption) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseCompletionOption(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = v
	return nil
}

func (c CompletionOption) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// CollisionConfig configures the collision module.
type CollisionConfig struct {
	DampingFactor         VectorDistribution `yaml:"dampingFactor"`
	DampingFactorRotation VectorDistribution `yaml:"dampingFactorRotation"`
	MaxCollisions         FloatDistribution  `yaml:"maxCollisions"`
	Completion            CompletionOption   `yaml:"completion"`
	DelayAmount           FloatDistribution  `yaml:"delay"`
	ParticleMass          FloatDistribution  `yaml:"mass"`

	ApplyPhysics                      bool    `yaml:"applyPhysics"`
	PawnsDoNotDecrementCount          bool    `yaml:"pawnsDoNotDecrementCount"`
	OnlyVerticalNormalsDecrementCount bool    `yaml:"onlyVerticalNormalsDecrementCount"`
	VerticalFudgeFactor               float64 `yaml:"verticalFudgeFactor"`
	IgnoreTriggerVolumes              bool    `yaml:"ignoreTriggerVolumes"`
	IgnoreSourceActor                 bool    `yaml:"ignoreSourceActor"`
	ConsiderParticleSize              bool    `yaml:"considerParticleSize"`

	// LOD
	CollideOnlyIfVisible bool    `yaml:"collideOnlyIfVisible"`
	MaxCollisionDistance float64 `yaml:"maxCollisionDistance"` // .inf disables the distance checks
	InvisibleThreshold   float64 `yaml:"invisibleThreshold"`   // seconds
}

// DefaultCollisionConfig returns the values used for keys a template omits.
func DefaultCollisionConfig() CollisionConfig {
	return CollisionConfig{
		DampingFactor:         LockedVector(ConstantFloat(1)),
		DampingFactorRotation: LockedVector(ConstantFloat(1)),
		MaxCollisions:         ConstantFloat(1),
		Completion:            CompletionKill,
		DelayAmount:           ConstantFloat(0),
		ParticleMass:          ConstantFloat(0.1),
		VerticalFudgeFactor:   0.1,
		ConsiderParticleSize:  true,
		MaxCollisionDistance:  math.Inf(1),
		InvisibleThreshold:    0.1,
	}
}

// OrbitChainMode selects how stacked orbit modules combine.
type OrbitChainMode int

const (
	ChainAdd OrbitChainMode = iota
	ChainScale
	ChainLink
)

func (c OrbitChainMode) String() string {
	switch c {
	case ChainScale:
		return "scale"
	case ChainLink:
		return "link"
	default:
		return "add"
	}
}

func (c *OrbitChainMode) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "add", "":
		*c = ChainAdd
	case "scale":
		*c = ChainScale
	case "link":
		*c = ChainLink
	default:
		return fmt.Errorf("line %d: unknown chain mode %q", node.Line, node.Value)
	}
	return nil
}

// OrbitOptions toggles when one orbit component is sampled and on which time base.
type OrbitOptions struct {
	ProcessDuringSpawn  bool `yaml:"spawn"`
	ProcessDuringUpdate bool `yaml:"update"`
	UseEmitterTime      bool `yaml:"emitterTime"`
}

// OrbitConfig configures one orbit layer.
type OrbitConfig struct {
	ChainMode           OrbitChainMode     `yaml:"chainMode"`
	Offset              VectorDistribution `yaml:"offset"`
	OffsetOptions       OrbitOptions       `yaml:"offsetOptions"`
	Rotation            VectorDistribution `yaml:"rotation"` // turns, 1 = 360 degrees
	RotationOptions     OrbitOptions       `yaml:"rotationOptions"`
	RotationRate        VectorDistribution `yaml:"rotationRate"` // turns per second
	RotationRateOptions OrbitOptions       `yaml:"rotationRateOptions"`
}

func DefaultOrbitConfig() OrbitConfig {
	spawnOnly := OrbitOptions{ProcessDuringSpawn: true}
	return OrbitConfig{
		ChainMode:           ChainAdd,
		Offset:              ConstantVector(vmath.Zero),
		OffsetOptions:       spawnOnly,
		Rotation:            ConstantVector(vmath.Zero),
		RotationOptions:     spawnOnly,
		RotationRate:        ConstantVector(vmath.Zero),
		RotationRateOptions: spawnOnly,
	}
}

type InitialSizeConfig struct {
	Size VectorDistribution `yaml:"size"`
}

func DefaultInitialSizeConfig() InitialSizeConfig {
	return InitialSizeConfig{Size: ConstantVector(vmath.One)}
}

type SizeMultiplyLifeConfig struct {
	LifeMultiplier VectorDistribution `yaml:"multiplier"`
	MultiplyX      bool               `yaml:"multiplyX"`
	MultiplyY      bool               `yaml:"multiplyY"`
	MultiplyZ      bool               `yaml:"multiplyZ"`
}

func DefaultSizeMultiplyLifeConfig() SizeMultiplyLifeConfig {
	return SizeMultiplyLifeConfig{
		LifeMultiplier: ConstantVector(vmath.One),
		MultiplyX:      true,
		MultiplyY:      true,
		MultiplyZ:      true,
	}
}

type SizeScaleConfig struct {
	SizeScale VectorDistribution `yaml:"scale"`
}

func DefaultSizeScaleConfig() SizeScaleConfig {
	return SizeScaleConfig{SizeScale: ConstantVector(vmath.One)}
}

// SizeScaleBySpeedConfig only uses the X and Y components of its vectors.
type SizeScaleBySpeedConfig struct {
	SpeedScale vmath.Vec3 `yaml:"speedScale"`
	MaxScale   vmath.Vec3 `yaml:"maxScale"`
}

func DefaultSizeScaleBySpeedConfig() SizeScaleBySpeedConfig {
	return SizeScaleBySpeedConfig{SpeedScale: vmath.Vec3{X: 1, Y: 1}, MaxScale: vmath.Vec3{X: 1, Y: 1}}
}

// AccelerationConfig is a constant acceleration added to velocity every update.
type AccelerationConfig struct {
	Acceleration vmath.Vec3 `yaml:"acceleration"`
}

// MeshRotationRateConfig seeds the mesh rotation rate at spawn, in turns per second.
type MeshRotationRateConfig struct {
	StartRotationRate VectorDistribution `yaml:"rate"`
}
