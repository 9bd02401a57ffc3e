package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/lod"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// SceneConfig 场景配置
// 描述一次模拟运行：发射器摆放、观察者、碰撞体和 tick 设置
type SceneConfig struct {
	Name string `yaml:"name"`
	// Templates 模板文件路径，相对于场景文件所在目录
	Templates []string `yaml:"templates"`
	// Inline 直接写在场景里的模板
	Inline []particle.EmitterTemplate `yaml:"inline"`

	Tick      TickConfig         `yaml:"tick"`
	Emitters  []EmitterPlacement `yaml:"emitters"`
	Observers []lod.Observer     `yaml:"observers"`
	Planes    []PlaneConfig      `yaml:"planes"`
	Bodies    []BodyConfig       `yaml:"bodies"`

	// 加载后填充：模板名 -> 模板
	library map[string]*particle.EmitterTemplate
}

// TickConfig 模拟步进设置
type TickConfig struct {
	Rate     float64 `yaml:"rate"`     // 每秒 tick 数，默认 60
	Duration float64 `yaml:"duration"` // 模拟时长（秒），默认 5
	Workers  int     `yaml:"workers"`  // 并发 worker 数，默认 4
}

// Delta returns the seconds per tick.
func (t TickConfig) Delta() float64 {
	return 1 / t.Rate
}

// Ticks returns how many ticks cover Duration.
func (t TickConfig) Ticks() int {
	return int(t.Duration*t.Rate + 0.5)
}

// EmitterPlacement 一个发射器实例的摆放
type EmitterPlacement struct {
	Template string     `yaml:"template"` // 模板名
	Name     string     `yaml:"name"`     // 实例名，默认模板名
	Location vmath.Vec3 `yaml:"location"`
	Rotation vmath.Vec3 `yaml:"rotation"` // 欧拉角（度）
	Scale    vmath.Vec3 `yaml:"scale"`    // 默认 (1,1,1)
	Seed     int64      `yaml:"seed"`
	Owner    uint64     `yaml:"owner"` // 所属 actor，碰撞时可忽略
}

// Transform returns the component-to-world transform of the placement.
func (e EmitterPlacement) Transform() vmath.Transform {
	return vmath.NewTransform(e.Location, e.Rotation, e.Scale)
}

// PlaneConfig 无限平面碰撞体
type PlaneConfig struct {
	Normal   vmath.Vec3       `yaml:"normal"`
	Point    vmath.Vec3       `yaml:"point"`
	Category physics.Category `yaml:"category"`
}

// BodyConfig 轴对齐盒子碰撞体
type BodyConfig struct {
	Center   vmath.Vec3       `yaml:"center"`
	Extent   vmath.Vec3       `yaml:"extent"` // 半尺寸
	Velocity vmath.Vec3       `yaml:"velocity"`
	Mass     float64          `yaml:"mass"`
	Category physics.Category `yaml:"category"`
}

// LoadSceneConfig 从 YAML 文件加载场景配置
// 模板文件相对场景文件解析并加载，随后校验整个场景
func LoadSceneConfig(path string) (*SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene config file %s: %w", path, err)
	}

	var cfg SceneConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scene config YAML from %s: %w", path, err)
	}
	applySceneDefaults(&cfg)

	if err := cfg.loadTemplates(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene config in %s: %w", path, err)
	}
	return &cfg, nil
}

// applySceneDefaults 为缺失的可选字段设置默认值
func applySceneDefaults(cfg *SceneConfig) {
	if cfg.Tick.Rate == 0 {
		cfg.Tick.Rate = 60
	}
	if cfg.Tick.Duration == 0 {
		cfg.Tick.Duration = 5
	}
	if cfg.Tick.Workers == 0 {
		cfg.Tick.Workers = 4
	}
	for i := range cfg.Emitters {
		if cfg.Emitters[i].Scale == vmath.Zero {
			cfg.Emitters[i].Scale = vmath.One
		}
	}
}

func (c *SceneConfig) loadTemplates(dir string) error {
	c.library = make(map[string]*particle.EmitterTemplate)
	add := func(tpl *particle.EmitterTemplate) error {
		if _, dup := c.library[tpl.Name]; dup {
			return fmt.Errorf("template %q defined twice", tpl.Name)
		}
		c.library[tpl.Name] = tpl
		return nil
	}

	for _, rel := range c.Templates {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, rel)
		}
		set, err := particle.LoadTemplateSet(path)
		if err != nil {
			return err
		}
		for i := range set.Emitters {
			if err := add(&set.Emitters[i]); err != nil {
				return err
			}
		}
	}
	for i := range c.Inline {
		tpl := &c.Inline[i]
		if err := tpl.Validate(); err != nil {
			return err
		}
		if err := add(tpl); err != nil {
			return err
		}
	}
	return nil
}

// Template looks up a loaded template by name.
func (c *SceneConfig) Template(name string) (*particle.EmitterTemplate, bool) {
	tpl, ok := c.library[name]
	return tpl, ok
}

// Validate 校验场景配置的完整性和合法性
func (c *SceneConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("scene name is required")
	}
	if c.Tick.Rate <= 0 {
		return fmt.Errorf("tick rate must be > 0, got %g", c.Tick.Rate)
	}
	if c.Tick.Duration <= 0 {
		return fmt.Errorf("tick duration must be > 0, got %g", c.Tick.Duration)
	}
	if c.Tick.Workers < 0 {
		return fmt.Errorf("tick workers must be >= 0, got %d", c.Tick.Workers)
	}

	if len(c.Emitters) == 0 {
		return fmt.Errorf("at least one emitter is required")
	}
	for i, e := range c.Emitters {
		if e.Template == "" {
			return fmt.Errorf("emitter %d: template is required", i)
		}
		if _, ok := c.library[e.Template]; !ok {
			return fmt.Errorf("emitter %d: unknown template %q", i, e.Template)
		}
	}

	for i, o := range c.Observers {
		if o.LODFactor < 0 {
			return fmt.Errorf("observer %d: lodFactor must be >= 0", i)
		}
	}
	for i, p := range c.Planes {
		if p.Normal.IsNearlyZero() {
			return fmt.Errorf("plane %d: normal must be non-zero", i)
		}
	}
	for i, b := range c.Bodies {
		if b.Extent.X <= 0 || b.Extent.Y <= 0 || b.Extent.Z <= 0 {
			return fmt.Errorf("body %d: extent must be positive", i)
		}
		if b.Category == physics.CategoryDynamic && b.Mass <= 0 {
			return fmt.Errorf("body %d: dynamic bodies need a positive mass", i)
		}
	}
	return nil
}

// BuildPhysics creates the collision scene described by the config.
func (c *SceneConfig) BuildPhysics() *physics.Scene {
	scene := physics.NewScene()
	for _, p := range c.Planes {
		scene.AddPlane(p.Normal, p.Point, p.Category)
	}
	for _, b := range c.Bodies {
		scene.AddBody(physics.Body{
			Category: b.Category,
			Center:   b.Center,
			Extent:   b.Extent,
			Mass:     b.Mass,
			Velocity: b.Velocity,
		})
	}
	return scene
}
