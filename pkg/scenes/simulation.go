// Package scenes turns a loaded scene config into a running simulation:
// a collision scene, a particle system and one emitter instance per placement.
package scenes

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gonewx/particlesim/pkg/config"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/systems"
)

// Options configures a Simulation.
type Options struct {
	// Workers overrides the scene's worker count when > 0.
	Workers int
	Sink    events.Sink
	Logger  *zap.SugaredLogger
}

// Summary 一次运行的统计
type Summary struct {
	Ticks      int
	SimSeconds float64
	PeakActive int
	Collisions int
	Kills      int
	Completed  int

	// 每个 tick 一个值，用于绘图
	Active         []int
	CollisionsTick []int
}

func (s *Summary) add(stats systems.TickStats, dt float64) {
	s.Ticks++
	s.SimSeconds += dt
	s.PeakActive = max(s.PeakActive, stats.Active)
	s.Collisions += stats.Collisions
	s.Kills += stats.Kills
	s.Completed += stats.Completed
	s.Active = append(s.Active, stats.Active)
	s.CollisionsTick = append(s.CollisionsTick, stats.Collisions)
}

// Simulation 场景模拟
type Simulation struct {
	cfg  *config.SceneConfig
	opts Options
	log  *zap.SugaredLogger

	physics *physics.Scene
	system  *systems.ParticleSystem
	added   int
	ticks   int
}

// NewSimulation builds the collision scene and places every emitter.
func NewSimulation(cfg *config.SceneConfig, opts Options) (*Simulation, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	s := &Simulation{
		cfg:  cfg,
		opts: opts,
		log:  opts.Logger.Named("scene"),
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all particles and bodies and starts the scene over.
func (s *Simulation) Reset() error {
	workers := s.cfg.Tick.Workers
	if s.opts.Workers > 0 {
		workers = s.opts.Workers
	}
	s.physics = s.cfg.BuildPhysics()
	s.system = systems.NewParticleSystem(systems.Options{
		Workers: workers,
		Sink:    s.opts.Sink,
		Logger:  s.opts.Logger,
	})
	s.system.SetObservers(s.cfg.Observers)
	s.added = 0
	s.ticks = 0

	for _, p := range s.cfg.Emitters {
		if err := s.Place(p); err != nil {
			return err
		}
	}
	s.log.Infow("scene ready",
		"scene", s.cfg.Name,
		"emitters", len(s.cfg.Emitters),
		"workers", workers,
	)
	return nil
}

// Place adds one more emitter instance. A zero seed is replaced by a seed
// derived from how many instances were placed before.
func (s *Simulation) Place(p config.EmitterPlacement) error {
	tpl, ok := s.cfg.Template(p.Template)
	if !ok {
		return fmt.Errorf("place emitter: unknown template %q", p.Template)
	}
	seed := p.Seed
	if seed == 0 {
		seed = int64(s.added + 1)
	}
	inst, err := systems.NewEmitterInstance(tpl, systems.InstanceOptions{
		Name:      p.Name,
		Transform: p.Transform(),
		Owner:     physics.ActorID(p.Owner),
		Querier:   s.physics,
		Impulses:  s.physics,
		Seed:      seed,
	})
	if err != nil {
		return fmt.Errorf("place emitter %s: %w", p.Template, err)
	}
	s.system.Add(inst)
	s.added++
	return nil
}

func (s *Simulation) Config() *config.SceneConfig      { return s.cfg }
func (s *Simulation) Physics() *physics.Scene          { return s.physics }
func (s *Simulation) System() *systems.ParticleSystem { return s.system }
func (s *Simulation) Ticks() int                        { return s.ticks }

// Step ticks the particles, then moves the bodies by the same dt.
func (s *Simulation) Step(ctx context.Context) (systems.TickStats, error) {
	dt := s.cfg.Tick.Delta()
	stats, err := s.system.Tick(ctx, dt)
	if err != nil {
		return stats, err
	}
	s.physics.Step(dt)
	s.ticks++
	return stats, nil
}

// Run steps until the configured duration is covered or every emitter has
// completed. onTick may be nil.
func (s *Simulation) Run(ctx context.Context, onTick func(tick int, stats systems.TickStats)) (Summary, error) {
	var sum Summary
	dt := s.cfg.Tick.Delta()
	for i := 0; i < s.cfg.Tick.Ticks(); i++ {
		stats, err := s.Step(ctx)
		if err != nil {
			return sum, err
		}
		sum.add(stats, dt)
		if onTick != nil {
			onTick(i, stats)
		}
		if len(s.system.Instances()) == 0 {
			s.log.Infow("all emitters completed", "tick", i+1)
			break
		}
	}
	return sum, nil
}
