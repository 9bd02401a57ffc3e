package systems

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/lod"
)

const tracerName = "github.com/gonewx/particlesim/pkg/systems"

// TickStats summarizes one ParticleSystem.Tick. It also counts the events it
// is handed, so it can sit in a Fanout.
type TickStats struct {
	Instances  int
	Active     int
	Collisions int
	Kills      int
	Completed  int
}

func (s *TickStats) ParticleCollided(events.CollisionEvent) { s.Collisions++ }
func (s *TickStats) ParticleKilled(events.KillEvent)        { s.Kills++ }

// Options configures a ParticleSystem.
type Options struct {
	// Workers limits how many instances tick at once. Zero or less means one.
	Workers int
	Sink    events.Sink
	Logger  *zap.SugaredLogger
	Tracer  trace.Tracer
}

// ParticleSystem owns emitter instances and ticks them.
//
// Instances tick concurrently on up to Workers goroutines. Instances with a
// main-thread-only module tick afterwards on the goroutine calling Tick.
// Events are buffered by each instance and delivered on the calling
// goroutine in instance order once every instance has finished.
type ParticleSystem struct {
	log     *zap.SugaredLogger
	tracer  trace.Tracer
	workers int
	sink    events.Sink

	observers []lod.Observer
	instances []*EmitterInstance
	ticks     int
}

// NewParticleSystem creates an empty system.
func NewParticleSystem(opts Options) *ParticleSystem {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.Discard{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &ParticleSystem{
		log:     log.Named("particles"),
		tracer:  tracer,
		workers: workers,
		sink:    sink,
	}
}

// Add starts ticking inst from the next Tick.
func (ps *ParticleSystem) Add(inst *EmitterInstance) {
	ps.instances = append(ps.instances, inst)
	ps.log.Debugw("emitter added",
		"emitter", inst.Name(),
		"mainThread", inst.MainThreadOnly(),
	)
}

// Instances returns the live instances in tick order.
func (ps *ParticleSystem) Instances() []*EmitterInstance {
	return ps.instances
}

// SetObservers replaces the observers every instance sees. The slice must
// not be modified while a Tick is running.
func (ps *ParticleSystem) SetObservers(observers []lod.Observer) {
	ps.observers = observers
}

func (ps *ParticleSystem) Observers() []lod.Observer {
	return ps.observers
}

// Tick advances every instance by dt seconds, delivers their events and
// drops the instances that completed. The only error is ctx's.
func (ps *ParticleSystem) Tick(ctx context.Context, dt float64) (TickStats, error) {
	ctx, span := ps.tracer.Start(ctx, "ParticleSystem.Tick",
		trace.WithAttributes(
			attribute.Int("instances", len(ps.instances)),
			attribute.Float64("dt", dt),
		))
	defer span.End()

	stats := TickStats{Instances: len(ps.instances)}

	var mainThread []*EmitterInstance
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ps.workers)
	for _, inst := range ps.instances {
		inst.SetObservers(ps.observers)
		if inst.MainThreadOnly() {
			mainThread = append(mainThread, inst)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ps.tickInstance(gctx, inst, dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick cancelled")
		return stats, fmt.Errorf("particle tick: %w", err)
	}

	for _, inst := range mainThread {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("particle tick: %w", err)
		}
		ps.tickInstance(ctx, inst, dt)
	}

	sink := events.Fanout{&stats, ps.sink}
	kept := ps.instances[:0]
	for _, inst := range ps.instances {
		inst.FlushEvents(sink)
		if inst.HasCompleted() {
			stats.Completed++
			ps.log.Infow("emitter completed",
				"emitter", inst.Name(),
				"seconds", inst.SecondsSinceCreation(),
			)
			continue
		}
		stats.Active += inst.ActiveParticles()
		kept = append(kept, inst)
	}
	clear(ps.instances[len(kept):])
	ps.instances = kept
	ps.ticks++

	span.SetAttributes(
		attribute.Int("particles.active", stats.Active),
		attribute.Int("particles.collisions", stats.Collisions),
		attribute.Int("particles.kills", stats.Kills),
	)
	ps.log.Debugw("tick",
		"tick", ps.ticks,
		"instances", stats.Instances,
		"active", stats.Active,
		"collisions", stats.Collisions,
		"kills", stats.Kills,
	)
	return stats, nil
}

func (ps *ParticleSystem) tickInstance(ctx context.Context, inst *EmitterInstance, dt float64) {
	_, span := ps.tracer.Start(ctx, "EmitterInstance.Tick",
		trace.WithAttributes(attribute.String("emitter", inst.Name())))
	inst.Tick(dt)
	span.SetAttributes(attribute.Int("particles.active", inst.ActiveParticles()))
	span.End()
}
