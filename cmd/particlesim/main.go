// Command particlesim runs a particle scene headless and reports what happened.
//
// Usage:
//
//	go run ./cmd/particlesim [flags]
//
// Flags:
//
//	--scene <path>     Scene file (default from PARTICLESIM_SCENE)
//	--out <dir>        Output directory for the chart and GPU blobs
//	--workers <n>      Override the scene's worker count
//	--events           Log every collision and kill (debug level)
//
// Everything else comes from PARTICLESIM_* environment variables, see
// config.RunnerEnv.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/gonewx/particlesim/pkg/config"
	"github.com/gonewx/particlesim/pkg/events"
	"github.com/gonewx/particlesim/pkg/gpu"
	"github.com/gonewx/particlesim/pkg/history"
	"github.com/gonewx/particlesim/pkg/scenes"
	"github.com/gonewx/particlesim/pkg/systems"
	"github.com/gonewx/particlesim/pkg/telemetry"
)

const appName = "particlesim"

var (
	sceneFlag   = flag.String("scene", "", "Scene file (overrides PARTICLESIM_SCENE)")
	outFlag     = flag.String("out", "", "Output directory (overrides PARTICLESIM_OUT_DIR)")
	workersFlag = flag.Int("workers", 0, "Worker count (overrides the scene)")
	eventsFlag  = flag.Bool("events", false, "Log every particle event")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "particlesim:", err)
		os.Exit(1)
	}
}

func run() error {
	envCfg, err := config.ParseRunnerEnv()
	if err != nil {
		return err
	}
	if *sceneFlag != "" {
		envCfg.Scene = *sceneFlag
	}
	if *outFlag != "" {
		envCfg.OutDir = *outFlag
	}
	if *workersFlag > 0 {
		envCfg.Workers = *workersFlag
	}

	logger, err := telemetry.NewLogger(envCfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.SetupTracing(ctx, appName, envCfg.Trace)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warnw("trace shutdown failed", "error", err)
		}
	}()

	switch envCfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(envCfg.OutDir), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(envCfg.OutDir), profile.NoShutdownHook).Stop()
	}

	precision, err := gpu.ParsePrecision(envCfg.GPUPrecision)
	if err != nil {
		return err
	}

	scene, err := config.LoadSceneConfig(envCfg.Scene)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(envCfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	counter := &events.Counter{}
	bus := newEventBus(counter, *eventsFlag, logger)
	sim, err := scenes.NewSimulation(scene, scenes.Options{
		Workers: envCfg.Workers,
		Sink:    bus,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if err := writeGPUBlobs(scene, envCfg.OutDir, precision, logger); err != nil {
		return err
	}

	started := time.Now()
	sum, err := sim.Run(ctx, func(tick int, stats systems.TickStats) {
		if stats.Completed > 0 {
			logger.Debugw("emitters completed", "tick", tick, "count", stats.Completed)
		}
	})
	if err != nil {
		return err
	}
	wall := time.Since(started)

	logger.Infow("run finished",
		"scene", scene.Name,
		"ticks", sum.Ticks,
		"simSeconds", sum.SimSeconds,
		"wall", wall,
		"peakActive", sum.PeakActive,
		"collisions", sum.Collisions,
		"kills", sum.Kills,
		"completed", sum.Completed,
	)
	logEmitterTotals(logger, counter)

	if envCfg.Chart {
		path := filepath.Join(envCfg.OutDir, scene.Name+".html")
		if err := writeChart(path, scene.Name, scene.Tick.Delta(), sum); err != nil {
			return err
		}
		logger.Infow("chart written", "path", path)
	}

	if envCfg.History {
		h := history.Open(appName, logger.Named("history"))
		if prev, ok := h.Last(scene.Name); ok {
			logger.Infow("previous run",
				"startedAt", prev.StartedAt.Format(time.RFC3339),
				"peakActive", prev.PeakActive,
				"collisions", prev.Collisions,
			)
		}
		rec := history.RunRecord{
			Scene:      scene.Name,
			StartedAt:  started,
			Ticks:      sum.Ticks,
			SimSeconds: sum.SimSeconds,
			WallMillis: wall.Milliseconds(),
			PeakActive: sum.PeakActive,
			Collisions: sum.Collisions,
			Kills:      sum.Kills,
			Completed:  sum.Completed,
		}
		if err := h.Append(rec); err != nil {
			logger.Warnw("run history not saved", "error", err)
		}
	}
	return nil
}

// writeGPUBlobs 为场景用到的每个模板写出 GPU 参数块
func writeGPUBlobs(scene *config.SceneConfig, dir string, p gpu.Precision, logger *zap.SugaredLogger) error {
	seen := make(map[string]bool)
	for _, e := range scene.Emitters {
		if seen[e.Template] {
			continue
		}
		seen[e.Template] = true

		tpl, _ := scene.Template(e.Template)
		data, err := gpu.Build(gpu.FromTemplate(tpl)).Encode(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", tpl.Name, err)
		}
		path := filepath.Join(dir, tpl.Name+".pgpu")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debugw("gpu params written", "template", tpl.Name, "bytes", len(data), "precision", p)
	}
	return nil
}

// newEventBus 事件总线: 计数器总是订阅, -events 时再挂日志
func newEventBus(counter *events.Counter, logEvents bool, logger *zap.SugaredLogger) *events.Bus {
	bus := &events.Bus{}
	bus.Attach(counter)
	if logEvents {
		bus.Attach(events.NewLogSink(logger.Named("events")))
	}
	return bus
}

func logEmitterTotals(logger *zap.SugaredLogger, counter *events.Counter) {
	for _, name := range counter.Emitters() {
		c := counter.Counts(name)
		logger.Infow("emitter totals",
			"emitter", name,
			"collisions", c.Collisions,
			"kills", c.Kills,
			"killedByCollision", c.KilledByCollision,
		)
	}
}
