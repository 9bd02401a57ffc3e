// Package main provides a debug viewer for particle scenes.
//
// Usage:
//
//	go run ./cmd/particleview [flags]
//
// Flags:
//
//	--scene <path>    Scene file (default data/scenes/fountain.yaml)
//	--verbose         Enable debug logging
//
// Controls:
//
//	Mouse Click   - Place the selected template at the cursor
//	Space         - Place the selected template at the first emitter's location
//	Tab           - Select the next template
//	V             - Toggle side view (X/Z) and top view (X/Y)
//	P             - Toggle pause
//	R             - Reset the scene
//	Q/Escape      - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/gonewx/particlesim/pkg/config"
	"github.com/gonewx/particlesim/pkg/scenes"
	"github.com/gonewx/particlesim/pkg/systems"
	"github.com/gonewx/particlesim/pkg/telemetry"
	"github.com/gonewx/particlesim/pkg/vmath"
)

const (
	screenWidth  = 1024
	screenHeight = 768
)

var (
	sceneFlag   = flag.String("scene", "data/scenes/fountain.yaml", "Scene file")
	verboseFlag = flag.Bool("verbose", false, "Enable debug logging")
)

var errQuit = errors.New("quit requested")

var (
	backgroundColor = color.RGBA{25, 25, 38, 255}
	colliderColor   = color.RGBA{90, 110, 140, 255}
	observerColor   = color.RGBA{240, 200, 60, 255}
	emitterColors   = []color.RGBA{
		{255, 140, 60, 255},
		{120, 200, 255, 255},
		{180, 255, 140, 255},
		{255, 120, 200, 255},
	}
)

// ParticleViewer implements ebiten.Game for a running scene.
type ParticleViewer struct {
	sim *scenes.Simulation
	log *zap.SugaredLogger
	cam camera

	templates []string
	selected  int
	placed    int

	paused        bool
	last          systems.TickStats
	statusMessage string
}

// NewParticleViewer loads the scene and builds the simulation.
func NewParticleViewer(path string, log *zap.SugaredLogger) (*ParticleViewer, error) {
	cfg, err := config.LoadSceneConfig(path)
	if err != nil {
		return nil, err
	}
	sim, err := scenes.NewSimulation(cfg, scenes.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range cfg.Emitters {
		if !seen[e.Template] {
			seen[e.Template] = true
			names = append(names, e.Template)
		}
	}
	sort.Strings(names)

	return &ParticleViewer{
		sim:       sim,
		log:       log.Named("viewer"),
		cam:       fitCamera(cfg, screenWidth, screenHeight),
		templates: names,
	}, nil
}

// Update advances one scene tick per frame unless paused.
func (g *ParticleViewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
		if g.paused {
			g.statusMessage = "PAUSED - press P to resume"
		} else {
			g.statusMessage = "Resumed"
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) && len(g.templates) > 0 {
		g.selected = (g.selected + 1) % len(g.templates)
		g.statusMessage = fmt.Sprintf("Selected: %s", g.templates[g.selected])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.cam.top = !g.cam.top
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.sim.Reset(); err != nil {
			return err
		}
		g.placed = 0
		g.statusMessage = "Scene reset"
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.place(g.sim.Config().Emitters[0].Location)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		at := g.cam.unproject(float64(x), float64(y))
		// 另一轴保持第一个发射器的高度/深度
		first := g.sim.Config().Emitters[0].Location
		if g.cam.top {
			at.Z = first.Z
		} else {
			at.Y = first.Y
		}
		g.place(at)
	}

	if g.paused {
		return nil
	}
	stats, err := g.sim.Step(context.Background())
	if err != nil {
		return err
	}
	g.last = stats
	return nil
}

func (g *ParticleViewer) place(at vmath.Vec3) {
	if len(g.templates) == 0 {
		return
	}
	name := g.templates[g.selected]
	g.placed++
	p := config.EmitterPlacement{
		Template: name,
		Name:     fmt.Sprintf("%s#%d", name, g.placed),
		Location: at,
		Seed:     int64(1000 + g.placed),
	}
	if err := g.sim.Place(p); err != nil {
		g.log.Warnw("place failed", "template", name, "error", err)
		g.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	g.statusMessage = fmt.Sprintf("Placed %s at (%.0f, %.0f, %.0f)", name, at.X, at.Y, at.Z)
}

// Draw renders colliders, observers and particles.
func (g *ParticleViewer) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	g.drawColliders(screen)
	for _, o := range g.sim.Config().Observers {
		x, y := g.cam.project(o.Position)
		vector.DrawFilledCircle(screen, float32(x), float32(y), 6, observerColor, true)
	}

	for i, inst := range g.sim.System().Instances() {
		clr := emitterColors[i%len(emitterColors)]
		store := inst.Store()
		for p := 0; p < store.Len(); p++ {
			x, y := g.cam.project(inst.WorldLocation(p))
			size := store.At(p).Size.AbsMax() * g.cam.scale
			if size < 2 {
				size = 2
			}
			vector.DrawFilledRect(screen, float32(x-size/2), float32(y-size/2), float32(size), float32(size), clr, false)
		}
		inst.MarkRendered()
	}

	g.drawUI(screen)
}

func (g *ParticleViewer) drawColliders(screen *ebiten.Image) {
	for _, p := range g.sim.Physics().Planes() {
		// 只画与视图轴对齐的平面
		n := p.Normal
		var a, b vmath.Vec3
		switch {
		case !g.cam.top && n.Z != 0 && n.X == 0:
			a = vmath.Vec3{X: -1e5, Z: p.Distance / n.Z}
			b = vmath.Vec3{X: 1e5, Z: p.Distance / n.Z}
		case n.X != 0 && n.Y == 0 && n.Z == 0:
			a = vmath.Vec3{X: p.Distance / n.X, Y: -1e5, Z: -1e5}
			b = vmath.Vec3{X: p.Distance / n.X, Y: 1e5, Z: 1e5}
		default:
			continue
		}
		x0, y0 := g.cam.project(a)
		x1, y1 := g.cam.project(b)
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 2, colliderColor, true)
	}
	for _, body := range g.sim.Physics().Bodies() {
		x0, y0 := g.cam.project(body.Center.Sub(body.Extent))
		x1, y1 := g.cam.project(body.Center.Add(body.Extent))
		x, y := min(x0, x1), min(y0, y1)
		w, h := max(x0, x1)-x, max(y0, y1)-y
		vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 2, colliderColor, true)
	}
}

func (g *ParticleViewer) drawUI(screen *ebiten.Image) {
	cfg := g.sim.Config()
	view := "side (X/Z)"
	if g.cam.top {
		view = "top (X/Y)"
	}
	lines := []string{
		fmt.Sprintf("Scene: %s   view: %s   tick: %d", cfg.Name, view, g.sim.Ticks()),
		fmt.Sprintf("Emitters: %d   particles: %d   collisions: %d   kills: %d",
			len(g.sim.System().Instances()), g.last.Active, g.last.Collisions, g.last.Kills),
	}
	if len(g.templates) > 0 {
		lines = append(lines, fmt.Sprintf("Template: %s (Tab to change)", g.templates[g.selected]))
	}
	if g.statusMessage != "" {
		lines = append(lines, g.statusMessage)
	}
	for i, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, 10, 10+i*20)
	}
	ebitenutil.DebugPrintAt(screen, "Click/Space: place  P: pause  R: reset  V: view  Q: quit", 10, screenHeight-24)
}

// Layout returns the logical screen size.
func (g *ParticleViewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	flag.Parse()

	level := "info"
	if *verboseFlag {
		level = "debug"
	}
	log, err := telemetry.NewLogger(telemetry.LogConfig{Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	game, err := NewParticleViewer(*sceneFlag, log)
	if err != nil {
		log.Fatalw("failed to initialize viewer", "error", err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Particle Scene Viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, errQuit) {
		log.Fatalw("viewer stopped", "error", err)
	}
	log.Info("viewer closed")
}
