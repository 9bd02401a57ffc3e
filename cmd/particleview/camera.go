package main

import (
	"github.com/gonewx/particlesim/pkg/config"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// camera maps world units to screen pixels. The side view looks along +Y
// with Z up; the top view looks down Z with Y pointing down the screen.
type camera struct {
	top    bool
	scale  float64 // 像素/世界单位
	center vmath.Vec3
	width  float64
	height float64
}

// fitCamera frames every emitter, body and observer of the scene.
func fitCamera(cfg *config.SceneConfig, width, height int) camera {
	box := vmath.BoxAround(vmath.Zero, vmath.Zero)
	for _, e := range cfg.Emitters {
		box = box.Include(e.Location)
	}
	for _, b := range cfg.Bodies {
		box = box.IncludeBox(vmath.BoxAround(b.Center, b.Extent))
	}
	for _, o := range cfg.Observers {
		box = box.Include(o.Position)
	}
	box = box.ExpandBy(100)

	ext := box.Extent()
	span := max(ext.X, ext.Y, ext.Z) * 2
	return camera{
		scale:  min(float64(width), float64(height)) / span,
		center: box.Center(),
		width:  float64(width),
		height: float64(height),
	}
}

func (c camera) project(p vmath.Vec3) (float64, float64) {
	d := p.Sub(c.center)
	x := c.width/2 + d.X*c.scale
	if c.top {
		return x, c.height/2 + d.Y*c.scale
	}
	return x, c.height/2 - d.Z*c.scale
}

// unproject inverts project on the view plane; the depth axis is taken
// from the camera center.
func (c camera) unproject(x, y float64) vmath.Vec3 {
	p := c.center
	p.X += (x - c.width/2) / c.scale
	if c.top {
		p.Y += (y - c.height/2) / c.scale
	} else {
		p.Z -= (y - c.height/2) / c.scale
	}
	return p
}
