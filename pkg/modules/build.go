package modules

import (
	"fmt"

	"github.com/gonewx/particlesim/internal/particle"
	"github.com/gonewx/particlesim/pkg/ecs"
)

// Set is the module list built for one emitter template.
type Set struct {
	Modules []Module
	Layout  ecs.Layout
	// Chain is nil when the template has no orbit modules.
	Chain *OrbitChain
}

// MainThreadOnly reports whether any module must run on the calling goroutine.
func (s *Set) MainThreadOnly() bool {
	for _, m := range s.Modules {
		if m.MainThreadOnly() {
			return true
		}
	}
	return false
}

// Build creates the modules of tpl in template order. Disabled modules are
// skipped and get no payload.
func Build(tpl *particle.EmitterTemplate) (*Set, error) {
	set := &Set{}
	var modes []particle.OrbitChainMode

	for i, cfg := range tpl.Modules {
		if cfg.Disabled {
			continue
		}
		var m Module
		switch cfg.Type {
		case particle.ModuleCollision:
			if set.Layout.Collision {
				return nil, fmt.Errorf("%w: %s: module %d: only one collision module per emitter", particle.ErrInvalidTemplate, tpl.Name, i)
			}
			set.Layout.Collision = true
			m = NewCollision(*cfg.Collision)
		case particle.ModuleOrbit:
			m = NewOrbit(*cfg.Orbit, len(modes))
			modes = append(modes, cfg.Orbit.ChainMode)
		case particle.ModuleInitialSize:
			m = NewInitialSize(*cfg.InitialSize)
		case particle.ModuleSizeMultiplyLife:
			m = NewSizeMultiplyLife(*cfg.SizeMultiplyLife)
		case particle.ModuleSizeScale:
			m = NewSizeScale(*cfg.SizeScale)
		case particle.ModuleSizeScaleBySpeed:
			m = NewSizeScaleBySpeed(*cfg.SizeScaleBySpeed)
		case particle.ModuleAcceleration:
			m = NewAcceleration(*cfg.Acceleration)
		case particle.ModuleMeshRotationRate:
			set.Layout.MeshRotation = true
			m = NewMeshRotationRate(*cfg.MeshRotationRate)
		default:
			return nil, fmt.Errorf("%w: %s: module %d: unknown type %q", particle.ErrInvalidTemplate, tpl.Name, i, cfg.Type)
		}
		set.Modules = append(set.Modules, m)
	}

	if len(modes) > 0 {
		set.Layout.OrbitLayers = len(modes)
		set.Chain = NewOrbitChain(modes...)
	}
	if tpl.IsMesh() {
		set.Layout.MeshRotation = true
	}
	return set, nil
}
