// Package physics is the spatial query side of the simulation: shape sweeps
// against a scene of planes and boxes, and impulses on dynamic bodies.
package physics

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gonewx/particlesim/pkg/vmath"
)

// ActorID identifies an object in a scene. Zero is no actor.
type ActorID uint64

// Category classifies what a sweep struck.
type Category uint8

const (
	CategoryStatic Category = iota
	CategoryDynamic
	CategoryPawn
	CategoryTrigger
)

func (c Category) String() string {
	switch c {
	case CategoryDynamic:
		return "dynamic"
	case CategoryPawn:
		return "pawn"
	case CategoryTrigger:
		return "trigger"
	default:
		return "static"
	}
}

// ParseCategory accepts the names written by String, case-insensitively.
// An empty name is static.
func ParseCategory(s string) (Category, error) {
	for _, c := range []Category{CategoryStatic, CategoryDynamic, CategoryPawn, CategoryTrigger} {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	if s == "" {
		return CategoryStatic, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseCategory(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = v
	return nil
}

func (c Category) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// SweepRequest moves a box of half size Extent from Start to End.
// A zero Extent is a line trace.
type SweepRequest struct {
	Start, End     vmath.Vec3
	Extent         vmath.Vec3
	IgnoreActor    ActorID
	IgnoreTriggers bool
}

// Hit is the first blocking contact along a sweep.
type Hit struct {
	// Location is where the swept shape's center was at impact.
	Location vmath.Vec3
	Normal   vmath.Vec3
	// Time is the fraction of Start→End travelled before impact.
	Time     float64
	Actor    ActorID
	Category Category
}

// SweepQuerier answers synchronous sweeps. A false result means no hit.
// Implementations must be safe for concurrent Sweep calls.
type SweepQuerier interface {
	Sweep(req SweepRequest) (Hit, bool)
}

// ImpulseReceiver applies impulses to dynamic bodies. Calls are confined to
// one goroutine.
type ImpulseReceiver interface {
	AddImpulseAtLocation(actor ActorID, impulse, location vmath.Vec3) bool
}

// NoHits is a querier with nothing in it.
type NoHits struct{}

func (NoHits) Sweep(SweepRequest) (Hit, bool) { return Hit{}, false }
