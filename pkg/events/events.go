// Package events carries particle notifications out of the simulation.
//
// Modules write to a Sink. Emitter instances buffer events per tick and the
// scheduler flushes the buffers on one goroutine, in instance order.
package events

import (
	"sync"

	"github.com/gonewx/particlesim/pkg/components"
	"github.com/gonewx/particlesim/pkg/physics"
	"github.com/gonewx/particlesim/pkg/vmath"
)

// KillReason says why a particle was removed.
type KillReason uint8

const (
	KilledByLifetime KillReason = iota
	KilledByCollision
)

func (r KillReason) String() string {
	if r == KilledByCollision {
		return "collision"
	}
	return "lifetime"
}

// CollisionEvent is sent for every hit that counted as a collision.
type CollisionEvent struct {
	Emitter   string
	Particle  components.Particle
	Payload   components.CollisionPayload
	Hit       physics.Hit
	Direction vmath.Vec3
}

// KillEvent is sent when a particle is removed.
type KillEvent struct {
	Emitter  string
	Particle components.Particle
	Reason   KillReason
}

// Sink receives notifications. Calls are fire-and-forget.
type Sink interface {
	ParticleCollided(CollisionEvent)
	ParticleKilled(KillEvent)
}

// Discard drops everything.
type Discard struct{}

func (Discard) ParticleCollided(CollisionEvent) {}
func (Discard) ParticleKilled(KillEvent)        {}

// Kind tags an entry in a Buffer or Recorder.
type Kind uint8

const (
	KindCollided Kind = iota
	KindKilled
)

// Entry is one buffered notification. Only the field matching Kind is set.
type Entry struct {
	Kind      Kind
	Collision CollisionEvent
	Kill      KillEvent
}

// Buffer keeps events in arrival order until Flush. It is not safe for
// concurrent use; each emitter instance owns one.
type Buffer struct {
	entries []Entry
}

func (b *Buffer) ParticleCollided(e CollisionEvent) {
	b.entries = append(b.entries, Entry{Kind: KindCollided, Collision: e})
}

func (b *Buffer) ParticleKilled(e KillEvent) {
	b.entries = append(b.entries, Entry{Kind: KindKilled, Kill: e})
}

func (b *Buffer) Len() int {
	return len(b.entries)
}

// Flush sends every buffered event to sink in order and empties the buffer.
func (b *Buffer) Flush(sink Sink) {
	for _, e := range b.entries {
		switch e.Kind {
		case KindCollided:
			sink.ParticleCollided(e.Collision)
		case KindKilled:
			sink.ParticleKilled(e.Kill)
		}
	}
	clear(b.entries)
	b.entries = b.entries[:0]
}

// Recorder remembers everything it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) ParticleCollided(e CollisionEvent) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Kind: KindCollided, Collision: e})
	r.mu.Unlock()
}

func (r *Recorder) ParticleKilled(e KillEvent) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Kind: KindKilled, Kill: e})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

func (r *Recorder) Collisions() []CollisionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CollisionEvent
	for _, e := range r.entries {
		if e.Kind == KindCollided {
			out = append(out, e.Collision)
		}
	}
	return out
}

func (r *Recorder) Kills() []KillEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []KillEvent
	for _, e := range r.entries {
		if e.Kind == KindKilled {
			out = append(out, e.Kill)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Fanout forwards to several sinks in order.
type Fanout []Sink

func (f Fanout) ParticleCollided(e CollisionEvent) {
	for _, s := range f {
		s.ParticleCollided(e)
	}
}

func (f Fanout) ParticleKilled(e KillEvent) {
	for _, s := range f {
		s.ParticleKilled(e)
	}
}
