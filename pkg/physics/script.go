package physics

import (
	"sync"

	"github.com/gonewx/particlesim/pkg/vmath"
)

type scriptedResult struct {
	hit Hit
	ok  bool
}

// Script replays queued sweep results in order and records every request.
// Once the queue is empty every sweep misses.
type Script struct {
	mu       sync.Mutex
	queue    []scriptedResult
	requests []SweepRequest
	impulses []Impulse
}

// Impulse is one recorded AddImpulseAtLocation call.
type Impulse struct {
	Actor    ActorID
	Impulse  vmath.Vec3
	Location vmath.Vec3
}

func (s *Script) QueueHit(h Hit) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedResult{hit: h, ok: true})
	return s
}

func (s *Script) QueueMiss() *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scriptedResult{})
	return s
}

func (s *Script) Sweep(req SweepRequest) (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.queue) == 0 {
		return Hit{}, false
	}
	r := s.queue[0]
	s.queue = s.queue[1:]
	return r.hit, r.ok
}

func (s *Script) AddImpulseAtLocation(actor ActorID, impulse, location vmath.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impulses = append(s.impulses, Impulse{Actor: actor, Impulse: impulse, Location: location})
	return true
}

// Requests returns the sweeps issued so far.
func (s *Script) Requests() []SweepRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SweepRequest(nil), s.requests...)
}

// Impulses returns the impulses applied so far.
func (s *Script) Impulses() []Impulse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Impulse(nil), s.impulses...)
}
