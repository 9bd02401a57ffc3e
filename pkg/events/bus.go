package events

// Bus forwards particle events to handlers registered per event kind.
// Handlers run synchronously in registration order on the goroutine that
// flushes the events. A Bus is not safe for concurrent use.
type Bus struct {
	collided []func(CollisionEvent)
	killed   []func(KillEvent)
}

// OnCollision registers fn for every CollisionEvent.
func (b *Bus) OnCollision(fn func(CollisionEvent)) {
	b.collided = append(b.collided, fn)
}

// OnKill registers fn for every KillEvent.
func (b *Bus) OnKill(fn func(KillEvent)) {
	b.killed = append(b.killed, fn)
}

// Attach registers both methods of s.
func (b *Bus) Attach(s Sink) {
	b.OnCollision(s.ParticleCollided)
	b.OnKill(s.ParticleKilled)
}

// Handlers returns how many collision and kill handlers are registered.
func (b *Bus) Handlers() (collision, kill int) {
	return len(b.collided), len(b.killed)
}

// ParticleCollided calls every collision handler with e.
func (b *Bus) ParticleCollided(e CollisionEvent) {
	for _, fn := range b.collided {
		fn(e)
	}
}

// ParticleKilled calls every kill handler with e.
func (b *Bus) ParticleKilled(e KillEvent) {
	for _, fn := range b.killed {
		fn(e)
	}
}
