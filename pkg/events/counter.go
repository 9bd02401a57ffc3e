package events

// EmitterCounts 单个发射器的事件统计
type EmitterCounts struct {
	Collisions        int
	Kills             int
	KilledByCollision int
}

// Counter tallies events per emitter name.
type Counter struct {
	counts map[string]*EmitterCounts
	order  []string
}

func (c *Counter) entry(name string) *EmitterCounts {
	if c.counts == nil {
		c.counts = make(map[string]*EmitterCounts)
	}
	e, ok := c.counts[name]
	if !ok {
		e = &EmitterCounts{}
		c.counts[name] = e
		c.order = append(c.order, name)
	}
	return e
}

func (c *Counter) ParticleCollided(e CollisionEvent) {
	c.entry(e.Emitter).Collisions++
}

func (c *Counter) ParticleKilled(e KillEvent) {
	entry := c.entry(e.Emitter)
	entry.Kills++
	if e.Reason == KilledByCollision {
		entry.KilledByCollision++
	}
}

// Emitters lists the emitter names in the order they first sent an event.
func (c *Counter) Emitters() []string {
	return c.order
}

// Counts returns the tally for name; unknown names are zero.
func (c *Counter) Counts(name string) EmitterCounts {
	if e, ok := c.counts[name]; ok {
		return *e
	}
	return EmitterCounts{}
}
