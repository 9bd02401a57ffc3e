package events

import "go.uber.org/zap"

// LogSink writes every event at debug level.
type LogSink struct {
	log *zap.SugaredLogger
}

// NewLogSink returns a sink that writes every event at debug level.
func NewLogSink(log *zap.SugaredLogger) *LogSink {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogSink{log: log.Named("events")}
}

func (s *LogSink) ParticleCollided(e CollisionEvent) {
	s.log.Debugw("particle collided",
		"emitter", e.Emitter,
		"actor", e.Hit.Actor,
		"category", e.Hit.Category.String(),
		"location", e.Hit.Location,
		"remaining", e.Payload.UsedCollisions,
	)
}

func (s *LogSink) ParticleKilled(e KillEvent) {
	s.log.Debugw("particle killed",
		"emitter", e.Emitter,
		"reason", e.Reason.String(),
		"location", e.Particle.Location,
	)
}
