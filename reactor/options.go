package reactor

import "log/slog"

// Option configures a reactor. Options apply to Core and to every flavor
// built on it (Observer, Subscription, Readonly).
type Option func(*config)

type config struct {
	id     string
	idGen  IDGenerator
	name   string
	logger *slog.Logger
	tracer Tracer
	seq    Sequencer
}

func newConfig(opts []Option) config {
	cfg := config{
		idGen:  UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.id == "" {
		cfg.id = cfg.idGen.Generate()
	}
	if cfg.seq == nil {
		cfg.seq = NewClock()
	}
	return cfg
}

// WithID fixes the reactor's ID instead of generating one.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithIDGenerator sets the generator used when no explicit ID is given.
//
// Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *config) {
		c.idGen = gen
	}
}

// WithName sets a human-readable name used in logs and trace records.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer installs a Tracer that sees every published state.
func WithTracer(t Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// WithSequencer sets the source of record sequence numbers.
//
// Default: a private Clock per reactor.
func WithSequencer(s Sequencer) Option {
	return func(c *config) {
		c.seq = s
	}
}
