// Package tspec builds declarative test trees from nested phrases.
//
// A Spec runs its body once at construction, registering root-level nodes.
// Branches keep their bodies as deferred builders that run only when the
// branch is expanded, typically by an execution engine walking the tree.
// Every node's configuration is the spec-level default with that node's own
// overrides applied; ancestors never contribute.
package tspec

import (
	"fmt"

	"go.uber.org/zap"
)

// Spec is the root of one test suite.
type Spec struct {
	name     string
	defaults TestCaseConfig
	root     *TestContext
	logger   *zap.Logger
}

// Option configures a Spec.
type Option func(*Spec)

// WithName sets the suite name reported by engines.
func WithName(name string) Option {
	return func(s *Spec) {
		s.name = name
	}
}

// WithDefaultConfig replaces the spec-level default configuration.
func WithDefaultConfig(cfg TestCaseConfig) Option {
	return func(s *Spec) {
		s.defaults = cfg.Clone()
		s.defaults.Tags = s.defaults.Tags.dedupe()
	}
}

// WithDefaults applies overrides to the current default configuration.
func WithDefaults(o Overrides) Option {
	return func(s *Spec) {
		s.defaults = Resolve(s.defaults, o)
	}
}

// WithLogger sets the logger used for registration and expansion events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Spec) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Spec and runs body against the root scope. A nil body
// yields an empty suite. Construction errors from the default config or from
// root-level registrations are returned joined.
func New(body func(s *ShouldScope), opts ...Option) (*Spec, error) {
	s := &Spec{
		defaults: DefaultTestCaseConfig(),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.defaults.Validate(); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}

	s.root = newTestContext(s, nil)

	if body != nil {
		body(NewShouldScope(s.root))
	}

	s.root.seal()

	if err := s.root.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("constructed spec",
		zap.String("name", s.name),
		zap.Int("nodes", len(s.root.nodes)),
	)

	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(body func(s *ShouldScope), opts ...Option) *Spec {
	s, err := New(body, opts...)
	if err != nil {
		panic(err)
	}

	return s
}

// Name returns the suite name.
func (s *Spec) Name() string { return s.name }

// DefaultConfig returns a copy of the spec-level default configuration.
func (s *Spec) DefaultConfig() TestCaseConfig { return s.defaults.Clone() }

// Root returns the root registration context.
func (s *Spec) Root() *TestContext { return s.root }

// Nodes returns the root-level nodes in declaration order.
func (s *Spec) Nodes() []*TestNode { return s.root.Nodes() }

// Logger returns the spec's logger.
func (s *Spec) Logger() *zap.Logger { return s.logger }
