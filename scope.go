package tspec

// ShouldScope is the phrase vocabulary available at one nesting level:
//
//	s.Group("some test", func(s *tspec.ShouldScope) {
//		s.Group("with context", func(s *tspec.ShouldScope) {
//			s.Should("do something", func(ctx context.Context) error {
//				return nil
//			})
//		})
//	})
//
// A scope holds nothing but its TestContext, so a fresh one is built each
// time a branch is expanded.
type ShouldScope struct {
	ctx *TestContext
}

// NewShouldScope wraps tc.
func NewShouldScope(tc *TestContext) *ShouldScope {
	return &ShouldScope{ctx: tc}
}

// Context returns the registration handle for this level.
func (s *ShouldScope) Context() *TestContext {
	return s.ctx
}

// Group declares a branch named name. body runs against the branch's own
// scope when the branch is expanded, not now.
func (s *ShouldScope) Group(name string, body func(s *ShouldScope)) {
	spec := s.ctx.Spec()

	var build Builder
	if body != nil {
		build = func(tc *TestContext) {
			body(NewShouldScope(tc))
		}
	}

	s.ctx.RegisterGroup(name, spec, build, spec.DefaultConfig())
}

// Should declares the leaf "should <desc>" with the spec default config.
func (s *ShouldScope) Should(desc string, body Body) {
	spec := s.ctx.Spec()
	s.ctx.RegisterTestCase(shouldName(desc), spec, body, spec.DefaultConfig())
}

// ShouldWith starts a leaf declaration that takes per-case overrides.
func (s *ShouldScope) ShouldWith(desc string) *CaseBuilder {
	return &CaseBuilder{ctx: s.ctx, name: shouldName(desc)}
}

// CaseBuilder completes a ShouldWith declaration.
type CaseBuilder struct {
	ctx  *TestContext
	name string
}

// Config registers the leaf with overrides resolved against the spec default.
func (b *CaseBuilder) Config(overrides Overrides, body Body) {
	spec := b.ctx.Spec()
	b.ctx.RegisterTestCase(b.name, spec, body, Resolve(spec.DefaultConfig(), overrides))
}

func shouldName(desc string) string {
	return "should " + desc
}
