package tspec

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Tag labels a test case for selective inclusion or exclusion.
type Tag string

// Tags is an insertion-ordered set of tags.
type Tags []Tag

// NewTags builds a de-duplicated tag set from names.
func NewTags(names ...string) Tags {
	tags := make(Tags, 0, len(names))
	for _, n := range names {
		tags = append(tags, Tag(n))
	}

	return tags.dedupe()
}

// Has reports whether the set contains tag.
func (t Tags) Has(tag Tag) bool {
	return slices.Contains(t, tag)
}

// Strings returns the tag names in order.
func (t Tags) Strings() []string {
	out := make([]string, len(t))
	for i, tag := range t {
		out[i] = string(tag)
	}

	return out
}

func (t Tags) dedupe() Tags {
	out := make(Tags, 0, len(t))
	for _, tag := range t {
		if !out.Has(tag) {
			out = append(out, tag)
		}
	}

	return out
}

// Extension wraps the execution of a single test case invocation.
// Implementations must call next to run the case (or deliberately skip it).
type Extension interface {
	Intercept(ctx context.Context, node *TestNode, next func(context.Context) error) error
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(ctx context.Context, node *TestNode, next func(context.Context) error) error

// Intercept calls f.
func (f ExtensionFunc) Intercept(ctx context.Context, node *TestNode, next func(context.Context) error) error {
	return f(ctx, node, next)
}

// TestCaseConfig holds the resolved execution settings of a test case.
// Values are treated as immutable once attached to a node.
type TestCaseConfig struct {
	// Enabled reports whether the case runs at all.
	Enabled bool

	// Invocations is how many times the case is repeated. 0 and 1 both mean once.
	Invocations int

	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration

	// Threads is how many invocations may run concurrently.
	Threads int

	// Tags label the case for selection.
	Tags Tags

	// Extensions wrap execution, first one outermost.
	Extensions []Extension
}

// DefaultTestCaseConfig returns the fully populated baseline configuration.
func DefaultTestCaseConfig() TestCaseConfig {
	return TestCaseConfig{
		Enabled:     true,
		Invocations: 1,
		Timeout:     0,
		Threads:     1,
		Tags:        Tags{},
		Extensions:  []Extension{},
	}
}

// EffectiveInvocations returns the number of times the case actually runs.
func (c TestCaseConfig) EffectiveInvocations() int {
	return max(c.Invocations, 1)
}

// Clone returns a copy that shares no slices with c.
func (c TestCaseConfig) Clone() TestCaseConfig {
	out := c
	out.Tags = slices.Clone(c.Tags)
	out.Extensions = slices.Clone(c.Extensions)

	if out.Tags == nil {
		out.Tags = Tags{}
	}

	if out.Extensions == nil {
		out.Extensions = []Extension{}
	}

	return out
}

// Validate reports an invalid field combination.
func (c TestCaseConfig) Validate() error {
	switch {
	case c.Invocations < 0:
		return fmt.Errorf("%w: got %d", ErrInvalidInvocations, c.Invocations)
	case c.Threads < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidThreads, c.Threads)
	case c.Threads > c.EffectiveInvocations():
		return fmt.Errorf("%w: %d threads for %d invocations", ErrThreadsExceedInvocations, c.Threads, c.EffectiveInvocations())
	case c.Timeout < 0:
		return fmt.Errorf("%w: got %s", ErrInvalidTimeout, c.Timeout)
	}

	return nil
}

// Overrides is a partial TestCaseConfig. A nil field inherits the base value;
// a non-nil field, including an empty non-nil slice, replaces it.
type Overrides struct {
	Enabled     *bool          `yaml:"enabled,omitempty"`
	Invocations *int           `yaml:"invocations,omitempty"`
	Timeout     *time.Duration `yaml:"timeout,omitempty"`
	Threads     *int           `yaml:"threads,omitempty"`
	Tags        []Tag          `yaml:"tags,omitempty"`
	Extensions  []Extension    `yaml:"-"`
}

// IsZero reports whether o overrides nothing.
func (o Overrides) IsZero() bool {
	return o.Enabled == nil &&
		o.Invocations == nil &&
		o.Timeout == nil &&
		o.Threads == nil &&
		o.Tags == nil &&
		o.Extensions == nil
}

// Resolve merges overrides onto base field by field.
func Resolve(base TestCaseConfig, o Overrides) TestCaseConfig {
	out := base.Clone()

	if o.Enabled != nil {
		out.Enabled = *o.Enabled
	}

	if o.Invocations != nil {
		out.Invocations = *o.Invocations
	}

	if o.Timeout != nil {
		out.Timeout = *o.Timeout
	}

	if o.Threads != nil {
		out.Threads = *o.Threads
	}

	if o.Tags != nil {
		out.Tags = Tags(o.Tags).dedupe()
	}

	if o.Extensions != nil {
		out.Extensions = slices.Clone(o.Extensions)
	}

	return out
}

// Ptr returns a pointer to v, for filling Overrides literals.
func Ptr[T any](v T) *T {
	return &v
}
