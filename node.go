package tspec

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Body is an executable test body. A returned error is a test failure.
type Body func(ctx context.Context) error

// Builder populates a branch node's children when the branch is expanded.
type Builder func(tc *TestContext)

// TestNode is one entry in the declarative test tree: either a leaf with a
// Body or a branch with a deferred Builder, never both.
type TestNode struct {
	// Name is the human-readable name. Siblings may share a name.
	Name string

	// Config is the resolved configuration for this node.
	Config TestCaseConfig

	// Spec is the spec that owns this node.
	Spec *Spec

	// Parent is the enclosing branch, nil for root-level nodes.
	Parent *TestNode

	body     Body
	build    Builder
	children *TestContext
}

// IsLeaf reports whether the node is directly executable.
func (n *TestNode) IsLeaf() bool { return n.body != nil }

// IsBranch reports whether the node holds a deferred builder.
func (n *TestNode) IsBranch() bool { return n.build != nil }

// Expanded reports whether a branch's children have been built.
func (n *TestNode) Expanded() bool { return n.children != nil }

// Path returns the names from the root-level ancestor down to n.
func (n *TestNode) Path() []string {
	var path []string
	for cur := n; cur != nil; cur = cur.Parent {
		path = append(path, cur.Name)
	}

	slices.Reverse(path)

	return path
}

// Run invokes a leaf's body. The body's error is returned as is.
func (n *TestNode) Run(ctx context.Context) error {
	if !n.IsLeaf() {
		return fmt.Errorf("%w: %q", ErrNotLeaf, n.Name)
	}

	return n.body(ctx)
}

// Expand builds the branch's children on first call and returns the context
// holding them. Later calls return the same context, and the same
// construction errors, without re-running the builder.
func (n *TestNode) Expand() (*TestContext, error) {
	if !n.IsBranch() {
		return nil, fmt.Errorf("%w: %q", ErrNotBranch, n.Name)
	}

	if n.children != nil {
		return n.children, n.children.Err()
	}

	return n.Rebuild()
}

// Rebuild discards any previously built children and runs the builder again
// against a fresh context.
func (n *TestNode) Rebuild() (*TestContext, error) {
	if !n.IsBranch() {
		return nil, fmt.Errorf("%w: %q", ErrNotBranch, n.Name)
	}

	tc := newTestContext(n.Spec, n)
	n.build(tc)
	tc.seal()
	n.children = tc

	n.Spec.logger.Debug("expanded branch",
		zap.Strings("path", n.Path()),
		zap.Int("children", len(tc.nodes)),
	)

	return tc, tc.Err()
}

// TestContext is the registration handle for one level of the tree. It is
// sealed once the body or builder populating it returns; later
// registrations are recorded as ErrSealed.
type TestContext struct {
	spec   *Spec
	node   *TestNode
	nodes  []*TestNode
	errs   []error
	sealed bool
}

func newTestContext(spec *Spec, node *TestNode) *TestContext {
	return &TestContext{spec: spec, node: node}
}

// Spec returns the owning spec.
func (c *TestContext) Spec() *Spec { return c.spec }

// Node returns the branch this context populates, nil at the root.
func (c *TestContext) Node() *TestNode { return c.node }

// DefaultConfig returns the spec-level default configuration.
func (c *TestContext) DefaultConfig() TestCaseConfig { return c.spec.DefaultConfig() }

// Nodes returns the registered nodes in declaration order.
func (c *TestContext) Nodes() []*TestNode {
	return slices.Clone(c.nodes)
}

func (c *TestContext) seal() { c.sealed = true }

// Err returns the construction errors recorded at this level.
func (c *TestContext) Err() error {
	return errors.Join(c.errs...)
}

// RegisterTestCase appends a leaf node.
func (c *TestContext) RegisterTestCase(name string, owner *Spec, body Body, config TestCaseConfig) *TestNode {
	if body == nil && !c.sealed {
		c.fail(name, ErrNilBody)
		return nil
	}

	return c.register(&TestNode{Name: name, Spec: owner, body: body}, config)
}

// RegisterGroup appends a branch node. The builder runs only when the
// branch is expanded.
func (c *TestContext) RegisterGroup(name string, owner *Spec, build Builder, config TestCaseConfig) *TestNode {
	if build == nil && !c.sealed {
		c.fail(name, ErrNilBuilder)
		return nil
	}

	return c.register(&TestNode{Name: name, Spec: owner, build: build}, config)
}

func (c *TestContext) register(node *TestNode, config TestCaseConfig) *TestNode {
	if c.sealed {
		c.fail(node.Name, ErrSealed)
		return nil
	}

	if err := config.Validate(); err != nil {
		c.fail(node.Name, err)
		return nil
	}

	if node.Spec == nil {
		node.Spec = c.spec
	}

	node.Config = config.Clone()
	node.Parent = c.node
	c.nodes = append(c.nodes, node)

	c.spec.logger.Debug("registered test node",
		zap.Strings("path", node.Path()),
		zap.Bool("leaf", node.IsLeaf()),
	)

	return node
}

func (c *TestContext) fail(name string, err error) {
	var parent []string
	if c.node != nil {
		parent = c.node.Path()
	}

	path := append(parent, name)
	c.errs = append(c.errs, fmt.Errorf("registering %q: %w", strings.Join(path, "/"), err))
}
