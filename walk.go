package tspec

import (
	"errors"
	"fmt"
	"strings"
)

// SkipBranch may be returned by a WalkFunc to leave a branch unexpanded.
var SkipBranch = errors.New("tspec: skip this branch") //nolint:errname,staticcheck // sentinel control value like fs.SkipDir

// WalkFunc is called for every node visited by Walk. path includes the
// node's own name.
type WalkFunc func(path []string, node *TestNode) error

// Walk visits the spec's nodes depth-first in declaration order, expanding
// each branch before descending into it. Errors recorded at any level,
// including registrations attempted after construction, abort the walk.
func Walk(spec *Spec, fn WalkFunc) error {
	if err := spec.root.Err(); err != nil {
		return err
	}

	return walkNodes(spec.Nodes(), fn)
}

func walkNodes(nodes []*TestNode, fn WalkFunc) error {
	for _, node := range nodes {
		err := fn(node.Path(), node)
		if errors.Is(err, SkipBranch) {
			continue
		}

		if err != nil {
			return err
		}

		if !node.IsBranch() {
			continue
		}

		tc, err := node.Expand()
		if err != nil {
			return fmt.Errorf("expanding %q: %w", strings.Join(node.Path(), "/"), err)
		}

		if err := walkNodes(tc.Nodes(), fn); err != nil {
			return err
		}
	}

	return nil
}

// Leaves expands the whole tree and returns every leaf in declaration order.
func Leaves(spec *Spec) ([]*TestNode, error) {
	var leaves []*TestNode

	err := Walk(spec, func(_ []string, node *TestNode) error {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}

		return nil
	})

	return leaves, err
}
