package runner

import (
	"strings"

	"github.com/rlch/tspec"
)

// Case is one executable leaf of a spec, in declaration order.
type Case struct {
	Spec  *tspec.Spec
	Suite string
	Index int
	Path  []string
	Node  *tspec.TestNode
}

// PathString returns the path as a slash-separated string.
func (c Case) PathString() string {
	return strings.Join(c.Path, "/")
}

// Plan expands every branch of spec and returns its leaves.
func Plan(spec *tspec.Spec) ([]Case, error) {
	var cases []Case

	err := tspec.Walk(spec, func(path []string, node *tspec.TestNode) error {
		if !node.IsLeaf() {
			return nil
		}

		cases = append(cases, Case{
			Spec:  spec,
			Suite: spec.Name(),
			Index: len(cases),
			Path:  path,
			Node:  node,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cases, nil
}
