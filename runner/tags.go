package runner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/tspec"
)

// tagsVar names the environment variable holding every tag of a case.
const tagsVar = "tags"

// TagFilter selects cases by a boolean expression over their tags, e.g.
//
//	db && !slow
//	unit || "needs-network" in tags
//
// Every identifier is a tag name and is true when the case carries that tag.
// Tags that are not valid identifiers can be tested through the tags array.
type TagFilter struct {
	source  string
	idents  []string
	program *vm.Program
}

// NewTagFilter compiles expression. An empty expression matches everything.
func NewTagFilter(expression string) (*TagFilter, error) {
	f := &TagFilter{source: strings.TrimSpace(expression)}
	if f.source == "" {
		return f, nil
	}

	tree, err := parser.Parse(f.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTagExpr, f.source, err)
	}

	collector := &identCollector{seen: make(map[string]bool)}
	ast.Walk(&tree.Node, collector)
	f.idents = collector.idents

	program, err := expr.Compile(f.source, expr.Env(f.env(nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidTagExpr, f.source, err)
	}

	f.program = program

	return f, nil
}

// String returns the source expression.
func (f *TagFilter) String() string {
	return f.source
}

// Match reports whether tags satisfy the expression.
func (f *TagFilter) Match(tags tspec.Tags) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, f.env(tags))
	if err != nil {
		return false, fmt.Errorf("evaluating tag expression %q: %w", f.source, err)
	}

	matched, _ := out.(bool)

	return matched, nil
}

func (f *TagFilter) env(tags tspec.Tags) map[string]any {
	env := make(map[string]any, len(f.idents)+1)
	for _, id := range f.idents {
		env[id] = tags.Has(tspec.Tag(id))
	}

	env[tagsVar] = tags.Strings()

	return env
}

type identCollector struct {
	seen   map[string]bool
	idents []string
}

func (c *identCollector) Visit(node *ast.Node) {
	id, ok := (*node).(*ast.IdentifierNode)
	if !ok || id.Value == tagsVar || c.seen[id.Value] {
		return
	}

	c.seen[id.Value] = true
	c.idents = append(c.idents, id.Value)
}
