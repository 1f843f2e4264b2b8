// Package runner executes tspec trees and reports results.
package runner

import (
	"strings"
	"time"

	"github.com/rlch/tspec"
)

// Action represents the type of test event.
type Action string

// Action constants for test events.
const (
	ActionRun    Action = "run"
	ActionPass   Action = "passed"
	ActionFail   Action = "failed"
	ActionSkip   Action = "skipped"
	ActionError  Action = "error"
	ActionOutput Action = "output"
)

// IsTerminal returns true if this action ends a test.
func (a Action) IsTerminal() bool {
	return a == ActionPass || a == ActionFail || a == ActionSkip || a == ActionError
}

// Event represents a single test event emitted during execution.
type Event struct {
	Time    time.Time     // When the event occurred
	Action  Action        // What happened
	Suite   string        // Spec name, not necessarily unique
	Path    []string      // Test path: ["outer", "with context", "should work"]
	Elapsed time.Duration // Time taken (for terminal events)
	Output  string        // Log output (for ActionOutput)
	Error   error         // Error details (for ActionFail/ActionError)

	Invocations int      // Invocations executed (for terminal events)
	Failures    int      // Invocations that failed or errored
	Tags        []string // Resolved tags of the case

	// Index is the case's position in the plan. It tells apart siblings
	// that share a name.
	Index int

	// Spec is the suite that planned the case. It tells apart suites that
	// share a name.
	Spec *tspec.Spec
}

// PathString returns the path as a slash-separated string.
func (e Event) PathString() string {
	return strings.Join(e.Path, "/")
}

// ID returns an identifier: "suite::path::components".
func (e Event) ID() string {
	if e.Suite == "" {
		return strings.Join(e.Path, "::")
	}

	return e.Suite + "::" + strings.Join(e.Path, "::")
}

// TestName returns the leaf test name.
func (e Event) TestName() string {
	if len(e.Path) == 0 {
		return ""
	}

	return e.Path[len(e.Path)-1]
}
