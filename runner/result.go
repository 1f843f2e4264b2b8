package runner

import (
	"strings"
	"sync"
	"time"
)

// Result accumulates test results during execution.
type Result struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int

	// Tests holds terminal results in the order they finished. Sibling
	// cases may share a path, so results are never keyed by path alone.
	Tests []*TestResult

	// pending buffers output for cases still running.
	pending map[caseKey][]string
}

type caseKey struct {
	suite string
	index int
}

// NewResult creates an initialized Result.
func NewResult() *Result {
	return &Result{
		StartTime: time.Now(),
	}
}

// Add records a terminal event in the result.
func (r *Result) Add(event Event) {
	if !event.Action.IsTerminal() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := caseKey{event.Suite, event.Index}
	output := r.pending[key]
	delete(r.pending, key)

	r.addLocked(&TestResult{
		Suite:       event.Suite,
		Path:        event.Path,
		Index:       event.Index,
		Status:      event.Action,
		Elapsed:     event.Elapsed,
		Error:       event.Error,
		Invocations: event.Invocations,
		Failures:    event.Failures,
		Output:      output,
	})
}

func (r *Result) addLocked(tr *TestResult) {
	r.Tests = append(r.Tests, tr)
	r.Total++

	switch tr.Status {
	case ActionPass:
		r.Passed++
	case ActionFail:
		r.Failed++
	case ActionSkip:
		r.Skipped++
	case ActionError:
		r.Errors++
	case ActionRun, ActionOutput:
		// Not terminal actions
	}
}

// AddOutput buffers output until the case's terminal event is added.
func (r *Result) AddOutput(event Event) {
	if event.Action != ActionOutput {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		r.pending = make(map[caseKey][]string)
	}

	key := caseKey{event.Suite, event.Index}
	r.pending[key] = append(r.pending[key], event.Output)
}

// Merge folds other's tests into r, keeping r's start time.
func (r *Result) Merge(other *Result) {
	other.mu.RLock()
	tests := append([]*TestResult(nil), other.Tests...)
	end := other.EndTime
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tr := range tests {
		r.addLocked(tr)
	}

	if end.After(r.EndTime) {
		r.EndTime = end
	}
}

// Finish marks the result as complete.
func (r *Result) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.EndTime = time.Now()
}

// Elapsed returns the total execution time.
func (r *Result) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}

	return r.EndTime.Sub(r.StartTime)
}

// Ok returns true if all tests passed.
func (r *Result) Ok() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Failed == 0 && r.Errors == 0
}

// Failures returns the number of failed and errored tests.
func (r *Result) Failures() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Failed + r.Errors
}

// Find returns every result recorded for path.
func (r *Result) Find(path ...string) []*TestResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := strings.Join(path, "/")

	var found []*TestResult

	for _, tr := range r.Tests {
		if tr.PathString() == want {
			found = append(found, tr)
		}
	}

	return found
}

// FailedTests returns all failed test results.
func (r *Result) FailedTests() []*TestResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []*TestResult

	for _, tr := range r.Tests {
		if tr.Status == ActionFail || tr.Status == ActionError {
			failed = append(failed, tr)
		}
	}

	return failed
}

// TestResult holds the outcome of a single test case.
type TestResult struct {
	Suite   string
	Path    []string
	Index   int
	Status  Action
	Elapsed time.Duration
	Error   error
	Output  []string

	Invocations int
	Failures    int
}

// PathString returns the path as a slash-separated string.
func (tr *TestResult) PathString() string {
	return strings.Join(tr.Path, "/")
}
