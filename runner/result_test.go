package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Counts(t *testing.T) {
	r := NewResult()
	r.Add(Event{Action: ActionRun, Path: []string{"a"}})
	r.Add(Event{Action: ActionPass, Path: []string{"a"}})
	r.Add(Event{Action: ActionFail, Path: []string{"b"}, Error: errTestFail})
	r.Add(Event{Action: ActionSkip, Path: []string{"c"}})
	r.Add(Event{Action: ActionError, Path: []string{"d"}})
	r.Finish()

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Errors)
	assert.Equal(t, 2, r.Failures())
	assert.False(t, r.Ok())
	assert.Len(t, r.FailedTests(), 2)
}

func TestResult_OutputAttachesToCase(t *testing.T) {
	r := NewResult()
	r.AddOutput(Event{Action: ActionOutput, Suite: "s", Index: 0, Output: "first"})
	r.AddOutput(Event{Action: ActionOutput, Suite: "s", Index: 1, Output: "other"})
	r.AddOutput(Event{Action: ActionOutput, Suite: "s", Index: 0, Output: "second"})
	r.Add(Event{Action: ActionPass, Suite: "s", Index: 0, Path: []string{"a"}})

	require.Len(t, r.Tests, 1)
	assert.Equal(t, []string{"first", "second"}, r.Tests[0].Output)

	r.Add(Event{Action: ActionPass, Suite: "s", Index: 1, Path: []string{"b"}})
	assert.Equal(t, []string{"other"}, r.Tests[1].Output)
}

func TestResult_Merge(t *testing.T) {
	a := NewResult()
	a.Add(Event{Action: ActionPass, Suite: "one", Path: []string{"x"}})
	a.Finish()

	b := NewResult()
	b.Add(Event{Action: ActionFail, Suite: "two", Path: []string{"x"}})
	b.Finish()

	a.Merge(b)

	assert.Equal(t, 2, a.Total)
	assert.Equal(t, 1, a.Failed)
	assert.Len(t, a.Find("x"), 2)
	assert.False(t, a.EndTime.Before(b.EndTime))
}
