package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/tspec"
)

func TestBuildSuiteTree(t *testing.T) {
	spec := tspec.MustNew(func(s *tspec.ShouldScope) {
		s.Should("top", pass)
		s.Group("dup", func(s *tspec.ShouldScope) {
			s.Should("one", pass)
			s.Group("inner", func(s *tspec.ShouldScope) {
				s.Should("deep", pass)
			})
		})
		s.Group("dup", func(s *tspec.ShouldScope) {
			s.Should("two", pass)
		})
	}, tspec.WithName("tree"))

	cases, err := Plan(spec)
	require.NoError(t, err)

	st := BuildSuiteTree(spec, cases)

	require.Len(t, st.root.children, 3)
	assert.Equal(t, "should top", st.root.children[0].name)
	assert.Equal(t, "dup", st.root.children[1].name)
	assert.Equal(t, "dup", st.root.children[2].name)

	first := st.root.children[1]
	require.Len(t, first.children, 2)
	assert.Equal(t, "should one", first.children[0].name)
	assert.Equal(t, "inner", first.children[1].name)
	assert.Equal(t, "should deep", first.children[1].children[0].name)

	assert.Len(t, st.idx, 4)
}

func TestTUIModel_Events(t *testing.T) {
	spec := tspec.MustNew(func(s *tspec.ShouldScope) {
		s.Should("a", pass)
		s.Group("g", func(s *tspec.ShouldScope) {
			s.Should("b", fail)
		})
	}, tspec.WithName("ui"))

	cases, err := Plan(spec)
	require.NoError(t, err)

	m := newTUIModel([]SuiteTree{BuildSuiteTree(spec, cases)})

	m.Update(testEventMsg(Event{Action: ActionRun, Spec: spec, Suite: "ui", Index: 0}))
	assert.Equal(t, 1, m.counters.running)

	m.Update(testEventMsg(Event{Action: ActionPass, Spec: spec, Suite: "ui", Index: 0}))
	m.Update(testEventMsg(Event{Action: ActionRun, Spec: spec, Suite: "ui", Index: 1}))
	m.Update(testEventMsg(Event{Action: ActionFail, Spec: spec, Suite: "ui", Index: 1, Error: errTestFail}))
	m.Update(testEventMsg(Event{Action: ActionPass, Spec: tspec.MustNew(func(*tspec.ShouldScope) {}), Suite: "ui", Index: 0}))

	assert.Equal(t, 0, m.counters.running)
	assert.Equal(t, 1, m.counters.passed)
	assert.Equal(t, 1, m.counters.failed)
	assert.Equal(t, 2, m.counters.total)

	m.Update(doneMsg{result: NewResult()})

	view := m.FinalView()
	for _, want := range []string{"ui", "should a", "g", "should b", errTestFail.Error(), "1 passed", "1 failed"} {
		assert.True(t, strings.Contains(view, want), "missing %q in:\n%s", want, view)
	}
}

func TestTUIModel_SuitesWithSameName(t *testing.T) {
	body := func(s *tspec.ShouldScope) {
		s.Should("work", pass)
	}

	first := tspec.MustNew(body)
	second := tspec.MustNew(body)

	firstCases, err := Plan(first)
	require.NoError(t, err)

	secondCases, err := Plan(second)
	require.NoError(t, err)

	m := newTUIModel([]SuiteTree{
		BuildSuiteTree(first, firstCases),
		BuildSuiteTree(second, secondCases),
	})
	assert.Equal(t, 2, m.counters.total)

	m.Update(testEventMsg(Event{Action: ActionRun, Spec: first, Suite: first.Name(), Index: 0}))
	m.Update(testEventMsg(Event{Action: ActionPass, Spec: first, Suite: first.Name(), Index: 0}))

	assert.Equal(t, statusPass, m.suites[0].idx[0].status)
	assert.Equal(t, statusPending, m.suites[1].idx[0].status)
	assert.Equal(t, 1, m.counters.passed)

	m.Update(testEventMsg(Event{Action: ActionRun, Spec: second, Suite: second.Name(), Index: 0}))
	m.Update(testEventMsg(Event{Action: ActionFail, Spec: second, Suite: second.Name(), Index: 0, Error: errTestFail}))

	assert.Equal(t, statusPass, m.suites[0].idx[0].status)
	assert.Equal(t, statusFail, m.suites[1].idx[0].status)
	assert.Equal(t, 1, m.counters.failed)
}

func TestGroupStatus(t *testing.T) {
	leaf := func(s nodeStatus) *treeNode { return &treeNode{kind: kindTest, status: s} }
	group := func(children ...*treeNode) *treeNode { return &treeNode{kind: kindGroup, children: children} }

	assert.Equal(t, statusPass, groupStatus(group(leaf(statusPass), leaf(statusSkip))))
	assert.Equal(t, statusFail, groupStatus(group(leaf(statusPass), leaf(statusError))))
	assert.Equal(t, statusRunning, groupStatus(group(leaf(statusFail), leaf(statusRunning))))
	assert.Equal(t, statusPending, groupStatus(group(leaf(statusPending), leaf(statusPass))))
	assert.Equal(t, statusSkip, groupStatus(group(leaf(statusSkip))))
	assert.Equal(t, statusPending, groupStatus(group()))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1ms", formatDuration(0))
	assert.Equal(t, "250ms", formatDuration(250_000_000))
	assert.Equal(t, "1.5s", formatDuration(1_500_000_000))
	assert.Equal(t, "2m5s", formatDuration(125_000_000_000))
}
