package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/rlch/tspec"
)

// TUIFormatter implements Formatter with an animated terminal UI.
type TUIFormatter struct {
	w        io.Writer
	program  *tea.Program
	model    *tuiModel
	done     chan struct{}
	mu       sync.Mutex
	finished bool
}

// NewTUIFormatter creates a TUI formatter over the given suite trees.
func NewTUIFormatter(w io.Writer, suites []SuiteTree) *TUIFormatter {
	model := newTUIModel(suites)

	opts := []tea.ProgramOption{
		tea.WithOutput(w),
		tea.WithoutSignalHandler(),
		tea.WithAltScreen(),
	}

	if !IsTerminal(w) {
		opts = append(opts, tea.WithInput(nil))
	}

	return &TUIFormatter{
		w:       w,
		program: tea.NewProgram(model, opts...),
		model:   model,
		done:    make(chan struct{}),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Start begins the TUI event loop. Call this before running tests.
func (t *TUIFormatter) Start() error {
	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Format sends an event to the TUI.
func (t *TUIFormatter) Format(event Event, _ *Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return nil
	}

	t.program.Send(testEventMsg(event))

	return nil
}

// Summary stops the TUI and prints the final tree. The alternate screen is
// left first so the printed tree stays in scrollback.
func (t *TUIFormatter) Summary(result *Result) error {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()

	t.program.Send(doneMsg{result: result})
	t.program.Quit()
	<-t.done

	_, err := fmt.Fprintln(t.w, t.model.FinalView())

	return err
}

// -----------------------------------------------------------------------------
// Tree Model - Built from the plan before tests run
// -----------------------------------------------------------------------------

type nodeKind int

const (
	kindSuite nodeKind = iota
	kindGroup
	kindTest
)

type nodeStatus int

const (
	statusPending nodeStatus = iota
	statusRunning
	statusPass
	statusFail
	statusSkip
	statusError
)

type treeNode struct {
	name     string
	kind     nodeKind
	status   nodeStatus
	children []*treeNode

	elapsed     time.Duration
	invocations int
	failures    int
	err         error
}

// SuiteTree is the display tree of one spec.
type SuiteTree struct {
	spec *tspec.Spec
	name string
	root *treeNode
	idx  map[int]*treeNode // case index -> leaf
}

// BuildSuiteTree creates a tree from a spec's planned cases. Suites and
// groups are matched by identity, so ones that share a name stay apart.
func BuildSuiteTree(spec *tspec.Spec, cases []Case) SuiteTree {
	st := SuiteTree{
		spec: spec,
		name: spec.Name(),
		root: &treeNode{name: spec.Name(), kind: kindSuite},
		idx:  make(map[int]*treeNode, len(cases)),
	}

	groups := make(map[*tspec.TestNode]*treeNode)

	var parentOf func(n *tspec.TestNode) *treeNode
	parentOf = func(n *tspec.TestNode) *treeNode {
		if n.Parent == nil {
			return st.root
		}

		if g, ok := groups[n.Parent]; ok {
			return g
		}

		g := &treeNode{name: n.Parent.Name, kind: kindGroup}
		up := parentOf(n.Parent)
		up.children = append(up.children, g)
		groups[n.Parent] = g

		return g
	}

	for _, c := range cases {
		leaf := &treeNode{name: c.Node.Name, kind: kindTest}
		parent := parentOf(c.Node)
		parent.children = append(parent.children, leaf)
		st.idx[c.Index] = leaf
	}

	return st
}

// -----------------------------------------------------------------------------
// Bubbletea Model
// -----------------------------------------------------------------------------

type tuiModel struct {
	styles  *Styles
	spinner spinner.Model

	width  int
	height int

	suites  []SuiteTree
	bySuite map[*tspec.Spec]*SuiteTree

	counters counters

	startTime time.Time
	endTime   time.Time

	finalResult *Result
	isDone      bool
}

type counters struct {
	total   int
	running int
	passed  int
	failed  int
	skipped int
	errors  int
}

type (
	tickMsg      time.Time
	testEventMsg Event
	doneMsg      struct{ result *Result }
)

func newTUIModel(suites []SuiteTree) *tuiModel {
	styles := DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerFrames(),
		FPS:    time.Second / 10,
	}
	s.Style = styles.Running

	m := &tuiModel{
		styles:    styles,
		spinner:   s,
		suites:    suites,
		bySuite:   make(map[*tspec.Spec]*SuiteTree, len(suites)),
		startTime: time.Now(),
		width:     80,
		height:    24,
	}

	for i := range suites {
		m.bySuite[suites[i].spec] = &m.suites[i]
		m.counters.total += len(suites[i].idx)
	}

	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *tuiModel) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.QuitMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		return m, nil

	case tickMsg:
		if !m.isDone {
			cmds = append(cmds, m.tick())
		}

	case spinner.TickMsg:
		if !m.isDone {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case testEventMsg:
		m.handleEvent(Event(msg))

	case doneMsg:
		m.isDone = true
		m.endTime = time.Now()
		m.finalResult = msg.result
	}

	return m, tea.Batch(cmds...)
}

func (m *tuiModel) handleEvent(event Event) {
	st, ok := m.bySuite[event.Spec]
	if !ok {
		return
	}

	node, ok := st.idx[event.Index]
	if !ok {
		return
	}

	if node.status == statusRunning && event.Action.IsTerminal() {
		m.counters.running--
	}

	switch event.Action {
	case ActionRun:
		node.status = statusRunning
		m.counters.running++

	case ActionPass:
		node.status = statusPass
		m.counters.passed++

	case ActionFail:
		node.status = statusFail
		m.counters.failed++

	case ActionSkip:
		node.status = statusSkip
		m.counters.skipped++

	case ActionError:
		node.status = statusError
		m.counters.errors++

	case ActionOutput:
		return
	}

	node.elapsed = event.Elapsed
	node.invocations = event.Invocations
	node.failures = event.Failures
	node.err = event.Error
}

// clearEOL clears from the cursor to the end of the line.
const clearEOL = "\033[K"

// FinalView renders the complete output printed after the TUI exits.
func (m *tuiModel) FinalView() string {
	lines := m.lines()
	lines = append(lines, "", m.renderSummary())

	return strings.Join(lines, "\n")
}

func (m *tuiModel) View() string {
	lines := m.lines()

	if m.isDone {
		lines = append(lines, "", m.renderSummary())
	}

	for i := range lines {
		lines[i] += clearEOL
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m *tuiModel) lines() []string {
	lines := []string{m.renderHeader(), m.renderProgress(), ""}

	for _, st := range m.suites {
		tree := strings.TrimSuffix(m.renderTree(st), "\n")
		lines = append(lines, strings.Split(tree, "\n")...)
	}

	return lines
}

func (m *tuiModel) renderHeader() string {
	logo := m.styles.Bold.Render("tspec")
	subtitle := m.styles.Dim.Render(" run")

	var status string

	switch {
	case m.isDone && (m.counters.failed > 0 || m.counters.errors > 0):
		status = m.styles.Fail.Render("FAIL")
	case m.isDone:
		status = m.styles.Pass.Render("PASS")
	case m.counters.running > 0:
		status = m.styles.Running.Render(fmt.Sprintf("running %d", m.counters.running))
	default:
		status = m.styles.Dim.Render("starting")
	}

	return fmt.Sprintf("%s%s  %s", logo, subtitle, status)
}

func (m *tuiModel) renderProgress() string {
	done := m.counters.passed + m.counters.failed + m.counters.skipped + m.counters.errors

	total := m.counters.total
	if total == 0 {
		total = 1
	}

	pct := float64(done) / float64(total)

	elapsed := time.Since(m.startTime)
	if !m.endTime.IsZero() {
		elapsed = m.endTime.Sub(m.startTime)
	}

	elapsedStr := m.styles.Dim.Render(fmt.Sprintf("[%s]", formatDuration(elapsed)))

	const barWidth = 30

	filled := int(pct * barWidth)
	filledChar, emptyChar := ProgressChars()

	bar := m.styles.ProgressFilled.Render(strings.Repeat(filledChar, filled)) +
		m.styles.ProgressEmpty.Render(strings.Repeat(emptyChar, barWidth-filled))

	counter := m.styles.Muted.Render(fmt.Sprintf("%d/%d", done, m.counters.total))

	return fmt.Sprintf("%s %s %s", elapsedStr, bar, counter)
}

func (m *tuiModel) renderTree(st SuiteTree) string {
	var b strings.Builder

	b.WriteString(m.styles.Path.Render(st.name))
	b.WriteString("\n")

	for i, child := range st.root.children {
		m.renderNode(&b, child, "", i == len(st.root.children)-1)
	}

	b.WriteString("\n")

	return b.String()
}

// groupStatus derives a group's status from its children.
func groupStatus(node *treeNode) nodeStatus {
	if node.kind == kindTest {
		return node.status
	}

	var running, failed, pending, passed bool

	for _, child := range node.children {
		switch groupStatus(child) {
		case statusRunning:
			running = true
		case statusFail, statusError:
			failed = true
		case statusPending:
			pending = true
		case statusPass:
			passed = true
		case statusSkip:
		}
	}

	switch {
	case running:
		return statusRunning
	case failed:
		return statusFail
	case pending:
		return statusPending
	case passed:
		return statusPass
	case len(node.children) > 0:
		return statusSkip
	default:
		return statusPending
	}
}

func (m *tuiModel) renderNode(b *strings.Builder, node *treeNode, prefix string, isLast bool) {
	branch := "├─"
	childPrefix := prefix + "│ "

	if isLast {
		branch = "╰─"
		childPrefix = prefix + "  "
	}

	name := node.name

	switch node.kind {
	case kindGroup:
		name = m.styles.Bold.Render(name)
	case kindTest:
		name = m.styles.TestName.Render(name)
	case kindSuite:
	}

	detail := ""
	if node.kind == kindTest && node.status != statusPending && node.status != statusRunning {
		detail = fmt.Sprintf("  [%s]", formatDuration(node.elapsed))
		if node.invocations > 1 {
			detail = fmt.Sprintf("  [%s, %d/%d ok]",
				formatDuration(node.elapsed), node.invocations-node.failures, node.invocations)
		}

		detail = m.styles.Dim.Render(detail)
	}

	b.WriteString(m.styles.Dim.Render(prefix + branch + " "))
	b.WriteString(m.renderSymbol(node))
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(detail)
	b.WriteString("\n")

	if node.err != nil && (node.status == statusFail || node.status == statusError) {
		style := m.styles.Fail
		if node.status == statusError {
			style = m.styles.Error
		}

		for line := range strings.SplitSeq(node.err.Error(), "\n") {
			b.WriteString(m.styles.Dim.Render(childPrefix + "   "))
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	for i, child := range node.children {
		m.renderNode(b, child, childPrefix, i == len(node.children)-1)
	}
}

func (m *tuiModel) renderSymbol(node *treeNode) string {
	switch groupStatus(node) {
	case statusPending:
		return m.styles.Dim.Render("⋯")
	case statusRunning:
		return m.spinner.View()
	case statusPass:
		return m.styles.Pass.Render(m.styles.SymbolPass)
	case statusFail:
		return m.styles.Fail.Render(m.styles.SymbolFail)
	case statusSkip:
		return m.styles.Skip.Render(m.styles.SymbolSkip)
	case statusError:
		return m.styles.Error.Render(m.styles.SymbolFail)
	default:
		return " "
	}
}

func (m *tuiModel) renderSummary() string {
	var parts []string

	if m.counters.passed > 0 {
		parts = append(parts, m.styles.Pass.Render(fmt.Sprintf("%d passed", m.counters.passed)))
	}

	if m.counters.failed > 0 {
		parts = append(parts, m.styles.Fail.Render(fmt.Sprintf("%d failed", m.counters.failed)))
	}

	if m.counters.skipped > 0 {
		parts = append(parts, m.styles.Skip.Render(fmt.Sprintf("%d skipped", m.counters.skipped)))
	}

	if m.counters.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d errors", m.counters.errors)))
	}

	if len(parts) == 0 {
		return m.styles.Dim.Render("  No tests run")
	}

	total := m.styles.Muted.Render(fmt.Sprintf("(%d total)", m.counters.total))
	sep := m.styles.Dim.Render(" │ ")

	return "  " + strings.Join(parts, sep) + " " + total
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// -----------------------------------------------------------------------------
// TUIHandler - Bridges TUI to Handler interface
// -----------------------------------------------------------------------------

// TUIHandler wraps TUIFormatter to implement Handler.
type TUIHandler struct {
	formatter *TUIFormatter
	stderr    io.Writer
}

// NewTUIHandler creates a handler that draws suites on w.
func NewTUIHandler(w, stderr io.Writer, suites []SuiteTree) *TUIHandler {
	return &TUIHandler{
		formatter: NewTUIFormatter(w, suites),
		stderr:    stderr,
	}
}

// Start initializes the TUI.
func (h *TUIHandler) Start() error {
	return h.formatter.Start()
}

// Event sends an event to the TUI.
func (h *TUIHandler) Event(_ context.Context, event Event, result *Result) error {
	return h.formatter.Format(event, result)
}

// Err writes to stderr.
func (h *TUIHandler) Err(text string) error {
	_, err := h.stderr.Write([]byte(text + "\n"))

	return err
}

// Summary renders the final summary.
func (h *TUIHandler) Summary(result *Result) error {
	return h.formatter.Summary(result)
}
