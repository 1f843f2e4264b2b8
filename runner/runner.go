package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rlch/tspec"
)

// Runner executes tspec suites.
type Runner struct {
	handler  Handler
	failFast bool
	filter   *regexp.Regexp
	glob     string
	tags     *TagFilter
	logger   *zap.Logger

	// err holds the first invalid option; Run reports it.
	err error

	emitMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithFailFast stops on first failure.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithFilter sets a regex pattern to filter which tests run.
// Tests whose path matches the pattern will be executed.
func WithFilter(pattern string) Option {
	return func(r *Runner) {
		if pattern == "" {
			return
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			r.setErr(fmt.Errorf("%w: %w", ErrInvalidFilter, err))
			return
		}

		r.filter = re
	}
}

// WithGlob sets a doublestar pattern, e.g. "outer/**", matched against
// slash-joined test paths.
func WithGlob(pattern string) Option {
	return func(r *Runner) {
		if pattern == "" {
			return
		}

		if !doublestar.ValidatePattern(pattern) {
			r.setErr(fmt.Errorf("%w: bad glob %q", ErrInvalidFilter, pattern))
			return
		}

		r.glob = pattern
	}
}

// WithTags sets a tag expression selecting which tests run.
func WithTags(expression string) Option {
	return func(r *Runner) {
		f, err := NewTagFilter(expression)
		if err != nil {
			r.setErr(err)
			return
		}

		r.tags = f
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Runner) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Run expands spec, executes its selected leaves in declaration order and
// returns the results.
func (r *Runner) Run(ctx context.Context, spec *tspec.Spec) (*Result, error) {
	if r.err != nil {
		return nil, r.err
	}

	cases, err := Plan(spec)
	if err != nil {
		return nil, err
	}

	result := NewResult()

	handlers := []Handler{NewResultHandler()}
	if r.handler != nil {
		handlers = append(handlers, r.handler)
	}

	if r.failFast {
		handlers = append(handlers, NewStopOnFailHandler(1))
	}

	handler := NewMultiHandler(handlers...)

	r.logger.Info("running suite",
		zap.String("suite", spec.Name()),
		zap.Int("cases", len(cases)),
	)

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			result.Finish()
			return result, err
		}

		err := r.runCase(ctx, c, handler, result)
		if errors.Is(err, ErrMaxFailures) {
			r.logger.Info("stopping after max failures", zap.String("suite", spec.Name()))
			break
		}

		if err != nil {
			return result, err
		}
	}

	result.Finish()

	return result, nil
}

func (r *Runner) runCase(ctx context.Context, c Case, handler Handler, result *Result) error {
	selected, err := r.selected(c)
	if err != nil {
		return err
	}

	if !selected {
		return nil
	}

	cfg := c.Node.Config
	base := Event{
		Spec:  c.Spec,
		Suite: c.Suite,
		Path:  c.Path,
		Index: c.Index,
		Tags:  cfg.Tags.Strings(),
	}

	if !cfg.Enabled {
		skip := base
		skip.Time = time.Now()
		skip.Action = ActionSkip

		return r.emit(ctx, handler, skip, result)
	}

	start := time.Now()

	run := base
	run.Time = start
	run.Action = ActionRun

	if err := r.emit(ctx, handler, run, result); err != nil {
		return err
	}

	caseCtx := withEmitter(ctx, func(text string) {
		out := base
		out.Time = time.Now()
		out.Action = ActionOutput
		out.Output = text
		_ = r.emit(ctx, handler, out, result)
	})

	errs := r.invokeAll(caseCtx, c.Node)

	done := base
	done.Time = time.Now()
	done.Elapsed = time.Since(start)
	done.Invocations = len(errs)
	done.Action, done.Failures, done.Error = classify(errs)

	return r.emit(ctx, handler, done, result)
}

// invokeAll runs every invocation of node, at most Threads at a time, and
// returns one error slot per invocation.
func (r *Runner) invokeAll(ctx context.Context, node *tspec.TestNode) []error {
	cfg := node.Config
	n := cfg.EffectiveInvocations()
	errs := make([]error, n)

	sem := semaphore.NewWeighted(int64(cfg.Threads))

	var g errgroup.Group

	for i := range n {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = err
				return nil
			}
			defer sem.Release(1)

			errs[i] = invoke(ctx, node)

			return nil
		})
	}

	_ = g.Wait()

	return errs
}

// invoke runs node once, wrapped by its extensions and bounded by its timeout.
// A body that ignores cancellation is abandoned once the timeout expires.
func invoke(ctx context.Context, node *tspec.TestNode) error {
	cfg := node.Config

	call := node.Run
	for i := len(cfg.Extensions) - 1; i >= 0; i-- {
		ext, next := cfg.Extensions[i], call
		call = func(ctx context.Context) error {
			return ext.Intercept(ctx, node, next)
		}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)

	go func() {
		done <- safeCall(ctx, call)
	}()

	select {
	case err := <-done:
		return deadlineError(ctx, cfg.Timeout, err)
	case <-ctx.Done():
		return deadlineError(ctx, cfg.Timeout, ctx.Err())
	}
}

// deadlineError reports err as ErrTimeout when it is the invocation's own
// deadline expiring. Any other error, including one returned by the body
// as the deadline fires, is kept.
func deadlineError(ctx context.Context, timeout time.Duration, err error) error {
	if timeout > 0 &&
		errors.Is(err, context.DeadlineExceeded) &&
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}

	return err
}

func safeCall(ctx context.Context, call func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	return call(ctx)
}

// classify folds invocation errors into a terminal action. Any panic makes
// the case an error; any other failure makes it failed.
func classify(errs []error) (Action, int, error) {
	var (
		failed   []error
		panicked bool
	)

	for i, err := range errs {
		if err == nil {
			continue
		}

		if errors.Is(err, ErrPanic) {
			panicked = true
		}

		if len(errs) > 1 {
			err = fmt.Errorf("invocation %d: %w", i+1, err)
		}

		failed = append(failed, err)
	}

	if len(failed) == 0 {
		return ActionPass, 0, nil
	}

	err := failed[0]
	if len(failed) > 1 {
		err = errors.Join(failed...)
	}

	if panicked {
		return ActionError, len(failed), err
	}

	return ActionFail, len(failed), err
}

func (r *Runner) selected(c Case) (bool, error) {
	path := c.PathString()

	if r.filter != nil && !r.filter.MatchString(path) {
		return false, nil
	}

	if r.glob != "" {
		ok, err := doublestar.Match(r.glob, path)
		if err != nil || !ok {
			return false, err
		}
	}

	return r.tags.Match(c.Node.Config.Tags)
}

func (r *Runner) emit(ctx context.Context, handler Handler, event Event, result *Result) error {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	return handler.Event(ctx, event, result)
}

type emitterKey struct{}

func withEmitter(ctx context.Context, emit func(string)) context.Context {
	return context.WithValue(ctx, emitterKey{}, emit)
}

// Logf records output for the running test case. Outside a runner it does
// nothing.
func Logf(ctx context.Context, format string, args ...any) {
	if emit, ok := ctx.Value(emitterKey{}).(func(string)); ok {
		emit(fmt.Sprintf(format, args...))
	}
}
