package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/tspec"
	"github.com/rlch/tspec/runner"
)

// Output formats accepted by --format.
const (
	FormatDots    = "dots"
	FormatVerbose = "verbose"
	FormatJSON    = "json"
	FormatTUI     = "tui"
)

func runCommand(suites []Suite) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run test suites",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:  "run",
				Usage: "run only tests whose slash-joined path matches the regular expression",
			},
			&cli.StringFlag{
				Name:  "glob",
				Usage: "run only tests whose path matches the doublestar pattern, e.g. 'outer/**'",
			},
			&cli.StringFlag{
				Name:  "tags",
				Usage: "run only tests whose tags satisfy the expression, e.g. 'db && !slow'",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "stop on first failure",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "output format: dots, verbose, json or tui (default: tui on a terminal, dots otherwise)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output results as JSON",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSuites(ctx, cmd, suites)
		},
	}
}

// runOptions merges flags over the config file's run section.
type runOptions struct {
	filter   string
	glob     string
	tags     string
	failFast bool
	format   string
}

func resolveRunOptions(cmd *cli.Command, cfg tspec.RunConfig) runOptions {
	opts := runOptions{
		filter:   cfg.Filter,
		glob:     cfg.Glob,
		tags:     cfg.Tags,
		failFast: cfg.FailFast,
		format:   cfg.Format,
	}

	if cmd.IsSet("run") {
		opts.filter = cmd.String("run")
	}

	if cmd.IsSet("glob") {
		opts.glob = cmd.String("glob")
	}

	if cmd.IsSet("tags") {
		opts.tags = cmd.String("tags")
	}

	if cmd.IsSet("fail-fast") {
		opts.failFast = cmd.Bool("fail-fast")
	}

	switch {
	case cmd.Bool("json"):
		opts.format = FormatJSON
	case cmd.Bool("verbose"):
		opts.format = FormatVerbose
	case cmd.IsSet("format"):
		opts.format = cmd.String("format")
	}

	if opts.format == "" {
		opts.format = FormatDots
		if runner.IsTerminal(cmd.Root().Writer) {
			opts.format = FormatTUI
		}
	}

	return opts
}

func runSuites(ctx context.Context, cmd *cli.Command, suites []Suite) error {
	e, err := setup(cmd, suites)
	if err != nil {
		return err
	}

	defer func() { _ = e.logger.Sync() }()

	opts := resolveRunOptions(cmd, e.cfg.Run)

	stdout, stderr := cmd.Root().Writer, cmd.Root().ErrWriter

	var (
		handler    runner.Handler
		summarizer runner.Summarizer
	)

	switch opts.format {
	case FormatDots, FormatVerbose, FormatJSON:
		fh := runner.NewFormatHandler(runner.NewFormatter(opts.format, stdout), stderr)
		handler, summarizer = fh, fh
	case FormatTUI:
		trees := make([]runner.SuiteTree, 0, len(e.specs))

		for _, spec := range e.specs {
			cases, err := runner.Plan(spec)
			if err != nil {
				return fmt.Errorf("planning %s: %w", spec.Name(), err)
			}

			trees = append(trees, runner.BuildSuiteTree(spec, cases))
		}

		tui := runner.NewTUIHandler(stdout, stderr, trees)
		if err := tui.Start(); err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		handler, summarizer = tui, tui
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.format)
	}

	if e.logger.Core().Enabled(zap.DebugLevel) {
		handler = runner.NewMultiHandler(handler, runner.NewLogHandler(e.logger))
	}

	r := runner.New(
		runner.WithHandler(handler),
		runner.WithFailFast(opts.failFast),
		runner.WithFilter(opts.filter),
		runner.WithGlob(opts.glob),
		runner.WithTags(opts.tags),
		runner.WithLogger(e.logger),
	)

	total := runner.NewResult()

	for _, spec := range e.specs {
		result, err := r.Run(ctx, spec)
		if result != nil {
			total.Merge(result)
		}

		if err != nil {
			_ = summarizer.Summary(total)
			return fmt.Errorf("running %s: %w", spec.Name(), err)
		}

		if opts.failFast && !result.Ok() {
			break
		}
	}

	total.Finish()

	if err := summarizer.Summary(total); err != nil {
		return err
	}

	if !total.Ok() {
		return cli.Exit("", 1)
	}

	return nil
}
