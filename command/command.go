// Package command exposes tspec suites as a command line program.
package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/tspec"
)

// Suite constructs one spec. The command passes options derived from the
// project config and its flags, such as default overrides and the logger.
type Suite func(opts ...tspec.Option) (*tspec.Spec, error)

// Define returns a Suite building a spec named name from body. opts are
// applied before the command's own options.
func Define(name string, body func(s *tspec.ShouldScope), opts ...tspec.Option) Suite {
	return func(extra ...tspec.Option) (*tspec.Spec, error) {
		all := append([]tspec.Option{tspec.WithName(name)}, opts...)
		all = append(all, extra...)

		return tspec.New(body, all...)
	}
}

// FromSpec wraps an already constructed spec. Project defaults do not apply
// to it.
func FromSpec(spec *tspec.Spec) Suite {
	return func(...tspec.Option) (*tspec.Spec, error) {
		return spec, nil
	}
}

// New returns the root command for suites.
func New(suites ...Suite) *cli.Command {
	return &cli.Command{
		Name:      "tspec",
		Usage:     "Run declarative test specs",
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Commands: []*cli.Command{
			runCommand(suites),
			listCommand(suites),
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a .tspec.yaml file (default: search upwards from the working directory)",
			Sources: cli.EnvVars("TSPEC_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
}

// env is what a subcommand needs after flags and config are resolved.
type env struct {
	cfg    *tspec.Config
	logger *zap.Logger
	specs  []*tspec.Spec
}

func setup(cmd *cli.Command, suites []Suite) (*env, error) {
	if len(suites) == 0 {
		return nil, ErrNoSuites
	}

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.SpecOptions(), tspec.WithLogger(logger))

	specs := make([]*tspec.Spec, 0, len(suites))

	for i, suite := range suites {
		spec, err := suite(opts...)
		if err != nil {
			return nil, fmt.Errorf("building suite %d: %w", i, err)
		}

		specs = append(specs, spec)
	}

	return &env{cfg: cfg, logger: logger, specs: specs}, nil
}

func loadConfig(path string) (*tspec.Config, error) {
	if path != "" {
		return tspec.LoadConfigFile(path)
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := tspec.LoadConfig(dir)
	if errors.Is(err, tspec.ErrConfigNotFound) {
		return &tspec.Config{}, nil
	}

	return cfg, err
}

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if cmd.Bool("debug") {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return logger, nil
}
