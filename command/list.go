package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/tspec"
)

func listCommand(suites []Suite) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print every test node with its resolved config",
		Flags: commonFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, suites)
			if err != nil {
				return err
			}

			defer func() { _ = e.logger.Sync() }()

			w := cmd.Root().Writer
			for _, spec := range e.specs {
				if err := listSpec(w, spec); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func listSpec(w io.Writer, spec *tspec.Spec) error {
	_, _ = fmt.Fprintln(w, spec.Name())

	return tspec.Walk(spec, func(path []string, node *tspec.TestNode) error {
		indent := strings.Repeat("  ", len(path))

		if node.IsBranch() {
			_, _ = fmt.Fprintf(w, "%s%s/\n", indent, node.Name)
			return nil
		}

		_, _ = fmt.Fprintf(w, "%s%s %s\n", indent, node.Name, describeConfig(node.Config))

		return nil
	})
}

// describeConfig renders a leaf config as "[k=v ...]".
func describeConfig(cfg tspec.TestCaseConfig) string {
	parts := []string{
		fmt.Sprintf("invocations=%d", cfg.EffectiveInvocations()),
		fmt.Sprintf("threads=%d", cfg.Threads),
	}

	if cfg.Timeout > 0 {
		parts = append(parts, "timeout="+cfg.Timeout.String())
	}

	if len(cfg.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(cfg.Tags.Strings(), ","))
	}

	if len(cfg.Extensions) > 0 {
		parts = append(parts, fmt.Sprintf("extensions=%d", len(cfg.Extensions)))
	}

	if !cfg.Enabled {
		parts = append(parts, "disabled")
	}

	return "[" + strings.Join(parts, " ") + "]"
}
