package commands

import (
	"fmt"
	"os"

	"github.com/arthur-debert/dotboot/pkg/bootstrap"
	"github.com/arthur-debert/dotboot/pkg/filesystem"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/runner"
	"github.com/arthur-debert/dotboot/pkg/ui"
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   MsgPlanShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(output)
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}
			env := hostenv.FromOS()
			loaded, err := g.load(cmd, env)
			if err != nil {
				return err
			}
			boot := bootstrap.New(bootstrap.Options{
				Config: loaded.Config,
				Runner: runner.NewExecRunner(),
				FS:     filesystem.NewOS(),
			})
			content := ui.PlanMarkdown(boot.Stages())
			if format == ui.FormatYAML {
				format = ui.FormatText
			}
			renderer := ui.NewMarkdownRenderer(format.Resolve(os.Stdout, env))
			fmt.Fprint(cmd.OutOrStdout(), renderer.Render(content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "auto", MsgFlagOutput)
	return cmd
}
