package commands

import (
	"fmt"
	"os"

	"github.com/arthur-debert/dotboot/pkg/history"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/arthur-debert/dotboot/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		Short:   MsgHistoryShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := hostenv.FromOS()
			store, err := history.Open(commandContext(cmd), paths.New(env).HistoryDB())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			log.Debug().Str("path", store.Path()).Int("limit", limit).Msg("Reading run history")

			runs, err := store.Recent(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			styled := ui.FormatAuto.Resolve(os.Stdout, env).Styled()
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderHistory(runs, styled))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, MsgFlagLimit)
	return cmd
}
