package commands

import (
	"fmt"

	"github.com/arthur-debert/dotboot/pkg/config"
	"github.com/arthur-debert/dotboot/pkg/filesystem"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/paths"
	"github.com/spf13/cobra"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Example: MsgConfigExample,
		GroupID: "misc",
	}
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

func newConfigInitCmd(g *globals) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: MsgConfigInitShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := hostenv.FromOS()
			path := paths.New(env).ConfigFile()
			if g.configFile != "" {
				path = paths.Expand(env, g.configFile)
			}
			written, err := config.WriteDefaults(filesystem.NewOS(), path, force)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWritten+"\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), MsgConfigExists+"\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	return cmd
}

func newConfigShowCmd(g *globals) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults {
				cfg, err := config.Defaults()
				if err != nil {
					return err
				}
				data, err := config.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			loaded, err := g.load(cmd, hostenv.FromOS())
			if err != nil {
				return err
			}
			data, err := config.Marshal(loaded.Config)
			if err != nil {
				return err
			}
			if loaded.File != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", loaded.File)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, MsgFlagDefaults)
	return cmd
}
