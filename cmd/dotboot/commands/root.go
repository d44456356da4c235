package commands

import (
	"github.com/arthur-debert/dotboot/internal/version"
	"github.com/arthur-debert/dotboot/pkg/config"
	"github.com/arthur-debert/dotboot/pkg/hostenv"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globals are the flags shared by every command.
type globals struct {
	verbosity  int
	configFile string
	repository string
	checkout   string
}

// load resolves the effective configuration for env, applying flag overrides.
// Failures carry ExitConfig.
func (g *globals) load(cmd *cobra.Command, env hostenv.Env) (config.Loaded, error) {
	overrides := map[string]interface{}{}
	if cmd.Flags().Changed("repo") {
		overrides["repository.github"] = g.repository
	}
	if cmd.Flags().Changed("checkout") {
		overrides["repository.path"] = g.checkout
	}
	loaded, err := config.Load(config.Options{
		Env:       env,
		File:      g.configFile,
		Overrides: overrides,
	})
	if err != nil {
		return config.Loaded{}, &ExitError{Code: ExitConfig, Err: err}
	}
	log.Debug().Str("file", loaded.File).Msg("Configuration loaded")
	return loaded, nil
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "dotboot",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(g.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&g.repository, "repo", "", MsgFlagRepository)
	rootCmd.PersistentFlags().StringVar(&g.checkout, "checkout", "", MsgFlagCheckout)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Bootstrap Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "Misc Commands:",
	})

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newPlanCmd(g))
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	return rootCmd
}
