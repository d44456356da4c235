package commands

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Bootstrap a machine from a Home Manager flake"
	MsgRunShort        = "Bootstrap this machine"
	MsgPlanShort       = "Describe the bootstrap stages without running them"
	MsgHistoryShort    = "Show recent bootstrap runs"
	MsgConfigShort     = "Manage the dotboot configuration"
	MsgConfigInitShort = "Write the default configuration file"
	MsgConfigShowShort = "Print the effective configuration"
	MsgVersionShort    = "Print version information"
	MsgVersionLong     = "Print detailed version information including commit hash and build date"
	MsgCompletionShort = "Generate shell completion script"
	MsgCompletionLong  = "Generate a completion script for bash, zsh, fish or powershell and print it to stdout."
	MsgManShort        = "Generate the dotboot man page"

	// Status messages
	MsgConfigWritten  = "Wrote default configuration to %s"
	MsgConfigExists   = "%s already exists (use --force to replace it)"
	MsgHandoff        = "Attaching to tmux session %q"
	MsgHandoffFailed  = "could not attach to the tmux session: %v"
	MsgHistoryFailed  = "could not record this run: %v"
	MsgCheckoutStale  = "the configuration checkout may be behind its upstream, run dotboot again once the network is back"
	MsgVersionFormat  = "dotboot %s\n"
	MsgVersionDetails = "commit: %s\nbuilt:  %s\nlog:    %s\n"

	// Flag descriptions
	MsgFlagVerbose    = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig     = "Configuration file (default $XDG_CONFIG_HOME/dotboot/config.toml)"
	MsgFlagRepository = "Configuration repository as owner/name on GitHub"
	MsgFlagCheckout   = "Where the configuration repository is checked out"
	MsgFlagDryRun     = "Report what would change without changing anything"
	MsgFlagYes        = "Accept every confirmation and take parameter defaults"
	MsgFlagSkip       = "Skip an optional stage (repeatable)"
	MsgFlagOutput     = "Output format: auto, term, text or yaml"
	MsgFlagForce      = "Replace an existing configuration file"
	MsgFlagDefaults   = "Print the built-in defaults instead of the effective configuration"
	MsgFlagLimit      = "Number of runs to show"
	MsgFlagDetail     = "Show version details"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/run-long.txt
	msgRunLongRaw string
	MsgRunLong    = strings.TrimSpace(msgRunLongRaw)
)

// Examples
const (
	MsgRunExample = `  # Bootstrap with prompts
  dotboot run

  # Preview on a machine that may already be configured
  dotboot run --dry-run

  # Unattended, without the tmux handoff
  dotboot run --yes --skip session`

	MsgConfigExample = `  # Start from the commented defaults
  dotboot config init

  # See what environment overrides resolve to
  DOTBOOT_REPOSITORY__GITHUB=me/dots dotboot config show`
)
