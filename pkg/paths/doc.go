// Package paths resolves dotboot's file locations.
//
// Every lookup reads the hostenv.Env it is given rather than the process
// environment, so stages and tests see the same values.
//
// # Environment Variables
//
//   - DOTBOOT_CONFIG: config file (default: $XDG_CONFIG_HOME/dotboot/config.toml)
//   - DOTBOOT_STATE_DIR: state directory for the log and run history
//     (default: $XDG_STATE_HOME/dotboot)
//   - XDG_CONFIG_HOME: configuration root, also used for nix.conf
package paths
