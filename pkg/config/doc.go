// Package config loads dotboot's configuration.
//
// Layers, lowest first:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. the user file, $DOTBOOT_CONFIG or $XDG_CONFIG_HOME/dotboot/config.toml
//  3. DOTBOOT_* environment variables, "__" separating section and key
//  4. command-line overrides
//
// The merged tree is decoded into Config and validated.
package config
